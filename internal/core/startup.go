package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// VerifyAccount checks once, before any call is accepted, that the
// configured credential is usable
func (s *CallerCheckService) VerifyAccount(ctx context.Context) (*PartnerInfo, error) {
	info, err := s.reputation.PartnerInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAccountCheck, err)
	}

	fields := []zap.Field{
		zap.String("info", info.Info),
		zap.String("allowscorelist", info.AllowScoreList),
		zap.String("premium", info.Premium),
		zap.String("valid_until", info.ValidUntil),
		zap.String("requests", info.Requests),
	}
	if info.Company != "" {
		fields = append(fields, zap.String("company", info.Company))
	}
	s.logger.Info("Successfully connected to tellows API", fields...)

	return info, nil
}
