package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// CallerCheckService is the core service for caller reputation checks
type CallerCheckService struct {
	normalizer Normalizer
	cache      CacheRepository
	reputation ReputationClient
	logger     *zap.Logger
}

// NewCallerCheckService creates a new caller check service. A nil cache
// disables the cache tier.
func NewCallerCheckService(
	normalizer Normalizer,
	cache CacheRepository,
	reputation ReputationClient,
	logger *zap.Logger,
) *CallerCheckService {
	return &CallerCheckService{
		normalizer: normalizer,
		cache:      cache,
		reputation: reputation,
		logger:     logger,
	}
}

// CacheEnabled reports whether the cache tier is consulted
func (s *CallerCheckService) CacheEnabled() bool {
	return s.cache != nil
}

// Check runs the lookup pipeline for one caller id. The returned decision is
// always usable; a non-nil error only reports a failed remote lookup, in which
// case the decision carries no score.
func (s *CallerCheckService) Check(ctx context.Context, callerID string) (*Decision, error) {
	decision := &Decision{
		CallerID: callerID,
		Source:   SourceNone,
	}

	number, err := s.normalizer.Normalize(callerID)
	switch {
	case errors.Is(err, ErrCallerUnavailable):
		s.logger.Info("Skipping check for unavailable caller id", zap.String("caller_id", callerID))
		return decision, nil
	case err != nil:
		s.logger.Warn("Failed to normalize caller id, passing it through unchanged",
			zap.String("caller_id", callerID),
			zap.Error(err))
	default:
		decision.Number = number
	}

	// Unparsable ids cannot be cache keys
	if s.cache != nil && decision.Number != "" {
		found, err := s.cache.Contains(ctx, decision.Number)
		switch {
		case err != nil:
			decision.CacheErr = fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
			s.logger.Warn("Cache lookup failed, checking tellows",
				zap.String("number", decision.Number),
				zap.Error(err))
		case found:
			s.logger.Info("Number found in cache, not checking tellows",
				zap.String("number", decision.Number),
				zap.String("action", "whitelist_bypass"))
			decision.Source = SourceCache
			decision.Score = WhitelistScore
			decision.HasScore = true
			return decision, nil
		default:
			s.logger.Debug("Number not found in cache, checking tellows", zap.String("number", decision.Number))
		}
	}

	query := decision.Number
	if query == "" {
		query = callerID
	}

	decision.Source = SourceRemote
	reputation, err := s.reputation.Lookup(ctx, query)
	if err != nil {
		return decision, fmt.Errorf("%w: %w", ErrRemoteLookup, err)
	}

	s.logger.Info("Response from tellows",
		zap.String("number", reputation.Number),
		zap.String("normalized_number", reputation.NormalizedNumber),
		zap.Int("score", reputation.Score),
		zap.Int("searches", reputation.Searches),
		zap.Int("comments", reputation.Comments))

	decision.Reputation = reputation
	decision.Score = reputation.Score
	decision.HasScore = true
	return decision, nil
}
