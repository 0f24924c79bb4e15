package core

import (
	"context"
)

// Normalizer turns a raw caller id into its canonical international form
type Normalizer interface {
	// Normalize returns ErrCallerUnavailable for anonymous callers and an
	// error wrapping ErrInvalidCallerID for unparsable ones
	Normalize(raw string) (string, error)
}

// CacheRepository is the read-only fast path for already known numbers
type CacheRepository interface {
	// Contains reports whether the canonical number is listed
	Contains(ctx context.Context, number string) (bool, error)
}

// ReputationClient defines the interface for the remote reputation service
type ReputationClient interface {
	// Lookup queries the score for a number
	Lookup(ctx context.Context, number string) (*ReputationScore, error)

	// PartnerInfo fetches the account metadata for the configured credential
	PartnerInfo(ctx context.Context) (*PartnerInfo, error)
}
