package ports

import (
	"context"

	"github.com/mikey/tellows-fastagi/internal/core"
)

// CallFilter defines the interface for inbound caller checking front ends
type CallFilter interface {
	// CheckCaller runs one caller id through the lookup pipeline
	CheckCaller(ctx context.Context, callerID string) (*core.Decision, error)

	// Start starts the filter service
	Start() error

	// Stop stops the filter service
	Stop() error
}
