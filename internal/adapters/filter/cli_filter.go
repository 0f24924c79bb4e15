package filter

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mikey/tellows-fastagi/internal/core"
	"go.uber.org/zap"
)

// CliFilter implements a command-line interface for caller checks
type CliFilter struct {
	service *core.CallerCheckService
	logger  *zap.Logger
	out     io.Writer
	verbose bool
}

// NewCliFilter creates a new CLI filter printing to out
func NewCliFilter(service *core.CallerCheckService, logger *zap.Logger, out io.Writer, verbose bool) (*CliFilter, error) {
	return &CliFilter{
		service: service,
		logger:  logger,
		out:     out,
		verbose: verbose,
	}, nil
}

// CheckCaller checks a caller id and displays the results
func (f *CliFilter) CheckCaller(ctx context.Context, callerID string) (*core.Decision, error) {
	f.logger.Debug("Checking caller", zap.String("caller_id", callerID))

	fmt.Fprintf(f.out, "\n=== Caller ===\n")
	fmt.Fprintf(f.out, "Caller id: %q\n", callerID)

	startTime := time.Now()
	decision, err := f.service.Check(ctx, callerID)
	duration := time.Since(startTime)

	if decision != nil {
		if decision.Number != "" {
			fmt.Fprintf(f.out, "Normalized: %s\n", decision.Number)
		}
		if decision.CacheErr != nil {
			fmt.Fprintf(f.out, "Cache: %v\n", decision.CacheErr)
		}
	}

	fmt.Fprintf(f.out, "\n=== Result ===\n")
	if err != nil {
		fmt.Fprintf(f.out, "Error: %v\n", err)
		fmt.Fprintf(f.out, "%s: not set\n", core.ScoreVariable)
		return decision, err
	}

	if !decision.HasScore {
		fmt.Fprintf(f.out, "%s: not set (no caller id)\n", core.ScoreVariable)
	} else {
		fmt.Fprintf(f.out, "%s: %d\n", core.ScoreVariable, decision.Score)
		fmt.Fprintf(f.out, "Source: %s\n", decision.Source)
	}

	if f.verbose && decision.Reputation != nil {
		rep := decision.Reputation
		fmt.Fprintf(f.out, "Remote number: %s\n", rep.Number)
		fmt.Fprintf(f.out, "Remote normalized: %s\n", rep.NormalizedNumber)
		fmt.Fprintf(f.out, "Searches: %d\n", rep.Searches)
		fmt.Fprintf(f.out, "Comments: %d\n", rep.Comments)
	}
	fmt.Fprintf(f.out, "Processing time: %v\n", duration)

	return decision, nil
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
