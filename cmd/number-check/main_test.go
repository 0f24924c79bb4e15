package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mikey/tellows-fastagi/internal/config"
	"github.com/mikey/tellows-fastagi/internal/di"
	"github.com/mikey/tellows-fastagi/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "ok", err: nil, want: exitOK},
		{name: "missing option", err: fmt.Errorf("wrapped: %w", config.ErrMissingOption), want: exitConfig},
		{name: "invalid option", err: fmt.Errorf("wrapped: %w", config.ErrInvalidOption), want: exitConfig},
		{name: "lookup failure", err: errors.New("1 of 1 lookups failed"), want: exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestExitCode_InvalidOptionFromContainer(t *testing.T) {
	flags, err := di.ParseFlags("number-check", []string{
		"-api-key", "0123456789abcdef",
		"-cache", "memcached",
		"016362096",
	})
	require.NoError(t, err)

	container, err := di.BuildCLIContainer(flags)
	require.NoError(t, err)

	err = container.Invoke(func(ports.CallFilter) {})
	require.Error(t, err)
	assert.Equal(t, exitConfig, exitCode(err))
}
