// Package agi implements the small part of the FastAGI protocol the gateway
// speaks: reading the environment block Asterisk sends at connection start
// and writing a SET VARIABLE command.
package agi

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// CallerIDKey is the environment field carrying the caller id
	CallerIDKey = "agi_callerid"

	// maxEnvironmentLines bounds the environment block
	maxEnvironmentLines = 128

	// maxLineLength bounds one environment line, newline included. It must
	// not exceed the buffer of the reader passed to ReadRequest; the default
	// bufio size is 4096.
	maxLineLength = 4096
)

var (
	// ErrMalformedRequest is returned for environment lines that are not "key: value"
	ErrMalformedRequest = errors.New("agi: malformed environment line")
	// ErrIncompleteRequest is returned when the peer stops before the blank line
	ErrIncompleteRequest = errors.New("agi: incomplete environment block")
	// ErrRequestTooLarge is returned when the environment block has too many
	// lines or a line is too long
	ErrRequestTooLarge = errors.New("agi: environment block too large")
)

// Request holds the environment fields of one FastAGI request
type Request map[string]string

// CallerID returns the caller id, or an empty string when absent
func (r Request) CallerID() string {
	return r[CallerIDKey]
}

// ReadRequest reads the environment block up to and including the blank line
func ReadRequest(r *bufio.Reader) (Request, error) {
	req := make(Request)

	for lines := 0; ; lines++ {
		if lines >= maxEnvironmentLines {
			return nil, ErrRequestTooLarge
		}

		// ReadSlice never buffers past the reader's buffer size
		raw, err := r.ReadSlice('\n')
		if len(raw) > maxLineLength || errors.Is(err, bufio.ErrBufferFull) {
			return nil, fmt.Errorf("%w: line %d exceeds %d bytes", ErrRequestTooLarge, lines+1, maxLineLength)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w after %d lines", ErrIncompleteRequest, lines)
			}
			return nil, err
		}

		line := strings.TrimRight(string(raw), "\r\n")
		if line == "" {
			if len(req) == 0 {
				return nil, fmt.Errorf("%w: empty environment", ErrIncompleteRequest)
			}
			return req, nil
		}

		key, value, ok := strings.Cut(line, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedRequest, line)
		}
		req[key] = strings.TrimSpace(value)
	}
}

// WriteSetVariable writes a SET VARIABLE command. The reply Asterisk sends is
// not awaited, the connection is closed right after.
func WriteSetVariable(w io.Writer, name, value string) error {
	if name == "" || strings.ContainsAny(name, " \r\n") || strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("agi: invalid variable %q=%q", name, value)
	}
	_, err := fmt.Fprintf(w, "SET VARIABLE %s %s\n", name, value)
	return err
}
