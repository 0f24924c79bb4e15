package agi

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleEnvironment = "agi_network: yes\n" +
	"agi_request: agi://localhost/\n" +
	"agi_channel: PJSIP/sipgate_trunk-00000145\n" +
	"agi_callerid: 01636209692\n" +
	"agi_calleridname: 01636209692\n" +
	"agi_context: subCheckBlacklist\n" +
	"agi_version: certified-18.9-cert8\n" +
	"\n"

func TestReadRequest(t *testing.T) {
	req, err := ReadRequest(bufio.NewReader(strings.NewReader(sampleEnvironment)))
	require.NoError(t, err)

	assert.Equal(t, "01636209692", req.CallerID())
	assert.Equal(t, "agi://localhost/", req["agi_request"])
	assert.Equal(t, "subCheckBlacklist", req["agi_context"])
}

func TestReadRequest_CRLF(t *testing.T) {
	in := "agi_callerid: anonymous\r\nagi_network: yes\r\n\r\n"
	req, err := ReadRequest(bufio.NewReader(strings.NewReader(in)))
	require.NoError(t, err)
	assert.Equal(t, "anonymous", req.CallerID())
}

func TestReadRequest_MissingCallerID(t *testing.T) {
	req, err := ReadRequest(bufio.NewReader(strings.NewReader("agi_network: yes\n\n")))
	require.NoError(t, err)
	assert.Empty(t, req.CallerID())
}

func TestReadRequest_LeavesTrailingDataUnread(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("agi_callerid: 123\n\n200 result=1\n"))
	_, err := ReadRequest(r)
	require.NoError(t, err)

	rest, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "200 result=1\n", rest)
}

func TestReadRequest_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{name: "eof before blank line", in: "agi_callerid: 123\n", want: ErrIncompleteRequest},
		{name: "empty stream", in: "", want: ErrIncompleteRequest},
		{name: "blank line only", in: "\n", want: ErrIncompleteRequest},
		{name: "no separator", in: "GET / HTTP/1.1\n\n", want: ErrMalformedRequest},
		{name: "empty key", in: ": value\n\n", want: ErrMalformedRequest},
		{name: "too many lines", in: strings.Repeat("agi_x: y\n", maxEnvironmentLines+1) + "\n", want: ErrRequestTooLarge},
		{name: "line too long", in: "agi_callerid: " + strings.Repeat("9", maxLineLength) + "\n\n", want: ErrRequestTooLarge},
		{name: "unterminated long line", in: "agi_callerid: " + strings.Repeat("9", 3*maxLineLength), want: ErrRequestTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ReadRequest(bufio.NewReader(strings.NewReader(tt.in)))
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, req)
		})
	}
}

func TestReadRequest_OversizedLineStopsEarly(t *testing.T) {
	// The peer keeps sending one line; reading must stop after one buffer
	src := &countingReader{r: io.LimitReader(repeatReader('9'), 50<<20)}
	_, err := ReadRequest(bufio.NewReader(io.MultiReader(strings.NewReader("agi_callerid: "), src)))
	require.ErrorIs(t, err, ErrRequestTooLarge)
	assert.LessOrEqual(t, src.n, int64(2*maxLineLength))
}

func TestReadRequest_LongestAllowedLine(t *testing.T) {
	value := strings.Repeat("9", maxLineLength-len("agi_callerid: \n"))
	req, err := ReadRequest(bufio.NewReader(strings.NewReader("agi_callerid: " + value + "\n\n")))
	require.NoError(t, err)
	assert.Equal(t, value, req.CallerID())
}

type repeatReader byte

func (b repeatReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(b)
	}
	return len(p), nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func TestWriteSetVariable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSetVariable(&buf, "TELLOWS_SCORE", "6"))
	assert.Equal(t, "SET VARIABLE TELLOWS_SCORE 6\n", buf.String())
}

func TestWriteSetVariable_RejectsInjection(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteSetVariable(&buf, "TELLOWS_SCORE", "6\nHANGUP"))
	assert.Error(t, WriteSetVariable(&buf, "BAD NAME", "1"))
	assert.Empty(t, buf.String())
}
