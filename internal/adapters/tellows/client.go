package tellows

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mikey/tellows-fastagi/internal/core"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// diagnosticNoise is sometimes embedded by tellows into otherwise valid
	// JSON replies and has to be removed before decoding
	diagnosticNoise = "Partner Data not correct"

	authHeader      = "X-Auth-Token"
	maxResponseSize = 1 << 20
)

var (
	// ErrUnexpectedStatus is returned for non-200 replies
	ErrUnexpectedStatus = errors.New("tellows: unexpected status")
	// ErrMalformedResponse is returned when the reply cannot be decoded
	ErrMalformedResponse = errors.New("tellows: malformed response")
)

// Client is an implementation of the ReputationClient interface for tellows
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKeyMD5  string
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a new tellows client. A nil limiter disables rate limiting.
func NewClient(
	httpClient *http.Client,
	baseURL string,
	apiKeyMD5 string,
	limiter *rate.Limiter,
	logger *zap.Logger,
) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKeyMD5:  apiKeyMD5,
		limiter:    limiter,
		logger:     logger,
	}
}

// numberResponse represents the reply of the live number API
type numberResponse struct {
	Tellows *struct {
		Number           string     `json:"number"`
		NormalizedNumber string     `json:"normalizedNumber"`
		Score            *flexInt   `json:"score"`
		Searches         flexString `json:"searches"`
		Comments         flexString `json:"comments"`
	} `json:"tellows"`
}

// partnerInfoResponse represents the reply of the partner info API
type partnerInfoResponse struct {
	PartnerInfo *struct {
		Info           string     `json:"info"`
		Company        string     `json:"company"`
		AllowScoreList flexString `json:"allowscorelist"`
		Premium        flexString `json:"premium"`
		ValidUntil     flexString `json:"validuntil"`
		Requests       flexString `json:"requests"`
	} `json:"partnerinfo"`
}

// errorResponse is what tellows sends along with non-200 statuses
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Lookup queries the live number API for one number
func (c *Client) Lookup(ctx context.Context, number string) (*core.ReputationScore, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("tellows: rate limit wait: %w", err)
		}
	}

	endpoint := c.baseURL + "/basic/num/" + url.PathEscape(number) + "?json=1"
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var reply numberResponse
	if err := json.Unmarshal(stripDiagnostics(body), &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if reply.Tellows == nil {
		return nil, fmt.Errorf("%w: missing tellows object", ErrMalformedResponse)
	}
	if reply.Tellows.Score == nil {
		return nil, fmt.Errorf("%w: missing score", ErrMalformedResponse)
	}

	return &core.ReputationScore{
		Number:           reply.Tellows.Number,
		NormalizedNumber: reply.Tellows.NormalizedNumber,
		Score:            int(*reply.Tellows.Score),
		Searches:         c.counter("searches", reply.Tellows.Searches),
		Comments:         c.counter("comments", reply.Tellows.Comments),
		CheckedAt:        time.Now(),
	}, nil
}

// PartnerInfo fetches the account metadata for the configured credential
func (c *Client) PartnerInfo(ctx context.Context) (*core.PartnerInfo, error) {
	body, err := c.get(ctx, c.baseURL+"/api/getpartnerinfo")
	if err != nil {
		return nil, err
	}

	var reply partnerInfoResponse
	if err := json.Unmarshal(stripDiagnostics(body), &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if reply.PartnerInfo == nil {
		return nil, fmt.Errorf("%w: missing partnerinfo object", ErrMalformedResponse)
	}

	return &core.PartnerInfo{
		Info:           reply.PartnerInfo.Info,
		Company:        reply.PartnerInfo.Company,
		AllowScoreList: string(reply.PartnerInfo.AllowScoreList),
		Premium:        string(reply.PartnerInfo.Premium),
		ValidUntil:     string(reply.PartnerInfo.ValidUntil),
		Requests:       string(reply.PartnerInfo.Requests),
	}, nil
}

// counter parses an informational count. Only the score is mandatory, so
// anything unparsable counts as 0.
func (c *Client) counter(field string, value flexString) int {
	raw := strings.TrimSpace(string(value))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		c.logger.Debug("Ignoring non-integer field in tellows reply",
			zap.String("field", field),
			zap.String("value", raw))
		return 0
	}
	return n
}

// get performs an authenticated GET and returns the body of a 200 reply
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("tellows: build request: %w", err)
	}
	req.Header.Set(authHeader, c.apiKeyMD5)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tellows: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("tellows: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var reply errorResponse
		_ = json.Unmarshal(stripDiagnostics(body), &reply)
		c.logger.Debug("tellows returned an error",
			zap.Int("status", resp.StatusCode),
			zap.String("error", reply.Error),
			zap.String("message", reply.Message))
		return nil, fmt.Errorf("%w %d: %s %s", ErrUnexpectedStatus, resp.StatusCode, reply.Error, reply.Message)
	}

	return body, nil
}

// stripDiagnostics removes the diagnostic string tellows sometimes puts into
// JSON bodies
func stripDiagnostics(body []byte) []byte {
	return bytes.ReplaceAll(body, []byte(diagnosticNoise), nil)
}

// flexInt decodes integers tellows sends either as JSON strings or numbers
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("not an integer: %s", data)
	}
	*f = flexInt(n)
	return nil
}

// flexString decodes values tellows sends either as JSON strings or numbers
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
