// Package relay submits dispatches to the chat gateway sidecar, which turns
// them into interactions with the generation bot.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/time/rate"

	"github.com/phrazzld/mjqueue/internal/domain"
	"github.com/phrazzld/mjqueue/internal/task"
)

// ErrRejected is returned when the sidecar answers with a non-success status.
var ErrRejected = errors.New("relay rejected submission")

// Config holds configuration for the relay client.
type Config struct {
	URL           string
	Token         string
	RatePerSecond float64
	Timeout       time.Duration
}

// Client implements task.Submitter over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ task.Submitter = (*Client)(nil)

// New creates a relay client. Submissions are rate limited to
// cfg.RatePerSecond with a burst of one.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = cfg.Timeout

	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		token:   cfg.Token,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		logger:  logger.With("component", "relay_client"),
	}
}

type submitResponse struct {
	Reference string `json:"reference"`
	Error     string `json:"error,omitempty"`
}

func (c *Client) post(ctx context.Context, action domain.Action, params any) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s params: %w", action, err)
	}

	url := c.baseURL + "/interactions/" + string(action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read relay response: %w", err)
	}

	var out submitResponse
	var decodeErr error
	if len(bytes.TrimSpace(raw)) > 0 {
		decodeErr = json.Unmarshal(raw, &out)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("relay rejected submission",
			"action", action,
			"http_status", resp.StatusCode,
			"error", out.Error)
		return "", fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
	// The relay already accepted the interaction, so an unreadable body only
	// costs the reference.
	if decodeErr != nil {
		c.logger.Warn("relay accepted submission with unreadable response",
			"action", action,
			"http_status", resp.StatusCode,
			"error", decodeErr)
	}
	return out.Reference, nil
}

// Generate implements task.Submitter.
func (c *Client) Generate(ctx context.Context, p domain.GenerateParams) (string, error) {
	return c.post(ctx, domain.ActionGenerate, p)
}

// Upscale implements task.Submitter.
func (c *Client) Upscale(ctx context.Context, p domain.UpscaleParams) (string, error) {
	return c.post(ctx, domain.ActionUpscale, p)
}

// Vary implements task.Submitter.
func (c *Client) Vary(ctx context.Context, p domain.VaryParams) (string, error) {
	return c.post(ctx, domain.ActionVary, p)
}

// Reset implements task.Submitter.
func (c *Client) Reset(ctx context.Context, p domain.ResetParams) (string, error) {
	return c.post(ctx, domain.ActionReset, p)
}

// Describe implements task.Submitter.
func (c *Client) Describe(ctx context.Context, p domain.DescribeParams) (string, error) {
	return c.post(ctx, domain.ActionDescribe, p)
}

// Blend implements task.Submitter.
func (c *Client) Blend(ctx context.Context, p domain.BlendParams) (string, error) {
	return c.post(ctx, domain.ActionBlend, p)
}
