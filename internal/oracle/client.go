// File: internal/oracle/client.go
package oracle

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/sumant2123/Travel-Itineary-Planner/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const anthropicVersion = "2023-06-01"

// FatalError marks a guidance failure that must abort the run rather than
// just the current iteration (missing credential, malformed request, a reply
// the client cannot decode). Transient exhaustion is reported as a plain
// error and the control loop recovers from it.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err (anywhere in its chain) is a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// fatal classifies an error as non-retryable for both backoff and the caller.
func fatal(err error) error {
	return backoff.Permanent(&FatalError{Err: err})
}

// Client talks to the Anthropic messages API. Each Guide call is a single
// turn: one image, one instruction, one textual reply. No conversation
// history is carried between calls.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
	cfg        config.OracleConfig
}

// -- Anthropic messages API wire structures (internal to this file) --

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type chatMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type requestPayload struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type responsePayload struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewClient initializes the client. The credential is a setup requirement:
// a missing key is reported here, not on the first call.
func NewClient(cfg config.OracleConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("oracle API key is required (set ANTHROPIC_API_KEY)")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.anthropic.com/v1/messages"
	}

	return &Client{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		cfg:      cfg,
		// The HTTP client carries no timeout of its own; each attempt gets a
		// per-attempt context deadline so a timeout is retryable.
		httpClient: &http.Client{},
		logger:     logger.Named("oracle"),
	}, nil
}

// Guide sends one screenshot plus the fixed task instruction and returns the
// oracle's raw textual reply, trimmed of surrounding whitespace but otherwise
// unmodified. Grammar validation is the interpreter's job.
//
// Transient failures (network errors, per-attempt timeout, HTTP 408/429/5xx)
// are retried with exponential backoff up to cfg.MaxAttempts total attempts.
// Everything else fails immediately with a FatalError.
func (c *Client) Guide(ctx context.Context, snapshot []byte, task string) (string, error) {
	if len(snapshot) == 0 {
		return "", &FatalError{Err: errors.New("snapshot must be non-empty image bytes")}
	}

	payload := requestPayload{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentBlock{
				{Type: "text", Text: task},
				{Type: "image", Source: &imageSource{
					Type:      "base64",
					MediaType: "image/png",
					Data:      base64.StdEncoding.EncodeToString(snapshot),
				}},
			},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &FatalError{Err: fmt.Errorf("failed to marshal request payload: %w", err)}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.BackoffMin
	b.MaxInterval = c.cfg.BackoffMax
	b.MaxElapsedTime = 0 // bounded by attempt count, not wall clock

	var reply string

	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.APITimeout)
		defer cancel()

		httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fatal(fmt.Errorf("failed to create HTTP request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-api-key", c.apiKey)
		httpReq.Header.Set("anthropic-version", anthropicVersion)

		startTime := time.Now()
		resp, err := c.httpClient.Do(httpReq)
		duration := time.Since(startTime)

		if err != nil {
			if ctx.Err() != nil {
				// The run itself was cancelled; do not keep retrying.
				return backoff.Permanent(ctx.Err())
			}
			c.logger.Warn("Transport error during guidance request, retrying...", zap.Error(err))
			return fmt.Errorf("failed to execute HTTP request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return c.handleAPIError(resp.StatusCode, respBody)
		}

		var decoded responsePayload
		if err := json.Unmarshal(respBody, &decoded); err != nil {
			return fatal(fmt.Errorf("failed to decode response payload: %w", err))
		}

		text := firstText(decoded)
		if text == "" {
			// An empty reply with a clean stop reason will not improve on
			// retry; anything else might.
			if decoded.StopReason == "end_turn" || decoded.StopReason == "stop_sequence" {
				return fatal(fmt.Errorf("oracle returned no text content (stop_reason: %s)", decoded.StopReason))
			}
			return fmt.Errorf("oracle returned empty content (stop_reason: %s)", decoded.StopReason)
		}

		c.logger.Info("Guidance received",
			zap.Duration("duration", duration),
			zap.Int("input_tokens", decoded.Usage.InputTokens),
			zap.Int("output_tokens", decoded.Usage.OutputTokens),
		)

		reply = strings.TrimSpace(text)
		return nil
	}

	var retries uint64
	if c.cfg.MaxAttempts > 1 {
		retries = uint64(c.cfg.MaxAttempts - 1)
	}
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx)); err != nil {
		return "", err
	}
	return reply, nil
}

// handleAPIError classifies non-200 responses. Rate limiting, request
// timeouts and server-side failures are worth retrying; everything else is a
// malformed request and fails the run.
func (c *Client) handleAPIError(statusCode int, body []byte) error {
	c.logger.Error("Oracle API returned error status",
		zap.Int("status", statusCode),
		zap.ByteString("response", body),
	)
	err := fmt.Errorf("oracle API error: status %d, body: %s", statusCode, string(body))

	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return err
	}
	if statusCode >= 500 {
		return err
	}
	return fatal(err)
}

func firstText(p responsePayload) string {
	for _, block := range p.Content {
		if block.Type == "text" {
			return block.Text
		}
	}
	return ""
}
