// Package upstream holds the request plumbing shared by the completion and CRM clients.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	aerrors "github.com/hpungsan/asesor/internal/errors"
)

// Outcomes reported to a Recorder.
const (
	OutcomeOK            = "ok"
	OutcomeError         = "error"
	OutcomeTimeout       = "timeout"
	OutcomeNotConfigured = "not_configured"
)

// Recorder receives one observation per outbound request.
type Recorder interface {
	ObserveUpstream(service, outcome string)
}

// maxErrorBody bounds how much of a failed response body is logged.
const maxErrorBody = 512

// Client sends JSON requests with bearer auth to one external service.
// Calls are never retried.
type Client struct {
	Service  string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	Logger   *zap.Logger
	Recorder Recorder

	HTTP *http.Client
}

// Configured reports whether the client has credentials.
func (c *Client) Configured() bool {
	return c.APIKey != ""
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: c.Timeout}
}

func (c *Client) observe(outcome string) {
	if c.Recorder != nil {
		c.Recorder.ObserveUpstream(c.Service, outcome)
	}
}

func (c *Client) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// DoJSON sends body (if non-nil) as JSON to BaseURL+path and decodes the response into out (if non-nil).
// Missing credentials, timeouts, transport failures and non-2xx statuses map to structured errors.
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out any) error {
	if !c.Configured() {
		c.observe(OutcomeNotConfigured)
		return aerrors.NewNotConfigured(c.Service)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return aerrors.NewInternal(fmt.Errorf("marshaling %s request: %w", c.Service, err))
		}
		reader = bytes.NewReader(data)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return aerrors.NewInternal(fmt.Errorf("creating %s request: %w", c.Service, err))
	}
	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	log := c.logger().With(
		zap.String("service", c.Service),
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID))

	start := time.Now()
	resp, err := c.httpClient().Do(req)
	if err != nil {
		if isTimeout(err) {
			c.observe(OutcomeTimeout)
			log.Warn("upstream timeout", zap.Duration("elapsed", time.Since(start)))
			return aerrors.NewUpstreamTimeout(c.Service, int(c.Timeout.Seconds()))
		}
		c.observe(OutcomeError)
		log.Warn("upstream request failed", zap.Error(err))
		return aerrors.NewUpstreamFailed(c.Service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.observe(OutcomeError)
		log.Warn("upstream returned error status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet))
		return aerrors.NewUpstreamStatus(c.Service, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			if isTimeout(err) {
				c.observe(OutcomeTimeout)
				return aerrors.NewUpstreamTimeout(c.Service, int(c.Timeout.Seconds()))
			}
			c.observe(OutcomeError)
			log.Warn("undecodable upstream response", zap.Error(err))
			return aerrors.NewUpstreamFailed(c.Service, fmt.Errorf("decoding response: %w", err))
		}
	}

	c.observe(OutcomeOK)
	log.Debug("upstream request", zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(start)))
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
