// Package esp32 sends control requests to the lab's microcontroller board.
package esp32

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"voicelab/internal/domain"
	"voicelab/internal/infra"
)

const (
	DefaultHost    = "192.168.0.172"
	DefaultTimeout = 5 * time.Second
)

var ErrStatus = errors.New("unexpected status")

// StatusError is returned when the board answers with a non-success status.
type StatusError struct {
	Endpoint   domain.Endpoint
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s %d", e.Endpoint, ErrStatus, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

type Config struct {
	Host    string
	Timeout time.Duration
	Retry   infra.RetryConfig
}

func DefaultConfig() Config {
	return Config{
		Host:    DefaultHost,
		Timeout: DefaultTimeout,
		Retry:   infra.DefaultRetryConfig(),
	}
}

type Client struct {
	baseURL    string
	retry      infra.RetryConfig
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(host string, logger *slog.Logger) *Client {
	cfg := DefaultConfig()
	cfg.Host = host
	return NewClientWithConfig(cfg, logger)
}

// NewClientWithConfig builds a client; Host may be a bare host[:port] or a
// full base URL (used by tests against httptest servers).
func NewClientWithConfig(cfg Config, logger *slog.Logger) *Client {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	baseURL := strings.TrimSuffix(cfg.Host, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	return &Client{
		baseURL: baseURL,
		retry:   cfg.Retry,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			// The board answers 3xx on some firmware builds; that still means done.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}
}

func (c *Client) URL(endpoint domain.Endpoint) string {
	return c.baseURL + "/" + endpoint.Path()
}

// Dispatch sends endpoint and reports whether the board accepted it.
// Failures are logged, never returned.
func (c *Client) Dispatch(ctx context.Context, endpoint domain.Endpoint) bool {
	status, err := c.Send(ctx, endpoint)
	if err != nil {
		c.logger.Warn("failed to send command", "endpoint", endpoint, "error", err)
		return false
	}
	c.logger.Info("command sent", "endpoint", endpoint, "status", status)
	return true
}

// Send issues GET <base>/<endpoint>, retrying transient failures, and
// returns the final status code.
func (c *Client) Send(ctx context.Context, endpoint domain.Endpoint) (int, error) {
	if endpoint.IsComposite() {
		return 0, fmt.Errorf("composite endpoint %s must be expanded before dispatch", endpoint)
	}

	url := c.URL(endpoint)
	var status int

	err := infra.WithRetry(ctx, c.retry, func() error {
		c.logger.Debug("sending request", "url", url)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return infra.Permanent(fmt.Errorf("creating request: %w", err))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

		status = resp.StatusCode

		if infra.IsRetryableHTTPStatus(resp.StatusCode) {
			return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
		}

		if resp.StatusCode >= 400 {
			return infra.Permanent(&StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode})
		}

		return nil
	})

	if err != nil {
		return status, err
	}

	return status, nil
}
