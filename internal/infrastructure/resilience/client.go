package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/config"
)

// HTTPStatusError carries a non-2xx response status for callers that need
// to distinguish, say, a 404 from a 500.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http %d from %s", e.StatusCode, e.URL)
}

// Client wraps an http.Client with a circuit breaker and bounded retry.
// Transport errors and 5xx responses count as failures and are retried;
// client errors such as 401, 403 and 404 are returned immediately since
// retrying them just repeats the same rejection. When the breaker is open
// or retries are exhausted, callers receive shared.ErrDownstreamUnavailable
// so they can fail soft without inspecting transport details.
type Client struct {
	name    string
	http    *http.Client
	breaker *CircuitBreaker
	retry   RetrySettings
	logger  *zap.Logger
}

// NewClient builds a resilient client from breaker configuration.
func NewClient(name string, timeout time.Duration, cfg config.BreakerConfig, logger *zap.Logger) *Client {
	settings := BreakerSettings{
		WindowSize:       cfg.WindowSize,
		FailureThreshold: cfg.FailureThreshold,
		MinimumCalls:     cfg.MinimumCalls,
		OpenDuration:     cfg.OpenDuration,
		HalfOpenProbes:   cfg.HalfOpenProbes,
	}
	return &Client{
		name:    name,
		http:    &http.Client{Timeout: timeout},
		breaker: NewCircuitBreaker(name, settings, logger),
		retry:   RetrySettings{MaxRetries: cfg.MaxRetries, BaseBackoff: cfg.RetryBackoff},
		logger:  logger,
	}
}

// Do executes the request under retry and breaker control. The request must
// carry a context and a rewindable body (or none); retries reissue it via
// req.Clone.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response

	err := Retry(req.Context(), c.retry, func(ctx context.Context) error {
		return c.breaker.Execute(ctx, func(ctx context.Context) error {
			r, err := c.http.Do(req.Clone(ctx))
			if err != nil {
				c.logger.Debug("outbound call failed",
					zap.String("client", c.name),
					zap.String("url", req.URL.String()),
					zap.Error(err),
				)
				return err
			}

			if r.StatusCode >= 500 {
				drain(r)
				return &HTTPStatusError{StatusCode: r.StatusCode, URL: req.URL.String()}
			}
			if r.StatusCode >= 400 {
				drain(r)
				return Permanent(&HTTPStatusError{StatusCode: r.StatusCode, URL: req.URL.String()})
			}

			resp = r
			return nil
		})
	})
	if err != nil {
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode < 500 {
			return nil, err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrDownstreamUnavailable, c.name, err)
	}
	return resp, nil
}

// GetJSON issues a GET and decodes a 2xx JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}

// BreakerState exposes the breaker state for health reporting.
func (c *Client) BreakerState() State {
	return c.breaker.State()
}

func drain(r *http.Response) {
	io.Copy(io.Discard, io.LimitReader(r.Body, 4096))
	r.Body.Close()
}
