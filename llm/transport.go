package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
)

const (
	defaultTimeout    = 300 * time.Second
	defaultMaxRetries = 4
	defaultRetryDelay = 2 * time.Second
	maxRetryDelay     = 60 * time.Second
)

// httpClient is the shared transport for all providers. It POSTs JSON and
// retries transient failures with exponential backoff.
type httpClient struct {
	cfg    Config
	client *http.Client
}

func newHTTPClient(cfg Config) httpClient {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return httpClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// statusError is a non-2xx answer from the service.
type statusError struct {
	code       int
	body       string
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("LLM API error %d: %s", e.code, e.body)
}

// transportError is a failure to get any answer at all.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// retryableStatusCode returns true for HTTP status codes that warrant a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout
}

func shouldRetry(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return retryableStatusCode(se.code)
	}
	var te *transportError
	return errors.As(err, &te)
}

// retryDelay honours Retry-After when the server sent one and otherwise
// backs off exponentially.
func retryDelay(n uint, err error, config *retry.Config) time.Duration {
	backoff := retry.BackOffDelay(n, err, config)
	var se *statusError
	if errors.As(err, &se) && se.retryAfter > backoff {
		return se.retryAfter
	}
	return backoff
}

func (c *httpClient) post(ctx context.Context, path string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := c.cfg.BaseURL + path
	requestID := uuid.NewString()

	var out []byte
	err = retry.Do(
		func() error {
			b, err := c.postOnce(ctx, url, requestID, data)
			if err != nil {
				return err
			}
			out = b
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.cfg.MaxRetries)+1),
		retry.Delay(c.cfg.RetryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.DelayType(retryDelay),
		retry.RetryIf(shouldRetry),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("llm: retrying request",
				"url", url,
				"request_id", requestID,
				"attempt", n+1,
				"error", err,
			)
		}),
	)
	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return nil, classify(err)
}

func (c *httpClient) postOnce(ctx context.Context, url, requestID string, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("request to %s failed: %w", url, err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	se := &statusError{code: resp.StatusCode, body: string(respBody)}
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
			se.retryAfter = time.Duration(seconds) * time.Second
		}
	}
	return nil, se
}

// classify maps a final transport failure onto the package's error classes.
func classify(err error) error {
	var se *statusError
	if errors.As(err, &se) {
		if retryableStatusCode(se.code) {
			return fmt.Errorf("%w: max retries exceeded: %v", ErrUnavailable, err)
		}
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	var te *transportError
	if errors.As(err, &te) {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrUnavailable, context.DeadlineExceeded)
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrRequestFailed, err)
}
