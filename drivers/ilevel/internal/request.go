package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/datazip-inc/tap-ilevel/utils/logger"
)

var errInvalidRequest = errors.New("invalid request")

// APIError is a non-2xx response of the API
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ilevel api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable reports server errors and rate limiting
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// doRequest performs a single GET; network failures are returned wrapped, HTTP failures as APIError
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errInvalidRequest, err)
	}

	req.Header.Set("Accept", "application/json")
	switch {
	case c.apiKey != "":
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	case c.username != "":
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	return body, nil
}

// get retries transient failures of the current request with exponential backoff and
// jitter. The returned error is a TransientFetchError once retries are exhausted, a
// FatalFetchError for any other API failure, or the context error on cancellation.
func (c *Client) get(ctx context.Context, stream string, page int, path string, query url.Values) ([]byte, error) {
	var body []byte
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		var err error
		body, err = c.doRequest(ctx, path, query)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		var apiErr *APIError
		if errors.Is(err, errInvalidRequest) || (errors.As(err, &apiErr) && !apiErr.IsRetryable()) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		logger.Warnf("retrying stream[%s] page[%d] in %s: %s", stream, page, wait, err)
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(c.newBackOff(), ctx), notify)
	if err == nil {
		return body, nil
	}

	return nil, classify(ctx, stream, page, err)
}

func classify(ctx context.Context, stream string, page int, err error) error {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return ctx.Err()
	}

	if errors.Is(err, errInvalidRequest) {
		return &types.FatalFetchError{Stream: stream, Page: page, Err: err}
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.IsRetryable() {
			return &types.TransientFetchError{Stream: stream, Page: page, StatusCode: apiErr.StatusCode, Err: err}
		}
		return &types.FatalFetchError{Stream: stream, Page: page, StatusCode: apiErr.StatusCode, Err: err}
	}

	// network failures
	return &types.TransientFetchError{Stream: stream, Page: page, Err: err}
}
