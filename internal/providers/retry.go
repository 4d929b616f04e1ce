package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const (
	retryAttempts = 3
	retryBaseWait = 500 * time.Millisecond
)

// doWithRetry executes an HTTP request with retries on transient failures
// (network errors, 429, 5xx). build is called per attempt because a request
// body reader cannot be reused once consumed.
func doWithRetry(ctx context.Context, client *http.Client, build func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			wait := retryBaseWait << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		req, err := build()
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			resp.Body.Close()
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("after %d attempts: %w", retryAttempts, lastErr)
}
