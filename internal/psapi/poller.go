package psapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Polling kinds, used for error attribution in logs and failures.
const (
	PollKindManifest = "Manifest"
	PollKindEdit     = "Translation"
)

const (
	pollMaxInterval            = 30 * time.Second
	pollBackoffMultiplier      = 1.5
	maxConsecutiveServerErrors = 3
)

// Poll long-polls a job handle until the first output reports succeeded or
// failed. A per-attempt timeout that fires is retried and counts only against
// the overall attempt cap; 5xx responses back off and count against a
// consecutive-error budget of three; any 4xx aborts immediately.
func (c *Client) Poll(ctx context.Context, token, handleURL, kind string, maxAttempts int) (*JobStatus, error) {
	delay := c.pollInterval
	consecutiveErrors := 0

	for attempt := 0; attempt < maxAttempts; attempt++ {
		status, body, err := c.getStatus(ctx, token, handleURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if isTimeout(err) {
				// attempt timed out; try again without backing off
				continue
			}
			return nil, fmt.Errorf("poll %s: %w", kind, err)
		}

		if status >= 500 {
			consecutiveErrors++
			if consecutiveErrors >= maxConsecutiveServerErrors {
				return nil, fmt.Errorf("%w: %s polling: status %d: %s", ErrPollingExhausted, kind, status, body)
			}
			delay = time.Duration(float64(delay) * pollBackoffMultiplier)
			if delay > pollMaxInterval {
				delay = pollMaxInterval
			}
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}
		if status >= 400 {
			return nil, &RequestError{Status: status, Body: string(body)}
		}

		consecutiveErrors = 0
		delay = c.pollInterval

		var st JobStatus
		if err := json.Unmarshal(body, &st); err != nil {
			return nil, fmt.Errorf("decode %s poll response: %w", kind, err)
		}

		if len(st.Outputs) > 0 {
			switch st.Outputs[0].Status {
			case StatusSucceeded:
				return &st, nil
			case StatusFailed:
				detail := string(st.Outputs[0].Errors)
				if detail == "" {
					detail = string(body)
				}
				return nil, &JobFailedError{Kind: kind, Detail: detail}
			}
		}

		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s polling gave up after %d attempts", ErrPollingTimeout, kind, maxAttempts)
}

func (c *Client) getStatus(ctx context.Context, token, url string) (int, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build poll request: %w", err)
	}
	c.setHeaders(req, token)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read poll response: %w", err)
	}
	return resp.StatusCode, body, nil
}
