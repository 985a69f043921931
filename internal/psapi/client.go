// Package psapi wraps the Photoshop document service: manifest extraction and
// text edits, both of which may answer synchronously or hand back a polling
// URL.
package psapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/layerloom/psdtranslate/internal/config"
	"github.com/layerloom/psdtranslate/internal/retry"
)

// Attempt caps for the two polling kinds.
const (
	ManifestPollAttempts = 20
	EditPollAttempts     = 15
)

// Client calls the document service. All methods require a bearer token from
// a TokenProvider; the client id rides along as the x-api-key header.
type Client struct {
	baseURL        string
	apiKey         string
	http           *http.Client
	requestTimeout time.Duration
	pollTimeout    time.Duration
	retryPolicy    retry.Policy
	pollInterval   time.Duration

	// swapped out in tests to count delays without waiting
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg config.VendorConfig) *Client {
	return &Client{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.ClientID,
		http:           &http.Client{},
		requestTimeout: cfg.RequestTimeout,
		pollTimeout:    cfg.PollTimeout,
		retryPolicy: retry.Policy{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			Multiplier:  2,
			MaxDelay:    10 * time.Second,
		},
		pollInterval: 5 * time.Second,
		sleep:        retry.Sleep,
	}
}

// RequestManifest submits a manifest-extraction job for an externally hosted
// source file. Returns either the final manifest body or a polling handle.
func (c *Client) RequestManifest(ctx context.Context, token, sourceURL string) (*JobStatus, string, error) {
	body := manifestRequest{
		Inputs: []jobInput{{Href: sourceURL, Storage: "external", Type: ContentTypePhotoshop}},
	}
	res, err := c.postJSON(ctx, token, c.baseURL+"/documentManifest", body)
	if err != nil {
		return nil, "", err
	}
	if handle := res.PollHandle(); handle != "" {
		return nil, handle, nil
	}
	return res, "", nil
}

// SubmitTextEdits submits a text-replacement job that writes its result to the
// pre-signed destination URL. The edit endpoint always answers with a handle.
func (c *Client) SubmitTextEdits(ctx context.Context, token, sourceURL string, edits []TextEdit, destURL string) (string, error) {
	body := editRequest{
		Inputs:  []jobInput{{Href: sourceURL, Storage: "external"}},
		Options: editOptions{Layers: edits},
		Outputs: []jobInput{{Href: destURL, Storage: "external", Type: editOutputContentType}},
	}
	res, err := c.postJSON(ctx, token, c.baseURL+"/text", body)
	if err != nil {
		return "", err
	}
	handle := res.PollHandle()
	if handle == "" {
		return "", fmt.Errorf("edit response carries no polling handle")
	}
	return handle, nil
}

// postJSON is the shared request primitive: per-attempt timeout, retry on 429
// and 5xx honoring Retry-After, retry on transport timeouts, bounded by the
// retry policy.
func (c *Client) postJSON(ctx context.Context, token, url string, body any) (*JobStatus, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal vendor request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.retryPolicy.MaxAttempts; attempt++ {
		status, respBody, retryAfter, err := c.doPost(ctx, token, url, payload)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if isTimeout(err) || isNetError(err) {
				if attempt < c.retryPolicy.MaxAttempts-1 {
					if err := c.sleep(ctx, c.retryPolicy.Delay(attempt)); err != nil {
						return nil, err
					}
					continue
				}
			}
			return nil, fmt.Errorf("vendor request: %w", err)
		}

		if status >= 200 && status < 300 {
			var res JobStatus
			if len(respBody) > 0 {
				if err := json.Unmarshal(respBody, &res); err != nil {
					return nil, fmt.Errorf("decode vendor response: %w", err)
				}
			}
			return &res, nil
		}

		reqErr := &RequestError{Status: status, Body: string(respBody)}
		if status == http.StatusTooManyRequests || status >= 500 {
			lastErr = reqErr
			if attempt < c.retryPolicy.MaxAttempts-1 {
				delay := retryAfter
				if delay <= 0 {
					delay = c.retryPolicy.Delay(attempt)
				}
				if err := c.sleep(ctx, delay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}
		return nil, reqErr
	}
	return nil, lastErr
}

func (c *Client) doPost(ctx context.Context, token, url string, payload []byte) (int, []byte, time.Duration, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, 0, fmt.Errorf("build vendor request: %w", err)
	}
	c.setHeaders(req, token)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, 0, fmt.Errorf("read vendor response: %w", err)
	}

	return resp.StatusCode, body, parseRetryAfter(resp.Header.Get("Retry-After")), nil
}

func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isNetError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
