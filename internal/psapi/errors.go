package psapi

import (
	"errors"
	"fmt"
)

// Sentinel errors for vendor API failures.
var (
	ErrAuth             = errors.New("vendor authentication failed")
	ErrPollingExhausted = errors.New("too many consecutive polling errors")
	ErrPollingTimeout   = errors.New("polling timed out")
	ErrManifestShape    = errors.New("no outputs in manifest response")
)

// RequestError is a non-retryable vendor response: a 4xx other than 429, or a
// retryable status that survived the full retry budget.
type RequestError struct {
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("vendor request failed: status %d: %s", e.Status, e.Body)
}

// JobFailedError is returned when the vendor reports an asynchronous job as
// failed. Detail carries the vendor's error payload verbatim.
type JobFailedError struct {
	Kind   string
	Detail string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("%s job failed: %s", e.Kind, e.Detail)
}
