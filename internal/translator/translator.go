// Package translator defines the text-translation interface and its provider
// factory. Providers translate one string per call and apply no retry policy
// of their own; the orchestrator owns pacing and failure handling.
package translator

import (
	"context"
	"errors"
)

var (
	// ErrTranslationFailed is returned when the provider rejects a request.
	ErrTranslationFailed = errors.New("translation request failed")
	// ErrInvalidTargetLang is returned for an unparseable target language code.
	ErrInvalidTargetLang = errors.New("invalid target language")
)

// Translator is the interface all translation providers implement. Callers
// depend on this interface, never on a specific provider.
type Translator interface {
	// Translate converts text into the target language. Empty input is passed
	// through to the provider and comes back unchanged.
	Translate(ctx context.Context, text, targetLang string) (string, error)
	// Name returns the provider identifier (e.g. "deepl", "google").
	Name() string
}
