package storage

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// SanitizeKey normalizes a file name for use as an object key: runs of
// whitespace become a single hyphen and the result is lower-cased.
// Applying it twice is a no-op.
func SanitizeKey(name string) string {
	return strings.ToLower(whitespaceRe.ReplaceAllString(name, "-"))
}

// OutputKey derives the translated-output key for a source file name:
// <sanitized-base>-translated.psd.
func OutputKey(name string) string {
	key := SanitizeKey(name)
	key = strings.TrimSuffix(key, ".psd")
	return key + "-translated.psd"
}

// UniqueKey prefixes a sanitized file name with a millisecond timestamp to
// keep concurrent uploads of the same name from colliding.
func UniqueKey(name string, now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), SanitizeKey(name))
}
