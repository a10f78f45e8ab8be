// Package copywriting turns marketing briefs into prompts and asks a
// generation backend for ad and email copy.
package copywriting

import "errors"

// Sentinel errors for copywriting operations.
var (
	// ErrInvalidBrief indicates that a brief failed validation.
	// It is always wrapped with the offending field.
	ErrInvalidBrief = errors.New("invalid brief")

	// ErrEmptyCompletion indicates the backend answered with no usable text.
	ErrEmptyCompletion = errors.New("generator returned empty completion")

	// ErrGeneratorUnavailable indicates the backend is refusing calls,
	// typically because its circuit breaker is open.
	ErrGeneratorUnavailable = errors.New("generator unavailable")
)
