package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat signals a document type the extractor cannot handle.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrExtraction signals that the extraction backend failed.
	ErrExtraction = errors.New("text extraction failed")
	// ErrEmptyDocument signals that no strategy produced usable text.
	ErrEmptyDocument = errors.New("document contains no extractable text")
	// ErrDimensionMismatch signals a vector dimension mismatch against the index.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrUnknownMetric signals an unrecognized distance metric identifier.
	ErrUnknownMetric = errors.New("unknown distance metric")
	// ErrEmptyInput signals that a provider was called with nothing to process.
	ErrEmptyInput = errors.New("empty input")
	// ErrRateLimited signals a provider rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrGenerationProvider signals a language model provider failure.
	ErrGenerationProvider = errors.New("generation provider error")
	// ErrTenantNotFound signals a missing tenant registry entry.
	ErrTenantNotFound = errors.New("tenant not found")
)

// DimensionMismatchError wraps ErrDimensionMismatch with the offending dimensions.
type DimensionMismatchError struct {
	Got  int
	Want int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: got %d, want %d", ErrDimensionMismatch.Error(), e.Got, e.Want)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(got, want int) error {
	return &DimensionMismatchError{Got: got, Want: want}
}
