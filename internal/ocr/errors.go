package ocr

import (
	"errors"
	"fmt"
)

// PolicyError is returned for content that must never be sent to an engine.
type PolicyError struct {
	ResourceID string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("cannot OCR encrypted resource: %s", e.ResourceID)
}

// ExtractionError wraps a failure to rasterize document pages.
type ExtractionError struct {
	ResourceID string
	Err        error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract pages of resource %s: %v", e.ResourceID, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// RecognitionError wraps an engine failure on one image.
type RecognitionError struct {
	Path string
	Err  error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("failed to recognize %s: %v", e.Path, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// StoreError is a persistence or blob access failure. It aborts the cycle
// so the outcome of unrelated resources is not recorded as a content error.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ScratchError means the extraction directory could not be prepared.
type ScratchError struct {
	Path string
	Err  error
}

func (e *ScratchError) Error() string {
	return fmt.Sprintf("failed to prepare scratch directory %s: %v", e.Path, e.Err)
}

func (e *ScratchError) Unwrap() error { return e.Err }

// IsInfrastructure reports whether err must abort the cycle instead of
// being recorded against the resource being processed.
func IsInfrastructure(err error) bool {
	var storeErr *StoreError
	var scratchErr *ScratchError
	return errors.As(err, &storeErr) || errors.As(err, &scratchErr)
}
