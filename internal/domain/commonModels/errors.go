package commonModels

import (
	"errors"
	"fmt"
)

var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrDocumentNotReady  = errors.New("document not ready")
	ErrDocumentExists    = errors.New("document already exists")
	ErrEmptyDocument     = errors.New("no text extracted from document")
	ErrEmbedding         = errors.New("embedding provider failure")
	ErrGeneration        = errors.New("generation provider failure")
	ErrMalformedOutput   = errors.New("malformed generation output")
	ErrNoContext         = errors.New("no usable context retrieved")
)

// DimensionError reports both sides of a rejected insert.
type DimensionError struct {
	Key  string
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: key %q has %d dimensions, index holds %d", ErrDimensionMismatch, e.Key, e.Got, e.Want)
}

func (e *DimensionError) Is(target error) bool {
	return target == ErrDimensionMismatch
}
