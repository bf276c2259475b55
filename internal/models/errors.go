package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveIndex is returned when a question arrives before any source
	// has been processed.
	ErrNoActiveIndex = errors.New("no active index: process a source first")

	// ErrTranscriptionExhausted means neither a pre-existing transcript nor
	// audio transcription produced any text for a video.
	ErrTranscriptionExhausted = errors.New("transcript unavailable and audio transcription failed")
)

// ExtractionError wraps failures turning a raw source into segments.
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %q: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// IndexingError means the extracted content could not be indexed.
type IndexingError struct {
	Reason string
}

func (e *IndexingError) Error() string { return "indexing: " + e.Reason }

// GenerationError wraps a model call that failed or was cancelled while
// producing an answer.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("generating answer: %v", e.Err) }

func (e *GenerationError) Unwrap() error { return e.Err }
