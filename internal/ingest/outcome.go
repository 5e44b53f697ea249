package ingest

import (
	"context"
	"errors"
	"fmt"
)

// Outcome is the result of processing one dump line.
type Outcome int

const (
	OutcomeSaved Outcome = iota
	// OutcomeSkipped is a recoverable line failure. The pipeline moves on.
	OutcomeSkipped
	// OutcomeDiscarded is a works line without an authors array. Nothing is written.
	OutcomeDiscarded
	// OutcomeFatal stops the pipeline.
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSaved:
		return "saved"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDiscarded:
		return "discarded"
	case OutcomeFatal:
		return "fatal"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// StoreError wraps a failed repository call.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *StoreError) Unwrap() error { return e.Err }

// classify decides whether err ends the pipeline or only the line.
func classify(err error) Outcome {
	var se *StoreError
	switch {
	case err == nil:
		return OutcomeSaved
	case errors.As(err, &se),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return OutcomeFatal
	}
	return OutcomeSkipped
}
