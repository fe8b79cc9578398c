package ensemble

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLabelOrderMismatch is returned when a run reports labels that differ
	// from the first successful run. Always fatal.
	ErrLabelOrderMismatch = errors.New("label order mismatch")

	// ErrInsufficientRuns is returned when no run succeeded
	ErrInsufficientRuns = errors.New("insufficient runs")

	// ErrInvalidInput is returned when the request violates a precondition
	ErrInvalidInput = errors.New("invalid ensemble input")

	// ErrMalformedOutput is returned when a run's output is structurally broken
	ErrMalformedOutput = errors.New("malformed classifier output")
)

// LabelOrderError describes which run disagreed with the reference labels
type LabelOrderError struct {
	Run  int
	Want []string
	Got  []string
}

func (e *LabelOrderError) Error() string {
	return fmt.Sprintf("%v: run %d returned labels [%s], expected [%s]",
		ErrLabelOrderMismatch, e.Run, strings.Join(e.Got, ","), strings.Join(e.Want, ","))
}

func (e *LabelOrderError) Is(target error) bool {
	return target == ErrLabelOrderMismatch
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedOutput, fmt.Sprintf(format, args...))
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
