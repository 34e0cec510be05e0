package synth

import (
	"errors"
	"fmt"

	"github.com/speakeasy-api/testrecorder"
)

var (
	// ErrDecline is returned by an adaptor that cannot handle a value it was
	// offered. Dispatch moves on to the next matching adaptor.
	ErrDecline = errors.New("adaptor declined value")

	// ErrExhausted is returned when no adaptor accepts a value.
	ErrExhausted = errors.New("no adaptor accepts value")

	// ErrTooDeep is returned when a value nests deeper than Options.MaxDepth.
	ErrTooDeep = errors.New("value nesting too deep")
)

// decline builds an ErrDecline with a reason.
func decline(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDecline, fmt.Sprintf(format, args...))
}

// GenerationError reports the value a synthesis step failed on.
type GenerationError struct {
	Value testrecorder.Value
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("cannot generate code for %s: %v", testrecorder.Print(e.Value), e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// exhausted builds the error for a bucket without an accepting adaptor.
// declined carries the reasons of the adaptors that matched but declined;
// they are kept as text so the result never matches ErrDecline.
func exhausted(v testrecorder.Value, declined []error) error {
	err := fmt.Errorf("%w (%s %s)", ErrExhausted, v.Variant(), v.ValueType())
	if len(declined) > 0 {
		err = fmt.Errorf("%w: %v", err, errors.Join(declined...))
	}
	return &GenerationError{Value: v, Err: err}
}
