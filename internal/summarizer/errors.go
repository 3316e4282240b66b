package summarizer

import (
	"errors"
	"fmt"
)

var ErrInputTooShort = errors.New("input too short to summarize")

// InputTooShortError is returned before any generation call is made.
type InputTooShortError struct {
	Length int
	Min    int
}

func (e *InputTooShortError) Error() string {
	return fmt.Sprintf("%s: %d characters, need at least %d", ErrInputTooShort, e.Length, e.Min)
}

func (e *InputTooShortError) Unwrap() error {
	return ErrInputTooShort
}
