package attest

import (
	"errors"
	"fmt"
)

var (
	// ErrInputShape wrong length or malformed input. The caller must not proceed
	ErrInputShape = errors.New("input shape")

	// ErrConsistency an equality check inside a step failed. The whole chain is invalid
	ErrConsistency = errors.New("consistency violation")

	// ErrInvalidSeal the seal does not bind the recorded input and output
	ErrInvalidSeal = errors.New("invalid seal")
)

// Equal Fails with ErrConsistency when have != want. Only public values may be passed here,
// they are included in the error
func Equal[T comparable](what string, have, want T) error {
	if have != want {
		return fmt.Errorf("%w: %s mismatch: have %v, want %v", ErrConsistency, what, have, want)
	}
	return nil
}

// EqualHidden Like Equal, but the values are not included in the error
func EqualHidden[T comparable](what string, have, want T) error {
	if have != want {
		return fmt.Errorf("%w: %s mismatch", ErrConsistency, what)
	}
	return nil
}

// Check Fails with ErrConsistency when cond is false
func Check(cond bool, format string, args ...any) error {
	if !cond {
		return fmt.Errorf("%w: %s", ErrConsistency, fmt.Sprintf(format, args...))
	}
	return nil
}

func Shape(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInputShape, fmt.Sprintf(format, args...))
}
