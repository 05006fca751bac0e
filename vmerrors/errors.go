package vmerrors

import (
	"fmt"
	"strings"
)

// curated errors allow code to specify a predefined error and not worry too
// much about the message behind that error and how the message will be
// formatted on output.
type curated struct {
	message string
	values  []any
}

// Errorf creates a new curated error from one of the message constants in
// this package (or any other format string) and its arguments.
func Errorf(message string, values ...any) error {
	return curated{
		message: message,
		values:  values,
	}
}

// Error returns the normalised error message: the de-duplication of
// adjacent identical message parts.
//
// Implements the Go language error interface.
func (er curated) Error() string {
	s := fmt.Errorf(er.message, er.values...).Error()

	p := strings.SplitN(s, ": ", 3)
	if len(p) > 1 && p[0] == p[1] {
		return strings.Join(p[1:], ": ")
	}

	return strings.Join(p, ": ")
}

// Head returns the leading (message-constant) part of a curated error. If
// err is not a curated error then Error() is returned instead.
func Head(err error) string {
	if er, ok := err.(curated); ok {
		return er.message
	}
	return err.Error()
}

// IsAny reports whether err is curated by this package.
func IsAny(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(curated)
	return ok
}

// Is reports whether err is a curated error with the given head.
func Is(err error, head string) bool {
	if err == nil {
		return false
	}
	er, ok := err.(curated)
	return ok && er.message == head
}

// Has reports whether head appears anywhere in the causal chain of err,
// including inside wrapped curated values.
func Has(err error, head string) bool {
	if err == nil || !IsAny(err) {
		return false
	}
	if Is(err, head) {
		return true
	}
	for _, v := range err.(curated).values {
		if e, ok := v.(curated); ok {
			if Has(e, head) {
				return true
			}
		}
	}
	return false
}
