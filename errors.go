package jsarray

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the failures the engine reports.
type ErrorKind int

const (
	RangeError ErrorKind = iota + 1
	TypeError
	OutOfMemory
	StackOverflow
)

func (k ErrorKind) String() string {
	switch k {
	case RangeError:
		return "RangeError"
	case TypeError:
		return "TypeError"
	case OutOfMemory:
		return "OutOfMemoryError"
	case StackOverflow:
		return "RangeError: Maximum call stack size exceeded"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

const (
	msgInvalidArrayLength        = "Invalid array length"
	msgLengthExceeded            = "Length exceeded the maximum array length"
	msgUnableToDeleteProperty    = "Unable to delete property."
	msgReadOnlyProperty          = "Attempted to assign to readonly property."
	msgReadOnlyLength            = "Cannot redefine property: length"
	msgArrayIndexOutOfRange      = "Array index out of range"
	msgSafeMagnitude             = "Array length must be a positive integer of safe magnitude."
	msgOutOfMemory               = "Out of memory"
	msgStackOverflow             = "Maximum call stack size exceeded."
	msgFlattenTooLarge           = "flatten array exceeds 2**53 - 1"
	msgPushTooLarge              = "push cannot produce an array of length larger than (2 ** 53) - 1"
	msgUnshiftTooLarge           = "unshift cannot produce an array of length larger than (2 ** 53) - 1"
	msgSpliceTooLarge            = "Splice cannot produce an array of length larger than (2 ** 53) - 1"
	msgToSplicedTooLarge         = "Array.prototype.toSpliced: new array length exceeds 2**53 - 1"
	msgConcatTooLarge            = "Length exceeded the maximum array length: concat result exceeds 2**53 - 1"
	msgSortComparator            = "Array.prototype.sort requires the comparator argument to be a function or undefined"
	msgToSortedComparator        = "Array.prototype.toSorted requires the comparator argument to be a function or undefined"
	msgAccessorElement           = "Accessor elements are not supported"
	msgRedefineElement           = "Attempting to change configurable attribute of unconfigurable property."
)

// Error is returned for every failure raised by the engine itself. Errors
// returned by user callbacks (comparators, accessors) are propagated as is.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Kind == StackOverflow {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Message
}

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: RangeError}) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func rangeError(msg string) error {
	return newError(RangeError, msg)
}

func typeError(msg string) error {
	return newError(TypeError, msg)
}

func outOfMemory() error {
	return newError(OutOfMemory, msgOutOfMemory)
}

func stackOverflow() error {
	return newError(StackOverflow, msgStackOverflow)
}

func kindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsRangeError(err error) bool {
	return kindOf(err) == RangeError
}

func IsTypeError(err error) bool {
	return kindOf(err) == TypeError
}

func IsOutOfMemory(err error) bool {
	return kindOf(err) == OutOfMemory
}

func IsStackOverflow(err error) bool {
	return kindOf(err) == StackOverflow
}
