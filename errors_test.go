package jsarray

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorStrings(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{rangeError(msgInvalidArrayLength), "RangeError: Invalid array length"},
		{typeError(msgReadOnlyLength), "TypeError: Cannot redefine property: length"},
		{outOfMemory(), "OutOfMemoryError: Out of memory"},
		{stackOverflow(), "RangeError: Maximum call stack size exceeded"},
		// a message is never treated as a format
		{rangeError("100% full"), "RangeError: 100% full"},
	}
	for _, tc := range tests {
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("Expected: %q, actual: %q", tc.want, got)
		}
	}
	if s := ErrorKind(9).String(); s != "ErrorKind(9)" {
		t.Errorf("unexpected kind string %q", s)
	}
}

func TestErrorIs(t *testing.T) {
	err := pkgerrors.Wrap(rangeError(msgPushTooLarge), "step 3")
	assert.True(t, errors.Is(err, &Error{Kind: RangeError}))
	assert.True(t, errors.Is(err, &Error{Kind: RangeError, Message: msgPushTooLarge}))
	assert.False(t, errors.Is(err, &Error{Kind: RangeError, Message: msgInvalidArrayLength}))
	assert.False(t, errors.Is(err, &Error{Kind: TypeError}))
	assert.False(t, errors.Is(err, errors.New("other")))

	assert.True(t, IsRangeError(err))
	assert.False(t, IsTypeError(err))
	assert.True(t, IsOutOfMemory(outOfMemory()))
	assert.True(t, IsStackOverflow(stackOverflow()))
	assert.False(t, IsRangeError(stackOverflow()))
	assert.Equal(t, ErrorKind(0), kindOf(errors.New("plain")))
}
