package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := NotFound("unknown toolUseId", nil)
	assert.Equal(t, KindNotFound, KindOf(err))

	wrapped := errors.New("wraps nothing")
	assert.Equal(t, KindUnknown, KindOf(wrapped))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Adapter("backend failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "AdapterError")
}
