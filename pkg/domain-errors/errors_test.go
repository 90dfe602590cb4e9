package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct coded error", func(t *testing.T) {
		err := New(CodeDomainUnavailable, "domain is held")
		assert.True(t, HasCode(err, CodeDomainUnavailable))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("reserve: %w", New(CodeNotFound, "domain not found"))
		assert.True(t, HasCode(err, CodeNotFound))
	})

	t.Run("outermost code wins", func(t *testing.T) {
		inner := New(CodeConflict, "inner")
		err := Wrap(inner, CodeInternal, "outer")
		assert.True(t, HasCode(err, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		err := errors.New("boom")
		assert.False(t, HasCode(err, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(err))
		assert.Empty(t, MessageOf(err))
	})
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeRegistrar, "registrar request failed")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "registrar request failed", MessageOf(err))
	assert.Contains(t, err.Error(), "connection reset")
}
