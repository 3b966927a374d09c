package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodes(t *testing.T) {
	t.Run("new error carries code and message", func(t *testing.T) {
		err := New(CodeInvalidOwner, "caller is not an owner")
		require.Error(t, err)
		assert.True(t, HasCode(err, CodeInvalidOwner))
		assert.False(t, HasCode(err, CodeInternal))
		assert.Equal(t, "caller is not an owner", err.Error())
	})

	t.Run("wrap keeps cause reachable", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := Wrap(cause, CodeInternal, "failed to load registry")
		assert.ErrorIs(t, err, cause)
		assert.True(t, HasCode(err, CodeInternal))
		assert.Equal(t, "failed to load registry: connection reset", err.Error())
		assert.Equal(t, "failed to load registry", MessageOf(err))
	})

	t.Run("code survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("execute: %w", New(CodeAlreadyExecuted, "proposal already executed"))
		code, ok := CodeOf(err)
		require.True(t, ok)
		assert.Equal(t, CodeAlreadyExecuted, code)
		assert.True(t, Is(err, CodeAlreadyExecuted))
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		_, ok := CodeOf(errors.New("boom"))
		assert.False(t, ok)
		assert.Equal(t, "boom", MessageOf(errors.New("boom")))
		assert.Equal(t, "", MessageOf(nil))
	})
}
