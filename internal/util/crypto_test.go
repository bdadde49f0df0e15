package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomCode(t *testing.T) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	t.Run("has requested length", func(t *testing.T) {
		code, err := RandomCode(alphabet, 6)
		require.NoError(t, err)
		assert.Len(t, code, 6)
	})

	t.Run("draws only from the alphabet", func(t *testing.T) {
		code, err := RandomCode(alphabet, 64)
		require.NoError(t, err)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(alphabet, c), "unexpected character %q", c)
		}
	})

	t.Run("successive codes differ", func(t *testing.T) {
		code1, err := RandomCode(alphabet, 12)
		require.NoError(t, err)
		code2, err := RandomCode(alphabet, 12)
		require.NoError(t, err)
		assert.NotEqual(t, code1, code2)
	})

	t.Run("rejects empty alphabet", func(t *testing.T) {
		_, err := RandomCode("", 6)
		assert.Error(t, err)
	})

	t.Run("rejects non-positive length", func(t *testing.T) {
		_, err := RandomCode(alphabet, 0)
		assert.Error(t, err)
	})
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual("secret", "secret"))
	assert.False(t, ConstantTimeEqual("secret", "Secret"))
	assert.False(t, ConstantTimeEqual("secret", "secret2"))
	assert.False(t, ConstantTimeEqual("", "secret"))
}
