package dispatch

import (
	"testing"

	"mcphub/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Run("canonical result passes through", func(t *testing.T) {
		in := api.TextResult("hello")
		assert.Same(t, in, Normalize(in))
	})

	t.Run("map with error field", func(t *testing.T) {
		out := Normalize(map[string]interface{}{"error": "boom"})
		assert.True(t, out.IsError)
		assert.Equal(t, "Error: boom", out.Content[0].Text)
	})

	t.Run("map without error field pretty prints", func(t *testing.T) {
		out := Normalize(map[string]interface{}{"answer": 42.0})
		assert.False(t, out.IsError)
		assert.JSONEq(t, `{"answer": 42}`, out.Content[0].Text)
	})

	t.Run("string", func(t *testing.T) {
		out := Normalize("7")
		require.Len(t, out.Content, 1)
		assert.Equal(t, "7", out.Content[0].Text)
	})

	t.Run("number drops trailing zero", func(t *testing.T) {
		assert.Equal(t, "7", Normalize(7.0).Content[0].Text)
		assert.Equal(t, "7.5", Normalize(7.5).Content[0].Text)
	})

	t.Run("bool", func(t *testing.T) {
		assert.Equal(t, "true", Normalize(true).Content[0].Text)
	})

	t.Run("nil", func(t *testing.T) {
		assert.Equal(t, "null", Normalize(nil).Content[0].Text)
	})

	t.Run("slice pretty prints", func(t *testing.T) {
		out := Normalize([]interface{}{1.0, 2.0})
		assert.JSONEq(t, `[1, 2]`, out.Content[0].Text)
	})
}

func TestBackoffForAttempt(t *testing.T) {
	assert.Equal(t, retryBaseBackoff, backoffForAttempt(1))
	assert.Equal(t, 2*retryBaseBackoff, backoffForAttempt(2))
	assert.Equal(t, retryMaxBackoff, backoffForAttempt(4))
	assert.Equal(t, retryMaxBackoff, backoffForAttempt(10))
}
