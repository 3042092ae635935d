package decider

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	t.Run("json code fence", func(t *testing.T) {
		t.Parallel()
		got := extractJSON("Sure!\n```json\n{\"a\": 1}\n```\nanything else")
		require.Equal(t, `{"a": 1}`, got)
	})

	t.Run("generic code fence with object", func(t *testing.T) {
		t.Parallel()
		got := extractJSON("```\n{\"a\": 1}\n```")
		require.Equal(t, `{"a": 1}`, got)
	})

	t.Run("bare object with surrounding prose", func(t *testing.T) {
		t.Parallel()
		got := extractJSON(`The decision is {"a": {"b": 2}} as requested.`)
		require.Equal(t, `{"a": {"b": 2}}`, got)
	})

	t.Run("braces inside strings are ignored", func(t *testing.T) {
		t.Parallel()
		got := extractJSON(`{"a": "}{", "b": "\"}"}`)
		require.Equal(t, `{"a": "}{", "b": "\"}"}`, got)
	})

	t.Run("no json yields empty string", func(t *testing.T) {
		t.Parallel()
		require.Empty(t, extractJSON("no structured content here"))
	})

	t.Run("unterminated object yields empty string", func(t *testing.T) {
		t.Parallel()
		require.Empty(t, extractJSON(`{"a": 1`))
	})
}
