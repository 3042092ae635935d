package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vizlake/vizlake/pkg/cache"
)

func TestCache_Key(t *testing.T) {
	t.Parallel()

	a := cache.Key([]byte("hello"))
	b := cache.Key([]byte("hello"))
	c := cache.Key([]byte("hello!"))

	require.Len(t, a, 64)
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", a)
}

func TestCache_Store(t *testing.T) {
	t.Parallel()

	t.Run("get after put", func(t *testing.T) {
		t.Parallel()

		store := cache.New(time.Minute)
		defer store.Stop()

		_, ok := store.Get("k")
		require.False(t, ok)

		store.Put("k", []byte("payload"))
		got, ok := store.Get("k")
		require.True(t, ok)
		require.Equal(t, []byte("payload"), got)
	})

	t.Run("puts are idempotent", func(t *testing.T) {
		t.Parallel()

		store := cache.New(time.Minute)
		defer store.Stop()

		store.Put("k", []byte("payload"))
		store.Put("k", []byte("payload"))
		got, ok := store.Get("k")
		require.True(t, ok)
		require.Equal(t, []byte("payload"), got)
	})

	t.Run("entries expire", func(t *testing.T) {
		t.Parallel()

		store := cache.New(20 * time.Millisecond)
		defer store.Stop()

		store.Put("k", []byte("payload"))
		require.Eventually(t, func() bool {
			_, ok := store.Get("k")
			return !ok
		}, time.Second, 10*time.Millisecond)
	})
}
