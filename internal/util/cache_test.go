package util_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/copperline/docflow/internal/util"
)

func TestLRUCacheGet(t *testing.T) {
	t.Run("constructs on miss, reuses on hit", func(t *testing.T) {
		cache := util.NewLRUCache[string](4)
		calls := 0
		create := func() (string, error) {
			calls++
			return "value", nil
		}

		v, err := cache.Get("key", create)
		assert.NoError(t, err)
		assert.Equal(t, "value", v)

		v, err = cache.Get("key", create)
		assert.NoError(t, err)
		assert.Equal(t, "value", v)
		assert.Equal(t, 1, calls)
	})

	t.Run("constructor errors are not cached", func(t *testing.T) {
		cache := util.NewLRUCache[string](4)
		boom := errors.New("boom")

		_, err := cache.Get("key", func() (string, error) {
			return "", boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, cache.Len())

		v, err := cache.Get("key", func() (string, error) {
			return "recovered", nil
		})
		assert.NoError(t, err)
		assert.Equal(t, "recovered", v)
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		cache := util.NewLRUCache[int](2)
		get := func(key string, val int) {
			_, err := cache.Get(key, func() (int, error) {
				return val, nil
			})
			assert.NoError(t, err)
		}

		get("a", 1)
		get("b", 2)
		get("a", 1) // refresh a; b becomes the eviction candidate
		get("c", 3)
		assert.Equal(t, 2, cache.Len())

		rebuilt := 0
		_, err := cache.Get("b", func() (int, error) {
			rebuilt++
			return 2, nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, rebuilt)
	})

	t.Run("len tracks distinct keys", func(t *testing.T) {
		cache := util.NewLRUCache[int](16)
		for i := 0; i < 5; i++ {
			key := fmt.Sprintf("key-%d", i)
			_, err := cache.Get(key, func() (int, error) {
				return i, nil
			})
			assert.NoError(t, err)
		}
		assert.Equal(t, 5, cache.Len())
	})
}
