package cache

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRU_BasicGetPut(t *testing.T) {
	c := NewLRU[string, int](3)

	c.Put("a", 1)
	c.Put("b", 2)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU[string, int](2)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3) // evicts "a"

	_, ok := c.Get("a")
	assert.False(t, ok, "a should have been evicted")

	v, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestLRU_AccessPromotesEntry(t *testing.T) {
	c := NewLRU[string, int](2)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a")
	c.Put("c", 3)

	_, ok := c.Get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.Get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRU_UpdateExisting(t *testing.T) {
	c := NewLRU[string, int](2)

	c.Put("a", 1)
	c.Put("a", 2)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
}

func TestLRU_NonPositiveSizeHoldsOne(t *testing.T) {
	c := NewLRU[int, int](0)

	c.Put(1, 1)
	c.Put(2, 2)

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(2)
	assert.True(t, ok)
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	c := NewLRU[string, int](16)

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				k := strconv.Itoa((w + i) % 32)
				c.Put(k, i)
				c.Get(k)
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 16)
}
