package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplayCache_InsertContains(t *testing.T) {
	c := NewReplayCache(4)

	assert.False(t, c.Contains(0x12345678))
	c.Insert(0x12345678)
	assert.True(t, c.Contains(0x12345678))
	assert.Equal(t, 1, c.Len())
}

func TestReplayCache_Insert_Idempotent(t *testing.T) {
	c := NewReplayCache(4)

	c.Insert(1)
	c.Insert(1)
	c.Insert(1)
	assert.Equal(t, 1, c.Len())

	// Re-insertion must not refresh recency: membership is boolean, the
	// eviction order stays first-inserted-first-out.
	c.Insert(2)
	c.Insert(3)
	c.Insert(4)
	c.Insert(1) // no-op, 1 is still oldest
	c.Insert(5) // evicts 1
	assert.False(t, c.Contains(1))
	assert.True(t, c.Contains(5))
}

func TestReplayCache_FIFOEviction(t *testing.T) {
	const capacity = 8
	c := NewReplayCache(capacity)

	for i := uint32(0); i < capacity+1; i++ {
		c.Insert(0x1000 + i)
	}

	require.Equal(t, capacity, c.Len())
	assert.False(t, c.Contains(0x1000), "first-inserted nonce should have been evicted")
	for i := uint32(1); i < capacity+1; i++ {
		assert.True(t, c.Contains(0x1000+i), "recent nonce %d missing", i)
	}
}

func TestReplayCache_DefaultCapacity(t *testing.T) {
	c := NewReplayCache(0)
	assert.Equal(t, DefaultCacheCapacity, c.Capacity())

	c = NewReplayCache(-1)
	assert.Equal(t, DefaultCacheCapacity, c.Capacity())
}

func TestReplayCache_Reset(t *testing.T) {
	c := NewReplayCache(4)
	c.Insert(1)
	c.Insert(2)
	require.Equal(t, 2, c.Len())

	c.Reset()
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Contains(1))

	// Reusable after reset.
	c.Insert(3)
	assert.True(t, c.Contains(3))
}
