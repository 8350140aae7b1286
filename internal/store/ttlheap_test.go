package store

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkHeap asserts the min-heap property on deadlines and that the side map
// mirrors the array exactly.
func checkHeap(t *testing.T, h *ttlHeap) {
	t.Helper()
	for i := 1; i < len(h.items); i++ {
		parent := (i - 1) / 2
		assert.LessOrEqual(t, h.items[parent].expireAt, h.items[i].expireAt,
			"heap order violated at index %d", i)
	}
	require.Equal(t, len(h.items), len(h.index))
	for i, it := range h.items {
		assert.Equal(t, i, h.index[it.key], "stale position for %s", it.key)
	}
}

func TestHeapPushPopOrder(t *testing.T) {
	h := newTTLHeap()
	h.push("c", 300)
	h.push("a", 100)
	h.push("b", 200)
	checkHeap(t, h)

	expired := h.popExpired(250, 10)
	assert.Equal(t, []string{"a", "b"}, expired)
	assert.Equal(t, 1, h.size())
	checkHeap(t, h)
}

func TestHeapPushExistingIsUpdate(t *testing.T) {
	h := newTTLHeap()
	h.push("k", 500)
	h.push("k", 100)
	assert.Equal(t, 1, h.size())
	assert.Equal(t, []string{"k"}, h.popExpired(100, 10))
}

func TestHeapRemoveMiddle(t *testing.T) {
	h := newTTLHeap()
	for i := 0; i < 20; i++ {
		h.push(fmt.Sprintf("k%d", i), int64(i*10))
	}
	h.remove("k7")
	h.remove("k0")
	h.remove("missing")
	checkHeap(t, h)
	assert.Equal(t, 18, h.size())
}

func TestHeapPopBounded(t *testing.T) {
	h := newTTLHeap()
	for i := 0; i < 10; i++ {
		h.push(fmt.Sprintf("k%d", i), 1)
	}
	got := h.popExpired(5, 3)
	assert.Len(t, got, 3)
	assert.Equal(t, 7, h.size())
	checkHeap(t, h)
}

// Invariant under a random mix of push / remove / update / popExpired.
func TestHeapInvariantRandomOps(t *testing.T) {
	h := newTTLHeap()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 20000; i++ {
		key := fmt.Sprintf("k%d", rng.Intn(300))
		switch rng.Intn(4) {
		case 0:
			h.push(key, int64(rng.Intn(10000)))
		case 1:
			h.remove(key)
		case 2:
			h.update(key, int64(rng.Intn(10000)))
		case 3:
			h.popExpired(int64(rng.Intn(10000)), 5)
		}
		if i%500 == 0 {
			checkHeap(t, h)
		}
	}
	checkHeap(t, h)
}
