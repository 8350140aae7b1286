package store

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkOrder walks level 0 and asserts strict (score, member) ordering plus
// intact backward links.
func checkOrder(t *testing.T, s *Skiplist) {
	t.Helper()
	var prev *skipNode
	n := 0
	for x := s.head.forward[0]; x != nil; x = x.forward[0] {
		if prev != nil {
			assert.True(t, scoreLess(prev.score, prev.member, x.score, x.member),
				"order violated: (%v,%s) before (%v,%s)", prev.score, prev.member, x.score, x.member)
			assert.Same(t, prev, x.backward)
		} else {
			assert.Nil(t, x.backward)
		}
		prev = x
		n++
	}
	assert.Equal(t, s.Len(), n)
}

func TestSkiplistInsertOrder(t *testing.T) {
	s := NewSkiplist()
	s.Insert("b", 2)
	s.Insert("a", 1)
	s.Insert("c", 3)
	s.Insert("aa", 1) // tie on score, member breaks it

	got := s.RangeByRank(0, -1)
	require.Len(t, got, 4)
	assert.Equal(t, "a", got[0].Member)
	assert.Equal(t, "aa", got[1].Member)
	assert.Equal(t, "b", got[2].Member)
	assert.Equal(t, "c", got[3].Member)
	checkOrder(t, s)
}

func TestSkiplistRemoveExactMatchOnly(t *testing.T) {
	s := NewSkiplist()
	s.Insert("m", 5)

	assert.False(t, s.Remove("m", 6), "wrong score must not remove")
	assert.False(t, s.Remove("x", 5), "wrong member must not remove")
	assert.True(t, s.Remove("m", 5))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 1, s.level)
}

func TestSkiplistRangeByRankNegativeAndClamped(t *testing.T) {
	s := NewSkiplist()
	for i := 0; i < 5; i++ {
		s.Insert(fmt.Sprintf("m%d", i), float64(i))
	}

	tests := []struct {
		name        string
		start, stop int
		want        []string
	}{
		{"full range", 0, -1, []string{"m0", "m1", "m2", "m3", "m4"}},
		{"tail two", -2, -1, []string{"m3", "m4"}},
		{"clamped stop", 3, 100, []string{"m3", "m4"}},
		{"clamped start", -100, 1, []string{"m0", "m1"}},
		{"inverted", 3, 1, nil},
		{"past end", 10, 20, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.RangeByRank(tt.start, tt.stop)
			require.Len(t, got, len(tt.want))
			for i, w := range tt.want {
				assert.Equal(t, w, got[i].Member)
			}
		})
	}
}

func TestSkiplistRank(t *testing.T) {
	s := NewSkiplist()
	s.Insert("a", 1)
	s.Insert("b", 2)
	s.Insert("c", 3)

	assert.Equal(t, 0, s.Rank("a", 1))
	assert.Equal(t, 2, s.Rank("c", 3))
	assert.Equal(t, -1, s.Rank("zz", 9))
}

func TestSkiplistOrderInvariantRandomOps(t *testing.T) {
	s := NewSkiplist()
	rng := rand.New(rand.NewSource(3))
	live := make(map[string]float64)

	for i := 0; i < 10000; i++ {
		member := fmt.Sprintf("m%d", rng.Intn(400))
		if score, ok := live[member]; ok && rng.Intn(2) == 0 {
			require.True(t, s.Remove(member, score))
			delete(live, member)
		} else if !ok {
			score := float64(rng.Intn(100))
			s.Insert(member, score)
			live[member] = score
		}
		if i%1000 == 0 {
			checkOrder(t, s)
		}
	}

	checkOrder(t, s)
	assert.Equal(t, len(live), s.Len())
	for _, sm := range s.RangeByRank(0, -1) {
		score, ok := live[sm.Member]
		require.True(t, ok)
		assert.Equal(t, score, sm.Score)
	}
}

func TestTwoSkiplistsAreIndependent(t *testing.T) {
	a := NewSkiplist()
	b := NewSkiplist()
	a.Insert("x", 1)
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 0, b.Len())
}
