package carousel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_At(t *testing.T) {
	r := New([]string{"a", "b", "c"})

	cases := map[int]string{0: "a", 2: "c", 3: "a", 7: "b", -1: "c", -3: "a", -4: "c"}
	for i, want := range cases {
		got, ok := r.At(i)
		assert.True(t, ok)
		assert.Equal(t, want, got, "position %d", i)
	}
}

func TestRing_Empty(t *testing.T) {
	r := New[int](nil)
	_, ok := r.At(3)
	assert.False(t, ok)
	assert.Zero(t, r.Rank(1))
	assert.Nil(t, r.Window(0, 5))
}

func TestRing_Window(t *testing.T) {
	r := New([]int{10, 20, 30})
	w := r.Window(-1, 5)
	if assert.Len(t, w, 5) {
		assert.Equal(t, []int{30, 10, 20, 30, 10}, []int{w[0].Item, w[1].Item, w[2].Item, w[3].Item, w[4].Item})
		assert.Equal(t, 3, w[0].Rank)
		assert.Equal(t, 1, w[1].Rank)
		assert.Equal(t, -1, w[0].Position)
	}
	assert.Nil(t, r.Window(0, 0))
}

func TestRing_WindowAtIntLimits(t *testing.T) {
	r := New([]int{10, 20, 30})

	w := r.Window(math.MaxInt, 3)
	if assert.Len(t, w, 3) {
		// math.MaxInt % 3 == 1
		assert.Equal(t, []int{20, 30, 10}, []int{w[0].Item, w[1].Item, w[2].Item})
		assert.Equal(t, []int{2, 3, 1}, []int{w[0].Rank, w[1].Rank, w[2].Rank})
		assert.Equal(t, 1, w[0].Position)
	}

	w = r.Window(math.MinInt, 2)
	if assert.Len(t, w, 2) {
		assert.Equal(t, math.MinInt, w[0].Position)
		assert.Equal(t, r.Rank(math.MinInt)+1, w[1].Rank)
	}
}
