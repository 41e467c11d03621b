// Package carousel indexes a single sequence as if it repeated forever, so an
// endless strip never needs duplicated copies of its items.
package carousel

import "math"

type Ring[T any] struct {
	items []T
}

func New[T any](items []T) Ring[T] {
	return Ring[T]{items: items}
}

func (r Ring[T]) Len() int { return len(r.items) }

// index maps any position, negative included, onto the base sequence.
func (r Ring[T]) index(i int) int {
	n := len(r.items)
	return ((i % n) + n) % n
}

// At returns the item at logical position i.
func (r Ring[T]) At(i int) (T, bool) {
	if len(r.items) == 0 {
		var zero T
		return zero, false
	}
	return r.items[r.index(i)], true
}

// Rank is the 1-based position of logical index i in the base sequence.
func (r Ring[T]) Rank(i int) int {
	if len(r.items) == 0 {
		return 0
	}
	return r.index(i) + 1
}

type Slot[T any] struct {
	Position int `json:"position"`
	Rank     int `json:"rank"`
	Item     T   `json:"item"`
}

// Window returns n consecutive slots starting at logical position offset.
// An offset so large that the window would run past math.MaxInt is first
// folded onto the base sequence.
func (r Ring[T]) Window(offset, n int) []Slot[T] {
	if len(r.items) == 0 || n <= 0 {
		return nil
	}
	if offset > math.MaxInt-n {
		offset = r.index(offset)
	}
	out := make([]Slot[T], 0, n)
	for i := offset; i < offset+n; i++ {
		out = append(out, Slot[T]{Position: i, Rank: r.Rank(i), Item: r.items[r.index(i)]})
	}
	return out
}
