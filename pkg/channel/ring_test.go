package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_PushAndValues(t *testing.T) {
	r := NewRing[int](3)
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 3, r.Cap())
	assert.Nil(t, r.Values())

	_, ok := r.Last()
	assert.False(t, ok)

	r.Push(1)
	r.Push(2)
	assert.Equal(t, []int{1, 2}, r.Values())

	last, ok := r.Last()
	assert.True(t, ok)
	assert.Equal(t, 2, last)
}

func TestRing_KeepsLastN(t *testing.T) {
	for _, capacity := range []int{1, 2, 5, 16, 1000} {
		r := NewRing[int](capacity)
		m := capacity*3 + 1
		for i := range m {
			r.Push(i)
		}

		got := r.Values()
		assert.Len(t, got, capacity)
		for j, v := range got {
			assert.Equal(t, m-capacity+j, v, "capacity %d", capacity)
		}
	}
}

func TestRing_Resize(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		pushed   int
		resize   int
		want     []int
	}{
		{"shrink keeps newest", 5, 5, 3, []int{2, 3, 4}},
		{"shrink wrapped", 4, 6, 2, []int{4, 5}},
		{"grow keeps all", 3, 5, 6, []int{2, 3, 4}},
		{"grow partial", 5, 2, 8, []int{0, 1}},
		{"invalid becomes one", 3, 3, 0, []int{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRing[int](tt.capacity)
			for i := range tt.pushed {
				r.Push(i)
			}
			r.Resize(tt.resize)
			assert.Equal(t, tt.want, r.Values())

			// Pushing after resize keeps FIFO order
			r.Push(100)
			got := r.Values()
			assert.Equal(t, 100, got[len(got)-1])
			assert.LessOrEqual(t, len(got), r.Cap())
		})
	}
}

func TestRing_Clear(t *testing.T) {
	r := NewRing[float64](2)
	r.Push(1)
	r.Push(2)
	r.Push(3)

	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Nil(t, r.Values())

	r.Push(4)
	assert.Equal(t, []float64{4}, r.Values())
}

func TestRing_AppendTo(t *testing.T) {
	r := NewRing[int](3)
	for i := range 4 {
		r.Push(i)
	}

	dst := make([]int, 0, 8)
	dst = append(dst, -1)
	assert.Equal(t, []int{-1, 1, 2, 3}, r.AppendTo(dst))
}
