package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSmoother_Recurrence(t *testing.T) {
	tests := []struct {
		name  string
		alpha float64
		raw   []float64
		want  []float64
	}{
		{"half", 0.5, []float64{10, 0, 10, 0}, []float64{10, 5, 7.5, 3.75}},
		{"no smoothing", 1, []float64{3, -1, 8}, []float64{3, -1, 8}},
		{"default factor", 0.8, []float64{0, 10}, []float64{0, 8}},
		{"seeds with first value", 0.1, []float64{-4}, []float64{-4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSmoother(tt.alpha)
			for i, raw := range tt.raw {
				got := s.Update(raw)
				assert.InDelta(t, tt.want[i], got, 1e-12, "step %d", i)
				assert.InDelta(t, tt.want[i], s.Value(), 1e-12)
			}
		})
	}
}

func TestSmoother_Reset(t *testing.T) {
	s := NewSmoother(0.5)
	s.Update(10)
	s.Update(0)

	s.Reset()
	assert.Equal(t, 0.0, s.Value())
	assert.Equal(t, 42.0, s.Update(42))
}
