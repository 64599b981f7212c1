package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_CopiesValues(t *testing.T) {
	values := []float64{1, 2, 3}
	now := time.Now()

	s := New(now, values)
	values[0] = 100

	assert.Equal(t, now, s.Timestamp)
	assert.Equal(t, []float64{1, 2, 3}, s.Values)
	assert.Equal(t, 3, s.Len())
}

func TestSample_Value(t *testing.T) {
	s := New(time.Now(), []float64{-1.5, 2.5})

	tests := []struct {
		name   string
		index  int
		want   float64
		wantOK bool
	}{
		{"first channel", 0, -1.5, true},
		{"second channel", 1, 2.5, true},
		{"negative index", -1, 0, false},
		{"past the end", 2, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.Value(tt.index)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
