package sample

import "time"

// Sample is one decoded frame: a value per channel and the time the frame
// was completed. A Sample is never modified after creation.
type Sample struct {
	Timestamp time.Time
	Values    []float64
}

// New creates a Sample holding a copy of values.
func New(timestamp time.Time, values []float64) Sample {
	v := make([]float64, len(values))
	copy(v, values)
	return Sample{Timestamp: timestamp, Values: v}
}

// Value returns the value of channel i.
func (s Sample) Value(i int) (float64, bool) {
	if i < 0 || i >= len(s.Values) {
		return 0, false
	}
	return s.Values[i], true
}

// Len returns the number of channel values.
func (s Sample) Len() int {
	return len(s.Values)
}
