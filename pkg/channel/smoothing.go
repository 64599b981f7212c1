package channel

// Smoother is an exponential moving average.
// The first value seeds the average; afterwards s' = α·raw + (1−α)·s.
type Smoother struct {
	Alpha float64

	value  float64
	seeded bool
}

// NewSmoother creates a smoother with factor alpha in (0, 1].
func NewSmoother(alpha float64) *Smoother {
	return &Smoother{Alpha: alpha}
}

// Update feeds a raw value and returns the new smoothed value.
func (s *Smoother) Update(raw float64) float64 {
	if !s.seeded {
		s.value = raw
		s.seeded = true
		return raw
	}
	s.value = s.Alpha*raw + (1-s.Alpha)*s.value
	return s.value
}

// Value returns the current smoothed value.
func (s *Smoother) Value() float64 {
	return s.value
}

// Reset clears the smoother state; the next value seeds it again.
func (s *Smoother) Reset() {
	s.value = 0
	s.seeded = false
}
