// Package scale computes the vertical range of a plot.
package scale

import (
	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultPadding is the fraction of the span added above and below the data.
	DefaultPadding = 0.05
	// DefaultMinSpan is the span used when all values are equal.
	DefaultMinSpan = 2.0
)

// Range is a closed vertical interval.
type Range struct {
	Min float64
	Max float64
}

// Span returns Max - Min.
func (r Range) Span() float64 {
	return r.Max - r.Min
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Union returns the smallest range holding both r and o.
func (r Range) Union(o Range) Range {
	return Range{Min: min(r.Min, o.Min), Max: max(r.Max, o.Max)}
}

// Autoscaler derives a range from the visible series once per render tick.
type Autoscaler struct {
	Auto       bool
	Fixed      Range   // Returned when Auto is off or there is no data
	Padding    float64 // Fraction of the data span added on both sides
	MinSpan    float64 // Span around a constant value
	ExpandOnly bool    // Never shrink the autoscaled range until Reset

	last    Range
	hasLast bool
}

// New creates an autoscaler with the default padding and min span.
func New(auto bool, fixed Range) *Autoscaler {
	return &Autoscaler{
		Auto:    auto,
		Fixed:   fixed,
		Padding: DefaultPadding,
		MinSpan: DefaultMinSpan,
	}
}

// ComputeRange returns the range for the given series. With Auto off it
// returns Fixed unchanged. Empty input also yields Fixed.
func (a *Autoscaler) ComputeRange(series ...[]float64) Range {
	if !a.Auto {
		return a.Fixed
	}

	var (
		lo, hi float64
		found  bool
	)
	for _, s := range series {
		if len(s) == 0 {
			continue
		}
		smin, smax := floats.Min(s), floats.Max(s)
		if !found {
			lo, hi, found = smin, smax, true
			continue
		}
		lo = min(lo, smin)
		hi = max(hi, smax)
	}
	if !found {
		if a.ExpandOnly && a.hasLast {
			return a.last
		}
		return a.Fixed
	}

	var r Range
	if span := hi - lo; span > 0 {
		pad := span * a.Padding
		r = Range{Min: lo - pad, Max: hi + pad}
	} else {
		half := a.MinSpan / 2
		if half <= 0 {
			half = DefaultMinSpan / 2
		}
		r = Range{Min: lo - half, Max: hi + half}
	}

	if a.ExpandOnly {
		if a.hasLast {
			r = r.Union(a.last)
		}
		a.last = r
		a.hasLast = true
	}
	return r
}

// Reset forgets the range held in expand-only mode.
func (a *Autoscaler) Reset() {
	a.last = Range{}
	a.hasLast = false
}
