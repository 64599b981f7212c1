// Package meter measures the accepted sample rate of a stream.
package meter

import (
	"math"
	"sync"
	"time"
)

// DefaultWindow is the sliding window of a Rate.
const DefaultWindow = time.Second

type mark struct {
	at    time.Time
	count int
}

// Rate counts observations over a sliding time window.
// Removal is based on timestamp, not number of observations, so the rate
// decays to zero once observations stop. Smoothed follows the windowed rate
// through an exponential filter whose time constant is the window.
type Rate struct {
	mu     sync.RWMutex
	window time.Duration
	marks  []mark // FIFO, oldest first
	inWin  int
	total  uint64
	peak   float64

	smoothed   float64
	smoothedAt time.Time
}

// NewRate creates a rate estimator over window.
func NewRate(window time.Duration) *Rate {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Rate{
		window: window,
		marks:  make([]mark, 0, 64),
	}
}

// Observe records one observation at t.
func (r *Rate) Observe(t time.Time) {
	r.ObserveN(t, 1)
}

// ObserveN records n observations at t. Observations sharing the arrival
// time of the previous call are merged into one mark.
func (r *Rate) ObserveN(t time.Time, n int) {
	if n <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.evict(t)
	r.smooth(t)
	if last := len(r.marks) - 1; last >= 0 && r.marks[last].at.Equal(t) {
		r.marks[last].count += n
	} else {
		r.marks = append(r.marks, mark{at: t, count: n})
	}
	r.inWin += n
	r.total += uint64(n)
	if r.smoothedAt.IsZero() {
		r.smoothed = r.rate()
		r.smoothedAt = t
	}

	if rate := r.rate(); rate > r.peak {
		r.peak = rate
	}
}

// Rate returns observations per second within the window ending at now.
func (r *Rate) Rate(now time.Time) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evict(now)
	return r.rate()
}

// Smoothed returns the filtered rate at now. It is zero once the window
// holds no observations.
func (r *Rate) Smoothed(now time.Time) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evict(now)
	r.smooth(now)
	return r.smoothed
}

// Peak returns the highest rate seen at observation time since Reset.
func (r *Rate) Peak() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.peak
}

// Total returns the number of observations since creation or Reset.
func (r *Rate) Total() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total
}

// Window returns the sliding window duration.
func (r *Rate) Window() time.Duration {
	return r.window
}

// Reset drops all observations.
func (r *Rate) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.marks = r.marks[:0]
	r.inWin = 0
	r.total = 0
	r.peak = 0
	r.smoothed = 0
	r.smoothedAt = time.Time{}
}

func (r *Rate) rate() float64 {
	return float64(r.inWin) / r.window.Seconds()
}

// smooth advances the filter to now, holding the windowed rate constant
// since the last update, so the result does not depend on how often it runs.
func (r *Rate) smooth(now time.Time) {
	if r.inWin == 0 {
		r.smoothed = 0
		r.smoothedAt = time.Time{}
		return
	}
	if dt := now.Sub(r.smoothedAt); dt > 0 {
		k := 1 - math.Exp(-dt.Seconds()/r.window.Seconds())
		r.smoothed += k * (r.rate() - r.smoothed)
		r.smoothedAt = now
	}
}

// evict removes marks at or before now-window.
func (r *Rate) evict(now time.Time) {
	cutoff := now.Add(-r.window)
	cutoffIndex := len(r.marks)
	for i, m := range r.marks {
		if m.at.After(cutoff) {
			cutoffIndex = i
			break
		}
	}
	if cutoffIndex == 0 {
		return
	}
	for _, m := range r.marks[:cutoffIndex] {
		r.inWin -= m.count
	}
	r.marks = append(r.marks[:0], r.marks[cutoffIndex:]...)
}
