package meter

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRate_SteadyStream(t *testing.T) {
	r := NewRate(time.Second)

	// 50 samples per second for two seconds
	for i := range 100 {
		r.Observe(t0.Add(time.Duration(i) * 20 * time.Millisecond))
	}

	now := t0.Add(99 * 20 * time.Millisecond)
	assert.InDelta(t, 50, r.Rate(now), 1)
	assert.Equal(t, uint64(100), r.Total())
}

func TestRate_DecaysToZero(t *testing.T) {
	r := NewRate(time.Second)
	for i := range 10 {
		r.Observe(t0.Add(time.Duration(i) * 10 * time.Millisecond))
	}

	assert.Equal(t, 10.0, r.Rate(t0.Add(100*time.Millisecond)))
	assert.Equal(t, 5.0, r.Rate(t0.Add(time.Second+45*time.Millisecond)))
	assert.Equal(t, 0.0, r.Rate(t0.Add(2*time.Second)))

	// Total is not windowed
	assert.Equal(t, uint64(10), r.Total())
}

func TestRate_ObserveN(t *testing.T) {
	r := NewRate(2 * time.Second)

	r.ObserveN(t0, 6)
	r.ObserveN(t0, 4)
	r.ObserveN(t0.Add(time.Second), 10)
	r.ObserveN(t0.Add(time.Second), 0)

	assert.Equal(t, 10.0, r.Rate(t0.Add(time.Second)))
	assert.Equal(t, 5.0, r.Rate(t0.Add(2500*time.Millisecond)))
	assert.Equal(t, uint64(20), r.Total())
	assert.Equal(t, 10.0, r.Peak())
}

func TestRate_SmoothedSteadyStream(t *testing.T) {
	r := NewRate(time.Second)

	// 50 samples per second for five seconds
	for i := range 250 {
		r.Observe(t0.Add(time.Duration(i) * 20 * time.Millisecond))
	}

	now := t0.Add(249 * 20 * time.Millisecond)
	assert.InDelta(t, 50, r.Smoothed(now), 1)
}

func TestRate_SmoothedLagsAndDecays(t *testing.T) {
	r := NewRate(time.Second)

	r.ObserveN(t0, 10)
	assert.Equal(t, 10.0, r.Smoothed(t0))

	// Raw rate jumps to 50, the filtered value follows with a lag
	r.ObserveN(t0.Add(500*time.Millisecond), 40)
	at := t0.Add(900 * time.Millisecond)
	assert.Equal(t, 50.0, r.Rate(at))
	smoothed := r.Smoothed(at)
	assert.InDelta(t, 10+40*(1-math.Exp(-0.4)), smoothed, 1e-9)

	// Reading more often does not change the result
	other := NewRate(time.Second)
	other.ObserveN(t0, 10)
	for i := range 10 {
		other.Smoothed(t0.Add(time.Duration(i) * 50 * time.Millisecond))
	}
	other.ObserveN(t0.Add(500*time.Millisecond), 40)
	for i := range 8 {
		other.Smoothed(t0.Add(500*time.Millisecond + time.Duration(i)*50*time.Millisecond))
	}
	assert.InDelta(t, smoothed, other.Smoothed(at), 1e-9)

	assert.Equal(t, 0.0, r.Smoothed(t0.Add(2*time.Second)))
}

func TestRate_Reset(t *testing.T) {
	r := NewRate(0)
	assert.Equal(t, DefaultWindow, r.Window())

	r.ObserveN(t0, 3)
	r.Reset()

	assert.Equal(t, 0.0, r.Rate(t0))
	assert.Equal(t, uint64(0), r.Total())
	assert.Equal(t, 0.0, r.Peak())
	assert.Equal(t, 0.0, r.Smoothed(t0))
}

func TestRate_ConcurrentAccess(t *testing.T) {
	r := NewRate(time.Second)
	now := time.Now()

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 250 {
				r.Observe(now.Add(time.Duration(w*250+i) * time.Microsecond))
				_ = r.Rate(now)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(1000), r.Total())
}
