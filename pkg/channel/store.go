// Package channel holds the per-channel history and live state of a device stream.
package channel

import (
	"fmt"
	"image/color"
	"time"

	"github.com/itohio/golivegraph/pkg/sample"
)

const (
	// DefaultCapacity is the number of points kept per channel.
	DefaultCapacity = 1000
	// DefaultAlpha is the default smoothing factor.
	DefaultAlpha = 0.8
)

// Point is one entry of a channel history.
type Point struct {
	Time     time.Time
	Raw      float64
	Smoothed float64
}

// Channel is the live state of one channel.
type Channel struct {
	Index    int
	Name     string
	Color    color.RGBA
	Visible  bool
	Value    float64 // Latest raw value
	Smoothed float64 // Latest smoothed value
}

// Options configures a Store.
type Options struct {
	Count    int
	Capacity int
	Alpha    float64
	Names    []string
	Colors   []color.RGBA
}

type entry struct {
	Channel
	history  *Ring[Point]
	smoother *Smoother
}

// Store owns a fixed set of channels with one ring buffer each.
// Channels are never added or removed after creation.
// Store is not safe for concurrent use; the owner serializes access.
type Store struct {
	capacity int
	alpha    float64
	entries  []*entry
	ingested uint64
}

// NewStore creates a store with opts.Count channels.
func NewStore(opts Options) *Store {
	if opts.Count < 1 {
		opts.Count = 1
	}
	if opts.Capacity < 1 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Alpha <= 0 || opts.Alpha > 1 {
		opts.Alpha = DefaultAlpha
	}

	s := &Store{
		capacity: opts.Capacity,
		alpha:    opts.Alpha,
		entries:  make([]*entry, opts.Count),
	}
	for i := range s.entries {
		name := fmt.Sprintf("Signal-%d", i+1)
		if i < len(opts.Names) && opts.Names[i] != "" {
			name = opts.Names[i]
		}
		c := color.RGBA{R: 200, G: 200, B: 200, A: 255}
		if i < len(opts.Colors) {
			c = opts.Colors[i]
		}
		s.entries[i] = &entry{
			Channel: Channel{
				Index:   i,
				Name:    name,
				Color:   c,
				Visible: true,
			},
			history:  NewRing[Point](opts.Capacity),
			smoother: NewSmoother(opts.Alpha),
		}
	}
	return s
}

// Ingest applies one sample: every channel present in the sample gets its
// raw value, its smoothed value and a new history point. Values beyond the
// channel count are ignored.
func (s *Store) Ingest(smp sample.Sample) {
	for i, e := range s.entries {
		raw, ok := smp.Value(i)
		if !ok {
			continue
		}
		smoothed := e.smoother.Update(raw)
		e.Value = raw
		e.Smoothed = smoothed
		e.history.Push(Point{Time: smp.Timestamp, Raw: raw, Smoothed: smoothed})
	}
	s.ingested++
}

// Count returns the number of channels.
func (s *Store) Count() int {
	return len(s.entries)
}

// Capacity returns the per-channel history capacity.
func (s *Store) Capacity() int {
	return s.capacity
}

// Alpha returns the smoothing factor.
func (s *Store) Alpha() float64 {
	return s.alpha
}

// Ingested returns the number of samples ingested since creation or Clear.
func (s *Store) Ingested() uint64 {
	return s.ingested
}

// Channel returns a copy of channel i.
func (s *Store) Channel(i int) (Channel, bool) {
	if i < 0 || i >= len(s.entries) {
		return Channel{}, false
	}
	return s.entries[i].Channel, true
}

// Channels returns a copy of all channels.
func (s *Store) Channels() []Channel {
	out := make([]Channel, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Channel
	}
	return out
}

// Visible returns the indices of the visible channels.
func (s *Store) Visible() []int {
	var out []int
	for i, e := range s.entries {
		if e.Visible {
			out = append(out, i)
		}
	}
	return out
}

// History returns a copy of channel i's points, oldest first.
func (s *Store) History(i int) []Point {
	if i < 0 || i >= len(s.entries) {
		return nil
	}
	return s.entries[i].history.Values()
}

// Len returns the number of points held for channel i.
func (s *Store) Len(i int) int {
	if i < 0 || i >= len(s.entries) {
		return 0
	}
	return s.entries[i].history.Len()
}

// SetVisible shows or hides channel i.
func (s *Store) SetVisible(i int, visible bool) error {
	if i < 0 || i >= len(s.entries) {
		return fmt.Errorf("channel %d out of range [0, %d)", i, len(s.entries))
	}
	s.entries[i].Visible = visible
	return nil
}

// SetName renames channel i.
func (s *Store) SetName(i int, name string) error {
	if i < 0 || i >= len(s.entries) {
		return fmt.Errorf("channel %d out of range [0, %d)", i, len(s.entries))
	}
	s.entries[i].Name = name
	return nil
}

// SetCapacity re-creates the ring buffers with capacity n, dropping the
// oldest points when shrinking.
func (s *Store) SetCapacity(n int) error {
	if n < 1 {
		return fmt.Errorf("capacity must be positive, got %d", n)
	}
	s.capacity = n
	for _, e := range s.entries {
		e.history.Resize(n)
	}
	return nil
}

// SetAlpha changes the smoothing factor for subsequent samples.
func (s *Store) SetAlpha(alpha float64) error {
	if alpha <= 0 || alpha > 1 {
		return fmt.Errorf("smoothing factor %v out of range (0, 1]", alpha)
	}
	s.alpha = alpha
	for _, e := range s.entries {
		e.smoother.Alpha = alpha
	}
	return nil
}

// Clear empties all histories and resets values to zero.
// Names, colors and visibility are kept.
func (s *Store) Clear() {
	for _, e := range s.entries {
		e.history.Clear()
		e.smoother.Reset()
		e.Value = 0
		e.Smoothed = 0
	}
	s.ingested = 0
}

// ParseColor parses a #rrggbb or #rgb color.
func ParseColor(hex string) (color.RGBA, error) {
	c := color.RGBA{A: 255}
	var err error
	switch len(hex) {
	case 7:
		_, err = fmt.Sscanf(hex, "#%02x%02x%02x", &c.R, &c.G, &c.B)
	case 4:
		_, err = fmt.Sscanf(hex, "#%1x%1x%1x", &c.R, &c.G, &c.B)
		c.R *= 17
		c.G *= 17
		c.B *= 17
	default:
		err = fmt.Errorf("invalid length")
	}
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	return c, nil
}
