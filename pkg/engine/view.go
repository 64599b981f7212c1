package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/itohio/golivegraph/pkg/channel"
	"github.com/itohio/golivegraph/pkg/sample"
	"github.com/itohio/golivegraph/pkg/scale"
)

// Surface draws render frames. Draw is called from the render goroutine.
type Surface interface {
	Draw(Frame)
}

// SurfaceFunc adapts a function to the Surface interface.
type SurfaceFunc func(Frame)

// Draw calls f.
func (f SurfaceFunc) Draw(fr Frame) {
	f(fr)
}

// Series is the decimated history of one visible channel.
type Series struct {
	Channel channel.Channel
	Points  []channel.Point
}

// Panel is one plot area with its own vertical range.
type Panel struct {
	Index  int
	Range  scale.Range
	Series []Series
	Start  time.Time // Oldest point across series
	End    time.Time // Newest point across series
}

// Empty reports whether the panel has nothing to draw.
func (p Panel) Empty() bool {
	for _, s := range p.Series {
		if len(s.Points) > 0 {
			return false
		}
	}
	return true
}

// SessionInfo summarizes the active session.
type SessionInfo struct {
	ID       uuid.UUID
	Start    time.Time
	Duration time.Duration
	Samples  int
}

// Frame is a read-only view of the engine at one render tick.
type Frame struct {
	Time           time.Time
	Stream         StreamState
	Capture        CaptureState
	Channels       []channel.Channel
	Panels         []Panel
	GraphType      GraphType
	AutoScale      bool
	Rate           float64
	ParseErrors    int
	LastParseError error
	Session        *SessionInfo // nil while idle
}

// Snapshot builds a render frame. The range of each panel is computed once
// per call from the smoothed values of its visible channels.
func (e *Engine) Snapshot(now time.Time) Frame {
	e.mu.RLock()
	f := Frame{
		Time:           now,
		Stream:         e.stream,
		Capture:        e.capture,
		Channels:       e.store.Channels(),
		GraphType:      e.graphType,
		ParseErrors:    e.parser.Errors(),
		LastParseError: e.parser.LastError(),
	}
	split := e.split
	histories := make(map[int][]channel.Point, len(f.Channels))
	for _, c := range f.Channels {
		if c.Visible {
			histories[c.Index] = e.store.History(c.Index)
		}
	}
	if e.session != nil {
		f.Session = &SessionInfo{
			ID:       e.session.ID,
			Start:    e.session.Start,
			Duration: e.session.Duration(now),
			Samples:  e.session.Len(),
		}
	}
	maxPoints := e.maxPoints
	e.mu.RUnlock()

	f.Rate = e.rate.Smoothed(now)

	f.Panels = make([]Panel, split.panelCount())
	values := make([][][]float64, len(f.Panels))
	for i := range f.Panels {
		f.Panels[i].Index = i
	}
	for _, c := range f.Channels {
		history, ok := histories[c.Index]
		if !ok {
			continue
		}
		p := &f.Panels[split.panelOf(c.Index)]
		p.Series = append(p.Series, Series{
			Channel: c,
			Points:  sample.Downsample(nil, history, maxPoints),
		})
		if len(history) == 0 {
			continue
		}
		if p.Start.IsZero() || history[0].Time.Before(p.Start) {
			p.Start = history[0].Time
		}
		if last := history[len(history)-1].Time; last.After(p.End) {
			p.End = last
		}
		smoothed := make([]float64, len(history))
		for j, pt := range history {
			smoothed[j] = pt.Smoothed
		}
		values[p.Index] = append(values[p.Index], smoothed)
	}

	e.scaleMu.Lock()
	if len(e.scalers) != len(f.Panels) {
		e.resetScalersLocked()
	}
	f.AutoScale = e.scale.Auto
	for i := range f.Panels {
		if i < len(e.scalers) {
			f.Panels[i].Range = e.scalers[i].ComputeRange(values[i]...)
		} else {
			f.Panels[i].Range = e.scale.Fixed
		}
	}
	e.scaleMu.Unlock()

	return f
}

// StartRender draws a snapshot on surface at the configured frame rate until
// ctx is done or StopRender is called. Starting again replaces the previous
// loop.
func (e *Engine) StartRender(ctx context.Context, surface Surface) {
	e.renderMu.Lock()
	e.surface = surface
	e.renderMu.Unlock()

	e.scheduler.Start(ctx)
}

// StopRender stops the render loop. Safe to call repeatedly.
func (e *Engine) StopRender() {
	e.scheduler.Stop()
}

// Rendering reports whether the render loop is active.
func (e *Engine) Rendering() bool {
	return e.scheduler.Running()
}

func (e *Engine) renderTick(now time.Time) {
	e.renderMu.Lock()
	surface := e.surface
	e.renderMu.Unlock()
	if surface == nil {
		return
	}

	f := e.Snapshot(now)
	e.opts.Metrics.SetSampleRate(f.Rate)
	e.opts.Metrics.RenderTick()
	surface.Draw(f)
}
