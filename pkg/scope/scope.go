// Package scope renders engine frames as a Fyne oscilloscope-style widget.
package scope

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/golivegraph/pkg/engine"
)

// Ensure ScopeWidget can be driven by the render loop.
var _ engine.Surface = (*ScopeWidget)(nil)

// ScopeWidget is a custom Fyne widget that displays the live channel plot.
type ScopeWidget struct {
	widget.BaseWidget

	// Data (protected by mu)
	mu       sync.RWMutex
	frame    engine.Frame
	hasFrame bool
}

// New creates a new ScopeWidget instance.
func New() *ScopeWidget {
	s := &ScopeWidget{}
	s.ExtendBaseWidget(s)
	// Trigger initial refresh to display empty scope
	s.Refresh()
	return s
}

// Draw stores the frame and schedules a refresh on the UI thread.
// It is called from the render goroutine.
func (s *ScopeWidget) Draw(f engine.Frame) {
	s.mu.Lock()
	s.frame = f
	s.hasFrame = true
	s.mu.Unlock()

	fyne.Do(s.Refresh)
}

// Frame returns the last drawn frame.
func (s *ScopeWidget) Frame() (engine.Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame, s.hasFrame
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	background := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}) // Dark background
	return &scopeRenderer{
		scope:      s,
		background: background,
		objects:    []fyne.CanvasObject{background},
	}
}
