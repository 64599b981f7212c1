package scope

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/chewxy/math32"

	"github.com/itohio/golivegraph/pkg/channel"
	"github.com/itohio/golivegraph/pkg/engine"
	"github.com/itohio/golivegraph/pkg/scale"
)

var (
	gridColor   = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor  = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	statusColor = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	recordColor = color.RGBA{R: 230, G: 60, B: 60, A: 255}
)

const (
	marginLeft   = float32(60)
	marginRight  = float32(20)
	marginTop    = float32(40) // Status line and legend
	marginBottom = float32(24)
	panelGap     = float32(12)
	hLines       = 4
	vLines       = 10
)

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope      *ScopeWidget
	background *canvas.Rectangle

	// Objects list for Fyne
	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size
}

// plotArea is the pixel rectangle of one panel.
type plotArea struct {
	x, y, w, h float32
}

// project maps a value to a y pixel, clamped to the area.
func (a plotArea) project(v float64, r scale.Range) float32 {
	span := r.Span()
	if span <= 0 {
		return a.y + a.h/2
	}
	y := a.y + a.h - float32((v-r.Min)/span)*a.h
	return math32.Max(a.y, math32.Min(a.y+a.h, y))
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	// Background fills entire widget
	r.background.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		// Size changed, trigger widget refresh to redraw with new dimensions
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh rebuilds the canvas objects from the last frame.
func (r *scopeRenderer) Refresh() {
	f, ok := r.scope.Frame()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	// Clear old objects (but keep background)
	r.objects = []fyne.CanvasObject{r.background}

	if !ok || len(f.Panels) == 0 {
		r.addText("No data", statusColor, 14, fyne.NewPos(size.Width/2-30, size.Height/2), fyne.TextAlignLeading)
		return
	}

	r.drawStatus(f)
	r.drawLegend(f, size)

	plotWidth := size.Width - marginLeft - marginRight
	total := size.Height - marginTop - marginBottom
	n := float32(len(f.Panels))
	panelHeight := (total - panelGap*(n-1)) / n
	if plotWidth <= 0 || panelHeight <= 0 {
		return
	}

	for i, p := range f.Panels {
		area := plotArea{
			x: marginLeft,
			y: marginTop + float32(i)*(panelHeight+panelGap),
			w: plotWidth,
			h: panelHeight,
		}
		r.drawPanel(area, p, f.GraphType, i == len(f.Panels)-1)
	}
}

func (r *scopeRenderer) drawPanel(area plotArea, p engine.Panel, graphType engine.GraphType, timeAxis bool) {
	start, end := p.Start, p.End
	if end.Sub(start) <= 0 {
		end = start.Add(time.Second)
	}

	r.drawGrid(area, p.Range, end.Sub(start), timeAxis)

	if p.Empty() {
		r.addText("No data", labelColor, 12, fyne.NewPos(area.x+area.w/2-25, area.y+area.h/2-8), fyne.TextAlignLeading)
		return
	}

	for _, s := range p.Series {
		switch graphType {
		case engine.GraphDot:
			r.drawDots(area, s, p.Range, start, end)
		case engine.GraphBar:
			r.drawBars(area, s, p.Range, start, end)
		default:
			r.drawLine(area, s, p.Range, start, end)
		}
	}
}

// drawGrid draws the oscilloscope-style grid with value and time labels.
func (r *scopeRenderer) drawGrid(area plotArea, rng scale.Range, window time.Duration, timeAxis bool) {
	for i := range hLines + 1 {
		y := area.y + float32(i)*area.h/hLines
		r.addLine(gridColor, 1, fyne.NewPos(area.x, y), fyne.NewPos(area.x+area.w, y))

		value := rng.Max - float64(i)*rng.Span()/hLines
		r.addText(formatValue(value), labelColor, 10, fyne.NewPos(area.x-5, y-6), fyne.TextAlignTrailing)
	}

	for i := range vLines + 1 {
		x := area.x + float32(i)*area.w/vLines
		r.addLine(gridColor, 1, fyne.NewPos(x, area.y), fyne.NewPos(x, area.y+area.h))

		if timeAxis {
			// Seconds before the newest point
			ago := window - time.Duration(float64(window)*float64(i)/vLines)
			r.addText(formatTime(ago), labelColor, 10, fyne.NewPos(x-20, area.y+area.h+5), fyne.TextAlignCenter)
		}
	}
}

func (r *scopeRenderer) points(area plotArea, s engine.Series, rng scale.Range, start, end time.Time) []fyne.Position {
	window := end.Sub(start).Seconds()
	points := make([]fyne.Position, 0, len(s.Points))
	for _, pt := range s.Points {
		x := area.x + float32(pt.Time.Sub(start).Seconds()/window)*area.w
		points = append(points, fyne.NewPos(x, area.project(pt.Smoothed, rng)))
	}
	return points
}

// drawLine draws connected line segments.
func (r *scopeRenderer) drawLine(area plotArea, s engine.Series, rng scale.Range, start, end time.Time) {
	points := r.points(area, s, rng, start, end)
	if len(points) == 1 {
		r.drawDots(area, s, rng, start, end)
		return
	}
	for i := range len(points) - 1 {
		r.addLine(s.Channel.Color, 1.5, points[i], points[i+1])
	}
}

func (r *scopeRenderer) drawDots(area plotArea, s engine.Series, rng scale.Range, start, end time.Time) {
	for _, p := range r.points(area, s, rng, start, end) {
		dot := canvas.NewCircle(s.Channel.Color)
		dot.Resize(fyne.NewSize(3, 3))
		dot.Move(fyne.NewPos(p.X-1.5, p.Y-1.5))
		r.objects = append(r.objects, dot)
	}
}

// drawBars draws vertical bars from the zero line, or from the range
// edge nearest to zero when zero is out of view.
func (r *scopeRenderer) drawBars(area plotArea, s engine.Series, rng scale.Range, start, end time.Time) {
	base := area.project(math.Max(rng.Min, math.Min(rng.Max, 0)), rng)
	for _, p := range r.points(area, s, rng, start, end) {
		r.addLine(s.Channel.Color, 2, fyne.NewPos(p.X, base), p)
	}
}

// drawStatus draws the connection, recording and rate line.
func (r *scopeRenderer) drawStatus(f engine.Frame) {
	status := fmt.Sprintf("%s | %.1f samples/s | %d dropped", f.Stream, f.Rate, f.ParseErrors)
	if !f.AutoScale {
		status += " | fixed scale"
	}
	r.addText(status, statusColor, 11, fyne.NewPos(marginLeft, 4), fyne.TextAlignLeading)

	if f.Session == nil {
		return
	}
	rec := fmt.Sprintf("● %s %s, %d samples", f.Capture, formatDuration(f.Session.Duration), f.Session.Samples)
	r.addText(rec, recordColor, 11, fyne.NewPos(marginLeft+360, 4), fyne.TextAlignLeading)
}

// drawLegend draws each visible channel's name and live smoothed value.
func (r *scopeRenderer) drawLegend(f engine.Frame, size fyne.Size) {
	x := marginLeft
	for _, c := range f.Channels {
		if !c.Visible {
			continue
		}
		label := legendLabel(c)
		width := float32(len(label))*6 + 12
		if x+width > size.Width-marginRight {
			break
		}
		r.addText(label, c.Color, 10, fyne.NewPos(x, 20), fyne.TextAlignLeading)
		x += width
	}
}

func (r *scopeRenderer) addLine(c color.Color, width float32, p1, p2 fyne.Position) {
	line := canvas.NewLine(c)
	line.Position1 = p1
	line.Position2 = p2
	line.StrokeWidth = width
	r.objects = append(r.objects, line)
}

func (r *scopeRenderer) addText(s string, c color.Color, size float32, pos fyne.Position, align fyne.TextAlign) {
	text := canvas.NewText(s, c)
	text.TextSize = size
	text.Alignment = align
	text.Move(pos)
	r.objects = append(r.objects, text)
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {
	// Cleanup handled by Fyne
}

func legendLabel(c channel.Channel) string {
	return c.Name + " " + formatValue(c.Smoothed)
}

func formatValue(v float64) string {
	if math.Abs(v) < 1e-9 {
		return "0"
	}
	abs := math.Abs(v)
	switch {
	case abs >= 1e5 || abs < 1e-3:
		return strconv.FormatFloat(v, 'e', 2, 64)
	case abs >= 100:
		return strconv.FormatFloat(v, 'f', 1, 64)
	default:
		return strconv.FormatFloat(v, 'f', 3, 64)
	}
}

func formatTime(d time.Duration) string {
	if d == 0 {
		return "now"
	}
	if d < time.Second {
		return "-" + strconv.FormatFloat(d.Seconds(), 'f', 2, 64) + "s"
	}
	return "-" + strconv.FormatFloat(d.Seconds(), 'f', 1, 64) + "s"
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d", m, s)
}
