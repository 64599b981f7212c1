// Package engine connects a device stream to per-channel history, recording
// and a render loop.
//
// Two loops share the engine: the ingestion loop started by Connect and the
// render loop started by StartRender. Ingestion commits each chunk under the
// engine lock and rendering reads a snapshot under a read lock, so a render
// observes every chunk whose Feed returned before the tick and never a
// partially applied one.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"log"
	"sync"
	"time"

	"github.com/itohio/golivegraph/pkg/channel"
	"github.com/itohio/golivegraph/pkg/config"
	"github.com/itohio/golivegraph/pkg/device"
	"github.com/itohio/golivegraph/pkg/export"
	"github.com/itohio/golivegraph/pkg/frame"
	"github.com/itohio/golivegraph/pkg/meter"
	"github.com/itohio/golivegraph/pkg/metrics"
	"github.com/itohio/golivegraph/pkg/scale"
	"github.com/itohio/golivegraph/pkg/session"
)

const readBufferSize = 4096

var errConnectAborted = errors.New("disconnected while connecting")

// Options carries the collaborators of an Engine.
type Options struct {
	Transport device.Transport
	Uploader  export.Uploader  // export.Nop if nil
	Metrics   *metrics.Metrics // Optional
	Now       func() time.Time // time.Now if nil

	// OnWarning receives non-fatal errors raised outside a caller's
	// request: read failures and failed uploads of sessions finalized by
	// a disconnect.
	OnWarning func(error)
	// OnStateChange is called after every stream or capture transition.
	OnStateChange func(StreamState, CaptureState)
}

// Split is the panel layout.
type Split struct {
	Enabled    bool
	Panels     int
	Assignment []int // Panel per channel, channel index modulo Panels if missing
}

// Engine owns the channels, their histories, the parser and the active session.
type Engine struct {
	cfg  *config.Config
	opts Options

	mu        sync.RWMutex
	parser    *frame.Parser
	store     *channel.Store
	stream    StreamState
	capture   CaptureState
	session   *session.Session
	conn      io.ReadWriteCloser
	cancel    context.CancelFunc
	readDone  chan struct{}
	split     Split
	graphType GraphType
	maxPoints int

	rate *meter.Rate

	scaleMu sync.Mutex
	scale   scale.Autoscaler // Template for per-panel scalers
	scalers []*scale.Autoscaler

	renderMu  sync.Mutex
	surface   Surface
	scheduler *Scheduler

	exports sync.WaitGroup
}

// New creates a disconnected engine from cfg.
func New(cfg *config.Config, opts Options) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.Uploader == nil {
		opts.Uploader = export.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	count := cfg.Channels.Count
	names := make([]string, count)
	colors := make([]color.RGBA, count)
	for i := range count {
		names[i] = cfg.ChannelName(i)
		c, err := channel.ParseColor(cfg.ChannelColor(i))
		if err != nil {
			log.Printf("Channel %d: %v, using default", i, err)
			c, _ = channel.ParseColor(config.DefaultColors[i%len(config.DefaultColors)])
		}
		colors[i] = c
	}

	e := &Engine{
		cfg:  cfg,
		opts: opts,
		parser: frame.NewParser(frame.Options{
			Channels:       count,
			FrameDelimiter: cfg.Framing.FrameDelimiter,
			FieldDelimiter: cfg.Framing.FieldDelimiter,
			MaxCarry:       cfg.Framing.MaxCarry,
			Now:            opts.Now,
		}),
		store: channel.NewStore(channel.Options{
			Count:    count,
			Capacity: cfg.Buffer.Capacity,
			Alpha:    cfg.Smoothing.Alpha,
			Names:    names,
			Colors:   colors,
		}),
		graphType: GraphType(cfg.Render.GraphType),
		maxPoints: cfg.Render.MaxPoints,
		rate:      meter.NewRate(cfg.Rate.Window),
		scale: scale.Autoscaler{
			Auto:       cfg.Scale.Auto,
			Fixed:      scale.Range{Min: cfg.Scale.Min, Max: cfg.Scale.Max},
			Padding:    cfg.Scale.Padding,
			MinSpan:    cfg.Scale.MinSpan,
			ExpandOnly: cfg.Scale.ExpandOnly,
		},
	}
	if !e.graphType.Valid() {
		e.graphType = GraphLine
	}
	for _, i := range cfg.Channels.Hidden {
		if err := e.store.SetVisible(i, false); err != nil {
			log.Printf("Ignoring hidden channel: %v", err)
		}
	}
	e.split = normalizeSplit(Split{
		Enabled:    cfg.Split.Enabled,
		Panels:     cfg.Split.Panels,
		Assignment: cfg.Split.Assignment,
	}, count)
	e.resetScalersLocked()

	fps := cfg.Render.FPS
	if fps <= 0 {
		fps = 60
	}
	e.scheduler = NewScheduler(time.Second/time.Duration(fps), e.renderTick)

	return e
}

// State returns the stream and capture states.
func (e *Engine) State() (StreamState, CaptureState) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stream, e.capture
}

// Connect opens the transport and starts the ingestion loop. The loop ends
// when ctx is done, on Disconnect, or on a read failure or end of stream.
func (e *Engine) Connect(ctx context.Context) error {
	if e.opts.Transport == nil {
		return &TransportError{Op: "open", Err: errors.New("no transport configured")}
	}

	e.mu.Lock()
	if e.stream != Disconnected {
		err := e.stateErrorLocked("connect")
		e.mu.Unlock()
		return err
	}
	e.stream = Connecting
	e.mu.Unlock()
	e.notifyState()

	conn, err := e.opts.Transport.Open()

	e.mu.Lock()
	if err != nil {
		e.stream = Disconnected
		e.mu.Unlock()
		e.notifyState()
		log.Printf("Failed to connect: %v", err)
		return &TransportError{Op: "open", Err: err}
	}
	if e.stream != Connecting {
		e.mu.Unlock()
		if cerr := conn.Close(); cerr != nil {
			log.Printf("Error closing transport: %v", cerr)
		}
		return &TransportError{Op: "open", Err: errConnectAborted}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.conn = conn
	e.cancel = cancel
	e.readDone = done
	e.stream = Connected
	e.capture = Idle
	e.parser.Reset()
	e.mu.Unlock()

	log.Printf("Connected")
	e.notifyState()

	// A cancelled ctx ends this connection like Disconnect does. The
	// callback is a no-op once the loop has been replaced or stopped.
	context.AfterFunc(loopCtx, func() {
		if err := e.disconnectLoop(done, false); err != nil {
			e.warn(err)
		}
	})
	go e.readLoop(loopCtx, conn, done)
	return nil
}

// Disconnect stops ingestion and closes the transport. An active session is
// finalized and exported in the background; export failures go to OnWarning.
// Calling Disconnect while disconnected is a no-op.
func (e *Engine) Disconnect() error {
	return e.disconnectLoop(nil, true)
}

// disconnectLoop tears down the connection. A non-nil loop restricts it to
// the connection whose read loop signals loop.
func (e *Engine) disconnectLoop(loop chan struct{}, wait bool) error {
	e.mu.Lock()
	if e.stream == Disconnected || (loop != nil && e.readDone != loop) {
		e.mu.Unlock()
		return nil
	}
	conn, cancel, done := e.conn, e.cancel, e.readDone
	e.conn, e.cancel, e.readDone = nil, nil, nil
	finished, names := e.finalizeLocked()
	if finished != nil {
		e.exports.Add(1) // Close waits for it

	}
	e.stream = Disconnected
	e.parser.Reset()
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if conn != nil {
		if cerr := conn.Close(); cerr != nil {
			log.Printf("Error closing transport: %v", cerr)
			err = &TransportError{Op: "close", Err: cerr}
		}
	}
	if wait && done != nil {
		<-done
	}

	log.Printf("Disconnected")
	e.notifyState()

	if finished != nil {
		e.exportAsync(finished, names)
	}
	return err
}

func (e *Engine) readLoop(ctx context.Context, conn io.Reader, done chan struct{}) {
	defer close(done)

	buf := make([]byte, readBufferSize)
	for {
		if ctx.Err() != nil {
			return
		}

		n, err := conn.Read(buf)
		// Bytes read after cancellation belong to a connection that is being
		// torn down and are dropped on purpose.
		if n > 0 && ctx.Err() == nil {
			e.Feed(buf[:n])
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			// Read failed because the stream was closed on purpose.
			// Disconnect or the ctx callback owns the teardown.
			return
		}

		terr := &TransportError{Op: "read", Err: err}
		if errors.Is(err, io.EOF) {
			log.Printf("Device stream ended")
		} else {
			log.Printf("Error reading from device: %v", err)
		}
		e.warn(terr)
		if derr := e.disconnectLoop(done, false); derr != nil {
			e.warn(derr)
		}
		return
	}
}

// Feed runs one ingestion step: parse chunk, update the channels and the
// rate, and append to the session while recording. It returns the number of
// accepted samples.
func (e *Engine) Feed(chunk []byte) int {
	e.mu.Lock()
	errorsBefore := e.parser.Errors()
	samples := e.parser.Feed(chunk)
	for _, s := range samples {
		e.store.Ingest(s)
		if e.capture == Recording && e.session != nil {
			e.session.Append(s)
		}
	}
	newErrors := e.parser.Errors() - errorsBefore
	lastErr := e.parser.LastError()
	e.mu.Unlock()

	if len(samples) > 0 {
		e.rate.ObserveN(samples[0].Timestamp, len(samples))
		e.opts.Metrics.SamplesAccepted(len(samples))
	}
	if newErrors > 0 {
		e.opts.Metrics.ParseErrors(newErrors)
		log.Printf("Dropped %d malformed frame(s): %v", newErrors, lastErr)
	}
	return len(samples)
}

// Close stops rendering, disconnects and waits for background exports.
func (e *Engine) Close() error {
	e.StopRender()
	err := e.Disconnect()
	e.exports.Wait()
	return err
}

// Channels returns a copy of all channels.
func (e *Engine) Channels() []channel.Channel {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Channels()
}

// History returns a copy of channel i's points.
func (e *Engine) History(i int) []channel.Point {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.History(i)
}

// ParseErrors returns the number of discarded frames.
func (e *Engine) ParseErrors() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.parser.Errors()
}

// Rate returns the smoothed accepted samples per second at now.
func (e *Engine) Rate(now time.Time) float64 {
	return e.rate.Smoothed(now)
}

// SetVisible shows or hides channel i.
func (e *Engine) SetVisible(i int, visible bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.SetVisible(i, visible)
}

// SetName renames channel i.
func (e *Engine) SetName(i int, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.SetName(i, name)
}

// SetCapacity resizes every channel history.
func (e *Engine) SetCapacity(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.SetCapacity(n)
}

// SetAlpha changes the smoothing factor.
func (e *Engine) SetAlpha(alpha float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.SetAlpha(alpha)
}

// SetAutoScale switches between autoscaling and the fixed range.
func (e *Engine) SetAutoScale(auto bool) {
	e.scaleMu.Lock()
	defer e.scaleMu.Unlock()
	e.scale.Auto = auto
	e.resetScalersLocked()
}

// AutoScale reports whether autoscaling is on.
func (e *Engine) AutoScale() bool {
	e.scaleMu.Lock()
	defer e.scaleMu.Unlock()
	return e.scale.Auto
}

// SetFixedRange sets the range used with autoscale off.
func (e *Engine) SetFixedRange(lo, hi float64) error {
	if lo >= hi {
		return fmt.Errorf("fixed range min %v must be below max %v", lo, hi)
	}
	e.scaleMu.Lock()
	defer e.scaleMu.Unlock()
	e.scale.Fixed = scale.Range{Min: lo, Max: hi}
	e.resetScalersLocked()
	return nil
}

// SetSplit changes the panel layout.
func (e *Engine) SetSplit(split Split) error {
	if split.Enabled && split.Panels < 1 {
		return fmt.Errorf("split needs at least one panel, got %d", split.Panels)
	}
	for ch, p := range split.Assignment {
		if split.Enabled && (p < 0 || p >= split.Panels) {
			return fmt.Errorf("channel %d assigned to panel %d out of range [0, %d)", ch, p, split.Panels)
		}
	}

	e.mu.Lock()
	e.split = normalizeSplit(split, e.store.Count())
	e.mu.Unlock()

	e.scaleMu.Lock()
	e.resetScalersLocked()
	e.scaleMu.Unlock()
	return nil
}

// Split returns the panel layout.
func (e *Engine) Split() Split {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := e.split
	s.Assignment = append([]int(nil), s.Assignment...)
	return s
}

// SetGraphType changes how series are drawn.
func (e *Engine) SetGraphType(g GraphType) error {
	if !g.Valid() {
		return fmt.Errorf("unknown graph type %q", g)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.graphType = g
	return nil
}

// Clear empties all histories. Names, colors and visibility are kept.
func (e *Engine) Clear() {
	e.mu.Lock()
	e.store.Clear()
	e.mu.Unlock()

	e.scaleMu.Lock()
	e.resetScalersLocked()
	e.scaleMu.Unlock()
}

func (e *Engine) stateErrorLocked(op string) error {
	return &StateError{Op: op, Stream: e.stream, Capture: e.capture}
}

func (e *Engine) notifyState() {
	stream, capture := e.State()
	e.opts.Metrics.SetStreamState(int(stream))
	e.opts.Metrics.SetCaptureState(int(capture))
	if e.opts.OnStateChange != nil {
		e.opts.OnStateChange(stream, capture)
	}
}

func (e *Engine) warn(err error) {
	if e.opts.OnWarning != nil {
		e.opts.OnWarning(err)
	}
}

// resetScalersLocked rebuilds one scaler per panel. Caller holds scaleMu.
func (e *Engine) resetScalersLocked() {
	e.mu.RLock()
	panels := e.split.panelCount()
	e.mu.RUnlock()

	e.scalers = make([]*scale.Autoscaler, panels)
	for i := range e.scalers {
		s := e.scale
		s.Reset()
		e.scalers[i] = &s
	}
}

func (s Split) panelCount() int {
	if !s.Enabled || s.Panels < 1 {
		return 1
	}
	return s.Panels
}

// panelOf returns the panel of channel i.
func (s Split) panelOf(i int) int {
	if !s.Enabled || s.Panels < 1 {
		return 0
	}
	if i < len(s.Assignment) {
		if p := s.Assignment[i]; p >= 0 && p < s.Panels {
			return p
		}
	}
	return i % s.Panels
}

func normalizeSplit(s Split, channels int) Split {
	if s.Panels < 1 {
		s.Panels = 1
	}
	if len(s.Assignment) > channels {
		s.Assignment = s.Assignment[:channels]
	}
	s.Assignment = append([]int(nil), s.Assignment...)
	return s
}
