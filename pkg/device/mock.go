package device

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/itohio/golivegraph/pkg/config"
)

// Mock simulates a device that streams one comma-separated line of
// channel values per sample period. Writes are cut into chunks of at most
// ChunkSize bytes, so lines regularly straddle reads.
type Mock struct {
	cfg      config.MockConfig
	channels int
	seed     uint64
}

// NewMock creates a mock transport generating channels values per line.
func NewMock(cfg *config.MockConfig, channels int) *Mock {
	def := config.Default().Mock
	if cfg == nil {
		cfg = &def
	}
	m := &Mock{cfg: *cfg, channels: channels, seed: uint64(time.Now().UnixNano())}
	if m.cfg.SampleRate <= 0 {
		m.cfg.SampleRate = def.SampleRate
	}
	if m.cfg.ChunkSize <= 0 {
		m.cfg.ChunkSize = def.ChunkSize
	}
	if m.channels <= 0 {
		m.channels = config.MaxChannels
	}
	return m
}

// WithSeed makes the generated noise reproducible.
func (m *Mock) WithSeed(seed uint64) *Mock {
	m.seed = seed
	return m
}

func (m *Mock) String() string {
	return fmt.Sprintf("mock(%d channels, %v)", m.channels, m.cfg.SampleRate)
}

// Open starts generating. The stream ends with io.EOF once the handle is closed.
func (m *Mock) Open() (io.ReadWriteCloser, error) {
	ctx, cancel := context.WithCancel(context.Background())
	pr, pw := io.Pipe()

	conn := &mockConn{
		pr:     pr,
		pw:     pw,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	gen := &generator{
		cfg:      m.cfg,
		channels: m.channels,
		rng:      rand.New(rand.NewPCG(m.seed, m.seed^0x9e3779b97f4a7c15)),
	}
	go func() {
		defer close(conn.done)
		gen.run(ctx, pw)
	}()

	return conn, nil
}

type mockConn struct {
	pr     *io.PipeReader
	pw     *io.PipeWriter
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (c *mockConn) Read(p []byte) (int, error) {
	return c.pr.Read(p)
}

// Write accepts and discards device commands.
func (c *mockConn) Write(p []byte) (int, error) {
	return len(p), nil
}

// Close stops the generator. Pending and later reads return io.EOF.
func (c *mockConn) Close() error {
	c.once.Do(func() {
		c.cancel()
		c.pw.Close()
		<-c.done
	})
	return nil
}

type generator struct {
	cfg      config.MockConfig
	channels int
	rng      *rand.Rand
	frame    int
	line     []byte
}

func (g *generator) run(ctx context.Context, w io.Writer) {
	ticker := time.NewTicker(g.cfg.SampleRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			line := g.next()
			for len(line) > 0 {
				n := min(g.cfg.ChunkSize, len(line))
				if _, err := w.Write(line[:n]); err != nil {
					return
				}
				line = line[n:]
			}
		}
	}
}

// next renders one line: channel k is a sine of frequency (k+1)/10 Hz,
// phase shifted per channel, plus uniform noise.
func (g *generator) next() []byte {
	t := float64(g.frame) * g.cfg.SampleRate.Seconds()
	g.frame++

	g.line = g.line[:0]
	for k := range g.channels {
		if k > 0 {
			g.line = append(g.line, ',')
		}
		phase := float64(k) * math.Pi / 6
		v := g.cfg.Amplitude*math.Sin(2*math.Pi*float64(k+1)/10*t+phase) +
			g.cfg.NoiseLevel*(2*g.rng.Float64()-1)
		g.line = strconv.AppendFloat(g.line, v, 'f', 4, 64)
	}
	g.line = append(g.line, '\n')
	return g.line
}
