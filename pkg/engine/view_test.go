package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/golivegraph/pkg/config"
	"github.com/itohio/golivegraph/pkg/scale"
)

func TestSnapshot_Empty(t *testing.T) {
	e := New(testConfig(), Options{})

	f := e.Snapshot(time.Now())

	assert.Equal(t, Disconnected, f.Stream)
	assert.Equal(t, Idle, f.Capture)
	assert.Nil(t, f.Session)
	require.Len(t, f.Panels, 1)
	assert.True(t, f.Panels[0].Empty())
	assert.Len(t, f.Panels[0].Series, 3)
	assert.Equal(t, scale.Range{Min: -10, Max: 10}, f.Panels[0].Range)
	assert.Equal(t, 0.0, f.Rate)
}

func TestSnapshot_AutoscaleContainsVisibleData(t *testing.T) {
	e := New(testConfig(), Options{})
	e.Feed([]byte("-2,100,0\n0,100,0\n5,100,0\n"))
	require.NoError(t, e.SetVisible(1, false))

	f := e.Snapshot(time.Now())

	require.Len(t, f.Panels, 1)
	p := f.Panels[0]
	require.Len(t, p.Series, 2)
	assert.Equal(t, 0, p.Series[0].Channel.Index)
	assert.Equal(t, 2, p.Series[1].Channel.Index)

	// Hidden channel 1 does not widen the range
	assert.Less(t, p.Range.Min, -2.0)
	assert.Greater(t, p.Range.Max, 5.0)
	assert.Less(t, p.Range.Max, 100.0)
	assert.Greater(t, p.Range.Span(), 7.0)
	assert.False(t, p.Empty())
	assert.False(t, p.Start.After(p.End))
	assert.True(t, f.AutoScale)
}

func TestSnapshot_FixedRange(t *testing.T) {
	e := New(testConfig(), Options{})
	e.Feed([]byte("50,50,50\n"))
	e.SetAutoScale(false)
	require.NoError(t, e.SetFixedRange(-1, 1))

	f := e.Snapshot(time.Now())
	assert.False(t, f.AutoScale)
	assert.Equal(t, scale.Range{Min: -1, Max: 1}, f.Panels[0].Range)
}

func TestSnapshot_Split(t *testing.T) {
	e := New(testConfig(), Options{})
	require.NoError(t, e.SetSplit(Split{Enabled: true, Panels: 2, Assignment: []int{1, 0}}))
	e.Feed([]byte("1,10,100\n2,20,200\n"))

	f := e.Snapshot(time.Now())

	require.Len(t, f.Panels, 2)
	// Channel 2 has no assignment and falls back to 2 % 2
	require.Len(t, f.Panels[0].Series, 2)
	assert.Equal(t, 1, f.Panels[0].Series[0].Channel.Index)
	assert.Equal(t, 2, f.Panels[0].Series[1].Channel.Index)
	require.Len(t, f.Panels[1].Series, 1)
	assert.Equal(t, 0, f.Panels[1].Series[0].Channel.Index)

	// Each panel is scaled on its own channels
	assert.True(t, f.Panels[1].Range.Contains(1))
	assert.True(t, f.Panels[1].Range.Contains(2))
	assert.False(t, f.Panels[1].Range.Contains(10))
	assert.True(t, f.Panels[0].Range.Contains(200))

	require.NoError(t, e.SetSplit(Split{}))
	assert.Len(t, e.Snapshot(time.Now()).Panels, 1)
}

func TestSnapshot_SplitFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Split.Enabled = true
	cfg.Split.Panels = 3
	e := New(cfg, Options{})

	f := e.Snapshot(time.Now())
	require.Len(t, f.Panels, 3)
	for i, p := range f.Panels {
		require.Len(t, p.Series, 1)
		assert.Equal(t, i, p.Series[0].Channel.Index)
	}
}

func TestSnapshot_ObservesCompletedFeed(t *testing.T) {
	e := New(testConfig(), Options{})

	for i := range 5 {
		e.Feed([]byte{byte('0' + i), ',', '0', ',', '0', '\n'})
		f := e.Snapshot(time.Now())
		series := f.Panels[0].Series[0]
		require.NotEmpty(t, series.Points)
		assert.Equal(t, float64(i), series.Points[len(series.Points)-1].Raw)
		assert.Equal(t, float64(i), f.Channels[0].Value)
	}
}

func TestSnapshot_Decimates(t *testing.T) {
	cfg := testConfig()
	cfg.Render.MaxPoints = 10
	e := New(cfg, Options{})
	for range 50 {
		e.Feed([]byte("1,2,3\n"))
	}

	f := e.Snapshot(time.Now())
	assert.Len(t, f.Panels[0].Series[0].Points, 10)
	assert.Len(t, e.History(0), 50)
}

func TestSnapshot_SessionAndErrors(t *testing.T) {
	e := New(testConfig(), Options{Transport: &pipeTransport{}})
	defer e.Close()
	require.NoError(t, e.Connect(context.Background()))
	require.NoError(t, e.StartRecording())
	e.Feed([]byte("1,2,3\nnope\n"))

	f := e.Snapshot(time.Now())
	assert.Equal(t, Connected, f.Stream)
	assert.Equal(t, Recording, f.Capture)
	require.NotNil(t, f.Session)
	assert.Equal(t, 1, f.Session.Samples)
	assert.Equal(t, 1, f.ParseErrors)
	assert.Error(t, f.LastParseError)
	assert.Greater(t, f.Rate, 0.0)
}

func TestSnapshot_HiddenFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Channels.Hidden = []int{0, 12, 40}
	e := New(cfg, Options{})

	f := e.Snapshot(time.Now())
	assert.Len(t, f.Panels[0].Series, 11)
	assert.False(t, f.Channels[0].Visible)
	assert.Equal(t, "Signal-13", f.Channels[12].Name)
}

func TestEngine_StartRender(t *testing.T) {
	e := New(testConfig(), Options{})
	defer e.Close()

	var draws atomic.Int32
	e.StartRender(context.Background(), SurfaceFunc(func(f Frame) {
		draws.Add(1)
	}))
	assert.True(t, e.Rendering())

	require.Eventually(t, func() bool { return draws.Load() >= 3 }, 2*time.Second, time.Millisecond)

	e.StopRender()
	assert.False(t, e.Rendering())
	stopped := draws.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, draws.Load())

	e.StopRender()
}

func TestEngine_StartRenderTwiceReplacesSurface(t *testing.T) {
	e := New(testConfig(), Options{})
	defer e.Close()

	var first, second atomic.Int32
	e.StartRender(context.Background(), SurfaceFunc(func(Frame) { first.Add(1) }))
	e.StartRender(context.Background(), SurfaceFunc(func(Frame) { second.Add(1) }))
	assert.Equal(t, int32(1), e.scheduler.loops.Load())

	require.Eventually(t, func() bool { return second.Load() >= 3 }, 2*time.Second, time.Millisecond)
	before := first.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, before, first.Load())
}
