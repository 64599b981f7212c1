package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_Exposition(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SamplesAccepted(3)
	m.SamplesAccepted(0)
	m.ParseErrors(2)
	m.SetSampleRate(25)
	m.SetStreamState(2)
	m.SetCaptureState(1)
	m.SessionFinalized()
	m.ExportFailed()
	m.RenderTick()
	m.RenderTick()

	body := scrape(t, m.Handler())
	assert.Contains(t, body, "golivegraph_samples_accepted_total 3")
	assert.Contains(t, body, "golivegraph_parse_errors_total 2")
	assert.Contains(t, body, "golivegraph_sample_rate 25")
	assert.Contains(t, body, "golivegraph_stream_state 2")
	assert.Contains(t, body, "golivegraph_capture_state 1")
	assert.Contains(t, body, "golivegraph_sessions_finalized_total 1")
	assert.Contains(t, body, "golivegraph_export_failures_total 1")
	assert.Contains(t, body, "golivegraph_render_ticks_total 2")
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.SamplesAccepted(1)
		m.ParseErrors(1)
		m.SetSampleRate(1)
		m.SetStreamState(1)
		m.SetCaptureState(1)
		m.SessionFinalized()
		m.ExportFailed()
		m.RenderTick()
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNew_NilRegistry(t *testing.T) {
	a := New(nil)
	b := New(nil)

	a.SamplesAccepted(1)
	assert.Contains(t, scrape(t, a.Handler()), "golivegraph_samples_accepted_total 1")
	assert.Contains(t, scrape(t, b.Handler()), "golivegraph_samples_accepted_total 0")
}
