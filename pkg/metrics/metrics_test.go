package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	r.HistogramBoolean("a.Exists", true)
	r.HistogramBoolean("a.Exists", false)
	r.HistogramCounts100("a.Value", 30)
	r.HistogramCounts100("a.Value", 250)
	r.HistogramEnumeration("a.Enum", 629, 3659)
	r.HistogramEnumeration("a.Enum", 5000, 3659)
	r.HistogramEnumeration("a.Enum", -3, 3659)

	assert.Equal(t, []int{1, 0}, r.Samples("a.Exists"))
	assert.Equal(t, []int{30, 100}, r.Samples("a.Value"))
	assert.Equal(t, []int{629, 3659, 0}, r.Samples("a.Enum"))
	assert.Equal(t, 1, r.NumEvents("a.Exists", 1))
	assert.Equal(t, 0, r.NumSamples("missing"))
	assert.Equal(t, 7, r.Len())
	assert.Equal(t, "a.Exists", r.Names()[0])

	r.Reset()
	assert.Equal(t, 0, r.Len())
}

func TestPrometheusSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewPrometheusSink(reg, "test")

	s.HistogramBoolean("WebRTC.Screenshare.FrameRateConstraints.Exists", true)
	s.HistogramBoolean("WebRTC.Screenshare.FrameRateConstraints.Exists", true)
	s.HistogramCounts100("WebRTC.Screenshare.FrameRateConstraints.Min.Value", 10)
	s.HistogramEnumeration("WebRTC.Screenshare.FrameRateConstraints.60MinPlusMaxMinusOne", 99999, 3659)

	assert.Equal(t, 2.0, testutil.ToFloat64(
		s.samples.WithLabelValues("WebRTC.Screenshare.FrameRateConstraints.Exists", "boolean", "1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		s.samples.WithLabelValues("WebRTC.Screenshare.FrameRateConstraints.Min.Value", "counts_100", "10")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		s.samples.WithLabelValues("WebRTC.Screenshare.FrameRateConstraints.60MinPlusMaxMinusOne", "enumeration", "3659")))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "test_histogram_samples_total", families[0].GetName())
}

func TestNop(t *testing.T) {
	var s Sink = Nop{}
	assert.NotPanics(t, func() {
		s.HistogramBoolean("x", true)
		s.HistogramCounts100("x", 1)
		s.HistogramEnumeration("x", 1, 2)
	})
}
