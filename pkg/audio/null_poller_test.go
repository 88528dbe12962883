package audio

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/arzzra/media_core/pkg/mediaerr"
)

type recordingSource struct {
	mu    sync.Mutex
	calls [][3]int
}

func (r *recordingSource) NeedMorePlayData(samplesPerChannel, numChannels, sampleRateHz int) *AudioFrame {
	r.mu.Lock()
	r.calls = append(r.calls, [3]int{samplesPerChannel, numChannels, sampleRateHz})
	r.mu.Unlock()
	return &AudioFrame{}
}

func (r *recordingSource) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestNullAudioPoller_DefaultFormat(t *testing.T) {
	src := &recordingSource{}
	p := NewNullAudioPoller(src, NullPollerConfig{}, nil)
	defer p.Stop()

	assert.Equal(t, DefaultPollInterval, p.config.Interval)

	assert.Eventually(t, func() bool { return src.count() > 0 }, time.Second, time.Millisecond)

	src.mu.Lock()
	first := src.calls[0]
	src.mu.Unlock()

	// 10 мс моно 48 кГц
	assert.Equal(t, [3]int{480, 1, 48000}, first)
}

func TestNullAudioPoller_StopIsIdempotent(t *testing.T) {
	src := &recordingSource{}
	p := NewNullAudioPoller(src, NullPollerConfig{Interval: time.Millisecond}, nil)

	assert.Eventually(t, func() bool { return p.Polls() >= 2 }, time.Second, time.Millisecond)

	p.Stop()
	p.Stop()

	n := src.count()
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, n, src.count())
	assert.Equal(t, uint64(n), p.Polls())
}

func TestNullPollerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  NullPollerConfig
		wantErr bool
	}{
		{"по умолчанию", DefaultNullPollerConfig(), false},
		{"нулевые поля", NullPollerConfig{}, false},
		{"отрицательная частота", NullPollerConfig{SampleRateHz: -1}, true},
		{"интервал меньше отсчета", NullPollerConfig{Interval: time.Microsecond, SampleRateHz: 8000}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.True(t, mediaerr.HasErrorCode(err, mediaerr.ErrorCodeConfigInvalid))
				return
			}
			assert.NoError(t, err)
		})
	}

	assert.Equal(t, 480, DefaultNullPollerConfig().samplesPerChannel())
}
