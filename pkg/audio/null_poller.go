package audio

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arzzra/media_core/pkg/mediaerr"
)

// Параметры синтетического опроса по умолчанию: 10 мс моно 48 кГц.
const (
	DefaultPollInterval     = 10 * time.Millisecond
	DefaultPollSampleRateHz = 48000
	DefaultPollNumChannels  = 1
)

// playDataSource источник кадров воспроизведения.
type playDataSource interface {
	NeedMorePlayData(samplesPerChannel, numChannels, sampleRateHz int) *AudioFrame
}

// NullPollerConfig параметры NullAudioPoller. Нулевые поля заменяются значениями по умолчанию.
type NullPollerConfig struct {
	Interval     time.Duration
	SampleRateHz int
	NumChannels  int
}

// DefaultNullPollerConfig возвращает параметры опроса по умолчанию.
func DefaultNullPollerConfig() NullPollerConfig {
	return NullPollerConfig{
		Interval:     DefaultPollInterval,
		SampleRateHz: DefaultPollSampleRateHz,
		NumChannels:  DefaultPollNumChannels,
	}
}

// Validate проверяет, что за один интервал получается хотя бы один отсчет.
// Нулевые поля допустимы и заменяются значениями по умолчанию.
func (c NullPollerConfig) Validate() error {
	if c.Interval < 0 || c.SampleRateHz < 0 || c.NumChannels < 0 {
		return mediaerr.New(mediaerr.ErrorCodeConfigInvalid, "параметры опроса не могут быть отрицательными")
	}
	if c.withDefaults().samplesPerChannel() == 0 {
		return mediaerr.New(mediaerr.ErrorCodeConfigInvalid, "интервал опроса меньше одного отсчета").
			WithContext("interval", c.Interval).
			WithContext("sample_rate_hz", c.SampleRateHz)
	}
	return nil
}

func (c NullPollerConfig) withDefaults() NullPollerConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultPollInterval
	}
	if c.SampleRateHz <= 0 {
		c.SampleRateHz = DefaultPollSampleRateHz
	}
	if c.NumChannels <= 0 {
		c.NumChannels = DefaultPollNumChannels
	}
	return c
}

// samplesPerChannel число отсчетов за один интервал опроса.
func (c NullPollerConfig) samplesPerChannel() int {
	return int(int64(c.SampleRateHz) * int64(c.Interval) / int64(time.Second))
}

// NullAudioPoller заменяет цикл вытягивания аудио устройства, когда
// воспроизведение выключено: по таймеру вытягивает кадры из транспорта
// и отбрасывает их.
type NullAudioPoller struct {
	source playDataSource
	config NullPollerConfig
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	polls atomic.Uint64
}

// NewNullAudioPoller создает и сразу запускает опрос.
func NewNullAudioPoller(source playDataSource, config NullPollerConfig, logger *slog.Logger) *NullAudioPoller {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &NullAudioPoller{
		source: source,
		config: config.withDefaults(),
		logger: logger.With(slog.String("component", "null_audio_poller")),
		ctx:    ctx,
		cancel: cancel,
	}

	p.wg.Add(1)
	go p.pollRoutine()

	p.logger.Info("Синтетический опрос аудио запущен",
		slog.Duration("interval", p.config.Interval),
		slog.Int("sample_rate_hz", p.config.SampleRateHz),
		slog.Int("num_channels", p.config.NumChannels))

	return p
}

// Stop останавливает опрос и ждет завершения горутины. Повторный вызов безопасен.
func (p *NullAudioPoller) Stop() {
	p.once.Do(func() {
		p.cancel()
		p.wg.Wait()
		p.logger.Info("Синтетический опрос аудио остановлен",
			slog.Uint64("polls", p.polls.Load()))
	})
}

// Polls число выполненных опросов.
func (p *NullAudioPoller) Polls() uint64 {
	return p.polls.Load()
}

func (p *NullAudioPoller) pollRoutine() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	samples := p.config.samplesPerChannel()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			_ = p.source.NeedMorePlayData(samples, p.config.NumChannels, p.config.SampleRateHz)
			p.polls.Add(1)
		}
	}
}
