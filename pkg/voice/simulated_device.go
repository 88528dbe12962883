package voice

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arzzra/media_core/pkg/audio"
	"github.com/arzzra/media_core/pkg/mediaerr"
)

var (
	_ Device             = (*SimulatedDevice)(nil)
	_ audio.DeviceModule = (*SimulatedDevice)(nil)
)

// ErrDeviceFailure ошибка, внедряемая в SimulatedDevice.
var ErrDeviceFailure = mediaerr.New(mediaerr.ErrorCodeDeviceFailure, "сбой аудио устройства")

// DeviceTransport транспорт, с которым работает устройство.
// Реализуется audio.AudioTransport.
type DeviceTransport interface {
	RecordedDataIsAvailable(samples []int16, samplesPerChannel, numChannels, sampleRateHz int) error
	NeedMorePlayData(samplesPerChannel, numChannels, sampleRateHz int) *audio.AudioFrame
}

// SimulatedDeviceConfig параметры симулированного устройства.
type SimulatedDeviceConfig struct {
	Interval     time.Duration // период цикла устройства, по умолчанию 10 мс
	SampleRateHz int           // по умолчанию 48000
	NumChannels  int           // по умолчанию 1
	ToneHz       float64       // частота тона захвата, по умолчанию 440
	Amplitude    int16         // амплитуда тона, по умолчанию 8000
}

// SimulatedDevice устройство без оборудования. Пока воспроизведение запущено,
// вытягивает кадры из транспорта; пока запущена запись, подает в транспорт тон.
type SimulatedDevice struct {
	config SimulatedDeviceConfig
	logger *slog.Logger

	mu        sync.Mutex
	transport DeviceTransport
	playout   *deviceLoop
	recording *deviceLoop
	failNext  error

	playoutStarts   atomic.Int32
	recordingStarts atomic.Int32
	pulled          atomic.Uint64
	captured        atomic.Uint64
}

// DefaultSimulatedDeviceConfig возвращает параметры по умолчанию:
// 10 мс моно 48 кГц, тон 440 Гц.
func DefaultSimulatedDeviceConfig() SimulatedDeviceConfig {
	return SimulatedDeviceConfig{
		Interval:     10 * time.Millisecond,
		SampleRateHz: 48000,
		NumChannels:  1,
		ToneHz:       440,
		Amplitude:    8000,
	}
}

// Validate проверяет параметры устройства. Нулевые поля допустимы.
func (c SimulatedDeviceConfig) Validate() error {
	if c.Interval < 0 || c.SampleRateHz < 0 || c.NumChannels < 0 || c.ToneHz < 0 {
		return mediaerr.New(mediaerr.ErrorCodeConfigInvalid, "параметры устройства не могут быть отрицательными")
	}
	if c.NumChannels > 2 {
		return mediaerr.New(mediaerr.ErrorCodeConfigInvalid, "устройство поддерживает не более двух каналов").
			WithContext("num_channels", c.NumChannels)
	}
	return nil
}

func (c SimulatedDeviceConfig) withDefaults() SimulatedDeviceConfig {
	def := DefaultSimulatedDeviceConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.SampleRateHz <= 0 {
		c.SampleRateHz = def.SampleRateHz
	}
	if c.NumChannels <= 0 {
		c.NumChannels = def.NumChannels
	}
	if c.ToneHz <= 0 {
		c.ToneHz = def.ToneHz
	}
	if c.Amplitude == 0 {
		c.Amplitude = def.Amplitude
	}
	return c
}

// NewSimulatedDevice создает устройство. Нулевые поля конфигурации
// заменяются значениями по умолчанию.
func NewSimulatedDevice(config SimulatedDeviceConfig, logger *slog.Logger) *SimulatedDevice {
	if logger == nil {
		logger = slog.Default()
	}

	return &SimulatedDevice{
		config: config.withDefaults(),
		logger: logger.With(slog.String("component", "simulated_device")),
	}
}

// AttachTransport подключает транспорт. До подключения циклы устройства
// работают вхолостую.
func (d *SimulatedDevice) AttachTransport(t DeviceTransport) {
	d.mu.Lock()
	d.transport = t
	d.mu.Unlock()
}

// FailNextStart заставляет следующий Start* вернуть err.
func (d *SimulatedDevice) FailNextStart(err error) {
	d.mu.Lock()
	d.failNext = err
	d.mu.Unlock()
}

func (d *SimulatedDevice) StartPlayout() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.takeFailure(); err != nil {
		return err
	}
	if d.playout != nil {
		return nil
	}
	d.playout = startDeviceLoop(d.config.Interval, d.pullOnce)
	d.playoutStarts.Add(1)
	d.logger.Info("Воспроизведение устройства запущено")
	return nil
}

func (d *SimulatedDevice) StopPlayout() error {
	d.mu.Lock()
	loop := d.playout
	d.playout = nil
	d.mu.Unlock()

	if loop != nil {
		loop.stop()
		d.logger.Info("Воспроизведение устройства остановлено")
	}
	return nil
}

func (d *SimulatedDevice) StartRecording() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.takeFailure(); err != nil {
		return err
	}
	if d.recording != nil {
		return nil
	}
	d.recording = startDeviceLoop(d.config.Interval, d.captureOnce)
	d.recordingStarts.Add(1)
	d.logger.Info("Запись устройства запущена")
	return nil
}

func (d *SimulatedDevice) StopRecording() error {
	d.mu.Lock()
	loop := d.recording
	d.recording = nil
	d.mu.Unlock()

	if loop != nil {
		loop.stop()
		d.logger.Info("Запись устройства остановлена")
	}
	return nil
}

// Playing реализует audio.DeviceModule.
func (d *SimulatedDevice) Playing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playout != nil
}

// Recording реализует audio.DeviceModule.
func (d *SimulatedDevice) Recording() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recording != nil
}

// PlayoutStarts число запусков воспроизведения.
func (d *SimulatedDevice) PlayoutStarts() int { return int(d.playoutStarts.Load()) }

// RecordingStarts число запусков записи.
func (d *SimulatedDevice) RecordingStarts() int { return int(d.recordingStarts.Load()) }

// Pulled число кадров, вытянутых устройством.
func (d *SimulatedDevice) Pulled() uint64 { return d.pulled.Load() }

// Captured число кадров, поданных устройством в транспорт.
func (d *SimulatedDevice) Captured() uint64 { return d.captured.Load() }

func (d *SimulatedDevice) takeFailure() error {
	err := d.failNext
	d.failNext = nil
	return err
}

func (d *SimulatedDevice) currentTransport() DeviceTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transport
}

func (d *SimulatedDevice) samplesPerChannel() int {
	return int(int64(d.config.SampleRateHz) * int64(d.config.Interval) / int64(time.Second))
}

func (d *SimulatedDevice) pullOnce(tick uint64) {
	t := d.currentTransport()
	if t == nil {
		return
	}
	t.NeedMorePlayData(d.samplesPerChannel(), d.config.NumChannels, d.config.SampleRateHz)
	d.pulled.Add(1)
}

func (d *SimulatedDevice) captureOnce(tick uint64) {
	t := d.currentTransport()
	if t == nil {
		return
	}

	n := d.samplesPerChannel()
	ch := d.config.NumChannels
	samples := make([]int16, n*ch)
	offset := tick * uint64(n)
	for i := 0; i < n; i++ {
		phase := 2 * math.Pi * d.config.ToneHz * float64(offset+uint64(i)) / float64(d.config.SampleRateHz)
		v := int16(float64(d.config.Amplitude) * math.Sin(phase))
		for c := 0; c < ch; c++ {
			samples[i*ch+c] = v
		}
	}

	if err := t.RecordedDataIsAvailable(samples, n, ch, d.config.SampleRateHz); err != nil {
		d.logger.Error("Ошибка передачи кадра захвата", slog.String("error", err.Error()))
		return
	}
	d.captured.Add(1)
}

// deviceLoop горутина цикла одного направления устройства.
type deviceLoop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func startDeviceLoop(interval time.Duration, step func(tick uint64)) *deviceLoop {
	ctx, cancel := context.WithCancel(context.Background())
	l := &deviceLoop{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(l.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var tick uint64
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				step(tick)
				tick++
			}
		}
	}()

	return l
}

func (l *deviceLoop) stop() {
	l.cancel()
	<-l.done
}
