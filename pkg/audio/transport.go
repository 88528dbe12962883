package audio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/arzzra/media_core/pkg/mediaerr"
)

// ErrInvalidFrame данные захвата не соответствуют заявленному формату.
var ErrInvalidFrame = mediaerr.New(mediaerr.ErrorCodeAudioFrameInvalid, "некорректный аудио кадр")

// SendingParams производные параметры исходящих потоков.
type SendingParams struct {
	Streams         []AudioSendStream
	MaxSampleRateHz int
	MaxNumChannels  int
}

// AudioTransport связывает устройство с исходящими потоками (захват)
// и микшером (воспроизведение). Алгоритмы микширования и обработки
// делегируются Mixer и AudioProcessing.
//
// Захват и воспроизведение приходят с горутин устройства, поэтому
// все состояние защищено мьютексом.
type AudioTransport struct {
	mixer      Mixer
	processing AudioProcessing
	device     DeviceModule

	level *AudioLevel

	mu                  sync.Mutex
	sendingStreams      []AudioSendStream
	sendSampleRateHz    int
	sendNumChannels     int
	swapStereoChannels  bool
	typingNoiseDetected bool
	updates             int

	captured atomic.Uint64
	pulled   atomic.Uint64
}

// NewAudioTransport создает транспорт. processing и device могут быть nil.
func NewAudioTransport(mixer Mixer, processing AudioProcessing, device DeviceModule) *AudioTransport {
	return &AudioTransport{
		mixer:            mixer,
		processing:       processing,
		device:           device,
		level:            NewAudioLevel(),
		sendSampleRateHz: 8000,
		sendNumChannels:  1,
	}
}

// UpdateSendingStreams заменяет список исходящих потоков и их производные параметры.
func (t *AudioTransport) UpdateSendingStreams(streams []AudioSendStream, sendSampleRateHz, sendNumChannels int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sendingStreams = streams
	t.sendSampleRateHz = sendSampleRateHz
	t.sendNumChannels = sendNumChannels
	t.updates++
}

// SendingParams снимок производных параметров.
func (t *AudioTransport) SendingParams() SendingParams {
	t.mu.Lock()
	defer t.mu.Unlock()

	streams := make([]AudioSendStream, len(t.sendingStreams))
	copy(streams, t.sendingStreams)
	return SendingParams{
		Streams:         streams,
		MaxSampleRateHz: t.sendSampleRateHz,
		MaxNumChannels:  t.sendNumChannels,
	}
}

// Updates число вызовов UpdateSendingStreams.
func (t *AudioTransport) Updates() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.updates
}

// SetStereoChannelSwapping включает перестановку каналов стерео захвата.
func (t *AudioTransport) SetStereoChannelSwapping(enable bool) {
	t.mu.Lock()
	t.swapStereoChannels = enable
	t.mu.Unlock()
}

// TypingNoiseDetected сообщает, обнаружен ли шум клавиатуры в последнем кадре.
func (t *AudioTransport) TypingNoiseDetected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.typingNoiseDetected
}

// DeviceState состояние устройства. Без устройства оба значения false.
func (t *AudioTransport) DeviceState() (playing, recording bool) {
	if t.device == nil {
		return false, false
	}
	return t.device.Playing(), t.device.Recording()
}

// AudioLevel трекер уровня входного сигнала.
func (t *AudioTransport) AudioLevel() *AudioLevel {
	return t.level
}

// RecordedDataIsAvailable принимает кадр захвата от устройства и раздает его
// всем исходящим потокам. Потоки владеют полученным кадром: остальные
// получают копии, снятые до того, как сам кадр уйдет первому потоку.
func (t *AudioTransport) RecordedDataIsAvailable(samples []int16, samplesPerChannel, numChannels, sampleRateHz int) error {
	if samplesPerChannel <= 0 || numChannels <= 0 || sampleRateHz <= 0 ||
		len(samples) < samplesPerChannel*numChannels {
		return fmt.Errorf("%w: %d samples, %d per channel x %d channels @ %d Hz",
			ErrInvalidFrame, len(samples), samplesPerChannel, numChannels, sampleRateHz)
	}

	frame := &AudioFrame{
		Data:              make([]int16, samplesPerChannel*numChannels),
		SamplesPerChannel: samplesPerChannel,
		SampleRateHz:      sampleRateHz,
		NumChannels:       numChannels,
		Timestamp:         uint32(t.captured.Load()) * uint32(samplesPerChannel),
	}
	copy(frame.Data, samples)

	t.mu.Lock()
	swap := t.swapStereoChannels
	streams := t.sendingStreams
	t.mu.Unlock()

	if swap && numChannels == 2 {
		swapStereo(frame.Data)
	}

	typing := false
	if t.processing != nil {
		if err := t.processing.ProcessStream(frame); err != nil {
			return mediaerr.Wrap(mediaerr.ErrorCodeAudioProcessingFailed, "обработка кадра захвата", err)
		}
		typing = t.processing.TypingDetected()
	}

	t.mu.Lock()
	t.typingNoiseDetected = typing
	t.mu.Unlock()

	t.level.ComputeLevel(frame, frame.Duration())
	t.captured.Add(1)

	if len(streams) == 0 {
		return nil
	}
	for _, stream := range streams[1:] {
		stream.SendAudioData(frame.Clone())
	}
	streams[0].SendAudioData(frame)
	return nil
}

// NeedMorePlayData вытягивает кадр воспроизведения из микшера.
func (t *AudioTransport) NeedMorePlayData(samplesPerChannel, numChannels, sampleRateHz int) *AudioFrame {
	frame := &AudioFrame{
		Data:              make([]int16, samplesPerChannel*numChannels),
		SamplesPerChannel: samplesPerChannel,
		SampleRateHz:      sampleRateHz,
		NumChannels:       numChannels,
	}

	t.mixer.Mix(numChannels, frame)

	if t.processing != nil {
		// Ошибка обработки не прерывает воспроизведение
		_ = t.processing.ProcessReverseStream(frame)
	}

	t.pulled.Add(1)
	return frame
}

// Pulled число кадров, вытянутых через NeedMorePlayData.
func (t *AudioTransport) Pulled() uint64 {
	return t.pulled.Load()
}

// Captured число принятых кадров захвата.
func (t *AudioTransport) Captured() uint64 {
	return t.captured.Load()
}

func swapStereo(data []int16) {
	for i := 0; i+1 < len(data); i += 2 {
		data[i], data[i+1] = data[i+1], data[i]
	}
}
