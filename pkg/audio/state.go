package audio

import (
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/arzzra/media_core/pkg/checks"
)

// Минимальные производные параметры при пустом множестве потоков.
const (
	minSendSampleRateHz = 8000
	minSendNumChannels  = 1
)

// State координатор состояния аудио сессии.
//
// Создается через Create со счетчиком ссылок 1 и уничтожается ровно тогда,
// когда Release опускает счетчик до нуля. К этому моменту все исходящие
// потоки должны быть удалены.
type State struct {
	id        string
	config    Config
	transport *AudioTransport
	logger    *slog.Logger

	threadChecker *checks.SequenceChecker

	// Доступны только из домашнего контекста.
	sendingStreams map[AudioSendStream]StreamProperties
	nullPoller     *NullAudioPoller

	refCount  atomic.Int32
	destroyed atomic.Bool
}

// Create оборачивает конфигурацию в State со счетчиком ссылок 1.
func Create(config Config) *State {
	checks.DCheck(config.Mixer != nil, "audio.Config: Mixer обязателен")

	id := uuid.NewString()
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &State{
		id:             id,
		config:         config,
		transport:      NewAudioTransport(config.Mixer, config.AudioProcessing, config.DeviceModule),
		logger:         logger.With(slog.String("component", "audio_state"), slog.String("session_id", id)),
		threadChecker:  checks.NewSequenceChecker(),
		sendingStreams: make(map[AudioSendStream]StreamProperties),
	}
	s.refCount.Store(1)

	return s
}

// ID идентификатор сессии для логов.
func (s *State) ID() string {
	return s.id
}

// DetachFromSequence отвязывает State от текущего домашнего контекста.
// Следующий изменяющий вызов установит новый.
func (s *State) DetachFromSequence() {
	s.threadChecker.Detach()
}

// VoiceEngine возвращает управление устройством.
func (s *State) VoiceEngine() VoiceEngine {
	s.checkRunOn("VoiceEngine")
	return s.config.VoiceEngine
}

// Mixer возвращает микшер сессии.
func (s *State) Mixer() Mixer {
	s.checkRunOn("Mixer")
	return s.config.Mixer
}

// Transport возвращает аудио транспорт сессии. Устройство подает в него
// кадры захвата и вытягивает кадры воспроизведения.
func (s *State) Transport() *AudioTransport {
	return s.transport
}

// TypingNoiseDetected сообщает, обнаружен ли шум клавиатуры.
func (s *State) TypingNoiseDetected() bool {
	s.checkRunOn("TypingNoiseDetected")
	return s.transport.TypingNoiseDetected()
}

// AddSendingStream регистрирует поток или перезаписывает его параметры.
func (s *State) AddSendingStream(stream AudioSendStream, sampleRateHz, numChannels int) {
	s.checkRunOn("AddSendingStream")

	s.sendingStreams[stream] = StreamProperties{
		SampleRateHz: sampleRateHz,
		NumChannels:  numChannels,
	}
	s.updateAudioTransportWithSendingStreams()
}

// RemoveSendingStream удаляет ровно один зарегистрированный поток.
// Удаление отсутствующего потока является нарушением контракта.
func (s *State) RemoveSendingStream(stream AudioSendStream) {
	s.checkRunOn("RemoveSendingStream")

	removed := 0
	if _, ok := s.sendingStreams[stream]; ok {
		delete(s.sendingStreams, stream)
		removed = 1
	}
	checks.DCheckEq(1, removed, "RemoveSendingStream: число удаленных потоков")

	s.updateAudioTransportWithSendingStreams()
}

// SendingStreamCount число зарегистрированных потоков.
func (s *State) SendingStreamCount() int {
	s.checkRunOn("SendingStreamCount")
	return len(s.sendingStreams)
}

// SetPlayout включает или выключает воспроизведение.
//
// При выключении запускается NullAudioPoller, при включении он останавливается.
// Команда передается VoiceEngine только при смене состояния.
func (s *State) SetPlayout(enabled bool) {
	s.logger.Info("SetPlayout", slog.Bool("enabled", enabled))
	s.checkRunOn("SetPlayout")

	currentlyEnabled := s.nullPoller == nil
	if enabled == currentlyEnabled {
		return
	}

	if enabled {
		s.nullPoller.Stop()
		s.nullPoller = nil
	}

	// Устройство само отслеживает start/stop и запоминает настройку
	// для последующих запусков воспроизведения.
	if s.config.VoiceEngine != nil {
		s.config.VoiceEngine.SetPlayout(enabled)
	}
	playing, _ := s.transport.DeviceState()
	s.logger.Debug("Состояние устройства после SetPlayout", slog.Bool("device_playing", playing))

	if !enabled {
		s.nullPoller = NewNullAudioPoller(s.transport, s.config.NullPoller, s.logger)
	}
}

// PlayoutEnabled сообщает текущее состояние воспроизведения.
func (s *State) PlayoutEnabled() bool {
	s.checkRunOn("PlayoutEnabled")
	return s.nullPoller == nil
}

// SetRecording включает или выключает запись. Синтетической замены
// для записи нет: команда просто передается VoiceEngine.
func (s *State) SetRecording(enabled bool) {
	s.logger.Info("SetRecording", slog.Bool("enabled", enabled))
	s.checkRunOn("SetRecording")

	if s.config.VoiceEngine != nil {
		s.config.VoiceEngine.SetRecording(enabled)
	}
}

// AudioInputStats возвращает снимок уровня входного аудио.
func (s *State) AudioInputStats() Stats {
	s.checkRunOn("AudioInputStats")

	level := s.transport.AudioLevel()

	var result Stats
	result.AudioLevel = level.LevelFullRange()
	checks.DCheckRange(result.AudioLevel, 0, 32767, "AudioLevel")
	result.QuantizedAudioLevel = level.Level()
	checks.DCheckRange(result.QuantizedAudioLevel, 0, 9, "QuantizedAudioLevel")
	result.TotalEnergy = level.TotalEnergy()
	result.TotalDuration = level.TotalDuration()
	_, result.DeviceRecording = s.transport.DeviceState()

	return result
}

// SetStereoChannelSwapping включает перестановку каналов захвата.
func (s *State) SetStereoChannelSwapping(enable bool) {
	s.checkRunOn("SetStereoChannelSwapping")
	s.transport.SetStereoChannelSwapping(enable)
}

// AddRef увеличивает счетчик ссылок. Безопасен из любой горутины.
func (s *State) AddRef() {
	s.refCount.Add(1)
}

// Release уменьшает счетчик ссылок и уничтожает State на нуле.
// Безопасен из любой горутины.
func (s *State) Release() ReleaseStatus {
	if s.refCount.Add(-1) == 0 {
		s.destroy()
		return DroppedLastRef
	}
	return OtherRefsRemained
}

// destroy освобождает ресурсы State.
func (s *State) destroy() {
	checks.DCheckRunOn(s.threadChecker, "destroy")
	checks.DCheck(len(s.sendingStreams) == 0,
		"State уничтожается с %d исходящими потоками", len(s.sendingStreams))

	if s.nullPoller != nil {
		s.nullPoller.Stop()
		s.nullPoller = nil
	}
	s.destroyed.Store(true)

	s.logger.Info("Состояние аудио сессии уничтожено")
}

// updateAudioTransportWithSendingStreams пересчитывает производные параметры
// и передает их транспорту.
func (s *State) updateAudioTransportWithSendingStreams() {
	streams := make([]AudioSendStream, 0, len(s.sendingStreams))
	maxSampleRateHz := minSendSampleRateHz
	maxNumChannels := minSendNumChannels

	for stream, props := range s.sendingStreams {
		streams = append(streams, stream)
		maxSampleRateHz = max(maxSampleRateHz, props.SampleRateHz)
		maxNumChannels = max(maxNumChannels, props.NumChannels)
	}

	s.transport.UpdateSendingStreams(streams, maxSampleRateHz, maxNumChannels)
}

func (s *State) checkRunOn(method string) {
	checks.DCheck(!s.destroyed.Load(), "%s вызван после уничтожения State", method)
	checks.DCheckRunOn(s.threadChecker, method)
}
