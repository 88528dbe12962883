package audio

import (
	"log/slog"
	"time"
)

// AudioFrame кадр PCM16 с чередованием каналов.
type AudioFrame struct {
	Data              []int16
	SamplesPerChannel int
	SampleRateHz      int
	NumChannels       int
	Timestamp         uint32
	Muted             bool
}

// Samples возвращает значимую часть Data.
func (f *AudioFrame) Samples() []int16 {
	n := f.SamplesPerChannel * f.NumChannels
	if n > len(f.Data) {
		n = len(f.Data)
	}
	return f.Data[:n]
}

// Duration длительность кадра.
func (f *AudioFrame) Duration() time.Duration {
	if f.SampleRateHz <= 0 {
		return 0
	}
	return time.Duration(f.SamplesPerChannel) * time.Second / time.Duration(f.SampleRateHz)
}

// Clone возвращает глубокую копию кадра.
func (f *AudioFrame) Clone() *AudioFrame {
	c := *f
	c.Data = make([]int16, len(f.Data))
	copy(c.Data, f.Data)
	return &c
}

// VoiceEngine управляет устройством воспроизведения и записи.
// Реализация должна запоминать запрошенное состояние и быть идемпотентной.
type VoiceEngine interface {
	SetPlayout(enabled bool)
	SetRecording(enabled bool)
}

// Mixer заполняет кадр воспроизведения смешанным аудио входящих потоков.
type Mixer interface {
	Mix(numChannels int, frame *AudioFrame)
}

// AudioProcessing цепочка обработки аудио (эхоподавление, шумоподавление и т.д.).
type AudioProcessing interface {
	ProcessStream(frame *AudioFrame) error
	ProcessReverseStream(frame *AudioFrame) error
	TypingDetected() bool
}

// DeviceModule аудио устройство сессии.
type DeviceModule interface {
	Playing() bool
	Recording() bool
}

// AudioSendStream исходящий аудио поток. Является ключом множества
// потоков, поэтому реализации должны быть указателями.
type AudioSendStream interface {
	SendAudioData(frame *AudioFrame)
}

// StreamProperties параметры исходящего потока.
type StreamProperties struct {
	SampleRateHz int
	NumChannels  int
}

// Stats снимок уровня входного аудио.
type Stats struct {
	AudioLevel          int // [0, 32767]
	QuantizedAudioLevel int // [0, 9]
	TotalEnergy         float64
	TotalDuration       time.Duration
	DeviceRecording     bool // захват на устройстве идет
}

// ReleaseStatus результат Release.
type ReleaseStatus int

const (
	OtherRefsRemained ReleaseStatus = iota
	DroppedLastRef
)

func (s ReleaseStatus) String() string {
	switch s {
	case OtherRefsRemained:
		return "other_refs_remained"
	case DroppedLastRef:
		return "dropped_last_ref"
	default:
		return "unknown"
	}
}

// Config конфигурация State. Не изменяется после Create.
type Config struct {
	VoiceEngine     VoiceEngine
	Mixer           Mixer           // обязателен
	AudioProcessing AudioProcessing // опционально
	DeviceModule    DeviceModule    // опционально

	// NullPoller параметры синтетического опроса при выключенном воспроизведении.
	NullPoller NullPollerConfig

	Logger *slog.Logger
}
