// Package voice управляет аудио устройством сессии: запуском и остановкой
// воспроизведения и записи.
//
// Base реализует audio.VoiceEngine. Состояние каждого направления ведется
// конечным автоматом (stopped/playing), поэтому повторные команды идемпотентны:
// событие, не меняющее состояние, пропускается.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/looplab/fsm"

	"github.com/arzzra/media_core/pkg/audio"
)

var _ audio.VoiceEngine = (*Base)(nil)

// Состояния и события автоматов направлений.
const (
	StateStopped = "stopped"
	StateRunning = "running"

	eventStart = "start"
	eventStop  = "stop"
)

// Device физическое (или симулированное) аудио устройство.
type Device interface {
	StartPlayout() error
	StopPlayout() error
	StartRecording() error
	StopRecording() error
}

// Base управляет устройством по командам координатора состояния.
type Base struct {
	device Device
	logger *slog.Logger

	mu        sync.Mutex
	playout   *fsm.FSM
	recording *fsm.FSM

	// Запрошенные настройки, применяются при Start
	playoutEnabled   bool
	recordingEnabled bool
}

// NewBase создает Base поверх устройства.
func NewBase(device Device, logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.Default()
	}

	b := &Base{
		device:           device,
		logger:           logger.With(slog.String("component", "voice_base")),
		playoutEnabled:   true,
		recordingEnabled: true,
	}
	b.playout = newDirectionFSM(device.StartPlayout, device.StopPlayout)
	b.recording = newDirectionFSM(device.StartRecording, device.StopRecording)

	return b
}

// newDirectionFSM создает автомат направления. Действие устройства
// выполняется в before-колбэке: ошибка отменяет переход.
func newDirectionFSM(start, stop func() error) *fsm.FSM {
	return fsm.NewFSM(
		StateStopped,
		fsm.Events{
			{Name: eventStart, Src: []string{StateStopped}, Dst: StateRunning},
			{Name: eventStop, Src: []string{StateRunning}, Dst: StateStopped},
		},
		fsm.Callbacks{
			"before_" + eventStart: func(_ context.Context, e *fsm.Event) {
				if err := start(); err != nil {
					e.Cancel(err)
				}
			},
			"before_" + eventStop: func(_ context.Context, e *fsm.Event) {
				if err := stop(); err != nil {
					e.Cancel(err)
				}
			},
		},
	)
}

// SetPlayout реализует audio.VoiceEngine.
func (b *Base) SetPlayout(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.playoutEnabled = enabled
	if err := b.transition(b.playout, enabled); err != nil {
		b.logger.Error("Не удалось изменить состояние воспроизведения",
			slog.Bool("enabled", enabled),
			slog.String("error", err.Error()))
	}
}

// SetRecording реализует audio.VoiceEngine.
func (b *Base) SetRecording(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.recordingEnabled = enabled
	if err := b.transition(b.recording, enabled); err != nil {
		b.logger.Error("Не удалось изменить состояние записи",
			slog.Bool("enabled", enabled),
			slog.String("error", err.Error()))
	}
}

// Start запускает направления согласно запомненным настройкам.
func (b *Base) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.transition(b.playout, b.playoutEnabled); err != nil {
		return fmt.Errorf("запуск воспроизведения: %w", err)
	}
	if err := b.transition(b.recording, b.recordingEnabled); err != nil {
		return fmt.Errorf("запуск записи: %w", err)
	}
	return nil
}

// Stop останавливает оба направления, не меняя запомненных настроек.
func (b *Base) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return errors.Join(
		b.transition(b.playout, false),
		b.transition(b.recording, false),
	)
}

// PlayoutEnabled запрошенная настройка воспроизведения.
func (b *Base) PlayoutEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.playoutEnabled
}

// RecordingEnabled запрошенная настройка записи.
func (b *Base) RecordingEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.recordingEnabled
}

// PlayoutState текущее состояние автомата воспроизведения.
func (b *Base) PlayoutState() string {
	return b.playout.Current()
}

// RecordingState текущее состояние автомата записи.
func (b *Base) RecordingState() string {
	return b.recording.Current()
}

// transition переводит автомат в нужное состояние. Если состояние уже
// достигнуто, событие не отправляется.
func (b *Base) transition(machine *fsm.FSM, running bool) error {
	event := eventStop
	if running {
		event = eventStart
	}
	if !machine.Can(event) {
		return nil
	}

	err := machine.Event(context.Background(), event)
	var noTransition fsm.NoTransitionError
	if err != nil && !errors.As(err, &noTransition) {
		return err
	}
	return nil
}
