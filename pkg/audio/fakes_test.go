package audio

import (
	"sync"
	"testing"

	"github.com/arzzra/media_core/pkg/checks"
)

type fakeVoiceEngine struct {
	mu        sync.Mutex
	playout   []bool
	recording []bool
}

func (f *fakeVoiceEngine) SetPlayout(enabled bool) {
	f.mu.Lock()
	f.playout = append(f.playout, enabled)
	f.mu.Unlock()
}

func (f *fakeVoiceEngine) SetRecording(enabled bool) {
	f.mu.Lock()
	f.recording = append(f.recording, enabled)
	f.mu.Unlock()
}

func (f *fakeVoiceEngine) playoutCalls() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.playout...)
}

func (f *fakeVoiceEngine) recordingCalls() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.recording...)
}

// fakeMixer заполняет кадр постоянным значением.
type fakeMixer struct {
	value int16
}

func (m *fakeMixer) Mix(numChannels int, frame *AudioFrame) {
	for i := range frame.Data {
		frame.Data[i] = m.value
	}
}

type fakeProcessing struct {
	mu      sync.Mutex
	typing  bool
	forward int
	reverse int
}

func (p *fakeProcessing) ProcessStream(*AudioFrame) error {
	p.mu.Lock()
	p.forward++
	p.mu.Unlock()
	return nil
}

func (p *fakeProcessing) ProcessReverseStream(*AudioFrame) error {
	p.mu.Lock()
	p.reverse++
	p.mu.Unlock()
	return nil
}

func (p *fakeProcessing) TypingDetected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.typing
}

type fakeStream struct {
	name   string
	mu     sync.Mutex
	frames []*AudioFrame
}

func (s *fakeStream) SendAudioData(frame *AudioFrame) {
	s.mu.Lock()
	s.frames = append(s.frames, frame)
	s.mu.Unlock()
}

func (s *fakeStream) received() []*AudioFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*AudioFrame(nil), s.frames...)
}

// mutatingStream копирует кадр и затирает его на месте.
type mutatingStream struct {
	fakeStream
}

func (s *mutatingStream) SendAudioData(frame *AudioFrame) {
	s.fakeStream.SendAudioData(frame.Clone())
	for i := range frame.Data {
		frame.Data[i] = 0
	}
}

type fakeDevice struct {
	playing   bool
	recording bool
}

func (d *fakeDevice) Playing() bool   { return d.playing }
func (d *fakeDevice) Recording() bool { return d.recording }

// requireContractChecks пропускает тест, если нарушения контракта не паникуют.
func requireContractChecks(t *testing.T) {
	t.Helper()
	if !checks.Enabled {
		t.Skip("собрано с тегом release")
	}
}

// panicsOn исполняет fn в отдельной горутине и сообщает, была ли паника.
func panicsOn(fn func()) bool {
	done := make(chan bool)
	go func() {
		defer func() { done <- recover() != nil }()
		fn()
	}()
	return <-done
}
