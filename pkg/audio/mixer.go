package audio

var _ Mixer = SilenceMixer{}

// SilenceMixer микшер без входящих потоков: отдает тишину.
type SilenceMixer struct{}

// Mix заполняет кадр нулями.
func (SilenceMixer) Mix(numChannels int, frame *AudioFrame) {
	clear(frame.Data)
	frame.Muted = true
}
