package voice

import (
	"sync/atomic"

	"github.com/arzzra/media_core/pkg/audio"
)

type silenceMixer struct{}

func (silenceMixer) Mix(int, *audio.AudioFrame) {}

type countingStream struct {
	n atomic.Int32
}

func (s *countingStream) SendAudioData(*audio.AudioFrame) { s.n.Add(1) }

func (s *countingStream) count() int { return int(s.n.Load()) }
