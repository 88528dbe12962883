package audio

import (
	"math"
	"sync"
	"time"
)

// levelUpdateFrequency число кадров между обновлениями уровня.
const levelUpdateFrequency = 10

// permutation квантует abs max / 1000 в уровень 0..9.
var permutation = [33]int{
	0, 1, 2, 3, 4, 4, 5, 5, 5, 5, 6, 6, 6, 6, 6, 7, 7, 7, 7, 8, 8, 8, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9,
}

// AudioLevel отслеживает уровень входного сигнала.
// ComputeLevel вызывается на горутине захвата, чтение возможно из любой.
type AudioLevel struct {
	mu sync.Mutex

	absMax         int
	count          int
	level          int
	levelFullRange int
	totalEnergy    float64
	totalDuration  time.Duration
}

// NewAudioLevel создает трекер с нулевым уровнем.
func NewAudioLevel() *AudioLevel {
	return &AudioLevel{}
}

// Level квантованный уровень [0, 9].
func (l *AudioLevel) Level() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// LevelFullRange уровень в полном диапазоне [0, 32767].
func (l *AudioLevel) LevelFullRange() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.levelFullRange
}

// TotalEnergy накопленная энергия.
func (l *AudioLevel) TotalEnergy() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalEnergy
}

// TotalDuration накопленная длительность.
func (l *AudioLevel) TotalDuration() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalDuration
}

// Clear сбрасывает уровни.
func (l *AudioLevel) Clear() {
	l.mu.Lock()
	l.absMax = 0
	l.count = 0
	l.level = 0
	l.levelFullRange = 0
	l.mu.Unlock()
}

// ComputeLevel учитывает кадр длительностью duration.
func (l *AudioLevel) ComputeLevel(frame *AudioFrame, duration time.Duration) {
	absValue := 0
	if !frame.Muted {
		absValue = maxAbsValue(frame.Samples())
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if absValue > l.absMax {
		l.absMax = absValue
	}

	if l.count == levelUpdateFrequency {
		l.levelFullRange = l.absMax
		l.count = 0

		position := l.absMax / 1000
		if position == 0 && l.absMax > 250 {
			position = 1
		}
		l.level = permutation[position]

		// Затухание максимума
		l.absMax >>= 2
	} else {
		l.count++
	}

	additional := float64(l.levelFullRange) / math.MaxInt16
	l.totalEnergy += additional * additional * duration.Seconds()
	l.totalDuration += duration
}

// maxAbsValue максимальное абсолютное значение, -32768 дает 32767.
func maxAbsValue(samples []int16) int {
	maxAbs := 0
	for _, s := range samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > maxAbs {
			maxAbs = v
		}
	}
	if maxAbs > math.MaxInt16 {
		maxAbs = math.MaxInt16
	}
	return maxAbs
}
