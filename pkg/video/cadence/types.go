package cadence

import (
	"fmt"
	"time"
)

// Frame видеокадр. Передается в задачу очереди по значению.
type Frame struct {
	ID           uint16
	Width        int
	Height       int
	RTPTimestamp uint32
	CaptureTime  time.Time
	Data         []byte
}

// Constraints ограничения частоты кадров источника. nil означает отсутствие значения.
type Constraints struct {
	MinFPS *int
	MaxFPS *int
}

// Int возвращает указатель на v для заполнения Constraints.
func Int(v int) *int {
	return &v
}

// HasMin сообщает, задан ли MinFPS.
func (c Constraints) HasMin() bool { return c.MinFPS != nil }

// HasMax сообщает, задан ли MaxFPS.
func (c Constraints) HasMax() bool { return c.MaxFPS != nil }

// MinFPSValue возвращает MinFPS или 0, если он не задан.
func (c Constraints) MinFPSValue() int {
	return c.MinFPSOr(0)
}

// MinFPSOr возвращает MinFPS или def.
func (c Constraints) MinFPSOr(def int) int {
	if c.MinFPS == nil {
		return def
	}
	return *c.MinFPS
}

// MaxFPSOr возвращает MaxFPS или def.
func (c Constraints) MaxFPSOr(def int) int {
	if c.MaxFPS == nil {
		return def
	}
	return *c.MaxFPS
}

// clone копирует значения, чтобы вызывающий мог переиспользовать указатели.
func (c Constraints) clone() Constraints {
	var out Constraints
	if c.MinFPS != nil {
		out.MinFPS = Int(*c.MinFPS)
	}
	if c.MaxFPS != nil {
		out.MaxFPS = Int(*c.MaxFPS)
	}
	return out
}

func (c Constraints) String() string {
	return fmt.Sprintf("min_fps=%d max_fps=%d", c.MinFPSOr(-1), c.MaxFPSOr(-1))
}

// Callback получатель кадров.
type Callback interface {
	// OnFrame вызывается на очереди для каждого принятого кадра.
	// framesScheduledForProcessing включает сам кадр.
	OnFrame(postTime time.Time, framesScheduledForProcessing int, frame Frame)
	// OnDiscardedFrame вызывается сразу на горутине вызывающего.
	OnDiscardedFrame()
}

// Adapter поверхность планировщика кадров.
type Adapter interface {
	Initialize(callback Callback)
	SetZeroHertzModeEnabled(enabled bool)
	OnFrame(frame Frame)
	OnDiscardedFrame()
	OnConstraintsChanged(constraints Constraints)
	Close()
}
