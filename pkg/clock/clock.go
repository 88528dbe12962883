// Package clock источник монотонного времени для медиа ядра.
package clock

import (
	"sync"
	"time"
)

// Clock возвращает текущее время.
type Clock interface {
	CurrentTime() time.Time
}

type realClock struct{}

func (realClock) CurrentTime() time.Time { return time.Now() }

// RealClock возвращает часы на основе time.Now (с монотонной составляющей).
func RealClock() Clock {
	return realClock{}
}

// SimulatedClock часы с ручным управлением временем для тестов.
type SimulatedClock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewSimulatedClock создает часы, показывающие start.
func NewSimulatedClock(start time.Time) *SimulatedClock {
	return &SimulatedClock{now: start}
}

// CurrentTime реализует Clock.
func (c *SimulatedClock) CurrentTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// AdvanceTime сдвигает время вперед на d.
func (c *SimulatedClock) AdvanceTime(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
