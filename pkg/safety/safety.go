// Package safety реализует флаг живости для отложенных задач.
//
// Задача, поставленная в очередь владельцем, захватывает Flag. Когда владелец
// начинает уничтожаться, флаг гасится, и все еще не исполненные задачи
// возвращаются сразу, не трогая состояние владельца.
package safety

import "sync/atomic"

// Flag флаг живости владельца отложенных задач.
type Flag struct {
	alive atomic.Bool
}

// NewFlag создает живой флаг.
func NewFlag() *Flag {
	f := &Flag{}
	f.alive.Store(true)
	return f
}

// Alive сообщает, жив ли владелец.
func (f *Flag) Alive() bool {
	return f.alive.Load()
}

// SetNotAlive гасит флаг. Повторный вызов безопасен.
func (f *Flag) SetNotAlive() {
	f.alive.Store(false)
}

// Wrap возвращает задачу, которая исполнит fn только пока флаг жив.
func Wrap(flag *Flag, fn func()) func() {
	return func() {
		if !flag.Alive() {
			return
		}
		fn()
	}
}

// ScopedTaskSafety владеет флагом и гасит его в Close.
type ScopedTaskSafety struct {
	flag *Flag
}

// NewScopedTaskSafety создает обертку с живым флагом.
func NewScopedTaskSafety() *ScopedTaskSafety {
	return &ScopedTaskSafety{flag: NewFlag()}
}

// Flag возвращает флаг для захвата в задачах.
func (s *ScopedTaskSafety) Flag() *Flag {
	return s.flag
}

// Close гасит флаг.
func (s *ScopedTaskSafety) Close() {
	s.flag.SetNotAlive()
}
