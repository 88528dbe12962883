package checks

import "sync"

// Sequence контекст исполнения, который умеет сказать, исполняется ли
// вызывающий код внутри него. Реализуется taskqueue.Queue.
type Sequence interface {
	IsCurrent() bool
}

// SequenceChecker запоминает "домашний" контекст исполнения и проверяет,
// что все последующие вызовы приходят из него же.
//
// Без привязанной очереди домашним становится горутина первого вызова
// IsCurrent. Detach сбрасывает привязку: следующий вызывающий становится домашним.
// Это используется, когда объект создан в одной горутине, а затем передан
// во владение другой.
type SequenceChecker struct {
	mu       sync.Mutex
	attached bool
	owner    uint64
	seq      Sequence
}

// NewSequenceChecker создает checker, который привяжется к первой вызывающей горутине.
func NewSequenceChecker() *SequenceChecker {
	return &SequenceChecker{}
}

// NewSequenceCheckerFor создает checker, привязанный к очереди задач.
func NewSequenceCheckerFor(seq Sequence) *SequenceChecker {
	return &SequenceChecker{seq: seq}
}

// IsCurrent сообщает, исполняется ли вызывающий код в домашнем контексте.
func (c *SequenceChecker) IsCurrent() bool {
	if c.seq != nil {
		return c.seq.IsCurrent()
	}

	id := CurrentGoroutineID()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.attached {
		c.attached = true
		c.owner = id
		return true
	}
	return c.owner == id
}

// Detach отвязывает checker от текущего контекста.
func (c *SequenceChecker) Detach() {
	c.mu.Lock()
	c.attached = false
	c.owner = 0
	c.mu.Unlock()
}

// DCheckRunOn проверяет, что вызов пришел из домашнего контекста.
// В сборке release ничего не проверяет.
func DCheckRunOn(c *SequenceChecker, method string) {
	if !Enabled {
		return
	}
	DCheck(c.IsCurrent(), "%s вызван вне домашнего контекста исполнения", method)
}
