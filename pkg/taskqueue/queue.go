// Package taskqueue реализует последовательный контекст исполнения:
// задачи, поставленные из любых горутин, исполняются строго в порядке
// постановки (FIFO), по одной, на единственной рабочей горутине очереди.
//
// PostTask никогда не блокирует вызывающего: внутренний список задач не
// ограничен. Задачи должны быть короткими и не блокирующими.
package taskqueue

import (
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/arzzra/media_core/pkg/checks"
	"github.com/arzzra/media_core/pkg/mediaerr"
)

// ErrQueueClosed возвращается RunSync после закрытия очереди.
var ErrQueueClosed = mediaerr.New(mediaerr.ErrorCodeQueueClosed, "очередь задач закрыта")

// TaskQueue последовательный контекст исполнения.
type TaskQueue interface {
	// PostTask ставит задачу в очередь. Не блокирует.
	PostTask(task func())
	// IsCurrent сообщает, исполняется ли вызывающий код на рабочей горутине очереди.
	IsCurrent() bool
}

var _ TaskQueue = (*Queue)(nil)

// Stats счетчики очереди.
type Stats struct {
	Posted   uint64
	Executed uint64
	Dropped  uint64 // задачи, поставленные после Close
	Panicked uint64
	Pending  int
}

// Option настройка очереди.
type Option func(*Queue)

// WithLogger задает логгер очереди.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// Queue очередь задач с одной рабочей горутиной.
type Queue struct {
	name   string
	logger *slog.Logger

	mu     sync.Mutex
	tasks  []func()
	closed bool

	wake chan struct{}
	done chan struct{}

	workerID atomic.Uint64

	posted   atomic.Uint64
	executed atomic.Uint64
	dropped  atomic.Uint64
	panicked atomic.Uint64
}

// New создает очередь и запускает ее рабочую горутину.
func New(name string, opts ...Option) *Queue {
	q := &Queue{
		name: name,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	q.logger = slog.Default().With(slog.String("component", "task_queue"), slog.String("queue", name))
	for _, opt := range opts {
		opt(q)
	}

	ready := make(chan struct{})
	go q.loop(ready)
	<-ready

	return q
}

// Name возвращает имя очереди.
func (q *Queue) Name() string {
	return q.name
}

// PostTask реализует TaskQueue.
func (q *Queue) PostTask(task func()) {
	q.post(task)
}

// IsCurrent реализует TaskQueue.
func (q *Queue) IsCurrent() bool {
	return checks.CurrentGoroutineID() == q.workerID.Load()
}

// RunSync ставит fn в очередь и ждет ее исполнения.
// Из рабочей горутины fn исполняется сразу.
func (q *Queue) RunSync(fn func()) error {
	if q.IsCurrent() {
		fn()
		return nil
	}

	finished := make(chan struct{})
	if !q.post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrQueueClosed
	}
	<-finished
	return nil
}

// Flush ждет исполнения всех задач, поставленных до вызова.
func (q *Queue) Flush() error {
	return q.RunSync(func() {})
}

// Close перестает принимать задачи, исполняет уже поставленные
// и останавливает рабочую горутину. Повторный вызов безопасен.
func (q *Queue) Close() {
	q.mu.Lock()
	alreadyClosed := q.closed
	q.closed = true
	q.mu.Unlock()

	q.signal()

	if !alreadyClosed {
		q.logger.Info("Очередь задач закрывается")
	}

	// Из собственной задачи ждать нельзя: горутина завершится после выхода из нее
	if q.IsCurrent() {
		return
	}
	<-q.done
}

// Stats возвращает снимок счетчиков.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	pending := len(q.tasks)
	q.mu.Unlock()

	return Stats{
		Posted:   q.posted.Load(),
		Executed: q.executed.Load(),
		Dropped:  q.dropped.Load(),
		Panicked: q.panicked.Load(),
		Pending:  pending,
	}
}

func (q *Queue) post(task func()) bool {
	if task == nil {
		return false
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.dropped.Add(1)
		return false
	}
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()

	q.posted.Add(1)
	q.signal()
	return true
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) loop(ready chan<- struct{}) {
	defer close(q.done)

	q.workerID.Store(checks.CurrentGoroutineID())
	close(ready)

	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			closed := q.closed
			q.mu.Unlock()
			if closed {
				return
			}
			<-q.wake
			continue
		}
		task := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		if len(q.tasks) == 0 {
			q.tasks = nil
		}
		q.mu.Unlock()

		q.run(task)
	}
}

// run исполняет задачу; паника задачи не останавливает очередь.
// Нарушения контракта пробрасываются дальше.
func (q *Queue) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			if v, ok := r.(*checks.ContractViolation); ok {
				panic(v)
			}
			q.panicked.Add(1)
			q.logger.Error("Паника в задаче очереди",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
		q.executed.Add(1)
	}()
	task()
}
