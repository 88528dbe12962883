package checks

import "sync/atomic"

// RaceChecker обнаруживает одновременный вход в секцию из разных горутин.
// Не блокирует: второй вход не ждет, а получает ok == false.
// Повторный вход из горутины-владельца разрешен.
type RaceChecker struct {
	owner atomic.Uint64
	depth atomic.Int32
}

// Acquire пытается войти в секцию. release нужно вызвать при выходе,
// даже если ok == false.
func (r *RaceChecker) Acquire() (release func(), ok bool) {
	id := CurrentGoroutineID()
	if r.owner.CompareAndSwap(0, id) || r.owner.Load() == id {
		r.depth.Add(1)
		return func() {
			if r.depth.Add(-1) == 0 {
				r.owner.Store(0)
			}
		}, true
	}
	return func() {}, false
}

// DCheckRunsSerialized входит в секцию и проверяет отсутствие гонки.
// Возвращает функцию выхода из секции. В сборке release ничего не проверяет.
func DCheckRunsSerialized(r *RaceChecker, method string) func() {
	if !Enabled {
		return func() {}
	}
	release, ok := r.Acquire()
	DCheck(ok, "%s вызван одновременно из нескольких горутин", method)
	return release
}
