// Package metrics приемник именованных наблюдений медиа ядра.
//
// Имена метрик являются частью внешнего контракта и передаются как есть.
// Все вызовы Sink работают по принципу fire-and-forget: ошибок нет,
// хранение определяется реализацией.
package metrics

// Sink принимает булевы флаги, счетчики и перечисления.
type Sink interface {
	// HistogramBoolean записывает булево наблюдение.
	HistogramBoolean(name string, sample bool)
	// HistogramCounts100 записывает счетчик в диапазоне [0, 100].
	HistogramCounts100(name string, sample int)
	// HistogramEnumeration записывает значение перечисления в [0, boundary].
	// Значения за границей попадают в переполнение boundary.
	HistogramEnumeration(name string, sample, boundary int)
}

// Kind вид наблюдения.
type Kind string

const (
	KindBoolean     Kind = "boolean"
	KindCounts100   Kind = "counts_100"
	KindEnumeration Kind = "enumeration"
)

const counts100Max = 100

// clampSample приводит значение к диапазону гистограммы.
func clampSample(kind Kind, sample, boundary int) int {
	hi := boundary
	if kind == KindCounts100 {
		hi = counts100Max
	}
	if sample < 0 {
		return 0
	}
	if sample > hi {
		return hi
	}
	return sample
}

func boolSample(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Nop отбрасывает все наблюдения.
type Nop struct{}

func (Nop) HistogramBoolean(string, bool)          {}
func (Nop) HistogramCounts100(string, int)         {}
func (Nop) HistogramEnumeration(string, int, int) {}
