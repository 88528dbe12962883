package metrics

import "sync"

var _ Sink = (*Recorder)(nil)

// Sample одно записанное наблюдение.
type Sample struct {
	Name  string
	Kind  Kind
	Value int
}

// Recorder хранит наблюдения в памяти в порядке записи.
// Используется в тестах и для локальной диагностики.
type Recorder struct {
	mu      sync.Mutex
	samples []Sample
}

// NewRecorder создает пустой Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) HistogramBoolean(name string, sample bool) {
	r.add(name, KindBoolean, boolSample(sample))
}

func (r *Recorder) HistogramCounts100(name string, sample int) {
	r.add(name, KindCounts100, clampSample(KindCounts100, sample, 0))
}

func (r *Recorder) HistogramEnumeration(name string, sample, boundary int) {
	r.add(name, KindEnumeration, clampSample(KindEnumeration, sample, boundary))
}

func (r *Recorder) add(name string, kind Kind, value int) {
	r.mu.Lock()
	r.samples = append(r.samples, Sample{Name: name, Kind: kind, Value: value})
	r.mu.Unlock()
}

// All возвращает копию всех наблюдений в порядке записи.
func (r *Recorder) All() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

// Names возвращает имена наблюдений в порядке записи.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.samples))
	for _, s := range r.samples {
		names = append(names, s.Name)
	}
	return names
}

// Samples возвращает значения наблюдений с данным именем.
func (r *Recorder) Samples(name string) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var values []int
	for _, s := range r.samples {
		if s.Name == name {
			values = append(values, s.Value)
		}
	}
	return values
}

// NumSamples количество наблюдений с данным именем.
func (r *Recorder) NumSamples(name string) int {
	return len(r.Samples(name))
}

// NumEvents количество наблюдений с данным именем и значением.
func (r *Recorder) NumEvents(name string, value int) int {
	n := 0
	for _, v := range r.Samples(name) {
		if v == value {
			n++
		}
	}
	return n
}

// Len общее количество наблюдений.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

// Reset очищает Recorder.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.samples = nil
	r.mu.Unlock()
}
