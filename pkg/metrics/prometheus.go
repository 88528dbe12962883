package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var _ Sink = (*PrometheusSink)(nil)

// PrometheusSink экспортирует наблюдения как разреженные гистограммы:
// по одному счетчику на пару (имя метрики, значение).
//
// Значения приводятся к диапазону гистограммы, поэтому кардинальность
// метки sample ограничена границей перечисления.
type PrometheusSink struct {
	samples *prometheus.CounterVec
}

// NewPrometheusSink регистрирует счетчики в reg.
// Если reg == nil, используется prometheus.DefaultRegisterer.
func NewPrometheusSink(reg prometheus.Registerer, namespace string) *PrometheusSink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "media_core"
	}

	return &PrometheusSink{
		samples: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "histogram",
			Name:      "samples_total",
			Help:      "Number of recorded samples per histogram name and bucket",
		}, []string{"name", "kind", "sample"}),
	}
}

func (s *PrometheusSink) HistogramBoolean(name string, sample bool) {
	s.observe(name, KindBoolean, boolSample(sample))
}

func (s *PrometheusSink) HistogramCounts100(name string, sample int) {
	s.observe(name, KindCounts100, clampSample(KindCounts100, sample, 0))
}

func (s *PrometheusSink) HistogramEnumeration(name string, sample, boundary int) {
	s.observe(name, KindEnumeration, clampSample(KindEnumeration, sample, boundary))
}

func (s *PrometheusSink) observe(name string, kind Kind, value int) {
	s.samples.WithLabelValues(name, string(kind), strconv.Itoa(value)).Inc()
}
