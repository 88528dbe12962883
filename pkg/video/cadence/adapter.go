package cadence

import (
	"log/slog"
	"sync/atomic"

	"github.com/arzzra/media_core/pkg/checks"
	"github.com/arzzra/media_core/pkg/clock"
	"github.com/arzzra/media_core/pkg/metrics"
	"github.com/arzzra/media_core/pkg/safety"
	"github.com/arzzra/media_core/pkg/taskqueue"
)

// Config параметры FrameCadenceAdapter.
type Config struct {
	Clock   clock.Clock
	Queue   taskqueue.TaskQueue
	Metrics metrics.Sink
	Logger  *slog.Logger

	// ZeroHertzScreenshareEnabled флаг полевого испытания. Только хранится.
	ZeroHertzScreenshareEnabled bool
}

// Option настраивает Config в New.
type Option func(*Config)

// WithMetrics задает приемник метрик. По умолчанию metrics.Nop.
func WithMetrics(sink metrics.Sink) Option {
	return func(c *Config) {
		c.Metrics = sink
	}
}

// WithLogger задает логгер.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithZeroHertzScreenshare задает флаг полевого испытания zero-hertz.
func WithZeroHertzScreenshare(enabled bool) Option {
	return func(c *Config) {
		c.ZeroHertzScreenshareEnabled = enabled
	}
}

// FrameCadenceAdapter переносит кадры производителя в очередь задач.
//
// OnFrame, OnDiscardedFrame и OnConstraintsChanged вызываются производителем
// (не более одного одновременно). SetZeroHertzModeEnabled вызывается на очереди.
// Close можно вызвать откуда угодно.
type FrameCadenceAdapter struct {
	clock   clock.Clock
	queue   taskqueue.TaskQueue
	metrics metrics.Sink
	logger  *slog.Logger

	zeroHertzScreenshareEnabled bool

	callback Callback

	// Состояние ниже принадлежит очереди.
	zeroHertzModeEnabled               bool
	hasReportedScreenshareFrameRateUma bool
	constraints                        *Constraints

	framesScheduled atomic.Int32
	incomingChecker checks.RaceChecker
	safety          *safety.ScopedTaskSafety
	closed          atomic.Bool
}

var _ Adapter = (*FrameCadenceAdapter)(nil)

// New создает адаптер, исполняющий задачи на queue.
func New(clk clock.Clock, queue taskqueue.TaskQueue, opts ...Option) *FrameCadenceAdapter {
	cfg := Config{Clock: clk, Queue: queue}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig создает адаптер из Config.
func NewWithConfig(cfg Config) *FrameCadenceAdapter {
	checks.DCheck(cfg.Queue != nil, "cadence: очередь задач не задана")

	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &FrameCadenceAdapter{
		clock:                       cfg.Clock,
		queue:                       cfg.Queue,
		metrics:                     cfg.Metrics,
		logger:                      cfg.Logger.With(slog.String("component", "frame_cadence_adapter")),
		zeroHertzScreenshareEnabled: cfg.ZeroHertzScreenshareEnabled,
		safety:                      safety.NewScopedTaskSafety(),
	}
}

// Initialize задает получателя кадров. Вызывается до первого кадра.
func (a *FrameCadenceAdapter) Initialize(callback Callback) {
	a.callback = callback
}

// ZeroHertzScreenshareEnabled возвращает флаг полевого испытания.
func (a *FrameCadenceAdapter) ZeroHertzScreenshareEnabled() bool {
	return a.zeroHertzScreenshareEnabled
}

// SetZeroHertzModeEnabled включает или выключает режим zero-hertz.
// Включение из выключенного состояния разрешает новый отчет о метриках.
func (a *FrameCadenceAdapter) SetZeroHertzModeEnabled(enabled bool) {
	checks.DCheck(a.queue.IsCurrent(), "SetZeroHertzModeEnabled вызван вне очереди")

	if enabled && !a.zeroHertzModeEnabled {
		a.hasReportedScreenshareFrameRateUma = false
	}
	a.zeroHertzModeEnabled = enabled
}

// OnFrame принимает кадр от производителя и ставит его обработку в очередь.
func (a *FrameCadenceAdapter) OnFrame(frame Frame) {
	release := checks.DCheckRunsSerialized(&a.incomingChecker, "OnFrame")
	defer release()

	postTime := a.clock.CurrentTime()
	a.framesScheduled.Add(1)
	a.queue.PostTask(safety.Wrap(a.safety.Flag(), func() {
		// Значение до декремента: кадр считает сам себя.
		scheduled := int(a.framesScheduled.Add(-1)) + 1
		if a.callback != nil {
			a.callback.OnFrame(postTime, scheduled, frame)
		}
		a.maybeReportFrameRateConstraintUmas()
	}))
}

// OnDiscardedFrame сразу передается получателю на горутине вызывающего.
func (a *FrameCadenceAdapter) OnDiscardedFrame() {
	if a.callback != nil {
		a.callback.OnDiscardedFrame()
	}
}

// OnConstraintsChanged сохраняет ограничения частоты на очереди.
func (a *FrameCadenceAdapter) OnConstraintsChanged(constraints Constraints) {
	a.logger.Info("ограничения частоты кадров изменились",
		slog.Int("min_fps", constraints.MinFPSOr(-1)),
		slog.Int("max_fps", constraints.MaxFPSOr(-1)))

	copied := constraints.clone()
	a.queue.PostTask(safety.Wrap(a.safety.Flag(), func() {
		a.constraints = &copied
	}))
}

// FramesScheduledForProcessing число кадров, поставленных в очередь и еще не обработанных.
func (a *FrameCadenceAdapter) FramesScheduledForProcessing() int {
	return int(a.framesScheduled.Load())
}

// Close делает все поставленные и будущие задачи адаптера пустыми.
func (a *FrameCadenceAdapter) Close() {
	if !a.closed.CompareAndSwap(false, true) {
		return
	}
	a.safety.Close()
	a.logger.Debug("адаптер закрыт",
		slog.Int("frames_scheduled", a.FramesScheduledForProcessing()))
}

func (a *FrameCadenceAdapter) maybeReportFrameRateConstraintUmas() {
	if a.hasReportedScreenshareFrameRateUma {
		return
	}
	a.hasReportedScreenshareFrameRateUma = true

	if !a.zeroHertzModeEnabled {
		return
	}

	a.metrics.HistogramBoolean(metricConstraintsExists, a.constraints != nil)
	if a.constraints == nil {
		return
	}

	c := *a.constraints
	a.metrics.HistogramBoolean(metricMinExists, c.HasMin())
	if c.HasMin() {
		a.metrics.HistogramCounts100(metricMinValue, *c.MinFPS)
	}
	a.metrics.HistogramBoolean(metricMaxExists, c.HasMax())
	if c.HasMax() {
		a.metrics.HistogramCounts100(metricMaxValue, *c.MaxFPS)
	}

	if !c.HasMin() {
		if c.HasMax() {
			a.metrics.HistogramCounts100(metricMinUnsetMax, *c.MaxFPS)
		}
		return
	}
	if c.HasMax() && *c.MinFPS < *c.MaxFPS {
		a.metrics.HistogramCounts100(metricMinLessThanMaxMin, *c.MinFPS)
		a.metrics.HistogramCounts100(metricMinLessThanMaxMax, *c.MaxFPS)
		a.metrics.HistogramEnumeration(metricMinPlusMaxMinusOne,
			*c.MinFPS*60+*c.MaxFPS-1, maxBucketCount)
	}
}
