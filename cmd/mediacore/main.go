// Команда mediacore собирает медиа ядро в один процесс: аудио сессию с
// симулированным устройством и исходящим RTP потоком, а также планировщик
// видеокадров с синтетическим источником. Метрики доступны на /metrics.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/rtp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sys/unix"

	"github.com/arzzra/media_core/pkg/audio"
	"github.com/arzzra/media_core/pkg/audio/sendstream"
	"github.com/arzzra/media_core/pkg/clock"
	"github.com/arzzra/media_core/pkg/metrics"
	"github.com/arzzra/media_core/pkg/taskqueue"
	"github.com/arzzra/media_core/pkg/video/cadence"
	"github.com/arzzra/media_core/pkg/voice"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("Некорректная конфигурация", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Завершение с ошибкой", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run работает до отмены ctx. Все вызовы State идут из горутины run.
func run(ctx context.Context, cfg Config) error {
	logger := slog.Default().With(slog.String("component", "mediacore"))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	sink := metrics.NewPrometheusSink(reg, "media_core")
	packetsSent := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "media_core",
		Subsystem: "audio",
		Name:      "rtp_packets_total",
		Help:      "RTP packets produced by the outgoing audio stream",
	})
	sendErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "media_core",
		Subsystem: "audio",
		Name:      "rtp_send_errors_total",
		Help:      "RTP packets the transport failed to send",
	})
	packetsReceived := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "media_core",
		Subsystem: "audio",
		Name:      "rtp_loopback_received_total",
		Help:      "RTP packets received by the local DTLS loopback server",
	})
	reg.MustRegister(packetsSent, sendErrors, packetsReceived)

	srv := startMetricsServer(cfg.MetricsAddr, reg, logger)

	// Аудио: устройство, движок, координатор и исходящий поток
	props, err := sendstream.PropertiesFromSDP(cfg.Offer(), cfg.PayloadType)
	if err != nil {
		return err
	}

	device := voice.NewSimulatedDevice(voice.SimulatedDeviceConfig{
		SampleRateHz: props.SampleRateHz,
		NumChannels:  props.NumChannels,
	}, nil)
	engine := voice.NewBase(device, nil)

	state := audio.Create(audio.Config{
		VoiceEngine:  engine,
		Mixer:        audio.SilenceMixer{},
		DeviceModule: device,
	})
	device.AttachTransport(state.Transport())

	out, closeTransport, err := openTransport(ctx, cfg, packetsReceived.Inc, logger)
	if err != nil {
		return err
	}

	stream := sendstream.New(sendstream.Config{
		PayloadType: cfg.PayloadType,
		Sink: func(packet *rtp.Packet) {
			if err := out.Send(packet); err != nil {
				sendErrors.Inc()
				return
			}
			packetsSent.Inc()
		},
	})
	state.AddSendingStream(stream, props.SampleRateHz, props.NumChannels)
	state.SetRecording(true)
	if cfg.Playout {
		engine.SetPlayout(true)
	} else {
		state.SetPlayout(false)
	}

	logger.Info("Аудио сессия запущена",
		slog.String("session_id", state.ID()),
		slog.Int("sample_rate_hz", props.SampleRateHz),
		slog.Int("num_channels", props.NumChannels),
		slog.Bool("playout", state.PlayoutEnabled()))

	// Видео: очередь кодера, планировщик и синтетический источник
	queue := taskqueue.New("encoder", taskqueue.WithLogger(slog.Default()))
	encoder := &frameCounter{}
	adapter := cadence.New(clock.RealClock(), queue,
		cadence.WithMetrics(sink),
		cadence.WithZeroHertzScreenshare(cfg.ZeroHertz))
	adapter.Initialize(encoder)
	queue.PostTask(func() { adapter.SetZeroHertzModeEnabled(cfg.ZeroHertz) })

	producerCtx, stopProducer := context.WithCancel(ctx)
	var producer sync.WaitGroup
	producer.Add(1)
	go func() {
		defer producer.Done()
		produceFrames(producerCtx, adapter, cfg)
	}()

	ticker := time.NewTicker(cfg.StatsInterval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			stats := state.AudioInputStats()
			logger.Info("Статистика",
				slog.Int("audio_level", stats.AudioLevel),
				slog.Float64("total_energy", stats.TotalEnergy),
				slog.Duration("total_duration", stats.TotalDuration),
				slog.Uint64("rtp_packets", stream.PacketsSent()),
				slog.Int64("video_frames", encoder.frames.Load()),
				slog.Int("frames_in_flight", adapter.FramesScheduledForProcessing()))
		}
	}

	logger.Info("Остановка")

	stopProducer()
	producer.Wait()
	adapter.Close()
	queue.Close()

	state.RemoveSendingStream(stream)
	state.SetPlayout(true)

	var errs []error
	if err := closeTransport(); err != nil {
		errs = append(errs, err)
	}
	if err := engine.Stop(); err != nil {
		errs = append(errs, err)
	}
	if status := state.Release(); status != audio.DroppedLastRef {
		logger.Warn("Остались ссылки на аудио сессию", slog.String("status", status.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	logger.Info("Остановлено",
		slog.Int64("video_frames", encoder.frames.Load()),
		slog.Int64("discarded_frames", encoder.discarded.Load()),
		slog.Int64("max_frames_in_flight", encoder.maxScheduled.Load()),
		slog.Uint64("rtp_packets", stream.PacketsSent()))

	return errors.Join(errs...)
}

func startMetricsServer(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Метрики доступны", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Сервер метрик остановлен", slog.String("error", err.Error()))
		}
	}()
	return srv
}

// produceFrames имитирует захват экрана: шлет ограничения частоты, затем
// кадры с частотой cfg.FrameRate. Каждый 50-й кадр отбрасывается источником.
func produceFrames(ctx context.Context, adapter cadence.Adapter, cfg Config) {
	constraints := cadence.Constraints{}
	if cfg.MinFPS > 0 {
		constraints.MinFPS = cadence.Int(cfg.MinFPS)
	}
	if cfg.MaxFPS > 0 {
		constraints.MaxFPS = cadence.Int(cfg.MaxFPS)
	}
	adapter.OnConstraintsChanged(constraints)

	ticker := time.NewTicker(time.Second / time.Duration(cfg.FrameRate))
	defer ticker.Stop()

	var id uint16
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			id++
			if id%50 == 0 {
				adapter.OnDiscardedFrame()
				continue
			}
			adapter.OnFrame(cadence.Frame{
				ID:           id,
				Width:        1280,
				Height:       720,
				RTPTimestamp: uint32(id) * uint32(90000/cfg.FrameRate),
				CaptureTime:  now,
			})
		}
	}
}

// frameCounter получатель кадров вместо кодера.
type frameCounter struct {
	frames       atomic.Int64
	discarded    atomic.Int64
	maxScheduled atomic.Int64
}

func (c *frameCounter) OnFrame(_ time.Time, scheduled int, _ cadence.Frame) {
	c.frames.Add(1)
	if n := int64(scheduled); n > c.maxScheduled.Load() {
		c.maxScheduled.Store(n)
	}
}

func (c *frameCounter) OnDiscardedFrame() {
	c.discarded.Add(1)
}
