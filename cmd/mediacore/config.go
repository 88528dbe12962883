package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/arzzra/media_core/pkg/audio/sendstream"
	"github.com/arzzra/media_core/pkg/mediaerr"
	"github.com/arzzra/media_core/pkg/transport"
)

// defaultOffer описание сессии, из которого берутся параметры исходящего потока,
// если MEDIACORE_SDP_OFFER не задан.
const defaultOffer = "v=0\r\n" +
	"o=- 3652197614 1 IN IP4 127.0.0.1\r\n" +
	"s=mediacore\r\n" +
	"t=0 0\r\n" +
	"m=audio 5004 RTP/AVP 96 0\r\n" +
	"c=IN IP4 127.0.0.1\r\n" +
	"a=rtpmap:96 L16/48000/1\r\n" +
	"a=rtpmap:0 PCMU/8000\r\n"

// Config настройки демонстрационного процесса.
type Config struct {
	MetricsAddr   string        `env:"MEDIACORE_METRICS_ADDR" envDefault:":9464"`
	LogLevel      string        `env:"MEDIACORE_LOG_LEVEL" envDefault:"info"`
	FrameRate     int           `env:"MEDIACORE_FRAME_RATE" envDefault:"30"`
	ZeroHertz     bool          `env:"MEDIACORE_ZERO_HERTZ" envDefault:"true"`
	MinFPS        int           `env:"MEDIACORE_MIN_FPS" envDefault:"5"`
	MaxFPS        int           `env:"MEDIACORE_MAX_FPS" envDefault:"30"`
	Playout       bool          `env:"MEDIACORE_PLAYOUT" envDefault:"false"`
	PayloadType   uint8         `env:"MEDIACORE_PAYLOAD_TYPE" envDefault:"96"`
	SDPOffer      string        `env:"MEDIACORE_SDP_OFFER"`
	StatsInterval time.Duration `env:"MEDIACORE_STATS_INTERVAL" envDefault:"5s"`
	RTPLocalAddr  string        `env:"MEDIACORE_RTP_LOCAL_ADDR" envDefault:"127.0.0.1:0"`
	RTPRemoteAddr string        `env:"MEDIACORE_RTP_REMOTE_ADDR"`
	RTPDSCP       int           `env:"MEDIACORE_RTP_DSCP" envDefault:"46"`
	RTPDTLSPSK    string        `env:"MEDIACORE_RTP_DTLS_PSK"`
}

// loadConfig читает Config из переменных окружения и проверяет его.
func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	if c.FrameRate <= 0 {
		return invalid("MEDIACORE_FRAME_RATE должен быть больше 0", c.FrameRate)
	}
	if c.MinFPS < 0 || c.MaxFPS < 0 {
		return invalid("MEDIACORE_MIN_FPS и MEDIACORE_MAX_FPS не могут быть отрицательными", c.MinFPS)
	}
	if c.StatsInterval <= 0 {
		return invalid("MEDIACORE_STATS_INTERVAL должен быть больше 0", c.StatsInterval)
	}
	if c.RTPDSCP < 0 || c.RTPDSCP > 63 {
		return invalid("MEDIACORE_RTP_DSCP должен быть в диапазоне 0..63", c.RTPDSCP)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return mediaerr.Wrap(mediaerr.ErrorCodeConfigInvalid, "MEDIACORE_LOG_LEVEL", err)
	}
	return nil
}

// Offer возвращает описание сессии для исходящего потока.
func (c Config) Offer() []byte {
	if c.SDPOffer != "" {
		return []byte(c.SDPOffer)
	}
	return []byte(defaultOffer)
}

// TransportConfig параметры UDP транспорта исходящего потока.
// Без MEDIACORE_RTP_REMOTE_ADDR адрес назначения берется из описания сессии.
func (c Config) TransportConfig() (transport.Config, error) {
	remote := c.RTPRemoteAddr
	if remote == "" {
		addr, err := sendstream.RemoteAddrFromSDP(c.Offer())
		if err != nil {
			return transport.Config{}, err
		}
		remote = addr
	}

	cfg := transport.DefaultConfig()
	cfg.LocalAddr = c.RTPLocalAddr
	cfg.RemoteAddr = remote
	cfg.DSCP = c.RTPDSCP
	return cfg, nil
}

// SlogLevel уровень логирования. Config должен пройти Validate.
func (c Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

func invalid(message string, value interface{}) error {
	return mediaerr.New(mediaerr.ErrorCodeConfigInvalid, message).WithContext("value", value)
}
