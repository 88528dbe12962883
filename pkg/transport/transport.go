// Package transport доставляет RTP пакеты исходящих потоков по сети.
//
// UDPTransport настраивает сокет для голосового трафика (DSCP, приоритет
// сокета на Linux) и проверяет пакеты перед отправкой и после приема.
package transport

import (
	"context"
	"net"

	"github.com/pion/rtp"

	"github.com/arzzra/media_core/pkg/mediaerr"
)

// Transport определяет интерфейс для транспортировки RTP пакетов
type Transport interface {
	// Send отправляет RTP пакет
	Send(packet *rtp.Packet) error

	// Receive получает RTP пакет с указанием источника
	Receive(ctx context.Context) (*rtp.Packet, net.Addr, error)

	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	Close() error
	IsActive() bool
}

// DSCP класс Expedited Forwarding (RFC 3246) для интерактивного голоса.
const DSCPExpeditedForwarding = 46

// Config конфигурация транспорта
type Config struct {
	LocalAddr  string // Локальный адрес для привязки
	RemoteAddr string // Удаленный адрес для отправки (опционально)
	BufferSize int    // Размер буфера для чтения
	DSCP       int    // 0 оставляет маркировку системы
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		LocalAddr:  "127.0.0.1:0",
		BufferSize: MaxRTPPacketSize,
		DSCP:       DSCPExpeditedForwarding,
	}
}

// Validate проверяет конфигурацию.
func (c Config) Validate() error {
	if c.LocalAddr == "" {
		return mediaerr.New(mediaerr.ErrorCodeConfigInvalid, "LocalAddr не может быть пустым")
	}
	if c.BufferSize < 0 {
		return mediaerr.New(mediaerr.ErrorCodeConfigInvalid, "BufferSize не может быть отрицательным").
			WithContext("buffer_size", c.BufferSize)
	}
	if c.DSCP < 0 || c.DSCP > 63 {
		return mediaerr.New(mediaerr.ErrorCodeConfigInvalid, "DSCP должен быть в диапазоне 0..63").
			WithContext("dscp", c.DSCP)
	}
	return nil
}
