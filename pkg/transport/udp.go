package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pion/rtp"

	"github.com/arzzra/media_core/pkg/mediaerr"
)

// Ограничения размера и заголовка RTP пакета (RFC 3550)
const (
	MinRTPPacketSize   = 12   // Минимальный размер RTP заголовка
	MaxRTPPacketSize   = 1500 // MTU
	ExpectedRTPVersion = 2
)

// ErrTransportInactive транспорт закрыт.
var ErrTransportInactive = mediaerr.New(mediaerr.ErrorCodeTransportInactive, "транспорт не активен")

var _ Transport = (*UDPTransport)(nil)

// UDPTransport реализует Transport для UDP
type UDPTransport struct {
	conn       *net.UDPConn
	remoteAddr *net.UDPAddr
	config     Config

	active bool
	mutex  sync.RWMutex
}

// NewUDPTransport создает новый UDP транспорт для RTP
func NewUDPTransport(config Config) (*UDPTransport, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.BufferSize == 0 {
		config.BufferSize = MaxRTPPacketSize
	}

	localAddr, err := net.ResolveUDPAddr("udp", config.LocalAddr)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.ErrorCodeConfigInvalid, "разрешение локального адреса", err)
	}

	conn, err := net.ListenUDP("udp", localAddr)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.ErrorCodeTransportFailed, "создание UDP соединения", err)
	}

	if err := setSockOptForVoice(conn, config.DSCP); err != nil {
		conn.Close()
		return nil, mediaerr.Wrap(mediaerr.ErrorCodeTransportFailed, "настройка сокета", err)
	}

	t := &UDPTransport{
		conn:   conn,
		config: config,
		active: true,
	}

	if config.RemoteAddr != "" {
		if err := t.SetRemoteAddr(config.RemoteAddr); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return t, nil
}

// Send отправляет RTP пакет по UDP
func (t *UDPTransport) Send(packet *rtp.Packet) error {
	t.mutex.RLock()
	active := t.active
	conn := t.conn
	remoteAddr := t.remoteAddr
	t.mutex.RUnlock()

	if !active {
		return ErrTransportInactive
	}
	if remoteAddr == nil {
		return mediaerr.New(mediaerr.ErrorCodeTransportFailed, "удаленный адрес не установлен")
	}

	if err := validateRTPHeader(&packet.Header); err != nil {
		return err
	}

	data, err := packet.Marshal()
	if err != nil {
		return mediaerr.Wrap(mediaerr.ErrorCodeRTPPacketInvalid, "маршалинг RTP пакета", err)
	}
	if err := validatePacketSize(len(data)); err != nil {
		return err
	}

	if _, err := conn.WriteToUDP(data, remoteAddr); err != nil {
		return classifyNetworkError("UDP write", err)
	}
	return nil
}

// Receive получает RTP пакет по UDP. Первый источник становится удаленным адресом,
// если он не был задан.
func (t *UDPTransport) Receive(ctx context.Context) (*rtp.Packet, net.Addr, error) {
	t.mutex.RLock()
	active := t.active
	conn := t.conn
	bufferSize := t.config.BufferSize
	t.mutex.RUnlock()

	if !active {
		return nil, nil, ErrTransportInactive
	}

	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	default:
	}

	buffer := make([]byte, bufferSize)

	// Таймаут чтения, чтобы вызывающий мог проверить ctx
	deadline := time.Now().Add(100 * time.Millisecond)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetReadDeadline(deadline)

	n, addr, err := conn.ReadFromUDP(buffer)
	if err != nil {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}
		return nil, nil, classifyNetworkError("UDP read", err)
	}

	if err := validatePacketSize(n); err != nil {
		return nil, nil, err
	}

	t.mutex.Lock()
	if t.remoteAddr == nil {
		t.remoteAddr = addr
	}
	t.mutex.Unlock()

	packet := &rtp.Packet{}
	if err := packet.Unmarshal(buffer[:n]); err != nil {
		return nil, nil, mediaerr.Wrap(mediaerr.ErrorCodeRTPPacketInvalid, "демаршалинг RTP пакета", err)
	}
	if err := validateRTPHeader(&packet.Header); err != nil {
		return nil, nil, err
	}

	return packet, addr, nil
}

// LocalAddr возвращает локальный адрес
func (t *UDPTransport) LocalAddr() net.Addr {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if t.conn == nil {
		return nil
	}
	return t.conn.LocalAddr()
}

// RemoteAddr возвращает удаленный адрес
func (t *UDPTransport) RemoteAddr() net.Addr {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if t.remoteAddr == nil {
		return nil
	}
	return t.remoteAddr
}

// SetRemoteAddr устанавливает удаленный адрес
func (t *UDPTransport) SetRemoteAddr(addr string) error {
	remoteAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return mediaerr.Wrap(mediaerr.ErrorCodeConfigInvalid, "разрешение удаленного адреса", err)
	}

	t.mutex.Lock()
	t.remoteAddr = remoteAddr
	t.mutex.Unlock()
	return nil
}

// Close закрывает транспорт. Повторный вызов безопасен.
func (t *UDPTransport) Close() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if !t.active {
		return nil
	}
	t.active = false

	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}

// IsActive проверяет активность транспорта
func (t *UDPTransport) IsActive() bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.active
}

// setSockOptForVoice применяет платформенные настройки голосового сокета.
func setSockOptForVoice(conn *net.UDPConn, dscp int) error {
	rawConn, err := conn.SyscallConn()
	if err != nil {
		return err
	}

	var sockErr error
	err = rawConn.Control(func(fd uintptr) {
		sockErr = applyVoiceSockOpts(int(fd), dscp)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// validatePacketSize проверяет размер пакета
func validatePacketSize(size int) error {
	if size < MinRTPPacketSize || size > MaxRTPPacketSize {
		return mediaerr.New(mediaerr.ErrorCodeRTPPacketInvalid,
			fmt.Sprintf("размер пакета %d вне диапазона %d..%d", size, MinRTPPacketSize, MaxRTPPacketSize)).
			WithContext("size", size)
	}
	return nil
}

// validateRTPHeader проверяет корректность RTP заголовка согласно RFC 3550
func validateRTPHeader(header *rtp.Header) error {
	if header.Version != ExpectedRTPVersion {
		return mediaerr.New(mediaerr.ErrorCodeRTPPacketInvalid,
			fmt.Sprintf("неподдерживаемая версия RTP: %d", header.Version))
	}
	if header.PayloadType > 127 {
		return mediaerr.New(mediaerr.ErrorCodeRTPPacketInvalid,
			fmt.Sprintf("невалидный payload type: %d", header.PayloadType))
	}
	return nil
}

// classifyNetworkError оборачивает сетевую ошибку, отмечая таймауты.
func classifyNetworkError(operation string, err error) error {
	if err == nil {
		return nil
	}

	wrapped := mediaerr.Wrap(mediaerr.ErrorCodeTransportFailed, operation, err)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		wrapped.WithContext("timeout", true)
	}
	return wrapped
}

// IsTimeout сообщает, что ошибка транспорта вызвана таймаутом чтения.
func IsTimeout(err error) bool {
	var mediaErr *mediaerr.MediaError
	if !errors.As(err, &mediaErr) {
		return false
	}
	timeout, _ := mediaErr.GetContext("timeout").(bool)
	return timeout
}
