package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/pion/dtls/v2"
	"github.com/pion/rtp"

	"github.com/arzzra/media_core/pkg/mediaerr"
)

var _ Transport = (*DTLSTransport)(nil)

// DTLSConfig конфигурация DTLS транспорта с общим ключом (PSK).
type DTLSConfig struct {
	Config

	PSK              []byte
	PSKIdentityHint  []byte
	HandshakeTimeout time.Duration
	MTU              int
}

// DefaultDTLSConfig возвращает конфигурацию DTLS по умолчанию
func DefaultDTLSConfig() DTLSConfig {
	return DTLSConfig{
		Config:           DefaultConfig(),
		PSKIdentityHint:  []byte("media_core"),
		HandshakeTimeout: 10 * time.Second,
		MTU:              1200,
	}
}

// Validate проверяет конфигурацию.
func (c DTLSConfig) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if len(c.PSK) == 0 {
		return mediaerr.New(mediaerr.ErrorCodeConfigInvalid, "PSK не может быть пустым")
	}
	if c.HandshakeTimeout < 0 || c.MTU < 0 {
		return mediaerr.New(mediaerr.ErrorCodeConfigInvalid, "HandshakeTimeout и MTU не могут быть отрицательными")
	}
	return nil
}

func (c DTLSConfig) withDefaults() DTLSConfig {
	def := DefaultDTLSConfig()
	if c.BufferSize == 0 {
		c.BufferSize = MaxRTPPacketSize
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.MTU == 0 {
		c.MTU = def.MTU
	}
	return c
}

// buildDTLSConfig создает конфигурацию pion/dtls
func (c DTLSConfig) buildDTLSConfig() *dtls.Config {
	psk := append([]byte(nil), c.PSK...)
	timeout := c.HandshakeTimeout

	return &dtls.Config{
		PSK: func([]byte) ([]byte, error) {
			return psk, nil
		},
		PSKIdentityHint:      c.PSKIdentityHint,
		CipherSuites:         []dtls.CipherSuiteID{dtls.TLS_PSK_WITH_AES_128_GCM_SHA256, dtls.TLS_PSK_WITH_AES_128_CCM_8},
		ExtendedMasterSecret: dtls.RequireExtendedMasterSecret,
		MTU:                  c.MTU,
		ConnectContextMaker: func() (context.Context, func()) {
			return context.WithTimeout(context.Background(), timeout)
		},
	}
}

// DTLSTransport шифрованный транспорт RTP поверх установленного DTLS соединения.
type DTLSTransport struct {
	conn       *dtls.Conn
	remoteAddr net.Addr
	config     DTLSConfig

	active bool
	mutex  sync.RWMutex
}

// DialDTLS устанавливает DTLS соединение с config.RemoteAddr как клиент.
func DialDTLS(ctx context.Context, config DTLSConfig) (*DTLSTransport, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.RemoteAddr == "" {
		return nil, mediaerr.New(mediaerr.ErrorCodeConfigInvalid, "удаленный адрес обязателен для клиента")
	}
	config = config.withDefaults()

	raddr, err := net.ResolveUDPAddr("udp", config.RemoteAddr)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.ErrorCodeConfigInvalid, "разрешение удаленного адреса", err)
	}

	ctx, cancel := context.WithTimeout(ctx, config.HandshakeTimeout)
	defer cancel()

	conn, err := dtls.DialWithContext(ctx, "udp", raddr, config.buildDTLSConfig())
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.ErrorCodeTransportFailed, "DTLS рукопожатие клиента", err)
	}

	return newDTLSTransport(conn, config), nil
}

func newDTLSTransport(conn *dtls.Conn, config DTLSConfig) *DTLSTransport {
	return &DTLSTransport{
		conn:       conn,
		remoteAddr: conn.RemoteAddr(),
		config:     config,
		active:     true,
	}
}

// DTLSListener принимает входящие DTLS соединения.
type DTLSListener struct {
	listener net.Listener
	config   DTLSConfig
}

// ListenDTLS открывает DTLS сервер на config.LocalAddr.
func ListenDTLS(config DTLSConfig) (*DTLSListener, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()

	laddr, err := net.ResolveUDPAddr("udp", config.LocalAddr)
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.ErrorCodeConfigInvalid, "разрешение локального адреса", err)
	}

	listener, err := dtls.Listen("udp", laddr, config.buildDTLSConfig())
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.ErrorCodeTransportFailed, "создание DTLS сервера", err)
	}

	return &DTLSListener{listener: listener, config: config}, nil
}

// Addr локальный адрес сервера.
func (l *DTLSListener) Addr() net.Addr {
	return l.listener.Addr()
}

// Accept ждет клиента и завершает рукопожатие. Прерывается Close.
func (l *DTLSListener) Accept() (*DTLSTransport, error) {
	conn, err := l.listener.Accept()
	if err != nil {
		return nil, mediaerr.Wrap(mediaerr.ErrorCodeTransportFailed, "DTLS рукопожатие сервера", err)
	}

	dtlsConn, ok := conn.(*dtls.Conn)
	if !ok {
		conn.Close()
		return nil, mediaerr.New(mediaerr.ErrorCodeTransportFailed, "неожиданный тип соединения")
	}
	return newDTLSTransport(dtlsConn, l.config), nil
}

// Close закрывает сервер.
func (l *DTLSListener) Close() error {
	return l.listener.Close()
}

// Send отправляет RTP пакет через DTLS
func (t *DTLSTransport) Send(packet *rtp.Packet) error {
	t.mutex.RLock()
	active := t.active
	conn := t.conn
	t.mutex.RUnlock()

	if !active {
		return ErrTransportInactive
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

	if _, err := conn.Write(data); err != nil {
		return classifyNetworkError("DTLS write", err)
	}
	return nil
}

// Receive получает RTP пакет через DTLS
func (t *DTLSTransport) Receive(ctx context.Context) (*rtp.Packet, net.Addr, error) {
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
	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

	n, err := conn.Read(buffer)
	if err != nil {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}
		return nil, nil, classifyNetworkError("DTLS read", err)
	}

	packet := &rtp.Packet{}
	if err := packet.Unmarshal(buffer[:n]); err != nil {
		return nil, nil, mediaerr.Wrap(mediaerr.ErrorCodeRTPPacketInvalid, "демаршалинг RTP пакета", err)
	}
	if err := validateRTPHeader(&packet.Header); err != nil {
		return nil, nil, err
	}

	return packet, t.remoteAddr, nil
}

// LocalAddr возвращает локальный адрес
func (t *DTLSTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// RemoteAddr возвращает удаленный адрес
func (t *DTLSTransport) RemoteAddr() net.Addr {
	return t.remoteAddr
}

// Close закрывает DTLS соединение. Повторный вызов безопасен.
func (t *DTLSTransport) Close() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if !t.active {
		return nil
	}
	t.active = false

	if err := t.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return mediaerr.Wrap(mediaerr.ErrorCodeTransportFailed, "закрытие DTLS соединения", err)
	}
	return nil
}

// IsActive проверяет активность транспорта
func (t *DTLSTransport) IsActive() bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.active
}

// ExportKeyingMaterial экспортирует ключевой материал (RFC 5705), например для SRTP.
func (t *DTLSTransport) ExportKeyingMaterial(label string, context []byte, length int) ([]byte, error) {
	state := t.conn.ConnectionState()
	return state.ExportKeyingMaterial(label, context, length)
}
