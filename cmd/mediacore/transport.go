package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/arzzra/media_core/pkg/transport"
)

// openTransport открывает транспорт исходящего потока. С MEDIACORE_RTP_DTLS_PSK
// процесс сам поднимает DTLS сервер и отправляет пакеты ему через DTLS клиент;
// onReceive вызывается для каждого принятого сервером пакета.
func openTransport(ctx context.Context, cfg Config, onReceive func(), logger *slog.Logger) (transport.Transport, func() error, error) {
	tc, err := cfg.TransportConfig()
	if err != nil {
		return nil, nil, err
	}

	if cfg.RTPDTLSPSK == "" {
		udp, err := transport.NewUDPTransport(tc)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("RTP по UDP", slog.String("remote", tc.RemoteAddr))
		return udp, udp.Close, nil
	}

	dc := transport.DefaultDTLSConfig()
	dc.LocalAddr = tc.LocalAddr
	dc.PSK = []byte(cfg.RTPDTLSPSK)

	listener, err := transport.ListenDTLS(dc)
	if err != nil {
		return nil, nil, err
	}

	recvCtx, stopRecv := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		receiveLoop(recvCtx, listener, onReceive, logger)
	}()

	dc.RemoteAddr = listener.Addr().String()
	client, err := transport.DialDTLS(ctx, dc)
	if err != nil {
		stopRecv()
		listener.Close()
		wg.Wait()
		return nil, nil, err
	}
	logger.Info("RTP по DTLS (петля)", slog.String("server", dc.RemoteAddr))

	closeFn := func() error {
		err := client.Close()
		stopRecv()
		err = errors.Join(err, listener.Close())
		wg.Wait()
		return err
	}
	return client, closeFn, nil
}

func receiveLoop(ctx context.Context, listener *transport.DTLSListener, onReceive func(), logger *slog.Logger) {
	server, err := listener.Accept()
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("DTLS сервер не принял соединение", slog.String("error", err.Error()))
		}
		return
	}
	defer server.Close()

	for ctx.Err() == nil {
		if _, _, err := server.Receive(ctx); err != nil {
			if transport.IsTimeout(err) {
				continue
			}
			if ctx.Err() == nil {
				logger.Debug("DTLS прием остановлен", slog.String("error", err.Error()))
			}
			return
		}
		onReceive()
	}
}
