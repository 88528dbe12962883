// Package sendstream исходящий аудио поток, упаковывающий кадры захвата
// в RTP пакеты (L16, RFC 3551).
package sendstream

import (
	"encoding/binary"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/pion/rtp"

	"github.com/arzzra/media_core/pkg/audio"
)

var _ audio.AudioSendStream = (*Stream)(nil)

// PacketSink получает готовые RTP пакеты.
type PacketSink func(packet *rtp.Packet)

// Config параметры потока.
type Config struct {
	SSRC        uint32 // 0 означает случайный
	PayloadType uint8
	Sink        PacketSink
}

// Stream упаковывает кадры в RTP. Безопасен для конкурентного использования.
type Stream struct {
	ssrc        uint32
	payloadType uint8
	sink        PacketSink

	mu             sync.Mutex
	sequenceNumber uint16
	timestamp      uint32
	started        bool

	packetsSent atomic.Uint64
	octetsSent  atomic.Uint64
}

// New создает поток.
func New(config Config) *Stream {
	ssrc := config.SSRC
	if ssrc == 0 {
		ssrc = rand.Uint32()
	}
	return &Stream{
		ssrc:           ssrc,
		payloadType:    config.PayloadType,
		sink:           config.Sink,
		sequenceNumber: uint16(rand.UintN(1 << 16)),
		timestamp:      rand.Uint32(),
	}
}

// SSRC идентификатор источника.
func (s *Stream) SSRC() uint32 {
	return s.ssrc
}

// SendAudioData реализует audio.AudioSendStream.
func (s *Stream) SendAudioData(frame *audio.AudioFrame) {
	samples := frame.Samples()
	payload := make([]byte, 2*len(samples))
	if !frame.Muted {
		for i, v := range samples {
			binary.BigEndian.PutUint16(payload[2*i:], uint16(v))
		}
	}

	s.mu.Lock()
	packet := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			Marker:         !s.started,
			PayloadType:    s.payloadType,
			SequenceNumber: s.sequenceNumber,
			Timestamp:      s.timestamp,
			SSRC:           s.ssrc,
		},
		Payload: payload,
	}
	s.started = true
	s.sequenceNumber++
	s.timestamp += uint32(frame.SamplesPerChannel)
	s.mu.Unlock()

	s.packetsSent.Add(1)
	s.octetsSent.Add(uint64(len(payload)))

	if s.sink != nil {
		s.sink(packet)
	}
}

// PacketsSent число отправленных пакетов.
func (s *Stream) PacketsSent() uint64 {
	return s.packetsSent.Load()
}

// OctetsSent число отправленных байт полезной нагрузки.
func (s *Stream) OctetsSent() uint64 {
	return s.octetsSent.Load()
}
