package sendstream

import (
	"encoding/binary"
	"sync"
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arzzra/media_core/pkg/audio"
)

type packetCollector struct {
	mu      sync.Mutex
	packets []*rtp.Packet
}

func (c *packetCollector) sink(p *rtp.Packet) {
	c.mu.Lock()
	c.packets = append(c.packets, p)
	c.mu.Unlock()
}

func TestStream_Packetization(t *testing.T) {
	c := &packetCollector{}
	s := New(Config{SSRC: 0x1234, PayloadType: 96, Sink: c.sink})

	frame := &audio.AudioFrame{
		Data:              []int16{1, -1, 256, 0},
		SamplesPerChannel: 2,
		NumChannels:       2,
		SampleRateHz:      48000,
	}
	s.SendAudioData(frame)
	s.SendAudioData(frame)

	require.Len(t, c.packets, 2)
	first, second := c.packets[0], c.packets[1]

	assert.Equal(t, uint8(2), first.Version)
	assert.Equal(t, uint8(96), first.PayloadType)
	assert.Equal(t, uint32(0x1234), first.SSRC)
	assert.True(t, first.Marker, "маркер на первом пакете")
	assert.False(t, second.Marker)
	assert.Equal(t, first.SequenceNumber+1, second.SequenceNumber)
	assert.Equal(t, first.Timestamp+2, second.Timestamp)

	require.Len(t, first.Payload, 8)
	assert.Equal(t, uint16(1), binary.BigEndian.Uint16(first.Payload[0:]))
	assert.Equal(t, uint16(0xFFFF), binary.BigEndian.Uint16(first.Payload[2:]))
	assert.Equal(t, uint16(256), binary.BigEndian.Uint16(first.Payload[4:]))

	// Пакет сериализуется и разбирается обратно
	raw, err := first.Marshal()
	require.NoError(t, err)
	var parsed rtp.Packet
	require.NoError(t, parsed.Unmarshal(raw))
	assert.Equal(t, first.SequenceNumber, parsed.SequenceNumber)

	assert.Equal(t, uint64(2), s.PacketsSent())
	assert.Equal(t, uint64(16), s.OctetsSent())
	assert.Equal(t, uint32(0x1234), s.SSRC())
}

func TestStream_MutedFrame(t *testing.T) {
	c := &packetCollector{}
	s := New(Config{PayloadType: 11, Sink: c.sink})
	assert.NotZero(t, s.SSRC())

	s.SendAudioData(&audio.AudioFrame{Data: []int16{500, 500}, SamplesPerChannel: 2, NumChannels: 1, Muted: true})

	require.Len(t, c.packets, 1)
	assert.Equal(t, []byte{0, 0, 0, 0}, c.packets[0].Payload)
}

func TestStream_AsSendingStream(t *testing.T) {
	c := &packetCollector{}
	s := New(Config{PayloadType: 96, Sink: c.sink})

	tr := audio.NewAudioTransport(nopMixer{}, nil, nil)
	tr.UpdateSendingStreams([]audio.AudioSendStream{s}, 48000, 1)

	require.NoError(t, tr.RecordedDataIsAvailable(make([]int16, 480), 480, 1, 48000))
	require.Len(t, c.packets, 1)
	assert.Len(t, c.packets[0].Payload, 960)
}

type nopMixer struct{}

func (nopMixer) Mix(int, *audio.AudioFrame) {}
