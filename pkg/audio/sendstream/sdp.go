package sendstream

import (
	"fmt"
	"net"
	"strconv"

	"github.com/pion/sdp/v3"

	"github.com/arzzra/media_core/pkg/audio"
	"github.com/arzzra/media_core/pkg/mediaerr"
)

// ErrNoAudioCodec в описании сессии нет подходящего аудио кодека.
var ErrNoAudioCodec = mediaerr.New(mediaerr.ErrorCodeAudioCodecUnsupported, "аудио кодек не найден в SDP")

// PropertiesFromSDP извлекает частоту и число каналов кодека payloadType
// из a=rtpmap описания сессии. Число каналов по умолчанию 1.
func PropertiesFromSDP(raw []byte, payloadType uint8) (audio.StreamProperties, error) {
	var desc sdp.SessionDescription
	if err := desc.Unmarshal(raw); err != nil {
		return audio.StreamProperties{}, mediaerr.Wrap(mediaerr.ErrorCodeSDPInvalid, "разбор SDP", err)
	}

	hasAudio := false
	for _, media := range desc.MediaDescriptions {
		if media.MediaName.Media == "audio" {
			hasAudio = true
			break
		}
	}
	if !hasAudio {
		return audio.StreamProperties{}, fmt.Errorf("%w: нет m=audio", ErrNoAudioCodec)
	}

	codec, err := desc.GetCodecForPayloadType(payloadType)
	if err != nil {
		return audio.StreamProperties{}, fmt.Errorf("%w: payload type %d: %v", ErrNoAudioCodec, payloadType, err)
	}
	if codec.ClockRate == 0 {
		return audio.StreamProperties{}, fmt.Errorf("%w: нет частоты для %s", ErrNoAudioCodec, codec.Name)
	}

	channels := 1
	if codec.EncodingParameters != "" {
		n, err := strconv.Atoi(codec.EncodingParameters)
		if err != nil || n <= 0 {
			return audio.StreamProperties{}, mediaerr.New(mediaerr.ErrorCodeSDPInvalid,
				fmt.Sprintf("некорректное число каналов %q для %s", codec.EncodingParameters, codec.Name))
		}
		channels = n
	}

	return audio.StreamProperties{
		SampleRateHz: int(codec.ClockRate),
		NumChannels:  channels,
	}, nil
}

// RemoteAddrFromSDP возвращает адрес назначения RTP первой m=audio секции:
// c= секции (или сессии) и порт из m=.
func RemoteAddrFromSDP(raw []byte) (string, error) {
	var desc sdp.SessionDescription
	if err := desc.Unmarshal(raw); err != nil {
		return "", mediaerr.Wrap(mediaerr.ErrorCodeSDPInvalid, "разбор SDP", err)
	}

	for _, media := range desc.MediaDescriptions {
		if media.MediaName.Media != "audio" {
			continue
		}

		conn := media.ConnectionInformation
		if conn == nil {
			conn = desc.ConnectionInformation
		}
		if conn == nil || conn.Address == nil || conn.Address.Address == "" {
			return "", mediaerr.New(mediaerr.ErrorCodeSDPInvalid, "нет c= для m=audio")
		}
		if media.MediaName.Port.Value <= 0 {
			return "", mediaerr.New(mediaerr.ErrorCodeSDPInvalid, "m=audio отклонена (порт 0)")
		}
		return net.JoinHostPort(conn.Address.Address, strconv.Itoa(media.MediaName.Port.Value)), nil
	}
	return "", fmt.Errorf("%w: нет m=audio", ErrNoAudioCodec)
}
