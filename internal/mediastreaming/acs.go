package mediastreaming

import (
	"callautomation-server/internal/voice/audio"
	"encoding/json"
	"fmt"
)

// Communication Services packet kinds.
const (
	KindAudioMetadata = "AudioMetadata"
	KindAudioData     = "AudioData"
	KindDtmfData      = "DtmfData"
	KindStopAudio     = "StopAudio"
)

type acsInbound struct {
	Kind          string `json:"kind"`
	AudioMetadata *struct {
		SubscriptionID string `json:"subscriptionId"`
		Encoding       string `json:"encoding"`
		SampleRate     int    `json:"sampleRate"`
		Channels       int    `json:"channels"`
		Length         int    `json:"length"`
	} `json:"audioMetadata"`
	AudioData *struct {
		Timestamp        string `json:"timestamp"`
		ParticipantRawID string `json:"participantRawID"`
		Data             string `json:"data"`
		Silent           bool   `json:"silent"`
	} `json:"audioData"`
	DtmfData *struct {
		Data string `json:"data"`
	} `json:"dtmfData"`
}

type acsOutboundAudio struct {
	Data string `json:"data"`
}

type acsOutbound struct {
	Kind      string            `json:"kind"`
	AudioData *acsOutboundAudio `json:"audioData,omitempty"`
	StopAudio *struct{}         `json:"stopAudio,omitempty"`
}

// ACSCodec speaks the Communication Services bidirectional streaming format
// with PCM 24 kHz mono audio.
type ACSCodec struct{}

func NewACSCodec() *ACSCodec {
	return &ACSCodec{}
}

func (ACSCodec) Decode(msg []byte) (Packet, error) {
	var in acsInbound
	if err := json.Unmarshal(msg, &in); err != nil {
		return Packet{}, fmt.Errorf("%w: %v", ErrMalformedPacket, err)
	}

	switch in.Kind {
	case KindAudioData:
		if in.AudioData == nil {
			return Packet{}, fmt.Errorf("%w: audioData missing", ErrMalformedPacket)
		}
		pcm, err := audio.Base64ToBytes(in.AudioData.Data)
		if err != nil {
			return Packet{}, fmt.Errorf("%w: %v", ErrMalformedPacket, err)
		}
		return Packet{
			Kind:             PacketAudio,
			Type:             in.Kind,
			Audio:            pcm,
			Silent:           in.AudioData.Silent,
			ParticipantRawID: in.AudioData.ParticipantRawID,
			Timestamp:        in.AudioData.Timestamp,
		}, nil

	case KindAudioMetadata:
		p := Packet{Kind: PacketMetadata, Type: in.Kind}
		if in.AudioMetadata != nil {
			p.StreamID = in.AudioMetadata.SubscriptionID
			p.SampleRate = in.AudioMetadata.SampleRate
			p.Encoding = in.AudioMetadata.Encoding
		}
		return p, nil

	case KindDtmfData:
		p := Packet{Kind: PacketDTMF, Type: in.Kind}
		if in.DtmfData != nil {
			p.Tone = in.DtmfData.Data
		}
		return p, nil

	default:
		return Packet{Kind: PacketUnknown, Type: in.Kind}, nil
	}
}

func (ACSCodec) EncodeAudio(pcm []byte) ([]byte, error) {
	return json.Marshal(acsOutbound{
		Kind:      KindAudioData,
		AudioData: &acsOutboundAudio{Data: audio.BytesToBase64(pcm)},
	})
}

func (ACSCodec) EncodeStopAudio() ([]byte, error) {
	return json.Marshal(acsOutbound{Kind: KindStopAudio, StopAudio: &struct{}{}})
}
