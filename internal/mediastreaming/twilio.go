package mediastreaming

import (
	"callautomation-server/internal/voice/audio"
	"encoding/json"
	"fmt"
	"sync"
)

// MediaEvent is a Twilio media stream message.
type MediaEvent struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid,omitempty"`
	Start     *struct {
		StreamSid   string `json:"streamSid"`
		CallSid     string `json:"callSid"`
		MediaFormat struct {
			Encoding   string `json:"encoding"`
			SampleRate int    `json:"sampleRate"`
			Channels   int    `json:"channels"`
		} `json:"mediaFormat"`
	} `json:"start,omitempty"`
	Media *struct {
		Track     string `json:"track,omitempty"`
		Timestamp string `json:"timestamp,omitempty"`
		Payload   string `json:"payload"`
	} `json:"media,omitempty"`
	Stop *struct {
		StreamSid string `json:"streamSid"`
	} `json:"stop,omitempty"`
	DTMF *struct {
		Digit string `json:"digit"`
	} `json:"dtmf,omitempty"`
}

type twilioOutboundMedia struct {
	Payload string `json:"payload"`
}

type twilioOutbound struct {
	Event     string               `json:"event"`
	StreamSid string               `json:"streamSid"`
	Media     *twilioOutboundMedia `json:"media,omitempty"`
}

// TwilioCodec speaks the Twilio media streams format. Twilio carries µ-law
// at 8 kHz, so audio is transcoded in both directions. Outbound messages
// need the stream sid announced by the start event.
type TwilioCodec struct {
	mu        sync.RWMutex
	streamSid string
}

func NewTwilioCodec() *TwilioCodec {
	return &TwilioCodec{}
}

func (t *TwilioCodec) Decode(msg []byte) (Packet, error) {
	var ev MediaEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		return Packet{}, fmt.Errorf("%w: %v", ErrMalformedPacket, err)
	}

	switch ev.Event {
	case "connected":
		return Packet{Kind: PacketMetadata, Type: ev.Event}, nil

	case "start":
		if ev.Start == nil || ev.Start.StreamSid == "" {
			return Packet{}, fmt.Errorf("%w: start without streamSid", ErrMalformedPacket)
		}
		t.mu.Lock()
		t.streamSid = ev.Start.StreamSid
		t.mu.Unlock()
		return Packet{
			Kind:       PacketStart,
			Type:       ev.Event,
			StreamID:   ev.Start.StreamSid,
			SampleRate: ev.Start.MediaFormat.SampleRate,
			Encoding:   ev.Start.MediaFormat.Encoding,
		}, nil

	case "media":
		if ev.Media == nil {
			return Packet{}, fmt.Errorf("%w: media without payload", ErrMalformedPacket)
		}
		mulaw, err := audio.Base64ToBytes(ev.Media.Payload)
		if err != nil {
			return Packet{}, fmt.Errorf("%w: %v", ErrMalformedPacket, err)
		}
		return Packet{
			Kind:      PacketAudio,
			Type:      ev.Event,
			Audio:     audio.ConvertMuLawToPCM24kHz(mulaw),
			Timestamp: ev.Media.Timestamp,
			StreamID:  ev.StreamSid,
		}, nil

	case "dtmf":
		p := Packet{Kind: PacketDTMF, Type: ev.Event, StreamID: ev.StreamSid}
		if ev.DTMF != nil {
			p.Tone = ev.DTMF.Digit
		}
		return p, nil

	case "stop":
		p := Packet{Kind: PacketStop, Type: ev.Event, StreamID: ev.StreamSid}
		if ev.Stop != nil && ev.Stop.StreamSid != "" {
			p.StreamID = ev.Stop.StreamSid
		}
		return p, nil

	default:
		return Packet{Kind: PacketUnknown, Type: ev.Event}, nil
	}
}

func (t *TwilioCodec) EncodeAudio(pcm []byte) ([]byte, error) {
	streamSid, err := t.stream()
	if err != nil {
		return nil, err
	}
	return json.Marshal(twilioOutbound{
		Event:     "media",
		StreamSid: streamSid,
		Media:     &twilioOutboundMedia{Payload: audio.BytesToBase64(audio.ConvertPCM24kHzToMuLaw8kHz(pcm))},
	})
}

// EncodeStopAudio clears audio Twilio has buffered but not yet played.
func (t *TwilioCodec) EncodeStopAudio() ([]byte, error) {
	streamSid, err := t.stream()
	if err != nil {
		return nil, err
	}
	return json.Marshal(twilioOutbound{Event: "clear", StreamSid: streamSid})
}

func (t *TwilioCodec) stream() (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.streamSid == "" {
		return "", ErrNoStream
	}
	return t.streamSid, nil
}
