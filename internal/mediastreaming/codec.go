// Package mediastreaming frames audio exchanged with a carrier's media
// streaming websocket. Decoded audio is always PCM16 mono at 24 kHz, the
// rate the realtime AI sessions speak.
package mediastreaming

import "errors"

var (
	ErrMalformedPacket = errors.New("malformed media streaming packet")
	ErrNoStream        = errors.New("media stream has not started")
)

// PacketKind classifies an inbound websocket message.
type PacketKind string

const (
	PacketAudio    PacketKind = "audio"
	PacketMetadata PacketKind = "metadata"
	PacketDTMF     PacketKind = "dtmf"
	PacketStart    PacketKind = "start"
	PacketStop     PacketKind = "stop"
	PacketUnknown  PacketKind = "unknown"
)

// Packet is one decoded inbound message.
type Packet struct {
	Kind PacketKind
	// Audio is PCM16 24 kHz mono for PacketAudio.
	Audio            []byte
	Silent           bool
	ParticipantRawID string
	Timestamp        string
	Tone             string
	StreamID         string
	SampleRate       int
	Encoding         string
	// Type is the raw kind or event name, kept for logging unknown packets.
	Type string
}

// Codec translates between carrier framing and raw PCM. A Codec belongs to
// one connection and may keep per-stream state.
type Codec interface {
	Decode(msg []byte) (Packet, error)
	EncodeAudio(pcm []byte) ([]byte, error)
	EncodeStopAudio() ([]byte, error)
}
