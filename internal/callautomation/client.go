package callautomation

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrRequestFailed is wrapped by every error the service itself reports.
	ErrRequestFailed = errors.New("call automation request failed")
	// ErrUnsupported is returned when a backend cannot perform an operation.
	ErrUnsupported = errors.New("operation not supported by this carrier")
)

//go:generate go run go.uber.org/mock/mockgen@latest -source=client.go -destination=mocks/mock_client.go -package=mocks

// Client is the subset of the call-automation service the dispatchers use.
// Every method blocks until the service accepted or rejected the request.
type Client interface {
	CreateCall(ctx context.Context, opts CreateCallOptions) (CallConnectionProperties, error)
	AnswerCall(ctx context.Context, opts AnswerCallOptions) (CallConnectionProperties, error)
	GetCallConnection(ctx context.Context, callConnectionID string) (CallConnectionProperties, error)
	Play(ctx context.Context, callConnectionID string, opts PlayOptions) error
	StartRecognizing(ctx context.Context, callConnectionID string, opts RecognizeOptions) error
	HangUp(ctx context.Context, callConnectionID string, forEveryone bool) error
}

// CreateCallOptions describes an outbound call.
type CreateCallOptions struct {
	Target                    string // E.164 phone number
	CallerID                  string // E.164 phone number
	CallbackURL               string
	CognitiveServicesEndpoint string
	OperationContext          string
}

// AnswerCallOptions describes how to answer an incoming call.
type AnswerCallOptions struct {
	IncomingCallContext       string
	CallbackURL               string
	CognitiveServicesEndpoint string
	MediaStreaming            *MediaStreamingOptions
	OperationContext          string
}

// MediaStreamingOptions asks the service to stream call audio to a websocket.
type MediaStreamingOptions struct {
	TransportURL        string
	TransportType       string
	ContentType         string
	AudioChannelType    string
	StartMediaStreaming bool
	EnableBidirectional bool
	AudioFormat         string
}

// Media streaming option values.
const (
	TransportWebsocket  = "websocket"
	ContentTypeAudio    = "audio"
	AudioChannelUnmixed = "unmixed"
	AudioChannelMixed   = "mixed"
	AudioFormatPCM24K   = "pcm24KMono"
	AudioFormatPCM16K   = "pcm16KMono"
)

// StreamingToWebsocket returns bidirectional 24 kHz mono streaming to the
// given websocket URL, started as soon as the call connects.
func StreamingToWebsocket(transportURL string) *MediaStreamingOptions {
	return &MediaStreamingOptions{
		TransportURL:        transportURL,
		TransportType:       TransportWebsocket,
		ContentType:         ContentTypeAudio,
		AudioChannelType:    AudioChannelUnmixed,
		StartMediaStreaming: true,
		EnableBidirectional: true,
		AudioFormat:         AudioFormatPCM24K,
	}
}

// CallConnectionProperties is the state of a call connection.
type CallConnectionProperties struct {
	CallConnectionID           string
	ServerCallID               string
	CorrelationID              string
	CallConnectionState        string
	CallbackURL                string
	Source                     string
	Targets                    []string
	MediaStreamingSubscription *MediaStreamingSubscription
}

// MediaStreamingSubscription reports the streaming state of a connection.
type MediaStreamingSubscription struct {
	ID                     string
	State                  string
	SubscribedContentTypes []string
}

// PlaySourceKind selects how a prompt is rendered.
type PlaySourceKind string

const (
	PlaySourceText PlaySourceKind = "text"
	PlaySourceFile PlaySourceKind = "file"
)

// PlaySource is a prompt: synthesized text or an audio file URL.
type PlaySource struct {
	Kind      PlaySourceKind
	Text      string
	VoiceName string
	URL       string
}

// TextSource builds a text-to-speech play source.
func TextSource(text, voiceName string) PlaySource {
	return PlaySource{Kind: PlaySourceText, Text: text, VoiceName: voiceName}
}

// FileSource builds an audio file play source.
func FileSource(url string) PlaySource {
	return PlaySource{Kind: PlaySourceFile, URL: url}
}

// PlayOptions plays one prompt to every participant.
type PlayOptions struct {
	Source           PlaySource
	Loop             bool
	OperationContext string
}

// RecognitionChoice is one option of a choice menu.
type RecognitionChoice struct {
	Label   string
	Phrases []string
	Tone    string
}

// DTMF tones usable as a choice shortcut.
const (
	ToneOne = "one"
	ToneTwo = "two"
)

// RecognizeOptions starts a choice recognition against one participant.
type RecognizeOptions struct {
	TargetParticipant string
	Prompt            PlaySource
	Choices           []RecognitionChoice
	InterruptPrompt   bool
	InitialSilence    time.Duration
	OperationContext  string
}
