// Package googleai adapts the Gemini Live API to a realtime session. Gemini
// takes 16 kHz input and produces 24 kHz output, so input is resampled.
package googleai

import (
	"callautomation-server/internal/observability"
	"callautomation-server/internal/realtime"
	"callautomation-server/internal/voice/audio"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

const (
	defaultVoice    = "Aoede"
	inputMIMEType   = "audio/pcm;rate=16000"
	eventBufferSize = 64
)

var ErrMissingAPIKey = errors.New("gemini api key is required")

// liveSession is the part of *genai.Session the adapter uses.
type liveSession interface {
	Receive() (*genai.LiveServerMessage, error)
	SendRealtimeInput(input genai.LiveRealtimeInput) error
	Close() error
}

type connectFunc func(ctx context.Context, model string, cfg *genai.LiveConnectConfig) (liveSession, error)

// LiveClient opens Gemini Live sessions.
type LiveClient struct {
	connect connectFunc
	model   string
	logger  *observability.Logger
}

func NewLiveClient(ctx context.Context, apiKey, model string, logger *observability.Logger) (*LiveClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &LiveClient{
		connect: func(ctx context.Context, model string, cfg *genai.LiveConnectConfig) (liveSession, error) {
			return client.Live.Connect(ctx, model, cfg)
		},
		model:  model,
		logger: logger,
	}, nil
}

func connectConfig(cfg realtime.SessionConfig) *genai.LiveConnectConfig {
	voice := cfg.Voice
	if voice == "" {
		voice = defaultVoice
	}
	connectCfg := &genai.LiveConnectConfig{
		ResponseModalities:       []genai.Modality{genai.Modality("AUDIO")},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
		RealtimeInputConfig: &genai.RealtimeInputConfig{
			AutomaticActivityDetection: &genai.AutomaticActivityDetection{Disabled: false},
		},
	}
	if cfg.Instructions != "" {
		connectCfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: cfg.Instructions}},
		}
	}
	return connectCfg
}

// Dial connects a Live session. Gemini voices are named differently from
// OpenAI ones, so an OpenAI voice name falls back to the default voice.
func (c *LiveClient) Dial(ctx context.Context, cfg realtime.SessionConfig) (realtime.Session, error) {
	if cfg.Voice != "" && !isGeminiVoice(cfg.Voice) {
		cfg.Voice = defaultVoice
	}
	session, err := c.connect(ctx, c.model, connectConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to gemini live: %w", err)
	}
	c.logger.Info(ctx, "connected to gemini live")

	s := &geminiSession{
		session: session,
		events:  make(chan realtime.Event, eventBufferSize),
		done:    make(chan struct{}),
		logger:  c.logger,
	}
	go s.receiveLoop(ctx)
	return s, nil
}

var geminiVoices = []string{"Aoede", "Charon", "Fenrir", "Kore", "Leda", "Orus", "Puck", "Zephyr"}

func isGeminiVoice(name string) bool {
	for _, v := range geminiVoices {
		if strings.EqualFold(v, name) {
			return true
		}
	}
	return false
}

type geminiSession struct {
	session liveSession
	sendMu  sync.Mutex
	events  chan realtime.Event
	done    chan struct{}
	once    sync.Once
	logger  *observability.Logger

	input  strings.Builder
	output strings.Builder
}

func (s *geminiSession) Events() <-chan realtime.Event {
	return s.events
}

// AppendAudio resamples 24 kHz call audio to the 16 kHz Gemini expects.
func (s *geminiSession) AppendAudio(ctx context.Context, pcm []byte) error {
	return s.send(genai.LiveRealtimeInput{
		Audio: &genai.Blob{
			Data:     audio.ConvertPCM24kHzTo16kHz(pcm),
			MIMEType: inputMIMEType,
		},
	})
}

func (s *geminiSession) StartConversation(ctx context.Context, text string) error {
	return s.send(genai.LiveRealtimeInput{Text: text})
}

func (s *geminiSession) send(input genai.LiveRealtimeInput) error {
	select {
	case <-s.done:
		return realtime.ErrSessionClosed
	default:
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.session.SendRealtimeInput(input)
}

func (s *geminiSession) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.session.Close()
	})
	return err
}

func (s *geminiSession) receiveLoop(ctx context.Context) {
	defer close(s.events)

	for {
		msg, err := s.session.Receive()
		if err != nil {
			select {
			case <-s.done:
				s.logger.Info(ctx, "gemini live session closed")
			default:
				s.logger.Error(ctx, "gemini live receive failed", err)
			}
			return
		}
		for _, ev := range s.translate(msg) {
			select {
			case s.events <- ev:
			case <-s.done:
				return
			}
		}
	}
}

// translate maps one server message to zero or more events. Transcripts
// arrive in fragments and are emitted whole when the turn ends.
func (s *geminiSession) translate(msg *genai.LiveServerMessage) []realtime.Event {
	var events []realtime.Event
	if msg == nil {
		return events
	}
	if msg.SetupComplete != nil {
		events = append(events, realtime.Event{Kind: realtime.EventSessionCreated})
	}

	content := msg.ServerContent
	if content == nil {
		return events
	}

	if content.Interrupted {
		events = append(events, realtime.Event{Kind: realtime.EventSpeechStarted})
		s.output.Reset()
	}
	if content.InputTranscription != nil {
		s.input.WriteString(content.InputTranscription.Text)
	}
	if content.ModelTurn != nil {
		if s.input.Len() > 0 {
			events = append(events, realtime.Event{Kind: realtime.EventInputTranscript, Text: strings.TrimSpace(s.input.String())})
			s.input.Reset()
		}
		for _, part := range content.ModelTurn.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				events = append(events, realtime.Event{Kind: realtime.EventAudioDelta, Audio: part.InlineData.Data})
			}
		}
	}
	if content.OutputTranscription != nil {
		s.output.WriteString(content.OutputTranscription.Text)
	}
	if content.TurnComplete {
		if s.output.Len() > 0 {
			events = append(events, realtime.Event{Kind: realtime.EventResponseTranscript, Text: strings.TrimSpace(s.output.String())})
			s.output.Reset()
		}
		events = append(events, realtime.Event{Kind: realtime.EventResponseDone, Status: "completed"})
	}
	return events
}
