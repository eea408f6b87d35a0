package openai

import (
	"callautomation-server/internal/observability"
	"callautomation-server/internal/realtime"
	"callautomation-server/internal/voice/audio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

const (
	defaultRealtimeAPIVersion = "2024-10-01-preview"
	defaultVoice              = "shimmer"
	transcriptionModel        = "whisper-1"
	eventBufferSize           = 64
)

var ErrMissingCredentials = errors.New("azure openai endpoint, key and deployment are required")

// RealtimeClient opens Azure OpenAI realtime sessions over a websocket.
type RealtimeClient struct {
	endpoint   *url.URL
	apiKey     string
	deployment string
	apiVersion string
	dialer     *websocket.Dialer
	logger     *observability.Logger
}

func NewRealtimeClient(endpoint, apiKey, deployment string, logger *observability.Logger) (*RealtimeClient, error) {
	if endpoint == "" || apiKey == "" || deployment == "" {
		return nil, ErrMissingCredentials
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid azure openai endpoint: %w", err)
	}
	return &RealtimeClient{
		endpoint:   u,
		apiKey:     apiKey,
		deployment: deployment,
		apiVersion: defaultRealtimeAPIVersion,
		dialer:     websocket.DefaultDialer,
		logger:     logger,
	}, nil
}

func (c *RealtimeClient) realtimeURL() string {
	u := *c.endpoint
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	default:
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/openai/realtime"
	q := url.Values{}
	q.Set("api-version", c.apiVersion)
	q.Set("deployment", c.deployment)
	u.RawQuery = q.Encode()
	return u.String()
}

// Dial connects and sends the session configuration.
func (c *RealtimeClient) Dial(ctx context.Context, cfg realtime.SessionConfig) (realtime.Session, error) {
	headers := http.Header{}
	headers.Set("api-key", c.apiKey)

	conn, resp, err := c.dialer.DialContext(ctx, c.realtimeURL(), headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect to azure openai realtime (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to connect to azure openai realtime: %w", err)
	}

	s := &realtimeSession{
		conn:   conn,
		events: make(chan realtime.Event, eventBufferSize),
		done:   make(chan struct{}),
		logger: c.logger,
	}

	voice := cfg.Voice
	if voice == "" {
		voice = defaultVoice
	}
	update := sessionUpdate{
		Type: "session.update",
		Session: sessionParams{
			Instructions:            cfg.Instructions,
			Voice:                   voice,
			InputAudioFormat:        "pcm16",
			OutputAudioFormat:       "pcm16",
			TurnDetection:           turnDetection{Type: "server_vad"},
			InputAudioTranscription: transcription{Model: transcriptionModel},
		},
	}
	if err := s.send(update); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send session config: %w", err)
	}

	go s.readLoop(ctx)
	return s, nil
}

type sessionUpdate struct {
	Type    string        `json:"type"`
	Session sessionParams `json:"session"`
}

type sessionParams struct {
	Instructions            string        `json:"instructions,omitempty"`
	Voice                   string        `json:"voice"`
	InputAudioFormat        string        `json:"input_audio_format"`
	OutputAudioFormat       string        `json:"output_audio_format"`
	TurnDetection           turnDetection `json:"turn_detection"`
	InputAudioTranscription transcription `json:"input_audio_transcription"`
}

type turnDetection struct {
	Type string `json:"type"`
}

type transcription struct {
	Model string `json:"model"`
}

type audioAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type conversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type itemCreate struct {
	Type string           `json:"type"`
	Item conversationItem `json:"item"`
}

type responseCreate struct {
	Type string `json:"type"`
}

type serverEvent struct {
	Type    string `json:"type"`
	Session *struct {
		ID string `json:"id"`
	} `json:"session"`
	Delta        string `json:"delta"`
	Transcript   string `json:"transcript"`
	AudioStartMs int    `json:"audio_start_ms"`
	Response     *struct {
		Status string `json:"status"`
	} `json:"response"`
	Error *struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type realtimeSession struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	events  chan realtime.Event
	done    chan struct{}
	once    sync.Once
	logger  *observability.Logger
}

func (s *realtimeSession) Events() <-chan realtime.Event {
	return s.events
}

func (s *realtimeSession) AppendAudio(ctx context.Context, pcm []byte) error {
	return s.send(audioAppend{Type: "input_audio_buffer.append", Audio: audio.BytesToBase64(pcm)})
}

func (s *realtimeSession) StartConversation(ctx context.Context, text string) error {
	item := itemCreate{
		Type: "conversation.item.create",
		Item: conversationItem{
			Type:    "message",
			Role:    "user",
			Content: []contentPart{{Type: "input_text", Text: text}},
		},
	}
	if err := s.send(item); err != nil {
		return err
	}
	return s.send(responseCreate{Type: "response.create"})
}

func (s *realtimeSession) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.writeMu.Lock()
		_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

func (s *realtimeSession) send(v any) error {
	select {
	case <-s.done:
		return realtime.ErrSessionClosed
	default:
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *realtimeSession) readLoop(ctx context.Context) {
	defer close(s.events)

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Info(ctx, "azure openai realtime session closed")
				} else {
					s.logger.Error(ctx, "azure openai realtime read failed", err)
				}
			}
			return
		}

		ev, ok := s.parse(ctx, msg)
		if !ok {
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

func (s *realtimeSession) parse(ctx context.Context, msg []byte) (realtime.Event, bool) {
	var ev serverEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		s.logger.Error(ctx, "failed to parse realtime event", err)
		return realtime.Event{}, false
	}

	switch realtime.EventKind(ev.Type) {
	case realtime.EventSessionCreated:
		out := realtime.Event{Kind: realtime.EventSessionCreated}
		if ev.Session != nil {
			out.SessionID = ev.Session.ID
		}
		return out, true

	case realtime.EventAudioDelta:
		pcm, err := audio.Base64ToBytes(ev.Delta)
		if err != nil {
			s.logger.Error(ctx, "failed to decode audio delta", err)
			return realtime.Event{}, false
		}
		return realtime.Event{Kind: realtime.EventAudioDelta, Audio: pcm}, true

	case realtime.EventSpeechStarted:
		return realtime.Event{Kind: realtime.EventSpeechStarted, AudioStartMs: ev.AudioStartMs}, true

	case realtime.EventInputTranscript:
		return realtime.Event{Kind: realtime.EventInputTranscript, Text: ev.Transcript}, true

	case realtime.EventResponseTranscript:
		return realtime.Event{Kind: realtime.EventResponseTranscript, Text: ev.Transcript}, true

	case realtime.EventResponseDone:
		out := realtime.Event{Kind: realtime.EventResponseDone}
		if ev.Response != nil {
			out.Status = ev.Response.Status
		}
		return out, true

	case realtime.EventError:
		out := realtime.Event{Kind: realtime.EventError}
		if ev.Error != nil {
			out.Text = ev.Error.Message
			out.Status = ev.Error.Code
		}
		return out, true

	default:
		return realtime.Event{}, false
	}
}
