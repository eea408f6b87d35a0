// Package relay binds one media streaming websocket to one realtime AI
// session. Inbound call audio is appended to the session, AI audio is
// written back to the socket, and AI-detected speech interrupts playback.
package relay

import (
	"callautomation-server/internal/mediastreaming"
	"callautomation-server/internal/observability"
	"callautomation-server/internal/realtime"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const defaultWriteTimeout = 5 * time.Second

// Conn is the part of *websocket.Conn the relay uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// State is the lifecycle of a relay.
type State int

const (
	StateConnecting State = iota
	StateSessionActive
	StateStreaming
	StateInterrupted
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSessionActive:
		return "session_active"
	case StateStreaming:
		return "streaming"
	case StateInterrupted:
		return "interrupted"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Config struct {
	Instructions   string
	Voice          string
	PrimingMessage string
	WriteTimeout   time.Duration
}

// Stats counts frames moved by a relay.
type Stats struct {
	FramesIn           int
	FramesDropped      int
	AudioFramesOut     int
	AudioFramesDropped int
	StopAudioSent      int
	SendErrors         int
}

type Relay struct {
	id     string
	conn   Conn
	codec  mediastreaming.Codec
	dialer realtime.Dialer
	cfg    Config
	logger *observability.Logger

	mu    sync.Mutex
	state State
	stats Stats

	writeMu sync.Mutex
}

func New(conn Conn, codec mediastreaming.Codec, dialer realtime.Dialer, cfg Config, logger *observability.Logger) *Relay {
	if cfg.PrimingMessage == "" {
		cfg.PrimingMessage = realtime.PrimingMessage
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	return &Relay{
		id:     uuid.NewString(),
		conn:   conn,
		codec:  codec,
		dialer: dialer,
		cfg:    cfg,
		logger: logger,
		state:  StateConnecting,
	}
}

func (r *Relay) ID() string {
	return r.id
}

func (r *Relay) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Relay) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Run opens the AI session and relays until either side disconnects or ctx
// is cancelled. A normal disconnect returns nil.
func (r *Relay) Run(ctx context.Context) error {
	ctx = observability.WithFields(ctx, observability.Field{Key: "relay_id", Value: r.id})
	r.logger.Info(ctx, "media streaming client connected")

	session, err := r.dialer.Dial(ctx, realtime.SessionConfig{
		Instructions: r.cfg.Instructions,
		Voice:        r.cfg.Voice,
	})
	if err != nil {
		r.setState(StateClosed)
		r.logger.Error(ctx, "failed to open realtime session", err)
		return fmt.Errorf("failed to open realtime session: %w", err)
	}
	defer session.Close()

	if err := session.StartConversation(ctx, r.cfg.PrimingMessage); err != nil {
		r.logger.Error(ctx, "failed to start conversation", err)
	}

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		r.pumpAI(ctx, session)
	}()

	stopWatch := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			r.setState(StateClosed)
			_ = r.conn.Close()
		case <-stopWatch:
		}
	}()

	err = r.readLoop(ctx, session)
	close(stopWatch)
	r.setState(StateClosed)
	_ = session.Close()
	<-pumpDone

	stats := r.Stats()
	r.logger.Metrics(ctx,
		observability.MetricField{Key: "frames_in", Value: stats.FramesIn},
		observability.MetricField{Key: "frames_dropped", Value: stats.FramesDropped},
		observability.MetricField{Key: "audio_frames_out", Value: stats.AudioFramesOut},
		observability.MetricField{Key: "audio_frames_dropped", Value: stats.AudioFramesDropped},
		observability.MetricField{Key: "stop_audio_sent", Value: stats.StopAudioSent},
		observability.MetricField{Key: "send_errors", Value: stats.SendErrors},
	)
	r.logger.Info(ctx, "media streaming client disconnected")
	return err
}

func (r *Relay) readLoop(ctx context.Context, session realtime.Session) error {
	for {
		_, msg, err := r.conn.ReadMessage()
		if err != nil {
			if r.State() == StateClosed || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			r.logger.Error(ctx, "media streaming read failed", err)
			return fmt.Errorf("media streaming read failed: %w", err)
		}

		packet, err := r.codec.Decode(msg)
		if err != nil {
			r.logger.Warn(ctx, fmt.Sprintf("dropping undecodable media packet: %v", err))
			continue
		}

		switch packet.Kind {
		case mediastreaming.PacketAudio:
			r.forwardInbound(ctx, session, packet.Audio)
		case mediastreaming.PacketStart, mediastreaming.PacketMetadata:
			r.logger.Info(observability.WithFields(ctx,
				observability.Field{Key: "stream_id", Value: packet.StreamID},
				observability.Field{Key: "sample_rate", Value: packet.SampleRate},
				observability.Field{Key: "encoding", Value: packet.Encoding},
			), fmt.Sprintf("media stream %s", packet.Type))
		case mediastreaming.PacketDTMF:
			r.logger.Info(observability.WithFields(ctx, observability.Field{Key: "tone", Value: packet.Tone}), "dtmf received")
		case mediastreaming.PacketStop:
			r.logger.Info(ctx, "media stream stopped")
			return nil
		default:
			r.logger.Debug(ctx, fmt.Sprintf("ignoring media packet %s", packet.Type))
		}
	}
}

// forwardInbound appends one frame to the AI session. Frames that arrive
// before the session exists are dropped.
func (r *Relay) forwardInbound(ctx context.Context, session realtime.Session, pcm []byte) {
	r.mu.Lock()
	switch r.state {
	case StateConnecting:
		r.stats.FramesDropped++
		r.mu.Unlock()
		r.logger.Debug(ctx, "dropping audio received before session created")
		return
	case StateClosed:
		r.mu.Unlock()
		return
	}
	r.stats.FramesIn++
	r.mu.Unlock()

	if err := session.AppendAudio(ctx, pcm); err != nil {
		r.countSendError()
		r.logger.Error(ctx, "failed to append audio to realtime session", err)
	}
}

func (r *Relay) pumpAI(ctx context.Context, session realtime.Session) {
	for ev := range session.Events() {
		r.handleAI(ctx, ev)
	}
	// The AI side ended: close the socket so the read loop returns.
	if r.State() != StateClosed {
		r.logger.Info(ctx, "realtime session ended")
		r.setState(StateClosed)
		_ = r.conn.Close()
	}
}

func (r *Relay) handleAI(ctx context.Context, ev realtime.Event) {
	switch ev.Kind {
	case realtime.EventSessionCreated:
		r.mu.Lock()
		if r.state == StateConnecting {
			r.state = StateSessionActive
		}
		r.mu.Unlock()
		r.logger.Info(observability.WithFields(ctx, observability.Field{Key: "session_id", Value: ev.SessionID}), "realtime session created")

	case realtime.EventAudioDelta:
		r.mu.Lock()
		if r.state == StateClosed {
			r.stats.AudioFramesDropped++
			r.mu.Unlock()
			r.logger.Warn(ctx, "socket connection is not open, dropping audio")
			return
		}
		r.state = StateStreaming
		r.mu.Unlock()

		msg, err := r.codec.EncodeAudio(ev.Audio)
		if err != nil {
			r.countDropped()
			r.logger.Error(ctx, "failed to encode outbound audio", err)
			return
		}
		if r.write(ctx, msg) {
			r.mu.Lock()
			r.stats.AudioFramesOut++
			r.mu.Unlock()
		}

	case realtime.EventSpeechStarted:
		r.mu.Lock()
		if r.state == StateInterrupted || r.state == StateClosed {
			r.mu.Unlock()
			return
		}
		r.state = StateInterrupted
		r.mu.Unlock()

		r.logger.Info(observability.WithFields(ctx, observability.Field{Key: "audio_start_ms", Value: ev.AudioStartMs}), "voice activity detected, stopping playback")
		msg, err := r.codec.EncodeStopAudio()
		if err != nil {
			r.logger.Error(ctx, "failed to encode stop audio", err)
			return
		}
		if r.write(ctx, msg) {
			r.mu.Lock()
			r.stats.StopAudioSent++
			r.mu.Unlock()
		}

	case realtime.EventInputTranscript:
		r.logger.Info(observability.WithFields(ctx, observability.Field{Key: "transcript", Value: ev.Text}), "user said")

	case realtime.EventResponseTranscript:
		r.logger.Info(observability.WithFields(ctx, observability.Field{Key: "transcript", Value: ev.Text}), "assistant said")

	case realtime.EventResponseDone:
		r.logger.Info(observability.WithFields(ctx, observability.Field{Key: "status", Value: ev.Status}), "response done")

	case realtime.EventError:
		r.logger.Warn(observability.WithFields(ctx, observability.Field{Key: "code", Value: ev.Status}), fmt.Sprintf("realtime error: %s", ev.Text))
	}
}

// write sends one frame. Failures are logged and counted, never fatal.
func (r *Relay) write(ctx context.Context, msg []byte) bool {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	_ = r.conn.SetWriteDeadline(time.Now().Add(r.cfg.WriteTimeout))
	if err := r.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		r.countSendError()
		r.logger.Error(ctx, "failed to write to media streaming socket", err)
		return false
	}
	return true
}

func (r *Relay) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Relay) countSendError() {
	r.mu.Lock()
	r.stats.SendErrors++
	r.mu.Unlock()
}

func (r *Relay) countDropped() {
	r.mu.Lock()
	r.stats.AudioFramesDropped++
	r.mu.Unlock()
}
