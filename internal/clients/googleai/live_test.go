package googleai

import (
	"callautomation-server/internal/observability"
	"callautomation-server/internal/realtime"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeLive struct {
	incoming chan *genai.LiveServerMessage
	closed   chan struct{}
	once     sync.Once

	mu   sync.Mutex
	sent []genai.LiveRealtimeInput
}

func newFakeLive() *fakeLive {
	return &fakeLive{incoming: make(chan *genai.LiveServerMessage, 16), closed: make(chan struct{})}
}

func (f *fakeLive) Receive() (*genai.LiveServerMessage, error) {
	select {
	case msg := <-f.incoming:
		return msg, nil
	case <-f.closed:
		return nil, errors.New("use of closed network connection")
	}
}

func (f *fakeLive) SendRealtimeInput(input genai.LiveRealtimeInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, input)
	return nil
}

func (f *fakeLive) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func newTestClient(fake *fakeLive, gotCfg **genai.LiveConnectConfig) *LiveClient {
	return &LiveClient{
		connect: func(ctx context.Context, model string, cfg *genai.LiveConnectConfig) (liveSession, error) {
			*gotCfg = cfg
			return fake, nil
		},
		model:  "gemini-test",
		logger: observability.NewNopLogger(),
	}
}

func next(t *testing.T, s realtime.Session) realtime.Event {
	t.Helper()
	select {
	case ev := <-s.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return realtime.Event{}
	}
}

func TestLiveSession_Events(t *testing.T) {
	fake := newFakeLive()
	var cfg *genai.LiveConnectConfig
	client := newTestClient(fake, &cfg)

	session, err := client.Dial(context.Background(), realtime.SessionConfig{Instructions: "be nice", Voice: "shimmer"})
	require.NoError(t, err)
	defer session.Close()

	require.NotNil(t, cfg)
	assert.Equal(t, "be nice", cfg.SystemInstruction.Parts[0].Text)
	assert.Equal(t, defaultVoice, cfg.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)

	fake.incoming <- &genai.LiveServerMessage{SetupComplete: &genai.LiveServerSetupComplete{}}
	fake.incoming <- &genai.LiveServerMessage{ServerContent: &genai.LiveServerContent{
		InputTranscription: &genai.Transcription{Text: "hello "},
	}}
	modelTurn := &genai.Content{Parts: []*genai.Part{{InlineData: &genai.Blob{Data: []byte{1, 2}, MIMEType: "audio/pcm;rate=24000"}}}}
	fake.incoming <- &genai.LiveServerMessage{ServerContent: &genai.LiveServerContent{
		ModelTurn:           modelTurn,
		OutputTranscription: &genai.Transcription{Text: "Hi, "},
	}}
	fake.incoming <- &genai.LiveServerMessage{ServerContent: &genai.LiveServerContent{
		OutputTranscription: &genai.Transcription{Text: "I am Susan."},
		TurnComplete:        true,
	}}
	fake.incoming <- &genai.LiveServerMessage{ServerContent: &genai.LiveServerContent{Interrupted: true}}

	assert.Equal(t, realtime.Event{Kind: realtime.EventSessionCreated}, next(t, session))
	assert.Equal(t, realtime.Event{Kind: realtime.EventInputTranscript, Text: "hello"}, next(t, session))
	assert.Equal(t, realtime.Event{Kind: realtime.EventAudioDelta, Audio: []byte{1, 2}}, next(t, session))
	assert.Equal(t, realtime.Event{Kind: realtime.EventResponseTranscript, Text: "Hi, I am Susan."}, next(t, session))
	assert.Equal(t, realtime.Event{Kind: realtime.EventResponseDone, Status: "completed"}, next(t, session))
	assert.Equal(t, realtime.Event{Kind: realtime.EventSpeechStarted}, next(t, session))
}

func TestLiveSession_SendsResampledAudio(t *testing.T) {
	fake := newFakeLive()
	var cfg *genai.LiveConnectConfig
	session, err := newTestClient(fake, &cfg).Dial(context.Background(), realtime.SessionConfig{})
	require.NoError(t, err)

	require.NoError(t, session.StartConversation(context.Background(), realtime.PrimingMessage))
	// 30 samples at 24 kHz are 20 samples at 16 kHz.
	require.NoError(t, session.AppendAudio(context.Background(), make([]byte, 60)))

	fake.mu.Lock()
	require.Len(t, fake.sent, 2)
	assert.Equal(t, realtime.PrimingMessage, fake.sent[0].Text)
	assert.Equal(t, inputMIMEType, fake.sent[1].Audio.MIMEType)
	assert.Len(t, fake.sent[1].Audio.Data, 40)
	fake.mu.Unlock()

	require.NoError(t, session.Close())
	assert.ErrorIs(t, session.AppendAudio(context.Background(), []byte{0, 0}), realtime.ErrSessionClosed)

	select {
	case _, ok := <-session.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed")
	}
}

func TestNewLiveClient_RequiresKey(t *testing.T) {
	_, err := NewLiveClient(context.Background(), "", "model", observability.NewNopLogger())
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
