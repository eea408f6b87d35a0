package openai

import (
	"callautomation-server/internal/observability"
	"callautomation-server/internal/voice/audio"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/openai/openai-go"
	openaiOption "github.com/openai/openai-go/option"
)

const defaultSpeechVoice = "alloy"

// SpeechClient renders text to 16 kHz mono WAV audio with OpenAI
// text-to-speech.
type SpeechClient struct {
	create func(ctx context.Context, params openai.AudioSpeechNewParams) (*http.Response, error)
	voice  string
	logger *observability.Logger
}

func NewSpeechClient(apiKey, voice string, logger *observability.Logger, opts ...openaiOption.RequestOption) *SpeechClient {
	options := append([]openaiOption.RequestOption{openaiOption.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(options...)

	if voice == "" {
		voice = defaultSpeechVoice
	}
	return &SpeechClient{
		create: func(ctx context.Context, params openai.AudioSpeechNewParams) (*http.Response, error) {
			return client.Audio.Speech.New(ctx, params)
		},
		voice:  voice,
		logger: logger,
	}
}

// Synthesize returns a WAV rendering of text. The service answers with raw
// 24 kHz PCM, which is resampled to the file playback rate.
func (s *SpeechClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.create(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModelTTS1,
		Voice:          openai.AudioSpeechNewParamsVoice(s.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatPCM,
	})
	if err != nil {
		s.logger.Error(ctx, "openai speech request failed", err)
		return nil, fmt.Errorf("openai speech request failed: %w", err)
	}
	defer resp.Body.Close()

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read openai speech response: %w", err)
	}
	if len(pcm) < 2 {
		return nil, nil
	}
	return audio.PCMToWAV(audio.Resample(pcm, audio.RateRealtime, audio.RatePlayback), audio.RatePlayback), nil
}
