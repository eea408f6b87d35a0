package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setServerEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GO_ENV", "production")
	t.Setenv("CALLBACK_URI", "https://example.ngrok.app/")
	t.Setenv("CONNECTION_STRING", "endpoint=https://contoso.communication.azure.com/;accesskey=c2VjcmV0")
	t.Setenv("ACS_RESOURCE_PHONE_NUMBER", "+18005550100")
	t.Setenv("TARGET_PHONE_NUMBER", "+14255550123")
	t.Setenv("COGNITIVE_SERVICES_ENDPOINT", "https://contoso.cognitiveservices.azure.com/")
	t.Setenv("WEBSOCKET_URL", " wss://example.ngrok.app/ws ")
	t.Setenv("AZURE_OPENAI_SERVICE_ENDPOINT", "https://contoso.openai.azure.com/")
	t.Setenv("AZURE_OPENAI_SERVICE_KEY", "key")
	t.Setenv("AZURE_OPENAI_DEPLOYMENT_MODEL_NAME", "gpt-4o-realtime-preview")
	t.Setenv("PORT", "8080")
}

func TestLoad_ServerProfile(t *testing.T) {
	setServerEnv(t)

	cfg, err := Load(ProfileServer)
	require.NoError(t, err)

	assert.Equal(t, CarrierACS, cfg.Carrier)
	assert.Equal(t, "https://example.ngrok.app", cfg.Callbacks.BaseURI)
	assert.Equal(t, "wss://example.ngrok.app/ws", cfg.ACS.TransportURL)
	assert.Equal(t, "+14255550123", cfg.ACS.TargetPhoneNumber)
	assert.Equal(t, RealtimeAzureOpenAI, cfg.Realtime.Provider)
	assert.Equal(t, PromptSourceText, cfg.Media.PromptSource)
	assert.Equal(t, "en-US-NancyNeural", cfg.Media.VoiceName)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Server.OutboundCallsPerMinute)
}

func TestLoad_MissingRequired(t *testing.T) {
	setServerEnv(t)
	t.Setenv("CONNECTION_STRING", "")

	_, err := Load(ProfileServer)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyEnvironmentVariable)
	assert.Contains(t, err.Error(), "CONNECTION_STRING")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown carrier", key: "CARRIER", value: "pigeon"},
		{name: "unknown realtime provider", key: "REALTIME_PROVIDER", value: "eliza"},
		{name: "unknown prompt source", key: "PROMPT_SOURCE", value: "vinyl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setServerEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load(ProfileServer)
			assert.ErrorIs(t, err, ErrInvalidValue)
		})
	}
}

func TestLoad_TwilioCarrier(t *testing.T) {
	setServerEnv(t)
	t.Setenv("CARRIER", "twilio")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "token")
	t.Setenv("TWILIO_PHONE_NUMBER", "+18005550199")

	cfg, err := Load(ProfileServer)
	require.NoError(t, err)
	assert.Equal(t, CarrierTwilio, cfg.Carrier)
	assert.Equal(t, "AC123", cfg.Twilio.AccountSID)
}

func TestLoad_RelayProfile(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("REALTIME_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "gk")

	cfg, err := Load(ProfileRelay)
	require.NoError(t, err)
	assert.Equal(t, RealtimeGemini, cfg.Realtime.Provider)
	assert.Equal(t, 5001, cfg.Server.RelayPort)
	assert.NotEmpty(t, cfg.Realtime.GeminiModel)
}

func TestLoad_PromptGenProfile(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load(ProfilePromptGen)
	assert.ErrorIs(t, err, ErrEmptyEnvironmentVariable)

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("BASE_MEDIA_PATH", "/srv/media")
	cfg, err := Load(ProfilePromptGen)
	require.NoError(t, err)
	assert.Equal(t, "/srv/media", cfg.Media.BasePath)
}
