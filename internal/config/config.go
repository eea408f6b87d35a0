package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var (
	ErrEmptyEnvironmentVariable = errors.New("empty environment variable")
	ErrInvalidValue             = errors.New("invalid configuration value")
)

// Carrier selects the call-automation backend.
type Carrier string

const (
	CarrierACS    Carrier = "acs"
	CarrierTwilio Carrier = "twilio"
)

// RealtimeProvider selects the realtime conversational AI backend.
type RealtimeProvider string

const (
	RealtimeAzureOpenAI RealtimeProvider = "azure-openai"
	RealtimeGemini      RealtimeProvider = "gemini"
)

// PromptSource selects how IVR prompts are rendered on the call.
type PromptSource string

const (
	PromptSourceText PromptSource = "text"
	PromptSourceFile PromptSource = "file"
)

// Profile names the process being configured; each one needs a
// different subset of the environment.
type Profile string

const (
	ProfileServer    Profile = "server"
	ProfileRelay     Profile = "relay"
	ProfilePromptGen Profile = "promptgen"
)

// Config holds all application configuration
type Config struct {
	Carrier   Carrier
	ACS       ACSConfig
	Twilio    TwilioConfig
	Realtime  RealtimeConfig
	Media     MediaConfig
	Callbacks CallbackConfig
	Services  ServicesConfig
	Server    ServerConfig
}

// ACSConfig holds Azure Communication Services call automation settings
type ACSConfig struct {
	ConnectionString          string
	ResourcePhoneNumber       string
	TargetPhoneNumber         string
	CognitiveServicesEndpoint string
	TransportURL              string // media streaming websocket the service connects to
}

// TwilioConfig holds the Twilio carrier credentials
type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	PhoneNumber string
}

// RealtimeConfig holds the realtime AI endpoint settings
type RealtimeConfig struct {
	Provider        RealtimeProvider
	AzureEndpoint   string
	AzureKey        string
	AzureDeployment string
	GeminiAPIKey    string
	GeminiModel     string
}

// MediaConfig holds prompt and audio file settings
type MediaConfig struct {
	BasePath     string
	PromptSource PromptSource
	VoiceName    string
}

// CallbackConfig holds the public callback base and token secret
type CallbackConfig struct {
	BaseURI     string
	TokenSecret string // empty disables callback token checks
}

// ServicesConfig holds auxiliary service keys
type ServicesConfig struct {
	OpenAIAPIKey string
	WebAppURI    string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port      int
	RelayPort int
	// OutboundCallsPerMinute limits /outboundCall per client IP; 0 disables it
	OutboundCallsPerMinute int
}

// Load reads and validates the environment variables the given profile needs
func Load(profile Profile) (*Config, error) {
	if os.Getenv("GO_ENV") != "production" {
		if err := godotenv.Load("env.local"); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env.local: %w", err)
		}
	}

	cfg := &Config{}
	var err error

	cfg.Media.BasePath = getEnvWithDefault("BASE_MEDIA_PATH", "media")
	cfg.Media.VoiceName = getEnvWithDefault("PROMPT_VOICE_NAME", "en-US-NancyNeural")
	cfg.Media.PromptSource = PromptSource(strings.ToLower(getEnvWithDefault("PROMPT_SOURCE", string(PromptSourceText))))
	if cfg.Media.PromptSource != PromptSourceText && cfg.Media.PromptSource != PromptSourceFile {
		return nil, fmt.Errorf("PROMPT_SOURCE %q: %w", cfg.Media.PromptSource, ErrInvalidValue)
	}
	cfg.Services.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.Services.WebAppURI = os.Getenv("WEBAPP_URI")

	if profile == ProfilePromptGen {
		if cfg.Services.OpenAIAPIKey, err = requireEnv("OPENAI_API_KEY"); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	if err := loadRealtime(cfg); err != nil {
		return nil, err
	}

	if profile == ProfileRelay {
		if cfg.Server.RelayPort, err = intEnvWithDefault("RELAY_PORT", 5001); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	// Server profile
	if cfg.Callbacks.BaseURI, err = requireEnv("CALLBACK_URI"); err != nil {
		return nil, err
	}
	cfg.Callbacks.BaseURI = strings.TrimRight(strings.TrimSpace(cfg.Callbacks.BaseURI), "/")
	cfg.Callbacks.TokenSecret = os.Getenv("CALLBACK_TOKEN_SECRET")

	cfg.Carrier = Carrier(strings.ToLower(getEnvWithDefault("CARRIER", string(CarrierACS))))
	switch cfg.Carrier {
	case CarrierACS:
		if err := loadACS(cfg); err != nil {
			return nil, err
		}
	case CarrierTwilio:
		if err := loadTwilio(cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("CARRIER %q: %w", cfg.Carrier, ErrInvalidValue)
	}

	serverPort, err := requireEnv("PORT")
	if err != nil {
		return nil, err
	}
	cfg.Server.Port, err = strconv.Atoi(serverPort)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PORT: %w", err)
	}
	if cfg.Server.OutboundCallsPerMinute, err = intEnvWithDefault("OUTBOUND_CALLS_PER_MINUTE", 5); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadACS(cfg *Config) error {
	var err error
	if cfg.ACS.ConnectionString, err = requireEnv("CONNECTION_STRING"); err != nil {
		return err
	}
	if cfg.ACS.ResourcePhoneNumber, err = requireEnv("ACS_RESOURCE_PHONE_NUMBER"); err != nil {
		return err
	}
	if cfg.ACS.CognitiveServicesEndpoint, err = requireEnv("COGNITIVE_SERVICES_ENDPOINT"); err != nil {
		return err
	}
	if cfg.ACS.TransportURL, err = requireEnv("WEBSOCKET_URL"); err != nil {
		return err
	}
	cfg.ACS.TargetPhoneNumber = strings.TrimSpace(os.Getenv("TARGET_PHONE_NUMBER"))
	return nil
}

func loadTwilio(cfg *Config) error {
	var err error
	if cfg.Twilio.AccountSID, err = requireEnv("TWILIO_ACCOUNT_SID"); err != nil {
		return err
	}
	if cfg.Twilio.AuthToken, err = requireEnv("TWILIO_AUTH_TOKEN"); err != nil {
		return err
	}
	if cfg.Twilio.PhoneNumber, err = requireEnv("TWILIO_PHONE_NUMBER"); err != nil {
		return err
	}
	cfg.ACS.TargetPhoneNumber = strings.TrimSpace(os.Getenv("TARGET_PHONE_NUMBER"))
	return nil
}

func loadRealtime(cfg *Config) error {
	var err error
	cfg.Realtime.Provider = RealtimeProvider(strings.ToLower(getEnvWithDefault("REALTIME_PROVIDER", string(RealtimeAzureOpenAI))))
	switch cfg.Realtime.Provider {
	case RealtimeAzureOpenAI:
		if cfg.Realtime.AzureEndpoint, err = requireEnv("AZURE_OPENAI_SERVICE_ENDPOINT"); err != nil {
			return err
		}
		if cfg.Realtime.AzureKey, err = requireEnv("AZURE_OPENAI_SERVICE_KEY"); err != nil {
			return err
		}
		if cfg.Realtime.AzureDeployment, err = requireEnv("AZURE_OPENAI_DEPLOYMENT_MODEL_NAME"); err != nil {
			return err
		}
	case RealtimeGemini:
		if cfg.Realtime.GeminiAPIKey, err = requireEnv("GEMINI_API_KEY"); err != nil {
			return err
		}
		cfg.Realtime.GeminiModel = getEnvWithDefault("GEMINI_MODEL", "gemini-2.5-flash-preview-native-audio-dialog")
	default:
		return fmt.Errorf("REALTIME_PROVIDER %q: %w", cfg.Realtime.Provider, ErrInvalidValue)
	}
	return nil
}

// requireEnv retrieves an environment variable or returns an error if empty
func requireEnv(key string) (string, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return "", fmt.Errorf("%s is not set: %w", key, ErrEmptyEnvironmentVariable)
	}
	return value, nil
}

// getEnvWithDefault retrieves an environment variable or returns a default value
func getEnvWithDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func intEnvWithDefault(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return value, nil
}
