package bootstrap

import (
	"callautomation-server/internal/callautomation"
	"callautomation-server/internal/callbackauth"
	"callautomation-server/internal/callsession"
	"callautomation-server/internal/config"
	"callautomation-server/internal/observability"
	"callautomation-server/internal/ratelimit"
	"callautomation-server/internal/realtime"
	"callautomation-server/internal/relay"
	"context"
	"fmt"

	"callautomation-server/internal/clients/acs"
	"callautomation-server/internal/clients/googleai"
	"callautomation-server/internal/clients/openai"
	twilioClient "callautomation-server/internal/clients/twilio"
	ivrHandler "callautomation-server/internal/ivr/handler"
	ivrProcessor "callautomation-server/internal/ivr/processor"
	voiceAgentHandler "callautomation-server/internal/voiceagent/handler"
	voiceAgentProcessor "callautomation-server/internal/voiceagent/processor"
)

// Dependencies holds all initialized application dependencies
type Dependencies struct {
	// Core
	Logger   *observability.Logger
	Registry *callsession.Registry

	// Handlers
	IVRHandler        ivrHandler.Handler
	VoiceAgentHandler voiceAgentHandler.Handler

	// Request guards
	CallbackAuth    *callbackauth.Issuer
	TwilioValidator *twilioClient.WebhookValidator
	OutboundLimiter *ratelimit.Service
}

// Initialize sets up the dependencies of the full server
func Initialize(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Logger:          logger,
		Registry:        callsession.NewRegistry(),
		CallbackAuth:    callbackauth.NewIssuer(cfg.Callbacks.TokenSecret, logger),
		OutboundLimiter: ratelimit.NewService(cfg.Server.OutboundCallsPerMinute, logger),
	}
	if !deps.CallbackAuth.Enabled() {
		logger.Warn(ctx, "CALLBACK_TOKEN_SECRET is not set, callbacks are not authenticated")
	}

	// Initialize the carrier
	var (
		client       callautomation.Client
		twilioEvents ivrHandler.TwilioEvents
		callerID     string
	)
	switch cfg.Carrier {
	case config.CarrierTwilio:
		tc := twilioClient.NewClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.PhoneNumber, cfg.Callbacks.BaseURI, logger)
		client = tc
		twilioEvents = tc
		callerID = cfg.Twilio.PhoneNumber
		deps.TwilioValidator = twilioClient.NewWebhookValidator(cfg.Twilio.AuthToken, cfg.Callbacks.BaseURI, logger)
	default:
		ac, err := acs.NewClient(cfg.ACS.ConnectionString, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create call automation client: %w", err)
		}
		client = ac
		callerID = cfg.ACS.ResourcePhoneNumber
	}
	logger.Info(ctx, fmt.Sprintf("using %s carrier", cfg.Carrier))

	dialer, err := NewDialer(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize IVR processor and handler
	ivrProc := ivrProcessor.New(client, deps.Registry, deps.CallbackAuth, ivrProcessor.Config{
		CallbackBaseURL:           cfg.Callbacks.BaseURI,
		CallerID:                  callerID,
		TargetPhoneNumber:         cfg.ACS.TargetPhoneNumber,
		CognitiveServicesEndpoint: cfg.ACS.CognitiveServicesEndpoint,
		VoiceName:                 cfg.Media.VoiceName,
		PromptSource:              ivrProcessor.PromptSource(cfg.Media.PromptSource),
	}, logger)
	deps.IVRHandler = ivrHandler.New(ivrProc, twilioEvents, cfg.Media.BasePath, logger)

	// Initialize voice agent processor and handler
	voiceProc := voiceAgentProcessor.New(client, deps.Registry, deps.CallbackAuth, voiceAgentProcessor.Config{
		CallbackBaseURL:           cfg.Callbacks.BaseURI,
		CognitiveServicesEndpoint: cfg.ACS.CognitiveServicesEndpoint,
		TransportURL:              cfg.ACS.TransportURL,
	}, logger)
	deps.VoiceAgentHandler = voiceAgentHandler.New(voiceProc, dialer, RelayConfig(), voiceAgentHandler.TwilioStreamURL(cfg.Callbacks.BaseURI), logger)

	return deps, nil
}

// InitializeRelay sets up a process that only serves the media streaming
// websockets.
func InitializeRelay(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Dependencies, error) {
	dialer, err := NewDialer(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Dependencies{
		Logger:            logger,
		VoiceAgentHandler: voiceAgentHandler.New(nil, dialer, RelayConfig(), "", logger),
	}, nil
}

// NewDialer opens realtime sessions against the configured provider.
func NewDialer(ctx context.Context, cfg *config.Config, logger *observability.Logger) (realtime.Dialer, error) {
	switch cfg.Realtime.Provider {
	case config.RealtimeGemini:
		client, err := googleai.NewLiveClient(ctx, cfg.Realtime.GeminiAPIKey, cfg.Realtime.GeminiModel, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini live client: %w", err)
		}
		return client, nil
	default:
		client, err := openai.NewRealtimeClient(cfg.Realtime.AzureEndpoint, cfg.Realtime.AzureKey, cfg.Realtime.AzureDeployment, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create azure openai realtime client: %w", err)
		}
		return client, nil
	}
}

// RelayConfig is the assistant every relayed call talks to.
func RelayConfig() relay.Config {
	return relay.Config{
		Instructions:   realtime.DefaultInstructions,
		PrimingMessage: realtime.PrimingMessage,
	}
}

// Cleanup flushes the logger
func (d *Dependencies) Cleanup() {
	d.Logger.Sync()
}
