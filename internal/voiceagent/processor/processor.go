package processor

import (
	"callautomation-server/internal/callautomation"
	"callautomation-server/internal/callsession"
	"callautomation-server/internal/observability"
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

const callbackPath = "/api/callbacks/"

var ErrAnswerFailed = errors.New("failed to answer incoming call")

// URLSigner adds a callback token to a callback URL.
type URLSigner interface {
	SignURL(rawURL, contextID, scenario string) (string, error)
}

type Config struct {
	CallbackBaseURL           string
	CognitiveServicesEndpoint string
	// TransportURL is the websocket the service streams call audio to.
	TransportURL string
}

// VoiceAgentProcessor answers incoming calls with bidirectional media
// streaming and follows the streaming lifecycle of each call.
type VoiceAgentProcessor struct {
	client   callautomation.Client
	registry *callsession.Registry
	signer   URLSigner
	cfg      Config
	logger   *observability.Logger
	newID    func() string
}

func New(client callautomation.Client, registry *callsession.Registry, signer URLSigner, cfg Config, logger *observability.Logger) *VoiceAgentProcessor {
	return &VoiceAgentProcessor{
		client:   client,
		registry: registry,
		signer:   signer,
		cfg:      cfg,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// CallbackURL builds the per-call callback URL for contextID.
func (p *VoiceAgentProcessor) CallbackURL(contextID, callerID string) (string, error) {
	callbackURL := p.cfg.CallbackBaseURL + callbackPath + contextID + "?callerId=" + url.QueryEscape(callerID)
	if p.signer == nil {
		return callbackURL, nil
	}
	signed, err := p.signer.SignURL(callbackURL, contextID, string(callsession.ScenarioVoiceAgent))
	if err != nil {
		return "", fmt.Errorf("failed to sign callback url: %w", err)
	}
	return signed, nil
}

// AnswerIncomingCall answers ev and asks the service to stream its audio to
// the relay websocket.
func (p *VoiceAgentProcessor) AnswerIncomingCall(ctx context.Context, ev callautomation.IncomingCall) (callautomation.CallConnectionProperties, error) {
	contextID := p.newID()
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "context_id", Value: contextID},
		observability.Field{Key: "caller_id", Value: ev.From.RawID},
	)

	callbackURL, err := p.CallbackURL(contextID, ev.From.RawID)
	if err != nil {
		return callautomation.CallConnectionProperties{}, err
	}

	props, err := p.client.AnswerCall(ctx, callautomation.AnswerCallOptions{
		IncomingCallContext:       ev.IncomingCallContext,
		CallbackURL:               callbackURL,
		CognitiveServicesEndpoint: p.cfg.CognitiveServicesEndpoint,
		MediaStreaming:            callautomation.StreamingToWebsocket(p.cfg.TransportURL),
	})
	if err != nil {
		p.logger.Error(ctx, "failed to answer incoming call", err)
		return callautomation.CallConnectionProperties{}, fmt.Errorf("%w: %w", ErrAnswerFailed, err)
	}

	p.registry.Reserve(callsession.Call{
		CallConnectionID: props.CallConnectionID,
		ServerCallID:     props.ServerCallID,
		CorrelationID:    props.CorrelationID,
		Scenario:         callsession.ScenarioVoiceAgent,
		Target:           ev.From.RawID,
	})
	p.logger.Info(observability.WithCall(ctx, props.CallConnectionID, props.ServerCallID, props.CorrelationID), "incoming call answered")
	return props, nil
}

// HandleEvent follows one streaming callback. Only CallConnected calls the
// service; everything else is bookkeeping and logging.
func (p *VoiceAgentProcessor) HandleEvent(ctx context.Context, ev callautomation.Event) error {
	meta := ev.Metadata()
	ctx = observability.WithCall(ctx, meta.CallConnectionID, meta.ServerCallID, meta.CorrelationID)
	ctx = observability.WithFields(ctx, observability.Field{Key: "event_type", Value: meta.Type})

	switch e := ev.(type) {
	case callautomation.CallConnected:
		call := p.registry.Connect(callsession.Call{
			CallConnectionID: e.CallConnectionID,
			ServerCallID:     e.ServerCallID,
			CorrelationID:    e.CorrelationID,
			Scenario:         callsession.ScenarioVoiceAgent,
		})
		props, err := p.client.GetCallConnection(ctx, call.CallConnectionID)
		if err != nil {
			p.logger.Error(ctx, "failed to get call connection properties", err)
			return err
		}
		sub := props.MediaStreamingSubscription
		if sub == nil {
			p.logger.Warn(ctx, "call connected without a media streaming subscription")
			return nil
		}
		p.logger.Info(observability.WithFields(ctx,
			observability.Field{Key: "subscription_id", Value: sub.ID},
			observability.Field{Key: "subscription_state", Value: sub.State},
			observability.Field{Key: "content_types", Value: sub.SubscribedContentTypes},
		), "call connected")

	case callautomation.MediaStreamingStarted:
		p.logUpdate(ctx, e.OperationContext, e.Update, "media streaming started")

	case callautomation.MediaStreamingStopped:
		p.logUpdate(ctx, e.OperationContext, e.Update, "media streaming stopped")

	case callautomation.MediaStreamingFailed:
		p.logger.Warn(observability.WithFields(ctx,
			observability.Field{Key: "operation_context", Value: e.OperationContext},
			observability.Field{Key: "result_code", Value: e.Result.Code},
			observability.Field{Key: "result_sub_code", Value: e.Result.SubCode},
			observability.Field{Key: "result_message", Value: e.Result.Message},
		), "media streaming failed")

	case callautomation.CallDisconnected:
		p.registry.Remove(e.CallConnectionID)
		p.logger.Info(ctx, "call disconnected")

	default:
		p.logger.Debug(ctx, "unhandled event")
	}
	return nil
}

func (p *VoiceAgentProcessor) logUpdate(ctx context.Context, operationContext string, update callautomation.MediaStreamingUpdate, msg string) {
	p.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "operation_context", Value: operationContext},
		observability.Field{Key: "content_type", Value: update.ContentType},
		observability.Field{Key: "status", Value: update.MediaStreamingStatus},
		observability.Field{Key: "status_details", Value: update.MediaStreamingStatusDetails},
	), msg)
}
