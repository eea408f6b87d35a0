package processor

import (
	"callautomation-server/internal/callautomation"
	"callautomation-server/internal/callsession"
	"callautomation-server/internal/observability"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	LabelConfirm = "Confirm"
	LabelCancel  = "Cancel"
	// RetryContext marks the single re-prompt after a failed recognition.
	RetryContext = "Retry"

	initialSilenceTimeout = 10 * time.Second
	callbackPath          = "/api/callbacks"
)

var (
	ErrNoTarget        = errors.New("no target phone number configured")
	ErrPlaceCallFailed = errors.New("failed to place outbound call")
)

// ActionKind is what the dispatcher did in response to an event.
type ActionKind string

const (
	ActionNone      ActionKind = "none"
	ActionRecognize ActionKind = "recognize"
	ActionPlay      ActionKind = "play"
	ActionHangUp    ActionKind = "hang_up"
	ActionForget    ActionKind = "forget"
)

// Action records the single operation issued for an event.
type Action struct {
	Kind             ActionKind
	Prompt           Prompt
	OperationContext string
}

// URLSigner adds a callback token to a callback URL.
type URLSigner interface {
	SignURL(rawURL, contextID, scenario string) (string, error)
}

// PromptSource selects text-to-speech or pre-rendered audio files.
type PromptSource string

const (
	PromptSourceText PromptSource = "text"
	PromptSourceFile PromptSource = "file"
)

// Config holds what the menu needs to place and run a call.
type Config struct {
	CallbackBaseURL           string
	CallerID                  string
	TargetPhoneNumber         string
	CognitiveServicesEndpoint string
	VoiceName                 string
	PromptSource              PromptSource
}

// IVRProcessor runs the appointment confirmation menu.
type IVRProcessor struct {
	client   callautomation.Client
	registry *callsession.Registry
	signer   URLSigner
	cfg      Config
	logger   *observability.Logger
}

func New(client callautomation.Client, registry *callsession.Registry, signer URLSigner, cfg Config, logger *observability.Logger) *IVRProcessor {
	return &IVRProcessor{
		client:   client,
		registry: registry,
		signer:   signer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Choices is the confirm/cancel menu.
func Choices() []callautomation.RecognitionChoice {
	return []callautomation.RecognitionChoice{
		{Label: LabelConfirm, Phrases: []string{"Confirm", "First", "One"}, Tone: callautomation.ToneOne},
		{Label: LabelCancel, Phrases: []string{"Cancel", "Second", "Two"}, Tone: callautomation.ToneTwo},
	}
}

// PlaceOutboundCall dials the configured target and waits for the service
// to accept the request. Progress arrives later through HandleEvent.
func (p *IVRProcessor) PlaceOutboundCall(ctx context.Context) (callautomation.CallConnectionProperties, error) {
	if p.cfg.TargetPhoneNumber == "" {
		return callautomation.CallConnectionProperties{}, ErrNoTarget
	}

	callbackURL := p.cfg.CallbackBaseURL + callbackPath
	if p.signer != nil {
		signed, err := p.signer.SignURL(callbackURL, string(callsession.ScenarioIVR), string(callsession.ScenarioIVR))
		if err != nil {
			return callautomation.CallConnectionProperties{}, fmt.Errorf("failed to sign callback url: %w", err)
		}
		callbackURL = signed
	}

	p.logger.Info(ctx, "placing outbound call")
	props, err := p.client.CreateCall(ctx, callautomation.CreateCallOptions{
		Target:                    p.cfg.TargetPhoneNumber,
		CallerID:                  p.cfg.CallerID,
		CallbackURL:               callbackURL,
		CognitiveServicesEndpoint: p.cfg.CognitiveServicesEndpoint,
	})
	if err != nil {
		p.logger.Error(ctx, "failed to create call", err)
		return callautomation.CallConnectionProperties{}, fmt.Errorf("%w: %w", ErrPlaceCallFailed, err)
	}

	p.registry.Reserve(callsession.Call{
		CallConnectionID: props.CallConnectionID,
		ServerCallID:     props.ServerCallID,
		CorrelationID:    props.CorrelationID,
		Scenario:         callsession.ScenarioIVR,
		Target:           p.cfg.TargetPhoneNumber,
	})
	p.logger.Info(observability.WithCall(ctx, props.CallConnectionID, props.ServerCallID, props.CorrelationID), "outbound call placed")
	return props, nil
}

// HandleEvent issues at most one call-automation operation for ev. The
// returned Action says which one, even when the operation failed.
func (p *IVRProcessor) HandleEvent(ctx context.Context, ev callautomation.Event) (Action, error) {
	meta := ev.Metadata()
	ctx = observability.WithCall(ctx, meta.CallConnectionID, meta.ServerCallID, meta.CorrelationID)
	ctx = observability.WithFields(ctx, observability.Field{Key: "event_type", Value: meta.Type})

	switch e := ev.(type) {
	case callautomation.CallConnected:
		p.logger.Info(ctx, "call connected")
		call := p.registry.Connect(callsession.Call{
			CallConnectionID: e.CallConnectionID,
			ServerCallID:     e.ServerCallID,
			CorrelationID:    e.CorrelationID,
			Scenario:         callsession.ScenarioIVR,
			Target:           p.cfg.TargetPhoneNumber,
		})
		return p.recognize(ctx, call, MainMenu, "")

	case callautomation.RecognizeCompleted:
		if e.RecognitionType != callautomation.RecognitionTypeChoices {
			p.logger.Warn(ctx, fmt.Sprintf("ignoring recognition of type %q", e.RecognitionType))
			return Action{Kind: ActionNone}, nil
		}
		p.logger.Info(observability.WithFields(ctx,
			observability.Field{Key: "label", Value: e.Choice.Label},
			observability.Field{Key: "phrase", Value: e.Choice.RecognizedPhrase},
			observability.Field{Key: "operation_context", Value: e.OperationContext},
		), "recognition completed")

		prompt := CancelText
		if e.Choice.Label == LabelConfirm {
			prompt = ConfirmedText
		}
		return p.play(ctx, e.CallConnectionID, prompt)

	case callautomation.RecognizeFailed:
		if e.OperationContext == RetryContext {
			return p.play(ctx, e.CallConnectionID, NoResponse)
		}
		p.logger.Info(observability.WithFields(ctx,
			observability.Field{Key: "result_code", Value: e.Result.Code},
			observability.Field{Key: "result_sub_code", Value: e.Result.SubCode},
			observability.Field{Key: "result_message", Value: e.Result.Message},
		), "recognition failed")

		call, ok := p.registry.Get(e.CallConnectionID)
		if !ok {
			call = callsession.Call{CallConnectionID: e.CallConnectionID}
		}
		return p.recognize(ctx, call, failurePrompt(e.Result.SubCode), RetryContext)

	case callautomation.PlayCompleted, callautomation.PlayFailed:
		p.logger.Info(ctx, "terminating call")
		action := Action{Kind: ActionHangUp}
		if err := p.client.HangUp(ctx, meta.CallConnectionID, true); err != nil {
			p.logger.Error(ctx, "failed to hang up", err)
			return action, err
		}
		return action, nil

	case callautomation.CallDisconnected:
		if _, ok := p.registry.Remove(e.CallConnectionID); !ok {
			p.logger.Info(ctx, "disconnect for untracked call")
		}
		p.logger.Info(ctx, "call disconnected")
		return Action{Kind: ActionForget}, nil

	case callautomation.MediaStreamingStarted, callautomation.MediaStreamingStopped, callautomation.MediaStreamingFailed:
		p.logger.Info(ctx, "media streaming update")
		return Action{Kind: ActionNone}, nil

	default:
		p.logger.Debug(ctx, "unhandled event")
		return Action{Kind: ActionNone}, nil
	}
}

func (p *IVRProcessor) recognize(ctx context.Context, call callsession.Call, prompt Prompt, operationContext string) (Action, error) {
	action := Action{Kind: ActionRecognize, Prompt: prompt, OperationContext: operationContext}

	target := call.Target
	if target == "" {
		target = p.cfg.TargetPhoneNumber
	}
	if target == "" {
		p.logger.Error(ctx, "cannot start recognition", ErrNoTarget)
		return action, ErrNoTarget
	}

	err := p.client.StartRecognizing(ctx, call.CallConnectionID, callautomation.RecognizeOptions{
		TargetParticipant: target,
		Prompt:            p.source(prompt),
		Choices:           Choices(),
		InterruptPrompt:   false,
		InitialSilence:    initialSilenceTimeout,
		OperationContext:  operationContext,
	})
	if err != nil {
		p.logger.Error(ctx, "failed to start recognizing", err)
		return action, err
	}
	return action, nil
}

func (p *IVRProcessor) play(ctx context.Context, callConnectionID string, prompt Prompt) (Action, error) {
	action := Action{Kind: ActionPlay, Prompt: prompt}
	if err := p.client.Play(ctx, callConnectionID, callautomation.PlayOptions{Source: p.source(prompt)}); err != nil {
		p.logger.Error(ctx, "failed to play prompt", err)
		return action, err
	}
	return action, nil
}

// source renders a prompt as text or as the matching file served by
// /audioprompt.
func (p *IVRProcessor) source(prompt Prompt) callautomation.PlaySource {
	if p.cfg.PromptSource == PromptSourceFile {
		return callautomation.FileSource(p.cfg.CallbackBaseURL + "/audioprompt/" + PromptFileName(prompt))
	}
	return callautomation.TextSource(prompt.Text, p.cfg.VoiceName)
}

// PromptFileName is the audio file a prompt is rendered to.
func PromptFileName(prompt Prompt) string {
	return strings.ReplaceAll(prompt.Name, " ", "") + ".wav"
}
