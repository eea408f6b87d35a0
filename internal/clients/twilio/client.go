// Package twilio implements the call-automation client on top of the Twilio
// Voice API. Media operations are expressed as TwiML updates on the live
// call; their outcomes come back through the /api/twilio webhooks and are
// translated into the same events the Communication Services backend emits.
package twilio

import (
	"callautomation-server/internal/callautomation"
	"callautomation-server/internal/observability"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	twiliogo "github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/twilio/twilio-go/twiml"
)

// Webhook paths, relative to the public callback base.
const (
	StatusPath = "/api/twilio/status"
	GatherPath = "/api/twilio/gather"
	PlayPath   = "/api/twilio/play"
	VoicePath  = "/api/twilio/voice"
)

// holdSeconds keeps a call open while waiting for the next TwiML update.
const holdSeconds = "60"

// callsAPI is the part of the Twilio REST API the client uses.
type callsAPI interface {
	CreateCall(params *api.CreateCallParams) (*api.ApiV2010Call, error)
	UpdateCall(sid string, params *api.UpdateCallParams) (*api.ApiV2010Call, error)
	FetchCall(sid string, params *api.FetchCallParams) (*api.ApiV2010Call, error)
}

type pendingRecognition struct {
	choices          []callautomation.RecognitionChoice
	operationContext string
}

// Client drives calls through Twilio.
type Client struct {
	calls       callsAPI
	fromNumber  string
	webhookBase string
	logger      *observability.Logger

	mu      sync.Mutex
	pending map[string]pendingRecognition
}

// NewClient creates a Twilio backed call-automation client. webhookBase is
// the public URL the /api/twilio webhooks are reachable at.
func NewClient(accountSID, authToken, fromNumber, webhookBase string, logger *observability.Logger) *Client {
	rest := twiliogo.NewRestClientWithParams(twiliogo.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return newClient(rest.Api, fromNumber, webhookBase, logger)
}

func newClient(calls callsAPI, fromNumber, webhookBase string, logger *observability.Logger) *Client {
	return &Client{
		calls:       calls,
		fromNumber:  fromNumber,
		webhookBase: webhookBase,
		logger:      logger,
		pending:     make(map[string]pendingRecognition),
	}
}

// CreateCall dials the target and holds the line until the status webhook
// reports the call answered.
func (c *Client) CreateCall(ctx context.Context, opts callautomation.CreateCallOptions) (callautomation.CallConnectionProperties, error) {
	hold, err := twiml.Voice([]twiml.Element{&twiml.VoicePause{Length: holdSeconds}})
	if err != nil {
		return callautomation.CallConnectionProperties{}, fmt.Errorf("failed to build TwiML: %w", err)
	}

	from := opts.CallerID
	if from == "" {
		from = c.fromNumber
	}

	params := &api.CreateCallParams{}
	params.SetTo(opts.Target)
	params.SetFrom(from)
	params.SetTwiml(hold)
	params.SetStatusCallback(c.webhookBase + StatusPath)
	params.SetStatusCallbackMethod("POST")
	params.SetStatusCallbackEvent([]string{"initiated", "ringing", "answered", "completed"})

	call, err := c.calls.CreateCall(params)
	if err != nil {
		return callautomation.CallConnectionProperties{}, fmt.Errorf("failed to create call: %w: %w", callautomation.ErrRequestFailed, err)
	}

	props := toProperties(call)
	c.logger.Info(observability.WithCall(ctx, props.CallConnectionID, "", ""), "twilio call created")
	return props, nil
}

// AnswerCall is not available: Twilio answers inbound calls by fetching
// TwiML from the voice webhook.
func (c *Client) AnswerCall(ctx context.Context, opts callautomation.AnswerCallOptions) (callautomation.CallConnectionProperties, error) {
	return callautomation.CallConnectionProperties{}, callautomation.ErrUnsupported
}

func (c *Client) GetCallConnection(ctx context.Context, callConnectionID string) (callautomation.CallConnectionProperties, error) {
	call, err := c.calls.FetchCall(callConnectionID, &api.FetchCallParams{})
	if err != nil {
		return callautomation.CallConnectionProperties{}, fmt.Errorf("failed to fetch call: %w: %w", callautomation.ErrRequestFailed, err)
	}
	return toProperties(call), nil
}

// Play replaces the call's TwiML with the prompt followed by a redirect to
// the play webhook, which reports PlayCompleted.
func (c *Client) Play(ctx context.Context, callConnectionID string, opts callautomation.PlayOptions) error {
	elements := []twiml.Element{
		promptElement(opts.Source, opts.Loop),
		&twiml.VoiceRedirect{
			Url:    c.webhookURL(PlayPath, opts.OperationContext),
			Method: "POST",
		},
	}
	if err := c.updateTwiML(callConnectionID, elements); err != nil {
		return fmt.Errorf("failed to play: %w", err)
	}
	return nil
}

// StartRecognizing gathers one DTMF digit or a short utterance. The choices
// are kept until the gather webhook resolves them.
func (c *Client) StartRecognizing(ctx context.Context, callConnectionID string, opts callautomation.RecognizeOptions) error {
	timeout := opts.InitialSilence
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	gather := &twiml.VoiceGather{
		Input:               "dtmf speech",
		NumDigits:           "1",
		Timeout:             strconv.Itoa(int(timeout / time.Second)),
		Action:              c.webhookURL(GatherPath, opts.OperationContext),
		Method:              "POST",
		Hints:               hints(opts.Choices),
		ActionOnEmptyResult: "true",
		InnerElements:       []twiml.Element{promptElement(opts.Prompt, false)},
	}
	if opts.InterruptPrompt {
		gather.BargeIn = "true"
	} else {
		gather.BargeIn = "false"
	}

	c.mu.Lock()
	c.pending[callConnectionID] = pendingRecognition{
		choices:          opts.Choices,
		operationContext: opts.OperationContext,
	}
	c.mu.Unlock()

	if err := c.updateTwiML(callConnectionID, []twiml.Element{gather}); err != nil {
		c.mu.Lock()
		delete(c.pending, callConnectionID)
		c.mu.Unlock()
		return fmt.Errorf("failed to start recognizing: %w", err)
	}
	return nil
}

// HangUp completes the call. Twilio calls have two legs, so leaving and
// ending for everyone are the same operation.
func (c *Client) HangUp(ctx context.Context, callConnectionID string, forEveryone bool) error {
	params := &api.UpdateCallParams{}
	params.SetStatus("completed")
	if _, err := c.calls.UpdateCall(callConnectionID, params); err != nil {
		return fmt.Errorf("failed to hang up: %w: %w", callautomation.ErrRequestFailed, err)
	}
	c.forget(callConnectionID)
	return nil
}

func (c *Client) updateTwiML(callSid string, elements []twiml.Element) error {
	doc, err := twiml.Voice(elements)
	if err != nil {
		return fmt.Errorf("failed to build TwiML: %w", err)
	}
	params := &api.UpdateCallParams{}
	params.SetTwiml(doc)
	if _, err := c.calls.UpdateCall(callSid, params); err != nil {
		return fmt.Errorf("%w: %w", callautomation.ErrRequestFailed, err)
	}
	return nil
}

func (c *Client) webhookURL(path, operationContext string) string {
	u := c.webhookBase + path
	if operationContext != "" {
		u += "?" + url.Values{"operationContext": {operationContext}}.Encode()
	}
	return u
}

func (c *Client) forget(callSid string) {
	c.mu.Lock()
	delete(c.pending, callSid)
	c.mu.Unlock()
}

func promptElement(src callautomation.PlaySource, loop bool) twiml.Element {
	loopAttr := ""
	if loop {
		loopAttr = "0"
	}
	if src.Kind == callautomation.PlaySourceFile {
		return &twiml.VoicePlay{Url: src.URL, Loop: loopAttr}
	}
	return &twiml.VoiceSay{Message: src.Text, Loop: loopAttr}
}

func toProperties(call *api.ApiV2010Call) callautomation.CallConnectionProperties {
	props := callautomation.CallConnectionProperties{}
	if call == nil {
		return props
	}
	if call.Sid != nil {
		props.CallConnectionID = *call.Sid
		props.ServerCallID = *call.Sid
	}
	if call.Status != nil {
		props.CallConnectionState = *call.Status
	}
	if call.From != nil {
		props.Source = *call.From
	}
	if call.To != nil {
		props.Targets = []string{*call.To}
	}
	return props
}
