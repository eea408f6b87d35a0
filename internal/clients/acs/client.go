package acs

import (
	"bytes"
	"callautomation-server/internal/callautomation"
	"callautomation-server/internal/observability"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// DefaultAPIVersion is the Call Automation REST API version requests are pinned to.
const DefaultAPIVersion = "2025-05-15"

// ResponseError is an error reported by the Call Automation service.
type ResponseError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ResponseError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("call automation API error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("call automation API error (%d %s): %s", e.StatusCode, e.Code, e.Message)
}

func (e *ResponseError) Unwrap() error {
	return callautomation.ErrRequestFailed
}

// Client talks to the Azure Communication Services Call Automation REST API.
type Client struct {
	cred       credential
	apiVersion string
	httpClient *http.Client
	now        func() time.Time
	logger     *observability.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAPIVersion overrides the pinned API version.
func WithAPIVersion(version string) Option {
	return func(c *Client) { c.apiVersion = version }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient creates a Call Automation client from a resource connection string.
func NewClient(connectionString string, logger *observability.Logger, opts ...Option) (*Client, error) {
	cred, err := parseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cred:       cred,
		apiVersion: DefaultAPIVersion,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CreateCall places an outbound call to a phone number.
func (c *Client) CreateCall(ctx context.Context, opts callautomation.CreateCallOptions) (callautomation.CallConnectionProperties, error) {
	req := createCallRequest{
		Targets:                 []identifierModel{identifierFromRaw(opts.Target)},
		CallbackURI:             opts.CallbackURL,
		OperationContext:        opts.OperationContext,
		CallIntelligenceOptions: toCallIntelligence(opts.CognitiveServicesEndpoint),
	}
	if opts.CallerID != "" {
		req.SourceCallerIDNumber = &phoneNumberModel{Value: opts.CallerID}
	}

	var resp callConnectionPropertiesModel
	if err := c.do(ctx, http.MethodPost, "/calling/callConnections", req, &resp); err != nil {
		return callautomation.CallConnectionProperties{}, fmt.Errorf("failed to create call: %w", err)
	}
	return resp.toProperties(), nil
}

// AnswerCall answers an incoming call identified by its incoming call context.
func (c *Client) AnswerCall(ctx context.Context, opts callautomation.AnswerCallOptions) (callautomation.CallConnectionProperties, error) {
	req := answerCallRequest{
		IncomingCallContext:     opts.IncomingCallContext,
		CallbackURI:             opts.CallbackURL,
		OperationContext:        opts.OperationContext,
		CallIntelligenceOptions: toCallIntelligence(opts.CognitiveServicesEndpoint),
		MediaStreamingOptions:   toMediaStreamingModel(opts.MediaStreaming),
	}

	var resp callConnectionPropertiesModel
	if err := c.do(ctx, http.MethodPost, "/calling/callConnections:answer", req, &resp); err != nil {
		return callautomation.CallConnectionProperties{}, fmt.Errorf("failed to answer call: %w", err)
	}
	return resp.toProperties(), nil
}

// GetCallConnection fetches the current properties of a call connection.
func (c *Client) GetCallConnection(ctx context.Context, callConnectionID string) (callautomation.CallConnectionProperties, error) {
	var resp callConnectionPropertiesModel
	if err := c.do(ctx, http.MethodGet, connectionPath(callConnectionID, ""), nil, &resp); err != nil {
		return callautomation.CallConnectionProperties{}, fmt.Errorf("failed to get call connection: %w", err)
	}
	return resp.toProperties(), nil
}

// Play plays a prompt to every participant of the call.
func (c *Client) Play(ctx context.Context, callConnectionID string, opts callautomation.PlayOptions) error {
	req := playRequest{
		PlaySources:      []playSourceModel{toPlaySourceModel(opts.Source)},
		PlayOptions:      &playOptionsModel{Loop: opts.Loop},
		OperationContext: opts.OperationContext,
	}
	if err := c.do(ctx, http.MethodPost, connectionPath(callConnectionID, ":play"), req, nil); err != nil {
		return fmt.Errorf("failed to play: %w", err)
	}
	return nil
}

// StartRecognizing plays a prompt and listens for one of the given choices.
func (c *Client) StartRecognizing(ctx context.Context, callConnectionID string, opts callautomation.RecognizeOptions) error {
	prompt := toPlaySourceModel(opts.Prompt)
	req := recognizeRequest{
		RecognizeInputType:          "choices",
		PlayPrompt:                  &prompt,
		InterruptCallMediaOperation: false,
		RecognizeOptions: recognizeOptionsModel{
			InterruptPrompt:                opts.InterruptPrompt,
			InitialSilenceTimeoutInSeconds: int(opts.InitialSilence / time.Second),
			TargetParticipant:              identifierFromRaw(opts.TargetParticipant),
		},
		OperationContext: opts.OperationContext,
	}
	for _, choice := range opts.Choices {
		req.RecognizeOptions.Choices = append(req.RecognizeOptions.Choices, choiceModel{
			Label:   choice.Label,
			Phrases: choice.Phrases,
			Tone:    choice.Tone,
		})
	}

	if err := c.do(ctx, http.MethodPost, connectionPath(callConnectionID, ":recognize"), req, nil); err != nil {
		return fmt.Errorf("failed to start recognizing: %w", err)
	}
	return nil
}

// HangUp leaves the call, or ends it for everyone.
func (c *Client) HangUp(ctx context.Context, callConnectionID string, forEveryone bool) error {
	var err error
	if forEveryone {
		err = c.do(ctx, http.MethodPost, connectionPath(callConnectionID, ":terminate"), struct{}{}, nil)
	} else {
		err = c.do(ctx, http.MethodDelete, connectionPath(callConnectionID, ""), nil, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to hang up: %w", err)
	}
	return nil
}

func connectionPath(callConnectionID, action string) string {
	return "/calling/callConnections/" + callConnectionID + action
}

// do sends a signed request and decodes a 2xx JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	u := *c.cred.endpoint
	u.Path = c.cred.endpoint.Path + path
	u.RawPath = ""
	query := url.Values{}
	query.Set("api-version", c.apiVersion)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	now := c.now()
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		req.Header.Set("Repeatability-Request-ID", uuid.New().String())
		req.Header.Set("Repeatability-First-Sent", now.UTC().Format(http.TimeFormat))
	}
	c.cred.sign(req, body, now)

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "acs_method", Value: method},
		observability.Field{Key: "acs_path", Value: path},
	)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error(ctx, "call automation request failed", err)
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respErr := decodeError(resp)
		c.logger.Error(ctx, "call automation request rejected", respErr)
		return respErr
	}
	c.logger.Debug(ctx, "call automation request accepted")

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	respErr := &ResponseError{StatusCode: resp.StatusCode}

	var payload errorResponse
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error.Message != "" {
		respErr.Code = payload.Error.Code
		respErr.Message = payload.Error.Message
	} else {
		respErr.Message = string(bytes.TrimSpace(raw))
	}
	return respErr
}
