package acs

import (
	"callautomation-server/internal/callautomation"
	"callautomation-server/internal/observability"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = base64.StdEncoding.EncodeToString([]byte("super-secret-access-key"))

type capturedRequest struct {
	method string
	path   string
	query  string
	header http.Header
	body   map[string]any
}

func newTestClient(t *testing.T, status int, response string) (*Client, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		captured.method = r.Method
		captured.path = r.URL.Path
		captured.query = r.URL.RawQuery
		captured.header = r.Header.Clone()
		if len(raw) > 0 {
			require.NoError(t, json.Unmarshal(raw, &captured.body))
		}

		// Recompute the signature the way the service does.
		cred, err := parseConnectionString("endpoint=http://" + r.Host + "/;accesskey=" + testKey)
		require.NoError(t, err)
		want := cred.signature(r.Method, r.URL.RequestURI(), r.Header.Get("x-ms-date"), r.Host, r.Header.Get("x-ms-content-sha256"))
		if !strings.HasSuffix(r.Header.Get("Authorization"), "&Signature="+want) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"Unauthorized","message":"bad signature"}}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient("endpoint="+server.URL+"/;accesskey="+testKey, observability.NewNopLogger())
	require.NoError(t, err)
	client.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return client, captured
}

func TestParseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid", input: "endpoint=https://contoso.communication.azure.com/;accesskey=" + testKey},
		{name: "keys are case-insensitive", input: "Endpoint=https://contoso.communication.azure.com/;AccessKey=" + testKey},
		{name: "missing key", input: "endpoint=https://contoso.communication.azure.com/", wantErr: true},
		{name: "key not base64", input: "endpoint=https://contoso.communication.azure.com/;accesskey=***", wantErr: true},
		{name: "endpoint without host", input: "endpoint=contoso;accesskey=" + testKey, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, err := parseConnectionString(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConnectionString)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "contoso.communication.azure.com", cred.endpoint.Host)
			assert.Equal(t, []byte("super-secret-access-key"), cred.key)
		})
	}
}

func TestCreateCall(t *testing.T) {
	client, captured := newTestClient(t, http.StatusCreated,
		`{"callConnectionId":"conn-1","serverCallId":"server-1","callConnectionState":"connecting","targets":[{"rawId":"4:+14255550123"}]}`)

	props, err := client.CreateCall(context.Background(), callautomation.CreateCallOptions{
		Target:                    "+14255550123",
		CallerID:                  "+18005550100",
		CallbackURL:               "https://example.ngrok.app/api/callbacks",
		CognitiveServicesEndpoint: "https://contoso.cognitiveservices.azure.com/",
	})
	require.NoError(t, err)

	assert.Equal(t, "conn-1", props.CallConnectionID)
	assert.Equal(t, "server-1", props.ServerCallID)
	assert.Equal(t, []string{"4:+14255550123"}, props.Targets)

	assert.Equal(t, http.MethodPost, captured.method)
	assert.Equal(t, "/calling/callConnections", captured.path)
	assert.Equal(t, "api-version="+DefaultAPIVersion, captured.query)
	assert.NotEmpty(t, captured.header.Get("Repeatability-Request-ID"))
	assert.Equal(t, "Sun, 01 Jun 2025 12:00:00 GMT", captured.header.Get("x-ms-date"))

	targets := captured.body["targets"].([]any)
	require.Len(t, targets, 1)
	target := targets[0].(map[string]any)
	assert.Equal(t, "phoneNumber", target["kind"])
	assert.Equal(t, "+14255550123", target["phoneNumber"].(map[string]any)["value"])
	assert.Equal(t, "+18005550100", captured.body["sourceCallerIdNumber"].(map[string]any)["value"])
	assert.Equal(t, "https://example.ngrok.app/api/callbacks", captured.body["callbackUri"])
	assert.Equal(t, "https://contoso.cognitiveservices.azure.com/",
		captured.body["callIntelligenceOptions"].(map[string]any)["cognitiveServicesEndpoint"])
}

func TestAnswerCall_WithMediaStreaming(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK, `{"callConnectionId":"conn-2"}`)

	props, err := client.AnswerCall(context.Background(), callautomation.AnswerCallOptions{
		IncomingCallContext: "incoming-ctx",
		CallbackURL:         "https://example.ngrok.app/api/callbacks/abc?callerId=4:+1425",
		MediaStreaming:      callautomation.StreamingToWebsocket("wss://example.ngrok.app/ws"),
	})
	require.NoError(t, err)
	assert.Equal(t, "conn-2", props.CallConnectionID)

	assert.Equal(t, "/calling/callConnections:answer", captured.path)
	assert.Equal(t, "incoming-ctx", captured.body["incomingCallContext"])
	streaming := captured.body["mediaStreamingOptions"].(map[string]any)
	assert.Equal(t, "wss://example.ngrok.app/ws", streaming["transportUrl"])
	assert.Equal(t, "websocket", streaming["transportType"])
	assert.Equal(t, "unmixed", streaming["audioChannelType"])
	assert.Equal(t, "pcm24KMono", streaming["audioFormat"])
	assert.Equal(t, true, streaming["startMediaStreaming"])
	assert.Equal(t, true, streaming["enableBidirectional"])
	assert.NotContains(t, captured.body, "callIntelligenceOptions")
}

func TestGetCallConnection(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK,
		`{"callConnectionId":"conn-3","mediaStreamingSubscription":{"id":"sub-1","state":"active","subscribedContentTypes":["audio"]}}`)

	props, err := client.GetCallConnection(context.Background(), "conn-3")
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, captured.method)
	assert.Equal(t, "/calling/callConnections/conn-3", captured.path)
	assert.Empty(t, captured.header.Get("Repeatability-Request-ID"))
	require.NotNil(t, props.MediaStreamingSubscription)
	assert.Equal(t, "active", props.MediaStreamingSubscription.State)
	assert.Equal(t, []string{"audio"}, props.MediaStreamingSubscription.SubscribedContentTypes)
}

func TestPlay(t *testing.T) {
	tests := []struct {
		name   string
		source callautomation.PlaySource
		check  func(t *testing.T, src map[string]any)
	}{
		{
			name:   "text source",
			source: callautomation.TextSource("Goodbye", "en-US-NancyNeural"),
			check: func(t *testing.T, src map[string]any) {
				assert.Equal(t, "text", src["kind"])
				text := src["text"].(map[string]any)
				assert.Equal(t, "Goodbye", text["text"])
				assert.Equal(t, "en-US-NancyNeural", text["voiceName"])
			},
		},
		{
			name:   "file source",
			source: callautomation.FileSource("https://example.ngrok.app/audioprompt/Confirmed.wav"),
			check: func(t *testing.T, src map[string]any) {
				assert.Equal(t, "file", src["kind"])
				assert.Equal(t, "https://example.ngrok.app/audioprompt/Confirmed.wav", src["file"].(map[string]any)["uri"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, captured := newTestClient(t, http.StatusAccepted, ``)

			err := client.Play(context.Background(), "conn-1", callautomation.PlayOptions{Source: tt.source})
			require.NoError(t, err)

			assert.Equal(t, "/calling/callConnections/conn-1:play", captured.path)
			sources := captured.body["playSources"].([]any)
			require.Len(t, sources, 1)
			tt.check(t, sources[0].(map[string]any))
			assert.Equal(t, false, captured.body["playOptions"].(map[string]any)["loop"])
		})
	}
}

func TestStartRecognizing(t *testing.T) {
	client, captured := newTestClient(t, http.StatusAccepted, ``)

	err := client.StartRecognizing(context.Background(), "conn-1", callautomation.RecognizeOptions{
		TargetParticipant: "+14255550123",
		Prompt:            callautomation.TextSource("Say confirm or cancel", "en-US-NancyNeural"),
		Choices: []callautomation.RecognitionChoice{
			{Label: "Confirm", Phrases: []string{"Confirm", "First", "One"}, Tone: callautomation.ToneOne},
			{Label: "Cancel", Phrases: []string{"Cancel", "Second", "Two"}, Tone: callautomation.ToneTwo},
		},
		InitialSilence:   10 * time.Second,
		OperationContext: "Retry",
	})
	require.NoError(t, err)

	assert.Equal(t, "/calling/callConnections/conn-1:recognize", captured.path)
	assert.Equal(t, "choices", captured.body["recognizeInputType"])
	assert.Equal(t, "Retry", captured.body["operationContext"])

	opts := captured.body["recognizeOptions"].(map[string]any)
	assert.Equal(t, float64(10), opts["initialSilenceTimeoutInSeconds"])
	assert.Equal(t, false, opts["interruptPrompt"])
	assert.Equal(t, "4:+14255550123", opts["targetParticipant"].(map[string]any)["rawId"])

	choices := opts["choices"].([]any)
	require.Len(t, choices, 2)
	assert.Equal(t, "Confirm", choices[0].(map[string]any)["label"])
	assert.Equal(t, "two", choices[1].(map[string]any)["tone"])
}

func TestHangUp(t *testing.T) {
	t.Run("for everyone terminates the call", func(t *testing.T) {
		client, captured := newTestClient(t, http.StatusNoContent, ``)

		require.NoError(t, client.HangUp(context.Background(), "conn-1", true))
		assert.Equal(t, http.MethodPost, captured.method)
		assert.Equal(t, "/calling/callConnections/conn-1:terminate", captured.path)
	})

	t.Run("alone leaves the call", func(t *testing.T) {
		client, captured := newTestClient(t, http.StatusNoContent, ``)

		require.NoError(t, client.HangUp(context.Background(), "conn-1", false))
		assert.Equal(t, http.MethodDelete, captured.method)
		assert.Equal(t, "/calling/callConnections/conn-1", captured.path)
	})
}

func TestServiceErrorsWrapRequestFailed(t *testing.T) {
	client, _ := newTestClient(t, http.StatusBadRequest,
		`{"error":{"code":"8523","message":"Invalid request: target participant not found"}}`)

	err := client.Play(context.Background(), "conn-1", callautomation.PlayOptions{
		Source: callautomation.TextSource("hi", ""),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, callautomation.ErrRequestFailed))

	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, http.StatusBadRequest, respErr.StatusCode)
	assert.Equal(t, "8523", respErr.Code)
	assert.Contains(t, respErr.Message, "target participant")
}

func TestWithAPIVersion(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK, `{"callConnectionId":"conn-1"}`)
	WithAPIVersion("2024-09-15")(client)

	_, err := client.GetCallConnection(context.Background(), "conn-1")
	require.NoError(t, err)
	assert.Equal(t, "api-version=2024-09-15", captured.query)
}
