package callautomation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvents(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, ev Event)
	}{
		{
			name: "call connected cloud event",
			body: `[{"type":"Microsoft.Communication.CallConnected","data":{"callConnectionId":"c1","serverCallId":"s1","correlationId":"r1"}}]`,
			check: func(t *testing.T, ev Event) {
				connected, ok := ev.(CallConnected)
				require.True(t, ok)
				assert.Equal(t, "c1", connected.CallConnectionID)
				assert.Equal(t, "s1", connected.ServerCallID)
				assert.Equal(t, "r1", connected.CorrelationID)
			},
		},
		{
			name: "subscription validation event grid",
			body: `[{"eventType":"Microsoft.EventGrid.SubscriptionValidationEvent","data":{"validationCode":"abc-123","validationUrl":"https://eg/validate"}}]`,
			check: func(t *testing.T, ev Event) {
				validation, ok := ev.(SubscriptionValidation)
				require.True(t, ok)
				assert.Equal(t, "abc-123", validation.ValidationCode)
				assert.Equal(t, "https://eg/validate", validation.ValidationURL)
			},
		},
		{
			name: "incoming call",
			body: `[{"eventType":"Microsoft.Communication.IncomingCall","data":{"from":{"kind":"phoneNumber","rawId":"4:+14255550123","phoneNumber":{"value":"+14255550123"}},"incomingCallContext":"ctx-token"}}]`,
			check: func(t *testing.T, ev Event) {
				incoming, ok := ev.(IncomingCall)
				require.True(t, ok)
				assert.Equal(t, "4:+14255550123", incoming.From.RawID)
				require.NotNil(t, incoming.From.PhoneNumber)
				assert.Equal(t, "+14255550123", incoming.From.PhoneNumber.Value)
				assert.Equal(t, "ctx-token", incoming.IncomingCallContext)
			},
		},
		{
			name: "recognize completed with choice",
			body: `[{"type":"Microsoft.Communication.RecognizeCompleted","data":{"callConnectionId":"c1","recognitionType":"choices","choiceResult":{"label":"Confirm","recognizedPhrase":"first"}}}]`,
			check: func(t *testing.T, ev Event) {
				completed, ok := ev.(RecognizeCompleted)
				require.True(t, ok)
				assert.Equal(t, RecognitionTypeChoices, completed.RecognitionType)
				assert.Equal(t, "Confirm", completed.Choice.Label)
			},
		},
		{
			name: "recognize failed keeps subcode and context",
			body: `[{"type":"Microsoft.Communication.RecognizeFailed","data":{"callConnectionId":"c1","operationContext":"Retry","resultInformation":{"code":400,"subCode":8510,"message":"timeout"}}}]`,
			check: func(t *testing.T, ev Event) {
				failed, ok := ev.(RecognizeFailed)
				require.True(t, ok)
				assert.Equal(t, "Retry", failed.OperationContext)
				assert.Equal(t, 8510, failed.Result.SubCode)
			},
		},
		{
			name: "play failed matched case-insensitively",
			body: `[{"type":"Microsoft.Communication.playFailed","data":{"callConnectionId":"c1"}}]`,
			check: func(t *testing.T, ev Event) {
				_, ok := ev.(PlayFailed)
				assert.True(t, ok)
			},
		},
		{
			name: "media streaming started",
			body: `[{"type":"Microsoft.Communication.MediaStreamingStarted","data":{"callConnectionId":"c1","mediaStreamingUpdate":{"contentType":"Audio","mediaStreamingStatus":"mediaStreamingStarted","mediaStreamingStatusDetails":"subscriptionStarted"}}}]`,
			check: func(t *testing.T, ev Event) {
				started, ok := ev.(MediaStreamingStarted)
				require.True(t, ok)
				assert.Equal(t, "mediaStreamingStarted", started.Update.MediaStreamingStatus)
			},
		},
		{
			name: "unknown type is not an error",
			body: `[{"type":"Microsoft.Communication.ParticipantsUpdated","data":{"callConnectionId":"c1"}}]`,
			check: func(t *testing.T, ev Event) {
				unknown, ok := ev.(Unknown)
				require.True(t, ok)
				assert.Equal(t, "Microsoft.Communication.ParticipantsUpdated", unknown.Metadata().Type)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := DecodeEvents([]byte(tt.body))
			require.NoError(t, err)
			require.Len(t, events, 1)
			tt.check(t, events[0])
		})
	}
}

func TestDecodeEvents_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{name: "empty array", body: `[]`, wantErr: ErrEmptyEnvelope},
		{name: "not json", body: `not json`, wantErr: ErrMalformedEnvelope},
		{name: "object instead of array", body: `{"type":"x"}`, wantErr: ErrMalformedEnvelope},
		{name: "data of wrong shape", body: `[{"type":"Microsoft.Communication.CallConnected","data":"oops"}]`, wantErr: ErrMalformedEnvelope},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEvents([]byte(tt.body))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestStreamingToWebsocket(t *testing.T) {
	opts := StreamingToWebsocket("wss://relay.example/ws")

	assert.Equal(t, "wss://relay.example/ws", opts.TransportURL)
	assert.Equal(t, TransportWebsocket, opts.TransportType)
	assert.Equal(t, AudioChannelUnmixed, opts.AudioChannelType)
	assert.Equal(t, AudioFormatPCM24K, opts.AudioFormat)
	assert.True(t, opts.StartMediaStreaming)
	assert.True(t, opts.EnableBidirectional)
}
