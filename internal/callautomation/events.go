package callautomation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyEnvelope     = errors.New("event envelope is empty")
	ErrMalformedEnvelope = errors.New("event envelope is malformed")
)

// Event type strings as delivered by the call-automation service and Event Grid.
const (
	TypeSubscriptionValidation = "Microsoft.EventGrid.SubscriptionValidationEvent"
	TypeIncomingCall           = "Microsoft.Communication.IncomingCall"
	TypeCallConnected          = "Microsoft.Communication.CallConnected"
	TypeCallDisconnected       = "Microsoft.Communication.CallDisconnected"
	TypeRecognizeCompleted     = "Microsoft.Communication.RecognizeCompleted"
	TypeRecognizeFailed        = "Microsoft.Communication.RecognizeFailed"
	TypePlayCompleted          = "Microsoft.Communication.PlayCompleted"
	TypePlayFailed             = "Microsoft.Communication.PlayFailed"
	TypeMediaStreamingStarted  = "Microsoft.Communication.MediaStreamingStarted"
	TypeMediaStreamingStopped  = "Microsoft.Communication.MediaStreamingStopped"
	TypeMediaStreamingFailed   = "Microsoft.Communication.MediaStreamingFailed"
)

// RecognitionTypeChoices is the recognitionType reported for choice-based recognition.
const RecognitionTypeChoices = "choices"

// Event is one decoded webhook notification. The set of implementations is
// closed; anything the service sends that is not listed decodes to Unknown.
type Event interface {
	Metadata() Common
	isEvent()
}

// Common carries the identifiers every call event has.
type Common struct {
	Type             string
	CallConnectionID string
	ServerCallID     string
	CorrelationID    string
	OperationContext string
	Result           ResultInformation
}

func (c Common) Metadata() Common { return c }
func (Common) isEvent()           {}

// ResultInformation describes the outcome of a media operation.
type ResultInformation struct {
	Code    int    `json:"code"`
	SubCode int    `json:"subCode"`
	Message string `json:"message"`
}

// Identifier is a communication identifier in its raw form.
type Identifier struct {
	Kind        string `json:"kind,omitempty"`
	RawID       string `json:"rawId"`
	PhoneNumber *struct {
		Value string `json:"value"`
	} `json:"phoneNumber,omitempty"`
}

// ChoiceResult is the matched choice of a choice recognition.
type ChoiceResult struct {
	Label            string `json:"label"`
	RecognizedPhrase string `json:"recognizedPhrase"`
}

// MediaStreamingUpdate is the status payload of the media streaming events.
type MediaStreamingUpdate struct {
	ContentType                 string `json:"contentType"`
	MediaStreamingStatus        string `json:"mediaStreamingStatus"`
	MediaStreamingStatusDetails string `json:"mediaStreamingStatusDetails"`
}

type SubscriptionValidation struct {
	Common
	ValidationCode string
	ValidationURL  string
}

type IncomingCall struct {
	Common
	From                Identifier
	To                  Identifier
	CallerDisplayName   string
	IncomingCallContext string
}

type CallConnected struct{ Common }

type CallDisconnected struct{ Common }

type RecognizeCompleted struct {
	Common
	RecognitionType string
	Choice          ChoiceResult
}

type RecognizeFailed struct{ Common }

type PlayCompleted struct{ Common }

type PlayFailed struct{ Common }

type MediaStreamingStarted struct {
	Common
	Update MediaStreamingUpdate
}

type MediaStreamingStopped struct {
	Common
	Update MediaStreamingUpdate
}

type MediaStreamingFailed struct {
	Common
	Update MediaStreamingUpdate
}

// Unknown is any event whose type is not handled. It is never an error.
type Unknown struct {
	Common
	Data json.RawMessage
}

type envelope struct {
	Type      string          `json:"type"`
	EventType string          `json:"eventType"`
	Data      json.RawMessage `json:"data"`
}

type payload struct {
	CallConnectionID     string               `json:"callConnectionId"`
	ServerCallID         string               `json:"serverCallId"`
	CorrelationID        string               `json:"correlationId"`
	OperationContext     string               `json:"operationContext"`
	ResultInformation    ResultInformation    `json:"resultInformation"`
	RecognitionType      string               `json:"recognitionType"`
	ChoiceResult         ChoiceResult         `json:"choiceResult"`
	MediaStreamingUpdate MediaStreamingUpdate `json:"mediaStreamingUpdate"`
	ValidationCode       string               `json:"validationCode"`
	ValidationURL        string               `json:"validationUrl"`
	From                 Identifier           `json:"from"`
	To                   Identifier           `json:"to"`
	CallerDisplayName    string               `json:"callerDisplayName"`
	IncomingCallContext  string               `json:"incomingCallContext"`
}

// DecodeEvents decodes a webhook body, a JSON array of CloudEvents or Event
// Grid events, into typed events.
func DecodeEvents(body []byte) ([]Event, error) {
	var raw []envelope
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyEnvelope
	}

	events := make([]Event, 0, len(raw))
	for i, e := range raw {
		ev, err := decodeEvent(e)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func decodeEvent(e envelope) (Event, error) {
	eventType := e.Type
	if eventType == "" {
		eventType = e.EventType
	}

	var p payload
	if len(e.Data) > 0 && string(e.Data) != "null" {
		if err := json.Unmarshal(e.Data, &p); err != nil {
			return nil, fmt.Errorf("%w: data of %s: %v", ErrMalformedEnvelope, eventType, err)
		}
	}

	common := Common{
		Type:             eventType,
		CallConnectionID: p.CallConnectionID,
		ServerCallID:     p.ServerCallID,
		CorrelationID:    p.CorrelationID,
		OperationContext: p.OperationContext,
		Result:           p.ResultInformation,
	}

	// PlayFailed has been seen with a lower-case first letter.
	switch {
	case strings.EqualFold(eventType, TypeSubscriptionValidation):
		return SubscriptionValidation{Common: common, ValidationCode: p.ValidationCode, ValidationURL: p.ValidationURL}, nil
	case strings.EqualFold(eventType, TypeIncomingCall):
		return IncomingCall{
			Common:              common,
			From:                p.From,
			To:                  p.To,
			CallerDisplayName:   p.CallerDisplayName,
			IncomingCallContext: p.IncomingCallContext,
		}, nil
	case strings.EqualFold(eventType, TypeCallConnected):
		return CallConnected{common}, nil
	case strings.EqualFold(eventType, TypeCallDisconnected):
		return CallDisconnected{common}, nil
	case strings.EqualFold(eventType, TypeRecognizeCompleted):
		return RecognizeCompleted{Common: common, RecognitionType: p.RecognitionType, Choice: p.ChoiceResult}, nil
	case strings.EqualFold(eventType, TypeRecognizeFailed):
		return RecognizeFailed{common}, nil
	case strings.EqualFold(eventType, TypePlayCompleted):
		return PlayCompleted{common}, nil
	case strings.EqualFold(eventType, TypePlayFailed):
		return PlayFailed{common}, nil
	case strings.EqualFold(eventType, TypeMediaStreamingStarted):
		return MediaStreamingStarted{Common: common, Update: p.MediaStreamingUpdate}, nil
	case strings.EqualFold(eventType, TypeMediaStreamingStopped):
		return MediaStreamingStopped{Common: common, Update: p.MediaStreamingUpdate}, nil
	case strings.EqualFold(eventType, TypeMediaStreamingFailed):
		return MediaStreamingFailed{Common: common, Update: p.MediaStreamingUpdate}, nil
	default:
		return Unknown{Common: common, Data: e.Data}, nil
	}
}
