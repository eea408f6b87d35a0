package acs

import (
	"callautomation-server/internal/callautomation"
	"strings"
)

// Wire models of the Call Automation REST API.

type phoneNumberModel struct {
	Value string `json:"value"`
}

type communicationUserModel struct {
	ID string `json:"id"`
}

type identifierModel struct {
	Kind              string                  `json:"kind,omitempty"`
	RawID             string                  `json:"rawId,omitempty"`
	PhoneNumber       *phoneNumberModel       `json:"phoneNumber,omitempty"`
	CommunicationUser *communicationUserModel `json:"communicationUser,omitempty"`
}

type callIntelligenceOptions struct {
	CognitiveServicesEndpoint string `json:"cognitiveServicesEndpoint,omitempty"`
}

type mediaStreamingOptionsModel struct {
	TransportURL        string `json:"transportUrl"`
	TransportType       string `json:"transportType"`
	ContentType         string `json:"contentType"`
	AudioChannelType    string `json:"audioChannelType"`
	StartMediaStreaming bool   `json:"startMediaStreaming"`
	EnableBidirectional bool   `json:"enableBidirectional"`
	AudioFormat         string `json:"audioFormat,omitempty"`
}

type createCallRequest struct {
	Targets                 []identifierModel           `json:"targets"`
	SourceCallerIDNumber    *phoneNumberModel           `json:"sourceCallerIdNumber,omitempty"`
	CallbackURI             string                      `json:"callbackUri"`
	OperationContext        string                      `json:"operationContext,omitempty"`
	CallIntelligenceOptions *callIntelligenceOptions    `json:"callIntelligenceOptions,omitempty"`
	MediaStreamingOptions   *mediaStreamingOptionsModel `json:"mediaStreamingOptions,omitempty"`
}

type answerCallRequest struct {
	IncomingCallContext     string                      `json:"incomingCallContext"`
	CallbackURI             string                      `json:"callbackUri"`
	OperationContext        string                      `json:"operationContext,omitempty"`
	CallIntelligenceOptions *callIntelligenceOptions    `json:"callIntelligenceOptions,omitempty"`
	MediaStreamingOptions   *mediaStreamingOptionsModel `json:"mediaStreamingOptions,omitempty"`
}

type mediaStreamingSubscriptionModel struct {
	ID                     string   `json:"id"`
	State                  string   `json:"state"`
	SubscribedContentTypes []string `json:"subscribedContentTypes"`
}

type callConnectionPropertiesModel struct {
	CallConnectionID           string                           `json:"callConnectionId"`
	ServerCallID               string                           `json:"serverCallId"`
	CorrelationID              string                           `json:"correlationId"`
	CallConnectionState        string                           `json:"callConnectionState"`
	CallbackURI                string                           `json:"callbackUri"`
	Source                     *identifierModel                 `json:"source,omitempty"`
	Targets                    []identifierModel                `json:"targets"`
	MediaStreamingSubscription *mediaStreamingSubscriptionModel `json:"mediaStreamingSubscription,omitempty"`
}

type textSourceModel struct {
	Text      string `json:"text"`
	VoiceName string `json:"voiceName,omitempty"`
}

type fileSourceModel struct {
	URI string `json:"uri"`
}

type playSourceModel struct {
	Kind string           `json:"kind"`
	Text *textSourceModel `json:"text,omitempty"`
	File *fileSourceModel `json:"file,omitempty"`
}

type playOptionsModel struct {
	Loop bool `json:"loop"`
}

type playRequest struct {
	PlaySources      []playSourceModel `json:"playSources"`
	PlayOptions      *playOptionsModel `json:"playOptions,omitempty"`
	OperationContext string            `json:"operationContext,omitempty"`
}

type choiceModel struct {
	Label   string   `json:"label"`
	Phrases []string `json:"phrases"`
	Tone    string   `json:"tone,omitempty"`
}

type recognizeOptionsModel struct {
	InterruptPrompt                bool            `json:"interruptPrompt"`
	InitialSilenceTimeoutInSeconds int             `json:"initialSilenceTimeoutInSeconds,omitempty"`
	TargetParticipant              identifierModel `json:"targetParticipant"`
	Choices                        []choiceModel   `json:"choices,omitempty"`
}

type recognizeRequest struct {
	RecognizeInputType          string                `json:"recognizeInputType"`
	PlayPrompt                  *playSourceModel      `json:"playPrompt,omitempty"`
	InterruptCallMediaOperation bool                  `json:"interruptCallMediaOperation"`
	RecognizeOptions            recognizeOptionsModel `json:"recognizeOptions"`
	OperationContext            string                `json:"operationContext,omitempty"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// identifierFromRaw maps a phone number ("+1425...") or raw id ("4:+1425...",
// "8:acs:...") to its wire model.
func identifierFromRaw(raw string) identifierModel {
	switch {
	case strings.HasPrefix(raw, "+"):
		return identifierModel{Kind: "phoneNumber", RawID: "4:" + raw, PhoneNumber: &phoneNumberModel{Value: raw}}
	case strings.HasPrefix(raw, "4:"):
		return identifierModel{Kind: "phoneNumber", RawID: raw, PhoneNumber: &phoneNumberModel{Value: strings.TrimPrefix(raw, "4:")}}
	default:
		return identifierModel{Kind: "communicationUser", RawID: raw, CommunicationUser: &communicationUserModel{ID: raw}}
	}
}

func (m identifierModel) raw() string {
	if m.RawID != "" {
		return m.RawID
	}
	if m.PhoneNumber != nil {
		return "4:" + m.PhoneNumber.Value
	}
	if m.CommunicationUser != nil {
		return m.CommunicationUser.ID
	}
	return ""
}

func toMediaStreamingModel(opts *callautomation.MediaStreamingOptions) *mediaStreamingOptionsModel {
	if opts == nil {
		return nil
	}
	return &mediaStreamingOptionsModel{
		TransportURL:        opts.TransportURL,
		TransportType:       opts.TransportType,
		ContentType:         opts.ContentType,
		AudioChannelType:    opts.AudioChannelType,
		StartMediaStreaming: opts.StartMediaStreaming,
		EnableBidirectional: opts.EnableBidirectional,
		AudioFormat:         opts.AudioFormat,
	}
}

func toCallIntelligence(endpoint string) *callIntelligenceOptions {
	if endpoint == "" {
		return nil
	}
	return &callIntelligenceOptions{CognitiveServicesEndpoint: endpoint}
}

func toPlaySourceModel(src callautomation.PlaySource) playSourceModel {
	if src.Kind == callautomation.PlaySourceFile {
		return playSourceModel{Kind: "file", File: &fileSourceModel{URI: src.URL}}
	}
	return playSourceModel{Kind: "text", Text: &textSourceModel{Text: src.Text, VoiceName: src.VoiceName}}
}

func (m callConnectionPropertiesModel) toProperties() callautomation.CallConnectionProperties {
	props := callautomation.CallConnectionProperties{
		CallConnectionID:    m.CallConnectionID,
		ServerCallID:        m.ServerCallID,
		CorrelationID:       m.CorrelationID,
		CallConnectionState: m.CallConnectionState,
		CallbackURL:         m.CallbackURI,
	}
	if m.Source != nil {
		props.Source = m.Source.raw()
	}
	for _, t := range m.Targets {
		props.Targets = append(props.Targets, t.raw())
	}
	if sub := m.MediaStreamingSubscription; sub != nil {
		props.MediaStreamingSubscription = &callautomation.MediaStreamingSubscription{
			ID:                     sub.ID,
			State:                  sub.State,
			SubscribedContentTypes: sub.SubscribedContentTypes,
		}
	}
	return props
}
