package twilio

import (
	"callautomation-server/internal/callautomation"
	"strings"
	"unicode"
)

// Result sub-codes reported for gathers, matching the ones the
// Communication Services recognizer uses.
const (
	SubCodeInitialSilenceTimeout = 8510
	SubCodeToneNotMatched        = 8534
	SubCodeSpeechNotMatched      = 8547
)

var toneDigits = map[string]string{
	"zero": "0", "one": "1", "two": "2", "three": "3", "four": "4",
	"five": "5", "six": "6", "seven": "7", "eight": "8", "nine": "9",
	"asterisk": "*", "pound": "#",
}

// StatusEvent translates a call status callback into a call event.
func (c *Client) StatusEvent(callSid, status string) callautomation.Event {
	common := callautomation.Common{CallConnectionID: callSid, ServerCallID: callSid}
	switch status {
	case "in-progress", "answered":
		common.Type = callautomation.TypeCallConnected
		return callautomation.CallConnected{Common: common}
	case "completed", "failed", "busy", "no-answer", "canceled":
		c.forget(callSid)
		common.Type = callautomation.TypeCallDisconnected
		return callautomation.CallDisconnected{Common: common}
	default:
		common.Type = "Twilio.CallStatus." + status
		return callautomation.Unknown{Common: common}
	}
}

// PlayEvent translates the redirect that follows a played prompt.
func (c *Client) PlayEvent(callSid, operationContext string) callautomation.Event {
	return callautomation.PlayCompleted{Common: callautomation.Common{
		Type:             callautomation.TypePlayCompleted,
		CallConnectionID: callSid,
		ServerCallID:     callSid,
		OperationContext: operationContext,
	}}
}

// ResolveGather matches a gather result against the pending choices of the
// call. No input fails with the silence sub-code, input that matches no
// choice fails with the tone or speech sub-code.
func (c *Client) ResolveGather(callSid, operationContext, digits, speech string) callautomation.Event {
	c.mu.Lock()
	pending, ok := c.pending[callSid]
	delete(c.pending, callSid)
	c.mu.Unlock()

	if operationContext == "" && ok {
		operationContext = pending.operationContext
	}
	common := callautomation.Common{
		CallConnectionID: callSid,
		ServerCallID:     callSid,
		OperationContext: operationContext,
	}

	digits = strings.TrimSpace(digits)
	speech = strings.TrimSpace(speech)

	fail := func(code, subCode int, message string) callautomation.Event {
		common.Type = callautomation.TypeRecognizeFailed
		common.Result = callautomation.ResultInformation{Code: code, SubCode: subCode, Message: message}
		return callautomation.RecognizeFailed{Common: common}
	}

	switch {
	case digits == "" && speech == "":
		return fail(400, SubCodeInitialSilenceTimeout, "Action failed, initial silence timeout reached.")
	case digits != "":
		if choice, found := matchDigit(pending.choices, digits); found {
			return recognized(common, choice.Label, digits)
		}
		return fail(400, SubCodeToneNotMatched, "Action failed, incorrect tone detected.")
	default:
		if choice, found := matchSpeech(pending.choices, speech); found {
			return recognized(common, choice.Label, speech)
		}
		return fail(400, SubCodeSpeechNotMatched, "Action failed, speech option not matched.")
	}
}

func recognized(common callautomation.Common, label, phrase string) callautomation.Event {
	common.Type = callautomation.TypeRecognizeCompleted
	common.Result = callautomation.ResultInformation{Code: 200, SubCode: 8545, Message: "Action completed successfully."}
	return callautomation.RecognizeCompleted{
		Common:          common,
		RecognitionType: callautomation.RecognitionTypeChoices,
		Choice:          callautomation.ChoiceResult{Label: label, RecognizedPhrase: phrase},
	}
}

func matchDigit(choices []callautomation.RecognitionChoice, digit string) (callautomation.RecognitionChoice, bool) {
	for _, choice := range choices {
		if toneDigits[strings.ToLower(choice.Tone)] == digit {
			return choice, true
		}
	}
	return callautomation.RecognitionChoice{}, false
}

func matchSpeech(choices []callautomation.RecognitionChoice, speech string) (callautomation.RecognitionChoice, bool) {
	words := strings.FieldsFunc(strings.ToLower(speech), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, choice := range choices {
		for _, phrase := range choice.Phrases {
			for _, word := range words {
				if word == strings.ToLower(phrase) {
					return choice, true
				}
			}
		}
	}
	return callautomation.RecognitionChoice{}, false
}

func hints(choices []callautomation.RecognitionChoice) string {
	var phrases []string
	for _, choice := range choices {
		phrases = append(phrases, choice.Phrases...)
	}
	return strings.Join(phrases, ", ")
}
