package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/twiml"
)

// HandleTwilioVoice answers a Twilio incoming-call webhook with TwiML that
// connects the call audio to the media stream relay.
func (h *Handler) HandleTwilioVoice(c *gin.Context) {
	ctx := c.Request.Context()

	stream := twiml.VoiceStream{
		Name: "voice-agent",
		Url:  h.twilioStreamURL,
	}
	connect := twiml.VoiceConnect{
		InnerElements: []twiml.Element{stream},
	}

	result, err := twiml.Voice([]twiml.Element{connect})
	if err != nil {
		h.logger.Error(ctx, "failed to render TwiML", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, result)
}
