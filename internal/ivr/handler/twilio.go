package handler

import (
	"callautomation-server/internal/apierrors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/twiml"
)

type statusCallback struct {
	CallSid    string `form:"CallSid" binding:"required"`
	CallStatus string `form:"CallStatus" binding:"required"`
}

type gatherCallback struct {
	CallSid      string `form:"CallSid" binding:"required"`
	Digits       string `form:"Digits"`
	SpeechResult string `form:"SpeechResult"`
}

type playCallback struct {
	CallSid string `form:"CallSid" binding:"required"`
}

// holdTwiML keeps the call open until the next TwiML update arrives.
func holdTwiML() string {
	doc, err := twiml.Voice([]twiml.Element{&twiml.VoicePause{Length: "60"}})
	if err != nil {
		return `<?xml version="1.0" encoding="UTF-8"?><Response><Pause length="60"/></Response>`
	}
	return doc
}

// HandleTwilioStatus maps call progress to connected and disconnected events.
func (h *Handler) HandleTwilioStatus(c *gin.Context) {
	var form statusCallback
	if err := c.ShouldBind(&form); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}
	h.dispatch(c.Request.Context(), h.twilio.StatusEvent(form.CallSid, form.CallStatus))
	c.Status(http.StatusNoContent)
}

// HandleTwilioGather resolves a gather result against the pending choices.
// The response holds the line while the next prompt is pushed to the call.
func (h *Handler) HandleTwilioGather(c *gin.Context) {
	var form gatherCallback
	if err := c.ShouldBind(&form); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}
	ev := h.twilio.ResolveGather(form.CallSid, c.Query("operationContext"), form.Digits, form.SpeechResult)
	h.dispatch(c.Request.Context(), ev)
	h.respondTwiML(c)
}

// HandleTwilioPlay fires after a played prompt redirects back to the server.
func (h *Handler) HandleTwilioPlay(c *gin.Context) {
	var form playCallback
	if err := c.ShouldBind(&form); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}
	h.dispatch(c.Request.Context(), h.twilio.PlayEvent(form.CallSid, c.Query("operationContext")))
	h.respondTwiML(c)
}

func (h *Handler) respondTwiML(c *gin.Context) {
	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, holdTwiML())
}
