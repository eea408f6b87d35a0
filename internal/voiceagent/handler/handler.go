package handler

import (
	"callautomation-server/internal/callautomation"
	"callautomation-server/internal/mediastreaming"
	"callautomation-server/internal/observability"
	"callautomation-server/internal/realtime"
	"callautomation-server/internal/relay"
	"callautomation-server/internal/voiceagent/processor"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type Handler struct {
	processor       *processor.VoiceAgentProcessor
	dialer          realtime.Dialer
	relayConfig     relay.Config
	twilioStreamURL string
	logger          *observability.Logger
}

// New creates the voice-agent handler. processor may be nil in a
// relay-only process, which serves the websocket endpoints alone.
func New(voiceProcessor *processor.VoiceAgentProcessor, dialer realtime.Dialer, relayConfig relay.Config, twilioStreamURL string, logger *observability.Logger) Handler {
	return Handler{
		processor:       voiceProcessor,
		dialer:          dialer,
		relayConfig:     relayConfig,
		twilioStreamURL: twilioStreamURL,
		logger:          logger,
	}
}

// upgrader is shared by both media streaming endpoints. The carriers do not
// send an Origin header.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// validationResponse echoes an Event Grid subscription validation code.
type validationResponse struct {
	ValidationResponse string `json:"validationResponse"`
}

// HandleIncomingCall answers Event Grid incoming-call notifications. It
// always answers 200 so Event Grid does not redeliver.
func (h *Handler) HandleIncomingCall(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error(ctx, "failed to read incoming call body", err)
		c.Status(http.StatusOK)
		return
	}
	events, err := callautomation.DecodeEvents(body)
	if err != nil {
		h.logger.Error(ctx, "failed to decode incoming call events", err)
		c.Status(http.StatusOK)
		return
	}

	switch ev := events[0].(type) {
	case callautomation.SubscriptionValidation:
		h.logger.Info(ctx, "received subscription validation event")
		c.JSON(http.StatusOK, validationResponse{ValidationResponse: ev.ValidationCode})
		return
	case callautomation.IncomingCall:
		if _, err := h.processor.AnswerIncomingCall(ctx, ev); err != nil {
			h.logger.Error(ctx, "error during the incoming call event", err)
		}
	default:
		h.logger.Warn(ctx, "unexpected event on incoming call webhook")
	}
	c.Status(http.StatusOK)
}

// HandleCallbacks receives the per-call streaming callbacks registered when
// the call was answered.
func (h *Handler) HandleCallbacks(c *gin.Context) {
	ctx := observability.WithFields(c.Request.Context(),
		observability.Field{Key: "context_id", Value: c.Param("contextId")},
		observability.Field{Key: "caller_id", Value: c.Query("callerId")},
	)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error(ctx, "failed to read callback body", err)
		c.Status(http.StatusOK)
		return
	}
	events, err := callautomation.DecodeEvents(body)
	if err != nil {
		h.logger.Error(ctx, "failed to decode callback events", err)
		c.Status(http.StatusOK)
		return
	}

	for _, ev := range events {
		if err := h.processor.HandleEvent(ctx, ev); err != nil {
			h.logger.Error(observability.WithFields(ctx,
				observability.Field{Key: "event_type", Value: ev.Metadata().Type},
			), "failed to handle callback event", err)
		}
	}
	c.Status(http.StatusOK)
}

// HandleMediaStream relays a Communication Services media stream.
func (h *Handler) HandleMediaStream(c *gin.Context) {
	h.serveRelay(c, mediastreaming.NewACSCodec())
}

// HandleTwilioMediaStream relays a Twilio Media Streams connection.
func (h *Handler) HandleTwilioMediaStream(c *gin.Context) {
	h.serveRelay(c, mediastreaming.NewTwilioCodec())
}

func (h *Handler) serveRelay(c *gin.Context, codec mediastreaming.Codec) {
	ctx := c.Request.Context()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error(ctx, "websocket upgrade failed", err)
		return
	}
	defer conn.Close()

	r := relay.New(conn, codec, h.dialer, h.relayConfig, h.logger)
	if err := r.Run(ctx); err != nil {
		h.logger.InfoWithError(ctx, "relay ended with error", err)
	}
}

// TwilioStreamURL turns the public callback base into the websocket URL
// Twilio streams call audio to.
func TwilioStreamURL(callbackBase string) string {
	switch {
	case strings.HasPrefix(callbackBase, "https://"):
		return "wss://" + strings.TrimPrefix(callbackBase, "https://") + "/ws/twilio"
	case strings.HasPrefix(callbackBase, "http://"):
		return "ws://" + strings.TrimPrefix(callbackBase, "http://") + "/ws/twilio"
	default:
		return callbackBase + "/ws/twilio"
	}
}
