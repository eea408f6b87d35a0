package handler

import (
	"callautomation-server/internal/apierrors"
	"callautomation-server/internal/callautomation"
	"callautomation-server/internal/ivr/processor"
	"callautomation-server/internal/observability"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

//go:embed webpage/index.html
var landingPage []byte

// TwilioEvents translates Twilio webhooks into call events.
type TwilioEvents interface {
	StatusEvent(callSid, status string) callautomation.Event
	PlayEvent(callSid, operationContext string) callautomation.Event
	ResolveGather(callSid, operationContext, digits, speech string) callautomation.Event
}

type Handler struct {
	processor     *processor.IVRProcessor
	twilio        TwilioEvents
	baseMediaPath string
	logger        *observability.Logger
}

// New creates the IVR handler. twilio may be nil when calls go through
// Communication Services.
func New(ivrProcessor *processor.IVRProcessor, twilio TwilioEvents, baseMediaPath string, logger *observability.Logger) Handler {
	return Handler{
		processor:     ivrProcessor,
		twilio:        twilio,
		baseMediaPath: baseMediaPath,
		logger:        logger,
	}
}

// HandleCallbacks receives call-automation events for the outbound call.
// It always answers 200 so the service does not redeliver.
func (h *Handler) HandleCallbacks(c *gin.Context) {
	ctx := c.Request.Context()

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
		h.dispatch(ctx, ev)
	}
	c.Status(http.StatusOK)
}

// dispatch runs one event through the menu. Operation failures are logged
// by the processor and are not retried.
func (h *Handler) dispatch(ctx context.Context, ev callautomation.Event) processor.Action {
	action, err := h.processor.HandleEvent(ctx, ev)
	if err != nil {
		return action
	}
	h.logger.Debug(observability.WithFields(ctx,
		observability.Field{Key: "event_type", Value: ev.Metadata().Type},
		observability.Field{Key: "action", Value: string(action.Kind)},
	), "event dispatched")
	return action
}

// HandleOutboundCall places a call to the configured target and sends the
// browser back to the landing page.
func (h *Handler) HandleOutboundCall(c *gin.Context) {
	if _, err := h.processor.PlaceOutboundCall(c.Request.Context()); err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// HandleLandingPage serves the page with the call button.
func (h *Handler) HandleLandingPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", landingPage)
}

var errOutsideMediaPath = errors.New("audio prompt resolves outside the media directory")

// HandleAudioPrompt serves a WAV prompt from the base media directory. Any
// failure, including a name that resolves outside the directory, is a 500.
func (h *Handler) HandleAudioPrompt(c *gin.Context) {
	ctx := c.Request.Context()

	data, err := h.readAudioPrompt(c.Param("filename"))
	if err != nil {
		h.logger.Error(observability.WithFields(ctx, observability.Field{Key: "filename", Value: c.Param("filename")}), "failed to read audio file", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	c.Header("Content-Length", fmt.Sprint(len(data)))
	c.Header("Cache-Control", "no-cache, no-store")
	c.Header("Pragma", "no-cache")
	c.Data(http.StatusOK, "audio/wav", data)
}

func (h *Handler) readAudioPrompt(filename string) ([]byte, error) {
	name := sanitizeFilename(filename)
	if name == "" {
		return nil, fmt.Errorf("invalid file name %q", filename)
	}

	base, err := filepath.EvalSymlinks(h.baseMediaPath)
	if err != nil {
		return nil, err
	}
	base, err = filepath.Abs(base)
	if err != nil {
		return nil, err
	}

	resolved, err := filepath.EvalSymlinks(filepath.Join(base, name))
	if err != nil {
		return nil, err
	}
	resolved, err = filepath.Abs(resolved)
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(base, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, errOutsideMediaPath
	}

	return os.ReadFile(resolved)
}

const maxFilenameLength = 255

// sanitizeFilename strips path separators, reserved characters and control
// characters, and rejects names made only of dots.
func sanitizeFilename(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r >= 0x80 && r <= 0x9f:
			return -1
		case strings.ContainsRune(`/\?<>:*|"`, r):
			return -1
		}
		return r
	}, name)
	cleaned = strings.TrimRight(cleaned, ". ")
	if strings.Trim(cleaned, ".") == "" {
		return ""
	}
	if len(cleaned) > maxFilenameLength {
		cleaned = cleaned[:maxFilenameLength]
	}
	return cleaned
}
