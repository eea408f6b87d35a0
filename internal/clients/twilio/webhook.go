package twilio

import (
	"callautomation-server/internal/observability"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/client"
)

// SignatureHeader carries the Twilio request signature.
const SignatureHeader = "X-Twilio-Signature"

// WebhookValidator checks that webhook requests were signed by Twilio.
// Signatures cover the public URL, so publicBase must be the URL Twilio
// was given, not the address the server listens on.
type WebhookValidator struct {
	validator  client.RequestValidator
	publicBase string
	enabled    bool
	logger     *observability.Logger
}

// NewWebhookValidator returns a validator. An empty auth token disables it.
func NewWebhookValidator(authToken, publicBase string, logger *observability.Logger) *WebhookValidator {
	return &WebhookValidator{
		validator:  client.NewRequestValidator(authToken),
		publicBase: publicBase,
		enabled:    authToken != "",
		logger:     logger,
	}
}

// Valid reports whether r carries a correct signature for its form body.
func (v *WebhookValidator) Valid(r *http.Request) bool {
	if !v.enabled {
		return true
	}
	if err := r.ParseForm(); err != nil {
		return false
	}
	params := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return v.validator.Validate(v.publicBase+r.URL.RequestURI(), params, r.Header.Get(SignatureHeader))
}

// Middleware rejects unsigned webhook requests with 403.
func (v *WebhookValidator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !v.Valid(c.Request) {
			v.logger.Warn(c.Request.Context(), "rejected twilio webhook with invalid signature")
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
