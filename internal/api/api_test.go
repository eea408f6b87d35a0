package api

import (
	ivrHandler "callautomation-server/internal/ivr/handler"
	"callautomation-server/internal/observability"
	voiceAgentHandler "callautomation-server/internal/voiceagent/handler"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func routes(r *gin.Engine) map[string]bool {
	out := map[string]bool{}
	for _, route := range r.Routes() {
		out[route.Method+" "+route.Path] = true
	}
	return out
}

func TestRegisterRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		withTwilio bool
	}{
		{name: "acs", withTwilio: false},
		{name: "twilio", withTwilio: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			a := New(r.Group("/"), ivrHandler.Handler{}, voiceAgentHandler.Handler{}, Middleware{})
			a.RegisterRoutes(tt.withTwilio)
			got := routes(r)

			for _, want := range []string{
				"GET /health",
				"GET /",
				"GET /outboundCall",
				"GET /audioprompt/:filename",
				"GET /ws",
				"GET /ws/twilio",
				"POST /api/incomingCall",
				"POST /api/callbacks",
				"POST /api/callbacks/:contextId",
			} {
				assert.True(t, got[want], want)
			}
			assert.Equal(t, tt.withTwilio, got["POST /api/twilio/gather"])
			assert.Equal(t, tt.withTwilio, got["POST /api/twilio/voice"])
		})
	}
}

func TestRegisterRelayRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	a := New(r.Group("/"), ivrHandler.Handler{}, voiceAgentHandler.Handler{}, Middleware{})
	a.Health()
	a.RegisterRelayRoutes()

	got := routes(r)
	assert.Len(t, got, 3)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"ok"}`, w.Body.String())
}

func TestMiddlewareGuardsCallbacks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
	a := New(r.Group("/"), ivrHandler.Handler{}, voiceAgentHandler.Handler{}, Middleware{IVRCallbackAuth: deny, VoiceAgentCallbackAuth: deny, OutboundCallLimit: deny})
	a.RegisterRoutes(false)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/callbacks", nil),
		httptest.NewRequest(http.MethodPost, "/api/callbacks/ctx-1", nil),
		httptest.NewRequest(http.MethodGet, "/outboundCall", nil),
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, req.URL.Path)
	}
}

func TestAudioPromptRouting(t *testing.T) {
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	media := filepath.Join(root, "media")
	require.NoError(t, os.Mkdir(media, 0o755))
	wav := []byte("RIFF....WAVEfmt ")
	require.NoError(t, os.WriteFile(filepath.Join(media, "MainMenu.wav"), wav, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.wav"), []byte("secret"), 0o644))

	r := NewEngine()
	a := New(r.Group("/"), ivrHandler.New(nil, nil, media, observability.NewNopLogger()), voiceAgentHandler.Handler{}, Middleware{})
	a.RegisterRoutes(false)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{name: "prompt", path: "/audioprompt/MainMenu.wav", wantStatus: http.StatusOK},
		{name: "missing prompt", path: "/audioprompt/Nope.wav", wantStatus: http.StatusInternalServerError},
		{name: "encoded traversal", path: "/audioprompt/..%2F..%2Fetc%2Fpasswd", wantStatus: http.StatusInternalServerError},
		{name: "encoded sibling file", path: "/audioprompt/..%2Fsecret.wav", wantStatus: http.StatusInternalServerError},
		{name: "encoded backslash traversal", path: "/audioprompt/..%5C..%5Cwin.ini", wantStatus: http.StatusInternalServerError},
		{name: "dots only", path: "/audioprompt/..", wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, wav, w.Body.Bytes())
			} else {
				assert.Equal(t, "Internal Server Error", w.Body.String())
			}
		})
	}
}
