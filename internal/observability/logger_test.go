package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGetRealClientIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		remoteAddr string
		want       string
	}{
		{
			name:      "first forwarded hop wins",
			forwarded: "203.0.113.50, 10.0.0.1",
			want:      "203.0.113.50",
		},
		{
			name:      "single forwarded address",
			forwarded: "198.51.100.7",
			want:      "198.51.100.7",
		},
		{
			name:       "no forwarded header uses socket address",
			remoteAddr: "192.168.1.1:8080",
			want:       "192.168.1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.forwarded != "" {
				c.Request.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.remoteAddr != "" {
				c.Request.RemoteAddr = tt.remoteAddr
			}

			assert.Equal(t, tt.want, GetRealClientIP(c))
		})
	}
}

func TestWithCall_SkipsEmptyIdentifiers(t *testing.T) {
	ctx := WithCall(context.Background(), "conn-1", "", "corr-1")

	fields := getObservabilityFields(ctx)
	require.Len(t, fields, 2)
	assert.Equal(t, Field{"call_connection_id", "conn-1"}, fields[0])
	assert.Equal(t, Field{"correlation_id", "corr-1"}, fields[1])

	untouched := context.Background()
	assert.Equal(t, untouched, WithCall(untouched, "", "", ""))
}

func TestWithFields_DoesNotMutateParent(t *testing.T) {
	parent := WithFields(context.Background(), Field{"a", 1})
	childA := WithFields(parent, Field{"b", 2})
	childB := WithFields(parent, Field{"c", 3})

	assert.Len(t, getObservabilityFields(parent), 1)
	assert.Equal(t, "b", getObservabilityFields(childA)[1].Key)
	assert.Equal(t, "c", getObservabilityFields(childB)[1].Key)
}

func TestLogger_IncludesContextFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewLoggerWithCore(core)

	ctx := WithCall(context.Background(), "conn-1", "server-1", "")
	logger.Error(ctx, "play failed", errors.New("boom"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "play failed", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "conn-1", fields["call_connection_id"])
	assert.Equal(t, "server-1", fields["server_call_id"])
	assert.Equal(t, "boom", fields["error"])
}

func TestMiddleware_SetsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	logger := NewLoggerWithCore(core)

	r := gin.New()
	r.Use(Middleware(logger))
	r.GET("/outboundCall", func(c *gin.Context) {
		fields := getObservabilityFields(c.Request.Context())
		require.NotEmpty(t, fields)
		assert.Equal(t, "request_id", fields[0].Key)
		c.Status(http.StatusNoContent)
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("kaboom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/outboundCall", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("X-Request-ID"), "req-")

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "fixed-id", w.Header().Get("X-Request-ID"))

	assert.NotEmpty(t, logs.FilterMessage("Recovered from panic").All())
	assert.NotEmpty(t, logs.FilterMessage("Metrics").All())
}
