package server

import (
	apisetup "callautomation-server/internal/api"
	"callautomation-server/internal/bootstrap"
	"callautomation-server/internal/callsession"
	"callautomation-server/internal/config"
	"callautomation-server/internal/observability"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Mode selects which routes a server exposes.
type Mode int

const (
	// ModeFull serves the webhooks, the landing page and the relay.
	ModeFull Mode = iota
	// ModeRelay serves only the media streaming websockets.
	ModeRelay
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	deps       *bootstrap.Dependencies
	config     *config.Config
	mode       Mode
	logger     *observability.Logger

	pruneInterval    time.Duration
	cancelBackground context.CancelFunc
	background       sync.WaitGroup
}

// New creates a new Server instance
func New(cfg *config.Config, deps *bootstrap.Dependencies, mode Mode, logger *observability.Logger) *Server {
	return &Server{
		config:        cfg,
		deps:          deps,
		mode:          mode,
		logger:        logger,
		pruneInterval: time.Minute,
	}
}

// Setup configures the HTTP router with middleware and routes
func (s *Server) Setup() {
	s.router = apisetup.NewEngine()

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Cache-Control"}
	corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	if s.config.Services.WebAppURI != "" {
		corsConfig.AllowOrigins = []string{s.config.Services.WebAppURI}
	}

	// Apply middleware
	s.router.Use(cors.New(corsConfig))
	s.router.Use(observability.Middleware(s.logger))

	// Register routes
	rootRouter := s.router.Group("/")
	api := apisetup.New(rootRouter, s.deps.IVRHandler, s.deps.VoiceAgentHandler, s.middleware())
	switch s.mode {
	case ModeRelay:
		api.Health()
		api.RegisterRelayRoutes()
	default:
		api.RegisterRoutes(s.config.Carrier == config.CarrierTwilio)
	}
}

func (s *Server) middleware() apisetup.Middleware {
	var m apisetup.Middleware
	if s.deps.CallbackAuth != nil {
		m.IVRCallbackAuth = s.deps.CallbackAuth.Middleware(string(callsession.ScenarioIVR))
		m.VoiceAgentCallbackAuth = s.deps.CallbackAuth.Middleware(string(callsession.ScenarioVoiceAgent))
	}
	if s.deps.TwilioValidator != nil {
		m.TwilioSignature = s.deps.TwilioValidator.Middleware()
	}
	if s.deps.OutboundLimiter != nil {
		m.OutboundCallLimit = s.deps.OutboundLimiter.Middleware()
	}
	return m
}

func (s *Server) port() int {
	if s.mode == ModeRelay {
		return s.config.Server.RelayPort
	}
	return s.config.Server.Port
}

// Start begins listening for HTTP requests and starts the limiter sweep
func (s *Server) Start(ctx context.Context) error {
	s.startBackground(ctx)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port()),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run the server in a goroutine so that it doesn't block
	go func() {
		s.logger.Info(ctx, fmt.Sprintf("Server starting on port %d", s.port()))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, "server failed to start", err)
			os.Exit(1)
		}
	}()

	return nil
}

// WaitForShutdown blocks until a shutdown signal is received, then gracefully shuts down
func (s *Server) WaitForShutdown(ctx context.Context) error {
	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	s.logger.Info(ctx, "Shutting down server...")
	s.stopBackground()

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.deps.Cleanup()

	s.logger.Info(ctx, "Server exited gracefully")
	return nil
}

// startBackground launches the housekeeping goroutines. They run until
// stopBackground is called or ctx is done.
func (s *Server) startBackground(ctx context.Context) {
	ctx, s.cancelBackground = context.WithCancel(ctx)
	if s.deps.OutboundLimiter == nil {
		return
	}
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		s.pruneLimiter(ctx)
	}()
}

func (s *Server) stopBackground() {
	if s.cancelBackground != nil {
		s.cancelBackground()
	}
	s.background.Wait()
}

// pruneLimiter drops idle rate limit keys every pruneInterval.
func (s *Server) pruneLimiter(ctx context.Context) {
	ticker := time.NewTicker(s.pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.deps.OutboundLimiter.Prune(); n > 0 {
				s.logger.Debug(ctx, fmt.Sprintf("pruned %d idle rate limit keys", n))
			}
		}
	}
}
