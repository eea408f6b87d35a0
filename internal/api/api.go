package api

import (
	twilioClient "callautomation-server/internal/clients/twilio"
	ivrHandler "callautomation-server/internal/ivr/handler"
	voiceAgentHandler "callautomation-server/internal/voiceagent/handler"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middleware guards the webhook routes. Nil entries are skipped.
type Middleware struct {
	IVRCallbackAuth        gin.HandlerFunc
	VoiceAgentCallbackAuth gin.HandlerFunc
	TwilioSignature        gin.HandlerFunc
	OutboundCallLimit      gin.HandlerFunc
}

// NewEngine returns a gin engine that matches routes on the escaped path and
// hands handlers the decoded parameter, so /audioprompt/..%2Fx reaches the
// prompt handler as a single filename.
func NewEngine() *gin.Engine {
	engine := gin.New()
	engine.UseRawPath = true
	engine.UnescapePathValues = true
	return engine
}

type API struct {
	router            *gin.RouterGroup
	ivrHandler        ivrHandler.Handler
	voiceAgentHandler voiceAgentHandler.Handler
	middleware        Middleware
}

func New(router *gin.RouterGroup, ivrHandler ivrHandler.Handler, voiceAgentHandler voiceAgentHandler.Handler, middleware Middleware) API {
	return API{
		router:            router,
		ivrHandler:        ivrHandler,
		voiceAgentHandler: voiceAgentHandler,
		middleware:        middleware,
	}
}

// RegisterRoutes registers the full server surface. Twilio webhooks are only
// registered when withTwilio is set.
func (a *API) RegisterRoutes(withTwilio bool) {
	a.Health()

	a.router.GET("/", a.ivrHandler.HandleLandingPage)
	a.router.GET("/outboundCall", append(handlers(a.middleware.OutboundCallLimit), a.ivrHandler.HandleOutboundCall)...)
	a.router.GET("/audioprompt/:filename", a.ivrHandler.HandleAudioPrompt)
	a.RegisterRelayRoutes()

	apiGroup := a.router.Group("/api")
	{
		apiGroup.POST("/incomingCall", a.voiceAgentHandler.HandleIncomingCall)

		callbackGroup := apiGroup.Group("/callbacks")
		callbackGroup.POST("", append(handlers(a.middleware.IVRCallbackAuth), a.ivrHandler.HandleCallbacks)...)
		callbackGroup.POST("/:contextId", append(handlers(a.middleware.VoiceAgentCallbackAuth), a.voiceAgentHandler.HandleCallbacks)...)
	}

	if withTwilio {
		twilioGroup := a.router.Group("/", handlers(a.middleware.TwilioSignature)...)
		twilioGroup.POST(twilioClient.StatusPath, a.ivrHandler.HandleTwilioStatus)
		twilioGroup.POST(twilioClient.GatherPath, a.ivrHandler.HandleTwilioGather)
		twilioGroup.POST(twilioClient.PlayPath, a.ivrHandler.HandleTwilioPlay)
		twilioGroup.POST(twilioClient.VoicePath, a.voiceAgentHandler.HandleTwilioVoice)
	}
}

// RegisterRelayRoutes registers the media streaming websocket endpoints.
func (a *API) RegisterRelayRoutes() {
	a.router.GET("/ws", a.voiceAgentHandler.HandleMediaStream)
	a.router.GET("/ws/twilio", a.voiceAgentHandler.HandleTwilioMediaStream)
}

func (a *API) Health() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
}

func handlers(middleware ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(middleware))
	for _, m := range middleware {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
