package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"slotmarket/internal/infra/config"
	"slotmarket/internal/infra/obs"
)

type Handlers struct {
	Negotiation    NegotiationHTTP
	Slots          SlotHTTP
	Export         ExportHTTP
	Attachments    AttachmentHTTP
	Auth           AuthHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"Content-Disposition",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	registerSwaggerRoutes(router)

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.Slots != nil {
		slotGroup := api.Group("/slots")
		slotGroup.GET("", h.Slots.List)
		slotGroup.POST("", h.Slots.Submit)
		slotGroup.GET("/:id", h.Slots.Get)
		slotGroup.POST("/:id/approve", h.Slots.Approve)
		slotGroup.POST("/:id/reject", h.Slots.Reject)
		slotGroup.POST("/:id/live", h.Slots.GoLive)
		slotGroup.POST("/:id/end", h.Slots.End)
	}
	if h.Negotiation != nil {
		requestGroup := api.Group("/requests")
		requestGroup.GET("", h.Negotiation.ListRequests)
		requestGroup.POST("", h.Negotiation.OpenRequest)
		if h.Export != nil {
			requestGroup.GET("/export", h.Export.Requests)
		}
		requestGroup.GET("/:id/state", h.Negotiation.State)
		requestGroup.GET("/:id/messages", h.Negotiation.ListMessages)
		requestGroup.POST("/:id/messages", h.Negotiation.SendMessage)
		requestGroup.POST("/:id/proposals", h.Negotiation.SubmitProposal)
		requestGroup.POST("/:id/accept", h.Negotiation.Accept)
		requestGroup.POST("/:id/finalize", h.Negotiation.Finalize)
		requestGroup.POST("/:id/reject", h.Negotiation.Reject)
		requestGroup.POST("/:id/renegotiate", h.Negotiation.Renegotiate)
		requestGroup.POST("/:id/read", h.Negotiation.MarkRead)
		if h.Attachments != nil {
			requestGroup.POST("/:id/attachments", h.Attachments.Upload)
		}
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
