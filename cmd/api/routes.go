package main

import (
	"net/http"

	"autodialer/internal/httpapi"
	"autodialer/internal/livestatus"
	"autodialer/internal/rbac"
	"autodialer/internal/telephony"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	handlers httpapi.Handlers
	webhook  telephony.StatusWebhookHandler
	hub      *livestatus.Hub

	// authMW is nil when operator auth is disabled.
	authMW gin.HandlerFunc
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	h := d.handlers

	// public
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Provider status callbacks (public).
	// NOTE: This endpoint should be protected by Twilio signature validation in production.
	r.POST("/twilio/status", d.webhook.HandleStatus)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
	}

	// Reads are open to viewers; everything that dials, writes or spends API
	// credit needs the operator role.
	read := r.Group("")
	write := r.Group("")
	if d.authMW != nil {
		read.Use(d.authMW, rbac.RequireAnyRole(rbac.RoleViewer))
		write.Use(d.authMW, rbac.RequireAnyRole(rbac.RoleOperator))
	}

	read.GET("/phone_numbers", h.ListNumbers)
	write.POST("/phone_numbers", h.ReplaceNumbers)

	write.POST("/calls", h.PlaceCall)
	read.GET("/calls/logs", h.ListLogs)
	write.DELETE("/calls/logs", h.ClearLogs)

	write.POST("/call_queue/start", h.StartQueue)
	write.POST("/call_queue/stop", h.StopQueue)
	read.GET("/call_queue/status", h.QueueStatus)
	read.GET("/call_queue/ws", d.hub.Handle)

	read.GET("/voice_settings", h.GetVoiceSettings)
	write.PUT("/voice_settings", h.UpdateVoiceSettings)
	write.PATCH("/voice_settings", h.UpdateVoiceSettings)

	write.POST("/chat", h.Chat)
	read.GET("/voice_commands/process_voice", h.VoiceReady)
	write.POST("/voice_commands/process_voice", h.ProcessVoice)

	blog := r.Group("/api/blog")
	blogRead := blog.Group("")
	blogWrite := blog.Group("")
	if d.authMW != nil {
		blogRead.Use(d.authMW, rbac.RequireAnyRole(rbac.RoleViewer))
		blogWrite.Use(d.authMW, rbac.RequireAnyRole(rbac.RoleOperator))
	}
	{
		blogRead.GET("", h.ListArticles)
		blogRead.GET("/:slug", h.GetArticle)
		blogWrite.POST("/generate", h.GenerateArticles)
		blogWrite.DELETE("/all", h.DeleteArticles)
	}

	write.GET("/audit", h.ListAudit)
}
