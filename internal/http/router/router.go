package router

import (
	"github.com/gin-gonic/gin"

	"pulseboard.app/ingest/internal/clientid"
	"pulseboard.app/ingest/internal/http/handler"
	"pulseboard.app/ingest/internal/http/middleware"
	"pulseboard.app/ingest/internal/model"
	"pulseboard.app/ingest/internal/service"
)

type RouterConfig struct {
	// GitHubSignatureSecret keys the X-Hub-Signature-256 check on the
	// GitHub endpoint. Empty disables the check (local development).
	GitHubSignatureSecret []byte
}

func SetupRoutes(router *gin.Engine, services *service.Services, codec *clientid.Codec, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	webhookHandler := handler.NewWebhookHandler(codec, services.Ingest)
	replayHandler := handler.NewReplayHandler(codec, services.Replay)

	github := []gin.HandlerFunc{webhookHandler.Handle(model.SourceGitHub)}
	if len(cfg.GitHubSignatureSecret) > 0 {
		github = append([]gin.HandlerFunc{middleware.Signature("X-Hub-Signature-256", cfg.GitHubSignatureSecret)}, github...)
	}
	router.POST("/github/:clientId", github...)

	router.POST("/jira/:clientId", webhookHandler.Handle(model.SourceJira))
	router.POST("/confluence/:clientId", webhookHandler.Handle(model.SourceConfluence))
	router.POST("/gitlab/:clientId", webhookHandler.Handle(model.SourceGitLab))

	router.POST("/replay/:clientId", replayHandler.HandleReplay)
}
