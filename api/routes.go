package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/openvoip/voicemailstack/api/handlers"
	"github.com/openvoip/voicemailstack/api/middleware"
	"github.com/openvoip/voicemailstack/internal/logger"
	"github.com/openvoip/voicemailstack/internal/tracing"
	"github.com/openvoip/voicemailstack/services"
)

// RegisterRoutes sets up all HTTP endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, s *services.Services, apiKey string, log logger.Logger) {
	if s == nil {
		panic("Services cannot be nil")
	}

	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	// Health check and status endpoints
	r.GET("/health", handlers.HealthCheck)
	r.GET("/status", tracing.TracingEnhancer(ctx, "GET /status"), handlers.Status(s.SyncService))

	// Audio proxy: consumed by media players that carry no credentials,
	// so the endpoint stays open. The reference token is the only input.
	r.GET("/audio/:ref", tracing.TracingEnhancer(ctx, "GET /audio"), handlers.StreamAudio(s.VoipmsClient, log))

	// Management endpoints, enabled only when an API key is configured
	if apiKey != "" {
		apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
			HeaderName:  "X-API-KEY",
			ValidAPIKey: apiKey,
		})

		v1 := r.Group("/v1")
		v1.Use(apiKeyMiddleware)
		{
			messages := v1.Group("/messages")
			{
				messages.POST("/:ref/listened", tracing.TracingEnhancer(ctx, "POST /v1/messages/:ref/listened"), handlers.MarkListened(s.VoipmsClient))
				messages.DELETE("/:ref", tracing.TracingEnhancer(ctx, "DELETE /v1/messages/:ref"), handlers.DeleteMessage(s.VoipmsClient))
			}
		}
	}
}
