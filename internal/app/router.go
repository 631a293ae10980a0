package app

import (
	"github.com/gin-gonic/gin"

	apphttp "github.com/yungbote/integration-engine/internal/http"
	"github.com/yungbote/integration-engine/internal/observability"
	"github.com/yungbote/integration-engine/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	return apphttp.NewRouter(apphttp.RouterConfig{
		Log:                log,
		Metrics:            metrics,
		ServiceName:        cfg.ServiceName,
		TracingEnabled:     cfg.OtelEnabled,
		CORSOrigins:        cfg.CORSOrigins,
		AuthMiddleware:     middleware.Auth,
		IntegrationHandler: handlers.Integration,
		HealthHandler:      handlers.Health,
	})
}
