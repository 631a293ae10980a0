package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/integration-engine/internal/http/handlers"
	httpMW "github.com/yungbote/integration-engine/internal/http/middleware"
	"github.com/yungbote/integration-engine/internal/observability"
	"github.com/yungbote/integration-engine/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	TracingEnabled bool
	CORSOrigins    []string

	AuthMiddleware     *httpMW.AuthMiddleware
	IntegrationHandler *httpH.IntegrationHandler
	HealthHandler      *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		name := cfg.ServiceName
		if name == "" {
			name = "integration-engine"
		}
		r.Use(otelgin.Middleware(name))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS(cfg.CORSOrigins...))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))

	// Public
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api/integration")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}
	if h := cfg.IntegrationHandler; h != nil {
		api.POST("/initialize", h.Initialize)
		api.POST("/content-requests", h.RequestContent)
		api.POST("/submissions/:kind", h.Submit)
		api.GET("/dashboard", h.Dashboard)
		api.POST("/detections/:id/address", h.AddressDetection)
		api.POST("/stage", h.AdvanceStage)
		api.POST("/review", h.ReviewSeverity)
	}

	return r
}
