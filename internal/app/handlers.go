package app

import (
	"context"

	httpH "github.com/yungbote/integration-engine/internal/http/handlers"
	httpMW "github.com/yungbote/integration-engine/internal/http/middleware"
	"github.com/yungbote/integration-engine/internal/platform/logger"
)

type Handlers struct {
	Health      *httpH.HealthHandler
	Integration *httpH.IntegrationHandler
}

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

func wireHandlers(log *logger.Logger, clients Clients, services Services) Handlers {
	log.Info("Wiring handlers...")
	deps := map[string]httpH.Pinger{"db": clients.DB}
	if clients.Redis != nil {
		rdb := clients.Redis
		deps["redis"] = httpH.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	return Handlers{
		Health: httpH.NewHealthHandler(deps),
		Integration: httpH.NewIntegrationHandler(httpH.IntegrationHandlerDeps{
			Log:       log,
			Aggregate: services.Aggregate,
		}),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey),
	}
}
