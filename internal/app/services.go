package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/integration-engine/internal/data/aggregates"
	"github.com/yungbote/integration-engine/internal/data/repos"
	domainagg "github.com/yungbote/integration-engine/internal/domain/aggregates"
	engine "github.com/yungbote/integration-engine/internal/modules/integration"
	"github.com/yungbote/integration-engine/internal/modules/integration/catalog"
	"github.com/yungbote/integration-engine/internal/observability"
	"github.com/yungbote/integration-engine/internal/platform/logger"
	"github.com/yungbote/integration-engine/internal/platform/redisx"
)

type Services struct {
	Engine    *engine.Engine
	Aggregate domainagg.IntegrationArchitectureAggregate
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, clients Clients, rs repos.Repos, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	eng := engine.NewEngine(engine.EngineDeps{
		Catalog: catalog.Default(log),
		Log:     log,
	})
	agg := aggregates.NewIntegrationArchitectureAggregate(aggregates.IntegrationArchitectureAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: aggregates.NewObservabilityHooks(metrics),
		},
		Engine:        eng,
		Architectures: rs.Architectures,
		Reviews:       rs.SupportReviews,
		Locker:        redisx.NewLocker(clients.Redis, cfg.UserLockTTL, log),
		Publisher:     redisx.NewPublisher(clients.Redis, cfg.RedisChannel, log),
		Metrics:       metrics,
	})
	return Services{Engine: eng, Aggregate: agg}
}
