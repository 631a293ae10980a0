package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/integration-engine/internal/data/db"
	"github.com/yungbote/integration-engine/internal/data/repos"
	types "github.com/yungbote/integration-engine/internal/domain/integration"
	apphttp "github.com/yungbote/integration-engine/internal/http"
	"github.com/yungbote/integration-engine/internal/observability"
	"github.com/yungbote/integration-engine/internal/platform/dbctx"
	"github.com/yungbote/integration-engine/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Clients  Clients
	Metrics  *observability.Metrics
	Repos    repos.Repos
	Services Services
	Router   *gin.Engine

	otelShutdown func(context.Context) error
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OtelEndpoint,
		Insecure:    cfg.OtelInsecure,
		SampleRatio: cfg.OtelRatio,
	})

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		if otelShutdown != nil {
			_ = otelShutdown(context.Background())
		}
		return nil, err
	}

	var metrics *observability.Metrics
	if cfg.MetricsOn {
		metrics = observability.Init(log)
	}

	gdb := clients.DB.DB()
	reposet := wireRepos(gdb, log)
	serviceset := wireServices(gdb, log, cfg, clients, reposet, metrics)
	handlerset := wireHandlers(log, clients, serviceset)
	middleware := wireMiddleware(log, cfg)
	router := wireRouter(log, cfg, metrics, handlerset, middleware)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Clients:      clients,
		Metrics:      metrics,
		Repos:        reposet,
		Services:     serviceset,
		Router:       router,
		otelShutdown: otelShutdown,
	}, nil
}

func (a *App) Migrate() error {
	if a == nil || a.Clients.DB == nil {
		return errors.New("app not initialized")
	}
	a.Log.Info("Running migrations...", "driver", a.Cfg.DB.Driver)
	return db.AutoMigrateAll(a.Clients.DB.DB())
}

// Run serves HTTP until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return errors.New("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	a.Metrics.StartDBCollector(gctx, a.Log, a.Clients.DB.DB())
	a.Metrics.StartRedisCollector(gctx, a.Log, a.Clients.Redis)

	g.Go(func() error {
		addr := ":" + a.Cfg.Port
		a.Log.Info("HTTP server listening", "addr", addr)
		srv := &apphttp.Server{Engine: a.Router}
		return srv.Run(gctx, addr, a.Cfg.ShutdownTimeout)
	})
	return g.Wait()
}

// ReviewUser runs a severity review for one user.
func (a *App) ReviewUser(ctx context.Context, userID uuid.UUID, metrics *types.BehaviorMetrics) (types.ReviewResult, error) {
	return a.Services.Aggregate.ReviewSeverity(ctx, userID, metrics)
}

type SweepResult struct {
	Reviewed  int
	Escalated int
	Failed    int
}

// ReviewDue reviews every architecture whose mandatory integration check is due. Users are
// reviewed concurrently; the per-user lock keeps each review single-writer.
func (a *App) ReviewDue(ctx context.Context, now time.Time, limit, concurrency int) (SweepResult, error) {
	rows, err := a.Repos.Architectures.ListDue(dbctx.Context{Ctx: ctx}, now, limit)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list due architectures: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	results := make([]types.ReviewResult, len(rows))
	errs := make([]error, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, row := range rows {
		g.Go(func() error {
			results[i], errs[i] = a.Services.Aggregate.ReviewSeverity(gctx, row.UserID, nil)
			if errs[i] != nil {
				a.Log.Warn("severity review failed", "user_id", row.UserID, "error", errs[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	var out SweepResult
	for i := range rows {
		if errs[i] != nil {
			out.Failed++
			continue
		}
		out.Reviewed++
		out.Escalated += len(results[i].Escalated)
	}
	a.Log.Info("severity sweep finished",
		"due", len(rows),
		"reviewed", out.Reviewed,
		"escalated", out.Escalated,
		"failed", out.Failed,
	)
	return out, ctx.Err()
}

// OpenReviews lists professional-support reviews nobody has resolved yet, oldest first.
func (a *App) OpenReviews(ctx context.Context, limit int) ([]*types.ProfessionalSupportReview, error) {
	return a.Repos.SupportReviews.ListUnresolved(dbctx.Context{Ctx: ctx}, limit)
}

func (a *App) ResolveReview(ctx context.Context, id uuid.UUID) error {
	if err := a.Repos.SupportReviews.Resolve(dbctx.Context{Ctx: ctx}, id); err != nil {
		return fmt.Errorf("resolve review %s: %w", id, err)
	}
	a.Log.Info("support review resolved", "review_id", id)
	return nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	a.Clients.Close()
	a.Log.Sync()
}
