package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/integration-engine/internal/data/db"
	types "github.com/yungbote/integration-engine/internal/domain/integration"
	"github.com/yungbote/integration-engine/internal/platform/dbctx"
	"github.com/yungbote/integration-engine/internal/platform/logger"
)

func TestLoadConfigDefaultsAndOverrides(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("USER_LOCK_TTL_SECONDS", "3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.org, ,https://b.example.org")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("SHUTDOWN_TIMEOUT", "2s")
	t.Setenv("OTEL_SAMPLER_RATIO", "0.25")

	cfg := LoadConfig(logger.Nop())
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, db.DriverSQLite, cfg.DB.Driver)
	require.Equal(t, 3*time.Second, cfg.UserLockTTL)
	require.Equal(t, []string{"https://a.example.org", "https://b.example.org"}, cfg.CORSOrigins)
	require.False(t, cfg.MetricsOn)
	require.Equal(t, 2*time.Second, cfg.ShutdownTimeout)
	require.Equal(t, "integration.reviews", cfg.RedisChannel)
	require.Equal(t, 0.25, cfg.OtelRatio)
	require.False(t, cfg.OtelEnabled)
}

func newSQLiteApp(t *testing.T) *App {
	t.Helper()
	cfg := Config{
		Port:            "0",
		ShutdownTimeout: time.Second,
		DB: db.Config{
			Driver:     db.DriverSQLite,
			SQLitePath: "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		},
		RedisChannel: "integration.reviews",
		UserLockTTL:  time.Second,
		JWTSecretKey: "app-test",
		ServiceName:  "integration-engine-test",
	}
	a, err := New(context.Background(), logger.Nop(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	require.NoError(t, a.Migrate())
	return a
}

func TestReviewDueSweepsOnlyDueUsers(t *testing.T) {
	a := newSQLiteApp(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := a.Services.Aggregate.Initialize(ctx, uuid.New())
		require.NoError(t, err)
	}

	res, err := a.ReviewDue(ctx, time.Now().UTC(), 100, 2)
	require.NoError(t, err)
	require.Equal(t, SweepResult{}, res)

	res, err = a.ReviewDue(ctx, time.Now().UTC().Add(48*time.Hour), 100, 2)
	require.NoError(t, err)
	require.Equal(t, 3, res.Reviewed)
	require.Zero(t, res.Failed)
}

func TestReviewUserRequiresInitializedArchitecture(t *testing.T) {
	a := newSQLiteApp(t)
	_, err := a.ReviewUser(context.Background(), uuid.New(), nil)
	require.Error(t, err)
}

func TestOpenReviewsAndResolve(t *testing.T) {
	a := newSQLiteApp(t)
	ctx := context.Background()
	userID := uuid.New()

	rows, err := a.Repos.SupportReviews.Create(dbctx.Context{Ctx: ctx}, []*types.ProfessionalSupportReview{
		{UserID: userID, BypassAttempts: 4, Reason: types.ReviewReasonRepeatedBypass},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	open, err := a.OpenReviews(ctx, 10)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, userID, open[0].UserID)

	require.NoError(t, a.ResolveReview(ctx, open[0].ID))
	open, err = a.OpenReviews(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, open)

	require.Error(t, a.ResolveReview(ctx, uuid.New()))
}

func TestReviewDueMovesPastReviewedUsers(t *testing.T) {
	a := newSQLiteApp(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}

	users := []uuid.UUID{uuid.New(), uuid.New()}
	initial := map[uuid.UUID]time.Time{}
	for _, id := range users {
		arch, err := a.Services.Aggregate.Initialize(ctx, id)
		require.NoError(t, err)
		initial[id] = arch.NextMandatoryIntegration
	}

	cutoff := time.Now().UTC().Add(48 * time.Hour)
	for i := 0; i < 2; i++ {
		res, err := a.ReviewDue(ctx, cutoff, 1, 1)
		require.NoError(t, err)
		require.Equal(t, 1, res.Reviewed)
	}

	for _, id := range users {
		rec, err := a.Repos.Architectures.GetByUserID(dbc, id)
		require.NoError(t, err)
		require.True(t, rec.NextMandatoryIntegration.After(initial[id]), "user %s was never reviewed", id)
	}
}
