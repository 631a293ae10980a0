package aggregates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/integration-engine/internal/data/repos"
	domainagg "github.com/yungbote/integration-engine/internal/domain/aggregates"
	types "github.com/yungbote/integration-engine/internal/domain/integration"
	engine "github.com/yungbote/integration-engine/internal/modules/integration"
	"github.com/yungbote/integration-engine/internal/observability"
	"github.com/yungbote/integration-engine/internal/platform/dbctx"
	"github.com/yungbote/integration-engine/internal/platform/redisx"
)

const architectureTable = "integration_architecture"

type IntegrationArchitectureAggregateDeps struct {
	Base BaseDeps

	Engine        *engine.Engine
	Architectures repos.ArchitectureRepo
	Reviews       repos.SupportReviewRepo

	// Locker defaults to an in-process locker; Publisher to a log-only publisher.
	Locker    redisx.Locker
	Publisher redisx.Publisher
	Metrics   *observability.Metrics
	Now       func() time.Time
}

type integrationArchitectureAggregate struct {
	deps IntegrationArchitectureAggregateDeps
}

func NewIntegrationArchitectureAggregate(deps IntegrationArchitectureAggregateDeps) domainagg.IntegrationArchitectureAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Engine == nil {
		deps.Engine = engine.NewEngine(engine.EngineDeps{Log: deps.Base.Log})
	}
	if deps.Locker == nil {
		deps.Locker = redisx.NewLocalLocker(10 * time.Second)
	}
	if deps.Publisher == nil {
		deps.Publisher = redisx.NewPublisher(nil, "", deps.Base.Log)
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &integrationArchitectureAggregate{deps: deps}
}

func (a *integrationArchitectureAggregate) Contract() domainagg.Contract {
	return domainagg.IntegrationArchitectureContract()
}

// ReviewEvent is published once a professional support review row has committed.
type ReviewEvent struct {
	Type            string     `json:"type"`
	ReviewID        uuid.UUID  `json:"review_id"`
	UserID          uuid.UUID  `json:"user_id"`
	ReflectionGapID *uuid.UUID `json:"reflection_gap_id,omitempty"`
	DetectionID     *uuid.UUID `json:"detection_id,omitempty"`
	BypassAttempts  int        `json:"bypass_attempts"`
	Reason          string     `json:"reason"`
	RequestedAt     time.Time  `json:"requested_at"`
}

func (a *integrationArchitectureAggregate) Initialize(ctx context.Context, userID uuid.UUID) (*types.IntegrationArchitecture, error) {
	const op = "Integration.Architecture.Initialize"
	if userID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	release, err := a.lock(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	var out *types.IntegrationArchitecture
	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		existing, err := a.deps.Architectures.GetByUserID(dbc, userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if existing != nil {
			return ConflictError("integration architecture already initialized")
		}
		arch, err := a.deps.Engine.Initialize(userID, a.deps.Now())
		if err != nil {
			return err
		}
		arch.Version = 1
		state, err := json.Marshal(arch)
		if err != nil {
			return fmt.Errorf("encode architecture: %w", err)
		}
		rec := &types.IntegrationArchitectureRecord{
			ID:                       uuid.New(),
			UserID:                   userID,
			Stage:                    string(arch.CurrentStage),
			Version:                  arch.Version,
			LastIntegrationCheck:     arch.LastIntegrationCheck,
			NextMandatoryIntegration: arch.NextMandatoryIntegration,
			State:                    datatypes.JSON(state),
		}
		if err := a.deps.Architectures.Create(dbc, rec); err != nil {
			return err
		}
		out = arch
		return nil
	})
	return out, err
}

func (a *integrationArchitectureAggregate) RequestContent(ctx context.Context, in domainagg.ContentRequestInput) (types.ContentResult, error) {
	const op = "Integration.Architecture.RequestContent"
	var out types.ContentResult
	_, err := a.mutate(ctx, op, in.UserID, func(arch *types.IntegrationArchitecture, now time.Time) ([]types.ReviewRequest, error) {
		res, err := a.deps.Engine.ProcessContentRequest(arch, engine.ContentRequest{
			Content:           in.Content,
			Metrics:           in.Metrics,
			RecentReflections: in.RecentReflections,
		}, now)
		if err != nil {
			return nil, err
		}
		out = res
		return res.Reviews, nil
	})
	if err != nil {
		return types.ContentResult{}, err
	}

	m := a.deps.Metrics
	m.IncContentOutcome(string(out.Outcome))
	for _, d := range out.Detections {
		m.IncDetection(string(d.Pattern), string(d.Severity))
	}
	if out.BypassAttempt > 0 {
		m.IncBypassAttempt()
	}
	return out, nil
}

func (a *integrationArchitectureAggregate) Submit(ctx context.Context, in domainagg.SubmissionInput) (types.SubmissionResult, error) {
	const op = "Integration.Architecture.Submit"
	var out types.SubmissionResult
	_, err := a.mutate(ctx, op, in.UserID, func(arch *types.IntegrationArchitecture, now time.Time) ([]types.ReviewRequest, error) {
		res, err := a.deps.Engine.ProcessIntegrationSubmission(arch, in.Kind, in.Submission, now)
		if err != nil {
			return nil, err
		}
		out = res
		return nil, nil
	})
	if err != nil {
		return types.SubmissionResult{}, err
	}
	a.deps.Metrics.IncSubmission(string(out.Kind), out.Accepted)
	return out, nil
}

func (a *integrationArchitectureAggregate) AddressDetection(ctx context.Context, userID, detectionID uuid.UUID) (*types.IntegrationArchitecture, error) {
	const op = "Integration.Architecture.AddressDetection"
	return a.mutate(ctx, op, userID, func(arch *types.IntegrationArchitecture, _ time.Time) ([]types.ReviewRequest, error) {
		_, err := a.deps.Engine.AddressDetection(arch, detectionID)
		return nil, err
	})
}

func (a *integrationArchitectureAggregate) AdvanceStage(ctx context.Context, userID uuid.UUID, to types.Stage) (*types.IntegrationArchitecture, error) {
	const op = "Integration.Architecture.AdvanceStage"
	return a.mutate(ctx, op, userID, func(arch *types.IntegrationArchitecture, _ time.Time) ([]types.ReviewRequest, error) {
		return nil, a.deps.Engine.AdvanceStage(arch, to)
	})
}

func (a *integrationArchitectureAggregate) ReviewSeverity(ctx context.Context, userID uuid.UUID, metrics *types.BehaviorMetrics) (types.ReviewResult, error) {
	const op = "Integration.Architecture.ReviewSeverity"
	var out types.ReviewResult
	_, err := a.mutate(ctx, op, userID, func(arch *types.IntegrationArchitecture, now time.Time) ([]types.ReviewRequest, error) {
		res, err := a.deps.Engine.ReviewSeverity(arch, metrics, now)
		if err != nil {
			return nil, err
		}
		out = res
		return res.Reviews, nil
	})
	if err != nil {
		return types.ReviewResult{}, err
	}
	for _, d := range out.Escalated {
		a.deps.Metrics.IncEscalation(string(d.Severity))
	}
	return out, nil
}

// Dashboard reads without locking; it never writes.
func (a *integrationArchitectureAggregate) Dashboard(ctx context.Context, userID uuid.UUID) (types.Dashboard, error) {
	const op = "Integration.Architecture.Dashboard"
	if userID == uuid.Nil {
		return types.Dashboard{}, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	rec, err := a.deps.Architectures.GetByUserID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return types.Dashboard{}, MapError(op, err)
	}
	arch, err := decodeArchitecture(rec)
	if err != nil {
		return types.Dashboard{}, MapError(op, err)
	}
	d, err := a.deps.Engine.GenerateDashboard(arch, a.deps.Now())
	if err != nil {
		return types.Dashboard{}, MapError(op, err)
	}
	return d, nil
}

type mutation func(arch *types.IntegrationArchitecture, now time.Time) ([]types.ReviewRequest, error)

// mutate is the load, apply, save cycle shared by every write. The engine works on a freshly
// decoded copy, so a failed operation leaves nothing behind.
func (a *integrationArchitectureAggregate) mutate(ctx context.Context, op string, userID uuid.UUID, fn mutation) (*types.IntegrationArchitecture, error) {
	if userID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	release, err := a.lock(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		out     *types.IntegrationArchitecture
		written []*types.ProfessionalSupportReview
	)
	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		rec, err := a.deps.Architectures.LockByUserID(dbc, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainagg.NewError(domainagg.CodeNotFound, op, "integration architecture not initialized", err)
			}
			return err
		}
		arch, err := decodeArchitecture(rec)
		if err != nil {
			return err
		}
		reviews, err := fn(arch, a.deps.Now())
		if err != nil {
			return err
		}
		if err := a.save(dbc, rec, arch); err != nil {
			return err
		}
		written, err = a.writeReviews(dbc, reviews)
		if err != nil {
			return err
		}
		out = arch
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.publish(ctx, written)
	return out, nil
}

func (a *integrationArchitectureAggregate) lock(ctx context.Context, op string, userID uuid.UUID) (func(), error) {
	release, err := a.deps.Locker.Acquire(ctx, userID.String())
	if err != nil {
		if errors.Is(err, redisx.ErrLockBusy) {
			a.deps.Base.Hooks.IncLockContention(op)
		}
		return nil, MapError(op, err)
	}
	return release, nil
}

func (a *integrationArchitectureAggregate) save(dbc dbctx.Context, rec *types.IntegrationArchitectureRecord, arch *types.IntegrationArchitecture) error {
	arch.Version = rec.Version + 1
	state, err := json.Marshal(arch)
	if err != nil {
		return fmt.Errorf("encode architecture: %w", err)
	}
	ok, err := a.deps.Base.CASGuard.UpdateByVersion(dbc, architectureTable, rec.ID, rec.Version, map[string]any{
		"state":                            datatypes.JSON(state),
		"stage":                            string(arch.CurrentStage),
		"version":                          arch.Version,
		"professional_support_recommended": arch.ProfessionalSupportRecommended,
		"last_integration_check":           arch.LastIntegrationCheck,
		"next_mandatory_integration":       arch.NextMandatoryIntegration,
		"updated_at":                       a.deps.Now(),
	})
	if err != nil {
		return err
	}
	return RequireCASSuccess(ok, "integration architecture changed concurrently")
}

func (a *integrationArchitectureAggregate) writeReviews(dbc dbctx.Context, reviews []types.ReviewRequest) ([]*types.ProfessionalSupportReview, error) {
	if len(reviews) == 0 {
		return nil, nil
	}
	if a.deps.Reviews == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, "aggregate.reviews", "support review repo not configured", nil)
	}
	rows := make([]*types.ProfessionalSupportReview, 0, len(reviews))
	for _, r := range reviews {
		rows = append(rows, &types.ProfessionalSupportReview{
			ID:              uuid.New(),
			UserID:          r.UserID,
			ReflectionGapID: r.ReflectionGapID,
			DetectionID:     r.DetectionID,
			BypassAttempts:  r.BypassAttempts,
			Reason:          r.Reason,
			CreatedAt:       r.RequestedAt,
		})
	}
	return a.deps.Reviews.Create(dbc, rows)
}

// publish runs after commit. A failed publish is logged; the review row is the record of truth.
func (a *integrationArchitectureAggregate) publish(ctx context.Context, rows []*types.ProfessionalSupportReview) {
	for _, row := range rows {
		a.deps.Metrics.IncReview(row.Reason)
		ev := ReviewEvent{
			Type:            "professional_support_review",
			ReviewID:        row.ID,
			UserID:          row.UserID,
			ReflectionGapID: row.ReflectionGapID,
			DetectionID:     row.DetectionID,
			BypassAttempts:  row.BypassAttempts,
			Reason:          row.Reason,
			RequestedAt:     row.CreatedAt,
		}
		if err := a.deps.Publisher.Publish(ctx, ev); err != nil {
			a.deps.Base.Log.Warn("review event publish failed",
				"review_id", row.ID,
				"user_id", row.UserID,
				"error", err,
			)
		}
	}
}

func decodeArchitecture(rec *types.IntegrationArchitectureRecord) (*types.IntegrationArchitecture, error) {
	if rec == nil {
		return nil, gorm.ErrRecordNotFound
	}
	var arch types.IntegrationArchitecture
	if err := json.Unmarshal(rec.State, &arch); err != nil {
		return nil, InvariantError(fmt.Sprintf("decode architecture state: %v", err))
	}
	if arch.UserID != rec.UserID {
		return nil, InvariantError("architecture state belongs to another user")
	}
	if err := RequireVersionMatch(arch.Version, rec.Version); err != nil {
		return nil, err
	}
	return &arch, nil
}
