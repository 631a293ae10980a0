package aggregates

import (
	"context"

	"github.com/google/uuid"
	"github.com/yungbote/integration-engine/internal/domain/integration"
)

// IntegrationArchitectureAggregate owns every write to a user's integration architecture.
// Each call loads the architecture, applies exactly one engine operation and saves it back
// before returning.
type IntegrationArchitectureAggregate interface {
	Aggregate

	Initialize(ctx context.Context, userID uuid.UUID) (*integration.IntegrationArchitecture, error)
	RequestContent(ctx context.Context, in ContentRequestInput) (integration.ContentResult, error)
	Submit(ctx context.Context, in SubmissionInput) (integration.SubmissionResult, error)
	AddressDetection(ctx context.Context, userID, detectionID uuid.UUID) (*integration.IntegrationArchitecture, error)
	AdvanceStage(ctx context.Context, userID uuid.UUID, to integration.Stage) (*integration.IntegrationArchitecture, error)
	ReviewSeverity(ctx context.Context, userID uuid.UUID, metrics *integration.BehaviorMetrics) (integration.ReviewResult, error)
	Dashboard(ctx context.Context, userID uuid.UUID) (integration.Dashboard, error)
}

type ContentRequestInput struct {
	UserID  uuid.UUID
	Content integration.ContentMetadata
	Metrics *integration.BehaviorMetrics
	// RecentReflections feeds phrase-based superiority detection.
	RecentReflections []string
}

type SubmissionInput struct {
	UserID     uuid.UUID
	Kind       integration.SubmissionKind
	Submission integration.Submission
}

func IntegrationArchitectureContract() Contract {
	return Contract{
		Name:             "integration_architecture",
		WriteTxOwnership: WriteTxOwnedByAggregate,
		ReadPolicy:       ReadPolicyInvariantScoped,
		Notes:            "single writer per user; load, mutate and save happen inside one transaction guarded by a per-user lock and a version CAS",
	}
}
