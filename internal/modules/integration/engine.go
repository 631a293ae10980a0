// Package integration is the progression engine. It owns every mutation of a user's
// IntegrationArchitecture and composes the stateless sub-services in its subpackages.
//
// The engine holds no per-user state: callers load an architecture, pass it to exactly one
// operation and persist the result before the next operation for that user begins.
package integration

import (
	"errors"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/integration-engine/internal/domain/integration"
	"github.com/yungbote/integration-engine/internal/modules/integration/bypass"
	"github.com/yungbote/integration-engine/internal/modules/integration/catalog"
	"github.com/yungbote/integration-engine/internal/modules/integration/gates"
	"github.com/yungbote/integration-engine/internal/modules/integration/pacing"
	"github.com/yungbote/integration-engine/internal/modules/integration/spiral"
	"github.com/yungbote/integration-engine/internal/platform/logger"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)

type EngineDeps struct {
	Catalog *catalog.Catalog
	Log     *logger.Logger
	// NewID defaults to uuid.New.
	NewID func() uuid.UUID
}

type Engine struct {
	log    *logger.Logger
	cat    *catalog.Catalog
	pacing *pacing.Gate
	gates  *gates.Service
	spiral *spiral.Tracker
	newID  func() uuid.UUID
}

func NewEngine(deps EngineDeps) *Engine {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	cat := deps.Catalog
	if cat == nil {
		cat = catalog.Default(log)
	}
	newID := deps.NewID
	if newID == nil {
		newID = uuid.New
	}
	return &Engine{
		log:    log.With("service", "IntegrationEngine"),
		cat:    cat,
		pacing: pacing.NewGate(cat),
		gates:  gates.NewService(cat),
		spiral: spiral.NewTracker(),
		newID:  newID,
	}
}

// detectorFor builds a detector honouring the user's referral threshold.
func (e *Engine) detectorFor(arch *types.IntegrationArchitecture) *bypass.Detector {
	return bypass.NewDetector(e.cat,
		bypass.WithReferralThreshold(referralThreshold(arch)),
		bypass.WithIDGenerator(e.newID),
	)
}

func referralThreshold(arch *types.IntegrationArchitecture) int {
	if arch != nil && arch.Safeguards.ProfessionalReferralThreshold > 0 {
		return arch.Safeguards.ProfessionalReferralThreshold
	}
	return gates.ReviewAttemptThreshold
}

// Initialize returns a fresh architecture for userID.
func (e *Engine) Initialize(userID uuid.UUID, now time.Time) (*types.IntegrationArchitecture, error) {
	if userID == uuid.Nil {
		return nil, validationf("user id is required")
	}
	sg := types.DefaultSafeguards()
	return &types.IntegrationArchitecture{
		UserID:           userID,
		CurrentStage:     types.StageDailyIntegration,
		SpiralProgress:   []types.SpiralProgressPoint{},
		IntegrationGates: []types.IntegrationGate{},
		BypassingHistory: []types.BypassingDetection{},
		ReflectionGaps:   []types.ReflectionGap{},
		EmbodiedWisdom: types.EmbodiedWisdomTracking{
			Submissions:        []types.EmbodiedSubmission{},
			PendingGrowthEdges: []string{},
			PracticeDays:       []time.Time{},
		},
		Safeguards:               sg,
		NextMandatoryIntegration: now.Add(time.Duration(sg.MandatoryReflectionHours) * time.Hour),
		CreatedAt:                now,
	}, nil
}

// AddressDetection marks a detection as handled. Repeating it is harmless.
func (e *Engine) AddressDetection(arch *types.IntegrationArchitecture, detectionID uuid.UUID) (*types.BypassingDetection, error) {
	if arch == nil {
		return nil, validationf("architecture is required")
	}
	for i := range arch.BypassingHistory {
		d := &arch.BypassingHistory[i]
		if d.ID == detectionID {
			d.Addressed = true
			return d, nil
		}
	}
	return nil, notFoundf("detection %s", detectionID)
}

// AdvanceStage moves one step forward; spiral_revisit may also return to reflection_gap.
func (e *Engine) AdvanceStage(arch *types.IntegrationArchitecture, to types.Stage) error {
	if arch == nil {
		return validationf("architecture is required")
	}
	if !to.Valid() {
		return validationf("unknown stage %q", to)
	}
	from := arch.CurrentStage
	if from == types.StageSpiralRevisit && to == types.StageReflectionGap {
		arch.CurrentStage = to
		return nil
	}
	fi, ti := stageIndex(from), stageIndex(to)
	if fi < 0 || ti != fi+1 {
		return validationf("illegal stage transition %s -> %s", from, to)
	}
	arch.CurrentStage = to
	return nil
}

func stageIndex(s types.Stage) int {
	for i, st := range types.StageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// ReviewSeverity runs escalation over every open detection. It is the entry point for a
// periodic external review.
func (e *Engine) ReviewSeverity(arch *types.IntegrationArchitecture, metrics *types.BehaviorMetrics, now time.Time) (types.ReviewResult, error) {
	if arch == nil {
		return types.ReviewResult{}, validationf("architecture is required")
	}
	det := e.detectorFor(arch)
	snapshot := append([]types.BypassingDetection(nil), arch.BypassingHistory...)
	res := types.ReviewResult{Escalated: []types.BypassingDetection{}}

	for i := range arch.BypassingHistory {
		prior := arch.BypassingHistory[i]
		if prior.Addressed {
			continue
		}
		next := det.Escalate(prior, metrics, snapshot, now)
		if next.Severity == prior.Severity {
			continue
		}
		arch.BypassingHistory[i] = next
		res.Escalated = append(res.Escalated, next)
		if next.Severity == types.SeverityProfessionalReferral {
			arch.ProfessionalSupportRecommended = true
			id := next.ID
			res.Reviews = append(res.Reviews, types.ReviewRequest{
				UserID:      arch.UserID,
				DetectionID: &id,
				Reason:      types.ReviewReasonProfessionalReferral,
				RequestedAt: now,
			})
			e.log.Warn("professional support review requested",
				"user_id", arch.UserID,
				"detection_id", next.ID,
				"pattern", next.Pattern,
			)
		}
	}
	// A review is itself an integration check, so the next one moves out by the reflection window.
	hours := arch.Safeguards.MandatoryReflectionHours
	if hours <= 0 {
		hours = types.DefaultSafeguards().MandatoryReflectionHours
	}
	if next := now.Add(time.Duration(hours) * time.Hour); next.After(arch.NextMandatoryIntegration) {
		arch.NextMandatoryIntegration = next
	}
	res.ProfessionalSupportRecommended = arch.ProfessionalSupportRecommended
	return res, nil
}
