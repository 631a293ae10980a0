package integration

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/integration-engine/internal/domain/integration"
	"github.com/yungbote/integration-engine/internal/modules/integration/catalog"
)

var start = time.Date(2026, 4, 6, 7, 30, 0, 0, time.UTC)

func newEngine() *Engine {
	return NewEngine(EngineDeps{Catalog: catalog.MustEmbedded()})
}

func freshArch(t *testing.T, e *Engine) *types.IntegrationArchitecture {
	t.Helper()
	arch, err := e.Initialize(uuid.New(), start)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return arch
}

func TestInitializeDefaults(t *testing.T) {
	e := newEngine()
	arch := freshArch(t, e)
	if arch.CurrentStage != types.StageDailyIntegration {
		t.Fatalf("stage=%s", arch.CurrentStage)
	}
	if !arch.NextMandatoryIntegration.Equal(start.Add(24 * time.Hour)) {
		t.Fatalf("next mandatory=%v", arch.NextMandatoryIntegration)
	}
	if arch.Safeguards != types.DefaultSafeguards() || !arch.LastIntegrationCheck.IsZero() {
		t.Fatalf("unexpected defaults: %+v", arch)
	}
	if _, err := e.Initialize(uuid.Nil, start); !errors.Is(err, ErrValidation) {
		t.Fatalf("nil user should be a validation error, got %v", err)
	}
}

func TestGrantCreatesReflectionGapAndGates(t *testing.T) {
	e := newEngine()
	arch := freshArch(t, e)
	res, err := e.ProcessContentRequest(arch, ContentRequest{Content: types.ContentMetadata{
		ID:      "breath-basics",
		Type:    types.CategoryPractice,
		Summary: "Good vibes only for this breath practice.",
		Unlocks: []string{"breath-advanced", "breath-advanced", ""},
	}}, start)
	if err != nil {
		t.Fatalf("ProcessContentRequest: %v", err)
	}
	if !res.Allowed || res.Outcome != types.OutcomeGranted || res.Content == nil {
		t.Fatalf("expected grant: %+v", res)
	}
	if res.Content.GroundedSummary != "all feelings are welcome for this breath practice." {
		t.Fatalf("grounded summary=%q", res.Content.GroundedSummary)
	}
	if res.Content.MinimumReflectionDays != 3 || len(res.Content.ReflectionPrompts) == 0 {
		t.Fatalf("annotation missing: %+v", res.Content)
	}
	if len(arch.ReflectionGaps) != 1 || arch.ReflectionGaps[0].Status != types.GapOpen {
		t.Fatalf("reflection gaps=%+v", arch.ReflectionGaps)
	}
	if len(arch.IntegrationGates) != 1 || arch.IntegrationGates[0].Type != types.GateSequential {
		t.Fatalf("gates=%+v", arch.IntegrationGates)
	}
	if !arch.LastIntegrationCheck.Equal(start) || !arch.NextMandatoryIntegration.Equal(start.Add(72*time.Hour)) {
		t.Fatalf("timestamps not updated: %v %v", arch.LastIntegrationCheck, arch.NextMandatoryIntegration)
	}
	if arch.CurrentStage != types.StageDailyIntegration {
		t.Fatalf("granting content must not move the stage")
	}
}

func TestPacedRequestDoesNotMutateStageOrTimestamps(t *testing.T) {
	e := newEngine()
	arch := freshArch(t, e)
	if _, err := e.ProcessContentRequest(arch, ContentRequest{Content: types.ContentMetadata{ID: "a", Type: types.CategoryBreakthrough}}, start); err != nil {
		t.Fatalf("first request: %v", err)
	}
	res, err := e.ProcessContentRequest(arch, ContentRequest{Content: types.ContentMetadata{ID: "b", Type: types.CategoryBreakthrough}}, start.Add(100*time.Hour))
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if res.Allowed || res.Outcome != types.OutcomePaced || res.WaitHoursRemaining != 68 {
		t.Fatalf("expected 68h pacing denial: %+v", res)
	}
	if len(res.AlternativeActivities) == 0 {
		t.Fatalf("paced result should suggest alternatives")
	}
	if !arch.LastIntegrationCheck.Equal(start) || len(arch.ReflectionGaps) != 1 {
		t.Fatalf("paced request mutated progression state")
	}
}

func TestFourBypassAttemptsRequestReview(t *testing.T) {
	e := newEngine()
	arch := freshArch(t, e)
	if _, err := e.ProcessContentRequest(arch, ContentRequest{Content: types.ContentMetadata{ID: "c1", Unlocks: []string{"c2"}}}, start); err != nil {
		t.Fatalf("grant: %v", err)
	}

	var messages []string
	for i := 1; i <= 4; i++ {
		res, err := e.ProcessContentRequest(arch, ContentRequest{Content: types.ContentMetadata{ID: "c2"}}, start.Add(time.Duration(i)*time.Hour))
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if res.Outcome != types.OutcomeGated || res.Allowed {
			t.Fatalf("attempt %d should be gated: %+v", i, res)
		}
		if res.BypassAttempt != i || len(res.OpenRequirements) != 3 {
			t.Fatalf("attempt %d: bypass=%d open=%d", i, res.BypassAttempt, len(res.OpenRequirements))
		}
		if wantReview := i == 4; (len(res.Reviews) == 1) != wantReview {
			t.Fatalf("attempt %d: reviews=%d", i, len(res.Reviews))
		}
		messages = append(messages, res.Message)
	}
	for i := 0; i < 3; i++ {
		if messages[3] == messages[i] {
			t.Fatalf("fourth message should differ from attempt %d", i+1)
		}
	}
	if !arch.ProfessionalSupportRecommended {
		t.Fatalf("professional support should be recommended")
	}
	if arch.ReflectionGaps[0].BypassAttempts != 4 {
		t.Fatalf("bypass counter=%d want 4", arch.ReflectionGaps[0].BypassAttempts)
	}
	if arch.IntegrationGates[0].Unlocked {
		t.Fatalf("bypass attempts must never unlock")
	}
}

func TestGateUnlocksAfterIntegrationWork(t *testing.T) {
	e := newEngine()
	arch := freshArch(t, e)
	grant, err := e.ProcessContentRequest(arch, ContentRequest{Content: types.ContentMetadata{ID: "c1", Unlocks: []string{"c2"}}}, start)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	gapID := grant.Content.ReflectionGapID

	var evidenceIDs []uuid.UUID
	for i := 0; i < 3; i++ {
		at := start.Add(time.Duration(i+1) * time.Hour)
		res, err := e.ProcessIntegrationSubmission(arch, types.KindIntegrationEvidence, types.Submission{Evidence: &types.EvidenceSubmission{
			ReflectionGapID: gapID,
			Category:        types.EvidenceBehaviorShift,
			Description:     "Paused before replying to a tense email at work.",
			Validated:       true,
			ValidatedBy:     types.ValidatorPeer,
		}}, at)
		if err != nil {
			t.Fatalf("evidence %d: %v", i, err)
		}
		if res.QualityScore == nil || res.GapStatus != types.GapProcessing {
			t.Fatalf("evidence %d: %+v", i, res)
		}
		evidenceIDs = append(evidenceIDs, res.Evidence.ID)
	}

	gate := arch.IntegrationGates[0]
	for _, req := range gate.Requirements {
		if _, err := e.ProcessIntegrationSubmission(arch, types.KindRequirementCompletion, types.Submission{RequirementCompletion: &types.RequirementCompletionSubmission{
			GateID: gate.ID, RequirementID: req.ID, EvidenceIDs: evidenceIDs[:1],
		}}, start.Add(5*time.Hour)); err != nil {
			t.Fatalf("complete %s: %v", req.Type, err)
		}
	}

	early, err := e.ProcessContentRequest(arch, ContentRequest{Content: types.ContentMetadata{ID: "c2"}}, start.Add(6*time.Hour))
	if err != nil || early.Outcome != types.OutcomeGated {
		t.Fatalf("before one day the gate must hold: %+v err=%v", early, err)
	}

	res, err := e.ProcessContentRequest(arch, ContentRequest{Content: types.ContentMetadata{ID: "c2"}}, start.Add(25*time.Hour))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("expected grant after integration work: %+v", res)
	}
	if !arch.IntegrationGates[0].Unlocked || arch.IntegrationGates[0].UnlockedAt == nil {
		t.Fatalf("gate should be unlocked")
	}
}

func TestRequirementCompletionValidation(t *testing.T) {
	e := newEngine()
	arch := freshArch(t, e)
	if _, err := e.ProcessContentRequest(arch, ContentRequest{Content: types.ContentMetadata{ID: "c1", Unlocks: []string{"c2"}}}, start); err != nil {
		t.Fatalf("grant: %v", err)
	}
	gate := arch.IntegrationGates[0]

	_, err := e.ProcessIntegrationSubmission(arch, types.KindRequirementCompletion, types.Submission{RequirementCompletion: &types.RequirementCompletionSubmission{
		GateID: gate.ID, RequirementID: gate.Requirements[0].ID,
	}}, start)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("missing evidence err=%v want validation", err)
	}

	_, err = e.ProcessIntegrationSubmission(arch, types.KindRequirementCompletion, types.Submission{RequirementCompletion: &types.RequirementCompletionSubmission{
		GateID: uuid.New(), RequirementID: gate.Requirements[0].ID, EvidenceIDs: []uuid.UUID{uuid.New()},
	}}, start)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown gate err=%v want not found", err)
	}

	_, err = e.ProcessIntegrationSubmission(arch, types.KindRequirementCompletion, types.Submission{RequirementCompletion: &types.RequirementCompletionSubmission{
		GateID: gate.ID, RequirementID: gate.Requirements[0].ID, EvidenceIDs: []uuid.UUID{uuid.New()},
	}}, start)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown evidence err=%v want not found", err)
	}

	_, err = e.ProcessIntegrationSubmission(arch, types.KindIntegrationEvidence, types.Submission{Evidence: &types.EvidenceSubmission{
		ReflectionGapID: uuid.New(), Category: types.EvidenceDailyPractice, Description: "x",
	}}, start)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown gap err=%v want not found", err)
	}
}

func TestDetectionsMergeWithoutDuplicates(t *testing.T) {
	e := newEngine()
	arch := freshArch(t, e)
	metrics := &types.BehaviorMetrics{DailyContentRequests: 6, AverageIntegrationDays: types.Days(1)}

	res, err := e.ProcessContentRequest(arch, ContentRequest{Content: types.ContentMetadata{ID: "a"}, Metrics: metrics}, start)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if res.Outcome != types.OutcomeGranted || len(res.Detections) != 1 {
		t.Fatalf("first request should grant with one detection: %+v", res)
	}

	louder := &types.BehaviorMetrics{DailyContentRequests: 12, AverageIntegrationDays: types.Days(1)}
	res, err = e.ProcessContentRequest(arch, ContentRequest{Content: types.ContentMetadata{ID: "b"}, Metrics: louder}, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if res.Outcome != types.OutcomePaced || res.WaitHoursRemaining != 23 {
		t.Fatalf("open insight addiction should impose the insight window: %+v", res)
	}
	if len(arch.BypassingHistory) != 1 {
		t.Fatalf("history=%d want 1 merged detection", len(arch.BypassingHistory))
	}
	d := arch.BypassingHistory[0]
	if d.Severity != types.SeverityConcern || d.Occurrences != 2 {
		t.Fatalf("merged detection=%+v", d)
	}

	quiet := &types.BehaviorMetrics{DailyContentRequests: 6, AverageIntegrationDays: types.Days(1)}
	if _, err := e.ProcessContentRequest(arch, ContentRequest{Content: types.ContentMetadata{ID: "b"}, Metrics: quiet}, start.Add(2*time.Hour)); err != nil {
		t.Fatalf("third: %v", err)
	}
	if arch.BypassingHistory[0].Severity != types.SeverityConcern {
		t.Fatalf("severity must not drop: %s", arch.BypassingHistory[0].Severity)
	}

	if _, err := e.AddressDetection(arch, d.ID); err != nil {
		t.Fatalf("AddressDetection: %v", err)
	}
	res, err = e.ProcessContentRequest(arch, ContentRequest{Content: types.ContentMetadata{ID: "b"}}, start.Add(3*time.Hour))
	if err != nil || !res.Allowed {
		t.Fatalf("addressed detection should no longer pace: %+v err=%v", res, err)
	}
	if _, err := e.AddressDetection(arch, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown detection err=%v", err)
	}
}

func TestSpiralDepthGate(t *testing.T) {
	e := newEngine()
	arch := freshArch(t, e)
	content := types.ContentMetadata{ID: "deep-boundaries", Theme: "boundaries_and_authenticity", RequiredDepth: 2}

	res, err := e.ProcessContentRequest(arch, ContentRequest{Content: content}, start)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if res.Outcome != types.OutcomeGated || res.BypassAttempt != 0 {
		t.Fatalf("depth gate should hold without counting a bypass: %+v", res)
	}

	_, err = e.ProcessIntegrationSubmission(arch, types.KindSpiralVisit, types.Submission{SpiralVisit: &types.SpiralVisitSubmission{
		Theme:        "boundaries_and_authenticity",
		Insight:      "I'm still learning to hold my ground.",
		Applications: []string{"work", "family", "friends"},
	}}, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("spiral visit: %v", err)
	}

	res, err = e.ProcessContentRequest(arch, ContentRequest{Content: content}, start.Add(2*time.Hour))
	if err != nil || !res.Allowed {
		t.Fatalf("depth 2 should open the gate: %+v err=%v", res, err)
	}
	if n := len(arch.IntegrationGates); n != 1 {
		t.Fatalf("depth gate should be created once, got %d gates", n)
	}
}

func TestSpiralVisitUnknownTheme(t *testing.T) {
	e := newEngine()
	arch := freshArch(t, e)
	_, err := e.ProcessIntegrationSubmission(arch, types.KindSpiralVisit, types.Submission{SpiralVisit: &types.SpiralVisitSubmission{Theme: "nope"}}, start)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err=%v want validation", err)
	}
	if _, err := e.ProcessIntegrationSubmission(arch, "telepathy", types.Submission{}, start); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown kind err=%v", err)
	}
	if _, err := e.ProcessIntegrationSubmission(arch, types.KindBodyIntegration, types.Submission{}, start); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing payload err=%v", err)
	}
}

func TestEmbodiedSubmissionsUpdateTracking(t *testing.T) {
	e := newEngine()
	arch := freshArch(t, e)

	rejected, err := e.ProcessIntegrationSubmission(arch, types.KindOrdinaryMoment, types.Submission{OrdinaryMoment: &types.OrdinaryMomentSubmission{
		Moment: "cosmic", Awareness: "divine",
	}}, start)
	if err != nil {
		t.Fatalf("rejected submit: %v", err)
	}
	if rejected.Accepted || len(rejected.GrowthEdges) == 0 || rejected.Feedback == "" {
		t.Fatalf("rejection should carry growth edges: %+v", rejected)
	}
	if len(arch.EmbodiedWisdom.Submissions) != 0 || len(arch.EmbodiedWisdom.PendingGrowthEdges) == 0 {
		t.Fatalf("rejection should only update pending edges")
	}

	accepted, err := e.ProcessIntegrationSubmission(arch, types.KindOrdinaryMoment, types.Submission{OrdinaryMoment: &types.OrdinaryMomentSubmission{
		Moment:    "Washing the dishes after dinner while the kids played.",
		Awareness: "I noticed the warm water and slowed my breathing.",
	}}, start.Add(time.Hour))
	if err != nil || !accepted.Accepted {
		t.Fatalf("accepted submit: %+v err=%v", accepted, err)
	}
	w := arch.EmbodiedWisdom
	if len(w.Submissions) != 1 || len(w.PendingGrowthEdges) != 0 || len(w.PracticeDays) != 1 {
		t.Fatalf("tracking after acceptance: %+v", w)
	}
}

func TestAdvanceStage(t *testing.T) {
	e := newEngine()
	arch := freshArch(t, e)
	if err := e.AdvanceStage(arch, types.StageInitialInsight); !errors.Is(err, ErrValidation) {
		t.Fatalf("backwards move should fail, got %v", err)
	}
	if err := e.AdvanceStage(arch, types.StageSpiralRevisit); !errors.Is(err, ErrValidation) {
		t.Fatalf("skipping a stage should fail, got %v", err)
	}
	for _, to := range []types.Stage{types.StageEmbodiedWisdom, types.StageSpiralRevisit, types.StageReflectionGap, types.StageRealityApplication} {
		if err := e.AdvanceStage(arch, to); err != nil {
			t.Fatalf("advance to %s: %v", to, err)
		}
	}
	if err := e.AdvanceStage(arch, "enlightenment"); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown stage err=%v", err)
	}
}

func TestReviewSeverityEscalatesToReferral(t *testing.T) {
	e := newEngine()
	arch := freshArch(t, e)
	arch.BypassingHistory = append(arch.BypassingHistory,
		types.BypassingDetection{ID: uuid.New(), Pattern: types.PatternEmotionalAvoidance, Severity: types.SeverityConcern, Occurrences: 1},
		types.BypassingDetection{ID: uuid.New(), Pattern: types.PatternOrdinaryRejection, Severity: types.SeverityAwareness, Addressed: true},
	)
	res, err := e.ReviewSeverity(arch, &types.BehaviorMetrics{TherapyReferralRejections: 2}, start)
	if err != nil {
		t.Fatalf("ReviewSeverity: %v", err)
	}
	if len(res.Escalated) != 1 || len(res.Reviews) != 1 || !res.ProfessionalSupportRecommended {
		t.Fatalf("unexpected review result: %+v", res)
	}
	if got := arch.BypassingHistory[0]; got.Severity != types.SeverityProfessionalReferral || !got.ProfessionalReferralSuggested {
		t.Fatalf("detection not escalated: %+v", got)
	}
	if arch.BypassingHistory[1].Severity != types.SeverityAwareness {
		t.Fatalf("addressed detections are left alone")
	}

	again, err := e.ReviewSeverity(arch, &types.BehaviorMetrics{TherapyReferralRejections: 2}, start.Add(24*time.Hour))
	if err != nil || len(again.Reviews) != 0 {
		t.Fatalf("second review should not re-request: %+v err=%v", again, err)
	}
}

func TestPartialMetricsDoNotPaceNextRequest(t *testing.T) {
	e := newEngine()
	arch := freshArch(t, e)
	if _, err := e.ProcessContentRequest(arch, ContentRequest{Content: types.ContentMetadata{ID: "first", Type: types.CategoryInsight}}, start); err != nil {
		t.Fatalf("first request: %v", err)
	}
	var m types.BehaviorMetrics
	if err := json.Unmarshal([]byte(`{"daily_content_requests":6}`), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	res, err := e.ProcessContentRequest(arch, ContentRequest{
		Content: types.ContentMetadata{ID: "second", Type: types.CategoryInsight},
		Metrics: &m,
	}, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if !res.Allowed || len(res.Detections) != 0 || len(arch.BypassingHistory) != 0 {
		t.Fatalf("absent telemetry treated as a red flag: %+v", res)
	}
}

func TestReviewSeverityAdvancesNextCheck(t *testing.T) {
	e := newEngine()
	arch := freshArch(t, e)
	at := start.Add(48 * time.Hour)
	if _, err := e.ReviewSeverity(arch, nil, at); err != nil {
		t.Fatalf("ReviewSeverity: %v", err)
	}
	if want := at.Add(24 * time.Hour); !arch.NextMandatoryIntegration.Equal(want) {
		t.Fatalf("next mandatory=%v want %v", arch.NextMandatoryIntegration, want)
	}

	later := start.Add(30 * 24 * time.Hour)
	arch.NextMandatoryIntegration = later
	if _, err := e.ReviewSeverity(arch, nil, at); err != nil {
		t.Fatalf("ReviewSeverity: %v", err)
	}
	if !arch.NextMandatoryIntegration.Equal(later) {
		t.Fatalf("review pulled a later check forward to %v", arch.NextMandatoryIntegration)
	}
}

func TestReviewSeverityDoesNotReescalateSameObservations(t *testing.T) {
	e := newEngine()
	arch := freshArch(t, e)
	arch.BypassingHistory = append(arch.BypassingHistory, types.BypassingDetection{
		ID: uuid.New(), Pattern: types.PatternInsightAddiction, Severity: types.SeverityAwareness, Occurrences: 3,
	})
	for i := 0; i < 3; i++ {
		res, err := e.ReviewSeverity(arch, nil, start.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("review %d: %v", i, err)
		}
		want := 0
		if i == 0 {
			want = 1
		}
		if len(res.Escalated) != want {
			t.Fatalf("review %d escalated %d detections, want %d", i, len(res.Escalated), want)
		}
	}
	if got := arch.BypassingHistory[0].Severity; got != types.SeverityConcern {
		t.Fatalf("severity=%s want concern", got)
	}
}

func TestEvidenceDateMustFallInsideReflectionPeriod(t *testing.T) {
	e := newEngine()
	arch := freshArch(t, e)
	grant, err := e.ProcessContentRequest(arch, ContentRequest{Content: types.ContentMetadata{ID: "c1"}}, start)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	submit := func(date time.Time) error {
		_, err := e.ProcessIntegrationSubmission(arch, types.KindIntegrationEvidence, types.Submission{Evidence: &types.EvidenceSubmission{
			ReflectionGapID: grant.Content.ReflectionGapID,
			Category:        types.EvidenceDailyPractice,
			Description:     "Took a slow walk before dinner.",
			Date:            &date,
		}}, start.Add(2*time.Hour))
		return err
	}
	for _, d := range []time.Time{start.Add(-10 * 24 * time.Hour), start.Add(3 * time.Hour)} {
		if err := submit(d); !errors.Is(err, ErrValidation) {
			t.Fatalf("date %v: expected validation error, got %v", d, err)
		}
	}
	if len(arch.ReflectionGaps[0].Evidence) != 0 {
		t.Fatalf("rejected evidence was recorded")
	}
	if err := submit(start.Add(time.Hour)); err != nil {
		t.Fatalf("in-range date: %v", err)
	}
}

func TestDepthRequirementWithUnknownThemeIsRejected(t *testing.T) {
	e := newEngine()
	arch := freshArch(t, e)
	_, err := e.ProcessContentRequest(arch, ContentRequest{Content: types.ContentMetadata{
		ID: "deep-dive", RequiredDepth: 4, Theme: "astral_travel",
	}}, start)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(arch.IntegrationGates) != 0 || len(arch.ReflectionGaps) != 0 || !arch.LastIntegrationCheck.IsZero() {
		t.Fatalf("rejected request mutated the architecture: %+v", arch)
	}
}
