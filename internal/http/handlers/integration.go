package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/yungbote/integration-engine/internal/domain/aggregates"
	types "github.com/yungbote/integration-engine/internal/domain/integration"
	"github.com/yungbote/integration-engine/internal/http/response"
	"github.com/yungbote/integration-engine/internal/platform/ctxutil"
	"github.com/yungbote/integration-engine/internal/platform/logger"
)

const maxBodyBytes = 1 << 20

type IntegrationHandlerDeps struct {
	Log       *logger.Logger
	Aggregate domainagg.IntegrationArchitectureAggregate
}

type IntegrationHandler struct {
	log *logger.Logger
	agg domainagg.IntegrationArchitectureAggregate
}

func NewIntegrationHandler(deps IntegrationHandlerDeps) *IntegrationHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &IntegrationHandler{log: log.With("handler", "IntegrationHandler"), agg: deps.Aggregate}
}

// POST /api/integration/initialize
func (h *IntegrationHandler) Initialize(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	arch, err := h.agg.Initialize(c.Request.Context(), userID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"architecture": arch})
}

type contentRequestBody struct {
	Content           types.ContentMetadata  `json:"content"`
	Metrics           *types.BehaviorMetrics `json:"metrics,omitempty"`
	RecentReflections []string               `json:"recent_reflections,omitempty"`
}

// POST /api/integration/content-requests
// Policy denials (paced, gated) are 200 responses; the outcome field says which.
func (h *IntegrationHandler) RequestContent(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	var body contentRequestBody
	if !bindJSON(c, &body) {
		return
	}
	res, err := h.agg.RequestContent(c.Request.Context(), domainagg.ContentRequestInput{
		UserID:            userID,
		Content:           body.Content,
		Metrics:           body.Metrics,
		RecentReflections: body.RecentReflections,
	})
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"result": res})
}

// POST /api/integration/submissions/:kind
// The body is the payload for :kind, e.g. {"moment": "...", "awareness": "..."} for ordinary_moment.
func (h *IntegrationHandler) Submit(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	kind := types.SubmissionKind(strings.TrimSpace(c.Param("kind")))
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	sub, err := decodeSubmission(kind, raw)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_submission", err)
		return
	}
	res, err := h.agg.Submit(c.Request.Context(), domainagg.SubmissionInput{
		UserID:     userID,
		Kind:       kind,
		Submission: sub,
	})
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"result": res})
}

// GET /api/integration/dashboard
func (h *IntegrationHandler) Dashboard(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	d, err := h.agg.Dashboard(c.Request.Context(), userID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"dashboard": d})
}

// POST /api/integration/detections/:id/address
func (h *IntegrationHandler) AddressDetection(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	detectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_detection_id", err)
		return
	}
	arch, err := h.agg.AddressDetection(c.Request.Context(), userID, detectionID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"architecture": arch})
}

// POST /api/integration/stage
// body: { "stage": "embodied_wisdom" }
func (h *IntegrationHandler) AdvanceStage(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	var body struct {
		Stage types.Stage `json:"stage"`
	}
	if !bindJSON(c, &body) {
		return
	}
	arch, err := h.agg.AdvanceStage(c.Request.Context(), userID, body.Stage)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"architecture": arch})
}

// POST /api/integration/review
// body: { "metrics": { ... } }
func (h *IntegrationHandler) ReviewSeverity(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	var body struct {
		Metrics *types.BehaviorMetrics `json:"metrics"`
	}
	if !bindJSON(c, &body) {
		return
	}
	res, err := h.agg.ReviewSeverity(c.Request.Context(), userID, body.Metrics)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"result": res})
}

func requestUser(c *gin.Context) (uuid.UUID, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func bindJSON(c *gin.Context, dst any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return false
	}
	return true
}

// decodeSubmission fills only the union member named by kind. Unknown kinds are left to the
// engine so they surface as validation errors from one place.
func decodeSubmission(kind types.SubmissionKind, raw []byte) (types.Submission, error) {
	var sub types.Submission
	var dst any
	switch kind {
	case types.KindLivedExperience:
		sub.LivedExperience = &types.LivedExperienceSubmission{}
		dst = sub.LivedExperience
	case types.KindBodyIntegration:
		sub.BodyIntegration = &types.BodyIntegrationSubmission{}
		dst = sub.BodyIntegration
	case types.KindStruggleWisdom:
		sub.StruggleWisdom = &types.StruggleWisdomSubmission{}
		dst = sub.StruggleWisdom
	case types.KindOrdinaryMoment:
		sub.OrdinaryMoment = &types.OrdinaryMomentSubmission{}
		dst = sub.OrdinaryMoment
	case types.KindSpiralVisit:
		sub.SpiralVisit = &types.SpiralVisitSubmission{}
		dst = sub.SpiralVisit
	case types.KindIntegrationEvidence:
		sub.Evidence = &types.EvidenceSubmission{}
		dst = sub.Evidence
	case types.KindRequirementCompletion:
		sub.RequirementCompletion = &types.RequirementCompletionSubmission{}
		dst = sub.RequirementCompletion
	default:
		return sub, nil
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return types.Submission{}, io.ErrUnexpectedEOF
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return types.Submission{}, err
	}
	return sub, nil
}
