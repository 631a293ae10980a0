package integration

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// IntegrationArchitectureRecord persists one user's architecture as a JSON document.
// The scalar columns mirror fields of the document so operators can query them directly.
type IntegrationArchitectureRecord struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	Stage                          string    `gorm:"column:stage;type:text;not null;index" json:"stage"`
	Version                        int       `gorm:"column:version;not null" json:"version"`
	ProfessionalSupportRecommended bool      `gorm:"column:professional_support_recommended;not null;index" json:"professional_support_recommended"`
	LastIntegrationCheck           time.Time `gorm:"column:last_integration_check" json:"last_integration_check"`
	NextMandatoryIntegration       time.Time `gorm:"column:next_mandatory_integration;index" json:"next_mandatory_integration"`

	State datatypes.JSON `gorm:"column:state;type:jsonb;not null" json:"state"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime;index" json:"updated_at"`
}

func (IntegrationArchitectureRecord) TableName() string { return "integration_architecture" }

// ProfessionalSupportReview is written whenever repeated bypass attempts or a referral-level
// detection require a human to look at the user's progress.
type ProfessionalSupportReview struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	ReflectionGapID *uuid.UUID `gorm:"type:uuid;column:reflection_gap_id" json:"reflection_gap_id,omitempty"`
	DetectionID     *uuid.UUID `gorm:"type:uuid;column:detection_id" json:"detection_id,omitempty"`
	BypassAttempts  int        `gorm:"column:bypass_attempts;not null" json:"bypass_attempts"`
	Reason          string     `gorm:"column:reason;type:text;not null" json:"reason"`
	Resolved        bool       `gorm:"column:resolved;not null;index" json:"resolved"`
	CreatedAt       time.Time  `gorm:"not null;autoCreateTime;index" json:"created_at"`
}

func (ProfessionalSupportReview) TableName() string { return "professional_support_review" }

const (
	ReviewReasonRepeatedBypass       = "repeated_bypass"
	ReviewReasonProfessionalReferral = "professional_referral"
)

// ReviewRequest is the in-memory side effect emitted by the orchestrator; the write boundary
// turns each one into a ProfessionalSupportReview row.
type ReviewRequest struct {
	UserID          uuid.UUID  `json:"user_id"`
	ReflectionGapID *uuid.UUID `json:"reflection_gap_id,omitempty"`
	DetectionID     *uuid.UUID `json:"detection_id,omitempty"`
	BypassAttempts  int        `json:"bypass_attempts"`
	Reason          string     `json:"reason"`
	RequestedAt     time.Time  `json:"requested_at"`
}
