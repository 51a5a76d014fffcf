package treatment

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/fieldcare/fieldcare-backend/internal/domain/farm"
)

// Request is an agronomist's treatment proposal for a field.
type Request struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	AgronomistID  uint          `gorm:"column:agronomist_id;not null;index" json:"agronomist_id"`
	FieldID       uint          `gorm:"column:field_id;not null;index" json:"field_id"`
	Field         *farm.Field   `gorm:"foreignKey:FieldID;references:ID" json:"-"`
	Status        RequestStatus `gorm:"column:status;not null;default:'pending';index" json:"status"`
	Message       string        `gorm:"column:message;type:text;not null" json:"message"`
	ProposedPrice float64       `gorm:"column:proposed_price;not null" json:"proposed_price"`
	// NDVI value captured when the request was proposed.
	BeforeIndex float64    `gorm:"column:before_ndvi_value;not null" json:"before_ndvi_value"`
	HealthIssue *string    `gorm:"column:health_issue_description;type:text" json:"health_issue_description,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	AcceptedAt  *time.Time `gorm:"column:accepted_at" json:"accepted_at,omitempty"`
}

func (Request) TableName() string { return "treatment_request" }

// Treatment is created together with the acceptance of its Request.
type Treatment struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	RequestID     uint       `gorm:"column:request_id;not null;uniqueIndex" json:"request_id"`
	Request       *Request   `gorm:"foreignKey:RequestID;references:ID" json:"-"`
	Status        Status     `gorm:"column:status;not null;default:'scheduled';index" json:"status"`
	ScheduledDate *time.Time `gorm:"column:scheduled_date" json:"scheduled_date,omitempty"`
	CompletedDate *time.Time `gorm:"column:completed_date" json:"completed_date,omitempty"`
	AfterIndex    *float64   `gorm:"column:after_ndvi_value" json:"after_ndvi_value,omitempty"`
	// Only set by verification, together with AfterIndex.
	ImprovementPercentage *float64  `gorm:"column:improvement_percentage" json:"improvement_percentage,omitempty"`
	TreatmentType         string    `gorm:"column:treatment_type" json:"treatment_type,omitempty"`
	Notes                 string    `gorm:"column:notes;type:text" json:"notes,omitempty"`
	AgronomistConfirmed   bool      `gorm:"column:agronomist_confirmed;not null;default:false" json:"agronomist_confirmed"`
	FarmerConfirmed       bool      `gorm:"column:farmer_confirmed;not null;default:false" json:"farmer_confirmed"`
	CreatedAt             time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Treatment) TableName() string { return "treatment" }

// View is a Treatment joined with the before value of its Request.
type View struct {
	Treatment
	BeforeIndex *float64 `gorm:"column:before_ndvi_value" json:"before_ndvi_value,omitempty"`
}

// ValidateProposal checks the parts of a proposal that need no lookup.
func ValidateProposal(message string, price float64) error {
	if strings.TrimSpace(message) == "" {
		return errors.New("message is required")
	}
	if price < 0 || math.IsNaN(price) {
		return errors.New("proposed_price must be >= 0")
	}
	return nil
}
