package aggregates

import (
	"context"
	"time"

	"github.com/fieldcare/fieldcare-backend/internal/domain/auth"
	"github.com/fieldcare/fieldcare-backend/internal/domain/treatment"
)

// TreatmentAggregate owns the treatment request and treatment lifecycle.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeInvalidState, CodeConflict, CodeRetryable, CodeInternal.
// Ownership mismatches are reported as CodeNotFound.
type TreatmentAggregate interface {
	Propose(ctx context.Context, in ProposeInput) (*treatment.Request, error)
	Accept(ctx context.Context, id auth.Identity, requestID uint) (*treatment.Request, *treatment.Treatment, error)
	Reject(ctx context.Context, id auth.Identity, requestID uint) (*treatment.Request, error)
	Delete(ctx context.Context, id auth.Identity, requestID uint) error

	Schedule(ctx context.Context, id auth.Identity, treatmentID uint, date time.Time) (*treatment.Treatment, error)
	Start(ctx context.Context, id auth.Identity, treatmentID uint) (*treatment.Treatment, error)
	Complete(ctx context.Context, in CompleteInput) (*treatment.Treatment, error)
	Verify(ctx context.Context, id auth.Identity, treatmentID uint, after float64) (VerifyResult, error)
	FarmerConfirm(ctx context.Context, id auth.Identity, treatmentID uint) (*treatment.Treatment, error)
}

type ProposeInput struct {
	Identity      auth.Identity
	FieldID       uint
	Message       string
	ProposedPrice float64
	// Index is the field's current NDVI, stored as the request's before value.
	Index       float64
	HealthIssue string
}

type CompleteInput struct {
	Identity      auth.Identity
	TreatmentID   uint
	TreatmentType string
	Notes         string
}

type VerifyResult struct {
	Treatment  *treatment.Treatment
	Request    *treatment.Request
	Comparison treatment.Comparison
}
