package services

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldcare/fieldcare-backend/internal/data/repos"
	domainagg "github.com/fieldcare/fieldcare-backend/internal/domain/aggregates"
	"github.com/fieldcare/fieldcare-backend/internal/domain/auth"
	"github.com/fieldcare/fieldcare-backend/internal/domain/treatment"
	"github.com/fieldcare/fieldcare-backend/internal/platform/dbctx"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

type ProposeRequest struct {
	FieldID       uint
	Message       string
	ProposedPrice float64
	// Index is acquired from the pipeline when nil.
	Index       *float64
	HealthIssue string
}

type CompleteRequest struct {
	TreatmentType string
	Notes         string
}

// WorkflowService fronts the treatment aggregate for the HTTP layer. Index
// values a caller omits are measured on demand.
type WorkflowService interface {
	Propose(ctx context.Context, id auth.Identity, in ProposeRequest) (*treatment.Request, error)
	Accept(ctx context.Context, id auth.Identity, requestID uint) (*treatment.Request, *treatment.Treatment, error)
	Reject(ctx context.Context, id auth.Identity, requestID uint) (*treatment.Request, error)
	DeleteRequest(ctx context.Context, id auth.Identity, requestID uint) error
	ListRequests(ctx context.Context, id auth.Identity) ([]*treatment.Request, error)
	GetRequest(ctx context.Context, id auth.Identity, requestID uint) (*treatment.Request, error)

	Schedule(ctx context.Context, id auth.Identity, treatmentID uint, date time.Time) (*treatment.Treatment, error)
	Start(ctx context.Context, id auth.Identity, treatmentID uint) (*treatment.Treatment, error)
	Complete(ctx context.Context, id auth.Identity, treatmentID uint, in CompleteRequest) (*treatment.Treatment, error)
	Verify(ctx context.Context, id auth.Identity, treatmentID uint, after *float64) (domainagg.VerifyResult, error)
	FarmerConfirm(ctx context.Context, id auth.Identity, treatmentID uint) (*treatment.Treatment, error)
	ListTreatments(ctx context.Context, id auth.Identity) ([]*treatment.View, error)
	GetTreatment(ctx context.Context, id auth.Identity, treatmentID uint) (*treatment.View, error)
}

type workflowService struct {
	log         *logger.Logger
	agg         domainagg.TreatmentAggregate
	fields      repos.FieldRepo
	requests    repos.RequestRepo
	treatments  repos.TreatmentRepo
	measurement MeasurementService
}

func NewWorkflowService(
	log *logger.Logger,
	agg domainagg.TreatmentAggregate,
	fields repos.FieldRepo,
	requests repos.RequestRepo,
	treatments repos.TreatmentRepo,
	measurement MeasurementService,
) WorkflowService {
	return &workflowService{
		log:         log.With("service", "WorkflowService"),
		agg:         agg,
		fields:      fields,
		requests:    requests,
		treatments:  treatments,
		measurement: measurement,
	}
}

func visibility(id auth.Identity) repos.Visibility {
	return repos.Visibility{FarmerID: id.FarmerID, AgronomistID: id.AgronomistID}
}

func (s *workflowService) Propose(ctx context.Context, id auth.Identity, in ProposeRequest) (*treatment.Request, error) {
	const op = "Workflow.Propose"
	if !id.IsAgronomist() {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "agronomist profile not found", nil)
	}
	if err := treatment.ValidateProposal(in.Message, in.ProposedPrice); err != nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), nil)
	}
	var index float64
	if in.Index != nil {
		index = *in.Index
	} else {
		field, err := s.fields.GetByID(dbctx.Context{Ctx: ctx}, in.FieldID)
		if err != nil {
			return nil, domainagg.NewError(domainagg.CodeInternal, op, "load field", err)
		}
		if field == nil {
			return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("field %d not found", in.FieldID), nil)
		}
		if index, err = s.measurement.CurrentIndex(ctx, *field, nil); err != nil {
			return nil, err
		}
		s.log.Info("before index measured", "field_id", field.ID, "value", index)
	}
	return s.agg.Propose(ctx, domainagg.ProposeInput{
		Identity:      id,
		FieldID:       in.FieldID,
		Message:       in.Message,
		ProposedPrice: in.ProposedPrice,
		Index:         index,
		HealthIssue:   in.HealthIssue,
	})
}

func (s *workflowService) Accept(ctx context.Context, id auth.Identity, requestID uint) (*treatment.Request, *treatment.Treatment, error) {
	return s.agg.Accept(ctx, id, requestID)
}

func (s *workflowService) Reject(ctx context.Context, id auth.Identity, requestID uint) (*treatment.Request, error) {
	return s.agg.Reject(ctx, id, requestID)
}

func (s *workflowService) DeleteRequest(ctx context.Context, id auth.Identity, requestID uint) error {
	return s.agg.Delete(ctx, id, requestID)
}

func (s *workflowService) ListRequests(ctx context.Context, id auth.Identity) ([]*treatment.Request, error) {
	rows, err := s.requests.ListVisible(dbctx.Context{Ctx: ctx}, visibility(id))
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, "Workflow.ListRequests", "list requests", err)
	}
	return rows, nil
}

func (s *workflowService) GetRequest(ctx context.Context, id auth.Identity, requestID uint) (*treatment.Request, error) {
	const op = "Workflow.GetRequest"
	row, err := s.requests.GetVisible(dbctx.Context{Ctx: ctx}, visibility(id), requestID)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "load request", err)
	}
	if row == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("request %d not found", requestID), nil)
	}
	return row, nil
}

func (s *workflowService) Schedule(ctx context.Context, id auth.Identity, treatmentID uint, date time.Time) (*treatment.Treatment, error) {
	return s.agg.Schedule(ctx, id, treatmentID, date)
}

func (s *workflowService) Start(ctx context.Context, id auth.Identity, treatmentID uint) (*treatment.Treatment, error) {
	return s.agg.Start(ctx, id, treatmentID)
}

func (s *workflowService) Complete(ctx context.Context, id auth.Identity, treatmentID uint, in CompleteRequest) (*treatment.Treatment, error) {
	return s.agg.Complete(ctx, domainagg.CompleteInput{
		Identity:      id,
		TreatmentID:   treatmentID,
		TreatmentType: in.TreatmentType,
		Notes:         in.Notes,
	})
}

// Verify measures the field now when after is nil. The measurement is only
// taken for a treatment the caller can see.
func (s *workflowService) Verify(ctx context.Context, id auth.Identity, treatmentID uint, after *float64) (domainagg.VerifyResult, error) {
	const op = "Workflow.Verify"
	if after == nil {
		if !id.IsAgronomist() {
			return domainagg.VerifyResult{}, domainagg.NewError(domainagg.CodeNotFound, op, "agronomist profile not found", nil)
		}
		dbc := dbctx.Context{Ctx: ctx}
		view, err := s.treatments.GetVisible(dbc, repos.Visibility{AgronomistID: id.AgronomistID}, treatmentID)
		if err != nil {
			return domainagg.VerifyResult{}, domainagg.NewError(domainagg.CodeInternal, op, "load treatment", err)
		}
		if view == nil {
			return domainagg.VerifyResult{}, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("treatment %d not found", treatmentID), nil)
		}
		if view.Status != treatment.StatusCompleted {
			return domainagg.VerifyResult{}, domainagg.NewError(domainagg.CodeInvalidState, op, fmt.Sprintf("treatment is %s, want completed", view.Status), nil)
		}
		tr, err := s.treatments.GetByID(dbc, treatmentID)
		if err != nil || tr == nil || tr.Request == nil || tr.Request.Field == nil {
			return domainagg.VerifyResult{}, domainagg.NewError(domainagg.CodeInternal, op, "load treatment field", err)
		}
		now := time.Now().UTC()
		v, err := s.measurement.CurrentIndex(ctx, *tr.Request.Field, &now)
		if err != nil {
			return domainagg.VerifyResult{}, err
		}
		after = &v
		s.log.Info("after index measured", "treatment_id", treatmentID, "value", v)
	}
	return s.agg.Verify(ctx, id, treatmentID, *after)
}

func (s *workflowService) FarmerConfirm(ctx context.Context, id auth.Identity, treatmentID uint) (*treatment.Treatment, error) {
	return s.agg.FarmerConfirm(ctx, id, treatmentID)
}

func (s *workflowService) ListTreatments(ctx context.Context, id auth.Identity) ([]*treatment.View, error) {
	rows, err := s.treatments.ListVisible(dbctx.Context{Ctx: ctx}, visibility(id))
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, "Workflow.ListTreatments", "list treatments", err)
	}
	return rows, nil
}

func (s *workflowService) GetTreatment(ctx context.Context, id auth.Identity, treatmentID uint) (*treatment.View, error) {
	const op = "Workflow.GetTreatment"
	row, err := s.treatments.GetVisible(dbctx.Context{Ctx: ctx}, visibility(id), treatmentID)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "load treatment", err)
	}
	if row == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("treatment %d not found", treatmentID), nil)
	}
	return row, nil
}
