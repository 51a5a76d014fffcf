package aggregates

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fieldcare/fieldcare-backend/internal/data/repos"
	domainagg "github.com/fieldcare/fieldcare-backend/internal/domain/aggregates"
	"github.com/fieldcare/fieldcare-backend/internal/domain/auth"
	"github.com/fieldcare/fieldcare-backend/internal/domain/treatment"
	"github.com/fieldcare/fieldcare-backend/internal/platform/dbctx"
)

const (
	requestTable   = "treatment_request"
	treatmentTable = "treatment"
)

type TreatmentAggregateDeps struct {
	Base BaseDeps

	Fields     repos.FieldRepo
	Requests   repos.RequestRepo
	Treatments repos.TreatmentRepo
}

type treatmentAggregate struct {
	deps TreatmentAggregateDeps
	// now is swapped in tests.
	now func() time.Time
}

func NewTreatmentAggregate(deps TreatmentAggregateDeps) domainagg.TreatmentAggregate {
	deps.Base = deps.Base.withDefaults()
	return &treatmentAggregate{
		deps: deps,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (a *treatmentAggregate) configured(op string) error {
	if a.deps.Fields == nil || a.deps.Requests == nil || a.deps.Treatments == nil {
		return domainagg.NewError(domainagg.CodeInternal, op, "treatment aggregate repos not configured", nil)
	}
	return nil
}

func (a *treatmentAggregate) audit(op string, kv ...any) {
	a.deps.Base.Log.Info("treatment transition", append([]any{"op", op}, kv...)...)
}

func (a *treatmentAggregate) Propose(ctx context.Context, in domainagg.ProposeInput) (*treatment.Request, error) {
	const op = "Treatment.Propose"
	if err := a.configured(op); err != nil {
		return nil, err
	}
	if !in.Identity.IsAgronomist() {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "agronomist profile not found", nil)
	}
	if err := treatment.ValidateProposal(in.Message, in.ProposedPrice); err != nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), nil)
	}
	msg := strings.TrimSpace(in.Message)
	if !validIndex(in.Index) {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "current index must be within [-1, 1]", nil)
	}

	var out *treatment.Request
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		field, err := a.deps.Fields.GetByID(dbc, in.FieldID)
		if err != nil {
			return err
		}
		if field == nil {
			return NotFoundError(fmt.Sprintf("field %d not found", in.FieldID))
		}
		row := &treatment.Request{
			AgronomistID:  *in.Identity.AgronomistID,
			FieldID:       field.ID,
			Status:        treatment.RequestPending,
			Message:       msg,
			ProposedPrice: in.ProposedPrice,
			BeforeIndex:   in.Index,
		}
		if note := strings.TrimSpace(in.HealthIssue); note != "" {
			row.HealthIssue = &note
		}
		if err := a.deps.Requests.Create(dbc, row); err != nil {
			return err
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.audit(op, "request_id", out.ID, "field_id", out.FieldID, "to", out.Status)
	return out, nil
}

// loadFarmerRequest loads a request on a field owned by the caller's farmer profile.
func (a *treatmentAggregate) loadFarmerRequest(dbc dbctx.Context, id auth.Identity, requestID uint) (*treatment.Request, error) {
	if !id.IsFarmer() {
		return nil, NotFoundError("farmer profile not found")
	}
	req, err := a.deps.Requests.GetByID(dbc, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil || req.Field == nil || req.Field.FarmerID != *id.FarmerID {
		return nil, NotFoundError(fmt.Sprintf("request %d not found", requestID))
	}
	return req, nil
}

// transitionRequest guards and applies a request-level action inside dbc.
func (a *treatmentAggregate) transitionRequest(dbc dbctx.Context, req *treatment.Request, action treatment.Action, extra map[string]any) error {
	from, to, ok := treatment.RequestTransition(action)
	if !ok {
		return ValidationError(fmt.Sprintf("unknown request action %q", action))
	}
	if err := RequireStatusAllowed(req.Status, from...); err != nil {
		return InvalidStateError(fmt.Sprintf("cannot %s request in status %q", action, req.Status))
	}
	updates := map[string]any{"status": string(to)}
	for k, v := range extra {
		updates[k] = v
	}
	ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, requestTable, req.ID, statusStrings(from), updates)
	if err != nil {
		return err
	}
	if err := RequireCASSuccess(ok, fmt.Sprintf("request %d changed concurrently", req.ID)); err != nil {
		return err
	}
	req.Status = to
	return nil
}

func (a *treatmentAggregate) Accept(ctx context.Context, id auth.Identity, requestID uint) (*treatment.Request, *treatment.Treatment, error) {
	const op = "Treatment.Accept"
	if err := a.configured(op); err != nil {
		return nil, nil, err
	}
	var (
		req *treatment.Request
		tr  *treatment.Treatment
	)
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		var err error
		req, err = a.loadFarmerRequest(dbc, id, requestID)
		if err != nil {
			return err
		}
		now := a.now()
		if err := a.transitionRequest(dbc, req, treatment.ActionAccept, map[string]any{"accepted_at": now}); err != nil {
			return err
		}
		req.AcceptedAt = &now

		tr = &treatment.Treatment{RequestID: req.ID, Status: treatment.StatusScheduled}
		return a.deps.Treatments.Create(dbc, tr)
	})
	if err != nil {
		return nil, nil, err
	}
	a.audit(op, "request_id", req.ID, "treatment_id", tr.ID, "to", req.Status)
	return req, tr, nil
}

func (a *treatmentAggregate) Reject(ctx context.Context, id auth.Identity, requestID uint) (*treatment.Request, error) {
	const op = "Treatment.Reject"
	if err := a.configured(op); err != nil {
		return nil, err
	}
	var req *treatment.Request
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		var err error
		req, err = a.loadFarmerRequest(dbc, id, requestID)
		if err != nil {
			return err
		}
		return a.transitionRequest(dbc, req, treatment.ActionReject, nil)
	})
	if err != nil {
		return nil, err
	}
	a.audit(op, "request_id", req.ID, "to", req.Status)
	return req, nil
}

// Delete removes a request that owns no treatment. Either the authoring
// agronomist or the field's farmer may delete it.
func (a *treatmentAggregate) Delete(ctx context.Context, id auth.Identity, requestID uint) error {
	const op = "Treatment.Delete"
	if err := a.configured(op); err != nil {
		return err
	}
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		req, err := a.deps.Requests.GetByID(dbc, requestID)
		if err != nil {
			return err
		}
		if req == nil || !canSeeRequest(id, req) {
			return NotFoundError(fmt.Sprintf("request %d not found", requestID))
		}
		exists, err := a.deps.Treatments.ExistsForRequest(dbc, req.ID)
		if err != nil {
			return err
		}
		if exists || req.Status.HasTreatment() {
			return ConflictError(fmt.Sprintf("request %d has a treatment", req.ID))
		}
		deleted, err := a.deps.Requests.DeleteIfStatus(dbc, req.ID, []treatment.RequestStatus{
			treatment.RequestPending,
			treatment.RequestRejected,
		})
		if err != nil {
			return err
		}
		if !deleted {
			return ConflictError(fmt.Sprintf("request %d changed concurrently", req.ID))
		}
		return nil
	})
	if err != nil {
		return err
	}
	a.audit(op, "request_id", requestID)
	return nil
}

func canSeeRequest(id auth.Identity, req *treatment.Request) bool {
	if id.IsAgronomist() && *id.AgronomistID == req.AgronomistID {
		return true
	}
	return id.IsFarmer() && req.Field != nil && req.Field.FarmerID == *id.FarmerID
}

type treatmentOwner int

const (
	ownerAgronomist treatmentOwner = iota
	ownerFarmer
)

func (a *treatmentAggregate) loadTreatment(dbc dbctx.Context, id auth.Identity, treatmentID uint, owner treatmentOwner) (*treatment.Treatment, error) {
	switch owner {
	case ownerAgronomist:
		if !id.IsAgronomist() {
			return nil, NotFoundError("agronomist profile not found")
		}
	case ownerFarmer:
		if !id.IsFarmer() {
			return nil, NotFoundError("farmer profile not found")
		}
	}
	tr, err := a.deps.Treatments.GetByID(dbc, treatmentID)
	if err != nil {
		return nil, err
	}
	notFound := NotFoundError(fmt.Sprintf("treatment %d not found", treatmentID))
	if tr == nil || tr.Request == nil {
		return nil, notFound
	}
	switch owner {
	case ownerAgronomist:
		if tr.Request.AgronomistID != *id.AgronomistID {
			return nil, notFound
		}
	case ownerFarmer:
		if tr.Request.Field == nil || tr.Request.Field.FarmerID != *id.FarmerID {
			return nil, notFound
		}
	}
	return tr, nil
}

// transitionTreatment guards and applies a treatment-level action inside dbc.
func (a *treatmentAggregate) transitionTreatment(dbc dbctx.Context, tr *treatment.Treatment, action treatment.Action, extra map[string]any) error {
	from, to, ok := treatment.TreatmentTransition(action)
	if !ok {
		return ValidationError(fmt.Sprintf("unknown treatment action %q", action))
	}
	if err := RequireStatusAllowed(tr.Status, from...); err != nil {
		return InvalidStateError(fmt.Sprintf("cannot %s treatment in status %q", action, tr.Status))
	}
	updates := map[string]any{"status": string(to), "updated_at": a.now()}
	for k, v := range extra {
		updates[k] = v
	}
	ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, treatmentTable, tr.ID, statusStrings(from), updates)
	if err != nil {
		return err
	}
	if err := RequireCASSuccess(ok, fmt.Sprintf("treatment %d changed concurrently", tr.ID)); err != nil {
		return err
	}
	tr.Status = to
	return nil
}

func (a *treatmentAggregate) Schedule(ctx context.Context, id auth.Identity, treatmentID uint, date time.Time) (*treatment.Treatment, error) {
	const op = "Treatment.Schedule"
	if err := a.configured(op); err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "scheduled_date is required", nil)
	}
	date = date.UTC()
	var tr *treatment.Treatment
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		var err error
		tr, err = a.loadTreatment(dbc, id, treatmentID, ownerAgronomist)
		if err != nil {
			return err
		}
		if err := a.transitionTreatment(dbc, tr, treatment.ActionSchedule, map[string]any{"scheduled_date": date}); err != nil {
			return err
		}
		tr.ScheduledDate = &date
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.audit(op, "treatment_id", tr.ID, "scheduled_date", date)
	return tr, nil
}

func (a *treatmentAggregate) Start(ctx context.Context, id auth.Identity, treatmentID uint) (*treatment.Treatment, error) {
	const op = "Treatment.Start"
	if err := a.configured(op); err != nil {
		return nil, err
	}
	var tr *treatment.Treatment
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		var err error
		tr, err = a.loadTreatment(dbc, id, treatmentID, ownerAgronomist)
		if err != nil {
			return err
		}
		return a.transitionTreatment(dbc, tr, treatment.ActionStart, nil)
	})
	if err != nil {
		return nil, err
	}
	a.audit(op, "treatment_id", tr.ID, "to", tr.Status)
	return tr, nil
}

// Complete only overwrites type and notes when the caller supplied them.
func (a *treatmentAggregate) Complete(ctx context.Context, in domainagg.CompleteInput) (*treatment.Treatment, error) {
	const op = "Treatment.Complete"
	if err := a.configured(op); err != nil {
		return nil, err
	}
	kind := strings.TrimSpace(in.TreatmentType)
	notes := strings.TrimSpace(in.Notes)
	var tr *treatment.Treatment
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		var err error
		tr, err = a.loadTreatment(dbc, in.Identity, in.TreatmentID, ownerAgronomist)
		if err != nil {
			return err
		}
		now := a.now()
		extra := map[string]any{"completed_date": now}
		if kind != "" {
			extra["treatment_type"] = kind
		}
		if notes != "" {
			extra["notes"] = notes
		}
		if err := a.transitionTreatment(dbc, tr, treatment.ActionComplete, extra); err != nil {
			return err
		}
		tr.CompletedDate = &now
		if kind != "" {
			tr.TreatmentType = kind
		}
		if notes != "" {
			tr.Notes = notes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.audit(op, "treatment_id", tr.ID, "to", tr.Status)
	return tr, nil
}

// Verify records the after value, computes the improvement and closes the
// request. Treatment and request move together or not at all.
func (a *treatmentAggregate) Verify(ctx context.Context, id auth.Identity, treatmentID uint, after float64) (domainagg.VerifyResult, error) {
	const op = "Treatment.Verify"
	var out domainagg.VerifyResult
	if err := a.configured(op); err != nil {
		return out, err
	}
	if !validIndex(after) {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "after index must be within [-1, 1]", nil)
	}
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		tr, err := a.loadTreatment(dbc, id, treatmentID, ownerAgronomist)
		if err != nil {
			return err
		}
		req := tr.Request
		if err := RequireStatusAllowed(req.Status, treatment.RequestAccepted); err != nil {
			return InvalidStateError(fmt.Sprintf("cannot verify treatment whose request is %q", req.Status))
		}
		cmp := treatment.Compare(req.BeforeIndex, after)
		if err := a.transitionTreatment(dbc, tr, treatment.ActionVerify, map[string]any{
			"after_ndvi_value":       after,
			"improvement_percentage": cmp.ImprovementPercentage,
			"agronomist_confirmed":   true,
		}); err != nil {
			return err
		}
		if err := a.transitionRequest(dbc, req, treatment.ActionVerify, nil); err != nil {
			return err
		}
		tr.AfterIndex = &after
		pct := cmp.ImprovementPercentage
		tr.ImprovementPercentage = &pct
		tr.AgronomistConfirmed = true
		out = domainagg.VerifyResult{Treatment: tr, Request: req, Comparison: cmp}
		return nil
	})
	if err != nil {
		return domainagg.VerifyResult{}, err
	}
	a.audit(op,
		"treatment_id", out.Treatment.ID,
		"request_id", out.Request.ID,
		"improvement_percentage", out.Comparison.ImprovementPercentage,
		"effective", out.Comparison.IsEffective,
	)
	return out, nil
}

// FarmerConfirm sets the farmer flag in any treatment status.
func (a *treatmentAggregate) FarmerConfirm(ctx context.Context, id auth.Identity, treatmentID uint) (*treatment.Treatment, error) {
	const op = "Treatment.FarmerConfirm"
	if err := a.configured(op); err != nil {
		return nil, err
	}
	var tr *treatment.Treatment
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		var err error
		tr, err = a.loadTreatment(dbc, id, treatmentID, ownerFarmer)
		if err != nil {
			return err
		}
		ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, treatmentTable, tr.ID, statusStrings([]treatment.Status{
			treatment.StatusScheduled,
			treatment.StatusInProgress,
			treatment.StatusCompleted,
			treatment.StatusVerified,
		}), map[string]any{"farmer_confirmed": true, "updated_at": a.now()})
		if err != nil {
			return err
		}
		if !ok {
			return NotFoundError(fmt.Sprintf("treatment %d not found", treatmentID))
		}
		tr.FarmerConfirmed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.audit(op, "treatment_id", tr.ID)
	return tr, nil
}

func validIndex(v float64) bool {
	return !math.IsNaN(v) && v >= -1 && v <= 1
}
