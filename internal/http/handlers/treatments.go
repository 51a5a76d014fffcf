package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/fieldcare/fieldcare-backend/internal/http/response"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
	"github.com/fieldcare/fieldcare-backend/internal/services"
)

type TreatmentHandler struct {
	log      *logger.Logger
	workflow services.WorkflowService
}

func NewTreatmentHandler(log *logger.Logger, workflow services.WorkflowService) *TreatmentHandler {
	return &TreatmentHandler{log: log.With("handler", "TreatmentHandler"), workflow: workflow}
}

type scheduleBody struct {
	ScheduledDate string `json:"scheduled_date" binding:"required"`
}

type completeBody struct {
	TreatmentType string `json:"treatment_type" binding:"max=200"`
	Notes         string `json:"notes" binding:"max=4000"`
}

type verifyBody struct {
	AfterIndex *float64 `json:"after_ndvi_value" binding:"omitempty,ndvi"`
}

// GET /api/treatments
func (h *TreatmentHandler) List(c *gin.Context) {
	rows, err := h.workflow.ListTreatments(c.Request.Context(), identity(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, rows)
}

// GET /api/treatments/:id
func (h *TreatmentHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	row, err := h.workflow.GetTreatment(c.Request.Context(), identity(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, row)
}

// PUT /api/treatments/:id/schedule
func (h *TreatmentHandler) Schedule(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var body scheduleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondErr(c, bindError(err))
		return
	}
	date, err := parseDate(body.ScheduledDate)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	tr, err := h.workflow.Schedule(c.Request.Context(), identity(c), id, *date)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, tr)
}

// PUT /api/treatments/:id/start
func (h *TreatmentHandler) Start(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	tr, err := h.workflow.Start(c.Request.Context(), identity(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, tr)
}

// PUT /api/treatments/:id/complete
func (h *TreatmentHandler) Complete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var body completeBody
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.RespondErr(c, bindError(err))
			return
		}
	}
	tr, err := h.workflow.Complete(c.Request.Context(), identity(c), id, services.CompleteRequest{
		TreatmentType: body.TreatmentType,
		Notes:         body.Notes,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, tr)
}

// PUT /api/treatments/:id/verify
func (h *TreatmentHandler) Verify(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var body verifyBody
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.RespondErr(c, bindError(err))
			return
		}
	}
	res, err := h.workflow.Verify(c.Request.Context(), identity(c), id, body.AfterIndex)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"treatment": res.Treatment, "request": res.Request, "comparison": res.Comparison})
}

// PUT /api/treatments/:id/farmer-confirm
func (h *TreatmentHandler) FarmerConfirm(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	tr, err := h.workflow.FarmerConfirm(c.Request.Context(), identity(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, tr)
}
