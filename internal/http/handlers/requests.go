package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/fieldcare/fieldcare-backend/internal/http/response"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
	"github.com/fieldcare/fieldcare-backend/internal/services"
)

type RequestHandler struct {
	log      *logger.Logger
	workflow services.WorkflowService
}

func NewRequestHandler(log *logger.Logger, workflow services.WorkflowService) *RequestHandler {
	return &RequestHandler{log: log.With("handler", "RequestHandler"), workflow: workflow}
}

type createRequestBody struct {
	FieldID       uint     `json:"field_id" binding:"required,gt=0"`
	Message       string   `json:"message" binding:"required,max=4000"`
	ProposedPrice float64  `json:"proposed_price" binding:"gte=0"`
	BeforeIndex   *float64 `json:"before_ndvi_value" binding:"omitempty,ndvi"`
	HealthIssue   string   `json:"health_issue_description" binding:"max=4000"`
}

// POST /api/requests
func (h *RequestHandler) Create(c *gin.Context) {
	var body createRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondErr(c, bindError(err))
		return
	}
	req, err := h.workflow.Propose(c.Request.Context(), identity(c), services.ProposeRequest{
		FieldID:       body.FieldID,
		Message:       body.Message,
		ProposedPrice: body.ProposedPrice,
		Index:         body.BeforeIndex,
		HealthIssue:   body.HealthIssue,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, req)
}

// GET /api/requests
func (h *RequestHandler) List(c *gin.Context) {
	rows, err := h.workflow.ListRequests(c.Request.Context(), identity(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, rows)
}

// GET /api/requests/:id
func (h *RequestHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	row, err := h.workflow.GetRequest(c.Request.Context(), identity(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, row)
}

// POST /api/requests/:id/accept
func (h *RequestHandler) Accept(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	req, tr, err := h.workflow.Accept(c.Request.Context(), identity(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"request": req, "treatment": tr})
}

// POST /api/requests/:id/reject
func (h *RequestHandler) Reject(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	req, err := h.workflow.Reject(c.Request.Context(), identity(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, req)
}

// DELETE /api/requests/:id
func (h *RequestHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if err := h.workflow.DeleteRequest(c.Request.Context(), identity(c), id); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "request deleted"})
}
