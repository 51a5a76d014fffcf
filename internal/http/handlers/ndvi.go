package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fieldcare/fieldcare-backend/internal/http/response"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
	"github.com/fieldcare/fieldcare-backend/internal/services"
)

type NDVIHandler struct {
	log         *logger.Logger
	measurement services.MeasurementService
}

func NewNDVIHandler(log *logger.Logger, measurement services.MeasurementService) *NDVIHandler {
	return &NDVIHandler{log: log.With("handler", "NDVIHandler"), measurement: measurement}
}

type batchFetchBody struct {
	FieldIDs []uint `json:"field_ids" binding:"required,min=1,max=200,dive,gt=0"`
	Date     string `json:"date"`
}

// GET /api/ndvi/field/:id?limit=N
func (h *NDVIHandler) History(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, err := h.measurement.History(c.Request.Context(), id, limit)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, rows)
}

// POST /api/ndvi/field/:id/fetch?date=YYYY-MM-DD
func (h *NDVIHandler) Fetch(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	asOf, err := parseDate(c.Query("date"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	res, err := h.measurement.Measure(c.Request.Context(), id, asOf)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, res)
}

// POST /api/ndvi/fetch
func (h *NDVIHandler) FetchBatch(c *gin.Context) {
	var body batchFetchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondErr(c, bindError(err))
		return
	}
	asOf, err := parseDate(body.Date)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	out, err := h.measurement.MeasureMany(c.Request.Context(), body.FieldIDs, asOf)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"results": out})
}

// GET /api/ndvi/map
func (h *NDVIHandler) Map(c *gin.Context) {
	entries, err := h.measurement.Map(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"fields": entries})
}
