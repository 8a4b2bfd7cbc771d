package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus-dsi/pointage-api/internal/middleware"
	"github.com/campus-dsi/pointage-api/internal/service"
	appErrors "github.com/campus-dsi/pointage-api/pkg/errors"
	"github.com/campus-dsi/pointage-api/pkg/response"
)

// AbsenceHandler exposes the persisted attendance ledger.
type AbsenceHandler struct {
	absences *service.AbsenceService
	loc      *time.Location
}

// NewAbsenceHandler constructs AbsenceHandler.
func NewAbsenceHandler(absences *service.AbsenceService, loc *time.Location) *AbsenceHandler {
	return &AbsenceHandler{absences: absences, loc: loc}
}

// List godoc
// @Summary List materialized attendance records
// @Tags Absences
// @Produce json
// @Param X-Tenant-ID header string true "Establishment id"
// @Param matricule query string false "Filter by student"
// @Param type query string false "Filter by session kind (course, exam, makeup)"
// @Param dateFrom query string false "Start date (YYYY-MM-DD)"
// @Param dateTo query string false "End date (YYYY-MM-DD)"
// @Param justified query bool false "Filter by justification state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /absences [get]
func (h *AbsenceHandler) List(c *gin.Context) {
	var req service.ListRequest
	req.Matricule = strings.TrimSpace(c.Query("matricule"))
	req.SessionKind = c.Query("type")
	req.Justified = parseQueryBool(c, "justified")
	req.Page = parseQueryInt(c, "page", 1)
	req.PageSize = parseQueryInt(c, "limit", 50)

	from, err := parseDateParam(c.Query("dateFrom"), h.loc)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid dateFrom"))
		return
	}
	to, err := parseDateParam(c.Query("dateTo"), h.loc)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid dateTo"))
		return
	}
	req.DateFrom = from
	req.DateTo = to

	records, pagination, err := h.absences.List(c.Request.Context(), middleware.TenantID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Summary godoc
// @Summary Aggregate counts per status for one student
// @Tags Absences
// @Produce json
// @Param X-Tenant-ID header string true "Establishment id"
// @Param matricule query string true "Student matricule"
// @Param dateFrom query string false "Start date (YYYY-MM-DD)"
// @Param dateTo query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /absences/summary [get]
func (h *AbsenceHandler) Summary(c *gin.Context) {
	matricule := strings.TrimSpace(c.Query("matricule"))
	if matricule == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "matricule is required"))
		return
	}
	from, err := parseDateParam(c.Query("dateFrom"), h.loc)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid dateFrom"))
		return
	}
	to, err := parseDateParam(c.Query("dateTo"), h.loc)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid dateTo"))
		return
	}

	summary, err := h.absences.Summary(c.Request.Context(), middleware.TenantID(c), matricule, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Justify godoc
// @Summary Attach or clear a justification on a record
// @Tags Absences
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Establishment id"
// @Param id path string true "Record id"
// @Param payload body service.JustifyRequest true "Justification payload"
// @Success 200 {object} response.Envelope
// @Router /absences/{id}/justification [patch]
func (h *AbsenceHandler) Justify(c *gin.Context) {
	var req service.JustifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.absences.Justify(c.Request.Context(), middleware.TenantID(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}
