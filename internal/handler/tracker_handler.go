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

// TrackerHandler exposes the on-demand attendance view.
type TrackerHandler struct {
	tracker *service.TrackerService
	loc     *time.Location
	now     func() time.Time
}

// NewTrackerHandler constructs TrackerHandler.
func NewTrackerHandler(tracker *service.TrackerService, loc *time.Location, now func() time.Time) *TrackerHandler {
	if now == nil {
		now = time.Now
	}
	return &TrackerHandler{tracker: tracker, loc: loc, now: now}
}

func (h *TrackerHandler) request(c *gin.Context) (service.TrackerRequest, error) {
	var req service.TrackerRequest
	req.Matricule = strings.TrimSpace(c.Param("matricule"))
	req.Status = c.Query("status")

	from, err := parseDateParam(c.Query("from"), h.loc)
	if err != nil {
		return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid from date")
	}
	to, err := parseDateParam(c.Query("to"), h.loc)
	if err != nil {
		return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid to date")
	}

	now := h.now().In(h.loc)
	if from == nil {
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, h.loc)
		from = &monthStart
	}
	if to == nil {
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
		to = &today
	}
	req.From = *from
	req.To = *to
	return req, nil
}

// Track godoc
// @Summary Live attendance for one student
// @Tags Tracker
// @Produce json
// @Param X-Tenant-ID header string true "Establishment id"
// @Param matricule path string true "Student matricule"
// @Param from query string false "Start date (YYYY-MM-DD, default first of month)"
// @Param to query string false "End date (YYYY-MM-DD, default today)"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /tracker/students/{matricule} [get]
func (h *TrackerHandler) Track(c *gin.Context) {
	req, err := h.request(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.tracker.Track(c.Request.Context(), middleware.TenantID(c), req, h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Export godoc
// @Summary Export a student's attendance as CSV or PDF
// @Tags Tracker
// @Produce octet-stream
// @Param X-Tenant-ID header string true "Establishment id"
// @Param matricule query string true "Student matricule"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} binary
// @Router /tracker/export [get]
func (h *TrackerHandler) Export(c *gin.Context) {
	var req service.TrackerRequest
	req.Matricule = strings.TrimSpace(c.Query("matricule"))
	req.Status = c.Query("status")

	from, err := parseDateParam(c.Query("from"), h.loc)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid from date"))
		return
	}
	to, err := parseDateParam(c.Query("to"), h.loc)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid to date"))
		return
	}

	now := h.now().In(h.loc)
	if from == nil {
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, h.loc)
		from = &monthStart
	}
	if to == nil {
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
		to = &today
	}
	req.From = *from
	req.To = *to

	format := c.DefaultQuery("format", "csv")
	payload, contentType, err := h.tracker.Export(c.Request.Context(), middleware.TenantID(c), req, h.now(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := "attendance_" + req.Matricule + "." + format
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, payload)
}
