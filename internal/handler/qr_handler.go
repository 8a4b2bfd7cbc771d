package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus-dsi/pointage-api/internal/middleware"
	"github.com/campus-dsi/pointage-api/internal/service"
	appErrors "github.com/campus-dsi/pointage-api/pkg/errors"
	"github.com/campus-dsi/pointage-api/pkg/response"
)

// QRHandler exposes the QR fallback channel for rooms without a reader.
type QRHandler struct {
	qr  *service.QRService
	now func() time.Time
}

// NewQRHandler constructs QRHandler.
func NewQRHandler(qr *service.QRService, now func() time.Time) *QRHandler {
	if now == nil {
		now = time.Now
	}
	return &QRHandler{qr: qr, now: now}
}

// IssueRequest opens a scan window for one session.
type IssueRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// ScanRequest records one student scan against an open window.
type ScanRequest struct {
	Token     string `json:"token" binding:"required"`
	Matricule string `json:"matricule" binding:"required"`
}

// Issue godoc
// @Summary Open a QR scan window for a session
// @Tags QR
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Establishment id"
// @Param payload body handler.IssueRequest true "Session to open"
// @Success 201 {object} response.Envelope
// @Router /qr/sessions [post]
func (h *QRHandler) Issue(c *gin.Context) {
	var req IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, err := h.qr.Issue(c.Request.Context(), middleware.TenantID(c), req.SessionID, h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Scan godoc
// @Summary Record a student scan
// @Tags QR
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Establishment id"
// @Param payload body handler.ScanRequest true "Scan payload"
// @Success 200 {object} response.Envelope
// @Router /qr/scan [post]
func (h *QRHandler) Scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	scan, err := h.qr.Scan(c.Request.Context(), middleware.TenantID(c), req.Token, req.Matricule, h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scan, nil)
}
