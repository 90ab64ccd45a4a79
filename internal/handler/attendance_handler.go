package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ebd-attendance-api/internal/models"
	"github.com/noah-isme/ebd-attendance-api/internal/service"
	appErrors "github.com/noah-isme/ebd-attendance-api/pkg/errors"
	"github.com/noah-isme/ebd-attendance-api/pkg/response"
)

type attendanceService interface {
	RecordPresence(ctx context.Context, req service.RecordPresenceRequest) (*models.PresenceResult, error)
	RecordClassPresence(ctx context.Context, req service.RecordClassPresenceRequest) (*models.ClassPresenceResult, error)
	CountPresent(ctx context.Context, className, rawDate string) (int, error)
	Roster(ctx context.Context, className, rawDate string) (string, []models.RosterEntry, error)
}

// AttendanceHandler exposes presence endpoints.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(svc attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// RecordPresence godoc
// @Summary Mark one student present
// @Description Dates accept DD/MM/YYYY or YYYY-MM-DD and default to today. Repeated marks are ignored.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.RecordPresenceRequest true "Presence payload"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) RecordPresence(c *gin.Context) {
	var req service.RecordPresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.RecordPresence(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	response.JSON(c, status, result)
}

// RecordClassPresence godoc
// @Summary Mark several students of a class present
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.RecordClassPresenceRequest true "Class presence payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/class [post]
func (h *AttendanceHandler) RecordClassPresence(c *gin.Context) {
	var req service.RecordClassPresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.RecordClassPresence(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Count godoc
// @Summary Count students of a class present on a date
// @Tags Attendance
// @Produce json
// @Param class query string true "Class name"
// @Param date query string false "Date (DD/MM/YYYY or YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/count [get]
func (h *AttendanceHandler) Count(c *gin.Context) {
	className := strings.TrimSpace(c.Query("class"))
	count, err := h.service.CountPresent(c.Request.Context(), className, c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"class_name": className, "present": count})
}

// Roster godoc
// @Summary Class roster with presence flags
// @Tags Attendance
// @Produce json
// @Param class query string true "Class name"
// @Param date query string false "Date (DD/MM/YYYY or YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/roster [get]
func (h *AttendanceHandler) Roster(c *gin.Context) {
	date, roster, err := h.service.Roster(c.Request.Context(), c.Query("class"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, map[string]interface{}{"date": date})
}
