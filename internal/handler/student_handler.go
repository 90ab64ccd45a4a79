package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ebd-attendance-api/internal/models"
	"github.com/noah-isme/ebd-attendance-api/internal/service"
	appErrors "github.com/noah-isme/ebd-attendance-api/pkg/errors"
	"github.com/noah-isme/ebd-attendance-api/pkg/response"
)

type studentService interface {
	Create(ctx context.Context, req service.CreateStudentRequest) (*models.Student, error)
	Import(ctx context.Context, req service.ImportStudentsRequest) ([]models.Student, error)
	ListByClass(ctx context.Context, className string) ([]models.Student, error)
}

// StudentHandler exposes student registry endpoints.
type StudentHandler struct {
	service studentService
}

// NewStudentHandler constructs a student handler.
func NewStudentHandler(svc studentService) *StudentHandler {
	return &StudentHandler{service: svc}
}

// Create godoc
// @Summary Register student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Import godoc
// @Summary Bulk import students, one name per line
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.ImportStudentsRequest true "Import payload"
// @Success 201 {object} response.Envelope
// @Router /students/import [post]
func (h *StudentHandler) Import(c *gin.Context) {
	var req service.ImportStudentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	students, err := h.service.Import(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, students, map[string]interface{}{"imported": len(students)})
}

// ListByClass godoc
// @Summary List students of a class
// @Tags Students
// @Produce json
// @Param class query string true "Class name"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) ListByClass(c *gin.Context) {
	students, err := h.service.ListByClass(c.Request.Context(), c.Query("class"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students)
}
