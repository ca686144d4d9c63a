package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/study-planner-api/internal/dto"
	"github.com/noah-isme/study-planner-api/internal/models"
	"github.com/noah-isme/study-planner-api/internal/service"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
	"github.com/noah-isme/study-planner-api/pkg/response"
)

type studyScheduler interface {
	Generate(ctx context.Context, studentID string, req dto.GenerateStudyScheduleRequest) (*dto.StudyScheduleResponse, error)
	Validate(ctx context.Context, studentID string, req dto.ValidateStudyScheduleRequest) (*dto.ValidateStudyScheduleResponse, error)
	List(ctx context.Context, studentID string, query dto.StudyScheduleQuery) (*dto.StoredScheduleResponse, error)
}

type scheduleExporter interface {
	Export(ctx context.Context, studentID string, query dto.StudyScheduleQuery) (*service.ExportFile, error)
}

// StudyScheduleHandler exposes the study schedule endpoints.
type StudyScheduleHandler struct {
	service  studyScheduler
	exporter scheduleExporter
}

// NewStudyScheduleHandler constructs the handler. exporter may be nil when exports are disabled.
func NewStudyScheduleHandler(svc studyScheduler, exporter scheduleExporter) *StudyScheduleHandler {
	return &StudyScheduleHandler{service: svc, exporter: exporter}
}

// Generate godoc
// @Summary Generate a study schedule
// @Tags StudySchedule
// @Accept json
// @Produce json
// @Param payload body dto.GenerateStudyScheduleRequest true "Generation payload"
// @Param studentId query string false "Student acted on (admins only)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /study-schedule/generate [post]
func (h *StudyScheduleHandler) Generate(c *gin.Context) {
	studentID, err := studentFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.GenerateStudyScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if result.Persisted {
		status = http.StatusCreated
	}
	response.JSON(c, status, result, map[string]interface{}{
		"cached":     result.Cached,
		"source":     result.Source,
		"infeasible": len(result.InfeasibleDeadlineIDs),
	})
}

// Validate godoc
// @Summary Repair a candidate study schedule
// @Tags StudySchedule
// @Accept json
// @Produce json
// @Param payload body dto.ValidateStudyScheduleRequest true "Candidate schedule"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /study-schedule/validate [post]
func (h *StudyScheduleHandler) Validate(c *gin.Context) {
	studentID, err := studentFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ValidateStudyScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	result, err := h.service.Validate(c.Request.Context(), studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, map[string]interface{}{"removed": len(result.Removed)})
}

// List godoc
// @Summary List persisted study sessions
// @Tags StudySchedule
// @Produce json
// @Param from query string false "First date (YYYY-MM-DD)"
// @Param to query string false "Last date, inclusive (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /study-schedule [get]
func (h *StudyScheduleHandler) List(c *gin.Context) {
	studentID, err := studentFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.StudyScheduleQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	result, err := h.service.List(c.Request.Context(), studentID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Export godoc
// @Summary Download persisted study sessions
// @Tags StudySchedule
// @Produce octet-stream
// @Param from query string false "First date (YYYY-MM-DD)"
// @Param to query string false "Last date, inclusive (YYYY-MM-DD)"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /study-schedule/export [get]
func (h *StudyScheduleHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	studentID, err := studentFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.StudyScheduleQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	file, err := h.exporter.Export(c.Request.Context(), studentID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Data)
}

// studentFromContext resolves the student a request acts on. Admins may name
// another student through the studentId query parameter.
func studentFromContext(c *gin.Context) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil || claims.UserID == "" {
		return "", appErrors.ErrUnauthorized
	}
	target := strings.TrimSpace(c.Query("studentId"))
	if target == "" || target == claims.UserID {
		return claims.UserID, nil
	}
	if claims.Role != models.RoleAdmin {
		return "", appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("cannot act on student %s", target))
	}
	return target, nil
}
