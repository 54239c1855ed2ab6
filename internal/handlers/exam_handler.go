package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/maktabhub/assessment-service/internal/repositories"
	"github.com/maktabhub/assessment-service/internal/services"
	"github.com/maktabhub/assessment-service/internal/utils"
	"github.com/maktabhub/assessment-service/internal/validator"
)

type ExamHandler struct {
	BaseHandler
	examService   services.ExamService
	reportService services.ReportService
	validator     *validator.Validator
}

func NewExamHandler(
	examService services.ExamService,
	reportService services.ReportService,
	validator *validator.Validator,
	logger utils.Logger,
) *ExamHandler {
	return &ExamHandler{
		BaseHandler:   NewBaseHandler(logger),
		examService:   examService,
		reportService: reportService,
		validator:     validator,
	}
}

// CreateExam creates a new exam
// @Summary Create exam
// @Description Creates a new exam with its embedded question set
// @Tags exams
// @Accept json
// @Produce json
// @Param exam body services.CreateExamRequest true "Exam data"
// @Success 201 {object} services.ExamResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /exams [post]
func (h *ExamHandler) CreateExam(c *gin.Context) {
	h.LogRequest(c, "Creating exam")

	requester, ok := GetRequesterFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	var req services.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), &req, requester)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, exam)
}

// GetExam returns an exam with its answer keys. Staff only.
// @Summary Get exam
// @Tags exams
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {object} services.ExamResponse
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id} [get]
func (h *ExamHandler) GetExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	requester, ok := GetRequesterFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), id, requester)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// UpdateExam partially updates an exam
// @Summary Update exam
// @Tags exams
// @Accept json
// @Produce json
// @Param id path uint true "Exam ID"
// @Param exam body services.UpdateExamRequest true "Fields to update"
// @Success 200 {object} services.ExamResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /exams/{id} [put]
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Updating exam", "exam_id", id)

	requester, ok := GetRequesterFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	var req services.UpdateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	exam, err := h.examService.Update(c.Request.Context(), id, &req, requester)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// DeleteExam deletes an exam without submitted attempts
// @Summary Delete exam
// @Tags exams
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /exams/{id} [delete]
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting exam", "exam_id", id)

	requester, ok := GetRequesterFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	if err := h.examService.Delete(c.Request.Context(), id, requester); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Exam deleted"})
}

// ListExams lists the institution's exams. Staff only.
// @Summary List exams
// @Tags exams
// @Produce json
// @Success 200 {object} services.ExamListResponse
// @Router /exams [get]
func (h *ExamHandler) ListExams(c *gin.Context) {
	requester, ok := GetRequesterFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	filters := h.parseExamFilters(c)

	exams, err := h.examService.List(c.Request.Context(), filters, requester)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exams)
}

// ListAvailableExams lists open exams for the calling candidate, with answer
// keys stripped.
// @Summary List available exams
// @Tags exams
// @Produce json
// @Success 200 {array} services.AvailableExamResponse
// @Router /exams/available [get]
func (h *ExamHandler) ListAvailableExams(c *gin.Context) {
	requester, ok := GetRequesterFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	exams, err := h.examService.ListAvailable(c.Request.Context(), requester)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exams)
}

// GetExamStats returns attempt statistics for an exam. Creator only.
// @Summary Get exam statistics
// @Tags exams
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {object} repositories.ExamAttemptStats
// @Router /exams/{id}/stats [get]
func (h *ExamHandler) GetExamStats(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	requester, ok := GetRequesterFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	stats, err := h.examService.GetStats(c.Request.Context(), id, requester)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportExamAttempts streams an xlsx workbook of all attempts. Creator only.
// @Summary Export exam attempts
// @Tags exams
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Exam ID"
// @Success 200 {file} binary
// @Router /exams/{id}/export [get]
func (h *ExamHandler) ExportExamAttempts(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Exporting exam attempts", "exam_id", id)

	requester, ok := GetRequesterFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	file, err := h.reportService.ExportExamAttempts(c.Request.Context(), id, requester)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("exam-%d-attempts-%s.xlsx", id, time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := file.Write(c.Writer); err != nil {
		utils.LoggerFromContext(c, h.logger).Error("Failed to stream workbook", "error", err)
	}
}

func (h *ExamHandler) parseExamFilters(c *gin.Context) repositories.ExamFilters {
	var filters repositories.ExamFilters

	if subject := c.Query("subject"); subject != "" {
		filters.Subject = &subject
	}
	if group := c.Query("group"); group != "" {
		filters.Group = &group
	}
	if createdBy := c.Query("created_by"); createdBy != "" {
		filters.CreatedBy = &createdBy
	}
	if rawActive := c.Query("is_active"); rawActive != "" {
		if isActive, err := strconv.ParseBool(rawActive); err == nil {
			filters.IsActive = &isActive
		}
	}
	if rawFrom := c.Query("date_from"); rawFrom != "" {
		if from, err := time.Parse(time.RFC3339, rawFrom); err == nil {
			filters.DateFrom = &from
		}
	}
	if rawTo := c.Query("date_to"); rawTo != "" {
		if to, err := time.Parse(time.RFC3339, rawTo); err == nil {
			filters.DateTo = &to
		}
	}

	filters.Limit, filters.Offset = h.parsePagination(c)
	filters.SortBy = c.Query("sort_by")
	filters.SortOrder = c.Query("sort_order")

	return filters
}
