package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/maktabhub/assessment-service/internal/repositories"
	"github.com/maktabhub/assessment-service/internal/services"
	"github.com/maktabhub/assessment-service/internal/utils"
	"github.com/maktabhub/assessment-service/internal/validator"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
	validator      *validator.Validator
}

func NewAttemptHandler(
	attemptService services.AttemptService,
	validator *validator.Validator,
	logger utils.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		validator:      validator,
	}
}

// StartAttempt opens an attempt on an exam, or returns the already-open one
// @Summary Start exam attempt
// @Description Starts a new attempt, or returns the open attempt if one exists
// @Tags attempts
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 201 {object} services.AttemptResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /exams/{id}/start [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	h.LogRequest(c, "Starting exam attempt", "exam_id", examID)

	requester, ok := GetRequesterFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), examID, requester)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// SubmitAttempt grades and closes the open attempt on an exam
// @Summary Submit exam attempt
// @Description Submits answers for the open attempt and returns the graded result
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Exam ID"
// @Param submission body services.SubmitAttemptRequest true "Answers"
// @Success 200 {object} services.AttemptResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /exams/{id}/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	h.LogRequest(c, "Submitting exam attempt", "exam_id", examID)

	requester, ok := GetRequesterFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	var req services.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	attempt, err := h.attemptService.Submit(c.Request.Context(), examID, &req, requester)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// GetAttempt returns a single attempt
// @Summary Get attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.AttemptResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	requester, ok := GetRequesterFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	attempt, err := h.attemptService.GetByID(c.Request.Context(), id, requester)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// ListExamAttempts lists attempts on an exam. The exam's creator sees all
// attempts; candidates see only their own.
// @Summary List exam attempts
// @Tags attempts
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {object} services.AttemptListResponse
// @Router /exams/{id}/attempts [get]
func (h *AttemptHandler) ListExamAttempts(c *gin.Context) {
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	requester, ok := GetRequesterFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	filters := h.parseAttemptFilters(c)

	attempts, err := h.attemptService.ListByExam(c.Request.Context(), examID, filters, requester)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempts)
}

// ListMyAttempts lists the calling candidate's attempts across exams
// @Summary List my attempts
// @Tags attempts
// @Produce json
// @Success 200 {object} services.AttemptListResponse
// @Router /attempts/me [get]
func (h *AttemptHandler) ListMyAttempts(c *gin.Context) {
	requester, ok := GetRequesterFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	filters := h.parseAttemptFilters(c)

	attempts, err := h.attemptService.ListMine(c.Request.Context(), filters, requester)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempts)
}

func (h *AttemptHandler) parseAttemptFilters(c *gin.Context) repositories.AttemptFilters {
	var filters repositories.AttemptFilters

	if rawSubmitted := c.Query("submitted"); rawSubmitted != "" {
		if submitted, err := strconv.ParseBool(rawSubmitted); err == nil {
			filters.Submitted = &submitted
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
