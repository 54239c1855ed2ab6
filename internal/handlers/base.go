package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/maktabhub/assessment-service/internal/services"
	"github.com/maktabhub/assessment-service/internal/utils"
)

// BaseHandler carries the pieces every handler needs.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Reason  string      `json:"reason,omitempty"`
}

// SuccessResponse wraps responses that carry no resource body.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// LogRequest logs with the request-scoped logger so request_id is attached.
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.LoggerFromContext(c, h.logger).Info(msg, args...)
}

// LogError logs a handler failure with the request-scoped logger.
func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err)
	utils.LoggerFromContext(c, h.logger).Error(msg, args...)
}

// parseIDParam parses a uint path parameter, writing a 400 and returning 0 on
// failure.
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) uint {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + name + " parameter",
			Details: raw,
		})
		return 0
	}
	return uint(id)
}

// parsePagination reads limit/offset query parameters with sane bounds.
func (h *BaseHandler) parsePagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// handleServiceError translates service errors into HTTP responses.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	logger := utils.LoggerFromContext(c, h.logger)

	var validationErrs services.ValidationErrors
	var accessDenied *services.AccessDeniedError
	var permission *services.PermissionError
	var businessRule *services.BusinessRuleError

	switch {
	case errors.As(err, &validationErrs):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrs,
		})

	case errors.Is(err, services.ErrValidationFailed):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})

	case errors.Is(err, services.ErrInvalidWindow):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid exam window",
			Details: err.Error(),
		})

	case errors.As(err, &accessDenied):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: accessDenied.Message(),
			Reason:  string(accessDenied.Reason),
		})

	case errors.As(err, &permission), errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Permission denied",
		})

	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "Unauthorized",
		})

	case errors.Is(err, services.ErrCandidateNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Candidate record not found for this institution",
		})

	case errors.Is(err, services.ErrAssessmentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Assessment not found",
		})

	case errors.Is(err, services.ErrAttemptNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Attempt not found",
		})

	case errors.Is(err, services.ErrNoActiveAttempt):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "No attempt in progress for this exam",
		})

	case errors.Is(err, services.ErrAttemptsExhausted):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Maximum attempts reached for this exam",
		})

	case errors.As(err, &businessRule):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: businessRule.Message,
			Reason:  businessRule.Rule,
		})

	default:
		logger.Error("Unhandled service error", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
