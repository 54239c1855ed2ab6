package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/maktabhub/assessment-service/internal/models"
	"github.com/maktabhub/assessment-service/internal/repositories"
	"github.com/maktabhub/assessment-service/internal/utils"
	"github.com/maktabhub/assessment-service/internal/validator"
)

// StudentHandler manages the institution's student roster. Candidates resolve
// against this roster when starting attempts and submitting quizzes.
type StudentHandler struct {
	BaseHandler
	studentRepo repositories.StudentRepository
	validator   *validator.Validator
}

func NewStudentHandler(studentRepo repositories.StudentRepository, validator *validator.Validator, logger utils.Logger) *StudentHandler {
	return &StudentHandler{
		BaseHandler: NewBaseHandler(logger),
		studentRepo: studentRepo,
		validator:   validator,
	}
}

// CreateStudent enrolls a student in the institution's roster
// @Summary Enroll student
// @Tags students
// @Accept json
// @Produce json
// @Param student body validator.StudentCreateRequest true "Student data"
// @Success 201 {object} models.Student
// @Failure 400 {object} ErrorResponse
// @Router /students [post]
func (h *StudentHandler) CreateStudent(c *gin.Context) {
	h.LogRequest(c, "Enrolling student")

	requester, ok := GetRequesterFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	var req validator.StudentCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
		return
	}

	student := &models.Student{
		InstitutionID: requester.InstitutionID,
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		StudentCode:   req.StudentCode,
		Group:         req.Group,
		Department:    req.Department,
		IsActive:      true,
	}

	if err := h.studentRepo.Create(c.Request.Context(), nil, student); err != nil {
		h.LogError(c, err, "Failed to enroll student")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Failed to enroll student",
		})
		return
	}

	c.JSON(http.StatusCreated, student)
}

// GetStudent returns a roster entry
// @Summary Get student
// @Tags students
// @Produce json
// @Param id path uint true "Student ID"
// @Success 200 {object} models.Student
// @Failure 404 {object} ErrorResponse
// @Router /students/{id} [get]
func (h *StudentHandler) GetStudent(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	requester, ok := GetRequesterFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	student, err := h.studentRepo.GetByID(c.Request.Context(), nil, id)
	if err != nil || student.InstitutionID != requester.InstitutionID {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Student not found"})
		return
	}

	c.JSON(http.StatusOK, student)
}

// UpdateStudent partially updates a roster entry
// @Summary Update student
// @Tags students
// @Accept json
// @Produce json
// @Param id path uint true "Student ID"
// @Param student body validator.StudentUpdateRequest true "Fields to update"
// @Success 200 {object} models.Student
// @Failure 404 {object} ErrorResponse
// @Router /students/{id} [put]
func (h *StudentHandler) UpdateStudent(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Updating student", "student_id", id)

	requester, ok := GetRequesterFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	var req validator.StudentUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
		return
	}

	student, err := h.studentRepo.GetByID(c.Request.Context(), nil, id)
	if err != nil || student.InstitutionID != requester.InstitutionID {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Student not found"})
		return
	}

	if req.Email != nil {
		student.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.FirstName != nil {
		student.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		student.LastName = *req.LastName
	}
	if req.StudentCode != nil {
		student.StudentCode = *req.StudentCode
	}
	if req.Group != nil {
		student.Group = *req.Group
	}
	if req.Department != nil {
		student.Department = *req.Department
	}
	if req.IsActive != nil {
		student.IsActive = *req.IsActive
	}

	if err := h.studentRepo.Update(c.Request.Context(), nil, student); err != nil {
		h.LogError(c, err, "Failed to update student")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Failed to update student",
		})
		return
	}

	c.JSON(http.StatusOK, student)
}

// ListStudents lists the institution's roster
// @Summary List students
// @Tags students
// @Produce json
// @Param group query string false "Filter by group"
// @Param department query string false "Filter by department"
// @Param q query string false "Search by name, email or code"
// @Success 200 {object} map[string]interface{}
// @Router /students [get]
func (h *StudentHandler) ListStudents(c *gin.Context) {
	requester, ok := GetRequesterFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	var filters repositories.StudentFilters
	if group := c.Query("group"); group != "" {
		filters.Group = &group
	}
	if department := c.Query("department"); department != "" {
		filters.Department = &department
	}
	if rawActive := c.Query("is_active"); rawActive != "" {
		if isActive, err := strconv.ParseBool(rawActive); err == nil {
			filters.IsActive = &isActive
		}
	}
	filters.Query = c.Query("q")
	filters.Limit, filters.Offset = h.parsePagination(c)

	students, total, err := h.studentRepo.List(c.Request.Context(), nil, requester.InstitutionID, filters)
	if err != nil {
		h.LogError(c, err, "Failed to list students")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Failed to list students",
		})
		return
	}

	page := (filters.Offset / max(filters.Limit, 1)) + 1

	c.JSON(http.StatusOK, map[string]interface{}{
		"students": students,
		"total":    total,
		"page":     page,
		"size":     filters.Limit,
	})
}

// GetMe returns the calling candidate's own roster entry
// @Summary Get my student record
// @Tags students
// @Produce json
// @Success 200 {object} models.Student
// @Failure 404 {object} ErrorResponse
// @Router /students/me [get]
func (h *StudentHandler) GetMe(c *gin.Context) {
	requester, ok := GetRequesterFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	student, err := h.studentRepo.GetByEmail(c.Request.Context(), nil, requester.InstitutionID, requester.Email)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Candidate record not found for this institution",
		})
		return
	}

	c.JSON(http.StatusOK, student)
}
