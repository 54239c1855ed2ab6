package services

import (
	"errors"
	"fmt"
	"strings"
)

// ===== SENTINEL ERRORS =====

var (
	// Attempt state machine
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrNoActiveAttempt   = errors.New("no active attempt")
	ErrAttemptsExhausted = errors.New("maximum attempts exhausted")
	ErrAttemptNotFound   = errors.New("attempt not found")

	// Assessments
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrInvalidWindow      = errors.New("end time must be after start time")

	// Generic
	ErrForbidden        = errors.New("forbidden")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrValidationFailed = errors.New("validation failed")
)

// ===== ACCESS POLICY ERRORS =====

// AccessReason is the machine-readable denial reason reported by the access
// policy. Clients render each reason distinctly.
type AccessReason string

const (
	AccessNotStarted AccessReason = "NOT_STARTED"
	AccessClosed     AccessReason = "CLOSED"
	AccessNotAllowed AccessReason = "NOT_ALLOWED"
	AccessExcluded   AccessReason = "EXCLUDED"
)

// AccessDeniedError reports an access policy denial with its reason.
type AccessDeniedError struct {
	Reason AccessReason
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied: %s", e.Reason)
}

// Message returns the human-readable denial text for the reason.
func (e *AccessDeniedError) Message() string {
	switch e.Reason {
	case AccessNotStarted:
		return "The exam has not started yet"
	case AccessClosed:
		return "The exam window has closed"
	case AccessNotAllowed:
		return "You are not on the list of allowed students"
	case AccessExcluded:
		return "You have been excluded from this exam"
	default:
		return "Access denied"
	}
}

func NewAccessDeniedError(reason AccessReason) *AccessDeniedError {
	return &AccessDeniedError{Reason: reason}
}

// ===== PERMISSION ERRORS =====

// PermissionError reports an ownership or capability violation.
type PermissionError struct {
	UserID   string
	Resource string
	Action   string
	Reason   string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s: %s", e.UserID, e.Action, e.Resource, e.Reason)
}

func (e *PermissionError) Unwrap() error {
	return ErrForbidden
}

func NewPermissionError(userID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:   userID,
		Resource: resource,
		Action:   action,
		Reason:   reason,
	}
}

// ===== VALIDATION ERRORS =====

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates per-field validation failures.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(ve))
	for i, e := range ve {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// ===== BUSINESS RULE ERRORS =====

// BusinessRuleError reports a domain rule violation that is neither a
// validation nor a permission problem (e.g. deleting an exam with results).
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]interface{}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", e.Rule, e.Message)
}

func NewBusinessRuleError(rule, message string) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message}
}
