// Package errors defines the domain error taxonomy and its mapping onto HTTP
// responses and BPMN job outcomes.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Sentinels
// ==========================

// Declines. Callers recover these into a structured "not successful" result.
var (
	ErrNotFound          = stderrors.New("NOT_FOUND")
	ErrConflict          = stderrors.New("CONFLICT")
	ErrUnauthorized      = stderrors.New("UNAUTHORIZED")
	ErrForbidden         = stderrors.New("FORBIDDEN")
	ErrInvalidTransition = stderrors.New("INVALID_TRANSITION")
	ErrLocked            = stderrors.New("TRANSITION_IN_PROGRESS")
	ErrValidation        = stderrors.New("VALIDATION_FAILED")
	ErrSearchDisabled    = stderrors.New("SEARCH_DISABLED")
)

// ErrStoreFault marks persistence failures. It is the only fatal class.
var ErrStoreFault = stderrors.New("STORE_FAULT")

// ==========================
// 2. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeNotFound             ErrorCode = "NOT_FOUND"
	ErrCodeApplicantNotFound    ErrorCode = "APPLICANT_NOT_FOUND"
	ErrCodeConflict             ErrorCode = "CONFLICT"
	ErrCodeDuplicateApplication ErrorCode = "DUPLICATE_APPLICATION"
	ErrCodeUnauthorized         ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden            ErrorCode = "FORBIDDEN"
	ErrCodeInvalidTransition    ErrorCode = "INVALID_TRANSITION"
	ErrCodeTransitionInProgress ErrorCode = "TRANSITION_IN_PROGRESS"
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"

	ErrCodeStoreFault             ErrorCode = "STORE_FAULT"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeSearchDisabled         ErrorCode = "SEARCH_DISABLED"
	ErrCodeSearchQueryFailed      ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeBrokerUnavailable      ErrorCode = "BROKER_UNAVAILABLE"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 3. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Zeebe engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for job fail / throw variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 4. Constructors
// ==========================

func newStandard(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewApplicantNotFoundError is the decline for lifecycle operations on an unknown email.
func NewApplicantNotFoundError(email string) *StandardError {
	return newStandard(ErrCodeApplicantNotFound, "Applicant not found", email, false, ErrNotFound)
}

// NewDuplicateApplicationError is the decline for a second submission on the same email.
func NewDuplicateApplicationError(email string) *StandardError {
	return newStandard(ErrCodeDuplicateApplication, "Application already exists", email, false, ErrConflict)
}

func NewUnauthorizedError(details string) *StandardError {
	return newStandard(ErrCodeUnauthorized, "Invalid credentials", details, false, ErrUnauthorized)
}

func NewInvalidTransitionError(from, action string) *StandardError {
	se := newStandard(ErrCodeInvalidTransition, "Transition not allowed",
		fmt.Sprintf("cannot %s an applicant in status %s", action, from), false, ErrInvalidTransition)
	se.Metadata = map[string]interface{}{"from": from, "action": action}
	return se
}

func NewTransitionInProgressError(email string) *StandardError {
	return newStandard(ErrCodeTransitionInProgress, "Another transition is in progress", email, true, ErrLocked)
}

func NewValidationError(details string) *StandardError {
	return newStandard(ErrCodeValidationFailed, "Validation failed", details, false, ErrValidation)
}

func NewStoreFaultError(op string, err error) *StandardError {
	return newStandard(ErrCodeStoreFault, "Store unavailable", fmt.Sprintf("%s: %v", op, err), true,
		fmt.Errorf("%w: %w", ErrStoreFault, err))
}

func NewNotificationSendFailedError(kind string, err error) *StandardError {
	return newStandard(ErrCodeNotificationSendFailed, "Failed to send notification",
		fmt.Sprintf("%s: %v", kind, err), true, err)
}

// NewBrokerError wraps a failed workflow broker command.
func NewBrokerError(op string, err error) *StandardError {
	return newStandard(ErrCodeBrokerUnavailable, "Workflow broker unavailable",
		fmt.Sprintf("%s: %v", op, err), true, err)
}

// FromError normalizes any error into a StandardError by walking the
// wrapped chain for a known sentinel.
func FromError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var se *StandardError
	if stderrors.As(err, &se) {
		return se
	}
	code := Classify(err)
	return newStandard(code, defaultMessage(code), err.Error(), code == ErrCodeStoreFault, err)
}

// Classify maps an error chain onto an ErrorCode.
func Classify(err error) ErrorCode {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se.Code
	}
	switch {
	case stderrors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	case stderrors.Is(err, ErrConflict):
		return ErrCodeConflict
	case stderrors.Is(err, ErrUnauthorized):
		return ErrCodeUnauthorized
	case stderrors.Is(err, ErrForbidden):
		return ErrCodeForbidden
	case stderrors.Is(err, ErrInvalidTransition):
		return ErrCodeInvalidTransition
	case stderrors.Is(err, ErrLocked):
		return ErrCodeTransitionInProgress
	case stderrors.Is(err, ErrValidation):
		return ErrCodeValidationFailed
	case stderrors.Is(err, ErrSearchDisabled):
		return ErrCodeSearchDisabled
	case stderrors.Is(err, ErrStoreFault):
		return ErrCodeStoreFault
	default:
		return ErrCodeInternal
	}
}

// IsDecline reports whether err is a domain-level decline rather than a fault.
func IsDecline(err error) bool {
	switch Classify(err) {
	case ErrCodeStoreFault, ErrCodeInternal, ErrCodeSearchQueryFailed, ErrCodeBrokerUnavailable:
		return false
	default:
		return true
	}
}

func defaultMessage(code ErrorCode) string {
	switch code {
	case ErrCodeNotFound:
		return "Not found"
	case ErrCodeConflict:
		return "Conflict"
	case ErrCodeUnauthorized:
		return "Invalid credentials"
	case ErrCodeForbidden:
		return "Forbidden"
	case ErrCodeInvalidTransition:
		return "Transition not allowed"
	case ErrCodeTransitionInProgress:
		return "Another transition is in progress"
	case ErrCodeValidationFailed:
		return "Validation failed"
	case ErrCodeSearchDisabled:
		return "Search is disabled"
	case ErrCodeStoreFault:
		return "Store unavailable"
	case ErrCodeBrokerUnavailable:
		return "Workflow broker unavailable"
	default:
		return "Unexpected error"
	}
}

// ==========================
// 5. Mappings
// ==========================

// HTTPStatus maps an ErrorCode onto a response status.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound, ErrCodeApplicantNotFound:
		return http.StatusNotFound
	case ErrCodeConflict, ErrCodeDuplicateApplication, ErrCodeInvalidTransition, ErrCodeTransitionInProgress:
		return http.StatusConflict
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeValidationFailed:
		return http.StatusBadRequest
	case ErrCodeSearchDisabled, ErrCodeBrokerUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStoreFault, ErrCodeNotificationSendFailed, ErrCodeSearchQueryFailed, ErrCodeBrokerUnavailable:
		return 3
	case ErrCodeTransitionInProgress:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "STORE"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "BROKER"):
		return "WORKFLOW"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "UNAUTHORIZED") || strings.Contains(codeStr, "FORBIDDEN"):
		return "AUTH"
	case strings.Contains(codeStr, "TRANSITION"):
		return "LIFECYCLE"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "NOT_FOUND") || strings.Contains(codeStr, "CONFLICT") || strings.Contains(codeStr, "DUPLICATE"):
		return "BUSINESS"
	default:
		return "OTHER"
	}
}
