package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

type ErrorCode string

const (
	ErrCodeStepIncomplete    ErrorCode = "STEP_INCOMPLETE"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeOperationPending  ErrorCode = "OPERATION_PENDING"
	ErrCodeCaptchaMismatch   ErrorCode = "CAPTCHA_MISMATCH"
	ErrCodeCaptchaExhausted  ErrorCode = "CAPTCHA_EXHAUSTED"
	ErrCodeIdentityNotReady  ErrorCode = "IDENTITY_NOT_READY"
	ErrCodeIdentityFailed    ErrorCode = "IDENTITY_VERIFICATION_FAILED"
	ErrCodeResumeParseFailed ErrorCode = "RESUME_PARSE_FAILED"
	ErrCodeInvalidDocument   ErrorCode = "INVALID_DOCUMENT"
	ErrCodeInvalidEducation  ErrorCode = "INVALID_EDUCATION_BLOCK"

	ErrCodeProfileCommitFailed    ErrorCode = "PROFILE_COMMIT_FAILED"
	ErrCodePreferenceCommitFailed ErrorCode = "PREFERENCE_COMMIT_FAILED"
	ErrCodeScoreComputationFailed ErrorCode = "SCORE_COMPUTATION_FAILED"
	ErrCodePayloadInvalid         ErrorCode = "PAYLOAD_INVALID"

	ErrCodeLocationClaimed     ErrorCode = "LOCATION_CLAIMED"
	ErrCodeOptionUnavailable   ErrorCode = "OPTION_UNAVAILABLE"
	ErrCodeSlotOutOfRange      ErrorCode = "SLOT_OUT_OF_RANGE"
	ErrCodeDependentFieldUnset ErrorCode = "DEPENDENT_FIELD_UNSET"

	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionExpired  ErrorCode = "SESSION_EXPIRED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeCacheUnavailable         ErrorCode = "CACHE_UNAVAILABLE"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

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
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches any StandardError carrying the same code, so callers can test
// with errors.Is(err, &StandardError{Code: ...}).
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

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

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Wizard

func NewStepIncompleteError(step string, missing []string) *StandardError {
	e := newError(ErrCodeStepIncomplete, fmt.Sprintf("Step %s is incomplete", step),
		"missing: "+strings.Join(missing, ", "), false, nil)
	return e.WithMetadata("step", step).WithMetadata("missing", missing)
}

func NewInvalidTransitionError(from, action string) *StandardError {
	return newError(ErrCodeInvalidTransition, "Transition not allowed",
		fmt.Sprintf("step: %s, action: %s", from, action), false, nil)
}

func NewOperationPendingError() *StandardError {
	return newError(ErrCodeOperationPending, "Another operation is in flight",
		"retry once the pending request resolves", true, nil)
}

func NewCaptchaMismatchError(attemptsLeft int) *StandardError {
	e := newError(ErrCodeCaptchaMismatch, "CAPTCHA does not match",
		fmt.Sprintf("attemptsLeft: %d", attemptsLeft), false, nil)
	return e.WithMetadata("attemptsLeft", attemptsLeft)
}

func NewCaptchaExhaustedError() *StandardError {
	return newError(ErrCodeCaptchaExhausted, "CAPTCHA attempts exhausted",
		"a new challenge has been issued", false, nil)
}

func NewIdentityNotReadyError(details string) *StandardError {
	return newError(ErrCodeIdentityNotReady, "Identity step not ready for OTP", details, false, nil)
}

func NewIdentityVerificationFailedError(operation string, err error) *StandardError {
	return newError(ErrCodeIdentityFailed, "Identity verification service error",
		fmt.Sprintf("operation: %s, error: %s", operation, causeText(err)), true, err)
}

func NewResumeParseFailedError(err error) *StandardError {
	return newError(ErrCodeResumeParseFailed, "Resume parsing failed", causeText(err), true, err)
}

func NewInvalidDocumentError(details string) *StandardError {
	return newError(ErrCodeInvalidDocument, "Invalid document", details, false, nil)
}

func NewInvalidEducationBlockError(details string) *StandardError {
	return newError(ErrCodeInvalidEducation, "Invalid education block", details, false, nil)
}

// Submission

func NewProfileCommitFailedError(err error) *StandardError {
	return newError(ErrCodeProfileCommitFailed, "Profile commit failed", causeText(err), true, err)
}

func NewPreferenceCommitFailedError(profileID string, err error) *StandardError {
	e := newError(ErrCodePreferenceCommitFailed, "Preference commit failed after profile was saved",
		causeText(err), true, err)
	return e.WithMetadata("profileId", profileID)
}

func NewScoreComputationFailedError(err error) *StandardError {
	return newError(ErrCodeScoreComputationFailed, "Score computation failed", causeText(err), true, err)
}

func NewPayloadInvalidError(details string) *StandardError {
	return newError(ErrCodePayloadInvalid, "Request payload failed schema validation", details, false, nil)
}

// Preferences

func NewLocationClaimedError(slot int, location string) *StandardError {
	e := newError(ErrCodeLocationClaimed, "Location already chosen for this sector and role",
		fmt.Sprintf("slot: %d, location: %s", slot, location), false, nil)
	return e.WithMetadata("slot", slot)
}

func NewOptionUnavailableError(field, value string) *StandardError {
	return newError(ErrCodeOptionUnavailable, "Option is not offered",
		fmt.Sprintf("%s: %s", field, value), false, nil)
}

func NewSlotOutOfRangeError(index int) *StandardError {
	return newError(ErrCodeSlotOutOfRange, "Preference slot out of range",
		fmt.Sprintf("index: %d", index), false, nil)
}

func NewDependentFieldUnsetError(field, parent string) *StandardError {
	return newError(ErrCodeDependentFieldUnset, "Parent selection required",
		fmt.Sprintf("%s requires %s", field, parent), false, nil)
}

// Session

func NewSessionNotFoundError(sessionID string) *StandardError {
	return newError(ErrCodeSessionNotFound, "Session not found",
		fmt.Sprintf("sessionId: %s", sessionID), false, nil)
}

func NewSessionExpiredError(sessionID string) *StandardError {
	return newError(ErrCodeSessionExpired, "Session has expired",
		fmt.Sprintf("sessionId: %s", sessionID), false, nil)
}

// Infrastructure

func NewDatabaseConnectionError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection failed", causeText(err), true, err)
}

func NewQueryExecutionError(query string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Query execution failed",
		fmt.Sprintf("query: %s, error: %s", query, causeText(err)), true, err)
}

func NewCacheUnavailableError(err error) *StandardError {
	return newError(ErrCodeCacheUnavailable, "Cache unavailable", causeText(err), true, err)
}

func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("type: %s, error: %s", notificationType, causeText(err)), true, err)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError("EXTERNAL_SERVICE_ERROR", fmt.Sprintf("External service '%s' error", service),
		causeText(err), true, err)
}

// AsStandard returns the first StandardError in err's chain.
func AsStandard(err error) (*StandardError, bool) {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// HasCode reports whether err's chain carries a StandardError with code.
func HasCode(err error, code ErrorCode) bool {
	se, ok := AsStandard(err)
	return ok && se.Code == code
}

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeProfileCommitFailed:      "PROFILE_COMMIT_FAILED",
	ErrCodePreferenceCommitFailed:   "PREFERENCE_COMMIT_FAILED",
	ErrCodePayloadInvalid:           "SUBMISSION_PAYLOAD_INVALID",
	ErrCodeSessionNotFound:          "SESSION_NOT_FOUND",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:     "QUERY_EXECUTION_FAILED",
	ErrCodeNotificationSendFailed:   "NOTIFICATION_SEND_FAILED",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeProfileCommitFailed,
		ErrCodePreferenceCommitFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeNotificationSendFailed:
		return 3
	case ErrCodeIdentityFailed, ErrCodeResumeParseFailed, ErrCodeCacheUnavailable:
		return 2
	case ErrCodeScoreComputationFailed:
		return 1
	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

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
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "STEP") || strings.Contains(codeStr, "TRANSITION") || strings.Contains(codeStr, "PENDING"):
		return "WIZARD"
	case strings.Contains(codeStr, "CAPTCHA") || strings.Contains(codeStr, "IDENTITY"):
		return "IDENTITY"
	case strings.Contains(codeStr, "COMMIT") || strings.Contains(codeStr, "SCORE") || strings.Contains(codeStr, "PAYLOAD"):
		return "SUBMISSION"
	case strings.Contains(codeStr, "LOCATION") || strings.Contains(codeStr, "OPTION") || strings.Contains(codeStr, "SLOT") || strings.Contains(codeStr, "DEPENDENT"):
		return "PREFERENCE"
	case strings.Contains(codeStr, "SESSION"):
		return "SESSION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "CACHE"):
		return "STORAGE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
