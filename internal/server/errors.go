package server

import (
	"net/http"

	"internship-intake/internal/common/errors"
)

// HTTPStatus maps an error to the status code returned for it.
func HTTPStatus(err error) int {
	se, ok := errors.AsStandard(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch se.Code {
	case errors.ErrCodePayloadInvalid:
		return http.StatusBadRequest
	case errors.ErrCodeStepIncomplete,
		errors.ErrCodeCaptchaMismatch,
		errors.ErrCodeIdentityNotReady,
		errors.ErrCodeInvalidDocument,
		errors.ErrCodeInvalidEducation,
		errors.ErrCodeOptionUnavailable,
		errors.ErrCodeSlotOutOfRange,
		errors.ErrCodeDependentFieldUnset:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeCaptchaExhausted:
		return http.StatusTooManyRequests
	case errors.ErrCodeInvalidTransition,
		errors.ErrCodeOperationPending,
		errors.ErrCodeLocationClaimed:
		return http.StatusConflict
	case errors.ErrCodeSessionNotFound:
		return http.StatusNotFound
	case errors.ErrCodeSessionExpired:
		return http.StatusUnauthorized
	case errors.ErrCodeIdentityFailed,
		errors.ErrCodeResumeParseFailed,
		errors.ErrCodeProfileCommitFailed,
		errors.ErrCodePreferenceCommitFailed,
		errors.ErrCodeScoreComputationFailed,
		"EXTERNAL_SERVICE_ERROR":
		return http.StatusBadGateway
	case errors.ErrCodeCacheUnavailable,
		errors.ErrCodeDatabaseConnectionFailed,
		errors.ErrCodeQueryExecutionFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error *errors.StandardError `json:"error"`
}

func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	se := errors.Normalize(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": status,
			"code":   string(se.Code),
			"error":  err.Error(),
		})
	}
	s.jsonResponse(w, status, errorBody{Error: se})
}

func badRequest(details string) error {
	return errors.NewPayloadInvalidError(details)
}
