package api

import (
	"errors"
	"net/http"

	"github.com/abhisek/mastery/internal/apperr"
	"github.com/gin-gonic/gin"
)

// APIError is the body of a failed request.
type APIError struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps APIError.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError writes err with the status matching its kind. Errors
// without a kind are internal failures.
func RespondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)

	code := string(kind)
	if code == "" {
		code = "internal"
	}
	body := APIError{
		Message:   err.Error(),
		Code:      code,
		Retryable: apperr.Retryable(err),
	}

	var ic *apperr.InsufficientContentError
	if errors.As(err, &ic) {
		body.Details = ic
	}

	c.Error(err)
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: body})
}

// RespondBadRequest reports a malformed request body or parameter.
func RespondBadRequest(c *gin.Context, err error) {
	c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorEnvelope{Error: APIError{
		Message: err.Error(),
		Code:    "invalid_request",
	}})
}

// RespondOK writes payload as JSON with status 200.
func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidLevel, apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindSessionAlreadyActive, apperr.KindStorageConflict:
		return http.StatusConflict
	case apperr.KindInsufficientContent:
		return http.StatusUnprocessableEntity
	case apperr.KindStorageUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
