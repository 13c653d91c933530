package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/phrazzld/mjqueue/internal/api/shared"
	"github.com/phrazzld/mjqueue/internal/domain"
	"github.com/phrazzld/mjqueue/internal/events"
	"github.com/phrazzld/mjqueue/internal/service"
	"github.com/phrazzld/mjqueue/internal/store"
	"github.com/phrazzld/mjqueue/internal/task"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking their types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, task.ErrQueueFull):
		return http.StatusTooManyRequests

	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrBannedPrompt),
		errors.Is(err, domain.ErrInvalidAction),
		errors.Is(err, task.ErrInvalidParams),
		errors.Is(err, events.ErrInvalidEvent):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, task.ErrQueueFull):
		return "Queue is full, please try again later"
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return "Task not found"
	case errors.Is(err, service.ErrBannedPrompt):
		return "Prompt contains banned words"
	case errors.Is(err, service.ErrInvalidRequest):
		// Service validation messages name fields only.
		return strings.TrimPrefix(err.Error(), service.ErrInvalidRequest.Error()+": ")
	case errors.Is(err, domain.ErrInvalidAction):
		return "Unsupported action"
	case errors.Is(err, events.ErrInvalidEvent):
		return "Invalid event"
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the mapped status and safe message for err. An
// explicit message overrides the mapped one.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), message, err)
}

// HandleValidationError writes a 400 naming the first invalid field.
func HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
}

// SanitizeValidationError turns validator errors into a short message that
// names the field and the failed rule.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}
	fe := verrs[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), validationTagMessage(fe.Tag()))
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "url":
		return "invalid URL"
	case "min", "gt":
		return "too small"
	case "max", "lt":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
