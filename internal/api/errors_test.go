package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/mjqueue/internal/domain"
	"github.com/phrazzld/mjqueue/internal/events"
	"github.com/phrazzld/mjqueue/internal/service"
	"github.com/phrazzld/mjqueue/internal/store"
	"github.com/phrazzld/mjqueue/internal/task"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"queue full", task.ErrQueueFull, http.StatusTooManyRequests},
		{"wrapped queue full", fmt.Errorf("submit: %w", task.ErrQueueFull), http.StatusTooManyRequests},
		{"service not found", service.ErrTaskNotFound, http.StatusNotFound},
		{"store not found", store.ErrTaskNotFound, http.StatusNotFound},
		{"invalid request", service.ErrInvalidRequest, http.StatusBadRequest},
		{"banned prompt", service.ErrBannedPrompt, http.StatusBadRequest},
		{"invalid action", domain.ErrInvalidAction, http.StatusBadRequest},
		{"invalid event", events.ErrInvalidEvent, http.StatusBadRequest},
		{"unknown", errors.New("redis down"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Queue is full, please try again later", GetSafeErrorMessage(task.ErrQueueFull))
	assert.Equal(t, "Task not found", GetSafeErrorMessage(store.ErrTaskNotFound))
	assert.Equal(t, "index must be between 1 and 4",
		GetSafeErrorMessage(fmt.Errorf("%w: index must be between 1 and 4", service.ErrInvalidRequest)))
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
	assert.Equal(t, "An unexpected error occurred",
		GetSafeErrorMessage(errors.New("dial tcp 10.0.0.5:6379: refused")), "internal details never leak")
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()

	v := validator.New()
	err := v.Struct(GridRequest{MessageID: "m", MessageHash: "h", Index: 7})
	assert.Equal(t, "Invalid Index: too large", SanitizeValidationError(err))

	err = v.Struct(GenerateRequest{})
	assert.Equal(t, "Invalid Prompt: required field", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("other")))
}
