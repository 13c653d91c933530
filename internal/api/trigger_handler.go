package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/phrazzld/mjqueue/internal/api/shared"
	"github.com/phrazzld/mjqueue/internal/domain"
)

// TriggerService is the use-case surface the trigger endpoints call.
type TriggerService interface {
	Generate(ctx context.Context, prompt, imageURL, notifyHook string) (*domain.Task, error)
	Upscale(ctx context.Context, p domain.UpscaleParams, notifyHook string) (*domain.Task, error)
	Vary(ctx context.Context, p domain.VaryParams, notifyHook string) (*domain.Task, error)
	Reset(ctx context.Context, p domain.ResetParams, notifyHook string) (*domain.Task, error)
	Describe(ctx context.Context, p domain.DescribeParams, notifyHook string) (*domain.Task, error)
	Blend(ctx context.Context, p domain.BlendParams, notifyHook string) (*domain.Task, error)
	Details(ctx context.Context, taskID string) (*domain.Task, error)
}

// TriggerHandler serves task submission and lookup.
type TriggerHandler struct {
	svc TriggerService
}

// NewTriggerHandler creates a TriggerHandler.
func NewTriggerHandler(svc TriggerService) *TriggerHandler {
	return &TriggerHandler{svc: svc}
}

// decode reads and validates a request body, writing the error response
// itself when it returns false.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := shared.DecodeJSON(w, r, v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		HandleValidationError(w, r, err)
		return false
	}
	return true
}

func (h *TriggerHandler) respond(w http.ResponseWriter, r *http.Request, t *domain.Task, err error) {
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, TaskResponse{Task: t})
}

// Generate handles POST /trigger/generate.
func (h *TriggerHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.svc.Generate(r.Context(), req.Prompt, req.ImageURL, req.NotifyHook)
	h.respond(w, r, t, err)
}

// Upscale handles POST /trigger/upscale.
func (h *TriggerHandler) Upscale(w http.ResponseWriter, r *http.Request) {
	var req GridRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.svc.Upscale(r.Context(), domain.UpscaleParams{
		MessageID:   req.MessageID,
		Index:       req.Index,
		MessageHash: req.MessageHash,
	}, req.NotifyHook)
	h.respond(w, r, t, err)
}

// Vary handles POST /trigger/vary.
func (h *TriggerHandler) Vary(w http.ResponseWriter, r *http.Request) {
	var req GridRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.svc.Vary(r.Context(), domain.VaryParams{
		MessageID:   req.MessageID,
		Index:       req.Index,
		MessageHash: req.MessageHash,
	}, req.NotifyHook)
	h.respond(w, r, t, err)
}

// Reset handles POST /trigger/reset.
func (h *TriggerHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.svc.Reset(r.Context(), domain.ResetParams{
		MessageID:   req.MessageID,
		MessageHash: req.MessageHash,
	}, req.NotifyHook)
	h.respond(w, r, t, err)
}

// Describe handles POST /trigger/describe.
func (h *TriggerHandler) Describe(w http.ResponseWriter, r *http.Request) {
	var req DescribeRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.svc.Describe(r.Context(), domain.DescribeParams{Image: req.Image.toDomain()}, req.NotifyHook)
	h.respond(w, r, t, err)
}

// Blend handles POST /trigger/blend.
func (h *TriggerHandler) Blend(w http.ResponseWriter, r *http.Request) {
	var req BlendRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.svc.Blend(r.Context(), domain.BlendParams{
		First:  req.First.toDomain(),
		Second: req.Second.toDomain(),
	}, req.NotifyHook)
	h.respond(w, r, t, err)
}

// GetTask handles GET /task/{id}.
func (h *TriggerHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Task ID is required")
		return
	}
	t, err := h.svc.Details(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, TaskResponse{Task: t})
}
