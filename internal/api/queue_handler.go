package api

import (
	"context"
	"net/http"

	"github.com/phrazzld/mjqueue/internal/api/shared"
	"github.com/phrazzld/mjqueue/internal/events"
	"github.com/phrazzld/mjqueue/internal/task"
)

// QueueInspector reports queue occupancy.
type QueueInspector interface {
	Stats(ctx context.Context) (task.Stats, error)
}

// QueueHandler serves queue introspection and event ingestion.
type QueueHandler struct {
	queue   QueueInspector
	emitter events.EventEmitter
}

// NewQueueHandler creates a QueueHandler.
func NewQueueHandler(queue QueueInspector, emitter events.EventEmitter) *QueueHandler {
	return &QueueHandler{queue: queue, emitter: emitter}
}

// Stats handles GET /queue.
func (h *QueueHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queue.Stats(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to read queue state")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// IngestEvent handles POST /events. Events are processed synchronously so
// the caller can rely on the task state reflecting the event once the
// response arrives.
func (h *QueueHandler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if !decode(w, r, &req) {
		return
	}

	atts := make([]events.Attachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		atts = append(atts, events.Attachment{Filename: a.Filename, URL: a.URL})
	}
	ev := events.NewMessageEvent(events.MessageKind(req.Kind), req.MessageID, req.Content, atts)

	if err := h.emitter.EmitEvent(r.Context(), ev); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
