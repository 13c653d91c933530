package task

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/phrazzld/mjqueue/internal/domain"
	"github.com/phrazzld/mjqueue/internal/events"
)

// Listener correlates chat message events with running tasks and applies the
// matching transition through the queue. It implements events.EventHandler.
type Listener struct {
	queue  *Queue
	logger *slog.Logger
}

// NewListener creates a correlation listener for q.
func NewListener(q *Queue, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		queue:  q,
		logger: logger.With("component", "correlation_listener"),
	}
}

// HandleEvent routes a message event to the created or edited path. Events
// without a marker, or for tasks that are no longer running, are dropped and
// never reported as errors.
func (l *Listener) HandleEvent(ctx context.Context, event *events.MessageEvent) error {
	var err error
	switch event.Kind {
	case events.MessageCreated:
		err = l.onCreated(ctx, event)
	case events.MessageEdited:
		err = l.onEdited(ctx, event)
	default:
		l.logger.Debug("ignoring message event", "kind", event.Kind)
		return nil
	}

	if errors.Is(err, ErrStaleEvent) {
		l.logger.Debug("dropping stale event",
			"message_id", event.MessageID,
			"error", err)
		return nil
	}
	return err
}

func (l *Listener) onCreated(ctx context.Context, event *events.MessageEvent) error {
	taskID := ParseTaskID(event.Content)
	if taskID == "" {
		return nil
	}

	props := map[string]any{domain.PropMessageID: event.MessageID}

	if strings.Contains(event.Content, waitingMarker) || len(event.Attachments) == 0 {
		_, err := l.queue.Transition(ctx, taskID, func(t *domain.Task) error {
			return t.Advance(nil, props)
		})
		return err
	}

	att := event.Attachments[0]
	props[domain.PropMessageHash] = HashFromFilename(att.Filename)
	props[domain.PropAttachment] = att.URL

	task, err := l.queue.Transition(ctx, taskID, func(t *domain.Task) error {
		return t.Succeed(props)
	})
	if err != nil {
		return err
	}
	l.logger.Info("task correlated to result",
		"task_id", task.ID,
		"message_id", event.MessageID,
		"msg_hash", props[domain.PropMessageHash])
	return nil
}

func (l *Listener) onEdited(ctx context.Context, event *events.MessageEvent) error {
	taskID, percent, ok := ParseProgress(event.Content)
	var progress *int
	if ok {
		progress = &percent
	} else {
		taskID = ParseTaskID(event.Content)
	}
	if taskID == "" {
		return nil
	}

	_, err := l.queue.Transition(ctx, taskID, func(t *domain.Task) error {
		return t.Advance(progress, map[string]any{domain.PropMessageID: event.MessageID})
	})
	return err
}
