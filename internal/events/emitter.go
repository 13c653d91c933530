package events

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
)

type subscription struct {
	handler EventHandler
	kinds   []MessageKind
}

func (s subscription) accepts(kind MessageKind) bool {
	return len(s.kinds) == 0 || slices.Contains(s.kinds, kind)
}

// Router delivers message events to the handlers subscribed to their kind.
// Delivery is synchronous and follows subscription order.
type Router struct {
	mu     sync.RWMutex
	subs   []subscription
	logger *slog.Logger
}

// NewRouter creates a Router with no subscribers.
func NewRouter(logger *slog.Logger) *Router {
	return &Router{logger: logger.With("component", "event_router")}
}

// Subscribe registers handler for the given kinds, or for every kind when
// none are given.
func (r *Router) Subscribe(handler EventHandler, kinds ...MessageKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, subscription{handler: handler, kinds: kinds})
}

// EmitEvent validates event and hands it to every matching subscriber. A
// failing handler does not stop delivery to the rest; all handler errors are
// joined into the returned error.
func (r *Router) EmitEvent(ctx context.Context, event *MessageEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	r.mu.RLock()
	subs := slices.Clone(r.subs)
	r.mu.RUnlock()

	log := r.logger.With("event_id", event.ID, "kind", event.Kind, "message_id", event.MessageID)

	var errs []error
	delivered := 0
	for _, sub := range subs {
		if !sub.accepts(event.Kind) {
			continue
		}
		delivered++
		if err := sub.handler.HandleEvent(ctx, event); err != nil {
			log.ErrorContext(ctx, "event handler failed", "error", err)
			errs = append(errs, err)
		}
	}
	if delivered == 0 {
		log.DebugContext(ctx, "no subscriber for event")
	}
	return errors.Join(errs...)
}
