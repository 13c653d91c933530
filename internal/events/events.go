package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidEvent is returned when an event is missing required fields.
var ErrInvalidEvent = errors.New("invalid message event")

// MessageKind tells whether a message was newly posted or edited in place.
type MessageKind string

// Message event kinds.
const (
	MessageCreated MessageKind = "created"
	MessageEdited  MessageKind = "edited"
)

// Attachment is a file attached to a chat message.
type Attachment struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// MessageEvent is a chat message observed in the generation channel.
type MessageEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	Kind        MessageKind  `json:"kind"`
	MessageID   string       `json:"message_id"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`

	// ReceivedAt is the timestamp when the event was received
	ReceivedAt time.Time `json:"received_at"`
}

// NewMessageEvent creates a MessageEvent with a fresh ID.
func NewMessageEvent(kind MessageKind, messageID, content string, attachments []Attachment) *MessageEvent {
	return &MessageEvent{
		ID:          uuid.New(),
		Kind:        kind,
		MessageID:   messageID,
		Content:     content,
		Attachments: attachments,
		ReceivedAt:  time.Now(),
	}
}

// Validate checks that the event can be routed.
func (e *MessageEvent) Validate() error {
	switch e.Kind {
	case MessageCreated, MessageEdited:
	default:
		return errors.Join(ErrInvalidEvent, errors.New("unknown kind "+string(e.Kind)))
	}
	if e.MessageID == "" {
		return errors.Join(ErrInvalidEvent, errors.New("message id is required"))
	}
	return nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *MessageEvent) error
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *MessageEvent) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *MessageEvent) error

// HandleEvent implements EventHandler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *MessageEvent) error {
	return f(ctx, event)
}
