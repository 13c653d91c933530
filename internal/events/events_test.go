package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewMessageEvent(t *testing.T) {
	attachments := []Attachment{{Filename: "a_b_HASH.png", URL: "https://cdn/x.png"}}
	event := NewMessageEvent(MessageCreated, "m1", "content", attachments)

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, MessageCreated, event.Kind)
	assert.Equal(t, "m1", event.MessageID)
	assert.Equal(t, attachments, event.Attachments)
	assert.WithinDuration(t, time.Now(), event.ReceivedAt, 2*time.Second)
}

func TestMessageEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   MessageEvent
		wantErr bool
	}{
		{name: "created", event: MessageEvent{Kind: MessageCreated, MessageID: "1"}},
		{name: "edited", event: MessageEvent{Kind: MessageEdited, MessageID: "1"}},
		{name: "unknown kind", event: MessageEvent{Kind: "deleted", MessageID: "1"}, wantErr: true},
		{name: "missing message id", event: MessageEvent{Kind: MessageCreated}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.event.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEvent)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestHandlerFunc(t *testing.T) {
	var got string
	h := HandlerFunc(func(_ context.Context, e *MessageEvent) error {
		got = e.MessageID
		return nil
	})
	assert.NoError(t, h.HandleEvent(context.Background(), &MessageEvent{MessageID: "m9"}))
	assert.Equal(t, "m9", got)
}
