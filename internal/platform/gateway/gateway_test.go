package gateway

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/mjqueue/internal/events"
)

type collector struct {
	mu     sync.Mutex
	events []*events.MessageEvent
}

func (c *collector) EmitEvent(_ context.Context, e *events.MessageEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *collector) snapshot() []*events.MessageEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*events.MessageEvent(nil), c.events...)
}

func TestFrameEvent(t *testing.T) {
	e, ok := Frame{Type: FrameMessageUpdate, Data: FrameMessage{ID: "1", Content: "<#a#> (5%)"}}.Event()
	require.True(t, ok)
	assert.Equal(t, events.MessageEdited, e.Kind)
	assert.Equal(t, "1", e.MessageID)

	_, ok = Frame{Type: "typing_start"}.Event()
	assert.False(t, ok)
}

func TestListener_ForwardsFrames(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		frames := []string{
			`{"type":"message_create","data":{"id":"m1","content":"<#abc#>cat","attachments":[{"filename":"a_H.png","url":"https://cdn/a_H.png"}]}}`,
			`{"type":"typing_start","data":{}}`,
			`not json`,
			`{"type":"message_update","data":{"id":"m2","content":"<#abc#> (42%)"}}`,
		}
		for _, f := range frames {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(f))
		}
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := &collector{}
	l := New(Config{URL: "ws" + strings.TrimPrefix(srv.URL, "http"), Token: "tok"},
		c, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(c.snapshot()) == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	got := c.snapshot()
	assert.Equal(t, "tok", gotAuth)
	assert.Equal(t, events.MessageCreated, got[0].Kind)
	assert.Equal(t, "a_H.png", got[0].Attachments[0].Filename)
	assert.Equal(t, events.MessageEdited, got[1].Kind)
	assert.Equal(t, "<#abc#> (42%)", got[1].Content)
}

func TestListener_StopsWhileDialing(t *testing.T) {
	l := New(Config{URL: "ws://127.0.0.1:1/none", MaxBackoff: 10 * time.Millisecond},
		&collector{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.NoError(t, l.Run(ctx))
}
