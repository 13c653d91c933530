// Package gateway subscribes to the chat gateway sidecar's event stream over
// a websocket and forwards message events to an events.EventEmitter.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"

	"github.com/phrazzld/mjqueue/internal/events"
	"github.com/phrazzld/mjqueue/internal/redact"
)

// Frame types sent by the sidecar.
const (
	FrameMessageCreate = "message_create"
	FrameMessageUpdate = "message_update"
)

// Frame is one websocket message from the sidecar.
type Frame struct {
	Type string       `json:"type"`
	Data FrameMessage `json:"data"`
}

// FrameMessage is the chat message carried by a frame.
type FrameMessage struct {
	ID          string              `json:"id"`
	Content     string              `json:"content"`
	Attachments []events.Attachment `json:"attachments"`
}

// Event converts the frame to a message event. ok is false for frame types
// that carry no message.
func (f Frame) Event() (*events.MessageEvent, bool) {
	var kind events.MessageKind
	switch f.Type {
	case FrameMessageCreate:
		kind = events.MessageCreated
	case FrameMessageUpdate:
		kind = events.MessageEdited
	default:
		return nil, false
	}
	return events.NewMessageEvent(kind, f.Data.ID, f.Data.Content, f.Data.Attachments), true
}

// Config holds configuration for the gateway listener.
type Config struct {
	URL   string
	Token string

	// MaxBackoff caps the delay between reconnect attempts.
	MaxBackoff time.Duration
}

// Listener keeps a websocket subscription open and emits every message frame.
type Listener struct {
	cfg     Config
	emitter events.EventEmitter
	dialer  *websocket.Dialer
	logger  *slog.Logger
}

// New creates a gateway listener.
func New(cfg Config, emitter events.EventEmitter, logger *slog.Logger) *Listener {
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &Listener{
		cfg:     cfg,
		emitter: emitter,
		dialer:  websocket.DefaultDialer,
		logger:  logger.With("component", "gateway_listener"),
	}
}

// Run connects and processes frames until ctx is canceled, reconnecting with
// exponential backoff whenever the connection drops.
func (l *Listener) Run(ctx context.Context) error {
	for {
		conn, err := l.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		err = l.read(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		l.logger.Warn("gateway connection lost, reconnecting", "error", redact.Error(err))
	}
}

func (l *Listener) connect(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if l.cfg.Token != "" {
		header.Set("Authorization", l.cfg.Token)
	}

	backoff := retry.WithCappedDuration(l.cfg.MaxBackoff, retry.NewExponential(500*time.Millisecond))
	var conn *websocket.Conn
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		c, _, err := l.dialer.DialContext(ctx, l.cfg.URL, header)
		if err != nil {
			l.logger.Warn("gateway dial failed", "error", redact.Error(err))
			return retry.RetryableError(err)
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to gateway: %w", err)
	}
	l.logger.Info("connected to gateway")
	return conn, nil
}

func (l *Listener) read(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			l.logger.Warn("dropping malformed gateway frame", "error", err)
			continue
		}
		event, ok := frame.Event()
		if !ok {
			continue
		}
		if err := l.emitter.EmitEvent(ctx, event); err != nil && !errors.Is(err, events.ErrInvalidEvent) {
			l.logger.Error("failed to handle gateway event",
				"message_id", event.MessageID,
				"error", err)
		}
	}
}
