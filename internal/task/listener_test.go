package task_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/mjqueue/internal/domain"
	"github.com/phrazzld/mjqueue/internal/events"
	"github.com/phrazzld/mjqueue/internal/task"
	"github.com/phrazzld/mjqueue/internal/testutils"
)

func newListenerHarness(t *testing.T, concurrency, wait int) (*harness, *task.Listener) {
	t.Helper()
	h := newHarness(t, concurrency, wait)
	return h, task.NewListener(h.queue, testutils.DiscardLogger())
}

func emit(t *testing.T, l *task.Listener, kind events.MessageKind, content string, atts ...events.Attachment) {
	t.Helper()
	require.NoError(t, l.HandleEvent(context.Background(), events.NewMessageEvent(kind, "msg-1", content, atts)))
}

func TestListener_ProgressEdit(t *testing.T) {
	t.Parallel()
	h, l := newListenerHarness(t, 1, 1)
	require.NoError(t, h.submit(t, "abc123"))

	emit(t, l, events.MessageEdited, "<#abc123#> (42%)")

	tk, err := h.store.Get(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, tk.Status)
	assert.Equal(t, "42%", tk.Progress)
	assert.True(t, h.running(t, "abc123"), "progress keeps the running slot")
}

func TestListener_ProgressReplayIsIdempotent(t *testing.T) {
	t.Parallel()
	h, l := newListenerHarness(t, 1, 1)
	require.NoError(t, h.submit(t, "abc123"))

	emit(t, l, events.MessageEdited, "**a cat** <#abc123#> (42%) (fast)")
	first, err := h.store.Get(context.Background(), "abc123")
	require.NoError(t, err)

	emit(t, l, events.MessageEdited, "**a cat** <#abc123#> (42%) (fast)")
	second, err := h.store.Get(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestListener_AttachmentSucceeds(t *testing.T) {
	t.Parallel()
	h, l := newListenerHarness(t, 1, 1)
	require.NoError(t, h.submit(t, "abc123"))
	require.NoError(t, h.submit(t, "next"))

	emit(t, l, events.MessageCreated, "<#abc123#> a cat - <@42> (fast)",
		events.Attachment{Filename: "img_HASH123.png", URL: "https://cdn.example/img_HASH123.png"})

	tk, err := h.store.Get(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusSuccess, tk.Status)
	assert.Equal(t, "100%", tk.Progress)
	assert.Equal(t, "HASH123", tk.Property(domain.PropMessageHash))
	assert.Equal(t, "https://cdn.example/img_HASH123.png", tk.Property(domain.PropAttachment))
	assert.Equal(t, "msg-1", tk.Property(domain.PropMessageID))
	assert.False(t, h.running(t, "abc123"))
	assert.True(t, h.running(t, "next"))
}

func TestListener_WaitingToStart(t *testing.T) {
	t.Parallel()
	h, l := newListenerHarness(t, 1, 1)
	require.NoError(t, h.submit(t, "abc123"))

	emit(t, l, events.MessageCreated, "**<#abc123#>a cat** - <@42> (Waiting to start)")

	tk, err := h.store.Get(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, tk.Status)
	assert.Equal(t, "0%", tk.Progress)
	assert.Equal(t, "msg-1", tk.Property(domain.PropMessageID))
}

func TestListener_EditWithoutPercentage(t *testing.T) {
	t.Parallel()
	h, l := newListenerHarness(t, 1, 1)
	require.NoError(t, h.submit(t, "abc123"))

	emit(t, l, events.MessageEdited, "<#abc123#> (paused)")

	tk, err := h.store.Get(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, tk.Status)
	assert.Equal(t, "0%", tk.Progress)
}

func TestListener_IgnoresUnrelatedEvents(t *testing.T) {
	t.Parallel()
	h, l := newListenerHarness(t, 1, 1)
	require.NoError(t, h.submit(t, "abc123"))
	before, err := h.store.Get(context.Background(), "abc123")
	require.NoError(t, err)
	notified := h.notifier.Count()

	emit(t, l, events.MessageCreated, "just chatting")
	emit(t, l, events.MessageEdited, "<#zzz999#> (50%)")
	emit(t, l, events.MessageCreated, "<#zzz999#>", events.Attachment{Filename: "a_B.png"})

	after, err := h.store.Get(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, notified, h.notifier.Count())
}

func TestListener_DuplicateTerminalEvent(t *testing.T) {
	t.Parallel()
	h, l := newListenerHarness(t, 1, 1)
	require.NoError(t, h.submit(t, "abc123"))

	att := events.Attachment{Filename: "img_HASH123.png", URL: "u"}
	emit(t, l, events.MessageCreated, "<#abc123#>", att)
	first, err := h.store.Get(context.Background(), "abc123")
	require.NoError(t, err)

	emit(t, l, events.MessageCreated, "<#abc123#>", events.Attachment{Filename: "img_OTHER.png", URL: "v"})
	emit(t, l, events.MessageEdited, "<#abc123#> (10%)")

	second, err := h.store.Get(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, first, second, "late events never touch a finished task")
}
