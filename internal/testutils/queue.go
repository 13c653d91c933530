package testutils

import (
	"testing"
	"time"

	"github.com/phrazzld/mjqueue/internal/platform/memory"
	"github.com/phrazzld/mjqueue/internal/task"
)

// QueueFixture is a task queue over in-memory backends. Dispatches are
// recorded by a manual launcher instead of being executed, so tests decide
// when a submission happens.
type QueueFixture struct {
	Queue     *task.Queue
	Store     *memory.TaskStore
	Admission *memory.Admission
	Submitter *task.MockSubmitter
	Notifier  *task.RecordingNotifier
	Launcher  *task.ManualLauncher
}

// NewQueueFixture builds a QueueFixture and stops its queue on cleanup.
func NewQueueFixture(t testing.TB, concurrency, wait int) *QueueFixture {
	t.Helper()
	f := &QueueFixture{
		Store:     memory.NewTaskStore(time.Hour),
		Admission: memory.NewAdmission(concurrency, wait),
		Submitter: task.NewMockSubmitter(),
		Notifier:  &task.RecordingNotifier{},
		Launcher:  &task.ManualLauncher{},
	}
	f.Queue = task.NewQueue(f.Store, f.Admission, f.Submitter, f.Notifier, DiscardLogger())
	f.Queue.SetLauncher(f.Launcher)
	t.Cleanup(f.Queue.Stop)
	return f
}
