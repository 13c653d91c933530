package asynqx

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/mjqueue/internal/domain"
	"github.com/phrazzld/mjqueue/internal/task"
	"github.com/phrazzld/mjqueue/internal/testutils"
)

type recordingExecutor struct {
	mu   sync.Mutex
	got  []task.Dispatch
	fail bool
}

func (e *recordingExecutor) Execute(_ context.Context, d task.Dispatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.got = append(e.got, d)
	if e.fail {
		return task.ErrSubmissionFailed
	}
	return nil
}

func (e *recordingExecutor) dispatches() []task.Dispatch {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]task.Dispatch(nil), e.got...)
}

func pollUntil(timeout time.Duration, f func() bool) error {
	deadline := time.Now().Add(timeout)
	for !f() {
		if time.Now().After(deadline) {
			return errors.New("timeout")
		}
		time.Sleep(20 * time.Millisecond)
	}
	return nil
}

func TestLaunchAndProcess(t *testing.T) {
	s := miniredis.RunT(t)
	redisOpt := asynq.RedisClientOpt{Addr: s.Addr()}

	exec := &recordingExecutor{}
	p := NewProcessor(redisOpt, exec, ProcessorConfig{Concurrency: 2}, testutils.DiscardLogger())
	require.NoError(t, p.Start())
	defer p.Shutdown()

	l := NewLauncher(redisOpt, "")
	defer l.Close()

	d := task.Dispatch{TaskID: "abc", Action: domain.ActionGenerate, Params: []byte(`{"prompt":"<#abc#>cat"}`)}
	require.NoError(t, l.Launch(context.Background(), d))
	require.NoError(t, l.Launch(context.Background(), d), "relaunching the same task is a no-op")

	require.NoError(t, pollUntil(3*time.Second, func() bool { return len(exec.dispatches()) >= 1 }))
	assert.Equal(t, d, exec.dispatches()[0])
}

func TestHandleDispatch_Errors(t *testing.T) {
	exec := &recordingExecutor{fail: true}
	p := NewProcessor(asynq.RedisClientOpt{Addr: "127.0.0.1:0"}, exec, ProcessorConfig{}, testutils.DiscardLogger())

	err := p.handleDispatch(context.Background(), asynq.NewTask(TaskTypeDispatch, []byte(`{"task_id":"x","action":"generate","params":{}}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Len(t, exec.dispatches(), 1)

	err = p.handleDispatch(context.Background(), asynq.NewTask(TaskTypeDispatch, []byte(`nope`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Len(t, exec.dispatches(), 1, "malformed payloads never reach the executor")
}
