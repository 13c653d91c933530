package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/mjqueue/internal/domain"
	"github.com/phrazzld/mjqueue/internal/task"
)

func dispatch(id string) task.Dispatch {
	return task.Dispatch{TaskID: id, Action: domain.ActionGenerate, Params: []byte(`{}`)}
}

func TestAdmission_AdmitAndClaim(t *testing.T) {
	ctx := context.Background()
	a := NewAdmission(1, 2)

	p, err := a.Admit(ctx, dispatch("x"))
	require.NoError(t, err)
	assert.Equal(t, task.PlacedRunning, p, "free slot and empty queue admit straight to running")

	p, err = a.Admit(ctx, dispatch("y"))
	require.NoError(t, err)
	assert.Equal(t, task.PlacedWaiting, p)
	_, err = a.Admit(ctx, dispatch("z"))
	require.NoError(t, err)

	_, err = a.Admit(ctx, dispatch("w"))
	assert.ErrorIs(t, err, task.ErrQueueFull)

	d, err := a.Claim(ctx)
	require.NoError(t, err)
	assert.Nil(t, d, "no slot free")

	require.NoError(t, a.Release(ctx, "x"))
	d, err = a.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "y", d.TaskID, "claims follow FIFO order")

	running, err := a.IsRunning(ctx, "y")
	require.NoError(t, err)
	assert.True(t, running)

	stats, err := a.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, task.Stats{Waiting: 1, Running: 1, WaitSize: 2, ConcurrencySize: 1}, stats)
}

func TestAdmission_ZeroWaitSize(t *testing.T) {
	ctx := context.Background()
	a := NewAdmission(1, 0)

	p, err := a.Admit(ctx, dispatch("x"))
	require.NoError(t, err)
	assert.Equal(t, task.PlacedRunning, p)

	_, err = a.Admit(ctx, dispatch("y"))
	assert.ErrorIs(t, err, task.ErrQueueFull)
}

func TestAdmission_ReleaseIdempotent(t *testing.T) {
	a := NewAdmission(1, 1)
	assert.NoError(t, a.Release(context.Background(), "nobody"))
	assert.NoError(t, a.Release(context.Background(), "nobody"))
}

func TestAdmission_BoundsUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	a := NewAdmission(3, 5)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = a.Admit(ctx, dispatch(fmt.Sprintf("t%d", i)))
			if d, _ := a.Claim(ctx); d != nil && i%2 == 0 {
				_ = a.Release(ctx, d.TaskID)
			}
			stats, _ := a.Stats(ctx)
			assert.LessOrEqual(t, stats.Running, int64(3))
			assert.LessOrEqual(t, stats.Waiting, int64(5))
		}(i)
	}
	wg.Wait()
}
