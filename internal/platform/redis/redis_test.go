package redis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/mjqueue/internal/domain"
	"github.com/phrazzld/mjqueue/internal/store"
	"github.com/phrazzld/mjqueue/internal/task"
)

func startMiniRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return s, client
}

func dispatch(id string) task.Dispatch {
	return task.Dispatch{TaskID: id, Action: domain.ActionGenerate, Params: []byte(`{"prompt":"<#` + id + `#>a cat"}`)}
}

func TestConnect(t *testing.T) {
	s := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client, err := Connect(context.Background(), "redis://"+s.Addr()+"/0", logger)
	require.NoError(t, err)
	assert.NoError(t, client.Close())

	_, err = Connect(context.Background(), "not a url", logger)
	assert.Error(t, err)
}

func TestTaskStore(t *testing.T) {
	s, client := startMiniRedis(t)
	ctx := context.Background()
	ts := NewTaskStore(client, time.Hour)

	tk, err := domain.NewTask("abc", domain.ActionGenerate, "p", "p", "http://hook")
	require.NoError(t, err)
	require.NoError(t, tk.Start())
	require.NoError(t, ts.Save(ctx, tk))

	got, err := ts.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, tk, got)
	assert.Equal(t, time.Hour, s.TTL(TaskKeyPrefix+"abc"))

	s.FastForward(2 * time.Hour)
	_, err = ts.Get(ctx, "abc")
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	require.NoError(t, ts.Save(ctx, tk))
	require.NoError(t, ts.Delete(ctx, "abc"))
	_, err = ts.Get(ctx, "abc")
	assert.True(t, store.IsNotFoundError(err))
	assert.NoError(t, ts.Delete(ctx, "abc"))
}

func TestTaskStore_CorruptEntry(t *testing.T) {
	s, client := startMiniRedis(t)
	ts := NewTaskStore(client, 0)
	require.NoError(t, s.Set(TaskKeyPrefix+"bad", "{not json"))

	_, err := ts.Get(context.Background(), "bad")
	var storeErr *store.StoreError
	assert.ErrorAs(t, err, &storeErr)
}

func TestAdmission_Lifecycle(t *testing.T) {
	s, client := startMiniRedis(t)
	ctx := context.Background()
	a := NewAdmission(client, "", 1, 2)

	p, err := a.Admit(ctx, dispatch("x"))
	require.NoError(t, err)
	assert.Equal(t, task.PlacedRunning, p)

	for _, id := range []string{"y", "z"} {
		p, err = a.Admit(ctx, dispatch(id))
		require.NoError(t, err)
		assert.Equal(t, task.PlacedWaiting, p)
	}
	_, err = a.Admit(ctx, dispatch("w"))
	assert.ErrorIs(t, err, task.ErrQueueFull)

	waiting, err := s.List(DefaultKeyPrefix + "waiting")
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "z"}, waiting)

	d, err := a.Claim(ctx)
	require.NoError(t, err)
	assert.Nil(t, d, "running set is full")

	require.NoError(t, a.Release(ctx, "x"))
	require.NoError(t, a.Release(ctx, "x"), "release is idempotent")

	d, err = a.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, dispatch("y"), *d)

	ok, err := a.IsRunning(ctx, "y")
	require.NoError(t, err)
	assert.True(t, ok)

	ids, err := a.Running(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, ids)

	stats, err := a.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, task.Stats{Waiting: 1, Running: 1, WaitSize: 2, ConcurrencySize: 1}, stats)
}

func TestAdmission_ClaimEmpty(t *testing.T) {
	_, client := startMiniRedis(t)
	a := NewAdmission(client, "test:", 2, 2)

	d, err := a.Claim(context.Background())
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestAdmission_SharedAcrossClients(t *testing.T) {
	s, client := startMiniRedis(t)
	other := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = other.Close() })
	ctx := context.Background()

	a1 := NewAdmission(client, "", 1, 0)
	a2 := NewAdmission(other, "", 1, 0)

	_, err := a1.Admit(ctx, dispatch("x"))
	require.NoError(t, err)
	_, err = a2.Admit(ctx, dispatch("y"))
	assert.ErrorIs(t, err, task.ErrQueueFull, "capacity is shared between nodes")
}

func TestAdmission_BoundsUnderConcurrency(t *testing.T) {
	_, client := startMiniRedis(t)
	ctx := context.Background()
	a := NewAdmission(client, "", 3, 4)

	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = a.Admit(ctx, dispatch(fmt.Sprintf("t%d", i)))
			if d, _ := a.Claim(ctx); d != nil && i%3 == 0 {
				_ = a.Release(ctx, d.TaskID)
			}
		}(i)
	}
	wg.Wait()

	stats, err := a.Stats(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, stats.Running, int64(3))
	assert.LessOrEqual(t, stats.Waiting, int64(4))
}

func TestAdmission_KeysShareHashTag(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":            DefaultKeyPrefix,
		"mj-queue:":   "{mj-queue}:",
		"jobs":        "{jobs}:",
		"{mj-queue}:": "{mj-queue}:",
		"app:{q}:":    "app:{q}:",
	}
	for prefix, want := range cases {
		assert.Equal(t, want, hashTagged(prefix), "prefix %q", prefix)
	}

	a := NewAdmission(nil, "mj-queue:", 1, 1)
	for _, key := range a.keys() {
		assert.True(t, strings.HasPrefix(key, "{mj-queue}:"), key)
	}
}
