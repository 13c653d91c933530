package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/mjqueue/internal/task"
)

// DefaultKeyPrefix namespaces the admission keys. The braces are a cluster
// hash tag: the scripts touch all three keys, so they must share a slot.
const DefaultKeyPrefix = "{mj-queue}:"

// KEYS: waiting list, running set, dispatch hash.
// ARGV: concurrency size, wait size, task id, dispatch json.
// Returns 1 when placed in running, 0 when queued, -1 when the queue is full.
var admitScript = goredis.NewScript(`
local waiting = redis.call('LLEN', KEYS[1])
if waiting == 0 and redis.call('SCARD', KEYS[2]) < tonumber(ARGV[1]) then
  redis.call('SADD', KEYS[2], ARGV[3])
  return 1
end
if waiting >= tonumber(ARGV[2]) then
  return -1
end
redis.call('RPUSH', KEYS[1], ARGV[3])
redis.call('HSET', KEYS[3], ARGV[3], ARGV[4])
return 0
`)

// KEYS: waiting list, running set, dispatch hash.
// ARGV: concurrency size.
// Returns the claimed dispatch json, or nil when nothing can be claimed.
var claimScript = goredis.NewScript(`
if redis.call('SCARD', KEYS[2]) >= tonumber(ARGV[1]) then
  return false
end
local id = redis.call('LPOP', KEYS[1])
if not id then
  return false
end
redis.call('SADD', KEYS[2], id)
local d = redis.call('HGET', KEYS[3], id)
redis.call('HDEL', KEYS[3], id)
if not d then
  return '{"task_id":"' .. id .. '"}'
end
return d
`)

// Admission is the shared waiting queue and running set.
type Admission struct {
	client          goredis.UniversalClient
	waitingKey      string
	runningKey      string
	dispatchKey     string
	waitSize        int
	concurrencySize int
}

var _ task.Admission = (*Admission)(nil)

// NewAdmission creates an admission index under prefix. An empty prefix uses
// DefaultKeyPrefix; a prefix without a hash tag is wrapped in one.
func NewAdmission(client goredis.UniversalClient, prefix string, concurrencySize, waitSize int) *Admission {
	prefix = hashTagged(prefix)
	return &Admission{
		client:          client,
		waitingKey:      prefix + "waiting",
		runningKey:      prefix + "running",
		dispatchKey:     prefix + "dispatch",
		waitSize:        waitSize,
		concurrencySize: concurrencySize,
	}
}

func (a *Admission) keys() []string {
	return []string{a.waitingKey, a.runningKey, a.dispatchKey}
}

// Admit implements task.Admission.
func (a *Admission) Admit(ctx context.Context, d task.Dispatch) (task.Placement, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return task.PlacedWaiting, fmt.Errorf("failed to encode dispatch: %w", err)
	}

	res, err := admitScript.Run(ctx, a.client, a.keys(),
		a.concurrencySize, a.waitSize, d.TaskID, data).Int()
	if err != nil {
		return task.PlacedWaiting, fmt.Errorf("admit script failed: %w", err)
	}

	switch res {
	case 1:
		return task.PlacedRunning, nil
	case 0:
		return task.PlacedWaiting, nil
	default:
		return task.PlacedWaiting, task.ErrQueueFull
	}
}

// Claim implements task.Admission.
func (a *Admission) Claim(ctx context.Context) (*task.Dispatch, error) {
	data, err := claimScript.Run(ctx, a.client, a.keys(), a.concurrencySize).Text()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim script failed: %w", err)
	}

	var d task.Dispatch
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return nil, fmt.Errorf("failed to decode dispatch: %w", err)
	}
	return &d, nil
}

// Release implements task.Admission.
func (a *Admission) Release(ctx context.Context, taskID string) error {
	return a.client.SRem(ctx, a.runningKey, taskID).Err()
}

// IsRunning implements task.Admission.
func (a *Admission) IsRunning(ctx context.Context, taskID string) (bool, error) {
	return a.client.SIsMember(ctx, a.runningKey, taskID).Result()
}

// Running implements task.Admission.
func (a *Admission) Running(ctx context.Context) ([]string, error) {
	return a.client.SMembers(ctx, a.runningKey).Result()
}

// Stats implements task.Admission.
func (a *Admission) Stats(ctx context.Context) (task.Stats, error) {
	pipe := a.client.Pipeline()
	waiting := pipe.LLen(ctx, a.waitingKey)
	running := pipe.SCard(ctx, a.runningKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return task.Stats{}, fmt.Errorf("failed to read queue sizes: %w", err)
	}
	return task.Stats{
		Waiting:         waiting.Val(),
		Running:         running.Val(),
		WaitSize:        a.waitSize,
		ConcurrencySize: a.concurrencySize,
	}, nil
}

// hashTagged returns prefix with a non-empty {tag} so every admission key
// hashes to the same cluster slot.
func hashTagged(prefix string) string {
	if prefix == "" {
		return DefaultKeyPrefix
	}
	if open := strings.IndexByte(prefix, '{'); open >= 0 {
		if end := strings.IndexByte(prefix[open+1:], '}'); end > 0 {
			return prefix
		}
	}
	tag := strings.TrimSuffix(prefix, ":")
	return "{" + tag + "}:"
}
