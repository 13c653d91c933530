package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/go-cleanhttp"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sourcegraph/conc"
	"golang.org/x/sync/semaphore"

	"github.com/phrazzld/mjqueue/internal/domain"
	"github.com/phrazzld/mjqueue/internal/redact"
)

// Config holds configuration for the webhook notifier.
type Config struct {
	// MaxWorkers caps concurrent deliveries across all tasks.
	MaxWorkers int

	// Timeout bounds a single delivery.
	Timeout time.Duration

	// DedupSize is how many tasks' last payload hashes are remembered.
	DedupSize int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		MaxWorkers: 5,
		Timeout:    10 * time.Second,
		DedupSize:  4096,
	}
}

type delivery struct {
	hook   string
	taskID string
	status domain.TaskStatus
	body   []byte
}

// WebhookNotifier posts the serialized task to its notify hook on every call.
type WebhookNotifier struct {
	client  *http.Client
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	queues map[string][]delivery
	last   *lru.Cache[string, uint64]

	wg conc.WaitGroup
}

// New creates a WebhookNotifier. A nil client uses a pooled cleanhttp client.
func New(cfg Config, client *http.Client, logger *slog.Logger) (*WebhookNotifier, error) {
	def := DefaultConfig()
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = def.MaxWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.DedupSize <= 0 {
		cfg.DedupSize = def.DedupSize
	}
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
	}
	if logger == nil {
		logger = slog.Default()
	}

	last, err := lru.New[string, uint64](cfg.DedupSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create dedup cache: %w", err)
	}

	return &WebhookNotifier{
		client:  client,
		sem:     semaphore.NewWeighted(int64(cfg.MaxWorkers)),
		timeout: cfg.Timeout,
		logger:  logger.With("component", "webhook_notifier"),
		queues:  make(map[string][]delivery),
		last:    last,
	}, nil
}

// Notify snapshots task and schedules its delivery. It never blocks on the
// network. Tasks without a hook are ignored, as is a payload identical to the
// previous one queued for the same task.
func (n *WebhookNotifier) Notify(task *domain.Task) {
	if task == nil || task.NotifyHook == "" {
		return
	}

	body, err := json.Marshal(task)
	if err != nil {
		n.logger.Error("failed to encode task for webhook", "task_id", task.ID, "error", err)
		return
	}
	sum := xxhash.Sum64(body)
	d := delivery{hook: task.NotifyHook, taskID: task.ID, status: task.Status, body: body}

	n.mu.Lock()
	defer n.mu.Unlock()

	if prev, ok := n.last.Get(task.ID); ok && prev == sum {
		n.logger.Debug("skipping duplicate notification", "task_id", task.ID)
		return
	}
	n.last.Add(task.ID, sum)

	pending, active := n.queues[task.ID]
	n.queues[task.ID] = append(pending, d)
	if !active {
		n.wg.Go(func() { n.drain(task.ID) })
	}
}

// drain delivers queued notifications for one task in order, then removes
// the task's queue.
func (n *WebhookNotifier) drain(taskID string) {
	for {
		n.mu.Lock()
		pending := n.queues[taskID]
		if len(pending) == 0 {
			delete(n.queues, taskID)
			n.mu.Unlock()
			return
		}
		d := pending[0]
		n.queues[taskID] = pending[1:]
		n.mu.Unlock()

		if err := n.sem.Acquire(context.Background(), 1); err != nil {
			continue
		}
		n.deliver(d)
		n.sem.Release(1)
	}
}

func (n *WebhookNotifier) deliver(d delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.hook, bytes.NewReader(d.body))
	if err != nil {
		n.logger.Warn("invalid notify hook", "task_id", d.taskID, "error", redact.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("webhook delivery failed",
			"task_id", d.taskID,
			"status", d.status,
			"error", redact.Error(err))
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.logger.Warn("webhook rejected",
			"task_id", d.taskID,
			"status", d.status,
			"http_status", resp.StatusCode)
		return
	}
	n.logger.Debug("webhook delivered", "task_id", d.taskID, "status", d.status)
}

// Pending returns the number of tasks with queued or in-flight notifications.
func (n *WebhookNotifier) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.queues)
}

// Close waits for queued deliveries to finish.
func (n *WebhookNotifier) Close() {
	if r := n.wg.WaitAndRecover(); r != nil {
		n.logger.Error("notification worker panicked", "panic", r.Value)
	}
}
