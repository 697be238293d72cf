package tasks

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// TaskKind names a class of background work for idempotency keying.
type TaskKind string

const (
	// TaskSynchronize is a reconciliation pass for one subscription.
	TaskSynchronize TaskKind = "synchronize"
	// TaskProcessDownloads is a download-scheduler run for one subscription.
	TaskProcessDownloads TaskKind = "process_downloads"
)

// Queue is an in-process work queue with at-least-once execution and
// per-key de-duplication. The key is (kind, subscription id): while a task
// with a key is pending or running, further enqueues of the same key are
// dropped. That property is what keeps two passes for the same
// subscription from running concurrently, which the engine requires.
type Queue struct {
	logger  *log.Logger
	tasks   chan queuedTask
	workers int
	wg      sync.WaitGroup

	mu      sync.Mutex
	pending map[string]struct{}
}

type queuedTask struct {
	key string
	run func(ctx context.Context) error
}

// NewQueue creates a queue that will execute tasks on the given number of
// workers once started.
func NewQueue(workers int, logger *log.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	q := &Queue{
		logger:  logger,
		tasks:   make(chan queuedTask, 256),
		pending: make(map[string]struct{}),
	}
	q.workers = workers
	return q
}

// Start launches the worker pool. Workers drain until the context is
// cancelled, then finish their current task and exit.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// Enqueue submits a task keyed by (kind, subscription id). Returns false
// when an identical task is already pending or running, or when the queue
// is full.
func (q *Queue) Enqueue(kind TaskKind, subscriptionID string, run func(ctx context.Context) error) bool {
	key := string(kind) + ":" + subscriptionID

	q.mu.Lock()
	if _, dup := q.pending[key]; dup {
		q.mu.Unlock()
		q.logger.Debug("task already queued", "key", key)
		return false
	}
	q.pending[key] = struct{}{}
	q.mu.Unlock()

	select {
	case q.tasks <- queuedTask{key: key, run: run}:
		return true
	default:
		q.release(key)
		q.logger.Warn("task queue full, dropping task", "key", key)
		return false
	}
}

// Wait blocks until every worker has exited. Call after cancelling the
// context passed to Start.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-q.tasks:
			if err := task.run(ctx); err != nil {
				q.logger.Error("background task failed", "key", task.key, "error", err)
			}
			// Release only after completion so a re-enqueue during the
			// run is still de-duplicated.
			q.release(task.key)
		}
	}
}

func (q *Queue) release(key string) {
	q.mu.Lock()
	delete(q.pending, key)
	q.mu.Unlock()
}
