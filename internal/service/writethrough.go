package service

import (
	"context"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/Owskar/collaborative-code-editor/internal/tasks"
)

// enqueueTimeout bounds one enqueue call so a slow Redis cannot stall the pump.
const enqueueTimeout = 5 * time.Second

// Enqueuer is the part of *asynq.Client the write-through pump uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// WriteThrough turns content snapshots into background tasks.
// Snapshots submitted for the same document between two flushes are coalesced
// so that only the highest version is enqueued.
type WriteThrough struct {
	enqueuer Enqueuer
	log      *logrus.Entry

	mu      sync.Mutex
	pending map[string]tasks.ContentWritePayload

	wake      chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
}

// NewWriteThrough creates a WriteThrough. Call Start before Submit has any effect.
func NewWriteThrough(enqueuer Enqueuer, logger *logrus.Logger) *WriteThrough {
	if enqueuer == nil {
		panic("Enqueuer cannot be nil for WriteThrough")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &WriteThrough{
		enqueuer: enqueuer,
		log:      logger.WithField("component", "write_through"),
		pending:  make(map[string]tasks.ContentWritePayload),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start launches the pump goroutine.
func (w *WriteThrough) Start() {
	w.startOnce.Do(func() {
		w.mu.Lock()
		w.started = true
		w.mu.Unlock()
		go w.run()
	})
}

// Submit records a snapshot and wakes the pump. It never blocks on I/O.
// Snapshots submitted after Stop are logged and dropped.
func (w *WriteThrough) Submit(documentID, content string, version int64) {
	select {
	case <-w.done:
		w.log.WithFields(logrus.Fields{"document_id": documentID, "version": version}).
			Warn("Write-through stopped, content snapshot dropped")
		return
	default:
	}

	w.mu.Lock()
	if cur, ok := w.pending[documentID]; !ok || version > cur.Version {
		w.pending[documentID] = tasks.ContentWritePayload{
			DocumentID: documentID,
			Content:    content,
			Version:    version,
		}
	}
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Stop flushes what is pending and waits for the pump to exit.
func (w *WriteThrough) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if started {
		<-w.stopped
	}
}

func (w *WriteThrough) run() {
	defer close(w.stopped)
	for {
		select {
		case <-w.wake:
			w.flush()
		case <-w.done:
			w.flush()
			return
		}
	}
}

// flush takes the pending set and enqueues one task per document.
func (w *WriteThrough) flush() {
	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[string]tasks.ContentWritePayload, len(batch))
	w.mu.Unlock()

	for _, p := range batch {
		logCtx := w.log.WithFields(logrus.Fields{"document_id": p.DocumentID, "version": p.Version})
		task, err := tasks.NewContentWriteTask(p)
		if err != nil {
			logCtx.WithError(err).Error("Failed to build content write task")
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
		info, err := w.enqueuer.EnqueueContext(ctx, task)
		cancel()
		if err != nil {
			logCtx.WithError(err).Warn("Failed to enqueue content write")
			continue
		}
		logCtx.WithField("task_id", info.ID).Debug("Content write enqueued")
	}
}
