package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/Owskar/collaborative-code-editor/internal/repository"
	"github.com/Owskar/collaborative-code-editor/internal/tasks"
)

// WorkerServer runs the asynq server that consumes background tasks.
type WorkerServer struct {
	server  *asynq.Server
	log     *logrus.Entry
	docRepo repository.DocumentRepository
}

// NewWorkerServer creates a WorkerServer. concurrency <= 0 uses 10.
func NewWorkerServer(redisOpt asynq.RedisClientOpt, docRepo repository.DocumentRepository, concurrency int, logger *logrus.Logger) *WorkerServer {
	if docRepo == nil {
		panic("DocumentRepository cannot be nil for WorkerServer")
	}
	if concurrency <= 0 {
		concurrency = 10
	}
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues:      queueWeights(),
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				taskID, _ := asynq.GetTaskID(ctx)
				queue, _ := asynq.GetQueueName(ctx)
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_id":   taskID,
					"task_type": task.Type(),
					"queue":     queue,
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
			Logger: newAsynqLogger(logEntry),
		},
	)

	return &WorkerServer{
		server:  server,
		log:     logEntry,
		docRepo: docRepo,
	}
}

// queueWeights lists the queues this service consumes. Content writes are the
// only background work.
func queueWeights() map[string]int {
	return map[string]int{tasks.ContentWriteQueue: 1}
}

// NewServeMux registers every task handler this service processes.
func NewServeMux(docRepo repository.DocumentRepository) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeContentWrite, NewContentWriteHandler(docRepo))
	return mux
}

// Start begins processing in background goroutines and returns immediately.
func (ws *WorkerServer) Start() error {
	ws.log.Info("Worker server starting...")
	if err := ws.server.Start(NewServeMux(ws.docRepo)); err != nil {
		return fmt.Errorf("could not start worker server: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight tasks and stops the server.
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}

// asynqLogger routes asynq's internal logging through logrus.
type asynqLogger struct {
	entry *logrus.Entry
}

func newAsynqLogger(entry *logrus.Entry) *asynqLogger {
	return &asynqLogger{entry: entry.WithField("source", "asynq")}
}

func (l *asynqLogger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *asynqLogger) Info(args ...interface{})  { l.entry.Info(args...) }
func (l *asynqLogger) Warn(args ...interface{})  { l.entry.Warn(args...) }
func (l *asynqLogger) Error(args ...interface{}) { l.entry.Error(args...) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.entry.Fatal(args...) }
