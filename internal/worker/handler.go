package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/Owskar/collaborative-code-editor/internal/repository"
	"github.com/Owskar/collaborative-code-editor/internal/tasks"
)

// ContentWriteHandler applies content snapshots to the document store.
type ContentWriteHandler struct {
	docRepo repository.DocumentRepository
}

// NewContentWriteHandler creates a ContentWriteHandler.
func NewContentWriteHandler(docRepo repository.DocumentRepository) *ContentWriteHandler {
	if docRepo == nil {
		panic("DocumentRepository cannot be nil for ContentWriteHandler")
	}
	return &ContentWriteHandler{docRepo: docRepo}
}

// ProcessTask implements asynq.Handler.
// A missing document or an older snapshot completes the task without error.
func (h *ContentWriteHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	taskID, _ := asynq.GetTaskID(ctx)
	retry, _ := asynq.GetRetryCount(ctx)
	logCtx := logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
		"retry":     retry,
	})

	payload, err := tasks.ParseContentWritePayload(t.Payload())
	if err != nil {
		logCtx.WithError(err).Error("Failed to decode content write payload")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	logCtx = logCtx.WithFields(logrus.Fields{
		"document_id": payload.DocumentID,
		"version":     payload.Version,
	})

	exists, err := h.docRepo.WriteContent(ctx, payload.DocumentID, payload.Content, payload.Version)
	if err != nil {
		logCtx.WithError(err).Warn("Content write failed, will be retried")
		return fmt.Errorf("write content of document %s: %w", payload.DocumentID, err)
	}
	if !exists {
		logCtx.Debug("Document no longer exists, content write skipped")
		return nil
	}

	logCtx.Debug("Content write applied")
	return nil
}
