package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task types.
const (
	// TypeContentWrite stores the latest full-text snapshot of a document.
	TypeContentWrite = "document:write_content"
)

// Queue and retry policy for content writes. They are best effort and never block editing.
const (
	ContentWriteQueue    = "low"
	ContentWriteMaxRetry = 3
	ContentWriteTimeout  = 30 * time.Second
)

// ContentWritePayload is the body of a TypeContentWrite task.
type ContentWritePayload struct {
	DocumentID string `json:"document_id"`
	Content    string `json:"content"`
	// Version is the update log position the snapshot corresponds to.
	Version int64 `json:"version"`
}

// NewContentWriteTask builds a TypeContentWrite task with its queue options attached.
func NewContentWriteTask(p ContentWritePayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("tasks: marshal content write payload for %s: %w", p.DocumentID, err)
	}
	return asynq.NewTask(TypeContentWrite, payload,
		asynq.Queue(ContentWriteQueue),
		asynq.MaxRetry(ContentWriteMaxRetry),
		asynq.Timeout(ContentWriteTimeout),
	), nil
}

// ParseContentWritePayload decodes a TypeContentWrite task body.
func ParseContentWritePayload(data []byte) (ContentWritePayload, error) {
	var p ContentWritePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("tasks: unmarshal content write payload: %w", err)
	}
	if p.DocumentID == "" {
		return p, fmt.Errorf("tasks: content write payload has no document_id")
	}
	return p, nil
}
