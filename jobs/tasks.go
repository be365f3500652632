package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "pos:idempotency_cleanup"
)

// IdempotencyCleanupPayload carries the retention window for one run.
type IdempotencyCleanupPayload struct {
	RetentionSeconds int64 `json:"retention_seconds"`
}

// Retention converts the payload window to a duration.
func (p IdempotencyCleanupPayload) Retention() time.Duration {
	return time.Duration(p.RetentionSeconds) * time.Second
}

// NewIdempotencyCleanupTask constructs an Asynq task for the cleanup job.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{RetentionSeconds: int64(retention / time.Second)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
