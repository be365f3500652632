package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
)

// minRetention keeps a misconfigured run from wiping keys of in-flight requests.
const minRetention = time.Hour

// KeyPurger deletes idempotency keys older than a cutoff.
type KeyPurger interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob removes idempotency keys past their retention window so
// clients may reuse them.
type IdempotencyCleanupJob struct {
	Store     KeyPurger
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	Retention time.Duration
}

// NewIdempotencyCleanupJob initialises the cleanup handler. retention is used
// when a task carries no window of its own.
func NewIdempotencyCleanupJob(store KeyPurger, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{Store: store, Logger: logger, Metrics: metrics, Retention: retention}
}

// Handle executes one cleanup run.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload IdempotencyCleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	retention := payload.Retention()
	if retention <= 0 {
		retention = j.Retention
	}
	if retention < minRetention {
		retention = minRetention
	}

	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	defer func() {
		err = tracker.End(err)
	}()

	start := time.Now()
	logger := j.logger().With(slog.Duration("retention", retention))
	removed, err := j.Store.Cleanup(ctx, retention)
	if err != nil {
		logger.Error("cleanup failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddPurged(TaskIdempotencyCleanup, removed)
	logger.Info("idempotency keys purged",
		slog.Int64("removed", removed),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *IdempotencyCleanupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskIdempotencyCleanup))
	}
	return slog.Default().With(slog.String("job", TaskIdempotencyCleanup))
}
