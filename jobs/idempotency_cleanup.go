package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/lekka-app/lekka/internal/jobs"
)

// TaskIdempotencyCleanup expires claimed Idempotency-Key values.
const TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"

// IdempotencyCleanupPayload overrides the retention window.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours,omitempty"`
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(payload IdempotencyCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}

// KeyExpirer removes stale idempotency keys.
type KeyExpirer interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob deletes keys past their retention.
type IdempotencyCleanupJob struct {
	Store   KeyExpirer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle executes the cleanup.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload IdempotencyCleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	retention := time.Duration(payload.RetentionHours) * time.Hour
	removed, err := j.Store.Cleanup(ctx, retention)
	if err != nil {
		return err
	}
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("expired idempotency keys", slog.Int64("removed", removed))
	return nil
}
