package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/lekka-app/lekka/internal/jobs"
)

type stubExpirer struct {
	got time.Duration
	err error
}

func (s *stubExpirer) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.got = olderThan
	return 3, s.err
}

func TestIdempotencyCleanupJob(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := &stubExpirer{}
	job := &IdempotencyCleanupJob{
		Store:   store,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics: jobmetrics.NewMetrics(reg),
	}

	task, err := NewIdempotencyCleanupTask(IdempotencyCleanupPayload{RetentionHours: 24})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 24*time.Hour, store.got)

	store.err = errors.New("db down")
	require.Error(t, job.Handle(context.Background(), task))

	expected := `
# HELP lekka_jobs_total Total job executions partitioned by job name and status.
# TYPE lekka_jobs_total counter
lekka_jobs_total{job="maintenance:idempotency_cleanup",status="failure"} 1
lekka_jobs_total{job="maintenance:idempotency_cleanup",status="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "lekka_jobs_total"))
}
