package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-desk/internal/jobs"
)

// TicketArchiver archives finished tickets and reports how many changed.
type TicketArchiver interface {
	ArchiveDone(ctx context.Context) (int64, error)
}

// ArchiveDoneJob runs the ticket archive as a system job. The handler context
// carries no actor, so the store writes it causes are not audited.
type ArchiveDoneJob struct {
	Archiver TicketArchiver
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewArchiveDoneJob initialises the archive handler.
func NewArchiveDoneJob(archiver TicketArchiver, logger *slog.Logger, metrics *jobmetrics.Metrics) *ArchiveDoneJob {
	return &ArchiveDoneJob{Archiver: archiver, Logger: logger, Metrics: metrics}
}

// Handle executes one archive run.
func (j *ArchiveDoneJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Archiver == nil {
		return errors.New("archive done: handler not configured")
	}
	var payload ArchiveDonePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("archive done: decode payload: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskArchiveDoneTickets)
	logger := j.logger().With(slog.String("source", payload.Source))
	start := time.Now()

	n, err := j.Archiver.ArchiveDone(ctx)
	if err != nil {
		logger.Error("archive done tickets failed", slog.Any("error", err))
		return tracker.End(err)
	}
	tracker.AddAffected(n)
	logger.Info("archived done tickets",
		slog.Int64("tickets", n),
		slog.Duration("duration", time.Since(start)),
	)
	return tracker.End(nil)
}

func (j *ArchiveDoneJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
