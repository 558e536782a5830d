package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-desk/internal/platform/errutil"
	"github.com/odyssey-erp/odyssey-desk/internal/rbac"
	"github.com/odyssey-erp/odyssey-desk/internal/store"
)

var _ store.Executor = (*Interceptor)(nil)

// Interceptor is the audited store entry point. Reads pass straight through.
// Writes run first and, when an actor is in scope, produce one Record. Audit
// failures are logged and counted but never reach the caller.
type Interceptor struct {
	raw     store.RawExecutor
	writer  Writer
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
	newID   func() string
}

// NewInterceptor wraps raw. metrics and logger may be nil.
func NewInterceptor(raw store.RawExecutor, writer Writer, logger *slog.Logger, metrics *Metrics) *Interceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interceptor{
		raw:     raw,
		writer:  writer,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Exec implements store.Executor.
func (i *Interceptor) Exec(ctx context.Context, op store.Operation) (store.Result, error) {
	if !op.Verb.IsWrite() {
		return i.raw.ExecRaw(ctx, op)
	}

	res, err := i.raw.ExecRaw(ctx, op)
	if err != nil {
		return res, err
	}

	actor, ok := rbac.CurrentActor(ctx)
	if !ok {
		i.metrics.observe("skipped")
		return res, nil
	}
	i.record(ctx, actor, op, res)
	return res, nil
}

func (i *Interceptor) record(ctx context.Context, actor *rbac.Actor, op store.Operation, res store.Result) {
	action := ActionFor(op.Verb, op.Entity)
	target := ExtractTarget(op, res)

	details, err := Details(op)
	if err != nil {
		i.logger.Warn("encode audit details", slog.String("action", action), slog.Any("error", err))
		details = nil
	}

	rec := Record{
		ID:         i.newID(),
		ActorID:    actor.ID(),
		Action:     action,
		TargetID:   target.String(),
		TargetType: op.Entity,
		Details:    details,
		Timestamp:  i.now().UTC(),
	}
	if err := i.writer.Write(context.WithoutCancel(ctx), rec); err != nil {
		i.metrics.observe("failed")
		errutil.LogError(i.logger, "audit record dropped", err,
			slog.String("actor_id", rec.ActorID),
			slog.String("action", rec.Action),
			slog.String("target_id", rec.TargetID),
		)
		return
	}
	i.metrics.observe("written")
}
