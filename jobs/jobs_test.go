package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-desk/internal/rbac"
	jobmetrics "github.com/odyssey-erp/odyssey-desk/internal/jobs"
)

type archiverFunc func(ctx context.Context) (int64, error)

func (f archiverFunc) ArchiveDone(ctx context.Context) (int64, error) { return f(ctx) }

func TestArchiveDoneJobRunsWithoutActor(t *testing.T) {
	var sawActor bool
	job := NewArchiveDoneJob(archiverFunc(func(ctx context.Context) (int64, error) {
		_, sawActor = rbac.CurrentActor(ctx)
		return 4, nil
	}), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewArchiveDoneTask("")
	require.NoError(t, err)
	assert.Equal(t, TaskArchiveDoneTickets, task.Type())
	var payload ArchiveDonePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "cron", payload.Source)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.False(t, sawActor)
}

func TestArchiveDoneJobErrors(t *testing.T) {
	boom := errors.New("store offline")
	job := NewArchiveDoneJob(archiverFunc(func(context.Context) (int64, error) { return 0, boom }), nil, nil)

	task, err := NewArchiveDoneTask("manual")
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), boom)

	bad := asynq.NewTask(TaskArchiveDoneTickets, []byte("{"))
	assert.ErrorIs(t, job.Handle(context.Background(), bad), asynq.SkipRetry)

	var unset *ArchiveDoneJob
	assert.Error(t, unset.Handle(context.Background(), task))
}

func TestNewWorkerRejectsBadCron(t *testing.T) {
	task, err := NewArchiveDoneTask("cron")
	require.NoError(t, err)

	_, err = NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"},
		Cron:      []CronRegistration{{Spec: "not a cron", Task: task}},
	})
	assert.Error(t, err)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func TestHealthHandler(t *testing.T) {
	get := func(inspector QueueInspector) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Route("/jobs", NewHandler(inspector, nil).MountRoutes)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
		return rr
	}

	rr := get(nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0,"active":0,"scheduled":0,"retry":0}`, rr.Body.String())

	rr = get(stubInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 7, Retry: 1}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queue":"default","pending":7,"active":0,"scheduled":0,"retry":1}`, rr.Body.String())

	rr = get(stubInspector{err: errors.New("dial tcp: refused")})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
