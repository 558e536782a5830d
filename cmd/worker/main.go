package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-erp/odyssey-desk/internal/app"
	jobmetrics "github.com/odyssey-erp/odyssey-desk/internal/jobs"
	"github.com/odyssey-erp/odyssey-desk/internal/platform/errutil"
	"github.com/odyssey-erp/odyssey-desk/internal/rbac"
	"github.com/odyssey-erp/odyssey-desk/jobs"
)

func main() {
	enqueueArchive := flag.Bool("enqueue-archive", false, "enqueue one archive run and exit")
	flag.Parse()

	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}

	if *enqueueArchive {
		client := jobs.NewClient(redisOpts)
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("asynq client close", slog.Any("error", err))
			}
		}()
		info, err := client.EnqueueArchiveDone(ctx, "manual")
		if err != nil {
			logger.Error("enqueue archive", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("archive enqueued", slog.String("task_id", info.ID))
		return
	}

	if !cfg.UsesPostgres() {
		logger.Error("worker needs STORE_DRIVER=postgres, the memory store is private to one process")
		os.Exit(1)
	}

	storage, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		logger.Error("open storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer storage.Close()

	catalog, _, err := app.LoadCatalog(ctx, cfg, rbac.Querier(storage.Pool), logger)
	if err != nil {
		errutil.LogError(logger, "load role table", err)
		os.Exit(1)
	}
	core := app.NewCore(storage.Backend, catalog, logger, nil)

	archiveTask, err := jobs.NewArchiveDoneTask("cron")
	if err != nil {
		logger.Error("build archive task", slog.Any("error", err))
		os.Exit(1)
	}
	archiveJob := jobs.NewArchiveDoneJob(core.Tickets, logger, jobmetrics.NewMetrics(prometheus.DefaultRegisterer))

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskArchiveDoneTickets, Handler: archiveJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ArchiveCron, Task: archiveTask},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
