// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"franchisee-hub/internal/common/config"
	apperrors "franchisee-hub/internal/common/errors"
	"franchisee-hub/internal/common/logger"
	"franchisee-hub/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler turns one activated job into output variables. A returned
// error is routed through the JobErrorHandler: retryable faults fail the
// job, declines are thrown as BPMN errors.
type JobHandler interface {
	HandleJob(ctx context.Context, job entities.Job) (interface{}, error)
}

const defaultJobTimeout = 30 * time.Second

type Worker struct {
	client   zbc.Client
	handler  JobHandler
	cfg      config.WorkerConfig
	worker   worker.JobWorker
	errors   *apperrors.JobErrorHandler
	logger   logger.Logger
	taskType string
}

func NewWorker(client zbc.Client, taskType string, cfg config.WorkerConfig, handler JobHandler, log logger.Logger) *Worker {
	log = log.WithFields(map[string]interface{}{"taskType": taskType})
	return &Worker{
		client:   client,
		handler:  handler,
		cfg:      cfg,
		errors:   apperrors.NewJobErrorHandler(log),
		logger:   log,
		taskType: taskType,
	}
}

// Start opens the job worker. Jobs are polled on the client's goroutines.
func (w *Worker) Start() {
	maxActive := w.cfg.MaxJobsActive
	if maxActive <= 0 {
		maxActive = 5
	}
	w.worker = w.client.NewJobWorker().
		JobType(w.taskType).
		Handler(w.handle).
		MaxJobsActive(maxActive).
		Timeout(w.timeout()).
		Open()
	w.logger.Info("worker started", map[string]interface{}{"maxJobsActive": maxActive})
}

// Stop closes the job worker and waits for in-flight jobs. The shared
// client is closed by its owner.
func (w *Worker) Stop() {
	if w.worker == nil {
		return
	}
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}

func (w *Worker) timeout() time.Duration {
	if d := config.GetDuration(w.cfg.Timeout); d > 0 {
		return d
	}
	return defaultJobTimeout
}

func (w *Worker) handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	defer func() {
		metrics.WorkerJobDuration.WithLabelValues(w.taskType).Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout())
	defer cancel()

	w.logger.Debug("processing job", map[string]interface{}{
		"jobKey":          job.Key,
		"processInstance": job.ProcessInstanceKey,
	})

	out, err := w.handler.HandleJob(ctx, job)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(w.taskType, string(apperrors.Classify(err))).Inc()
		w.errors.HandleJobError(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(out)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(w.taskType, string(apperrors.ErrCodeInternal)).Inc()
		w.errors.HandleJobError(ctx, client, job, err)
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		w.logger.Error("failed to send complete job command", map[string]interface{}{"jobKey": job.Key, "error": err})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(w.taskType).Inc()
}
