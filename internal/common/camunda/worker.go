// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"brightsigns-workers/internal/common/errors"
	"brightsigns-workers/internal/common/metrics"
	"brightsigns-workers/internal/common/observability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// JobHandler must return an error (required by Zeebe client)
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job) error
}

type CamundaWorker struct {
	client   zbc.Client
	worker   worker.JobWorker
	logger   *zap.Logger
	taskType string
}

func NewWorker(
	client zbc.Client,
	taskType string,
	maxJobsActive int,
	handler JobHandler,
	obs *observability.Observability,
	logger *zap.Logger,
) *CamundaWorker {
	errHandler := errors.NewErrorHandler(&zapFieldLogger{logger})

	// Wrap handler to match Zeebe's expected signature. Handlers normally
	// fail their own jobs and return nil; an error that escapes here goes
	// through the shared BPMN error handling.
	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(func(client worker.JobClient, job entities.Job) {
			gauge := metrics.WorkerJobsActive.WithLabelValues(taskType)
			gauge.Inc()
			defer gauge.Dec()

			start := time.Now()
			status := "ok"
			if err := handler.Handle(client, job); err != nil {
				status = "error"
				errHandler.HandleJobError(context.Background(), client, job, err)
			}
			if obs != nil {
				ctx := context.Background()
				obs.RecordJobProcessed(ctx, status)
				obs.RecordJobDuration(ctx, time.Since(start), status)
			}
		}).
		MaxJobsActive(maxJobsActive).
		Open()

	return &CamundaWorker{
		client:   client,
		worker:   jobWorker,
		logger:   logger,
		taskType: taskType,
	}
}

// zapFieldLogger adapts zap to the error handler's map-field logger.
type zapFieldLogger struct {
	logger *zap.Logger
}

func (l *zapFieldLogger) Error(msg string, fields map[string]interface{}) {
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	l.logger.Error(msg, zapFields...)
}

func (w *CamundaWorker) Start() {
	w.logger.Info("worker started", zap.String("taskType", w.taskType))
}

func (w *CamundaWorker) Stop(ctx context.Context) {
	w.logger.Info("stopping worker", zap.String("taskType", w.taskType))
	w.worker.Close()
}
