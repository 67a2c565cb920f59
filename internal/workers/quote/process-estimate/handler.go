// internal/workers/quote/process-estimate/handler.go
package processestimate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"brightsigns-workers/internal/common/camunda"
	stderrors "brightsigns-workers/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "process-quote-estimate"
)

var (
	ErrMissingEstimateUUID = errors.New("MISSING_ESTIMATE_UUID")
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// EstimateProcessor is the service surface consumed by the handler.
type EstimateProcessor interface {
	ProcessEstimate(ctx context.Context, estimateUUID string) (*Output, error)
}

type Handler struct {
	config  *Config
	service EstimateProcessor
	logger  Logger
}

func NewHandler(config *Config, service EstimateProcessor, log Logger) *Handler {
	return &Handler{
		config:  config,
		service: service,
		logger:  log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, fmt.Errorf("parse input: %w", err), 0)
		return nil
	}

	if strings.TrimSpace(input.EstimateUUID) == "" {
		h.failJob(client, job, ErrMissingEstimateUUID, 0)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, err, retriesFor(err))
		return nil
	}

	h.completeJob(client, job, output)
	return nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	return h.service.ProcessEstimate(ctx, input.EstimateUUID)
}

// retriesFor maps the error code onto the job retry budget. Not-found and
// parse failures never retry; transient infrastructure errors get a few.
func retriesFor(err error) int32 {
	var stdErr *stderrors.StandardError
	if errors.As(err, &stdErr) {
		return int32(stderrors.GetRetryCount(stdErr.Code))
	}
	return 0
}

func errorCodeFor(err error) string {
	var stdErr *stderrors.StandardError
	if errors.As(err, &stdErr) {
		return string(stdErr.Code)
	}
	if errors.Is(err, ErrMissingEstimateUUID) {
		return "MISSING_ESTIMATE_UUID"
	}
	return "UNKNOWN_ERROR"
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)

	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	_, err = camunda.ExecuteWithRetry(context.Background(), nil, func(ctx context.Context) (interface{}, error) {
		return cmd.Send(ctx)
	}, "complete job")
	if err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error, retries int32) {
	errorCode := errorCodeFor(err)

	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":    job.Key,
		"error":     err.Error(),
		"errorCode": errorCode,
	})

	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(errorCode + ": " + err.Error())

	if _, sendErr := camunda.ExecuteWithRetry(context.Background(), nil, func(ctx context.Context) (interface{}, error) {
		return cmd.Send(ctx)
	}, "fail job"); sendErr != nil {
		h.logger.Error("Failed to send fail job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  sendErr.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
