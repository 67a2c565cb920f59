// internal/workers/quote/process-estimate/service.go
package processestimate

import (
	"context"

	"brightsigns-workers/internal/common/logger"
	"brightsigns-workers/internal/models"
)

// EstimateRunner is the estimation pipeline surface this worker drives.
type EstimateRunner interface {
	RunEstimate(ctx context.Context, uuid string) error
	CalculateTotal(ctx context.Context, estimateID int64) (float64, error)
}

// EstimateLoader reads the estimate back after processing.
type EstimateLoader interface {
	LoadByUUID(ctx context.Context, uuid string) (*models.QuoteEstimate, error)
}

// Alerter notifies operations about failed estimates.
type Alerter interface {
	AlertFailure(ctx context.Context, estimateUUID string, cause error)
}

type Service struct {
	runner    EstimateRunner
	estimates EstimateLoader
	alerter   Alerter // optional
	logger    logger.Logger
}

func NewService(runner EstimateRunner, estimates EstimateLoader, alerter Alerter, log logger.Logger) *Service {
	return &Service{
		runner:    runner,
		estimates: estimates,
		alerter:   alerter,
		logger:    log,
	}
}

// ProcessEstimate runs the pipeline and then rolls up the estimate total.
// The total roll-up is separate from the pipeline on purpose: the pipeline
// only appends line items, this caller decides when sums are taken.
func (s *Service) ProcessEstimate(ctx context.Context, estimateUUID string) (*Output, error) {
	if err := s.runner.RunEstimate(ctx, estimateUUID); err != nil {
		if s.alerter != nil {
			s.alerter.AlertFailure(ctx, estimateUUID, err)
		}
		return nil, err
	}

	estimate, err := s.estimates.LoadByUUID(ctx, estimateUUID)
	if err != nil {
		return nil, err
	}

	total, err := s.runner.CalculateTotal(ctx, estimate.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("estimate processed", map[string]interface{}{
		"uuid":   estimateUUID,
		"status": string(estimate.Status),
		"total":  total,
	})

	return &Output{
		EstimateUUID: estimateUUID,
		Status:       string(estimate.Status),
		TotalAmount:  total,
	}, nil
}
