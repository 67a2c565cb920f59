// internal/estimation/estimator.go
package estimation

import (
	"context"
	goerrors "errors"
	"strings"
	"time"

	"brightsigns-workers/internal/catalog"
	stderrors "brightsigns-workers/internal/common/errors"
	"brightsigns-workers/internal/common/logger"
	"brightsigns-workers/internal/common/metrics"
	"brightsigns-workers/internal/models"
)

// Embedder converts one item string into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CatalogSearcher returns nearest catalog candidates for a vector. A limit of
// zero means the searcher's configured default.
type CatalogSearcher interface {
	Search(ctx context.Context, vector []float32, limit int) []catalog.CandidateSummary
}

// ItemExtractor splits raw request text into item strings.
type ItemExtractor interface {
	Extract(ctx context.Context, text string) []string
}

// ItemResolver produces a line item guess for one item string.
type ItemResolver interface {
	Resolve(ctx context.Context, requestedProduct string, candidates []catalog.CandidateSummary) (*LineItemGuess, error)
}

// EstimateStore persists estimates and their line items.
type EstimateStore interface {
	LoadByUUID(ctx context.Context, uuid string) (*models.QuoteEstimate, error)
	UpdateStatus(ctx context.Context, id int64, status models.EstimateStatus, completedAt *time.Time) error
	AppendLineItem(ctx context.Context, item *models.QuoteEstimateLineItem) error
	SumLineItemTotals(ctx context.Context, estimateID int64) (float64, error)
	UpdateTotalAmount(ctx context.Context, estimateID int64, total float64) error
}

// RequestStore reads the parent quote request.
type RequestStore interface {
	OriginalRequestText(ctx context.Context, requestID int64) (string, error)
}

// StatusRecorder mirrors status transitions to a secondary store. Recorder
// failures never affect the pipeline.
type StatusRecorder interface {
	RecordStatus(ctx context.Context, uuid string, status models.EstimateStatus) error
}

// Estimator runs the estimation pipeline for one estimate at a time.
type Estimator struct {
	extractor ItemExtractor
	resolver  ItemResolver
	embedder  Embedder
	searcher  CatalogSearcher
	estimates EstimateStore
	requests  RequestStore
	recorder  StatusRecorder // optional
	logger    logger.Logger
}

func NewEstimator(
	extractor ItemExtractor,
	resolver ItemResolver,
	embedder Embedder,
	searcher CatalogSearcher,
	estimates EstimateStore,
	requests RequestStore,
	recorder StatusRecorder,
	log logger.Logger,
) *Estimator {
	return &Estimator{
		extractor: extractor,
		resolver:  resolver,
		embedder:  embedder,
		searcher:  searcher,
		estimates: estimates,
		requests:  requests,
		recorder:  recorder,
		logger:    log,
	}
}

// RunEstimate processes the estimate addressed by uuid end to end. A load
// failure propagates with no status written. Once the estimate enters
// processing, any error that escapes the per-item skip logic marks it failed
// (no completion timestamp) and is returned to the caller for its retry
// policy; the retry re-enters processing from failed. Re-running a completed
// estimate starts over and appends duplicate line items, so callers must not
// re-dispatch finished work.
func (e *Estimator) RunEstimate(ctx context.Context, uuid string) error {
	start := time.Now()

	estimate, err := e.estimates.LoadByUUID(ctx, uuid)
	if err != nil {
		return err
	}

	if err := e.transition(ctx, estimate, models.EventStart, nil); err != nil {
		return err
	}

	if err := e.process(ctx, estimate); err != nil {
		if failErr := e.transition(ctx, estimate, models.EventFail, nil); failErr != nil {
			e.logger.Error("failed to mark estimate failed", map[string]interface{}{
				"uuid":  uuid,
				"error": failErr.Error(),
			})
		}
		metrics.EstimatesFailed.WithLabelValues(errorLabel(err)).Inc()
		return err
	}

	completedAt := time.Now().UTC()
	if err := e.transition(ctx, estimate, models.EventComplete, &completedAt); err != nil {
		return err
	}

	metrics.EstimatesCompleted.Inc()
	metrics.EstimateDuration.Observe(time.Since(start).Seconds())
	return nil
}

func (e *Estimator) process(ctx context.Context, estimate *models.QuoteEstimate) error {
	text, err := e.requests.OriginalRequestText(ctx, estimate.QuoteRequestID)
	if err != nil {
		return err
	}

	items := e.extractor.Extract(ctx, text)
	e.logger.Info("extracted items", map[string]interface{}{
		"uuid":  estimate.UUID,
		"count": len(items),
	})

	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			metrics.ItemsSkipped.WithLabelValues("empty").Inc()
			continue
		}

		vector, err := e.embedder.Embed(ctx, item)
		if err != nil {
			// One bad embedding never fails the whole estimate.
			e.logger.Warn("embedding failed, skipping item", map[string]interface{}{
				"uuid":  estimate.UUID,
				"item":  item,
				"error": err.Error(),
			})
			metrics.ItemsSkipped.WithLabelValues("embed_failed").Inc()
			continue
		}

		candidates := e.searcher.Search(ctx, vector, 0)

		guess, err := e.resolver.Resolve(ctx, item, candidates)
		if err != nil {
			e.logger.Warn("resolution failed, skipping item", map[string]interface{}{
				"uuid":  estimate.UUID,
				"item":  item,
				"error": err.Error(),
			})
			metrics.ItemsSkipped.WithLabelValues("resolution_failed").Inc()
			continue
		}

		lineItem := buildLineItem(estimate.ID, guess)
		if err := e.estimates.AppendLineItem(ctx, lineItem); err != nil {
			// Persistence errors are pipeline-fatal.
			return err
		}
		metrics.LineItemsPersisted.Inc()
	}

	return nil
}

// buildLineItem applies the persistence defaults to a resolver guess. The
// model's total_cost is trusted when set; otherwise the total is recomputed
// from quantity and unit price.
func buildLineItem(estimateID int64, guess *LineItemGuess) *models.QuoteEstimateLineItem {
	name := guess.ProductName
	if name == "" {
		name = "Unknown Product"
	}

	total := guess.TotalCost
	if total == 0 && guess.Quantity > 0 && guess.Price > 0 {
		total = float64(guess.Quantity) * guess.Price
	}

	similarity := 1.0
	if guess.AIGenerated {
		similarity = 0.0
	}

	return &models.QuoteEstimateLineItem{
		QuoteEstimateID: estimateID,
		Name:            name,
		Description:     guess.Description,
		Quantity:        guess.Quantity,
		UnitPrice:       guess.Price,
		TotalPrice:      total,
		SimilarityScore: similarity,
	}
}

// transition advances the status state machine, persists the new status and
// mirrors it to the recorder when one is configured.
func (e *Estimator) transition(ctx context.Context, estimate *models.QuoteEstimate, event models.StatusEvent, completedAt *time.Time) error {
	next, err := models.NextStatus(estimate.Status, event)
	if err != nil {
		return stderrors.NewEstimateStatusInvalidError(err.Error())
	}

	if err := e.estimates.UpdateStatus(ctx, estimate.ID, next, completedAt); err != nil {
		return err
	}
	estimate.Status = next
	estimate.CompletedAt = completedAt

	if e.recorder != nil {
		if err := e.recorder.RecordStatus(ctx, estimate.UUID, next); err != nil {
			e.logger.Warn("status recorder update failed", map[string]interface{}{
				"uuid":  estimate.UUID,
				"error": err.Error(),
			})
		}
	}
	return nil
}

// CalculateTotal sums the persisted line item totals and stores the result on
// the estimate. Separate from RunEstimate so callers decide when totals are
// rolled up.
func (e *Estimator) CalculateTotal(ctx context.Context, estimateID int64) (float64, error) {
	total, err := e.estimates.SumLineItemTotals(ctx, estimateID)
	if err != nil {
		return 0, err
	}
	if err := e.estimates.UpdateTotalAmount(ctx, estimateID, total); err != nil {
		return 0, err
	}
	return total, nil
}

func errorLabel(err error) string {
	var stdErr *stderrors.StandardError
	if goerrors.As(err, &stdErr) {
		return string(stdErr.Code)
	}
	return "internal"
}
