// Package store implements Postgres persistence for quote requests,
// estimates and line items.
package store

import (
	"context"
	"database/sql"
	"time"

	stderrors "brightsigns-workers/internal/common/errors"
	"brightsigns-workers/internal/models"

	"github.com/google/uuid"
)

const (
	defaultRequestName  = "Anonymous"
	defaultRequestEmail = "anonymous@example.com"
)

// EstimateStore persists quote estimates and their line items.
type EstimateStore struct {
	db *sql.DB
}

func NewEstimateStore(db *sql.DB) *EstimateStore {
	return &EstimateStore{db: db}
}

// LoadByUUID fetches one estimate by its external UUID.
func (s *EstimateStore) LoadByUUID(ctx context.Context, estimateUUID string) (*models.QuoteEstimate, error) {
	query := `SELECT id, uuid, quote_request_id, status, total_amount, notes, completed_at, created_at, updated_at
		FROM quote_estimates WHERE uuid = $1`

	var (
		estimate    models.QuoteEstimate
		totalAmount sql.NullFloat64
		notes       sql.NullString
		completedAt sql.NullTime
	)

	err := s.db.QueryRowContext(ctx, query, estimateUUID).Scan(
		&estimate.ID,
		&estimate.UUID,
		&estimate.QuoteRequestID,
		&estimate.Status,
		&totalAmount,
		&notes,
		&completedAt,
		&estimate.CreatedAt,
		&estimate.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, stderrors.NewEstimateNotFoundError(estimateUUID)
	}
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("load estimate", err)
	}

	if totalAmount.Valid {
		estimate.TotalAmount = &totalAmount.Float64
	}
	if notes.Valid {
		estimate.Notes = notes.String
	}
	if completedAt.Valid {
		estimate.CompletedAt = &completedAt.Time
	}
	return &estimate, nil
}

// CreateEstimate inserts a queued estimate for a request and returns it with
// a freshly generated UUID.
func (s *EstimateStore) CreateEstimate(ctx context.Context, requestID int64) (*models.QuoteEstimate, error) {
	query := `INSERT INTO quote_estimates (uuid, quote_request_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW()) RETURNING id, created_at, updated_at`

	estimate := &models.QuoteEstimate{
		UUID:           uuid.New().String(),
		QuoteRequestID: requestID,
		Status:         models.StatusQueued,
	}

	err := s.db.QueryRowContext(ctx, query, estimate.UUID, requestID, estimate.Status).
		Scan(&estimate.ID, &estimate.CreatedAt, &estimate.UpdatedAt)
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("create estimate", err)
	}
	return estimate, nil
}

// UpdateStatus writes a new status. completedAt is only set on completion and
// stays NULL for every other transition.
func (s *EstimateStore) UpdateStatus(ctx context.Context, id int64, status models.EstimateStatus, completedAt *time.Time) error {
	query := `UPDATE quote_estimates SET status = $1, completed_at = $2, updated_at = NOW() WHERE id = $3`

	result, err := s.db.ExecContext(ctx, query, status, completedAt, id)
	if err != nil {
		return stderrors.NewQueryExecutionFailedError("update estimate status", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return stderrors.NewEstimateNotFoundError("")
	}
	return nil
}

// AppendLineItem inserts one resolved line item. Line items are append-only.
func (s *EstimateStore) AppendLineItem(ctx context.Context, item *models.QuoteEstimateLineItem) error {
	query := `INSERT INTO quote_estimate_line_items
		(quote_estimate_id, name, description, quantity, unit_price, total_price, product_id, similarity_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW()) RETURNING id`

	err := s.db.QueryRowContext(ctx, query,
		item.QuoteEstimateID,
		item.Name,
		item.Description,
		item.Quantity,
		item.UnitPrice,
		item.TotalPrice,
		nullableString(item.ProductID),
		item.SimilarityScore,
	).Scan(&item.ID)
	if err != nil {
		return stderrors.NewLineItemPersistFailedError(err)
	}
	return nil
}

// LineItems returns the estimate's line items in insertion order.
func (s *EstimateStore) LineItems(ctx context.Context, estimateID int64) ([]models.QuoteEstimateLineItem, error) {
	query := `SELECT id, quote_estimate_id, name, description, quantity, unit_price, total_price, product_id, similarity_score, created_at
		FROM quote_estimate_line_items WHERE quote_estimate_id = $1 ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, estimateID)
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("list line items", err)
	}
	defer rows.Close()

	var items []models.QuoteEstimateLineItem
	for rows.Next() {
		var (
			item      models.QuoteEstimateLineItem
			productID sql.NullString
		)
		if err := rows.Scan(
			&item.ID,
			&item.QuoteEstimateID,
			&item.Name,
			&item.Description,
			&item.Quantity,
			&item.UnitPrice,
			&item.TotalPrice,
			&productID,
			&item.SimilarityScore,
			&item.CreatedAt,
		); err != nil {
			return nil, stderrors.NewQueryExecutionFailedError("scan line item", err)
		}
		if productID.Valid {
			item.ProductID = productID.String
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("iterate line items", err)
	}
	return items, nil
}

// SumLineItemTotals returns the sum of the estimate's line item totals.
func (s *EstimateStore) SumLineItemTotals(ctx context.Context, estimateID int64) (float64, error) {
	query := `SELECT COALESCE(SUM(total_price), 0) FROM quote_estimate_line_items WHERE quote_estimate_id = $1`

	var total float64
	if err := s.db.QueryRowContext(ctx, query, estimateID).Scan(&total); err != nil {
		return 0, stderrors.NewQueryExecutionFailedError("sum line item totals", err)
	}
	return total, nil
}

// UpdateTotalAmount stores the rolled-up estimate total.
func (s *EstimateStore) UpdateTotalAmount(ctx context.Context, estimateID int64, total float64) error {
	query := `UPDATE quote_estimates SET total_amount = $1, updated_at = NOW() WHERE id = $2`

	if _, err := s.db.ExecContext(ctx, query, total, estimateID); err != nil {
		return stderrors.NewQueryExecutionFailedError("update total amount", err)
	}
	return nil
}

// RequestStore persists quote requests.
type RequestStore struct {
	db *sql.DB
}

func NewRequestStore(db *sql.DB) *RequestStore {
	return &RequestStore{db: db}
}

// CreateQuoteRequest inserts a request. Name and email default to the
// anonymous placeholders until the submission is finalized.
func (s *RequestStore) CreateQuoteRequest(ctx context.Context, name, email, originalRequest string) (*models.QuoteRequest, error) {
	if name == "" {
		name = defaultRequestName
	}
	if email == "" {
		email = defaultRequestEmail
	}

	query := `INSERT INTO quote_requests (name, email, original_request, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW()) RETURNING id, created_at, updated_at`

	request := &models.QuoteRequest{
		Name:            name,
		Email:           email,
		OriginalRequest: originalRequest,
	}

	err := s.db.QueryRowContext(ctx, query, name, email, originalRequest).
		Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("create quote request", err)
	}
	return request, nil
}

// FinalizeQuoteRequest replaces the placeholder identity at submission time.
func (s *RequestStore) FinalizeQuoteRequest(ctx context.Context, requestID int64, name, email string) error {
	query := `UPDATE quote_requests SET name = $1, email = $2, updated_at = NOW() WHERE id = $3`

	result, err := s.db.ExecContext(ctx, query, name, email, requestID)
	if err != nil {
		return stderrors.NewQueryExecutionFailedError("finalize quote request", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return stderrors.NewRequestNotFoundError(requestID)
	}
	return nil
}

// OriginalRequestText returns the raw request text for an estimate's parent.
func (s *RequestStore) OriginalRequestText(ctx context.Context, requestID int64) (string, error) {
	query := `SELECT original_request FROM quote_requests WHERE id = $1`

	var text string
	err := s.db.QueryRowContext(ctx, query, requestID).Scan(&text)
	if err == sql.ErrNoRows {
		return "", stderrors.NewRequestNotFoundError(requestID)
	}
	if err != nil {
		return "", stderrors.NewQueryExecutionFailedError("load request text", err)
	}
	return text, nil
}

// RequestForEstimate loads the parent request of an estimate.
func (s *RequestStore) RequestForEstimate(ctx context.Context, estimateID int64) (*models.QuoteRequest, error) {
	query := `SELECT r.id, r.name, r.email, r.original_request, r.created_at, r.updated_at
		FROM quote_requests r
		JOIN quote_estimates e ON e.quote_request_id = r.id
		WHERE e.id = $1`

	var request models.QuoteRequest
	err := s.db.QueryRowContext(ctx, query, estimateID).Scan(
		&request.ID,
		&request.Name,
		&request.Email,
		&request.OriginalRequest,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, stderrors.NewRequestNotFoundError(estimateID)
	}
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("load request for estimate", err)
	}
	return &request, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
