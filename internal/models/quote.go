// internal/models/quote.go
package models

import "time"

// QuoteRequest is the customer-supplied submission: identity plus the raw
// free-text request. One estimate exists per request.
type QuoteRequest struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	OriginalRequest string    `json:"original_request"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// QuoteEstimate is the processing unit for one quote request. It is addressed
// externally by UUID and carries the estimation status.
type QuoteEstimate struct {
	ID             int64          `json:"id"`
	UUID           string         `json:"uuid"`
	QuoteRequestID int64          `json:"quote_request_id"`
	Status         EstimateStatus `json:"status"`
	TotalAmount    *float64       `json:"total_amount,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// QuoteEstimateLineItem is one resolved product entry within an estimate.
// Line items are append-only; they are never updated in place.
type QuoteEstimateLineItem struct {
	ID              int64     `json:"id"`
	QuoteEstimateID int64     `json:"quote_estimate_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Quantity        int       `json:"quantity"`
	UnitPrice       float64   `json:"unit_price"`
	TotalPrice      float64   `json:"total_price"`
	ProductID       string    `json:"product_id,omitempty"`
	SimilarityScore float64   `json:"similarity_score"`
	CreatedAt       time.Time `json:"created_at"`
}
