package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	stderrors "brightsigns-workers/internal/common/errors"
	"brightsigns-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*EstimateStore, *RequestStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewEstimateStore(db), NewRequestStore(db), mock
}

func TestLoadByUUID_Found(t *testing.T) {
	estimates, _, mock := newMockDB(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "uuid", "quote_request_id", "status", "total_amount", "notes", "completed_at", "created_at", "updated_at",
	}).AddRow(7, "est-1", 3, "queued", nil, nil, nil, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, uuid, quote_request_id, status, total_amount, notes, completed_at, created_at, updated_at")).
		WithArgs("est-1").
		WillReturnRows(rows)

	estimate, err := estimates.LoadByUUID(context.Background(), "est-1")
	require.NoError(t, err)

	assert.Equal(t, int64(7), estimate.ID)
	assert.Equal(t, models.StatusQueued, estimate.Status)
	assert.Nil(t, estimate.TotalAmount)
	assert.Nil(t, estimate.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadByUUID_NotFound(t *testing.T) {
	estimates, _, mock := newMockDB(t)

	mock.ExpectQuery("SELECT id, uuid").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := estimates.LoadByUUID(context.Background(), "missing")
	require.Error(t, err)

	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeEstimateNotFound, stdErr.Code)
}

func TestCreateEstimate_GeneratesUUID(t *testing.T) {
	estimates, _, mock := newMockDB(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO quote_estimates")).
		WithArgs(sqlmock.AnyArg(), int64(3), models.StatusQueued).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(9, now, now))

	estimate, err := estimates.CreateEstimate(context.Background(), 3)
	require.NoError(t, err)

	assert.NotEmpty(t, estimate.UUID)
	assert.Equal(t, int64(9), estimate.ID)
	assert.Equal(t, models.StatusQueued, estimate.Status)
}

func TestUpdateStatus_SetsCompletedAt(t *testing.T) {
	estimates, _, mock := newMockDB(t)

	completedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE quote_estimates SET status")).
		WithArgs(models.StatusCompleted, &completedAt, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := estimates.UpdateStatus(context.Background(), 7, models.StatusCompleted, &completedAt)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_NoRowsIsNotFound(t *testing.T) {
	estimates, _, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE quote_estimates SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := estimates.UpdateStatus(context.Background(), 404, models.StatusFailed, nil)
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeEstimateNotFound, stdErr.Code)
}

func TestAppendLineItem(t *testing.T) {
	estimates, _, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO quote_estimate_line_items")).
		WithArgs(int64(7), "Banner", "a banner", 2, 49.5, 99.0, nil, 1.0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	item := &models.QuoteEstimateLineItem{
		QuoteEstimateID: 7,
		Name:            "Banner",
		Description:     "a banner",
		Quantity:        2,
		UnitPrice:       49.5,
		TotalPrice:      99.0,
		SimilarityScore: 1.0,
	}
	err := estimates.AppendLineItem(context.Background(), item)
	require.NoError(t, err)
	assert.Equal(t, int64(11), item.ID)
}

func TestAppendLineItem_FailureWrapped(t *testing.T) {
	estimates, _, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO quote_estimate_line_items")).
		WillReturnError(errors.New("disk full"))

	err := estimates.AppendLineItem(context.Background(), &models.QuoteEstimateLineItem{QuoteEstimateID: 7})
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeLineItemPersistFailed, stdErr.Code)
}

func TestSumLineItemTotals(t *testing.T) {
	estimates, _, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(total_price), 0)")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(123.45))

	total, err := estimates.SumLineItemTotals(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 123.45, total)
}

func TestLineItems_ScansRows(t *testing.T) {
	estimates, _, mock := newMockDB(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "quote_estimate_id", "name", "description", "quantity", "unit_price", "total_price", "product_id", "similarity_score", "created_at",
	}).
		AddRow(1, 7, "Banner", "b", 2, 49.5, 99.0, "p1", 1.0, now).
		AddRow(2, 7, "Unknown Product", "", 0, 0.0, 0.0, nil, 0.0, now)

	mock.ExpectQuery(regexp.QuoteMeta("FROM quote_estimate_line_items")).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	items, err := estimates.LineItems(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "p1", items[0].ProductID)
	assert.Empty(t, items[1].ProductID)
	assert.Equal(t, 0.0, items[1].SimilarityScore)
}

func TestCreateQuoteRequest_Defaults(t *testing.T) {
	_, requests, mock := newMockDB(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO quote_requests")).
		WithArgs("Anonymous", "anonymous@example.com", "2 banners").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(3, now, now))

	request, err := requests.CreateQuoteRequest(context.Background(), "", "", "2 banners")
	require.NoError(t, err)
	assert.Equal(t, "Anonymous", request.Name)
	assert.Equal(t, "anonymous@example.com", request.Email)
	assert.Equal(t, int64(3), request.ID)
}

func TestFinalizeQuoteRequest_NotFound(t *testing.T) {
	_, requests, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE quote_requests SET name")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := requests.FinalizeQuoteRequest(context.Background(), 404, "Jo", "jo@example.com")
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeRequestNotFound, stdErr.Code)
}

func TestOriginalRequestText(t *testing.T) {
	_, requests, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT original_request FROM quote_requests")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"original_request"}).AddRow("2 banners 24x36"))

	text, err := requests.OriginalRequestText(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "2 banners 24x36", text)
}

func TestRequestForEstimate(t *testing.T) {
	_, requests, mock := newMockDB(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("JOIN quote_estimates e ON e.quote_request_id = r.id")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "original_request", "created_at", "updated_at"}).
			AddRow(3, "Jo", "jo@example.com", "2 banners", now, now))

	request, err := requests.RequestForEstimate(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Jo", request.Name)
	assert.Equal(t, "jo@example.com", request.Email)
}
