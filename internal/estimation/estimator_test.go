package estimation

import (
	"context"
	"errors"
	"testing"
	"time"

	"brightsigns-workers/internal/catalog"
	stderrors "brightsigns-workers/internal/common/errors"
	"brightsigns-workers/internal/common/logger"
	"brightsigns-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	failFor map[string]bool
	calls   []string
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls = append(s.calls, text)
	if s.failFor[text] {
		return nil, stderrors.NewEmbeddingFailedError(errors.New("quota exceeded"))
	}
	return []float32{0.1, 0.2}, nil
}

type stubSearcher struct {
	candidates []catalog.CandidateSummary
}

func (s *stubSearcher) Search(ctx context.Context, vector []float32, limit int) []catalog.CandidateSummary {
	return s.candidates
}

type stubResolver struct {
	guesses map[string]*LineItemGuess
	err     error
}

func (s *stubResolver) Resolve(ctx context.Context, requested string, candidates []catalog.CandidateSummary) (*LineItemGuess, error) {
	if s.err != nil {
		return nil, s.err
	}
	if guess, ok := s.guesses[requested]; ok {
		return guess, nil
	}
	return nil, &ResolutionError{Reason: "no guess configured"}
}

type stubExtractor struct {
	items []string
}

func (s *stubExtractor) Extract(ctx context.Context, text string) []string {
	return s.items
}

type memoryEstimateStore struct {
	estimate      *models.QuoteEstimate
	loadErr       error
	appendErr     error
	statusWrites  []models.EstimateStatus
	completedAt   *time.Time
	lineItems     []*models.QuoteEstimateLineItem
	sum           float64
	totalWritten  *float64
}

func (m *memoryEstimateStore) LoadByUUID(ctx context.Context, uuid string) (*models.QuoteEstimate, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.estimate, nil
}

func (m *memoryEstimateStore) UpdateStatus(ctx context.Context, id int64, status models.EstimateStatus, completedAt *time.Time) error {
	m.statusWrites = append(m.statusWrites, status)
	m.completedAt = completedAt
	return nil
}

func (m *memoryEstimateStore) AppendLineItem(ctx context.Context, item *models.QuoteEstimateLineItem) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.lineItems = append(m.lineItems, item)
	return nil
}

func (m *memoryEstimateStore) SumLineItemTotals(ctx context.Context, estimateID int64) (float64, error) {
	return m.sum, nil
}

func (m *memoryEstimateStore) UpdateTotalAmount(ctx context.Context, estimateID int64, total float64) error {
	m.totalWritten = &total
	return nil
}

type stubRequestStore struct {
	text string
	err  error
}

func (s *stubRequestStore) OriginalRequestText(ctx context.Context, requestID int64) (string, error) {
	return s.text, s.err
}

type recordingStatusRecorder struct {
	writes []models.EstimateStatus
	err    error
}

func (r *recordingStatusRecorder) RecordStatus(ctx context.Context, uuid string, status models.EstimateStatus) error {
	r.writes = append(r.writes, status)
	return r.err
}

func queuedEstimate() *models.QuoteEstimate {
	return &models.QuoteEstimate{
		ID:             7,
		UUID:           "est-uuid-1",
		QuoteRequestID: 3,
		Status:         models.StatusQueued,
	}
}

func aiGuess(name string) *LineItemGuess {
	return &LineItemGuess{Quantity: 1, Price: 0.0, TotalCost: 0.0, AIGenerated: true, ProductName: name}
}

func TestRunEstimate_TwoItemsEmptyCatalog(t *testing.T) {
	store := &memoryEstimateStore{estimate: queuedEstimate()}
	recorder := &recordingStatusRecorder{}

	est := NewEstimator(
		&stubExtractor{items: []string{"2 banners 24x36", "1 yard sign 18x24"}},
		&stubResolver{guesses: map[string]*LineItemGuess{
			"2 banners 24x36":    aiGuess("Banner"),
			"1 yard sign 18x24":  aiGuess("Yard Sign"),
		}},
		&stubEmbedder{},
		&stubSearcher{},
		store,
		&stubRequestStore{text: "2 banners 24x36 and 1 yard sign 18x24"},
		recorder,
		logger.NewNoOpLogger(),
	)

	err := est.RunEstimate(context.Background(), "est-uuid-1")
	require.NoError(t, err)

	require.Len(t, store.lineItems, 2)
	for _, item := range store.lineItems {
		assert.Equal(t, 0.0, item.UnitPrice)
		assert.Equal(t, 0.0, item.SimilarityScore)
		assert.Equal(t, int64(7), item.QuoteEstimateID)
	}

	assert.Equal(t, []models.EstimateStatus{models.StatusProcessing, models.StatusCompleted}, store.statusWrites)
	require.NotNil(t, store.completedAt)
	assert.Equal(t, []models.EstimateStatus{models.StatusProcessing, models.StatusCompleted}, recorder.writes)
}

func TestRunEstimate_LoadNotFoundWritesNoStatus(t *testing.T) {
	store := &memoryEstimateStore{loadErr: stderrors.NewEstimateNotFoundError("missing")}

	est := NewEstimator(
		&stubExtractor{}, &stubResolver{}, &stubEmbedder{}, &stubSearcher{},
		store, &stubRequestStore{}, nil, logger.NewNoOpLogger(),
	)

	err := est.RunEstimate(context.Background(), "missing")
	require.Error(t, err)

	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeEstimateNotFound, stdErr.Code)
	assert.Empty(t, store.statusWrites)
}

func TestRunEstimate_EmbedFailureSkipsItemOnly(t *testing.T) {
	store := &memoryEstimateStore{estimate: queuedEstimate()}

	est := NewEstimator(
		&stubExtractor{items: []string{"a banner", "a sign", "a decal"}},
		&stubResolver{guesses: map[string]*LineItemGuess{
			"a banner": aiGuess("Banner"),
			"a decal":  aiGuess("Decal"),
		}},
		&stubEmbedder{failFor: map[string]bool{"a sign": true}},
		&stubSearcher{},
		store,
		&stubRequestStore{text: "a banner, a sign and a decal"},
		nil,
		logger.NewNoOpLogger(),
	)

	err := est.RunEstimate(context.Background(), "est-uuid-1")
	require.NoError(t, err)

	assert.Len(t, store.lineItems, 2)
	assert.Equal(t, []models.EstimateStatus{models.StatusProcessing, models.StatusCompleted}, store.statusWrites)
}

func TestRunEstimate_ResolutionFailureProducesNoLineItem(t *testing.T) {
	store := &memoryEstimateStore{estimate: queuedEstimate()}

	est := NewEstimator(
		&stubExtractor{items: []string{"a unicorn"}},
		&stubResolver{},
		&stubEmbedder{},
		&stubSearcher{},
		store,
		&stubRequestStore{text: "a unicorn"},
		nil,
		logger.NewNoOpLogger(),
	)

	err := est.RunEstimate(context.Background(), "est-uuid-1")
	require.NoError(t, err)

	assert.Empty(t, store.lineItems)
	assert.Equal(t, []models.EstimateStatus{models.StatusProcessing, models.StatusCompleted}, store.statusWrites)
}

func TestRunEstimate_PersistFailureMarksFailed(t *testing.T) {
	store := &memoryEstimateStore{
		estimate:  queuedEstimate(),
		appendErr: stderrors.NewLineItemPersistFailedError(errors.New("disk full")),
	}

	est := NewEstimator(
		&stubExtractor{items: []string{"a banner"}},
		&stubResolver{guesses: map[string]*LineItemGuess{"a banner": aiGuess("Banner")}},
		&stubEmbedder{},
		&stubSearcher{},
		store,
		&stubRequestStore{text: "a banner"},
		nil,
		logger.NewNoOpLogger(),
	)

	err := est.RunEstimate(context.Background(), "est-uuid-1")
	require.Error(t, err)

	assert.Equal(t, []models.EstimateStatus{models.StatusProcessing, models.StatusFailed}, store.statusWrites)
	assert.Nil(t, store.completedAt)
}

func TestRunEstimate_RequestTextFailureMarksFailed(t *testing.T) {
	store := &memoryEstimateStore{estimate: queuedEstimate()}

	est := NewEstimator(
		&stubExtractor{}, &stubResolver{}, &stubEmbedder{}, &stubSearcher{},
		store,
		&stubRequestStore{err: stderrors.NewRequestNotFoundError(3)},
		nil,
		logger.NewNoOpLogger(),
	)

	err := est.RunEstimate(context.Background(), "est-uuid-1")
	require.Error(t, err)
	assert.Equal(t, []models.EstimateStatus{models.StatusProcessing, models.StatusFailed}, store.statusWrites)
}

func TestRunEstimate_RecorderFailureIsNonFatal(t *testing.T) {
	store := &memoryEstimateStore{estimate: queuedEstimate()}
	recorder := &recordingStatusRecorder{err: errors.New("redis down")}

	est := NewEstimator(
		&stubExtractor{items: []string{"a banner"}},
		&stubResolver{guesses: map[string]*LineItemGuess{"a banner": aiGuess("Banner")}},
		&stubEmbedder{},
		&stubSearcher{},
		store,
		&stubRequestStore{text: "a banner"},
		recorder,
		logger.NewNoOpLogger(),
	)

	err := est.RunEstimate(context.Background(), "est-uuid-1")
	require.NoError(t, err)
}

func TestBuildLineItem_Defaults(t *testing.T) {
	item := buildLineItem(1, &LineItemGuess{})

	assert.Equal(t, "Unknown Product", item.Name)
	assert.Equal(t, "", item.Description)
	assert.Equal(t, 0, item.Quantity)
	assert.Equal(t, 0.0, item.UnitPrice)
	assert.Equal(t, 0.0, item.TotalPrice)
	assert.Equal(t, 1.0, item.SimilarityScore)
}

func TestBuildLineItem_TrustsModelTotal(t *testing.T) {
	item := buildLineItem(1, &LineItemGuess{Quantity: 2, Price: 10, TotalCost: 19.5})
	assert.Equal(t, 19.5, item.TotalPrice)
}

func TestBuildLineItem_RecomputesMissingTotal(t *testing.T) {
	item := buildLineItem(1, &LineItemGuess{Quantity: 3, Price: 12.5})
	assert.Equal(t, 37.5, item.TotalPrice)
}

func TestCalculateTotal(t *testing.T) {
	store := &memoryEstimateStore{sum: 123.45}

	est := NewEstimator(
		&stubExtractor{}, &stubResolver{}, &stubEmbedder{}, &stubSearcher{},
		store, &stubRequestStore{}, nil, logger.NewNoOpLogger(),
	)

	total, err := est.CalculateTotal(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 123.45, total)
	require.NotNil(t, store.totalWritten)
	assert.Equal(t, 123.45, *store.totalWritten)
}

func TestRunEstimate_RerunCompletedAppendsAgain(t *testing.T) {
	estimate := queuedEstimate()
	estimate.Status = models.StatusCompleted
	store := &memoryEstimateStore{estimate: estimate}

	est := NewEstimator(
		&stubExtractor{items: []string{"a banner"}},
		&stubResolver{guesses: map[string]*LineItemGuess{"a banner": aiGuess("Banner")}},
		&stubEmbedder{},
		&stubSearcher{},
		store,
		&stubRequestStore{text: "a banner"},
		nil,
		logger.NewNoOpLogger(),
	)

	err := est.RunEstimate(context.Background(), "est-uuid-1")
	require.NoError(t, err)

	assert.Len(t, store.lineItems, 1)
	assert.Equal(t, []models.EstimateStatus{models.StatusProcessing, models.StatusCompleted}, store.statusWrites)
}

func TestRunEstimate_RetryAfterFailureRuns(t *testing.T) {
	estimate := queuedEstimate()
	estimate.Status = models.StatusFailed
	store := &memoryEstimateStore{estimate: estimate}

	est := NewEstimator(
		&stubExtractor{items: []string{"a banner"}},
		&stubResolver{guesses: map[string]*LineItemGuess{"a banner": aiGuess("Banner")}},
		&stubEmbedder{},
		&stubSearcher{},
		store,
		&stubRequestStore{text: "a banner"},
		nil,
		logger.NewNoOpLogger(),
	)

	err := est.RunEstimate(context.Background(), "est-uuid-1")
	require.NoError(t, err)

	assert.Len(t, store.lineItems, 1)
	assert.Equal(t, []models.EstimateStatus{models.StatusProcessing, models.StatusCompleted}, store.statusWrites)
	require.NotNil(t, store.completedAt)
}

func TestRunEstimate_InFlightEstimateRejected(t *testing.T) {
	estimate := queuedEstimate()
	estimate.Status = models.StatusProcessing
	store := &memoryEstimateStore{estimate: estimate}

	est := NewEstimator(
		&stubExtractor{items: []string{"a banner"}},
		&stubResolver{}, &stubEmbedder{}, &stubSearcher{},
		store, &stubRequestStore{text: "a banner"}, nil, logger.NewNoOpLogger(),
	)

	err := est.RunEstimate(context.Background(), "est-uuid-1")
	require.Error(t, err)

	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeEstimateStatusInvalid, stdErr.Code)
	assert.Empty(t, store.statusWrites)
	assert.Empty(t, store.lineItems)
}
