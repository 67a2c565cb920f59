package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"brightsigns-workers/internal/common/config"
	"brightsigns-workers/internal/common/logger"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateSummary_Render(t *testing.T) {
	tests := []struct {
		name      string
		candidate CandidateSummary
		want      string
	}{
		{
			name: "single tier",
			candidate: CandidateSummary{
				ProductName: "Vinyl Banner",
				Prices: []PriceTier{
					{Quantity: 1, Price: 49.5, Width: 24, Height: 36, VariantID: 1},
				},
			},
			want: "Vinyl Banner - each 1: $49.5 size inches (24 x 36)",
		},
		{
			name: "two sided variant flagged",
			candidate: CandidateSummary{
				ProductName: "Yard Sign",
				Prices: []PriceTier{
					{Quantity: 10, Price: 8, Width: 18, Height: 24, VariantID: 2},
				},
			},
			want: "Yard Sign - each 10: $8 size inches (18 x 24) (2-sided)",
		},
		{
			name: "zero quantity floored to one",
			candidate: CandidateSummary{
				ProductName: "Decal",
				Prices: []PriceTier{
					{Quantity: 0, Price: 2.25, Width: 4, Height: 4},
				},
			},
			want: "Decal - each 1: $2.25 size inches (4 x 4)",
		},
		{
			name: "multiple tiers joined",
			candidate: CandidateSummary{
				ProductName: "Flyer",
				Prices: []PriceTier{
					{Quantity: 250, Price: 45, Width: 8.5, Height: 11},
					{Quantity: 500, Price: 70, Width: 8.5, Height: 11},
				},
			},
			want: "Flyer - each 250: $45 size inches (8.5 x 11) , each 500: $70 size inches (8.5 x 11)",
		},
		{
			name:      "no tiers",
			candidate: CandidateSummary{ProductName: "Mystery Product"},
			want:      "Mystery Product - No prices available",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.candidate.Render())
		})
	}
}

func newTestSearcher(t *testing.T, handler http.HandlerFunc) *Searcher {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)

	cfg := config.CatalogConfig{
		Index:         "products",
		VectorField:   "embedded",
		NumCandidates: 100,
		Limit:         3,
	}
	return NewSearcher(es, cfg, logger.NewNoOpLogger())
}

func TestSearch_DecodesHits(t *testing.T) {
	var gotBody map[string]interface{}
	searcher := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Write([]byte(`{
			"hits": {
				"hits": [
					{
						"_id": "p1",
						"_score": 0.92,
						"_source": {
							"product_name": "Vinyl Banner",
							"prices": [{"quantity": 1, "price": 49.5, "width": 24, "height": 36, "variant_id": 1}]
						}
					},
					{
						"_id": "p2",
						"_score": 0.81,
						"_source": {"product_name": "Mesh Banner", "prices": []}
					}
				]
			}
		}`))
	})

	candidates := searcher.Search(context.Background(), []float32{0.1, 0.2}, 0)
	require.Len(t, candidates, 2)

	assert.Equal(t, "Vinyl Banner", candidates[0].ProductName)
	assert.Equal(t, "p1", candidates[0].ProductID)
	assert.Equal(t, 0.92, candidates[0].Score)
	require.Len(t, candidates[0].Prices, 1)
	assert.Equal(t, 49.5, candidates[0].Prices[0].Price)

	assert.Empty(t, candidates[1].Prices)

	knn, ok := gotBody["knn"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "embedded", knn["field"])
	assert.Equal(t, float64(100), knn["num_candidates"])
	assert.Equal(t, float64(3), knn["k"])
}

func TestSearch_ServerErrorReturnsEmpty(t *testing.T) {
	searcher := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusInternalServerError)
	})

	candidates := searcher.Search(context.Background(), []float32{0.1}, 3)
	assert.Empty(t, candidates)
}

func TestSearch_MalformedResponseReturnsEmpty(t *testing.T) {
	searcher := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Write([]byte("not json"))
	})

	candidates := searcher.Search(context.Background(), []float32{0.1}, 3)
	assert.Empty(t, candidates)
}
