// Package catalog performs vector similarity search over the product index
// and renders candidates into the plain-text form the resolver consumes.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"brightsigns-workers/internal/common/config"
	"brightsigns-workers/internal/common/logger"

	"github.com/elastic/go-elasticsearch/v8"
)

// PriceTier is one quantity/price entry on a catalog product.
type PriceTier struct {
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	VariantID int     `json:"variant_id"`
}

// CandidateSummary is a catalog match returned by similarity search.
type CandidateSummary struct {
	ProductName string      `json:"product_name"`
	Prices      []PriceTier `json:"prices"`
	Score       float64     `json:"score"`
	ProductID   string      `json:"product_id,omitempty"`
}

// Render flattens the candidate into the line format the resolver prompt
// expects: "<name> - each <qty>: $<price> size inches (<w> x <h>), ...".
// Tier quantity is floored at 1 and two-sided variants are flagged.
func (c CandidateSummary) Render() string {
	if len(c.Prices) == 0 {
		return c.ProductName + " - No prices available"
	}

	var b strings.Builder
	for _, tier := range c.Prices {
		qty := tier.Quantity
		if qty < 1 {
			qty = 1
		}
		sided := ""
		if tier.VariantID == 2 {
			sided = "(2-sided)"
		}
		b.WriteString(fmt.Sprintf("each %d: $%s size inches (%s x %s) %s, ",
			qty,
			strconv.FormatFloat(tier.Price, 'f', -1, 64),
			strconv.FormatFloat(tier.Width, 'f', -1, 64),
			strconv.FormatFloat(tier.Height, 'f', -1, 64),
			sided,
		))
	}

	return c.ProductName + " - " + strings.TrimRight(b.String(), ", ")
}

// RenderAll renders every candidate on its own line.
func RenderAll(candidates []CandidateSummary) []string {
	lines := make([]string, 0, len(candidates))
	for _, c := range candidates {
		lines = append(lines, c.Render())
	}
	return lines
}

// Searcher runs kNN queries against the product index.
type Searcher struct {
	es     *elasticsearch.Client
	cfg    config.CatalogConfig
	logger logger.Logger
}

func NewSearcher(es *elasticsearch.Client, cfg config.CatalogConfig, log logger.Logger) *Searcher {
	return &Searcher{es: es, cfg: cfg, logger: log}
}

type knnHit struct {
	ID     string  `json:"_id"`
	Score  float64 `json:"_score"`
	Source struct {
		ProductName string      `json:"product_name"`
		Prices      []PriceTier `json:"prices"`
	} `json:"_source"`
}

type knnResponse struct {
	Hits struct {
		Hits []knnHit `json:"hits"`
	} `json:"hits"`
}

// Search returns up to limit nearest candidates for the given vector.
// Any search-layer failure is logged and yields an empty list so that one
// bad lookup never aborts an estimate.
func (s *Searcher) Search(ctx context.Context, vector []float32, limit int) []CandidateSummary {
	if limit <= 0 {
		limit = s.cfg.Limit
	}

	query := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          s.cfg.VectorField,
			"query_vector":   vector,
			"k":              limit,
			"num_candidates": s.cfg.NumCandidates,
		},
		"size":    limit,
		"_source": []string{"product_name", "prices"},
	}

	body, err := json.Marshal(query)
	if err != nil {
		s.logger.Warn("failed to marshal knn query", map[string]interface{}{"error": err.Error()})
		return nil
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.cfg.Index),
		s.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		s.logger.Warn("catalog search failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	defer res.Body.Close()

	if res.IsError() {
		s.logger.Warn("catalog search returned error", map[string]interface{}{"status": res.Status()})
		return nil
	}

	var parsed knnResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		s.logger.Warn("failed to decode catalog search response", map[string]interface{}{"error": err.Error()})
		return nil
	}

	candidates := make([]CandidateSummary, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		candidates = append(candidates, CandidateSummary{
			ProductName: hit.Source.ProductName,
			Prices:      hit.Source.Prices,
			Score:       hit.Score,
			ProductID:   hit.ID,
		})
	}
	return candidates
}
