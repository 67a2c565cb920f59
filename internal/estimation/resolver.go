// internal/estimation/resolver.go
package estimation

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"brightsigns-workers/internal/catalog"
	"brightsigns-workers/internal/common/logger"
	"brightsigns-workers/internal/common/validation"
)

const resolverSystemPrompt = `You are a product matching assistant.
Given a requested product and a list of possible products (with their sizes and prices), select the closest match.
Return a JSON object with these fields only: quantity, width_inches, height_inches, price, total_cost, ai_generated (true/false), product_name, description (relevant to their query).

- If possibleProducts is empty, infer the most likely product (or products if multiple) and set "ai_generated" to true, set price to 0.00
- If possibleProducts is not empty, pick the closest match and set "ai_generated" to false.
- If possibleProducts is not empty, but there are no obvious matches, fallback to the functionality for empty possible products
- Ignore any non-relevant queries.
- Only return the JSON object, no extra text.
- If no exact quantity match, use the closest available quantity (for example, if user asks for 100, but closest available is 500, use 500).
- If a match was found, include the size in inches in the description
- If a match was found, include the 'per unit' price in the description (for example, if they order 1500, and the price is for 'per 250')

Examples:
Input: "I want a 24x36 sign, 2 pieces", possibleProducts: [...]
Output: {"quantity":2,"width_inches":24,"height_inches":36,"price":99.99,"total_cost":199.98,"ai_generated":false,"product_name":"Standard Sign","description":"A standard 24x36 sign suitable for outdoor use."}
`

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// LineItemGuess is the structured resolver output before persistence.
type LineItemGuess struct {
	Quantity     int     `json:"quantity"`
	WidthInches  float64 `json:"width_inches"`
	HeightInches float64 `json:"height_inches"`
	Price        float64 `json:"price"`
	TotalCost    float64 `json:"total_cost"`
	AIGenerated  bool    `json:"ai_generated"`
	ProductName  string  `json:"product_name"`
	Description  string  `json:"description"`
}

// ResolutionError carries the raw model text when no guess could be parsed.
type ResolutionError struct {
	Reason      string
	RawResponse string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution failed: %s", e.Reason)
}

// Resolver matches one requested item against catalog candidates through the
// chat endpoint.
type Resolver struct {
	chat   ChatCompleter
	logger logger.Logger
}

func NewResolver(chat ChatCompleter, log logger.Logger) *Resolver {
	return &Resolver{chat: chat, logger: log}
}

// Resolve returns the model's line item guess for the requested product. The
// rendered candidate summaries steer the model toward a catalog tier; with no
// candidates the model is instructed to infer and flag the item ai_generated.
func (r *Resolver) Resolve(ctx context.Context, requestedProduct string, candidates []catalog.CandidateSummary) (*LineItemGuess, error) {
	rendered := catalog.RenderAll(candidates)
	encoded, err := json.Marshal(rendered)
	if err != nil {
		return nil, &ResolutionError{Reason: "failed to encode candidates: " + err.Error()}
	}

	userPrompt := fmt.Sprintf("Requested product: %q\nPossible products: %s", requestedProduct, encoded)

	content, err := r.chat.ChatCompletion(ctx, resolverSystemPrompt, userPrompt, 0.2, 10000)
	if err != nil {
		return nil, &ResolutionError{Reason: "chat completion failed: " + err.Error()}
	}

	if guess, ok := parseGuess(content); ok {
		return guess, nil
	}

	// Lenient phase: pull the outermost braced region out of surrounding prose.
	if match := jsonObjectPattern.FindString(content); match != "" {
		if guess, ok := parseGuess(match); ok {
			return guess, nil
		}
	}

	r.logger.Warn("resolver response unparseable", map[string]interface{}{
		"requestedProduct": requestedProduct,
		"response":         content,
	})
	return nil, &ResolutionError{Reason: "model response was not a valid guess", RawResponse: content}
}

func parseGuess(document string) (*LineItemGuess, bool) {
	if err := validation.ValidateLineItemGuess(document); err != nil {
		return nil, false
	}

	var guess LineItemGuess
	if err := json.Unmarshal([]byte(document), &guess); err != nil {
		return nil, false
	}
	return &guess, true
}
