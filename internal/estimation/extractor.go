// Package estimation turns a raw quote request into priced line items. It
// sequences extraction, embedding, catalog search and resolution, and owns
// the estimate status state machine.
package estimation

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"brightsigns-workers/internal/common/logger"
	"brightsigns-workers/internal/common/validation"
)

// ChatCompleter is the chat endpoint used by the extractor and resolver.
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error)
}

const extractorSystemPrompt = `You are an assistant that extracts product requests from customer quote queries, excluding any illegal or outrageous requests.
Given a user's request, return an array of strings, each string representing a distinct product or item the user is asking for, staying as close as possible to the user's original wording.
If the user is unsure about the product, you can infer the most likely product based on the context.
Return a JSON array of strings, where each string is a distinct product or item mentioned in the input, even if separated by phrases like "and", "also", or "as well as". Always capture every distinct product request in the input.

Examples:
Input: "I need 2 banners 24x36 and 1 yard sign 18x24"
Output: ["2 banners 24x36", "1 yard sign 18x24"]

Input: "One 4x8 sign, two 2x3 signs, and a 3x5 banner"
Output: ["One 4x8 sign", "two 2x3 signs", "a 3x5 banner"]

Input: "I need something for my storefront window"
Output: ["vinyl window graphic"]

Input: "something to hand out at events"
Output: ["flyers"]
`

var jsonArrayPattern = regexp.MustCompile(`(?s)\[[^\]]*\]`)

// Extractor splits a raw multi-item request into individual item strings.
type Extractor struct {
	chat   ChatCompleter
	logger logger.Logger
}

func NewExtractor(chat ChatCompleter, log logger.Logger) *Extractor {
	return &Extractor{chat: chat, logger: log}
}

// Extract returns the distinct item strings found in text. The result is
// never empty: when the model output is unparseable, or the call fails, the
// whole trimmed input is returned as a single item.
func (e *Extractor) Extract(ctx context.Context, text string) []string {
	content, err := e.chat.ChatCompletion(ctx, extractorSystemPrompt, text, 0.0, 5000)
	if err != nil {
		e.logger.Warn("extraction call failed, falling back to raw text", map[string]interface{}{
			"error": err.Error(),
		})
		return []string{strings.TrimSpace(text)}
	}

	if items, ok := parseItemArray(content); ok {
		return items
	}

	// Lenient phase: pull the first bracketed region out of surrounding prose.
	if match := jsonArrayPattern.FindString(content); match != "" {
		if items, ok := parseItemArray(match); ok {
			return items
		}
	}

	e.logger.Warn("extraction response unparseable, falling back to raw text", map[string]interface{}{
		"response": content,
	})
	return []string{strings.TrimSpace(text)}
}

func parseItemArray(document string) ([]string, bool) {
	if err := validation.ValidateExtractedItems(document); err != nil {
		return nil, false
	}

	var items []string
	if err := json.Unmarshal([]byte(document), &items); err != nil {
		return nil, false
	}
	if len(items) == 0 {
		return nil, false
	}

	for i := range items {
		items[i] = strings.TrimSpace(items[i])
	}
	return items, true
}
