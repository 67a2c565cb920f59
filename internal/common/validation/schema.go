// Package validation checks model JSON output against fixed schemas before it
// reaches the persistence layer.
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// lineItemGuessSchema describes the object the resolution model must return
// for a single catalog item.
const lineItemGuessSchema = `{
	"type": "object",
	"properties": {
		"quantity": {"type": "integer", "minimum": 0},
		"width_inches": {"type": "number", "minimum": 0},
		"height_inches": {"type": "number", "minimum": 0},
		"price": {"type": "number", "minimum": 0},
		"total_cost": {"type": "number", "minimum": 0},
		"ai_generated": {"type": "boolean"},
		"product_name": {"type": "string"},
		"description": {"type": "string"}
	}
}`

// extractedItemsSchema describes the extraction model output: a JSON array of
// item description strings.
const extractedItemsSchema = `{
	"type": "array",
	"items": {"type": "string"}
}`

var (
	lineItemGuessLoader  = gojsonschema.NewStringLoader(lineItemGuessSchema)
	extractedItemsLoader = gojsonschema.NewStringLoader(extractedItemsSchema)
)

// ValidateLineItemGuess validates a raw resolver response document.
func ValidateLineItemGuess(document string) error {
	return validate(lineItemGuessLoader, document)
}

// ValidateExtractedItems validates a raw extractor response document.
func ValidateExtractedItems(document string) error {
	return validate(extractedItemsLoader, document)
}

func validate(schema gojsonschema.JSONLoader, document string) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewStringLoader(document))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("document failed validation: %s", strings.Join(msgs, "; "))
}
