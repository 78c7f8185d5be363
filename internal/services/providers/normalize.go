package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/abtn/nexus-smart-scraper/internal/models"
)

var analysisValidator = validator.New()

// analysis is the raw JSON object a reasoning provider returns for a
// document. Fields are validated and normalized before anything is stored.
type analysis struct {
	Summary  string   `json:"summary" validate:"required"`
	Tags     []string `json:"tags"`
	Category string   `json:"category" validate:"required"`
	Urgency  int      `json:"urgency" validate:"min=1,max=10"`
}

// parseAnalysis decodes and normalizes a provider's analysis output.
// Any deviation from the contract is malformed output, which the caller
// treats as a recoverable failure of that provider.
func parseAnalysis(provider, raw string, maxSummaryChars int) (*analysis, error) {
	cleaned := stripCodeFence(raw)

	var result analysis
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, malformedOutput(provider, fmt.Errorf("decode analysis: %w", err))
	}

	if err := analysisValidator.Struct(&result); err != nil {
		return nil, malformedOutput(provider, fmt.Errorf("validate analysis: %w", err))
	}

	result.Category = strings.TrimSpace(result.Category)
	if !models.IsKnownCategory(result.Category) {
		return nil, malformedOutput(provider, errors.New("unknown category "+result.Category))
	}

	result.Summary = strings.TrimSpace(result.Summary)
	if maxSummaryChars > 0 && len(result.Summary) > maxSummaryChars {
		result.Summary = result.Summary[:maxSummaryChars]
	}

	result.Tags = normalizeTags(result.Tags)
	return &result, nil
}

// stripCodeFence removes a surrounding markdown code fence if the model
// wrapped its JSON in one.
func stripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
