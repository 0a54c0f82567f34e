package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gunaso/grievance-service/internal/domain"
)

// ErrNotConfigured means no API credential was supplied at start-up.
var ErrNotConfigured = errors.New("ai classifier not configured")

// ErrMalformedResponse wraps model output that does not decode into a category and priority.
var ErrMalformedResponse = errors.New("malformed classifier response")

// ErrRejected wraps upstream responses that retrying cannot fix, such as a bad credential.
var ErrRejected = errors.New("classifier request rejected")

// Classifier suggests a category and priority for a complaint.
type Classifier interface {
	// Configured is false when Classify would fail with ErrNotConfigured.
	Configured() bool
	Classify(ctx context.Context, title, description string) (domain.Enrichment, error)
}

// SystemPrompt instructs the model to answer with the two-key JSON object parsed by ParseClassification.
const SystemPrompt = `You are a grievance analysis bot for a national government portal.
Analyze the following complaint text.
Respond ONLY with a valid JSON object (no markdown, no other text).
The JSON object must have exactly two keys:
1. "category": A concise category for the complaint (e.g., "Corruption / Bribe", "Service Delay", "Officer Misconduct", "Policy Issue", "Infrastructure Problem", "Public Safety", "Other").
2. "priority": Your suggested priority ("LOW", "MEDIUM", or "HIGH").`

// UserPrompt formats the complaint text sent to the model.
func UserPrompt(title, description string) string {
	return fmt.Sprintf("Title: %s\nDetails: %s", strings.TrimSpace(title), strings.TrimSpace(description))
}

// ParseClassification decodes the model's JSON answer. Markdown code fences are tolerated; any
// missing key, extra key or unknown priority is ErrMalformedResponse.
func ParseClassification(raw string) (domain.Enrichment, error) {
	text := stripFences(raw)
	if text == "" {
		return domain.Enrichment{}, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return domain.Enrichment{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(fields) != 2 {
		return domain.Enrichment{}, fmt.Errorf("%w: expected 2 keys, got %d", ErrMalformedResponse, len(fields))
	}

	var category, priority string
	if err := decodeString(fields, "category", &category); err != nil {
		return domain.Enrichment{}, err
	}
	if err := decodeString(fields, "priority", &priority); err != nil {
		return domain.Enrichment{}, err
	}

	result := domain.Enrichment{
		Category: strings.TrimSpace(category),
		Priority: domain.Priority(strings.ToUpper(strings.TrimSpace(priority))),
	}
	if result.Category == "" {
		return domain.Enrichment{}, fmt.Errorf("%w: empty category", ErrMalformedResponse)
	}
	if !result.Priority.Valid() {
		return domain.Enrichment{}, fmt.Errorf("%w: unknown priority %q", ErrMalformedResponse, priority)
	}
	return result, nil
}

func decodeString(fields map[string]json.RawMessage, key string, dst *string) error {
	raw, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w: missing %q", ErrMalformedResponse, key)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %q is not a string", ErrMalformedResponse, key)
	}
	return nil
}

func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}
