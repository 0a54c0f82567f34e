package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/gunaso/grievance-service/internal/config"
	"github.com/gunaso/grievance-service/internal/domain"
)

func TestParseClassification(t *testing.T) {
	got, err := ParseClassification(`{"category": "Infrastructure Problem", "priority": "medium"}`)
	require.NoError(t, err)
	assert.Equal(t, "Infrastructure Problem", got.Category)
	assert.Equal(t, domain.PriorityMedium, got.Priority)
}

func TestParseClassificationStripsFences(t *testing.T) {
	got, err := ParseClassification("```json\n{\"category\":\"Service Delay\",\"priority\":\"HIGH\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityHigh, got.Priority)
}

func TestParseClassificationRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"not json":         "Category: Other",
		"missing priority": `{"category":"Other"}`,
		"extra key":        `{"category":"Other","priority":"LOW","summary":"x"}`,
		"unknown priority": `{"category":"Other","priority":"URGENT"}`,
		"blank category":   `{"category":"  ","priority":"LOW"}`,
		"non-string":       `{"category":1,"priority":"LOW"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseClassification(raw)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestNewClassifierWithoutKeyIsDisabled(t *testing.T) {
	c, err := NewClassifier(context.Background(), config.AIConfig{})
	require.NoError(t, err)
	assert.False(t, c.Configured())

	_, err = c.Classify(context.Background(), "t", "d")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClassifyAPIError(t *testing.T) {
	rejected := classifyAPIError(fmt.Errorf("call: %w", genai.APIError{Code: 401}))
	assert.ErrorIs(t, rejected, ErrRejected)

	throttled := classifyAPIError(genai.APIError{Code: 429})
	assert.False(t, errors.Is(throttled, ErrRejected))
}

func TestUserPrompt(t *testing.T) {
	assert.Equal(t, "Title: Pothole\nDetails: Big hole on main road", UserPrompt(" Pothole ", "Big hole on main road"))
}
