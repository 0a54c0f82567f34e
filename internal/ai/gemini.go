package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/gunaso/grievance-service/internal/config"
	"github.com/gunaso/grievance-service/internal/domain"
)

// GeminiClassifier classifies complaints with the Gemini API.
type GeminiClassifier struct {
	client *genai.Client
	model  string
}

// NewClassifier returns a Gemini-backed classifier, or an unconfigured one when no API key is set.
// Nothing is dialed until the first Classify call.
func NewClassifier(ctx context.Context, cfg config.AIConfig) (Classifier, error) {
	if !cfg.Configured() {
		return Disabled{}, nil
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		if !strings.Contains(endpoint, "://") {
			endpoint = "https://" + endpoint
		}
		cc.HTTPOptions.BaseURL = strings.TrimSuffix(endpoint, "/") + "/"
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClassifier{client: client, model: cfg.Model}, nil
}

// Configured implements Classifier.
func (g *GeminiClassifier) Configured() bool { return true }

// Classify implements Classifier.
func (g *GeminiClassifier) Classify(ctx context.Context, title, description string) (domain.Enrichment, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(UserPrompt(title, description)), &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: SystemPrompt}}},
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return domain.Enrichment{}, classifyAPIError(err)
	}
	return ParseClassification(resp.Text())
}

func classifyAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrRejected, err)
		}
	}
	return err
}

// Disabled is the classifier used without credentials.
type Disabled struct{}

// Configured implements Classifier.
func (Disabled) Configured() bool { return false }

// Classify implements Classifier.
func (Disabled) Classify(context.Context, string, string) (domain.Enrichment, error) {
	return domain.Enrichment{}, ErrNotConfigured
}
