package service

import (
	"context"

	"github.com/gunaso/grievance-service/internal/ai"
	"github.com/gunaso/grievance-service/internal/domain"
	"github.com/gunaso/grievance-service/internal/repository"
	apperrors "github.com/gunaso/grievance-service/pkg/util/errorutil"
)

// EnrichmentService performs a single classification attempt for a complaint.
type EnrichmentService struct {
	complaints repository.ComplaintRepository
	classifier ai.Classifier
}

// NewEnrichmentService constructs the service. A nil classifier behaves as unconfigured.
func NewEnrichmentService(complaints repository.ComplaintRepository, classifier ai.Classifier) *EnrichmentService {
	if classifier == nil {
		classifier = ai.Disabled{}
	}
	return &EnrichmentService{complaints: complaints, classifier: classifier}
}

// Configured reports whether enrichment can run at all.
func (s *EnrichmentService) Configured() bool {
	return s.classifier.Configured()
}

// Enrich classifies the complaint identified by trackingID and overwrites its AI fields.
// It returns ai.ErrNotConfigured without any I/O when no credential is set, and a NOT_FOUND
// DomainError when the complaint does not exist.
func (s *EnrichmentService) Enrich(ctx context.Context, trackingID string) (domain.Enrichment, error) {
	if !s.classifier.Configured() {
		return domain.Enrichment{}, ai.ErrNotConfigured
	}
	complaint, err := s.complaints.GetByTrackingID(ctx, trackingID)
	if err != nil {
		return domain.Enrichment{}, notFoundOr(err, trackingID)
	}

	result, err := s.classifier.Classify(ctx, complaint.Title, complaint.Description)
	if err != nil {
		return domain.Enrichment{}, err
	}
	if err := s.complaints.UpdateEnrichment(ctx, trackingID, result); err != nil {
		return domain.Enrichment{}, notFoundOr(err, trackingID)
	}
	return result, nil
}

func notFoundOr(err error, trackingID string) error {
	if isNotFound(err) {
		return apperrors.NewNotFound("complaint", map[string]any{"tracking_id": trackingID})
	}
	return err
}
