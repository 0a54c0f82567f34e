package service

import (
	"context"
	"strings"

	"github.com/gunaso/grievance-service/internal/domain"
	"github.com/gunaso/grievance-service/internal/repository"
	apperrors "github.com/gunaso/grievance-service/pkg/util/errorutil"
)

// ReferenceService manages ministries and departments.
type ReferenceService struct {
	ministries  repository.MinistryRepository
	departments repository.DepartmentRepository
}

// NewReferenceService builds the service.
func NewReferenceService(ministries repository.MinistryRepository, departments repository.DepartmentRepository) *ReferenceService {
	return &ReferenceService{ministries: ministries, departments: departments}
}

func (s *ReferenceService) ListMinistries(ctx context.Context) ([]domain.Ministry, error) {
	return s.ministries.List(ctx)
}

// ListDepartments lists departments, optionally only those of one ministry.
func (s *ReferenceService) ListDepartments(ctx context.Context, ministryID *string) ([]domain.Department, error) {
	if ministryID != nil && strings.TrimSpace(*ministryID) == "" {
		ministryID = nil
	}
	return s.departments.List(ctx, ministryID)
}

func (s *ReferenceService) CreateMinistry(ctx context.Context, actor *domain.Actor, name, description string) (*domain.Ministry, error) {
	if !isSuper(actor) {
		return nil, apperrors.NewForbidden("super role required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	ministry := &domain.Ministry{Name: name, Description: strings.TrimSpace(description)}
	if err := s.ministries.Create(ctx, ministry); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ministry, nil
}

// CreateDepartment adds a department; its name must be unique within the ministry.
func (s *ReferenceService) CreateDepartment(ctx context.Context, actor *domain.Actor, ministryID, name, description string) (*domain.Department, error) {
	if !isSuper(actor) {
		return nil, apperrors.NewForbidden("super role required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	if _, err := s.ministries.GetByID(ctx, ministryID); err != nil {
		return nil, notFoundAsValidation(err, "ministry_id", ministryID)
	}
	dept := &domain.Department{MinistryID: ministryID, Name: name, Description: strings.TrimSpace(description)}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}
