package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gunaso/grievance-service/internal/domain"
	"github.com/gunaso/grievance-service/internal/events"
	"github.com/gunaso/grievance-service/internal/repository"
	apperrors "github.com/gunaso/grievance-service/pkg/util/errorutil"
)

// ComplaintService owns the complaint lifecycle: creation, scoped reads, status writes and remarks.
type ComplaintService struct {
	complaints  repository.ComplaintRepository
	updates     repository.ComplaintUpdateRepository
	ministries  repository.MinistryRepository
	departments repository.DepartmentRepository
	access      *AccessResolver
	dispatcher  events.Dispatcher
}

// ComplaintDependencies bundles repositories for complaint service.
type ComplaintDependencies struct {
	ComplaintRepo  repository.ComplaintRepository
	UpdateRepo     repository.ComplaintUpdateRepository
	MinistryRepo   repository.MinistryRepository
	DepartmentRepo repository.DepartmentRepository
	Access         *AccessResolver
	Dispatcher     events.Dispatcher
}

// ComplaintCreateInput describes complaint creation payload.
type ComplaintCreateInput struct {
	Title                string
	Description          string
	MinistryIDs          []string
	DepartmentIDs        []string
	SupportingDocument   *string
	GovernmentIDDocument *string
}

// ComplaintListFilter describes caller supplied list filters; scope is added by the service.
type ComplaintListFilter struct {
	Statuses   []domain.ComplaintStatus
	SearchTerm *string
	Limit      int
	Offset     int
}

// ComplaintDetail is a complaint with its history, newest first.
type ComplaintDetail struct {
	Complaint *domain.Complaint
	Updates   []domain.ComplaintUpdate
}

// LatestRemark is the text of the most recent update, if any.
func (d ComplaintDetail) LatestRemark() *string {
	if len(d.Updates) == 0 {
		return nil
	}
	text := d.Updates[0].Text
	return &text
}

// ComplaintStats counts visible complaints per status.
type ComplaintStats struct {
	Total    int
	ByStatus map[domain.ComplaintStatus]int
}

// StatusChangeResult reports what a status write actually committed.
type StatusChangeResult struct {
	Complaint *domain.Complaint
	// Update is nil when nothing was recorded.
	Update  *domain.ComplaintUpdate
	Changed bool
}

// NewComplaintService constructs the service.
func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	access := deps.Access
	if access == nil {
		access = NewAccessResolver()
	}
	return &ComplaintService{
		complaints:  deps.ComplaintRepo,
		updates:     deps.UpdateRepo,
		ministries:  deps.MinistryRepo,
		departments: deps.DepartmentRepo,
		access:      access,
		dispatcher:  deps.Dispatcher,
	}
}

// CreateComplaint files a complaint for a citizen. No history entry is written; the created
// event triggers enrichment.
func (s *ComplaintService) CreateComplaint(ctx context.Context, actor *domain.Actor, input ComplaintCreateInput) (*domain.Complaint, error) {
	if actor == nil || actor.UserID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if actor.Role != domain.RoleCitizen {
		return nil, apperrors.NewForbidden("only citizens can file complaints")
	}
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}
	ministryIDs := dedupe(input.MinistryIDs)
	if len(ministryIDs) == 0 {
		return nil, apperrors.NewValidationError("at least one ministry required", nil)
	}
	if input.GovernmentIDDocument == nil || strings.TrimSpace(*input.GovernmentIDDocument) == "" {
		return nil, apperrors.NewValidationError("government id document required", nil)
	}
	if err := s.checkTargets(ctx, ministryIDs, dedupe(input.DepartmentIDs)); err != nil {
		return nil, err
	}

	trackingID := uuid.NewString()
	complaint := &domain.Complaint{
		TrackingID:    trackingID,
		Title:         title,
		Description:   description,
		Status:        domain.StatusPending,
		CreatedBy:     actor.UserID,
		MinistryIDs:   ministryIDs,
		DepartmentIDs: dedupe(input.DepartmentIDs),
	}
	if input.SupportingDocument != nil && *input.SupportingDocument != "" {
		p := domain.DocumentPath(trackingID, *input.SupportingDocument)
		complaint.SupportingDocument = &p
	}
	idPath := domain.IDDocumentPath(actor.UserID, strings.TrimSpace(*input.GovernmentIDDocument))
	complaint.GovernmentIDDocument = &idPath

	if err := s.complaints.Create(ctx, complaint); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:       events.EventComplaintCreated,
		TrackingID: complaint.TrackingID,
		ActorID:    actor.UserID,
		Payload: events.ComplaintCreatedPayload{
			Title:       complaint.Title,
			MinistryIDs: complaint.MinistryIDs,
		},
	})
	return complaint, nil
}

// ListComplaints returns the complaints visible to actor, newest first.
func (s *ComplaintService) ListComplaints(ctx context.Context, actor *domain.Actor, filter ComplaintListFilter) ([]domain.Complaint, error) {
	repoFilter, ok := s.access.Scope(actor).Filter(repository.ComplaintFilter{
		Statuses:   filter.Statuses,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
	if !ok {
		return []domain.Complaint{}, nil
	}
	complaints, err := s.complaints.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}
	// the query already scopes; this keeps a misbuilt filter from leaking rows
	return s.access.Visible(actor, complaints), nil
}

// GetComplaint fetches a complaint by tracking id. Complaints outside the actor's scope are
// reported as not found.
func (s *ComplaintService) GetComplaint(ctx context.Context, actor *domain.Actor, trackingID string) (*ComplaintDetail, error) {
	complaint, err := s.visibleComplaint(ctx, actor, trackingID)
	if err != nil {
		return nil, err
	}
	updates, err := s.updates.ListByComplaint(ctx, complaint.ID)
	if err != nil {
		return nil, err
	}
	return &ComplaintDetail{Complaint: complaint, Updates: updates}, nil
}

// ListUpdates returns the history of one visible complaint, newest first.
func (s *ComplaintService) ListUpdates(ctx context.Context, actor *domain.Actor, trackingID string) ([]domain.ComplaintUpdate, error) {
	complaint, err := s.visibleComplaint(ctx, actor, trackingID)
	if err != nil {
		return nil, err
	}
	return s.updates.ListByComplaint(ctx, complaint.ID)
}

// Stats counts visible complaints per status.
func (s *ComplaintService) Stats(ctx context.Context, actor *domain.Actor) (*ComplaintStats, error) {
	stats := &ComplaintStats{ByStatus: make(map[domain.ComplaintStatus]int, len(domain.AllStatuses))}
	for _, status := range domain.AllStatuses {
		stats.ByStatus[status] = 0
	}
	repoFilter, ok := s.access.Scope(actor).Filter(repository.ComplaintFilter{})
	if !ok {
		return stats, nil
	}
	counts, err := s.complaints.CountByStatus(ctx, repoFilter)
	if err != nil {
		return nil, err
	}
	for status, n := range counts {
		stats.ByStatus[status] = n
		stats.Total += n
	}
	return stats, nil
}

// ChangeStatus sets a complaint's status. The prior status is read under the row lock so the
// recorded transition is always the committed one. An unchanged status writes nothing unless
// a remark is supplied, in which case a remark-only entry is appended.
func (s *ComplaintService) ChangeStatus(ctx context.Context, actor *domain.Actor, trackingID string, status domain.ComplaintStatus, remark string) (*StatusChangeResult, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}
	remark = strings.TrimSpace(remark)

	var result StatusChangeResult
	err := s.complaints.WithLock(ctx, trackingID, func(tx repository.ComplaintTx) error {
		current := tx.Complaint()
		if !s.access.CanMutate(actor, current, MutationStatus) {
			return apperrors.NewForbidden("not allowed to change this complaint")
		}
		result.Complaint = current

		oldStatus := current.Status
		if oldStatus == status {
			if remark == "" {
				return nil
			}
			entry := &domain.ComplaintUpdate{UserID: actor.UserID, Username: actor.Username, Text: remark}
			if err := tx.AppendUpdate(ctx, entry); err != nil {
				return err
			}
			result.Update = entry
			return nil
		}

		if err := tx.SetStatus(ctx, status); err != nil {
			return err
		}
		current.Status = status

		text := remark
		if text == "" {
			text = fmt.Sprintf("Status changed from %s to %s.", oldStatus, status)
		}
		entry := &domain.ComplaintUpdate{
			UserID:    actor.UserID,
			Username:  actor.Username,
			Text:      text,
			OldStatus: &oldStatus,
			NewStatus: &status,
		}
		if err := tx.AppendUpdate(ctx, entry); err != nil {
			return err
		}
		result.Update = entry
		result.Changed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("complaint", map[string]any{"tracking_id": trackingID})
		}
		return nil, apperrors.MapError(err)
	}

	switch {
	case result.Changed:
		s.publishEvent(ctx, events.Event{
			Type:       events.EventComplaintStatusChanged,
			TrackingID: trackingID,
			ActorID:    actor.UserID,
			Payload: events.StatusChangedPayload{
				OldStatus: *result.Update.OldStatus,
				NewStatus: *result.Update.NewStatus,
				UpdateID:  result.Update.ID,
				Remark:    remark,
				Text:      result.Update.Text,
			},
		})
	case result.Update != nil:
		s.publishRemark(ctx, trackingID, result.Update)
	}
	return &result, nil
}

// AddRemark appends a remark without touching status.
func (s *ComplaintService) AddRemark(ctx context.Context, actor *domain.Actor, trackingID, text string) (*domain.ComplaintUpdate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("remark text required", nil)
	}
	complaint, err := s.complaints.GetByTrackingID(ctx, trackingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("complaint", map[string]any{"tracking_id": trackingID})
		}
		return nil, apperrors.MapError(err)
	}
	if !s.access.CanMutate(actor, complaint, MutationRemark) {
		return nil, apperrors.NewForbidden("not allowed to remark on this complaint")
	}

	entry := &domain.ComplaintUpdate{
		ComplaintID: complaint.ID,
		UserID:      actor.UserID,
		Username:    actor.Username,
		Text:        text,
	}
	if err := s.updates.Create(ctx, entry); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishRemark(ctx, trackingID, entry)
	return entry, nil
}

func (s *ComplaintService) visibleComplaint(ctx context.Context, actor *domain.Actor, trackingID string) (*domain.Complaint, error) {
	complaint, err := s.complaints.GetByTrackingID(ctx, trackingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("complaint", map[string]any{"tracking_id": trackingID})
		}
		return nil, apperrors.MapError(err)
	}
	if !s.access.CanView(actor, complaint) {
		return nil, apperrors.NewNotFound("complaint", map[string]any{"tracking_id": trackingID})
	}
	return complaint, nil
}

// checkTargets verifies every ministry exists and every department belongs to a listed ministry.
func (s *ComplaintService) checkTargets(ctx context.Context, ministryIDs, departmentIDs []string) error {
	listed := make(map[string]struct{}, len(ministryIDs))
	for _, id := range ministryIDs {
		if _, err := s.ministries.GetByID(ctx, id); err != nil {
			if isNotFound(err) {
				return apperrors.NewValidationError("unknown ministry", map[string]any{"ministry_id": id})
			}
			return err
		}
		listed[id] = struct{}{}
	}
	for _, id := range departmentIDs {
		dept, err := s.departments.GetByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return apperrors.NewValidationError("unknown department", map[string]any{"department_id": id})
			}
			return err
		}
		if _, ok := listed[dept.MinistryID]; !ok {
			return apperrors.NewValidationError("department not part of the selected ministries", map[string]any{"department_id": id})
		}
	}
	return nil
}

func (s *ComplaintService) publishRemark(ctx context.Context, trackingID string, entry *domain.ComplaintUpdate) {
	s.publishEvent(ctx, events.Event{
		Type:       events.EventComplaintRemarkAdded,
		TrackingID: trackingID,
		ActorID:    entry.UserID,
		Payload: events.RemarkAddedPayload{
			UpdateID: entry.ID,
			AuthorID: entry.UserID,
			Text:     entry.Text,
		},
	})
}

func (s *ComplaintService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// isNotFound covers missing rows and malformed uuid keys.
func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || apperrors.IsCode(apperrors.MapError(err), "NOT_FOUND")
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
