package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/gunaso/grievance-service/internal/api/dto"
	"github.com/gunaso/grievance-service/internal/auth"
	"github.com/gunaso/grievance-service/internal/domain"
	"github.com/gunaso/grievance-service/internal/service"
	apperrors "github.com/gunaso/grievance-service/pkg/util/errorutil"
)

const (
	maxPageSize = 100
	maxPage     = 100000
)

// ComplaintsHandler manages complaint endpoints.
type ComplaintsHandler struct {
	service *service.ComplaintService
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(complaintService *service.ComplaintService) *ComplaintsHandler {
	return &ComplaintsHandler{service: complaintService}
}

// CreateComplaint POST /api/complaints.
func (h *ComplaintsHandler) CreateComplaint(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	complaint, err := h.service.CreateComplaint(c.UserContext(), actor, service.ComplaintCreateInput{
		Title:                req.Title,
		Description:          req.Description,
		MinistryIDs:          req.MinistryIDs,
		DepartmentIDs:        req.DepartmentIDs,
		SupportingDocument:   req.SupportingDocument,
		GovernmentIDDocument: req.GovernmentIDDocument,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": complaintDetail(&service.ComplaintDetail{Complaint: complaint})})
}

// ListComplaints GET /api/complaints.
func (h *ComplaintsHandler) ListComplaints(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	filter, err := parseComplaintQuery(c)
	if err != nil {
		return err
	}
	complaints, err := h.service.ListComplaints(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.ComplaintSummary, 0, len(complaints))
	for i := range complaints {
		items = append(items, complaintSummary(&complaints[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetComplaint GET /api/complaints/:tracking_id.
func (h *ComplaintsHandler) GetComplaint(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	detail, err := h.service.GetComplaint(c.UserContext(), actor, c.Params("tracking_id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintDetail(detail)})
}

// ChangeStatus POST /api/complaints/:tracking_id/status.
func (h *ComplaintsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.StatusChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	status := domain.ComplaintStatus(strings.ToUpper(strings.TrimSpace(req.Status)))

	result, err := h.service.ChangeStatus(c.UserContext(), actor, c.Params("tracking_id"), status, req.Remark)
	if err != nil {
		return err
	}
	resp := dto.StatusChangeResponse{Complaint: complaintSummary(result.Complaint), Changed: result.Changed}
	if result.Update != nil {
		update := updateResponse(result.Update)
		resp.Update = &update
	}
	return c.JSON(fiber.Map{"data": resp})
}

// AddRemark POST /api/complaints/:tracking_id/remarks.
func (h *ComplaintsHandler) AddRemark(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.RemarkRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	entry, err := h.service.AddRemark(c.UserContext(), actor, c.Params("tracking_id"), req.Text)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": updateResponse(entry)})
}

// ListUpdates GET /api/complaints/:tracking_id/updates.
func (h *ComplaintsHandler) ListUpdates(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	updates, err := h.service.ListUpdates(c.UserContext(), actor, c.Params("tracking_id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": updateResponses(updates)})
}

// Stats GET /api/complaints/stats.
func (h *ComplaintsHandler) Stats(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	stats, err := h.service.Stats(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ComplaintStatsResponse{Total: stats.Total, ByStatus: stats.ByStatus}})
}

func actorFrom(c *fiber.Ctx) (*domain.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Actor, nil
}

func parseComplaintQuery(c *fiber.Ctx) (service.ComplaintListFilter, error) {
	filter := service.ComplaintListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status := domain.ComplaintStatus(strings.ToUpper(strings.TrimSpace(part)))
			if !status.Valid() {
				return filter, apperrors.NewValidationError("invalid status filter", map[string]any{"status": part})
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filter.SearchTerm = &search
	}
	page := parseInt(c.Query("page"), 1)
	if page > maxPage {
		return filter, apperrors.NewValidationError("page out of range", map[string]any{"max_page": maxPage})
	}
	pageSize := parseInt(c.Query("page_size"), 20)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}

func parseInt(val string, fallback int) int {
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func complaintSummary(c *domain.Complaint) dto.ComplaintSummary {
	return dto.ComplaintSummary{
		TrackingID:          c.TrackingID,
		Title:               c.Title,
		Status:              c.Status,
		StatusLabel:         c.Status.Label(),
		Ministries:          nonNil(c.MinistryIDs),
		Departments:         nonNil(c.DepartmentIDs),
		AISuggestedCategory: c.AISuggestedCategory,
		AISuggestedPriority: c.AISuggestedPriority,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}

func complaintDetail(detail *service.ComplaintDetail) dto.ComplaintDetailResponse {
	c := detail.Complaint
	return dto.ComplaintDetailResponse{
		TrackingID:           c.TrackingID,
		Title:                c.Title,
		Description:          c.Description,
		Status:               c.Status,
		StatusLabel:          c.Status.Label(),
		CreatedBy:            c.CreatedBy,
		Ministries:           nonNil(c.MinistryIDs),
		Departments:          nonNil(c.DepartmentIDs),
		SupportingDocument:   c.SupportingDocument,
		GovernmentIDDocument: c.GovernmentIDDocument,
		AISuggestedCategory:  c.AISuggestedCategory,
		AISuggestedPriority:  c.AISuggestedPriority,
		LatestRemark:         detail.LatestRemark(),
		Updates:              updateResponses(detail.Updates),
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
}

func updateResponse(u *domain.ComplaintUpdate) dto.ComplaintUpdateResponse {
	return dto.ComplaintUpdateResponse{
		ID:        u.ID,
		UserID:    u.UserID,
		Username:  u.Username,
		Text:      u.Text,
		OldStatus: u.OldStatus,
		NewStatus: u.NewStatus,
		CreatedAt: u.CreatedAt,
	}
}

func updateResponses(updates []domain.ComplaintUpdate) []dto.ComplaintUpdateResponse {
	out := make([]dto.ComplaintUpdateResponse, 0, len(updates))
	for i := range updates {
		out = append(out, updateResponse(&updates[i]))
	}
	return out
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
