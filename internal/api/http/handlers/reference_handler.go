package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/gunaso/grievance-service/internal/api/dto"
	"github.com/gunaso/grievance-service/internal/service"
	apperrors "github.com/gunaso/grievance-service/pkg/util/errorutil"
)

// ReferenceHandler serves ministries and departments.
type ReferenceHandler struct {
	service *service.ReferenceService
}

// NewReferenceHandler constructs handler.
func NewReferenceHandler(referenceService *service.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{service: referenceService}
}

// ListMinistries GET /api/ministries.
func (h *ReferenceHandler) ListMinistries(c *fiber.Ctx) error {
	ministries, err := h.service.ListMinistries(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.MinistryResponse, 0, len(ministries))
	for _, m := range ministries {
		items = append(items, dto.MinistryResponse{ID: m.ID, Name: m.Name, Description: m.Description})
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateMinistry POST /api/ministries.
func (h *ReferenceHandler) CreateMinistry(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.MinistryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	m, err := h.service.CreateMinistry(c.UserContext(), actor, req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.MinistryResponse{ID: m.ID, Name: m.Name, Description: m.Description}})
}

// ListDepartments GET /api/departments?ministry=<id>.
func (h *ReferenceHandler) ListDepartments(c *fiber.Ctx) error {
	var ministryID *string
	if id := c.Query("ministry"); id != "" {
		ministryID = &id
	}
	departments, err := h.service.ListDepartments(c.UserContext(), ministryID)
	if err != nil {
		return err
	}
	items := make([]dto.DepartmentResponse, 0, len(departments))
	for _, d := range departments {
		items = append(items, dto.DepartmentResponse{ID: d.ID, MinistryID: d.MinistryID, Name: d.Name, Description: d.Description})
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateDepartment POST /api/departments.
func (h *ReferenceHandler) CreateDepartment(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.DepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.MinistryID == "" {
		return apperrors.NewValidationError("ministry required", nil)
	}
	d, err := h.service.CreateDepartment(c.UserContext(), actor, req.MinistryID, req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.DepartmentResponse{ID: d.ID, MinistryID: d.MinistryID, Name: d.Name, Description: d.Description}})
}
