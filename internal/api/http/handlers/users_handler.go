package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/gunaso/grievance-service/internal/api/dto"
	"github.com/gunaso/grievance-service/internal/domain"
	"github.com/gunaso/grievance-service/internal/service"
	apperrors "github.com/gunaso/grievance-service/pkg/util/errorutil"
)

// UsersHandler exposes registration, token and profile endpoints.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Register handles POST /api/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}

	result, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"user": userResponse(result.User),
			"auth": dto.AuthResponse{Token: result.Token, ExpiresAt: result.ExpiresAt},
		},
	})
}

// Token handles POST /api/token.
func (h *UsersHandler) Token(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}

	result, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": userResponse(result.User),
			"auth": dto.AuthResponse{Token: result.Token, ExpiresAt: result.ExpiresAt},
		},
	})
}

// Profile handles GET /api/profile.
func (h *UsersHandler) Profile(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	user, err := h.auth.Profile(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// UpdateProfile handles PATCH /api/profile.
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.ProfileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.auth.UpdateProfile(c.UserContext(), actor, service.ProfileUpdateInput{
		PhoneNumber: req.PhoneNumber,
		IDDocument:  req.IDDocument,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// AssignScope handles PUT /api/users/:id/profile.
func (h *UsersHandler) AssignScope(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.ScopeAssignmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return apperrors.NewValidationError("invalid role", map[string]any{"role": req.Role})
	}
	user, err := h.auth.AssignScope(c.UserContext(), actor, c.Params("id"), service.ScopeAssignment{
		Role:          role,
		MinistryIDs:   req.Ministries,
		DepartmentIDs: req.Departments,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

func userResponse(user *domain.User) dto.UserResponse {
	resp := dto.UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		IsSuperuser: user.IsSuperuser,
		Profile:     dto.ProfileResponse{Role: domain.RoleCitizen, Ministries: []string{}, Departments: []string{}},
	}
	if p := user.Profile; p != nil {
		resp.Profile = dto.ProfileResponse{
			Role:        p.Role,
			Ministries:  nonNil(p.MinistryIDs),
			Departments: nonNil(p.DepartmentIDs),
			PhoneNumber: p.PhoneNumber,
			IDDocument:  p.IDDocument,
		}
	}
	return resp
}
