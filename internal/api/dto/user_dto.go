package dto

import (
	"time"

	"github.com/gunaso/grievance-service/internal/domain"
)

// UserRegisterRequest payload for new citizens.
type UserRegisterRequest struct {
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	PhoneNumber *string `json:"phone_number"`
}

// TokenRequest payload for login.
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ProfileUpdateRequest carries the self-editable profile fields.
type ProfileUpdateRequest struct {
	PhoneNumber *string `json:"phone_number"`
	IDDocument  *string `json:"id_document"`
}

// ScopeAssignmentRequest sets another user's role and scope.
type ScopeAssignmentRequest struct {
	Role        string   `json:"role"`
	Ministries  []string `json:"ministries"`
	Departments []string `json:"departments"`
}

// UserResponse is a user together with its profile.
type UserResponse struct {
	ID          string          `json:"id"`
	Username    string          `json:"username"`
	Email       string          `json:"email"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	IsSuperuser bool            `json:"is_superuser"`
	Profile     ProfileResponse `json:"profile"`
}

// ProfileResponse exposes role, scope and contact details.
type ProfileResponse struct {
	Role        domain.Role `json:"role"`
	Ministries  []string    `json:"ministries"`
	Departments []string    `json:"departments"`
	PhoneNumber *string     `json:"phone_number"`
	IDDocument  *string     `json:"id_document"`
}
