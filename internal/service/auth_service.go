package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gunaso/grievance-service/internal/auth"
	"github.com/gunaso/grievance-service/internal/config"
	"github.com/gunaso/grievance-service/internal/domain"
	"github.com/gunaso/grievance-service/internal/repository"
	apperrors "github.com/gunaso/grievance-service/pkg/util/errorutil"
)

// AuthService coordinates registration, login and profile management.
type AuthService struct {
	users       repository.UserRepository
	ministries  repository.MinistryRepository
	departments repository.DepartmentRepository
	tokenMgr    *auth.TokenManager
	bcryptCost  int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo       repository.UserRepository
	MinistryRepo   repository.MinistryRepository
	DepartmentRepo repository.DepartmentRepository
}

// RegisterInput is the self-registration payload.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber *string
}

// ProfileUpdateInput holds the fields a user may change on their own profile. Nil leaves a
// field untouched; an empty string clears it.
type ProfileUpdateInput struct {
	PhoneNumber *string
	IDDocument  *string
}

// ScopeAssignment sets another user's role and ministry/department scope.
type ScopeAssignment struct {
	Role          domain.Role
	MinistryIDs   []string
	DepartmentIDs []string
}

// AuthResult is an authenticated user with a fresh access token.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:       deps.UserRepo,
		ministries:  deps.MinistryRepo,
		departments: deps.DepartmentRepo,
		tokenMgr:    auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost:  cfg.Auth.BcryptCost,
	}
}

// Register creates a citizen identity together with its profile.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if username == "" {
		return nil, apperrors.NewValidationError("username required", nil)
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, apperrors.NewValidationError("invalid email", map[string]any{"email": input.Email})
		}
	}
	if err := auth.ValidatePassword(input.Password); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperrors.NewConflict("username already registered", map[string]any{"username": username})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Profile: &domain.Profile{
			Role:        domain.RoleCitizen,
			PhoneNumber: trimmedOrNil(input.PhoneNumber),
		},
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.issue(user)
}

// Login authenticates by username and password.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issue(user)
}

// Profile returns the caller's identity and profile.
func (s *AuthService) Profile(ctx context.Context, actor *domain.Actor) (*domain.User, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// UpdateProfile changes the caller's contact fields. Role and scope are not editable here.
func (s *AuthService) UpdateProfile(ctx context.Context, actor *domain.Actor, input ProfileUpdateInput) (*domain.User, error) {
	user, err := s.Profile(ctx, actor)
	if err != nil {
		return nil, err
	}
	profile := ensureProfile(user)
	if input.PhoneNumber != nil {
		profile.PhoneNumber = trimmedOrNil(input.PhoneNumber)
	}
	if input.IDDocument != nil {
		if doc := strings.TrimSpace(*input.IDDocument); doc != "" {
			p := domain.IDDocumentPath(user.ID, doc)
			profile.IDDocument = &p
		} else {
			profile.IDDocument = nil
		}
	}
	if err := s.users.UpdateProfile(ctx, profile); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// AssignScope lets a SUPER actor set another user's role and scope sets.
func (s *AuthService) AssignScope(ctx context.Context, actor *domain.Actor, userID string, input ScopeAssignment) (*domain.User, error) {
	if !isSuper(actor) {
		return nil, apperrors.NewForbidden("super role required")
	}
	if _, err := domain.ParseRole(string(input.Role)); err != nil {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": input.Role})
	}
	ministryIDs := dedupe(input.MinistryIDs)
	departmentIDs := dedupe(input.DepartmentIDs)
	for _, id := range ministryIDs {
		if _, err := s.ministries.GetByID(ctx, id); err != nil {
			return nil, notFoundAsValidation(err, "ministry_id", id)
		}
	}
	for _, id := range departmentIDs {
		if _, err := s.departments.GetByID(ctx, id); err != nil {
			return nil, notFoundAsValidation(err, "department_id", id)
		}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	profile := ensureProfile(user)
	profile.Role = input.Role
	profile.MinistryIDs = ministryIDs
	profile.DepartmentIDs = departmentIDs
	if err := s.users.UpdateProfile(ctx, profile); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

func ensureProfile(user *domain.User) *domain.Profile {
	if user.Profile == nil {
		user.Profile = &domain.Profile{UserID: user.ID, Role: domain.RoleCitizen}
	}
	return user.Profile
}

func isSuper(actor *domain.Actor) bool {
	return actor != nil && (actor.IsSuperuser || actor.Role == domain.RoleSuper)
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func notFoundAsValidation(err error, field, id string) error {
	if isNotFound(err) {
		return apperrors.NewValidationError("unknown "+strings.TrimSuffix(field, "_id"), map[string]any{field: id})
	}
	return err
}
