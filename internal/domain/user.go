package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of actor roles.
type Role string

const (
	RoleCitizen Role = "CITIZEN"
	RoleAdmin   Role = "ADMIN"
	RoleSuper   Role = "SUPER"
)

// ParseRole accepts only the known role names.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleCitizen:
		return RoleCitizen, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleSuper:
		return RoleSuper, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// User is an authenticated identity.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	IsSuperuser  bool
	Profile      *Profile
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is created together with its User and shares its lifetime.
type Profile struct {
	UserID        string
	Role          Role
	MinistryIDs   []string
	DepartmentIDs []string
	PhoneNumber   *string
	IDDocument    *string
	UpdatedAt     time.Time
}

// Actor is the resolved caller used for authorization decisions.
type Actor struct {
	UserID        string
	Username      string
	Role          Role
	IsSuperuser   bool
	HasProfile    bool
	MinistryIDs   []string
	DepartmentIDs []string
}

// ActorFromUser flattens a user and its profile. A missing profile yields a citizen-level actor.
func ActorFromUser(user *User) *Actor {
	if user == nil {
		return nil
	}
	actor := &Actor{
		UserID:      user.ID,
		Username:    user.Username,
		Role:        RoleCitizen,
		IsSuperuser: user.IsSuperuser,
	}
	if user.Profile != nil {
		actor.HasProfile = true
		actor.Role = user.Profile.Role
		actor.MinistryIDs = append([]string(nil), user.Profile.MinistryIDs...)
		actor.DepartmentIDs = append([]string(nil), user.Profile.DepartmentIDs...)
	}
	return actor
}
