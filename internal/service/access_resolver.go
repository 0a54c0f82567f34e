package service

import (
	"github.com/gunaso/grievance-service/internal/domain"
	"github.com/gunaso/grievance-service/internal/repository"
)

// Mutation names a write an actor may attempt on a complaint.
type Mutation int

const (
	MutationStatus Mutation = iota + 1
	MutationRemark
)

// Scope is the list-level visibility of an actor. At most one of All / None is set; otherwise the
// complaint must match CreatedBy or intersect the ministry/department sets.
type Scope struct {
	All           bool
	None          bool
	CreatedBy     *string
	MinistryIDs   []string
	DepartmentIDs []string
}

// AccessResolver decides complaint visibility and mutation rights. Anything it cannot place
// in a known role is denied.
type AccessResolver struct{}

// NewAccessResolver builds the resolver.
func NewAccessResolver() *AccessResolver {
	return &AccessResolver{}
}

// Scope computes the list filter for actor.
func (r *AccessResolver) Scope(actor *domain.Actor) Scope {
	if actor == nil || actor.UserID == "" {
		return Scope{None: true}
	}
	if actor.IsSuperuser {
		return Scope{All: true}
	}
	switch actor.Role {
	case domain.RoleSuper:
		return Scope{All: true}
	case domain.RoleAdmin:
		if len(actor.DepartmentIDs) > 0 {
			return Scope{DepartmentIDs: actor.DepartmentIDs}
		}
		if len(actor.MinistryIDs) > 0 {
			return Scope{MinistryIDs: actor.MinistryIDs}
		}
		return Scope{None: true}
	case domain.RoleCitizen:
		id := actor.UserID
		return Scope{CreatedBy: &id}
	default:
		return Scope{None: true}
	}
}

// Allows applies the scope to a single complaint.
func (s Scope) Allows(c *domain.Complaint) bool {
	switch {
	case c == nil || s.None:
		return false
	case s.All:
		return true
	case s.CreatedBy != nil:
		return c.CreatedBy == *s.CreatedBy
	case len(s.DepartmentIDs) > 0:
		return intersects(s.DepartmentIDs, c.DepartmentIDs)
	case len(s.MinistryIDs) > 0:
		return intersects(s.MinistryIDs, c.MinistryIDs)
	default:
		return false
	}
}

// Filter narrows a repository filter to the scope. ok is false when nothing can match.
func (s Scope) Filter(base repository.ComplaintFilter) (repository.ComplaintFilter, bool) {
	if s.None {
		return base, false
	}
	if s.All {
		return base, true
	}
	base.CreatedBy = s.CreatedBy
	base.MinistryIDs = s.MinistryIDs
	base.DepartmentIDs = s.DepartmentIDs
	return base, true
}

// Visible returns the subset of complaints actor may see, preserving order.
func (r *AccessResolver) Visible(actor *domain.Actor, complaints []domain.Complaint) []domain.Complaint {
	scope := r.Scope(actor)
	out := make([]domain.Complaint, 0, len(complaints))
	for i := range complaints {
		if scope.Allows(&complaints[i]) {
			out = append(out, complaints[i])
		}
	}
	return out
}

// CanView reports read access to one complaint.
func (r *AccessResolver) CanView(actor *domain.Actor, complaint *domain.Complaint) bool {
	return r.Scope(actor).Allows(complaint)
}

// CanMutate is the object-level write check. Citizens may remark on their own complaints but
// never set status.
func (r *AccessResolver) CanMutate(actor *domain.Actor, complaint *domain.Complaint, m Mutation) bool {
	if !r.CanView(actor, complaint) {
		return false
	}
	if actor.IsSuperuser {
		return true
	}
	switch actor.Role {
	case domain.RoleSuper, domain.RoleAdmin:
		return m == MutationStatus || m == MutationRemark
	case domain.RoleCitizen:
		return m == MutationRemark
	default:
		return false
	}
}

func intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
