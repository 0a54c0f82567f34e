package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gunaso/grievance-service/internal/domain"
	"github.com/gunaso/grievance-service/internal/repository"
)

func TestAccessResolverVisibility(t *testing.T) {
	roads := &domain.Complaint{CreatedBy: "citizen-1", MinistryIDs: []string{"m-works"}, DepartmentIDs: []string{"d-roads"}}
	ministryOnly := &domain.Complaint{CreatedBy: "citizen-2", MinistryIDs: []string{"m-works"}}

	cases := []struct {
		name      string
		actor     *domain.Actor
		complaint *domain.Complaint
		want      bool
	}{
		{"anonymous", nil, roads, false},
		{"owner", &domain.Actor{UserID: "citizen-1", Role: domain.RoleCitizen}, roads, true},
		{"other citizen", &domain.Actor{UserID: "citizen-2", Role: domain.RoleCitizen}, roads, false},
		{"department admin", &domain.Actor{UserID: "a1", Role: domain.RoleAdmin, DepartmentIDs: []string{"d-roads"}}, roads, true},
		{"sibling department admin", &domain.Actor{UserID: "a2", Role: domain.RoleAdmin, DepartmentIDs: []string{"d-water"}}, roads, false},
		{"department admin ignores ministry", &domain.Actor{UserID: "a3", Role: domain.RoleAdmin, MinistryIDs: []string{"m-works"}, DepartmentIDs: []string{"d-water"}}, ministryOnly, false},
		{"ministry admin", &domain.Actor{UserID: "a4", Role: domain.RoleAdmin, MinistryIDs: []string{"m-works"}}, ministryOnly, true},
		{"unscoped admin", &domain.Actor{UserID: "a5", Role: domain.RoleAdmin}, roads, false},
		{"super", &domain.Actor{UserID: "s1", Role: domain.RoleSuper}, roads, true},
		{"superuser flag", &domain.Actor{UserID: "root", Role: domain.RoleCitizen, IsSuperuser: true}, ministryOnly, true},
		{"unknown role", &domain.Actor{UserID: "x", Role: domain.Role("AUDITOR")}, roads, false},
	}

	resolver := NewAccessResolver()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, resolver.CanView(tc.actor, tc.complaint))
		})
	}
}

func TestAccessResolverMutation(t *testing.T) {
	resolver := NewAccessResolver()
	complaint := &domain.Complaint{CreatedBy: "citizen-1", MinistryIDs: []string{"m-works"}, DepartmentIDs: []string{"d-roads"}}

	owner := &domain.Actor{UserID: "citizen-1", Role: domain.RoleCitizen}
	assert.True(t, resolver.CanMutate(owner, complaint, MutationRemark))
	assert.False(t, resolver.CanMutate(owner, complaint, MutationStatus))

	admin := &domain.Actor{UserID: "a1", Role: domain.RoleAdmin, DepartmentIDs: []string{"d-roads"}}
	assert.True(t, resolver.CanMutate(admin, complaint, MutationStatus))

	outsider := &domain.Actor{UserID: "a2", Role: domain.RoleAdmin, DepartmentIDs: []string{"d-water"}}
	assert.False(t, resolver.CanMutate(outsider, complaint, MutationRemark))
}

func TestScopeFilter(t *testing.T) {
	resolver := NewAccessResolver()

	_, ok := resolver.Scope(&domain.Actor{UserID: "a5", Role: domain.RoleAdmin}).Filter(repository.ComplaintFilter{})
	assert.False(t, ok)

	filter, ok := resolver.Scope(&domain.Actor{UserID: "a1", Role: domain.RoleAdmin, MinistryIDs: []string{"m-works"}, DepartmentIDs: []string{"d-roads"}}).
		Filter(repository.ComplaintFilter{Limit: 5})
	assert.True(t, ok)
	assert.Equal(t, []string{"d-roads"}, filter.DepartmentIDs)
	assert.Empty(t, filter.MinistryIDs)
	assert.Equal(t, 5, filter.Limit)

	filter, ok = resolver.Scope(&domain.Actor{UserID: "citizen-1", Role: domain.RoleCitizen}).Filter(repository.ComplaintFilter{})
	assert.True(t, ok)
	if assert.NotNil(t, filter.CreatedBy) {
		assert.Equal(t, "citizen-1", *filter.CreatedBy)
	}
}
