package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gunaso/grievance-service/internal/domain"
	"github.com/gunaso/grievance-service/internal/repository"
)

// memStore implements every repository interface the services use. WithLock holds the store
// mutex for the whole callback, mirroring a row lock held for the transaction.
type memStore struct {
	mu          sync.Mutex
	seq         int
	clock       time.Time
	complaints  map[string]*domain.Complaint
	updates     []domain.ComplaintUpdate
	users       map[string]*domain.User
	ministries  map[string]*domain.Ministry
	departments map[string]*domain.Department
}

func newMemStore() *memStore {
	return &memStore{
		clock:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		complaints:  map[string]*domain.Complaint{},
		users:       map[string]*domain.User{},
		ministries:  map[string]*domain.Ministry{},
		departments: map[string]*domain.Department{},
	}
}

func (s *memStore) next(prefix string) (string, time.Time) {
	s.seq++
	s.clock = s.clock.Add(time.Second)
	return fmt.Sprintf("%s-%d", prefix, s.seq), s.clock
}

func (s *memStore) addMinistry(id, name string) {
	s.ministries[id] = &domain.Ministry{ID: id, Name: name}
}

func (s *memStore) addDepartment(id, ministryID, name string) {
	s.departments[id] = &domain.Department{ID: id, MinistryID: ministryID, Name: name}
}

func (s *memStore) addUser(user *domain.User) *domain.User {
	s.users[user.ID] = user
	return user
}

func (s *memStore) statusUpdates(complaintID string) []domain.ComplaintUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ComplaintUpdate
	for _, u := range s.updates {
		if u.ComplaintID == complaintID && u.IsStatusChange() {
			out = append(out, u)
		}
	}
	return out
}

func (s *memStore) allUpdates() []domain.ComplaintUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ComplaintUpdate(nil), s.updates...)
}

func copyComplaint(c *domain.Complaint) *domain.Complaint {
	cp := *c
	cp.MinistryIDs = append([]string(nil), c.MinistryIDs...)
	cp.DepartmentIDs = append([]string(nil), c.DepartmentIDs...)
	return &cp
}

type complaintRepo struct{ *memStore }

func (r complaintRepo) Create(_ context.Context, c *domain.Complaint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.complaints[c.TrackingID]; exists {
		return fmt.Errorf("duplicate tracking id")
	}
	c.ID, c.CreatedAt = r.next("c")
	c.UpdatedAt = c.CreatedAt
	r.complaints[c.TrackingID] = copyComplaint(c)
	return nil
}

func (r complaintRepo) GetByTrackingID(_ context.Context, trackingID string) (*domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.complaints[trackingID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return copyComplaint(c), nil
}

func matches(c *domain.Complaint, f repository.ComplaintFilter) bool {
	if f.CreatedBy != nil && c.CreatedBy != *f.CreatedBy {
		return false
	}
	if len(f.MinistryIDs) > 0 || len(f.DepartmentIDs) > 0 {
		if !intersects(f.MinistryIDs, c.MinistryIDs) && !intersects(f.DepartmentIDs, c.DepartmentIDs) {
			return false
		}
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			found = found || s == c.Status
		}
		if !found {
			return false
		}
	}
	if f.SearchTerm != nil {
		term := strings.ToLower(*f.SearchTerm)
		if !strings.Contains(strings.ToLower(c.Title), term) && !strings.Contains(strings.ToLower(c.Description), term) {
			return false
		}
	}
	return true
}

func (r complaintRepo) List(_ context.Context, f repository.ComplaintFilter) ([]domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Complaint
	for _, c := range r.complaints {
		if matches(c, f) {
			out = append(out, *copyComplaint(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r complaintRepo) CountByStatus(_ context.Context, f repository.ComplaintFilter) (map[domain.ComplaintStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[domain.ComplaintStatus]int{}
	for _, c := range r.complaints {
		if matches(c, f) {
			counts[c.Status]++
		}
	}
	return counts, nil
}

func (r complaintRepo) UpdateEnrichment(_ context.Context, trackingID string, e domain.Enrichment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.complaints[trackingID]
	if !ok {
		return pgx.ErrNoRows
	}
	category, priority := e.Category, e.Priority
	c.AISuggestedCategory = &category
	c.AISuggestedPriority = &priority
	return nil
}

func (r complaintRepo) WithLock(_ context.Context, trackingID string, fn func(repository.ComplaintTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.complaints[trackingID]
	if !ok {
		return pgx.ErrNoRows
	}
	tx := &memTx{store: r.memStore, complaint: copyComplaint(stored)}
	if err := fn(tx); err != nil {
		return err
	}
	if tx.status != nil {
		stored.Status = *tx.status
	}
	r.updates = append(r.updates, tx.staged...)
	return nil
}

type memTx struct {
	store     *memStore
	complaint *domain.Complaint
	status    *domain.ComplaintStatus
	staged    []domain.ComplaintUpdate
}

func (t *memTx) Complaint() *domain.Complaint { return t.complaint }

func (t *memTx) SetStatus(_ context.Context, status domain.ComplaintStatus) error {
	t.status = &status
	return nil
}

func (t *memTx) AppendUpdate(_ context.Context, u *domain.ComplaintUpdate) error {
	u.ComplaintID = t.complaint.ID
	u.ID, u.CreatedAt = t.store.next("u")
	t.staged = append(t.staged, *u)
	return nil
}

type updateRepo struct{ *memStore }

func (r updateRepo) Create(_ context.Context, u *domain.ComplaintUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID, u.CreatedAt = r.next("u")
	r.updates = append(r.updates, *u)
	return nil
}

func (r updateRepo) ListByComplaint(_ context.Context, complaintID string) ([]domain.ComplaintUpdate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ComplaintUpdate
	for i := len(r.updates) - 1; i >= 0; i-- {
		if r.updates[i].ComplaintID == complaintID {
			out = append(out, r.updates[i])
		}
	}
	return out, nil
}

func (r updateRepo) Latest(ctx context.Context, complaintID string) (*domain.ComplaintUpdate, error) {
	list, _ := r.ListByComplaint(ctx, complaintID)
	if len(list) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &list[0], nil
}

type userRepo struct{ *memStore }

func (r userRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID, u.CreatedAt = r.next("user")
	if u.Profile == nil {
		u.Profile = &domain.Profile{Role: domain.RoleCitizen}
	}
	u.Profile.UserID = u.ID
	cp := *u
	profile := *u.Profile
	cp.Profile = &profile
	r.users[u.ID] = &cp
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	if u.Profile != nil {
		profile := *u.Profile
		cp.Profile = &profile
	}
	return &cp, nil
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	var id string
	for _, u := range r.users {
		if u.Username == username {
			id = u.ID
		}
	}
	r.mu.Unlock()
	if id == "" {
		return nil, pgx.ErrNoRows
	}
	return r.GetByID(ctx, id)
}

func (r userRepo) UpdateProfile(_ context.Context, p *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[p.UserID]
	if !ok {
		return pgx.ErrNoRows
	}
	cp := *p
	u.Profile = &cp
	return nil
}

type ministryRepo struct{ *memStore }

func (r ministryRepo) Create(_ context.Context, m *domain.Ministry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID, m.CreatedAt = r.next("m")
	cp := *m
	r.ministries[m.ID] = &cp
	return nil
}

func (r ministryRepo) GetByID(_ context.Context, id string) (*domain.Ministry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.ministries[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *m
	return &cp, nil
}

func (r ministryRepo) List(context.Context) ([]domain.Ministry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ministry
	for _, m := range r.ministries {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type departmentRepo struct{ *memStore }

func (r departmentRepo) Create(_ context.Context, d *domain.Department) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.ID, d.CreatedAt = r.next("d")
	cp := *d
	r.departments[d.ID] = &cp
	return nil
}

func (r departmentRepo) GetByID(_ context.Context, id string) (*domain.Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.departments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *d
	return &cp, nil
}

func (r departmentRepo) List(_ context.Context, ministryID *string) ([]domain.Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Department
	for _, d := range r.departments {
		if ministryID == nil || d.MinistryID == *ministryID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
