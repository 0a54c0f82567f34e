package domain

import "time"

// ComplaintUpdate is an append-only history entry. Status-change entries carry both snapshots;
// remark-only entries carry neither.
type ComplaintUpdate struct {
	ID          string
	ComplaintID string
	UserID      string
	Username    string
	Text        string
	OldStatus   *ComplaintStatus
	NewStatus   *ComplaintStatus
	CreatedAt   time.Time
}

// IsStatusChange reports whether the entry records a transition.
func (u ComplaintUpdate) IsStatusChange() bool {
	return u.OldStatus != nil && u.NewStatus != nil
}
