package domain

import (
	"path"
	"time"
)

// ComplaintStatus enumerates complaint lifecycle states.
type ComplaintStatus string

const (
	StatusPending    ComplaintStatus = "PENDING"
	StatusInProgress ComplaintStatus = "IN_PROGRESS"
	StatusResolved   ComplaintStatus = "RESOLVED"
	StatusRejected   ComplaintStatus = "REJECTED"
	StatusForwarded  ComplaintStatus = "FORWARDED"
)

// AllStatuses lists statuses in display order.
var AllStatuses = []ComplaintStatus{StatusPending, StatusInProgress, StatusResolved, StatusRejected, StatusForwarded}

// Valid reports whether s is a known status.
func (s ComplaintStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Label returns the human readable status name.
func (s ComplaintStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In Progress"
	case StatusResolved:
		return "Resolved"
	case StatusRejected:
		return "Rejected"
	case StatusForwarded:
		return "Forwarded"
	default:
		return string(s)
	}
}

// Priority is the AI-suggested urgency.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Valid reports whether p is one of the priorities the classifier may assign.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Complaint is a grievance lodged by a citizen against one or more ministries/departments.
type Complaint struct {
	ID                   string
	TrackingID           string
	Title                string
	Description          string
	Status               ComplaintStatus
	CreatedBy            string
	MinistryIDs          []string
	DepartmentIDs        []string
	SupportingDocument   *string
	GovernmentIDDocument *string

	AISuggestedCategory *string
	AISuggestedPriority *Priority
	AISummary           *string
	AICorruptionRisk    bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Enrichment is the classifier output persisted onto a complaint.
type Enrichment struct {
	Category string
	Priority Priority
}

// DocumentPath is the storage key of a supporting document: complaints/<tracking_id>/<file>.
func DocumentPath(trackingID, filename string) string {
	return path.Join("complaints", trackingID, path.Base(filename))
}

// IDDocumentPath is the storage key of a citizen's identity document: user_ids/<user_id>/<file>.
func IDDocumentPath(userID, filename string) string {
	return path.Join("user_ids", userID, path.Base(filename))
}
