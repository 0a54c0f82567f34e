package events

import (
	"time"

	"github.com/gunaso/grievance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventComplaintCreated       EventType = "complaint_created"
	EventComplaintStatusChanged EventType = "complaint_status_changed"
	EventComplaintRemarkAdded   EventType = "complaint_remark_added"
)

// Event represents a domain event emitted after a committed write.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	TrackingID string    `json:"tracking_id"`
	ActorID    string    `json:"actor_id"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    any       `json:"payload"`
}

// ComplaintCreatedPayload payload.
type ComplaintCreatedPayload struct {
	Title       string   `json:"title"`
	MinistryIDs []string `json:"ministry_ids"`
}

// StatusChangedPayload carries the committed transition and the update that recorded it.
// Remark is the actor's remark; Text is the recorded entry, generated when Remark is empty.
type StatusChangedPayload struct {
	OldStatus domain.ComplaintStatus `json:"old_status"`
	NewStatus domain.ComplaintStatus `json:"new_status"`
	UpdateID  string                 `json:"update_id"`
	Remark    string                 `json:"remark,omitempty"`
	Text      string                 `json:"text"`
}

// RemarkAddedPayload payload.
type RemarkAddedPayload struct {
	UpdateID string `json:"update_id"`
	AuthorID string `json:"author_id"`
	Text     string `json:"text"`
}
