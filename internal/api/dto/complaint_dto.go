package dto

import (
	"time"

	"github.com/gunaso/grievance-service/internal/domain"
)

// CreateComplaintRequest payload.
type CreateComplaintRequest struct {
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	MinistryIDs          []string `json:"ministries"`
	DepartmentIDs        []string `json:"departments"`
	SupportingDocument   *string  `json:"supporting_document"`
	GovernmentIDDocument *string  `json:"government_id_document"`
}

// StatusChangeRequest payload for POST /complaints/:tracking_id/status.
type StatusChangeRequest struct {
	Status string `json:"status"`
	Remark string `json:"remark"`
}

// RemarkRequest payload.
type RemarkRequest struct {
	Text string `json:"text"`
}

// ComplaintSummary is the list representation.
type ComplaintSummary struct {
	TrackingID          string                 `json:"tracking_id"`
	Title               string                 `json:"title"`
	Status              domain.ComplaintStatus `json:"status"`
	StatusLabel         string                 `json:"status_display"`
	Ministries          []string               `json:"ministries"`
	Departments         []string               `json:"departments"`
	AISuggestedCategory *string                `json:"ai_suggested_category"`
	AISuggestedPriority *domain.Priority       `json:"ai_suggested_priority"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// ComplaintDetailResponse provides full complaint info with its history.
type ComplaintDetailResponse struct {
	TrackingID           string                    `json:"tracking_id"`
	Title                string                    `json:"title"`
	Description          string                    `json:"description"`
	Status               domain.ComplaintStatus    `json:"status"`
	StatusLabel          string                    `json:"status_display"`
	CreatedBy            string                    `json:"created_by"`
	Ministries           []string                  `json:"ministries"`
	Departments          []string                  `json:"departments"`
	SupportingDocument   *string                   `json:"supporting_document"`
	GovernmentIDDocument *string                   `json:"government_id_document"`
	AISuggestedCategory  *string                   `json:"ai_suggested_category"`
	AISuggestedPriority  *domain.Priority          `json:"ai_suggested_priority"`
	LatestRemark         *string                   `json:"latest_remark"`
	Updates              []ComplaintUpdateResponse `json:"updates"`
	CreatedAt            time.Time                 `json:"created_at"`
	UpdatedAt            time.Time                 `json:"updated_at"`
}

// ComplaintUpdateResponse represents one history entry.
type ComplaintUpdateResponse struct {
	ID        string                  `json:"id"`
	UserID    string                  `json:"user_id"`
	Username  string                  `json:"username"`
	Text      string                  `json:"update_text"`
	OldStatus *domain.ComplaintStatus `json:"old_status"`
	NewStatus *domain.ComplaintStatus `json:"new_status"`
	CreatedAt time.Time               `json:"created_at"`
}

// StatusChangeResponse reports the committed result of a status write.
type StatusChangeResponse struct {
	Complaint ComplaintSummary         `json:"complaint"`
	Update    *ComplaintUpdateResponse `json:"update"`
	Changed   bool                     `json:"changed"`
}

// ComplaintStatsResponse counts complaints per status.
type ComplaintStatsResponse struct {
	Total    int                            `json:"total"`
	ByStatus map[domain.ComplaintStatus]int `json:"by_status"`
}
