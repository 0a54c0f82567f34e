package domain

import "time"

// Department is a wing of exactly one ministry; its name is unique within that ministry.
type Department struct {
	ID          string
	MinistryID  string
	Name        string
	Description string
	CreatedAt   time.Time
}
