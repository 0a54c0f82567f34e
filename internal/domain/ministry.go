package domain

import "time"

// Ministry is a government ministry that owns departments.
type Ministry struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}
