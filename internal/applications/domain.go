package applications

import "time"

// Status is the review state of a scholarship application.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Application is a scholarship application submitted through the public
// form. Email is unique across applications.
type Application struct {
	ID           int64
	FullName     string
	Email        string
	UniversityID string
	BatchYear    string
	Major        string
	GPA          string
	Essay        string
	Status       Status
	CreatedAt    time.Time
	ReviewedAt   *time.Time
}
