package alumni

import "time"

// Alumnus is a program graduate listed in the registry.
type Alumnus struct {
	ID          int64
	Name        string
	BatchYear   string
	CurrentRole string
	Company     string
	LinkedIn    string
	CreatedAt   time.Time
}

// SuccessStory is a highlighted graduate story shown on the public site.
type SuccessStory struct {
	ID        int64
	Title     string
	Body      string
	Alumnus   string
	BatchYear string
	CreatedAt time.Time
}
