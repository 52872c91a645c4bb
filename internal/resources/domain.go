package resources

import "time"

// Resource is a file in the shared library, uploaded by mentors, sponsors,
// or staff for awardees to download.
type Resource struct {
	ID          int64
	Title       string
	Description string
	Category    string
	FileName    string
	FileURL     string
	ContentType string
	Size        int64
	UploaderID  int64
	Uploader    string
	CreatedAt   time.Time
}

// Categories the library groups resources under. Free-form categories are
// rejected at the form layer so the sidebar filter stays small.
var Categories = []string{
	"Study Guides",
	"Career",
	"Scholarship Forms",
	"Workshops",
	"Other",
}

// ValidCategory reports whether the category is one the library accepts.
func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}
