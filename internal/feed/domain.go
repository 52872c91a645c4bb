package feed

import "time"

// Attachment describes a file stored in object storage and linked to a post.
type Attachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// AuthorRef carries the display information of a post or comment author
// at read time. Roles reflect the author's current role labels.
type AuthorRef struct {
	ID    int64
	Name  string
	Roles []string
}

// IsStaff reports whether the author currently holds a staff role.
func (a AuthorRef) IsStaff() bool {
	for _, role := range a.Roles {
		if role == "admin" || role == "subadmin" {
			return true
		}
	}
	return false
}

// Post is a community feed entry.
type Post struct {
	ID          int64
	Author      AuthorRef
	Body        string
	Attachments []Attachment
	CreatedAt   time.Time
	Comments    []Comment
}

// Comment is a reply attached to a post.
type Comment struct {
	ID        int64
	PostID    int64
	Author    AuthorRef
	Body      string
	CreatedAt time.Time
}
