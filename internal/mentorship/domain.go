package mentorship

import "time"

// Meeting is a scheduled mentorship session. TargetBatch narrows the
// audience to one awardee batch; an empty TargetBatch invites every batch.
type Meeting struct {
	ID          int64
	Title       string
	Description string
	MeetingURL  string
	ScheduledAt time.Time
	TargetBatch string
	HostID      int64
	Host        string
	CreatedAt   time.Time
}

// Upcoming reports whether the session has not started yet.
func (m Meeting) Upcoming() bool {
	return m.ScheduledAt.After(time.Now())
}
