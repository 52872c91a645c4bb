package jobs

import (
	"encoding/json"
	"fmt"
	"html"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewWelcomeEmailTask builds the onboarding email sent to freshly
// provisioned members with their temporary password.
func NewWelcomeEmailTask(to, name, tempPassword string) (*asynq.Task, error) {
	return NewSendEmailTask(SendEmailPayload{
		To:       to,
		Subject:  "Welcome to the LIT Program Portal",
		HTMLBody: welcomeEmailBody(name, to, tempPassword),
	})
}

func welcomeEmailBody(name, email, tempPassword string) string {
	return fmt.Sprintf(`<div style="font-family:sans-serif;max-width:560px;margin:0 auto">
<h2>Welcome, %s!</h2>
<p>Your LIT Program Portal account is ready. Sign in with the credentials below and change your password right away.</p>
<table cellpadding="6" style="border:1px solid #ddd;border-collapse:collapse">
<tr><td><strong>Email</strong></td><td>%s</td></tr>
<tr><td><strong>Temporary password</strong></td><td><code>%s</code></td></tr>
</table>
<p>From your dashboard you can join the community feed, browse the resource library, and book mentorship sessions.</p>
<p>— The LIT Program Team</p>
</div>`,
		html.EscapeString(name), html.EscapeString(email), html.EscapeString(tempPassword))
}
