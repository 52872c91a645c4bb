package jobs

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/lit-program/lit-portal/testing"
)

func TestNewWelcomeEmailTask(t *testing.T) {
	task, err := NewWelcomeEmailTask("asha@example.edu", "Asha Rahman", "s3cretTemp")
	require.NoError(t, err)
	assert.Equal(t, TaskTypeSendEmail, task.Type())

	var payload SendEmailPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "asha@example.edu", payload.To)
	assert.Equal(t, "Welcome to the LIT Program Portal", payload.Subject)
	assert.Contains(t, payload.HTMLBody, "Asha Rahman")
	assert.Contains(t, payload.HTMLBody, "s3cretTemp")
}

func TestWelcomeEmailBodyEscapesInput(t *testing.T) {
	body := welcomeEmailBody("<script>", "x@example.edu", "pw")
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestHealthWithoutInspector(t *testing.T) {
	handler := NewHandler(nil, slog.Default())
	router := chi.NewRouter()
	router.Route("/jobs", handler.MountRoutes)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		Queue   string `json:"queue"`
		Pending int    `json:"pending"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, QueueDefault, status.Queue)
	assert.Zero(t, status.Pending)
}
