package applications

import (
	"context"
	"crypto/rand"
	"log/slog"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/lit-program/lit-portal/internal/authz"
	"github.com/lit-program/lit-portal/internal/shared"
)

// RepositoryPort is the persistence surface the service needs.
type RepositoryPort interface {
	Create(ctx context.Context, app *Application) (int64, error)
	Get(ctx context.Context, id int64) (*Application, error)
	List(ctx context.Context, status Status) ([]Application, error)
	Reject(ctx context.Context, id int64) error
	Approve(ctx context.Context, id int64, passwordHash string) (*ApproveResult, error)
}

// WelcomeMailer queues the onboarding email for freshly provisioned
// awardees.
type WelcomeMailer interface {
	EnqueueWelcomeEmail(ctx context.Context, to, name, tempPassword string) error
}

// Auditor records review decisions.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// GPA is reported on the US 4.0 scale with up to two decimals.
var gpaPattern = regexp.MustCompile(`^[0-4](\.\d{1,2})?$`)

// Service implements the application intake and review workflows.
type Service struct {
	repo     RepositoryPort
	mailer   WelcomeMailer
	auditor  Auditor
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService constructs an applications Service.
func NewService(repo RepositoryPort, mailer WelcomeMailer, auditor Auditor, logger *slog.Logger) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("gpa", func(fl validator.FieldLevel) bool {
		return gpaPattern.MatchString(fl.Field().String())
	})
	return &Service{repo: repo, mailer: mailer, auditor: auditor, logger: logger, validate: v}
}

// SubmitInput carries the public application form fields.
type SubmitInput struct {
	FullName     string `validate:"required,min=3"`
	Email        string `validate:"required,email"`
	UniversityID string `validate:"required,min=5"`
	BatchYear    string `validate:"required,len=4,number"`
	Major        string `validate:"required,min=2"`
	GPA          string `validate:"required,gpa"`
	Essay        string `validate:"required,min=50,max=5000"`
}

// Submit validates and stores a new application.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (int64, error) {
	input.FullName = strings.TrimSpace(input.FullName)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.UniversityID = strings.TrimSpace(input.UniversityID)
	input.BatchYear = strings.TrimSpace(input.BatchYear)
	input.Major = strings.TrimSpace(input.Major)
	input.GPA = strings.TrimSpace(input.GPA)
	input.Essay = strings.TrimSpace(input.Essay)

	if err := s.validate.Struct(input); err != nil {
		return 0, shared.NewUserError(submitValidationMessage(err))
	}

	return s.repo.Create(ctx, &Application{
		FullName:     input.FullName,
		Email:        input.Email,
		UniversityID: input.UniversityID,
		BatchYear:    input.BatchYear,
		Major:        input.Major,
		GPA:          input.GPA,
		Essay:        input.Essay,
		Status:       StatusPending,
	})
}

func submitValidationMessage(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return "Please check the form and try again."
	}
	switch errs[0].Field() {
	case "FullName":
		return "Full name must be at least 3 characters."
	case "Email":
		return "Please enter a valid email address."
	case "UniversityID":
		return "University ID must be at least 5 characters."
	case "BatchYear":
		return "Batch year must be a 4-digit year."
	case "Major":
		return "Major must be at least 2 characters."
	case "GPA":
		return "GPA must be between 0 and 4, e.g. 3.75."
	case "Essay":
		return "Essay must be between 50 and 5000 characters."
	}
	return "Please check the form and try again."
}

// List returns applications for the review console.
func (s *Service) List(ctx context.Context, status Status) ([]Application, error) {
	return s.repo.List(ctx, status)
}

// Get fetches one application for the detail view.
func (s *Service) Get(ctx context.Context, id int64) (*Application, error) {
	return s.repo.Get(ctx, id)
}

// Approve accepts a pending application, provisions or upgrades the
// applicant's account, and queues the welcome email. Only admins may
// approve.
func (s *Service) Approve(ctx context.Context, actor *authz.Actor, id int64) (*ApproveResult, error) {
	if !actor.Has(authz.RoleAdmin) {
		return nil, shared.NewUserError("Access Denied: Only Admins can review applications.")
	}

	tempPassword, err := generateTempPassword()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	result, err := s.repo.Approve(ctx, id, string(hash))
	if err != nil {
		return nil, err
	}

	// The account is committed: a failed email must not undo the approval.
	if result.CreatedNew && s.mailer != nil {
		if err := s.mailer.EnqueueWelcomeEmail(ctx, result.Application.Email, result.Application.FullName, tempPassword); err != nil {
			s.logger.Error("enqueue welcome email", slog.String("email", result.Application.Email), slog.Any("error", err))
		}
	}
	s.recordAudit(ctx, actor.ID, "application.approve", id, result.Application.Email)
	return result, nil
}

// Reject declines a pending application. Only admins may reject.
func (s *Service) Reject(ctx context.Context, actor *authz.Actor, id int64) error {
	if !actor.Has(authz.RoleAdmin) {
		return shared.NewUserError("Access Denied: Only Admins can review applications.")
	}
	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Reject(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor.ID, "application.reject", id, app.Email)
	return nil
}

// Audit failures are logged and never fail the review itself.
func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, email string) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "application",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"email": email},
	})
	if err != nil {
		s.logger.Warn("record audit log", slog.String("action", action), slog.Any("error", err))
	}
}

const tempPasswordAlphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateTempPassword() (string, error) {
	buf := make([]byte, 10)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(tempPasswordAlphabet))))
		if err != nil {
			return "", err
		}
		buf[i] = tempPasswordAlphabet[n.Int64()]
	}
	return string(buf), nil
}
