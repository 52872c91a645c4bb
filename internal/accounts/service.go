package accounts

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/lit-program/lit-portal/internal/authz"
	"github.com/lit-program/lit-portal/internal/shared"
)

// RepositoryPort defines data access methods for the accounts service.
type RepositoryPort interface {
	List(ctx context.Context) ([]Account, error)
	GetByID(ctx context.Context, id int64) (*Account, error)
	CreateWithRole(ctx context.Context, account *Account, role authz.Role) (int64, error)
	Delete(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateProfile(ctx context.Context, id int64, update ProfileUpdate) error
	RolesOf(ctx context.Context, accountID int64) (authz.RoleSet, error)
	AssignRole(ctx context.Context, accountID int64, role authz.Role) error
	RemoveRole(ctx context.Context, accountID int64, role authz.Role) error
}

// WelcomeMailer enqueues the welcome email sent to newly provisioned
// accounts. Enqueue failures are logged and swallowed: mail never rolls
// back an account mutation.
type WelcomeMailer interface {
	EnqueueWelcomeEmail(ctx context.Context, to, name, tempPassword string) error
}

// Auditor records staff actions.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles account management business rules.
type Service struct {
	logger   *slog.Logger
	repo     RepositoryPort
	mailer   WelcomeMailer
	audit    Auditor
	validate *validator.Validate
}

// NewService builds a Service instance.
func NewService(logger *slog.Logger, repo RepositoryPort, mailer WelcomeMailer, audit Auditor) *Service {
	return &Service{
		logger:   logger,
		repo:     repo,
		mailer:   mailer,
		audit:    audit,
		validate: validator.New(),
	}
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

// Get returns a single account.
func (s *Service) Get(ctx context.Context, id int64) (*Account, error) {
	return s.repo.GetByID(ctx, id)
}

// Directory groups the community directory listing: every mentor, and every
// scholar ordered by batch year, most recent class first.
type Directory struct {
	Mentors  []Account
	Scholars []Account
}

// Directory builds the member-facing community directory.
func (s *Service) Directory(ctx context.Context) (*Directory, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	dir := &Directory{}
	for _, a := range all {
		if !a.IsActive {
			continue
		}
		if a.Roles.Has(authz.RoleMentor) {
			dir.Mentors = append(dir.Mentors, a)
		}
		if a.Roles.Has(authz.RoleAwardee) {
			dir.Scholars = append(dir.Scholars, a)
		}
	}
	sort.Slice(dir.Mentors, func(i, j int) bool {
		return dir.Mentors[i].DisplayName() < dir.Mentors[j].DisplayName()
	})
	sort.Slice(dir.Scholars, func(i, j int) bool {
		if dir.Scholars[i].BatchYear != dir.Scholars[j].BatchYear {
			return dir.Scholars[i].BatchYear > dir.Scholars[j].BatchYear
		}
		return dir.Scholars[i].DisplayName() < dir.Scholars[j].DisplayName()
	})
	return dir, nil
}

// CreateInput carries the staff user-creation form.
type CreateInput struct {
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	Email     string `validate:"required,email"`
	Password  string `validate:"required,min=8"`
	Role      string `validate:"required"`
	BatchYear string
}

// Create provisions a new account with an initial role. Only staff may
// create accounts; subadmins may not create staff accounts.
func (s *Service) Create(ctx context.Context, actor *authz.Actor, input CreateInput) (int64, error) {
	if actor == nil || !actor.IsStaff() {
		return 0, shared.NewUserError("Unauthorized")
	}
	if err := s.validate.Struct(input); err != nil {
		return 0, shared.NewUserError("Missing required fields.")
	}
	if !authz.ValidRole(input.Role) {
		return 0, shared.NewUserError("Unknown role.")
	}

	// The assignment check runs against the role being assigned, not any
	// existing account's roles.
	if authz.PrivilegedRole(input.Role) {
		decision := authz.Decide(authz.Request{
			ActorID: actor.ID,
			Actor:   actor.Roles,
			Action:  authz.ActionAssignPrivilegedRole,
		})
		if !decision.Allowed {
			return 0, shared.NewUserError(decision.Reason)
		}
	}

	if authz.Role(input.Role) == authz.RoleAwardee && strings.TrimSpace(input.BatchYear) == "" {
		return 0, shared.NewUserError("Batch Year is required when creating a Student account.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	account := &Account{
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PasswordHash: string(hash),
	}
	if authz.Role(input.Role) == authz.RoleAwardee {
		account.BatchYear = strings.TrimSpace(input.BatchYear)
	}

	id, err := s.repo.CreateWithRole(ctx, account, authz.Role(input.Role))
	if err != nil {
		return 0, err
	}

	if s.mailer != nil {
		if err := s.mailer.EnqueueWelcomeEmail(ctx, account.Email, account.DisplayName(), input.Password); err != nil {
			s.logger.Warn("enqueue welcome email", slog.String("email", account.Email), slog.Any("error", err))
		}
	}
	s.recordAudit(ctx, actor.ID, "account.create", id)
	return id, nil
}

// Delete removes an account after a fresh rule evaluation against the
// target's current role set.
func (s *Service) Delete(ctx context.Context, actor *authz.Actor, targetID int64) error {
	if actor == nil {
		return shared.NewUserError("Unauthorized")
	}
	targetRoles, err := s.repo.RolesOf(ctx, targetID)
	if err != nil {
		return err
	}
	decision := authz.Decide(authz.Request{
		ActorID: actor.ID,
		Actor:   actor.Roles,
		OwnerID: targetID,
		Owner:   targetRoles,
		Action:  authz.ActionDeleteAccount,
	})
	if !decision.Allowed {
		return shared.NewUserError(decision.Reason)
	}
	if err := s.repo.Delete(ctx, targetID); err != nil {
		return err
	}
	s.recordAudit(ctx, actor.ID, "account.delete", targetID)
	return nil
}

// ResetPassword sets a new password on the target account after a fresh
// rule evaluation.
func (s *Service) ResetPassword(ctx context.Context, actor *authz.Actor, targetID int64, newPassword string) error {
	if actor == nil {
		return shared.NewUserError("Unauthorized")
	}
	if len(newPassword) < 8 {
		return shared.NewUserError("Password must be at least 8 characters long.")
	}
	targetRoles, err := s.repo.RolesOf(ctx, targetID)
	if err != nil {
		return err
	}
	decision := authz.Decide(authz.Request{
		ActorID: actor.ID,
		Actor:   actor.Roles,
		OwnerID: targetID,
		Owner:   targetRoles,
		Action:  authz.ActionResetPassword,
	})
	if !decision.Allowed {
		return shared.NewUserError(decision.Reason)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, targetID, string(hash)); err != nil {
		return err
	}
	s.recordAudit(ctx, actor.ID, "account.reset_password", targetID)
	return nil
}

// AssignRole grants an additional role to the target account after a fresh
// rule evaluation against the target's current role set.
func (s *Service) AssignRole(ctx context.Context, actor *authz.Actor, targetID int64, role string) error {
	if err := s.authorizeRoleChange(ctx, actor, targetID, role); err != nil {
		return err
	}
	if err := s.repo.AssignRole(ctx, targetID, authz.Role(role)); err != nil {
		return err
	}
	s.recordAudit(ctx, actor.ID, "account.assign_role", targetID)
	return nil
}

// RemoveRole detaches a role from the target account under the same rules
// as assignment.
func (s *Service) RemoveRole(ctx context.Context, actor *authz.Actor, targetID int64, role string) error {
	if err := s.authorizeRoleChange(ctx, actor, targetID, role); err != nil {
		return err
	}
	if err := s.repo.RemoveRole(ctx, targetID, authz.Role(role)); err != nil {
		return err
	}
	s.recordAudit(ctx, actor.ID, "account.remove_role", targetID)
	return nil
}

// authorizeRoleChange gates both role mutations. Privileged roles run the
// assign-privileged-role rule; plain roles still keep subadmins away from
// staff accounts.
func (s *Service) authorizeRoleChange(ctx context.Context, actor *authz.Actor, targetID int64, role string) error {
	if actor == nil || !actor.IsStaff() {
		return shared.NewUserError("Unauthorized")
	}
	if !authz.ValidRole(role) {
		return shared.NewUserError("Unknown role.")
	}
	targetRoles, err := s.repo.RolesOf(ctx, targetID)
	if err != nil {
		return err
	}
	if authz.PrivilegedRole(role) {
		decision := authz.Decide(authz.Request{
			ActorID: actor.ID,
			Actor:   actor.Roles,
			OwnerID: targetID,
			Owner:   targetRoles,
			Action:  authz.ActionAssignPrivilegedRole,
		})
		if !decision.Allowed {
			return shared.NewUserError(decision.Reason)
		}
		return nil
	}
	if !actor.Has(authz.RoleAdmin) && targetRoles.IsStaff() {
		return shared.NewUserError("Access Denied: Cannot act on Staff.")
	}
	return nil
}

// ProfileInput carries the self-service profile form.
type ProfileInput struct {
	FirstName       string
	LastName        string
	Bio             string
	PhoneNumber     string
	NewPassword     string
	ConfirmPassword string
}

// UpdateProfile applies a user's changes to their own account.
func (s *Service) UpdateProfile(ctx context.Context, actorID int64, input ProfileInput) error {
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return shared.NewUserError("First and last name are required.")
	}
	update := ProfileUpdate{
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		Bio:         strings.TrimSpace(input.Bio),
		PhoneNumber: strings.TrimSpace(input.PhoneNumber),
	}
	if input.NewPassword != "" {
		if len(input.NewPassword) < 8 {
			return shared.NewUserError("Password must be at least 8 characters long.")
		}
		if input.NewPassword != input.ConfirmPassword {
			return shared.NewUserError("Passwords do not match.")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		update.PasswordHash = string(hash)
	}
	return s.repo.UpdateProfile(ctx, actorID, update)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "account",
		EntityID: formatID(entityID),
	}
	if err := s.audit.Record(ctx, log); err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
