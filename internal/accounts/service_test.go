package accounts_test

import (
	"context"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/lit-program/lit-portal/internal/accounts"
	"github.com/lit-program/lit-portal/internal/authz"
	"github.com/lit-program/lit-portal/internal/shared"
	_ "github.com/lit-program/lit-portal/testing"
)

type stubRepo struct {
	accounts   map[int64]*accounts.Account
	nextID     int64
	lastCreate *accounts.Account
	lastRole   authz.Role
	deleted    []int64
	passwords  map[int64]string
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		accounts:  make(map[int64]*accounts.Account),
		nextID:    100,
		passwords: make(map[int64]string),
	}
}

func (s *stubRepo) add(id int64, email string, roles ...authz.Role) *accounts.Account {
	a := &accounts.Account{ID: id, Email: email, FirstName: "Test", LastName: "User", IsActive: true, Roles: authz.NewRoleSet(roles...)}
	s.accounts[id] = a
	return a
}

func (s *stubRepo) List(ctx context.Context) ([]accounts.Account, error) {
	var out []accounts.Account
	for _, a := range s.accounts {
		out = append(out, *a)
	}
	return out, nil
}

func (s *stubRepo) GetByID(ctx context.Context, id int64) (*accounts.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return a, nil
}

func (s *stubRepo) CreateWithRole(ctx context.Context, account *accounts.Account, role authz.Role) (int64, error) {
	for _, existing := range s.accounts {
		if existing.Email == account.Email {
			return 0, shared.ErrDuplicateEmail
		}
	}
	s.nextID++
	account.ID = s.nextID
	account.Roles = authz.NewRoleSet(role)
	s.accounts[s.nextID] = account
	s.lastCreate = account
	s.lastRole = role
	return s.nextID, nil
}

func (s *stubRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := s.accounts[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.accounts, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	if _, ok := s.accounts[id]; !ok {
		return shared.ErrNotFound
	}
	s.passwords[id] = hash
	return nil
}

func (s *stubRepo) UpdateProfile(ctx context.Context, id int64, update accounts.ProfileUpdate) error {
	a, ok := s.accounts[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.FirstName = update.FirstName
	a.LastName = update.LastName
	a.Bio = update.Bio
	a.PhoneNumber = update.PhoneNumber
	if update.PasswordHash != "" {
		s.passwords[id] = update.PasswordHash
	}
	return nil
}

func (s *stubRepo) RolesOf(ctx context.Context, id int64) (authz.RoleSet, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return a.Roles, nil
}

func (s *stubRepo) AssignRole(ctx context.Context, id int64, role authz.Role) error {
	a, ok := s.accounts[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.Roles[role] = struct{}{}
	return nil
}

func (s *stubRepo) RemoveRole(ctx context.Context, id int64, role authz.Role) error {
	a, ok := s.accounts[id]
	if !ok {
		return shared.ErrNotFound
	}
	delete(a.Roles, role)
	return nil
}

type stubMailer struct {
	sent []string
	err  error
}

func (m *stubMailer) EnqueueWelcomeEmail(ctx context.Context, to, name, tempPassword string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

func adminActor(id int64) *authz.Actor {
	return &authz.Actor{ID: id, Roles: authz.NewRoleSet(authz.RoleAdmin)}
}

func subadminActor(id int64) *authz.Actor {
	return &authz.Actor{ID: id, Roles: authz.NewRoleSet(authz.RoleSubadmin)}
}

func TestCreateAwardeeRequiresBatchYear(t *testing.T) {
	repo := newStubRepo()
	svc := accounts.NewService(nil, repo, &stubMailer{}, nil)

	_, err := svc.Create(context.Background(), adminActor(1), accounts.CreateInput{
		FirstName: "Amina",
		LastName:  "Khan",
		Email:     "amina@litprogram.uni",
		Password:  "supersecret",
		Role:      "awardee",
	})
	if err == nil || !strings.Contains(err.Error(), "Batch Year") {
		t.Fatalf("expected batch year requirement, got %v", err)
	}

	id, err := svc.Create(context.Background(), adminActor(1), accounts.CreateInput{
		FirstName: "Amina",
		LastName:  "Khan",
		Email:     "amina@litprogram.uni",
		Password:  "supersecret",
		Role:      "awardee",
		BatchYear: "2027",
	})
	if err != nil {
		t.Fatalf("create awardee: %v", err)
	}
	if repo.accounts[id].BatchYear != "2027" {
		t.Fatalf("batch year not stored")
	}
}

func TestSubadminCannotCreateStaff(t *testing.T) {
	repo := newStubRepo()
	svc := accounts.NewService(nil, repo, &stubMailer{}, nil)

	for _, role := range []string{"admin", "subadmin"} {
		_, err := svc.Create(context.Background(), subadminActor(2), accounts.CreateInput{
			FirstName: "Eve",
			LastName:  "Low",
			Email:     "eve@litprogram.uni",
			Password:  "supersecret",
			Role:      role,
		})
		if err == nil || !strings.Contains(err.Error(), "Admin or Sub-admin") {
			t.Fatalf("subadmin creating %s should be denied, got %v", role, err)
		}
	}

	// Non-staff roles remain fine.
	if _, err := svc.Create(context.Background(), subadminActor(2), accounts.CreateInput{
		FirstName: "Eve",
		LastName:  "Low",
		Email:     "eve@litprogram.uni",
		Password:  "supersecret",
		Role:      "mentor",
	}); err != nil {
		t.Fatalf("subadmin creating mentor: %v", err)
	}
}

func TestCreateSendsWelcomeEmailAndSurvivesMailFailure(t *testing.T) {
	repo := newStubRepo()
	mailer := &stubMailer{}
	svc := accounts.NewService(nil, repo, mailer, nil)

	if _, err := svc.Create(context.Background(), adminActor(1), accounts.CreateInput{
		FirstName: "Noor",
		LastName:  "Ali",
		Email:     "noor@litprogram.uni",
		Password:  "supersecret",
		Role:      "mentor",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != "noor@litprogram.uni" {
		t.Fatalf("welcome email not enqueued: %v", mailer.sent)
	}

	// A failing mail enqueue must not fail the creation.
	failing := &stubMailer{err: context.DeadlineExceeded}
	svc = accounts.NewService(nil, repo, failing, nil)
	if _, err := svc.Create(context.Background(), adminActor(1), accounts.CreateInput{
		FirstName: "Sana",
		LastName:  "Riaz",
		Email:     "sana@litprogram.uni",
		Password:  "supersecret",
		Role:      "sponsor",
	}); err != nil {
		t.Fatalf("create with failing mailer: %v", err)
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	repo := newStubRepo()
	repo.add(1, "taken@litprogram.uni", authz.RoleMentor)
	svc := accounts.NewService(nil, repo, &stubMailer{}, nil)

	_, err := svc.Create(context.Background(), adminActor(9), accounts.CreateInput{
		FirstName: "Dup",
		LastName:  "User",
		Email:     "taken@litprogram.uni",
		Password:  "supersecret",
		Role:      "mentor",
	})
	if err == nil || shared.UserSafeMessage(err) != "An account with this email already exists." {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
}

func TestDeleteRules(t *testing.T) {
	repo := newStubRepo()
	repo.add(1, "admin@litprogram.uni", authz.RoleAdmin)
	repo.add(2, "sub@litprogram.uni", authz.RoleSubadmin)
	repo.add(3, "mentor@litprogram.uni", authz.RoleMentor)
	svc := accounts.NewService(nil, repo, &stubMailer{}, nil)
	ctx := context.Background()

	// Self-deletion through the staff path is blocked.
	err := svc.Delete(ctx, adminActor(1), 1)
	if err == nil || !strings.Contains(err.Error(), "yourself") {
		t.Fatalf("self delete should be blocked, got %v", err)
	}

	// Subadmin cannot delete staff.
	err = svc.Delete(ctx, subadminActor(2), 1)
	if err == nil || !strings.Contains(err.Error(), "Admins") {
		t.Fatalf("subadmin deleting admin should be denied, got %v", err)
	}

	// Subadmin can delete a mentor.
	if err := svc.Delete(ctx, subadminActor(2), 3); err != nil {
		t.Fatalf("subadmin deleting mentor: %v", err)
	}

	// Deleting an account that is already gone is a benign NotFound.
	if err := svc.Delete(ctx, adminActor(1), 3); err != shared.ErrNotFound {
		t.Fatalf("expected ErrNotFound for repeated delete, got %v", err)
	}
}

func TestResetPasswordRules(t *testing.T) {
	repo := newStubRepo()
	repo.add(1, "admin@litprogram.uni", authz.RoleAdmin)
	repo.add(3, "mentor@litprogram.uni", authz.RoleMentor)
	svc := accounts.NewService(nil, repo, &stubMailer{}, nil)
	ctx := context.Background()

	err := svc.ResetPassword(ctx, subadminActor(2), 1, "newpassword")
	if err == nil || !strings.Contains(err.Error(), "passwords") {
		t.Fatalf("subadmin resetting admin password should be denied, got %v", err)
	}

	if err := svc.ResetPassword(ctx, subadminActor(2), 3, "newpassword"); err != nil {
		t.Fatalf("reset mentor password: %v", err)
	}
	hash, ok := repo.passwords[3]
	if !ok {
		t.Fatal("password not updated")
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("newpassword")) != nil {
		t.Fatal("stored hash does not match new password")
	}
}

func TestDirectoryPartitionsMentorsAndScholars(t *testing.T) {
	repo := newStubRepo()
	repo.add(1, "admin@litprogram.uni", authz.RoleAdmin)
	repo.add(2, "mentor@litprogram.uni", authz.RoleMentor)
	repo.add(3, "old@litprogram.uni", authz.RoleAwardee).BatchYear = "2024"
	repo.add(4, "new@litprogram.uni", authz.RoleAwardee).BatchYear = "2026"
	inactive := repo.add(5, "gone@litprogram.uni", authz.RoleMentor)
	inactive.IsActive = false
	svc := accounts.NewService(nil, repo, &stubMailer{}, nil)

	dir, err := svc.Directory(context.Background())
	if err != nil {
		t.Fatalf("directory: %v", err)
	}

	if len(dir.Mentors) != 1 || dir.Mentors[0].Email != "mentor@litprogram.uni" {
		t.Fatalf("expected one active mentor, got %+v", dir.Mentors)
	}
	if len(dir.Scholars) != 2 {
		t.Fatalf("expected two scholars, got %+v", dir.Scholars)
	}
	// Most recent class first.
	if dir.Scholars[0].BatchYear != "2026" || dir.Scholars[1].BatchYear != "2024" {
		t.Fatalf("scholars not ordered by batch year: %+v", dir.Scholars)
	}
}

func TestAssignRoleRules(t *testing.T) {
	repo := newStubRepo()
	repo.add(1, "admin@litprogram.uni", authz.RoleAdmin)
	repo.add(3, "mentor@litprogram.uni", authz.RoleMentor)
	svc := accounts.NewService(nil, repo, &stubMailer{}, nil)
	ctx := context.Background()

	// Subadmin granting a privileged role is denied regardless of target.
	err := svc.AssignRole(ctx, subadminActor(2), 3, "subadmin")
	if err == nil || !strings.Contains(err.Error(), "Admin or Sub-admin") {
		t.Fatalf("subadmin granting subadmin should be denied, got %v", err)
	}

	// Subadmin may not touch a staff account's roles even for plain roles.
	err = svc.AssignRole(ctx, subadminActor(2), 1, "mentor")
	if err == nil || !strings.Contains(err.Error(), "Staff") {
		t.Fatalf("subadmin adding role to admin should be denied, got %v", err)
	}

	// Subadmin granting a plain role to a non-staff account is fine.
	if err := svc.AssignRole(ctx, subadminActor(2), 3, "sponsor"); err != nil {
		t.Fatalf("subadmin granting sponsor: %v", err)
	}
	if !repo.accounts[3].Roles.Has(authz.RoleSponsor) {
		t.Fatal("sponsor role not stored")
	}

	// Admin may promote anyone.
	if err := svc.AssignRole(ctx, adminActor(1), 3, "subadmin"); err != nil {
		t.Fatalf("admin promoting mentor: %v", err)
	}
	if !repo.accounts[3].Roles.Has(authz.RoleSubadmin) {
		t.Fatal("subadmin role not stored")
	}

	if err := svc.AssignRole(ctx, adminActor(1), 3, "chancellor"); err == nil {
		t.Fatal("unknown role must be rejected")
	}
}

func TestRemoveRoleRules(t *testing.T) {
	repo := newStubRepo()
	repo.add(1, "admin@litprogram.uni", authz.RoleAdmin)
	repo.add(4, "both@litprogram.uni", authz.RoleSubadmin, authz.RoleMentor)
	svc := accounts.NewService(nil, repo, &stubMailer{}, nil)
	ctx := context.Background()

	// Stripping a privileged role is itself a privileged mutation.
	err := svc.RemoveRole(ctx, subadminActor(2), 4, "subadmin")
	if err == nil || !strings.Contains(err.Error(), "Admin or Sub-admin") {
		t.Fatalf("subadmin demoting subadmin should be denied, got %v", err)
	}

	if err := svc.RemoveRole(ctx, adminActor(1), 4, "subadmin"); err != nil {
		t.Fatalf("admin demoting subadmin: %v", err)
	}
	if repo.accounts[4].Roles.Has(authz.RoleSubadmin) {
		t.Fatal("subadmin role not removed")
	}

	// Once demoted, the former subadmin is reachable by subadmin actors.
	if err := svc.RemoveRole(ctx, subadminActor(2), 4, "mentor"); err != nil {
		t.Fatalf("subadmin removing mentor role: %v", err)
	}
	if repo.accounts[4].Roles.Has(authz.RoleMentor) {
		t.Fatal("mentor role not removed")
	}
}

func TestUpdateProfilePasswordConfirmation(t *testing.T) {
	repo := newStubRepo()
	repo.add(5, "user@litprogram.uni", authz.RoleAwardee)
	svc := accounts.NewService(nil, repo, &stubMailer{}, nil)
	ctx := context.Background()

	err := svc.UpdateProfile(ctx, 5, accounts.ProfileInput{
		FirstName:       "New",
		LastName:        "Name",
		NewPassword:     "longenough",
		ConfirmPassword: "different",
	})
	if err == nil || !strings.Contains(err.Error(), "match") {
		t.Fatalf("mismatched confirmation should fail, got %v", err)
	}

	if err := svc.UpdateProfile(ctx, 5, accounts.ProfileInput{
		FirstName: "New",
		LastName:  "Name",
		Bio:       "Hello",
	}); err != nil {
		t.Fatalf("profile update: %v", err)
	}
	if repo.accounts[5].FirstName != "New" || repo.accounts[5].Bio != "Hello" {
		t.Fatal("profile fields not applied")
	}
	if _, changed := repo.passwords[5]; changed {
		t.Fatal("password must not change when field left empty")
	}
}
