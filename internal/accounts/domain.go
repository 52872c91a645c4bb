package accounts

import (
	"strconv"
	"strings"
	"time"

	"github.com/lit-program/lit-portal/internal/authz"
)

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Account represents a portal user together with its current role set.
type Account struct {
	ID           int64
	Email        string
	FirstName    string
	LastName     string
	Bio          string
	PhoneNumber  string
	BatchYear    string
	PasswordHash string
	IsActive     bool
	Roles        authz.RoleSet
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName joins first and last name, falling back to a placeholder for
// accounts provisioned without names.
func (a Account) DisplayName() string {
	name := strings.TrimSpace(a.FirstName + " " + a.LastName)
	if name == "" {
		return "Unknown User"
	}
	return name
}

// Actor converts the account into an authz actor.
func (a Account) Actor() *authz.Actor {
	return &authz.Actor{
		ID:        a.ID,
		Email:     a.Email,
		Name:      a.DisplayName(),
		BatchYear: a.BatchYear,
		Roles:     a.Roles,
	}
}
