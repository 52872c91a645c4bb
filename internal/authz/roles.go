package authz

import "sort"

// Role is a label attached to an account. An account may hold several.
type Role string

// Portal roles. Admin and subadmin form the staff tier.
const (
	RoleAdmin    Role = "admin"
	RoleSubadmin Role = "subadmin"
	RoleMentor   Role = "mentor"
	RoleSponsor  Role = "sponsor"
	RoleAwardee  Role = "awardee"
)

// rolePrecedence is the single total order used for display and tie-breaks:
// admin > subadmin > mentor > sponsor > awardee.
var rolePrecedence = []Role{RoleAdmin, RoleSubadmin, RoleMentor, RoleSponsor, RoleAwardee}

// ValidRole reports whether name is a recognised role label.
func ValidRole(name string) bool {
	for _, r := range rolePrecedence {
		if Role(name) == r {
			return true
		}
	}
	return false
}

// RoleSet is an unordered collection of roles. Duplicates collapse.
type RoleSet map[Role]struct{}

// NewRoleSet builds a RoleSet from role values.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// RoleSetFromStrings builds a RoleSet from raw labels, dropping anything
// unrecognised.
func RoleSetFromStrings(labels []string) RoleSet {
	set := make(RoleSet, len(labels))
	for _, l := range labels {
		if ValidRole(l) {
			set[Role(l)] = struct{}{}
		}
	}
	return set
}

// Has reports whether the set contains the role.
func (s RoleSet) Has(role Role) bool {
	_, ok := s[role]
	return ok
}

// IsStaff reports whether the set intersects {admin, subadmin}. This is a
// set intersection, not an equality check: any staff role present counts.
func (s RoleSet) IsStaff() bool {
	return s.Has(RoleAdmin) || s.Has(RoleSubadmin)
}

// Dominant returns the most privileged role in the set per the central
// precedence order, or the empty Role for an empty set.
func (s RoleSet) Dominant() Role {
	for _, r := range rolePrecedence {
		if s.Has(r) {
			return r
		}
	}
	return ""
}

// Strings returns the roles sorted by precedence, most privileged first.
func (s RoleSet) Strings() []string {
	out := make([]string, 0, len(s))
	for _, r := range rolePrecedence {
		if s.Has(r) {
			out = append(out, string(r))
		}
	}
	// Unknown labels cannot appear via the constructors, but keep the
	// output deterministic if a caller built the map directly.
	if len(out) != len(s) {
		out = out[:0]
		for r := range s {
			out = append(out, string(r))
		}
		sort.Strings(out)
	}
	return out
}

// PrivilegedRole reports whether assigning the named role requires the
// assign-privileged-role action.
func PrivilegedRole(name string) bool {
	return Role(name) == RoleAdmin || Role(name) == RoleSubadmin
}
