package authz

// Action names a moderation or account-management operation subject to the
// rule table.
type Action string

const (
	ActionDeleteContent        Action = "delete-content"
	ActionDeleteAccount        Action = "delete-account"
	ActionResetPassword        Action = "reset-password"
	ActionAssignPrivilegedRole Action = "assign-privileged-role"
)

// Decision is the binary outcome of a rule evaluation. Reason is a
// human-readable sentence surfaced to the caller on deny.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow returns a permissive decision.
func Allow() Decision { return Decision{Allowed: true} }

// Deny returns a denial carrying the given reason.
func Deny(reason string) Decision { return Decision{Reason: reason} }

// Request is a single evaluation input: who is acting, who owns the target,
// and what is being attempted. Owner fields are ignored for actions that
// have no subject owner (assign-privileged-role).
type Request struct {
	ActorID int64
	Actor   RoleSet
	OwnerID int64
	Owner   RoleSet
	Action  Action
}

// IsSelf reports whether the actor targets their own account or content.
func (r Request) IsSelf() bool {
	return r.ActorID != 0 && r.ActorID == r.OwnerID
}

// staffShieldReasons names the sentence rendered when a subadmin attempts
// to act on staff-owned subjects.
var staffShieldReasons = map[Action]string{
	ActionDeleteContent: "Access Denied: Cannot delete Staff posts.",
	ActionDeleteAccount: "Access Denied: You cannot delete Admins or Sub-admins.",
	ActionResetPassword: "Access Denied: Cannot reset Admin/Sub-admin passwords.",
}

// rule inspects a request and either produces a terminal decision or passes
// to the next rule in the table.
type rule func(Request) (Decision, bool)

// ruleTable is evaluated top to bottom; the first rule that claims the
// request wins. Unrecognised actions fall through every rule and are denied.
var ruleTable = []rule{
	ruleUnknownAction,
	ruleSelfDeleteAccount,
	ruleOwnershipWins,
	ruleAdminDominance,
	ruleSubadminPrivilegedAssignment,
	ruleSubadminStaffShield,
	ruleSubadminAllow,
}

// Decide evaluates the rule table for the request. It is pure and total:
// it never fails and never consults external state, so role sets must be
// resolved fresh by the caller before every evaluation.
func Decide(req Request) Decision {
	for _, r := range ruleTable {
		if decision, done := r(req); done {
			return decision
		}
	}
	return Deny("Unauthorized")
}

func ruleUnknownAction(req Request) (Decision, bool) {
	switch req.Action {
	case ActionDeleteContent, ActionDeleteAccount, ActionResetPassword, ActionAssignPrivilegedRole:
		return Decision{}, false
	}
	return Deny("Unauthorized"), true
}

// Deleting one's own account through the staff path is blocked for every
// actor, admins included.
func ruleSelfDeleteAccount(req Request) (Decision, bool) {
	if req.Action == ActionDeleteAccount && req.IsSelf() {
		return Deny("Cannot delete yourself."), true
	}
	return Decision{}, false
}

// Ownership always wins for content: any account may delete its own posts,
// comments and resources regardless of role, even with an empty role set.
func ruleOwnershipWins(req Request) (Decision, bool) {
	if req.Action == ActionDeleteContent && req.IsSelf() {
		return Allow(), true
	}
	return Decision{}, false
}

func ruleAdminDominance(req Request) (Decision, bool) {
	if req.Actor.Has(RoleAdmin) {
		return Allow(), true
	}
	return Decision{}, false
}

// A subadmin may never assign admin or subadmin, independent of any owner
// check. The action itself encodes that a privileged role is the target.
func ruleSubadminPrivilegedAssignment(req Request) (Decision, bool) {
	if req.Action == ActionAssignPrivilegedRole && req.Actor.Has(RoleSubadmin) {
		return Deny("Access Denied: You cannot create Admin or Sub-admin accounts."), true
	}
	return Decision{}, false
}

func ruleSubadminStaffShield(req Request) (Decision, bool) {
	if req.Actor.Has(RoleSubadmin) && req.Owner.IsStaff() {
		reason, ok := staffShieldReasons[req.Action]
		if !ok {
			reason = "Access Denied: Cannot act on Staff."
		}
		return Deny(reason), true
	}
	return Decision{}, false
}

func ruleSubadminAllow(req Request) (Decision, bool) {
	if req.Actor.Has(RoleSubadmin) {
		return Allow(), true
	}
	return Decision{}, false
}
