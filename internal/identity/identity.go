// Package identity verifies the shape of a caller-supplied identity.
//
// It does not authenticate anyone. The calling layer owns authentication and
// hands over a user id, a role and a team id; this package only decides
// whether those values are complete and consistent enough to be trusted for
// the rest of the request. Anything missing or malformed is denied: the gate
// never fills in a default role or guesses a team.
package identity

import (
	"strings"
	"unicode/utf8"

	"github.com/gzhole/talentguard/internal/logger"
)

// Role is one of the four canonical workforce roles.
type Role string

const (
	RoleEmployee  Role = "employee"
	RoleTeamLead  Role = "team_lead"
	RoleManager   Role = "manager"
	RoleExecutive Role = "executive"
)

// Roles lists every canonical role, least privileged first.
var Roles = []Role{RoleEmployee, RoleTeamLead, RoleManager, RoleExecutive}

// ParseRole maps a raw role string onto the closed role set.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch r {
	case RoleEmployee, RoleTeamLead, RoleManager, RoleExecutive:
		return r, true
	}
	return "", false
}

func (r Role) String() string { return string(r) }

// IsExecutive reports whether r is the executive role.
func (r Role) IsExecutive() bool { return r == RoleExecutive }

// Principal is a verified caller identity.
type Principal struct {
	UserID string
	Role   Role
	TeamID string
}

// Denial reasons recorded in fail_closed audit events.
const (
	ReasonMissingUserID = "missing_user_id"
	ReasonInvalidRole   = "invalid_role"
	ReasonMissingTeamID = "missing_team_id"
)

const (
	msgMissingUserID = "I couldn't verify your identity. Please log in again."
	msgInvalidRole   = "I couldn't verify your permissions. Please contact support."
	msgMissingTeamID = "I couldn't determine your team. Please contact support."
)

// DefaultMinUserIDLength is the shortest user id considered verified.
const DefaultMinUserIDLength = 10

// Result is the outcome of an identity check.
type Result struct {
	OK        bool
	Message   string
	Reason    string
	Principal Principal
}

// Gate is the fail-closed identity check.
type Gate struct {
	minUserIDLength int
	audit           logger.Auditor
}

// NewGate creates an identity gate. A non-positive minUserIDLength selects
// DefaultMinUserIDLength; a nil auditor discards events.
func NewGate(minUserIDLength int, audit logger.Auditor) *Gate {
	if minUserIDLength <= 0 {
		minUserIDLength = DefaultMinUserIDLength
	}
	if audit == nil {
		audit = logger.Nop()
	}
	return &Gate{minUserIDLength: minUserIDLength, audit: audit}
}

// Check verifies userID, role and teamID in that order and returns the first
// failure. Executives may omit the team id.
func (g *Gate) Check(userID, role, teamID string) Result {
	if userID == "" || utf8.RuneCountInString(userID) < g.minUserIDLength {
		g.audit.LogSecurityEvent(logger.EventFailClosed, map[string]any{
			"reason": ReasonMissingUserID,
		})
		return Result{Message: msgMissingUserID, Reason: ReasonMissingUserID}
	}

	r, ok := ParseRole(role)
	if !ok {
		g.audit.LogSecurityEvent(logger.EventFailClosed, map[string]any{
			"reason": ReasonInvalidRole,
			"role":   role,
		})
		return Result{Message: msgInvalidRole, Reason: ReasonInvalidRole}
	}

	if teamID == "" && !r.IsExecutive() {
		g.audit.LogSecurityEvent(logger.EventFailClosed, map[string]any{
			"reason": ReasonMissingTeamID,
			"role":   role,
		})
		return Result{Message: msgMissingTeamID, Reason: ReasonMissingTeamID}
	}

	return Result{
		OK:        true,
		Principal: Principal{UserID: userID, Role: r, TeamID: teamID},
	}
}
