package policy

import (
	"fmt"

	"github.com/gzhole/talentguard/internal/identity"
	"github.com/gzhole/talentguard/internal/logger"
)

const (
	msgUnknownIntent  = "I don't understand that request."
	msgActionDenied   = "I'm sorry, you don't have permission to perform this action."
	msgSelfDecision   = "You cannot approve or reject your own leave request."
	msgOtherTeam      = "You can only access data for employees in your team."
	msgResourceDenied = "I'm sorry, you don't have permission to access this data."
	maxLoggedResource = 100
)

// Engine runs the intent, action and resource gates in order and stops at
// the first denial.
type Engine struct {
	matrix Matrix
	audit  logger.Auditor
}

// NewEngine creates an engine over the compiled matrix. A nil auditor
// discards events.
func NewEngine(audit logger.Auditor) *Engine {
	if audit == nil {
		audit = logger.Nop()
	}
	return &Engine{matrix: DefaultMatrix(), audit: audit}
}

// Matrix returns the engine's permission table.
func (e *Engine) Matrix() Matrix { return e.matrix }

// Authorize checks req. The resource gate only runs when a non-empty
// resource is supplied.
func (e *Engine) Authorize(req AuthRequest) AuthResult {
	intent, ok := ParseIntent(req.Intent)
	if !ok {
		e.audit.LogSecurityEvent(logger.EventInvalidIntent, map[string]any{
			"intent":  req.Intent,
			"user_id": req.UserID,
		})
		return AuthResult{Message: msgUnknownIntent, Gate: GateIntent}
	}

	role, _ := identity.ParseRole(req.Role)
	if !e.matrix.Allowed(intent, role) {
		e.audit.LogSecurityEvent(logger.EventActionDenied, map[string]any{
			"intent":  req.Intent,
			"role":    req.Role,
			"user_id": req.UserID,
		})
		return AuthResult{Message: msgActionDenied, Gate: GateAction}
	}

	if len(req.Resource) > 0 {
		if msg, ok := checkResource(intent, role, req.UserID, req.TeamID, req.Resource); !ok {
			e.audit.LogSecurityEvent(logger.EventResourceDenied, map[string]any{
				"intent":   req.Intent,
				"user_id":  req.UserID,
				"resource": logger.Truncate(fmt.Sprint(map[string]any(req.Resource)), maxLoggedResource),
			})
			return AuthResult{Message: msg, Gate: GateResource}
		}
	}

	return AuthResult{Allowed: true}
}

// checkResource applies ownership and team scoping. Executives pass before
// the self-decision rule is evaluated, so an executive can act on their own
// leave request.
func checkResource(intent Intent, role identity.Role, userID, teamID string, res Resource) (string, bool) {
	if role.IsExecutive() {
		return "", true
	}

	owner := res.OwnerID()
	team := res.TeamID()

	if intent.isLeaveDecision() && owner != "" && owner == userID {
		return msgSelfDecision, false
	}

	switch role {
	case identity.RoleTeamLead, identity.RoleManager:
		if owner != "" && owner != userID && team != "" && team != teamID {
			return msgOtherTeam, false
		}
	case identity.RoleEmployee:
		if owner != "" && owner != userID {
			return msgResourceDenied, false
		}
	}
	return "", true
}
