package policy

import "github.com/gzhole/talentguard/internal/identity"

var (
	everyone = NewRoleSet(identity.RoleEmployee, identity.RoleTeamLead, identity.RoleManager, identity.RoleExecutive)
	leaders  = NewRoleSet(identity.RoleTeamLead, identity.RoleManager, identity.RoleExecutive)
)

// defaultMatrix maps each allowed intent to the roles that may perform it.
// Manager and executive rows are explicit; there is no role inheritance.
var defaultMatrix = map[Intent]RoleSet{
	IntentViewTasks:     everyone,
	IntentViewTeamTasks: leaders,
	IntentAssignTask:    leaders,
	IntentCreateTask:    everyone,
	IntentUpdateTask:    everyone,

	IntentApplyLeave:               everyone,
	IntentCheckLeaveBalance:        everyone,
	IntentCheckLeaveStatus:         everyone,
	IntentViewPendingLeaves:        leaders,
	IntentViewEmployeeLeaveBalance: leaders,
	IntentApproveLeave:             leaders,
	IntentRejectLeave:              leaders,

	IntentScheduleMeeting: leaders,
	IntentViewMeetings:    everyone,

	IntentCheckIn:        everyone,
	IntentCheckOut:       everyone,
	IntentViewAttendance: everyone,

	IntentViewTeamMembers: leaders,
	IntentViewProfile:     everyone,

	IntentChat:      everyone,
	IntentGreeting:  everyone,
	IntentHelp:      everyone,
	IntentForbidden: everyone,
	IntentNeedInfo:  everyone,
}

// Matrix is a read-only view of the permission table.
type Matrix struct {
	rows map[Intent]RoleSet
}

// DefaultMatrix returns the compiled permission table.
func DefaultMatrix() Matrix { return Matrix{rows: defaultMatrix} }

// Allowed reports whether role may perform intent. Unknown intents and
// roles are never allowed.
func (m Matrix) Allowed(intent Intent, role identity.Role) bool {
	return m.rows[intent].Has(role)
}

// Roles returns the roles allowed to perform intent.
func (m Matrix) Roles(intent Intent) RoleSet { return m.rows[intent] }
