// Package policy is the authorization engine: a closed intent enumeration, a
// compiled role permission matrix and the resource ownership rules.
//
// The matrix is a Go table, not a loadable document. There is no runtime
// path that adds, removes or edits an entry.
package policy

import (
	"fmt"
	"reflect"

	"github.com/gzhole/talentguard/internal/identity"
)

// Intent is a canonical label for what the caller wants to do.
type Intent string

const (
	// Tasks
	IntentViewTasks     Intent = "view_tasks"
	IntentViewTeamTasks Intent = "view_team_tasks"
	IntentAssignTask    Intent = "assign_task"
	IntentCreateTask    Intent = "create_task"
	IntentUpdateTask    Intent = "update_task"

	// Leaves
	IntentApplyLeave               Intent = "apply_leave"
	IntentCheckLeaveBalance        Intent = "check_leave_balance"
	IntentCheckLeaveStatus         Intent = "check_leave_status"
	IntentViewPendingLeaves        Intent = "view_pending_leaves"
	IntentViewEmployeeLeaveBalance Intent = "view_employee_leave_balance"
	IntentApproveLeave             Intent = "approve_leave"
	IntentRejectLeave              Intent = "reject_leave"

	// Meetings
	IntentScheduleMeeting Intent = "schedule_meeting"
	IntentViewMeetings    Intent = "view_meetings"

	// Attendance
	IntentCheckIn        Intent = "check_in"
	IntentCheckOut       Intent = "check_out"
	IntentViewAttendance Intent = "view_attendance"

	// Team and profile
	IntentViewTeamMembers Intent = "view_team_members"
	IntentViewProfile     Intent = "view_profile"

	// Conversational
	IntentChat      Intent = "chat"
	IntentGreeting  Intent = "greeting"
	IntentHelp      Intent = "help"
	IntentForbidden Intent = "forbidden"
	IntentNeedInfo  Intent = "need_info"
)

// Intents lists every allowed intent in matrix order.
var Intents = []Intent{
	IntentViewTasks, IntentViewTeamTasks, IntentAssignTask, IntentCreateTask, IntentUpdateTask,
	IntentApplyLeave, IntentCheckLeaveBalance, IntentCheckLeaveStatus, IntentViewPendingLeaves,
	IntentViewEmployeeLeaveBalance, IntentApproveLeave, IntentRejectLeave,
	IntentScheduleMeeting, IntentViewMeetings,
	IntentCheckIn, IntentCheckOut, IntentViewAttendance,
	IntentViewTeamMembers, IntentViewProfile,
	IntentChat, IntentGreeting, IntentHelp, IntentForbidden, IntentNeedInfo,
}

// ParseIntent reports whether raw is an allowed intent. Intents are exact,
// lowercase identifiers.
func ParseIntent(raw string) (Intent, bool) {
	i := Intent(raw)
	if _, ok := defaultMatrix[i]; ok {
		return i, true
	}
	return "", false
}

func (i Intent) String() string { return string(i) }

// isLeaveDecision reports whether the intent approves or rejects a leave request.
func (i Intent) isLeaveDecision() bool {
	return i == IntentApproveLeave || i == IntentRejectLeave
}

// RoleSet is a set of roles.
type RoleSet uint8

func roleBit(r identity.Role) RoleSet {
	switch r {
	case identity.RoleEmployee:
		return 1 << 0
	case identity.RoleTeamLead:
		return 1 << 1
	case identity.RoleManager:
		return 1 << 2
	case identity.RoleExecutive:
		return 1 << 3
	}
	return 0
}

// NewRoleSet builds a set from roles.
func NewRoleSet(roles ...identity.Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s |= roleBit(r)
	}
	return s
}

// Has reports whether r is in the set.
func (s RoleSet) Has(r identity.Role) bool {
	b := roleBit(r)
	return b != 0 && s&b != 0
}

// Roles returns the members in least-privileged-first order.
func (s RoleSet) Roles() []identity.Role {
	var out []identity.Role
	for _, r := range identity.Roles {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s RoleSet) String() string { return fmt.Sprint(s.Roles()) }

// Gate names the authorization stage that denied a request. It is recorded
// in audit events and metrics and never shown to the user.
type Gate string

const (
	GateNone     Gate = ""
	GateIntent   Gate = "intent"
	GateAction   Gate = "action"
	GateResource Gate = "resource"
)

// Resource is an already-fetched record the intent targets.
type Resource map[string]any

// OwnerID resolves the owner from employee_id, then created_by, then
// requested_by. The first present value that is not empty, zero or false
// wins.
func (r Resource) OwnerID() string {
	for _, key := range []string{"employee_id", "created_by", "requested_by"} {
		if v := r.field(key); v != "" {
			return v
		}
	}
	return ""
}

// TeamID returns the resource's team, or "" when absent.
func (r Resource) TeamID() string { return r.field("team_id") }

func (r Resource) field(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if isBlank(v) {
		return ""
	}
	return fmt.Sprint(v)
}

// isBlank reports false, numeric zero and empty collections.
func isBlank(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return rv.IsZero()
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}

// AuthRequest is the input to Engine.Authorize.
type AuthRequest struct {
	Intent   string
	Role     string
	UserID   string
	TeamID   string
	Resource Resource
}

// AuthResult is the outcome of the three-gate check.
type AuthResult struct {
	Allowed bool
	Message string
	Gate    Gate
}
