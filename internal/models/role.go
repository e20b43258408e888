package models

import "strings"

// Role is the mutually exclusive role attached to every profile.
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin2"
	RoleFinance    Role = "finance"
	RoleStaff      Role = "staff"
	RoleTeacher    Role = "teacher"
	RoleStudent    Role = "student"
)

// AdminRoles are the roles reachable through "contact admin".
var AdminRoles = []Role{RoleAdmin, RoleSuperAdmin}

// ParseRole validates a raw role name.
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleFinance, RoleStaff, RoleTeacher, RoleStudent:
		return r, true
	}
	return "", false
}

// IsAdminTier reports whether the role belongs to administration.
func (r Role) IsAdminTier() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Capability names an operation gated on the caller's role.
type Capability string

const (
	CapChat                   Capability = "chat"
	CapNotificationsRead      Capability = "notifications:read"
	CapNotificationsBroadcast Capability = "notifications:broadcast"
	CapScheduleCreate         Capability = "schedule:create"
	CapScheduleAudit          Capability = "schedule:audit"
	CapScheduleRenotify       Capability = "schedule:renotify"
	CapScheduleView           Capability = "schedule:view"
	CapCourseMessage          Capability = "course:message"
	CapAccountsManage         Capability = "accounts:manage"
)

var allRoles = []Role{RoleSuperAdmin, RoleAdmin, RoleFinance, RoleStaff, RoleTeacher, RoleStudent}

// capabilityRoles is the single source of truth for role gating.
var capabilityRoles = map[Capability][]Role{
	CapChat:                   {RoleStudent},
	CapNotificationsRead:      allRoles,
	CapNotificationsBroadcast: {RoleAdmin, RoleSuperAdmin},
	CapScheduleCreate:         {RoleTeacher, RoleAdmin, RoleSuperAdmin},
	CapScheduleAudit:          {RoleTeacher, RoleAdmin, RoleSuperAdmin},
	CapScheduleRenotify:       {RoleAdmin, RoleSuperAdmin},
	CapScheduleView:           {RoleStudent, RoleTeacher, RoleAdmin, RoleSuperAdmin},
	CapCourseMessage:          {RoleTeacher},
	CapAccountsManage:         {RoleSuperAdmin},
}

// Can reports whether the role holds the capability.
func (r Role) Can(c Capability) bool {
	for _, allowed := range capabilityRoles[c] {
		if allowed == r {
			return true
		}
	}
	return false
}
