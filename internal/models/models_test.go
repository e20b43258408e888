package models

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestRoleCapabilities(t *testing.T) {
	assert.True(t, RoleStudent.Can(CapChat))
	assert.False(t, RoleTeacher.Can(CapChat))
	assert.False(t, RoleAdmin.Can(CapChat))

	assert.True(t, RoleTeacher.Can(CapScheduleCreate))
	assert.False(t, RoleStudent.Can(CapScheduleCreate))
	assert.False(t, RoleFinance.Can(CapScheduleAudit))

	assert.True(t, RoleSuperAdmin.Can(CapAccountsManage))
	assert.False(t, RoleAdmin.Can(CapAccountsManage))

	for _, r := range allRoles {
		assert.True(t, r.Can(CapNotificationsRead), string(r))
	}
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" Teacher ")
	assert.True(t, ok)
	assert.Equal(t, RoleTeacher, r)

	_, ok = ParseRole("janitor")
	assert.False(t, ok)
}

func TestAdminTier(t *testing.T) {
	assert.True(t, RoleAdmin.IsAdminTier())
	assert.True(t, RoleSuperAdmin.IsAdminTier())
	assert.False(t, RoleStaff.IsAdminTier())
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Asha Rao", Member{FirstName: "Asha", LastName: "Rao", Username: "arao"}.DisplayName())
	assert.Equal(t, "Asha", Member{FirstName: " Asha ", Username: "arao"}.DisplayName())
	assert.Equal(t, "arao", Member{Username: "arao"}.DisplayName())
}

func TestAttendanceSummary(t *testing.T) {
	s := AttendanceSummary{Present: 8, Total: 10}
	assert.InDelta(t, 80.0, s.Percentage(), 0.0001)
	assert.Equal(t, 2, s.Absent())
	assert.Zero(t, AttendanceSummary{}.Percentage())
}

func TestDraftDefaultsType(t *testing.T) {
	n := NotificationDraft{Title: "t", Message: "m"}.For("acc-1")
	assert.Equal(t, "acc-1", n.AccountID)
	assert.Equal(t, NotificationTypeInfo, n.Type)
	assert.False(t, n.IsRead)
}

func TestDraftClipsLongTitles(t *testing.T) {
	exact := strings.Repeat("é", NotificationTitleMax)
	assert.Equal(t, exact, NotificationDraft{Title: exact}.For("acc-1").Title)

	long := "📅 Schedule: " + strings.Repeat("x", NotificationTitleMax)
	title := NotificationDraft{Title: long}.For("acc-1").Title
	assert.Equal(t, NotificationTitleMax, utf8.RuneCountInString(title))
	assert.True(t, strings.HasPrefix(title, "📅 Schedule: xxx"))
	assert.True(t, strings.HasSuffix(title, "…"))
}
