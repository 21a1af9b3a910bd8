package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleOrdering(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleAdmin))
	assert.True(t, RoleAdmin.AtLeast(RoleMonitor))
	assert.True(t, RoleAdmin.AtLeast(RolePlayer))

	assert.False(t, RoleMonitor.AtLeast(RoleAdmin))
	assert.True(t, RoleMonitor.AtLeast(RoleMonitor))
	assert.True(t, RoleMonitor.AtLeast(RolePlayer))

	assert.False(t, RolePlayer.AtLeast(RoleAdmin))
	assert.False(t, RolePlayer.AtLeast(RoleMonitor))
	assert.True(t, RolePlayer.AtLeast(RolePlayer))
}

func TestUnknownRoleIsLowest(t *testing.T) {
	unknown := UserRole("emperor")

	assert.False(t, unknown.Valid())
	assert.False(t, unknown.AtLeast(RolePlayer))
	assert.False(t, unknown.AtLeast(RoleAdmin))
	// Любая настоящая роль покрывает неизвестную
	assert.True(t, RolePlayer.AtLeast(unknown))
}
