package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TaffyWrinkle/TeamCloud/internal/config"
)

func TestUserValidate(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		wantErr string
	}{
		{
			name: "user with memberships is valid",
			user: User{
				ID:   "u-1",
				Role: UserRoleCreator,
				ProjectMemberships: []ProjectMembership{
					{ProjectID: "p-1", Role: ProjectRoleOwner},
					{ProjectID: "p-2", Role: ProjectRoleMember},
				},
			},
		},
		{
			name: "none role is valid",
			user: User{ID: "u-1", Role: UserRoleNone},
		},
		{
			name:    "role is required",
			user:    User{ID: "u-1"},
			wantErr: "role",
		},
		{
			name:    "unknown role is rejected",
			user:    User{ID: "u-1", Role: UserRole("Superuser")},
			wantErr: "role",
		},
		{
			name: "membership needs a project id",
			user: User{
				ID:                 "u-1",
				Role:               UserRoleCreator,
				ProjectMemberships: []ProjectMembership{{Role: ProjectRoleOwner}},
			},
			wantErr: "projectMemberships",
		},
		{
			name: "membership role must be known",
			user: User{
				ID:                 "u-1",
				Role:               UserRoleCreator,
				ProjectMemberships: []ProjectMembership{{ProjectID: "p-1", Role: ProjectRole("Lurker")}},
			},
			wantErr: "projectMemberships",
		},
		{
			name: "oversized property key is rejected",
			user: User{
				ID:         "u-1",
				Role:       UserRoleCreator,
				Properties: map[string]string{strings.Repeat("k", config.MaxPropertyKeyLength+1): "x"},
			},
			wantErr: "properties",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUserMembershipLookups(t *testing.T) {
	user := User{
		ID:   "u-1",
		Role: UserRoleCreator,
		ProjectMemberships: []ProjectMembership{
			{ProjectID: "p-1", Role: ProjectRoleOwner},
			{ProjectID: "p-2", Role: ProjectRoleMember},
		},
	}

	assert.True(t, user.IsMember("p-1"))
	assert.True(t, user.IsMember("p-2"))
	assert.False(t, user.IsMember("p-3"))

	assert.True(t, user.IsOwner("p-1"))
	assert.False(t, user.IsOwner("p-2"))
	assert.False(t, user.IsOwner("p-3"))

	role, ok := user.RoleFor("p-2")
	require.True(t, ok)
	assert.Equal(t, ProjectRoleMember, role)

	_, ok = user.RoleFor("p-3")
	assert.False(t, ok)
}

func TestUserEnsureMembership(t *testing.T) {
	var user User

	user.EnsureMembership(ProjectMembership{ProjectID: "p-1", Role: ProjectRoleMember})
	require.Len(t, user.ProjectMemberships, 1)

	// Same project updates in place instead of appending.
	user.EnsureMembership(ProjectMembership{ProjectID: "p-1", Role: ProjectRoleOwner})
	require.Len(t, user.ProjectMemberships, 1)
	assert.Equal(t, ProjectRoleOwner, user.ProjectMemberships[0].Role)

	user.EnsureMembership(ProjectMembership{ProjectID: "p-2", Role: ProjectRoleMember})
	assert.Len(t, user.ProjectMemberships, 2)
}

func TestUserRemoveMembership(t *testing.T) {
	user := User{
		ProjectMemberships: []ProjectMembership{
			{ProjectID: "p-1", Role: ProjectRoleOwner},
			{ProjectID: "p-2", Role: ProjectRoleMember},
		},
	}

	assert.True(t, user.RemoveMembership("p-1"))
	assert.False(t, user.IsMember("p-1"))
	assert.True(t, user.IsMember("p-2"))

	assert.False(t, user.RemoveMembership("p-1"))
	assert.Len(t, user.ProjectMemberships, 1)
}
