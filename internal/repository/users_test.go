package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TaffyWrinkle/TeamCloud/internal/domain"
	"github.com/TaffyWrinkle/TeamCloud/internal/domain/models"
	"github.com/TaffyWrinkle/TeamCloud/internal/repository"
)

func TestUsersAddAndGet(t *testing.T) {
	users := repository.NewUsersRepository(newTestConfig(t))
	ctx := context.Background()

	created, err := users.Add(ctx, &models.User{ID: "u-1", Role: models.UserRoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "u-1", created.ID)
	assert.Equal(t, "acme", created.Tenant)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := users.Get(ctx, "u-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.UserRoleAdmin, got.Role)

	missing, err := users.Get(ctx, "u-9")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUsersAddGeneratesID(t *testing.T) {
	users := repository.NewUsersRepository(newTestConfig(t))

	created, err := users.Add(context.Background(), &models.User{Role: models.UserRoleNone})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
}

func TestUsersAddConflict(t *testing.T) {
	users := repository.NewUsersRepository(newTestConfig(t))
	ctx := context.Background()

	_, err := users.Add(ctx, &models.User{ID: "u-1", Role: models.UserRoleCreator})
	require.NoError(t, err)

	_, err = users.Add(ctx, &models.User{ID: "u-1", Role: models.UserRoleAdmin})
	require.ErrorIs(t, err, domain.ErrConflict)

	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "user", conflict.ResourceType)
	assert.Equal(t, "u-1", conflict.ResourceID)
}

func TestUsersValidation(t *testing.T) {
	users := repository.NewUsersRepository(newTestConfig(t))
	ctx := context.Background()

	_, err := users.Add(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = users.Add(ctx, &models.User{ID: "u-1", Role: models.UserRole("Superuser")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = users.Set(ctx, &models.User{ID: "u-1", Role: models.UserRole("Superuser")})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUsersSetUpserts(t *testing.T) {
	users := repository.NewUsersRepository(newTestConfig(t))
	ctx := context.Background()

	// An unknown id becomes a new document.
	created, err := users.Set(ctx, &models.User{ID: "u-1", Role: models.UserRoleNone})
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleNone, created.Role)

	created.Role = models.UserRoleAdmin
	updated, err := users.Set(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleAdmin, updated.Role)

	got, err := users.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleAdmin, got.Role)
}

func TestUsersList(t *testing.T) {
	users := repository.NewUsersRepository(newTestConfig(t))
	ctx := context.Background()

	for _, id := range []string{"u-1", "u-2", "u-3"} {
		_, err := users.Add(ctx, &models.User{ID: id, Role: models.UserRoleCreator})
		require.NoError(t, err)
	}

	listed, err := users.List().All(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "u-1", listed[0].ID)
}

func TestUsersListByProject(t *testing.T) {
	users := repository.NewUsersRepository(newTestConfig(t))
	ctx := context.Background()

	addMember(t, users, "u-1", "proj-1", models.ProjectRoleOwner)
	addMember(t, users, "u-2", "proj-1", models.ProjectRoleMember)
	addMember(t, users, "u-3", "proj-2", models.ProjectRoleOwner)

	members, err := users.ListByProject("proj-1").All(ctx)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "u-1", members[0].ID)
	assert.Equal(t, "u-2", members[1].ID)

	none, err := users.ListByProject("proj-9").All(ctx)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUsersRemove(t *testing.T) {
	users := repository.NewUsersRepository(newTestConfig(t))
	ctx := context.Background()

	created, err := users.Add(ctx, &models.User{ID: "u-1", Role: models.UserRoleCreator})
	require.NoError(t, err)

	removed, err := users.Remove(ctx, created)
	require.NoError(t, err)
	require.NotNil(t, removed)

	got, err := users.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Removing an already-deleted user stays quiet.
	removed, err = users.Remove(ctx, created)
	require.NoError(t, err)
	assert.Nil(t, removed)
}

func TestUsersRemoveProjectMembership(t *testing.T) {
	users := repository.NewUsersRepository(newTestConfig(t))
	ctx := context.Background()

	user := addMember(t, users, "u-1", "proj-1", models.ProjectRoleOwner)
	user.EnsureMembership(models.ProjectMembership{ProjectID: "proj-2", Role: models.ProjectRoleMember})
	user, err := users.Set(ctx, user)
	require.NoError(t, err)

	updated, err := users.RemoveProjectMembership(ctx, user, "proj-1")
	require.NoError(t, err)
	assert.False(t, updated.IsMember("proj-1"))
	assert.True(t, updated.IsMember("proj-2"))

	// The change is persisted, not just in-memory.
	got, err := users.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.False(t, got.IsMember("proj-1"))
	assert.True(t, got.IsMember("proj-2"))

	// Removing an absent membership changes nothing.
	updated, err = users.RemoveProjectMembership(ctx, got, "proj-1")
	require.NoError(t, err)
	assert.True(t, updated.IsMember("proj-2"))
}

func TestUsersRemoveProjectMemberships(t *testing.T) {
	users := repository.NewUsersRepository(newTestConfig(t))
	ctx := context.Background()

	addMember(t, users, "u-1", "proj-1", models.ProjectRoleOwner)
	member := addMember(t, users, "u-2", "proj-1", models.ProjectRoleMember)
	member.EnsureMembership(models.ProjectMembership{ProjectID: "proj-2", Role: models.ProjectRoleMember})
	_, err := users.Set(ctx, member)
	require.NoError(t, err)
	addMember(t, users, "u-3", "proj-2", models.ProjectRoleOwner)

	require.NoError(t, users.RemoveProjectMemberships(ctx, "proj-1"))

	members, err := users.ListByProject("proj-1").All(ctx)
	require.NoError(t, err)
	assert.Empty(t, members)

	// Memberships in other projects survive.
	second, err := users.Get(ctx, "u-2")
	require.NoError(t, err)
	assert.True(t, second.IsMember("proj-2"))
	third, err := users.Get(ctx, "u-3")
	require.NoError(t, err)
	assert.True(t, third.IsMember("proj-2"))

	// Repeating the cleanup is a no-op.
	require.NoError(t, users.RemoveProjectMemberships(ctx, "proj-1"))
}
