package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/adminpanel/apiserver/internal/db"
	"github.com/adminpanel/apiserver/internal/db/dbtest"
	"github.com/adminpanel/apiserver/internal/store"
	"github.com/adminpanel/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roleFixture struct {
	conn  *db.DB
	roles *store.RoleRepository
	users *store.UserRepository
}

func newRoleFixture(t *testing.T) roleFixture {
	t.Helper()
	conn := dbtest.Open(t)
	return roleFixture{
		conn:  conn,
		roles: store.NewRoleRepository(conn),
		users: store.NewUserRepository(conn),
	}
}

func (f roleFixture) user(t *testing.T, name, role string) types.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), types.User{Username: name, PasswordHash: "h", Role: role})
	require.NoError(t, err)
	return u
}

func (f roleFixture) roleOf(t *testing.T, username string) string {
	t.Helper()
	u, err := f.users.GetByUsername(context.Background(), username)
	require.NoError(t, err)
	return u.Role
}

func TestRoleRepository_CreateAndList(t *testing.T) {
	f := newRoleFixture(t)
	ctx := context.Background()

	editor := types.Role{Name: "Editor", PermissionFlags: types.PermissionFlags{Edit: true}, Emoji: "✏️"}
	created, err := f.roles.Create(ctx, editor)
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	roles, err := f.roles.List(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	editor.ID = created.ID
	assert.Equal(t, editor, roles[0])

	byName, err := f.roles.GetByName(ctx, "Editor")
	require.NoError(t, err)
	assert.Equal(t, editor, byName)

	_, err = f.roles.GetByName(ctx, "Nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRoleRepository_UpdateEmoji(t *testing.T) {
	f := newRoleFixture(t)
	ctx := context.Background()

	role, err := f.roles.Create(ctx, types.Role{Name: "Editor", Emoji: "✏️"})
	require.NoError(t, err)

	role.Name = "Writer"
	role.Emoji = ""
	_, err = f.roles.UpdateWithCascade(ctx, role, "Editor", nil)
	require.NoError(t, err)
	got, err := f.roles.GetByName(ctx, "Writer")
	require.NoError(t, err)
	assert.Equal(t, "✏️", got.Emoji, "nil emoji keeps the stored value")

	pen := "🖊️"
	_, err = f.roles.UpdateWithCascade(ctx, role, "Writer", &pen)
	require.NoError(t, err)
	got, err = f.roles.GetByName(ctx, "Writer")
	require.NoError(t, err)
	assert.Equal(t, pen, got.Emoji)

	blank := ""
	_, err = f.roles.UpdateWithCascade(ctx, role, "Writer", &blank)
	require.NoError(t, err)
	got, err = f.roles.GetByName(ctx, "Writer")
	require.NoError(t, err)
	assert.Empty(t, got.Emoji, "an explicit empty emoji clears it")
}

func TestRoleRepository_CreateDuplicateName(t *testing.T) {
	f := newRoleFixture(t)
	ctx := context.Background()

	_, err := f.roles.Create(ctx, types.NewRole("Editor"))
	require.NoError(t, err)
	_, err = f.roles.Create(ctx, types.NewRole("Editor"))
	require.ErrorIs(t, err, store.ErrConflict)

	roles, err := f.roles.List(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 1)
}

func TestRoleRepository_ConcurrentCreateSameName(t *testing.T) {
	f := newRoleFixture(t)
	ctx := context.Background()

	const workers = 8
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.roles.Create(ctx, types.NewRole("Editor"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.True(t, errors.Is(err, store.ErrConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, created)

	roles, err := f.roles.List(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 1)
}

func TestRoleRepository_RenameCascadesToUsers(t *testing.T) {
	f := newRoleFixture(t)
	ctx := context.Background()

	editor, err := f.roles.Create(ctx, types.NewRole("Editor"))
	require.NoError(t, err)
	_, err = f.roles.Create(ctx, types.NewRole("Viewer"))
	require.NoError(t, err)
	f.user(t, "bob", "Editor")
	f.user(t, "dana", "Editor")
	f.user(t, "carol", "Viewer")
	f.user(t, "erin", "Ghost")

	editor.Name = "Writer"
	editor.PermissionFlags.Edit = true
	result, err := f.roles.UpdateWithCascade(ctx, editor, "Editor", nil)
	require.NoError(t, err)
	assert.Equal(t, store.RoleUpdate{Changes: 1, UsersRenamed: 2}, result)

	assert.Equal(t, "Writer", f.roleOf(t, "bob"))
	assert.Equal(t, "Writer", f.roleOf(t, "dana"))
	assert.Equal(t, "Viewer", f.roleOf(t, "carol"))
	assert.Equal(t, "Ghost", f.roleOf(t, "erin"))

	got, err := f.roles.GetByName(ctx, "Writer")
	require.NoError(t, err)
	assert.True(t, bool(got.PermissionFlags.Edit))
}

func TestRoleRepository_CascadeUsesSuppliedOldName(t *testing.T) {
	f := newRoleFixture(t)
	ctx := context.Background()

	role, err := f.roles.Create(ctx, types.NewRole("Editor"))
	require.NoError(t, err)
	f.user(t, "bob", "Editor")
	f.user(t, "legacy", "Old Editors")

	role.Name = "Writer"
	result, err := f.roles.UpdateWithCascade(ctx, role, "Old Editors", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.UsersRenamed)

	assert.Equal(t, "Writer", f.roleOf(t, "legacy"))
	assert.Equal(t, "Editor", f.roleOf(t, "bob"))
}

func TestRoleRepository_BlankOldNameFallsBackToStoredName(t *testing.T) {
	f := newRoleFixture(t)
	ctx := context.Background()

	role, err := f.roles.Create(ctx, types.NewRole("Editor"))
	require.NoError(t, err)
	f.user(t, "bob", "Editor")

	role.Name = "Writer"
	result, err := f.roles.UpdateWithCascade(ctx, role, "", nil)
	require.NoError(t, err)
	assert.Equal(t, store.RoleUpdate{Changes: 1, UsersRenamed: 1}, result)
	assert.Equal(t, "Writer", f.roleOf(t, "bob"))
}

func TestRoleRepository_FlagUpdateWithoutRenameTouchesNoUsers(t *testing.T) {
	f := newRoleFixture(t)
	ctx := context.Background()

	role, err := f.roles.Create(ctx, types.NewRole("Editor"))
	require.NoError(t, err)
	f.user(t, "bob", "Editor")

	role.PanelFlags.Logs = true
	result, err := f.roles.UpdateWithCascade(ctx, role, "Editor", nil)
	require.NoError(t, err)
	assert.Equal(t, store.RoleUpdate{Changes: 1}, result)
}

func TestRoleRepository_RenameToTakenNameIsRejected(t *testing.T) {
	f := newRoleFixture(t)
	ctx := context.Background()

	editor, err := f.roles.Create(ctx, types.NewRole("Editor"))
	require.NoError(t, err)
	_, err = f.roles.Create(ctx, types.NewRole("Viewer"))
	require.NoError(t, err)
	f.user(t, "bob", "Editor")

	editor.Name = "Viewer"
	_, err = f.roles.UpdateWithCascade(ctx, editor, "Editor", nil)
	require.ErrorIs(t, err, store.ErrConflict)

	assert.Equal(t, "Editor", f.roleOf(t, "bob"))
	_, err = f.roles.GetByName(ctx, "Editor")
	assert.NoError(t, err)
}

func TestRoleRepository_UnknownIDChangesNothing(t *testing.T) {
	f := newRoleFixture(t)
	ctx := context.Background()

	f.user(t, "bob", "Editor")

	result, err := f.roles.UpdateWithCascade(ctx, types.Role{ID: 999, Name: "Writer"}, "Editor", nil)
	require.NoError(t, err)
	assert.Equal(t, store.RoleUpdate{}, result)
	assert.Equal(t, "Editor", f.roleOf(t, "bob"))
}

func TestRoleRepository_CascadeFailureRollsBackRoleRow(t *testing.T) {
	f := newRoleFixture(t)
	ctx := context.Background()

	role, err := f.roles.Create(ctx, types.NewRole("Editor"))
	require.NoError(t, err)

	_, err = f.conn.ExecContext(ctx, "DROP TABLE users")
	require.NoError(t, err)

	role.Name = "Writer"
	_, err = f.roles.UpdateWithCascade(ctx, role, "Editor", nil)
	require.Error(t, err)

	_, err = f.roles.GetByName(ctx, "Editor")
	assert.NoError(t, err, "role rename must not be visible when the cascade fails")
	_, err = f.roles.GetByName(ctx, "Writer")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// Deleting a role never cascades: users keep the stale role name.
func TestRoleRepository_DeleteLeavesUsersUntouched(t *testing.T) {
	f := newRoleFixture(t)
	ctx := context.Background()

	role, err := f.roles.Create(ctx, types.NewRole("Writer"))
	require.NoError(t, err)
	f.user(t, "bob", "Writer")

	changes, err := f.roles.Delete(ctx, role.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changes)

	roles, err := f.roles.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, roles)
	assert.Equal(t, "Writer", f.roleOf(t, "bob"))

	changes, err = f.roles.Delete(ctx, role.ID)
	require.NoError(t, err)
	assert.Zero(t, changes)
}
