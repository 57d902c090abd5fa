package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/adminpanel/apiserver/config"
	"github.com/adminpanel/apiserver/internal/db"
	"github.com/adminpanel/apiserver/types"
)

const roleColumns = `id, name, panel_admin, panel_user, panel_logs, can_delete, can_create, can_edit, can_view_logs, emoji`

// RoleUpdate reports the outcome of a role update.
type RoleUpdate struct {
	// Changes is the number of role rows rewritten (0 when the id is unknown).
	Changes int64 `json:"changes"`

	// UsersRenamed is the number of users moved from the old role name to
	// the new one.
	UsersRenamed int64 `json:"usersRenamed"`
}

// RoleRepository handles persistence for roles and the role name copies
// held by users.
type RoleRepository struct {
	db *db.DB
}

func NewRoleRepository(db *db.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRole(s rowScanner) (types.Role, error) {
	var role types.Role
	err := s.Scan(
		&role.ID,
		&role.Name,
		&role.PanelFlags.Admin,
		&role.PanelFlags.User,
		&role.PanelFlags.Logs,
		&role.PermissionFlags.Delete,
		&role.PermissionFlags.Create,
		&role.PermissionFlags.Edit,
		&role.PermissionFlags.ViewLogs,
		&role.Emoji,
	)
	return role, err
}

func (r *RoleRepository) List(ctx context.Context) ([]types.Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}
	defer rows.Close()

	roles := make([]types.Role, 0)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating roles: %w", err)
	}
	return roles, nil
}

// GetByName returns the oldest role carrying name.
func (r *RoleRepository) GetByName(ctx context.Context, name string) (types.Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles WHERE name = $1 ORDER BY id LIMIT 1`
	role, err := scanRole(r.db.QueryRowContext(ctx, r.db.Rebind(query), name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Role{}, ErrNotFound
		}
		return types.Role{}, fmt.Errorf("loading role: %w", err)
	}
	return role, nil
}

// Create inserts a role. Names are unique at this boundary even though the
// table does not enforce it.
func (r *RoleRepository) Create(ctx context.Context, role types.Role) (types.Role, error) {
	err := r.db.InTx(ctx, func(tx *sql.Tx) error {
		if err := r.lockName(ctx, tx, role.Name); err != nil {
			return err
		}
		taken, err := r.nameTaken(ctx, tx, role.Name, 0)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: role %q already exists", ErrConflict, role.Name)
		}

		const query = `
			INSERT INTO roles (name, panel_admin, panel_user, panel_logs, can_delete, can_create, can_edit, can_view_logs, emoji)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`
		if err := tx.QueryRowContext(
			ctx,
			r.db.Rebind(query),
			role.Name,
			role.PanelFlags.Admin,
			role.PanelFlags.User,
			role.PanelFlags.Logs,
			role.PermissionFlags.Delete,
			role.PermissionFlags.Create,
			role.PermissionFlags.Edit,
			role.PermissionFlags.ViewLogs,
			role.Emoji,
		).Scan(&role.ID); err != nil {
			return fmt.Errorf("creating role: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.Role{}, err
	}
	return role, nil
}

// UpdateWithCascade rewrites the role row identified by role.ID and moves
// every user whose role equals oldName to role.Name, in one transaction. A
// blank oldName means the role's stored name. An unknown id changes nothing.
// role.Emoji is ignored: a nil emoji keeps the stored value.
func (r *RoleRepository) UpdateWithCascade(ctx context.Context, role types.Role, oldName string, emoji *string) (RoleUpdate, error) {
	var result RoleUpdate
	err := r.db.InTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, r.db.Rebind(`SELECT name FROM roles WHERE id = $1`), role.ID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("loading role: %w", err)
		}
		if oldName == "" {
			oldName = current
		}

		if role.Name != current {
			if err := r.lockName(ctx, tx, role.Name); err != nil {
				return err
			}
			taken, err := r.nameTaken(ctx, tx, role.Name, role.ID)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: role %q already exists", ErrConflict, role.Name)
			}
		}

		const updateRole = `
			UPDATE roles
			SET name = $1,
				panel_admin = $2,
				panel_user = $3,
				panel_logs = $4,
				can_delete = $5,
				can_create = $6,
				can_edit = $7,
				can_view_logs = $8,
				emoji = COALESCE($9, emoji)
			WHERE id = $10`
		res, err := tx.ExecContext(
			ctx,
			r.db.Rebind(updateRole),
			role.Name,
			role.PanelFlags.Admin,
			role.PanelFlags.User,
			role.PanelFlags.Logs,
			role.PermissionFlags.Delete,
			role.PermissionFlags.Create,
			role.PermissionFlags.Edit,
			role.PermissionFlags.ViewLogs,
			emoji,
			role.ID,
		)
		if err != nil {
			return fmt.Errorf("updating role: %w", err)
		}
		if result.Changes, err = res.RowsAffected(); err != nil {
			return err
		}

		if oldName == role.Name {
			return nil
		}
		const cascade = `UPDATE users SET role = $1 WHERE role = $2`
		res, err = tx.ExecContext(ctx, r.db.Rebind(cascade), role.Name, oldName)
		if err != nil {
			return fmt.Errorf("renaming role on users: %w", err)
		}
		result.UsersRenamed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return RoleUpdate{}, err
	}
	return result, nil
}

// Delete removes a role row. Users holding its name are left untouched.
func (r *RoleRepository) Delete(ctx context.Context, id int64) (int64, error) {
	const query = `DELETE FROM roles WHERE id = $1`
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), id)
	if err != nil {
		return 0, fmt.Errorf("deleting role: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// lockName serialises writers claiming the same role name until the
// transaction ends. sqlite runs on a single connection and needs no lock.
func (r *RoleRepository) lockName(ctx context.Context, tx *sql.Tx, name string) error {
	if r.db.Driver() != config.DriverPostgres {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, name); err != nil {
		return fmt.Errorf("locking role name: %w", err)
	}
	return nil
}

func (r *RoleRepository) nameTaken(ctx context.Context, q db.Querier, name string, exceptID int64) (bool, error) {
	const query = `SELECT COUNT(1) FROM roles WHERE name = $1 AND id <> $2`
	var count int
	if err := q.QueryRowContext(ctx, r.db.Rebind(query), name, exceptID).Scan(&count); err != nil {
		return false, fmt.Errorf("checking role name: %w", err)
	}
	return count > 0, nil
}
