package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/adminpanel/apiserver/internal/db"
	"github.com/adminpanel/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *db.DB
}

func NewUserRepository(db *db.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	const query = `
		SELECT id, username, password, role
		FROM users
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := make([]types.User, 0)
	for rows.Next() {
		var user types.User
		if err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (types.User, error) {
	const query = `
		SELECT id, username, password, role
		FROM users
		WHERE id = $1`
	return r.getUser(ctx, query, id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT id, username, password, role
		FROM users
		WHERE username = $1`
	return r.getUser(ctx, query, username)
}

func (r *UserRepository) getUser(ctx context.Context, query string, arg any) (types.User, error) {
	var user types.User
	err := r.db.QueryRowContext(ctx, r.db.Rebind(query), arg).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, fmt.Errorf("loading user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	const query = `
		INSERT INTO users (username, password, role)
		VALUES ($1, $2, $3)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		r.db.Rebind(query),
		user.Username,
		user.PasswordHash,
		user.Role,
	).Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return types.User{}, fmt.Errorf("%w: username %q already exists", ErrConflict, user.Username)
		}
		return types.User{}, fmt.Errorf("creating user: %w", err)
	}
	return user, nil
}

// Update rewrites username, role and password hash. It returns the number of
// rows changed; zero means no user has that id.
func (r *UserRepository) Update(ctx context.Context, user types.User) (int64, error) {
	const query = `
		UPDATE users
		SET username = $1,
			password = $2,
			role = $3
		WHERE id = $4`
	return r.exec(ctx, user.Username, query, user.Username, user.PasswordHash, user.Role, user.ID)
}

// UpdateProfile rewrites username and role, leaving the stored hash alone.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, username, role string) (int64, error) {
	const query = `
		UPDATE users
		SET username = $1,
			role = $2
		WHERE id = $3`
	return r.exec(ctx, username, query, username, role, id)
}

func (r *UserRepository) exec(ctx context.Context, username, query string, args ...any) (int64, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: username %q already exists", ErrConflict, username)
		}
		return 0, fmt.Errorf("updating user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// Delete removes a user and returns the number of rows removed.
func (r *UserRepository) Delete(ctx context.Context, id int64) (int64, error) {
	const query = `DELETE FROM users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), id)
	if err != nil {
		return 0, fmt.Errorf("deleting user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}
