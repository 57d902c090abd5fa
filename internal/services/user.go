package services

import (
	"context"
	"errors"
	"strings"

	"github.com/adminpanel/apiserver/internal/store"
	"github.com/adminpanel/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	List(ctx context.Context) ([]types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (int64, error)
	UpdateProfile(ctx context.Context, id int64, username, role string) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

// UserInput carries the fields accepted when creating or editing a user.
type UserInput struct {
	Username string
	Password string
	Role     string
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo   UserRepository
	hasher *PasswordHasher
}

func NewUserService(repo UserRepository, hasher *PasswordHasher) *UserService {
	return &UserService{repo: repo, hasher: hasher}
}

// List returns every user, password hashes included.
func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

// Create stores a new user with a freshly hashed password.
func (s *UserService) Create(ctx context.Context, in UserInput) (types.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return types.User{}, required("username")
	}
	if in.Password == "" {
		return types.User{}, required("password")
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return types.User{}, err
	}

	return s.repo.Create(ctx, types.User{
		Username:     username,
		PasswordHash: hash,
		Role:         in.Role,
	})
}

// Update rewrites username and role. The password is only rehashed when a
// non-blank replacement is supplied. It returns the number of rows changed.
func (s *UserService) Update(ctx context.Context, id int64, in UserInput) (int64, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return 0, required("username")
	}

	if strings.TrimSpace(in.Password) == "" {
		return s.repo.UpdateProfile(ctx, id, username, in.Role)
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return 0, err
	}
	return s.repo.Update(ctx, types.User{
		ID:           id,
		Username:     username,
		PasswordHash: hash,
		Role:         in.Role,
	})
}

func (s *UserService) Delete(ctx context.Context, id int64) (int64, error) {
	return s.repo.Delete(ctx, id)
}

// VerifyLogin checks a username/password pair. Unknown users and wrong
// passwords both yield ErrInvalidCredentials after a full bcrypt comparison.
func (s *UserService) VerifyLogin(ctx context.Context, username, password string) (types.Identity, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		if err := s.hasher.CompareDummy(ctx, password); err != nil {
			return types.Identity{}, err
		}
		return types.Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return types.Identity{}, err
	}

	match, err := s.hasher.Compare(ctx, user.PasswordHash, password)
	if err != nil {
		return types.Identity{}, err
	}
	if !match {
		return types.Identity{}, ErrInvalidCredentials
	}
	return user.Identity(), nil
}
