package services

import (
	"testing"

	"github.com/adminpanel/apiserver/internal/db/dbtest"
	"github.com/adminpanel/apiserver/internal/store"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	userRepo *store.UserRepository
	roleRepo *store.RoleRepository
	logRepo  *store.LogRepository
	hasher   *PasswordHasher
	users    *UserService
	roles    *RoleService
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	f := fixture{
		userRepo: store.NewUserRepository(conn),
		roleRepo: store.NewRoleRepository(conn),
		logRepo:  store.NewLogRepository(conn),
		hasher:   NewPasswordHasher(bcrypt.MinCost, 4),
	}
	f.users = NewUserService(f.userRepo, f.hasher)
	f.roles = NewRoleService(f.roleRepo)
	return f
}
