// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/adminpanel/apiserver/internal/db"
	"github.com/stretchr/testify/require"
)

// Open returns a fresh, fully migrated in-memory sqlite database that is
// closed when the test ends.
func Open(t testing.TB) *db.DB {
	t.Helper()

	ctx := context.Background()
	conn, err := db.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})

	require.NoError(t, db.Migrate(ctx, conn))
	return conn
}
