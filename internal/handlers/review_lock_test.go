package handlers

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/proshop-dev/proshop-backend/internal/models"
)

// The aggregate recompute is only correct under READ COMMITTED when the
// product row is locked up front, so the postgres dialect must emit the
// locking clause on the initial product load.
func TestProductForUpdate_PostgresEmitsRowLock(t *testing.T) {
	t.Parallel()

	pg, err := gorm.Open(postgres.Open("host=localhost"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	var product models.Product
	stmt := productForUpdate(pg).First(&product, 1).Statement
	assert.Contains(t, stmt.SQL.String(), "FOR UPDATE")
}

func TestProductForUpdate_SqliteSkipsRowLock(t *testing.T) {
	t.Parallel()

	lite, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{DryRun: true})
	require.NoError(t, err)

	var product models.Product
	stmt := productForUpdate(lite).First(&product, 1).Statement
	assert.NotContains(t, stmt.SQL.String(), "FOR UPDATE")
}
