// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/repository"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/database"
)

// NewDB opens a private in-memory sqlite database with every model migrated.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Open(sqlite.Open("file::memory:?_foreign_keys=on"), logger.Silent)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.MigrateModels(db, zap.NewNop(), repository.Models()...))
	return db
}
