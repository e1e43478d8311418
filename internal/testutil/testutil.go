// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"storefront-service/internal/model"
	"storefront-service/pkg/database"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB returns a migrated in-memory SQLite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:storefront_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", dbSeq.Add(1))
	conn, err := database.Open(sqlite.Open(dsn), logger.Silent)
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(conn))
	return conn
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// CreateUser inserts a verified user with the given role.
func CreateUser(t *testing.T, db *gorm.DB, email string, role model.Role) *model.User {
	t.Helper()
	user := &model.User{Email: email, Name: email, Role: role}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateProduct inserts a product priced at price with the given stock (nil = untracked).
func CreateProduct(t *testing.T, db *gorm.DB, slug string, price string, stock *int) *model.Product {
	t.Helper()
	p := &model.Product{
		Name:    slug,
		Slug:    slug,
		Price:   decimal.RequireFromString(price),
		Stock:   stock,
		InStock: true,
	}
	p.SyncInStock()
	require.NoError(t, db.Create(p).Error)
	return p
}
