package users

import (
	"context"
	"testing"

	"storefront-service/internal/apperror"
	"storefront-service/internal/model"
	"storefront-service/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSetRole(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db)
	ctx := context.Background()

	admin := testutil.CreateUser(t, db, "admin@example.com", model.RoleAdmin)
	user := testutil.CreateUser(t, db, "user@example.com", model.RoleUser)

	promoted, err := s.SetRole(ctx, admin.ID, user.ID, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, promoted.Role)

	_, err = s.SetRole(ctx, admin.ID, admin.ID, model.RoleUser)
	assert.Equal(t, apperror.Forbidden, apperror.KindOf(err))

	_, err = s.SetRole(ctx, admin.ID, user.ID, "ROOT")
	assert.Equal(t, apperror.Validation, apperror.KindOf(err))

	_, err = s.SetRole(ctx, admin.ID, 999, model.RoleUser)
	assert.Equal(t, apperror.NotFound, apperror.KindOf(err))

	demoted, err := s.SetRole(ctx, user.ID, admin.ID, model.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, demoted.Role)
}

func TestDeleteUser(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db)
	ctx := context.Background()

	admin := testutil.CreateUser(t, db, "admin@example.com", model.RoleAdmin)
	user := testutil.CreateUser(t, db, "user@example.com", model.RoleUser)
	p := testutil.CreateProduct(t, db, "case", "9.99", nil)
	require.NoError(t, db.Create(&model.CartItem{UserID: user.ID, ProductID: p.ID, Quantity: 2}).Error)

	assert.Equal(t, apperror.Forbidden, apperror.KindOf(s.Delete(ctx, admin.ID, admin.ID)))
	require.NoError(t, s.Delete(ctx, admin.ID, user.ID))
	assert.Equal(t, apperror.NotFound, apperror.KindOf(s.Delete(ctx, admin.ID, user.ID)))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, admin.ID, list[0].ID)

	var n int64
	db.Model(&model.CartItem{}).Count(&n)
	assert.Zero(t, n)
}

func TestCreateAdmin(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db)
	ctx := context.Background()

	_, err := s.CreateAdmin(ctx, "ops@example.com", "short")
	assert.Equal(t, apperror.Validation, apperror.KindOf(err))

	created, err := s.CreateAdmin(ctx, " Ops@Example.com ", "first-password")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", created.Email)
	assert.Equal(t, model.RoleAdmin, created.Role)
	assert.NotNil(t, created.EmailVerified)

	existing := testutil.CreateUser(t, db, "shopper@example.com", model.RoleUser)
	promoted, err := s.CreateAdmin(ctx, "shopper@example.com", "second-password")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, promoted.ID)

	var stored model.User
	require.NoError(t, db.First(&stored, existing.ID).Error)
	assert.Equal(t, model.RoleAdmin, stored.Role)
	require.NotNil(t, stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*stored.PasswordHash), []byte("second-password")))
}
