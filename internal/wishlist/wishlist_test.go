package wishlist

import (
	"context"
	"testing"

	"storefront-service/internal/apperror"
	"storefront-service/internal/model"
	"storefront-service/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddExistingIsNoOp(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "u@example.com", model.RoleUser)
	p := testutil.CreateProduct(t, db, "case", "10.00", nil)

	first, err := s.Add(ctx, user.ID, p.ID)
	require.NoError(t, err)
	second, err := s.Add(ctx, user.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	items, err := s.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = s.Add(ctx, user.ID, 999)
	assert.Equal(t, apperror.NotFound, apperror.KindOf(err))
}

func TestRemoveAndMerge(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "u@example.com", model.RoleUser)
	a := testutil.CreateProduct(t, db, "a", "10.00", nil)
	b := testutil.CreateProduct(t, db, "b", "10.00", nil)

	_, err := s.Add(ctx, user.ID, a.ID)
	require.NoError(t, err)

	merged, err := s.Merge(ctx, user.ID, []uint{a.ID, b.ID, 404})
	require.NoError(t, err)
	assert.Len(t, merged, 2)
	merged, err = s.Merge(ctx, user.ID, []uint{a.ID, b.ID})
	require.NoError(t, err)
	assert.Len(t, merged, 2)

	require.NoError(t, s.Remove(ctx, user.ID, a.ID))
	assert.Equal(t, apperror.NotFound, apperror.KindOf(s.Remove(ctx, user.ID, a.ID)))
}
