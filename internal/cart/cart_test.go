package cart

import (
	"context"
	"testing"

	"storefront-service/internal/apperror"
	"storefront-service/internal/model"
	"storefront-service/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddUpsertsByVariant(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "u@example.com", model.RoleUser)
	p := testutil.CreateProduct(t, db, "case", "10.00", nil)

	first, err := s.Add(ctx, user.ID, Item{ProductID: p.ID, Quantity: 1, Color: "red"})
	require.NoError(t, err)
	again, err := s.Add(ctx, user.ID, Item{ProductID: p.ID, Quantity: 3, Color: "red"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 3, again.Quantity)

	_, err = s.Add(ctx, user.ID, Item{ProductID: p.ID, Quantity: 1, Color: "blue"})
	require.NoError(t, err)

	items, err := s.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	require.NotNil(t, items[0].Product)

	_, err = s.Add(ctx, user.ID, Item{ProductID: 999, Quantity: 1})
	assert.Equal(t, apperror.NotFound, apperror.KindOf(err))
	_, err = s.Add(ctx, user.ID, Item{ProductID: p.ID, Quantity: 0})
	assert.Equal(t, apperror.Validation, apperror.KindOf(err))
}

func TestUpdateRemoveClearAreScopedToOwner(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner@example.com", model.RoleUser)
	intruder := testutil.CreateUser(t, db, "intruder@example.com", model.RoleUser)
	p := testutil.CreateProduct(t, db, "case", "10.00", nil)

	item, err := s.Add(ctx, owner.ID, Item{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = s.UpdateQuantity(ctx, intruder.ID, item.ID, 5)
	assert.Equal(t, apperror.NotFound, apperror.KindOf(err))
	assert.Equal(t, apperror.NotFound, apperror.KindOf(s.Remove(ctx, intruder.ID, item.ID)))

	updated, err := s.UpdateQuantity(ctx, owner.ID, item.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Quantity)

	require.NoError(t, s.Remove(ctx, owner.ID, item.ID))
	_, err = s.Add(ctx, owner.ID, Item{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, s.Clear(ctx, owner.ID))
	items, err := s.List(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMergeIsIdempotentUnion(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "u@example.com", model.RoleUser)
	a := testutil.CreateProduct(t, db, "a", "10.00", nil)
	b := testutil.CreateProduct(t, db, "b", "10.00", nil)

	_, err := s.Add(ctx, user.ID, Item{ProductID: a.ID, Quantity: 2, Color: "red"})
	require.NoError(t, err)

	local := []Item{
		{ProductID: a.ID, Quantity: 7, Color: "red"},
		{ProductID: a.ID, Quantity: 1, Color: "blue"},
		{ProductID: b.ID, Quantity: 1},
		{ProductID: 404, Quantity: 1},
	}

	merged, err := s.Merge(ctx, user.ID, local)
	require.NoError(t, err)
	require.Len(t, merged, 3)
	assert.Equal(t, 2, merged[0].Quantity, "server line wins")

	again, err := s.Merge(ctx, user.ID, local)
	require.NoError(t, err)
	assert.Len(t, again, 3)

	var rows int64
	require.NoError(t, db.Model(&model.CartItem{}).Where("user_id = ?", user.ID).Count(&rows).Error)
	assert.Equal(t, int64(3), rows)
}

func TestReplaceMakesServerCartExact(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "u@example.com", model.RoleUser)
	a := testutil.CreateProduct(t, db, "a", "10.00", nil)
	b := testutil.CreateProduct(t, db, "b", "10.00", nil)

	_, err := s.Add(ctx, user.ID, Item{ProductID: a.ID, Quantity: 2})
	require.NoError(t, err)

	items, err := s.Replace(ctx, user.ID, []Item{
		{ProductID: b.ID, Quantity: 1},
		{ProductID: b.ID, Quantity: 4},
		{ProductID: 404, Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ProductID)
	assert.Equal(t, 4, items[0].Quantity)

	items, err = s.Replace(ctx, user.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}
