package main

import (
	"bytes"
	"context"
	"testing"

	"storefront-service/internal/model"
	"storefront-service/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunUnknownCommand(t *testing.T) {
	db := testutil.NewDB(t)
	var out bytes.Buffer

	err := run(context.Background(), db, &out, "drop-everything", nil)
	assert.ErrorIs(t, err, errUsage)
}

func TestRunCreateAdmin(t *testing.T) {
	db := testutil.NewDB(t)
	var out bytes.Buffer

	err := run(context.Background(), db, &out, "create-admin", []string{"-email", "Ops@Example.com", "-password", "s3cret-pass"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "admin ops@example.com ready")

	var user model.User
	require.NoError(t, db.Where("email = ?", "ops@example.com").First(&user).Error)
	assert.Equal(t, model.RoleAdmin, user.Role)
}

func TestRunDiscounts(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, run(ctx, db, &out, "create-discount", []string{"-code", "SPRING", "-percent", "15", "-max-uses", "5"}))
	assert.Contains(t, out.String(), "created SPRING (15%)")

	out.Reset()
	require.NoError(t, run(ctx, db, &out, "discounts", nil))
	assert.Contains(t, out.String(), "SPRING")
	assert.Contains(t, out.String(), "0/5")

	err := run(ctx, db, &out, "create-discount", []string{"-percent", "ten"})
	assert.ErrorIs(t, err, errUsage)
}

func TestRunSeedIsRepeatable(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, run(ctx, db, &out, "seed", nil))
	var first int64
	require.NoError(t, db.Model(&model.Product{}).Count(&first).Error)
	require.NotZero(t, first)

	require.NoError(t, run(ctx, db, &out, "seed", nil))
	var second int64
	require.NoError(t, db.Model(&model.Product{}).Count(&second).Error)
	assert.Equal(t, first, second)
}
