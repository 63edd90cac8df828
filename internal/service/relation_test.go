package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func TestRelationAddTwiceConflicts(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewRelationService(db)
	user := testhelpers.CreateUser(t, db, "chef")
	recipe := testhelpers.CreateRecipe(t, db, user, "soup")
	ctx := context.Background()

	for _, tc := range []struct {
		kind service.RelationKind
		msg  string
	}{
		{service.Favorite, "recipe is already in favorites"},
		{service.ShoppingCart, "recipe is already in the shopping cart"},
	} {
		t.Run(string(tc.kind), func(t *testing.T) {
			require.NoError(t, svc.Add(ctx, tc.kind, user.ID, recipe.ID))

			err := svc.Add(ctx, tc.kind, user.ID, recipe.ID)
			require.ErrorIs(t, err, service.ErrConflict)
			assert.Equal(t, tc.msg, err.Error())

			ok, err := svc.Exists(ctx, tc.kind, user.ID, recipe.ID)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestRelationRemoveTwice(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewRelationService(db)
	user := testhelpers.CreateUser(t, db, "chef")
	recipe := testhelpers.CreateRecipe(t, db, user, "soup")
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, service.Favorite, user.ID, recipe.ID))
	require.NoError(t, svc.Remove(ctx, service.Favorite, user.ID, recipe.ID))

	err := svc.Remove(ctx, service.Favorite, user.ID, recipe.ID)
	require.ErrorIs(t, err, service.ErrNotInRelation)
	assert.Equal(t, "recipe is not in favorites", err.Error())

	err = svc.Remove(ctx, service.ShoppingCart, user.ID, recipe.ID)
	require.ErrorIs(t, err, service.ErrNotInRelation)
	assert.Equal(t, "recipe is not in the shopping cart", err.Error())
}

func TestRelationMissingTarget(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewRelationService(db)
	user := testhelpers.CreateUser(t, db, "chef")
	ctx := context.Background()

	assert.ErrorIs(t, svc.Add(ctx, service.Favorite, user.ID, 404), service.ErrNotFound)
	assert.ErrorIs(t, svc.Remove(ctx, service.ShoppingCart, user.ID, 404), service.ErrNotFound)
	assert.ErrorIs(t, svc.Add(ctx, service.Subscription, user.ID, 404), service.ErrNotFound)
}

func TestSubscriptions(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewRelationService(db)
	user := testhelpers.CreateUser(t, db, "reader")
	author := testhelpers.CreateUser(t, db, "writer")
	ctx := context.Background()

	err := svc.Add(ctx, service.Subscription, user.ID, user.ID)
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"you cannot subscribe to yourself"}, verr.Fields["author"])

	require.NoError(t, svc.Add(ctx, service.Subscription, user.ID, author.ID))
	err = svc.Add(ctx, service.Subscription, user.ID, author.ID)
	require.ErrorIs(t, err, service.ErrConflict)
	assert.Equal(t, "you are already subscribed to this user", err.Error())

	// The relation is directed
	err = svc.Remove(ctx, service.Subscription, author.ID, user.ID)
	require.True(t, errors.Is(err, service.ErrNotInRelation))
	assert.Equal(t, "you are not subscribed to this user", err.Error())

	require.NoError(t, svc.Remove(ctx, service.Subscription, user.ID, author.ID))

	var count int64
	require.NoError(t, db.Model(&models.Subscription{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRelationUnknownKind(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewRelationService(db)

	err := svc.Add(context.Background(), service.RelationKind("bookmark"), 1, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown relation kind")
}
