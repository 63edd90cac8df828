package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func TestShortLinkIsStable(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	user := testhelpers.CreateUser(t, db, "chef")
	recipe := testhelpers.CreateRecipe(t, db, user, "soup")
	svc := service.NewShortLinkService(db)
	ctx := context.Background()

	first, err := svc.GetOrCreate(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Len(t, first.ShortCode, 8)

	second, err := svc.GetOrCreate(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ShortCode, second.ShortCode)

	id, err := svc.Resolve(ctx, first.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, recipe.ID, id)
}

func TestShortLinkErrors(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewShortLinkService(db)
	ctx := context.Background()

	_, err := svc.GetOrCreate(ctx, 42)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = svc.Resolve(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestShortLinkRetriesOnCollision(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	user := testhelpers.CreateUser(t, db, "chef")
	soup := testhelpers.CreateRecipe(t, db, user, "soup")
	stew := testhelpers.CreateRecipe(t, db, user, "stew")
	svc := service.NewShortLinkService(db)
	ctx := context.Background()

	codes := []string{"taken", "taken", "fresh"}
	svc.SetCodeGenerator(func() (string, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	})

	first, err := svc.GetOrCreate(ctx, soup.ID)
	require.NoError(t, err)
	assert.Equal(t, "taken", first.ShortCode)

	second, err := svc.GetOrCreate(ctx, stew.ID)
	require.NoError(t, err)
	assert.Equal(t, "fresh", second.ShortCode)
	assert.Empty(t, codes)
}

func TestShortLinkGivesUpAfterRepeatedCollisions(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	user := testhelpers.CreateUser(t, db, "chef")
	soup := testhelpers.CreateRecipe(t, db, user, "soup")
	stew := testhelpers.CreateRecipe(t, db, user, "stew")
	svc := service.NewShortLinkService(db)
	ctx := context.Background()

	svc.SetCodeGenerator(func() (string, error) { return "same", nil })
	_, err := svc.GetOrCreate(ctx, soup.ID)
	require.NoError(t, err)

	_, err = svc.GetOrCreate(ctx, stew.ID)
	assert.ErrorIs(t, err, service.ErrShortCodeExhausted)
}
