package integration

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/importer"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

func TestPostgresStack(t *testing.T) {
	db := testhelpers.SetupPostgresDB(t)
	ctx := context.Background()

	require.NoError(t, database.RunMigrations(db, "../../migrations"))
	// Applied migrations are recorded and skipped on the next run
	require.NoError(t, database.RunMigrations(db, "../../migrations"))
	var applied int64
	require.NoError(t, db.Table("schema_migrations").Count(&applied).Error)
	assert.EqualValues(t, 2, applied)

	flour := testhelpers.CreateIngredient(t, db, "flour", "g")
	egg := testhelpers.CreateIngredient(t, db, "egg", "pcs")
	testhelpers.CreateIngredient(t, db, "Flour_mix", "g")
	author := testhelpers.CreateUser(t, db, "author")
	reader := testhelpers.CreateUser(t, db, "reader")

	t.Run("ingredient prefix search is case sensitive and escapes wildcards", func(t *testing.T) {
		catalog := service.NewCatalogService(db)

		found, err := catalog.ListIngredients(ctx, "fl")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "flour", found[0].Name)

		found, err = catalog.ListIngredients(ctx, "Flour_")
		require.NoError(t, err)
		assert.Len(t, found, 1)

		found, err = catalog.ListIngredients(ctx, "%")
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("shopping list aggregates amounts", func(t *testing.T) {
		bread := testhelpers.CreateRecipe(t, db, author, "Bread", testhelpers.WithIngredient(flour, 200))
		cake := testhelpers.CreateRecipe(t, db, author, "Cake",
			testhelpers.WithIngredient(flour, 300), testhelpers.WithIngredient(egg, 1))

		relations := service.NewRelationService(db)
		require.NoError(t, relations.Add(ctx, service.ShoppingCart, reader.ID, bread.ID))
		require.NoError(t, relations.Add(ctx, service.ShoppingCart, reader.ID, cake.ID))

		items, err := service.NewShoppingListService(db).Aggregate(ctx, reader.ID)
		require.NoError(t, err)
		assert.Equal(t, []types.ShoppingListItem{
			{Name: "egg", MeasurementUnit: "pcs", Amount: 1},
			{Name: "flour", MeasurementUnit: "g", Amount: 500},
		}, items)
	})

	t.Run("duplicate relation maps to a conflict", func(t *testing.T) {
		recipe := testhelpers.CreateRecipe(t, db, author, "Soup")
		relations := service.NewRelationService(db)

		require.NoError(t, relations.Add(ctx, service.Favorite, reader.ID, recipe.ID))
		err := relations.Add(ctx, service.Favorite, reader.ID, recipe.ID)
		assert.ErrorIs(t, err, service.ErrConflict)
	})

	t.Run("registration rejects a taken email", func(t *testing.T) {
		users := service.NewUserService(db, testhelpers.NewMemoryStorage())
		_, err := users.Register(ctx, types.RegisterRequest{
			Email:     author.Email,
			Username:  "someone",
			FirstName: "Jane",
			LastName:  "Doe",
			Password:  "long-password",
		})
		var verr *service.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "email")
	})

	t.Run("catalog import skips existing rows", func(t *testing.T) {
		res, err := importer.New(db).LoadIngredients(ctx, strings.NewReader("name,m_unit\nflour,g\nsalt,g\n"))
		require.NoError(t, err)
		assert.Equal(t, importer.Result{Loaded: 1, Skipped: 1}, res)
	})
}
