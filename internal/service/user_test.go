package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

func validRegistration() types.RegisterRequest {
	return types.RegisterRequest{
		Email:     "anna@example.com",
		Username:  "anna",
		FirstName: "Анна",
		LastName:  "Smith-Jones",
		Password:  "long-enough",
	}
}

func TestRegister(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewUserService(db, testhelpers.NewMemoryStorage())

	user, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "long-enough", user.PasswordHash)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewUserService(db, testhelpers.NewMemoryStorage())
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	_, err = svc.Register(ctx, validRegistration())
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "username")
}

func TestRegisterValidation(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewUserService(db, testhelpers.NewMemoryStorage())

	req := validRegistration()
	req.Username = "Me"
	req.FirstName = "R2-D2"
	req.Password = "short"

	_, err := svc.Register(context.Background(), req)
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "username")
	assert.Contains(t, verr.Fields, "first_name")
	assert.Contains(t, verr.Fields, "password")
}

func TestListUsersPaginates(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewUserService(db, testhelpers.NewMemoryStorage())
	for _, name := range []string{"a1", "a2", "a3"} {
		testhelpers.CreateUser(t, db, name)
	}

	users, total, err := svc.List(context.Background(), types.PageRequest{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, users, 1)
	assert.Equal(t, "a3", users[0].Username)
}

func TestPresentMarksSubscriptions(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewUserService(db, testhelpers.NewMemoryStorage())
	viewer := testhelpers.CreateUser(t, db, "viewer")
	followed := testhelpers.CreateUser(t, db, "followed")
	other := testhelpers.CreateUser(t, db, "other")
	require.NoError(t, db.Create(&models.Subscription{UserID: viewer.ID, AuthorID: followed.ID}).Error)

	ctx := context.Background()
	out, err := svc.Present(ctx, viewer.ID, []models.User{*followed, *other})
	require.NoError(t, err)
	assert.True(t, out[0].IsSubscribed)
	assert.False(t, out[1].IsSubscribed)
	assert.Nil(t, out[0].Avatar)

	anon, err := svc.PresentOne(ctx, 0, followed)
	require.NoError(t, err)
	assert.False(t, anon.IsSubscribed)
}

func TestSubscriptionsWithRecipes(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewUserService(db, testhelpers.NewMemoryStorage())
	viewer := testhelpers.CreateUser(t, db, "viewer")
	author := testhelpers.CreateUser(t, db, "author")
	testhelpers.CreateUser(t, db, "stranger")
	for _, name := range []string{"soup", "salad", "stew"} {
		testhelpers.CreateRecipe(t, db, author, name)
	}
	require.NoError(t, db.Create(&models.Subscription{UserID: viewer.ID, AuthorID: author.ID}).Error)

	ctx := context.Background()
	authors, total, err := svc.Subscriptions(ctx, viewer.ID, types.PageRequest{Page: 1, Limit: 6})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, authors, 1)

	out, err := svc.PresentWithRecipes(ctx, viewer.ID, authors, 2)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].IsSubscribed)
	assert.Equal(t, int64(3), out[0].RecipesCount)
	require.Len(t, out[0].Recipes, 2)
	assert.Equal(t, "stew", out[0].Recipes[0].Name)

	all, err := svc.PresentWithRecipes(ctx, viewer.ID, authors, 0)
	require.NoError(t, err)
	assert.Len(t, all[0].Recipes, 3)
}

func TestAvatarLifecycle(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	store := testhelpers.NewMemoryStorage()
	svc := service.NewUserService(db, store)
	user := testhelpers.CreateUser(t, db, "chef")
	ctx := context.Background()

	url, err := svc.SetAvatar(ctx, user.ID, testhelpers.PNGDataURL)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://testserver/media/users/avatars/avatar_"))
	assert.True(t, strings.HasSuffix(url, ".png"))
	assert.Equal(t, 1, store.Len())

	// Replacing drops the previous object
	second, err := svc.SetAvatar(ctx, user.ID, testhelpers.PNGDataURL)
	require.NoError(t, err)
	assert.NotEqual(t, url, second)
	assert.Equal(t, 1, store.Len())

	_, err = svc.SetAvatar(ctx, user.ID, "data:text/plain;base64,aGVsbG8=")
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "avatar")

	require.NoError(t, svc.DeleteAvatar(ctx, user.ID))
	assert.Equal(t, 0, store.Len())

	reloaded, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Avatar)
}

func TestGetByIDNotFound(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewUserService(db, testhelpers.NewMemoryStorage())

	_, err := svc.GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, service.ErrNotFound)
}
