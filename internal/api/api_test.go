package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	auth   *service.AuthService
	store  *testhelpers.MemoryStorage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelpers.SetupTestDB(t)
	store := testhelpers.NewMemoryStorage()
	auth := service.NewAuthService(db, "test-secret", time.Hour)

	router := gin.New()
	RegisterRoutes(router, Services{
		Auth:       auth,
		Users:      service.NewUserService(db, store),
		Recipes:    service.NewRecipeService(db, store),
		Relations:  service.NewRelationService(db),
		Shopping:   service.NewShoppingListService(db),
		ShortLinks: service.NewShortLinkService(db),
		Catalog:    service.NewCatalogService(db),
	}, Options{
		Pager: Paginator{DefaultLimit: 6, MaxLimit: 100},
	})

	return &testEnv{router: router, db: db, auth: auth, store: store}
}

func (e *testEnv) token(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := e.auth.GenerateToken(user)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRegisterLoginLogout(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/users", "", map[string]string{
		"email":      "cook@example.com",
		"username":   "cook",
		"first_name": "Jane",
		"last_name":  "Doe",
		"password":   "long-password",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "cook", created["username"])
	assert.NotContains(t, created, "password")

	w = env.do(t, http.MethodPost, "/api/auth/token/login", "", map[string]string{
		"email":    "cook@example.com",
		"password": "long-password",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := decode(t, w)["auth_token"].(string)

	w = env.do(t, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode(t, w)
	assert.Equal(t, "cook@example.com", me["email"])
	assert.Equal(t, false, me["is_subscribed"])
	assert.Nil(t, me["avatar"])

	w = env.do(t, http.MethodPost, "/api/auth/token/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	user := testhelpers.CreateUser(t, env.db, "cook")

	w := env.do(t, http.MethodPost, "/api/auth/token/login", "", map[string]string{
		"email":    user.Email,
		"password": "nope",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"non_field_errors": ["unable to log in with provided credentials"]}`, w.Body.String())
}

func TestRegisterValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	testhelpers.CreateUser(t, env.db, "taken")

	w := env.do(t, http.MethodPost, "/api/users", "", map[string]string{
		"email":      "taken@example.com",
		"username":   "me",
		"first_name": "Jane",
		"last_name":  "Doe",
		"password":   "long-password",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Contains(t, body, "username")
}

func TestSetPassword(t *testing.T) {
	env := newTestEnv(t)
	user := testhelpers.CreateUser(t, env.db, "cook")
	token := env.token(t, user)

	w := env.do(t, http.MethodPost, "/api/users/set_password", token, map[string]string{
		"current_password": "wrong",
		"new_password":     "another-password",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w), "current_password")

	w = env.do(t, http.MethodPost, "/api/users/set_password", token, map[string]string{
		"current_password": testhelpers.DefaultPassword,
		"new_password":     "another-password",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodPost, "/api/users/set_password", "", map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserListPagination(t *testing.T) {
	env := newTestEnv(t)
	for i := 1; i <= 3; i++ {
		testhelpers.CreateUser(t, env.db, fmt.Sprintf("user%d", i))
	}

	w := env.do(t, http.MethodGet, "/api/users?limit=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 3, body["count"])
	assert.Len(t, body["results"], 2)
	assert.Equal(t, "http://example.com/api/users?limit=2&page=2", body["next"])
	assert.Nil(t, body["previous"])

	w = env.do(t, http.MethodGet, "/api/users?limit=2&page=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Len(t, body["results"], 1)
	assert.Nil(t, body["next"])
	assert.Equal(t, "http://example.com/api/users?limit=2", body["previous"])

	for _, page := range []string{"3", "0", "abc"} {
		w = env.do(t, http.MethodGet, "/api/users?limit=2&page="+page, "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code, page)
		assert.JSONEq(t, `{"detail": "invalid page"}`, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/users/999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodGet, "/api/users/abc", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscribeFlow(t *testing.T) {
	env := newTestEnv(t)
	reader := testhelpers.CreateUser(t, env.db, "reader")
	author := testhelpers.CreateUser(t, env.db, "author")
	for _, name := range []string{"one", "two", "three"} {
		testhelpers.CreateRecipe(t, env.db, author, name)
	}
	token := env.token(t, reader)

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe", reader.ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"author": ["you cannot subscribe to yourself"]}`, w.Body.String())

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe?recipe_limit=1", author.ID), token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["is_subscribed"])
	assert.EqualValues(t, 3, body["recipes_count"])
	assert.Len(t, body["recipes"], 1)

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe", author.ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"errors": "you are already subscribed to this user"}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/users/subscriptions?recipe_limit=bogus", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.EqualValues(t, 1, body["count"])
	first := body["results"].([]interface{})[0].(map[string]interface{})
	assert.Len(t, first["recipes"], 3)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d", author.ID), token, nil)
	assert.Equal(t, true, decode(t, w)["is_subscribed"])

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d/subscribe", author.ID), token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d/subscribe", author.ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"errors": "you are not subscribed to this user"}`, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/users/999/subscribe", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAvatarEndpoints(t *testing.T) {
	env := newTestEnv(t)
	user := testhelpers.CreateUser(t, env.db, "cook")
	token := env.token(t, user)

	w := env.do(t, http.MethodPut, "/api/users/me/avatar", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"avatar": ["this field is required"]}`, w.Body.String())

	w = env.do(t, http.MethodPut, "/api/users/me/avatar", token, map[string]string{"avatar": testhelpers.PNGDataURL})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	url := decode(t, w)["avatar"].(string)
	assert.Contains(t, url, "users/avatars/avatar_")

	w = env.do(t, http.MethodGet, "/api/users/me", token, nil)
	assert.Equal(t, url, decode(t, w)["avatar"])

	w = env.do(t, http.MethodDelete, "/api/users/me/avatar", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, env.store.Len())
}

func TestCatalogEndpoints(t *testing.T) {
	env := newTestEnv(t)
	testhelpers.CreateIngredient(t, env.db, "salt", "g")
	testhelpers.CreateIngredient(t, env.db, "sugar", "g")
	tag := testhelpers.CreateTag(t, env.db, "breakfast")

	w := env.do(t, http.MethodGet, "/api/ingredients?name=sa", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id": 1, "name": "salt", "measurement_unit": "g"}]`, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/tags", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`[{"id": %d, "name": "Breakfast", "slug": "breakfast"}]`, tag.ID), w.Body.String())

	w = env.do(t, http.MethodGet, "/api/tags/999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodGet, "/api/ingredients/1", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
