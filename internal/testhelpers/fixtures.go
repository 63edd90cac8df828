package testhelpers

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
)

// DefaultPassword is the password of users made by CreateUser.
const DefaultPassword = "s3cret-pass"

var (
	hashOnce    sync.Once
	defaultHash string
)

func passwordHash() string {
	hashOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
		if err != nil {
			panic(err)
		}
		defaultHash = string(h)
	})
	return defaultHash
}

// PNGDataURL is a valid inline image payload.
var PNGDataURL = "data:image/png;base64," + base64.StdEncoding.EncodeToString(
	[]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00"),
)

// CreateUser inserts a user named username with DefaultPassword.
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        strings.ToLower(username) + "@example.com",
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: passwordHash(),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CreateTag(t *testing.T, db *gorm.DB, slug string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: strings.ToUpper(slug[:1]) + slug[1:], Slug: slug}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

func CreateIngredient(t *testing.T, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()
	ingredient := &models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(ingredient).Error)
	return ingredient
}

// RecipeOption customizes CreateRecipe.
type RecipeOption func(*recipeFixture)

type recipeFixture struct {
	ingredients map[uint]int
	tags        []uint
}

// WithIngredient adds amount of ingredient to the recipe.
func WithIngredient(ingredient *models.Ingredient, amount int) RecipeOption {
	return func(f *recipeFixture) { f.ingredients[ingredient.ID] = amount }
}

func WithTags(tags ...*models.Tag) RecipeOption {
	return func(f *recipeFixture) {
		for _, tag := range tags {
			f.tags = append(f.tags, tag.ID)
		}
	}
}

// CreateRecipe inserts a recipe by author directly, bypassing validation.
func CreateRecipe(t *testing.T, db *gorm.DB, author *models.User, name string, opts ...RecipeOption) *models.Recipe {
	t.Helper()
	f := &recipeFixture{ingredients: map[uint]int{}}
	for _, opt := range opts {
		opt(f)
	}

	recipe := &models.Recipe{
		AuthorID:    author.ID,
		Name:        name,
		Text:        "Mix and cook.",
		Image:       fmt.Sprintf("/media/recipes/images/%s.png", strings.ReplaceAll(name, " ", "_")),
		CookingTime: 10,
	}
	require.NoError(t, db.Omit("Author", "Tags", "Ingredients").Create(recipe).Error)

	for id, amount := range f.ingredients {
		require.NoError(t, db.Omit("Ingredient").Create(&models.RecipeIngredient{
			RecipeID:     recipe.ID,
			IngredientID: id,
			Amount:       amount,
		}).Error)
	}
	for _, id := range f.tags {
		require.NoError(t, db.Exec("INSERT INTO recipe_tags (recipe_id, tag_id) VALUES (?, ?)", recipe.ID, id).Error)
	}
	return recipe
}

// MemoryStorage keeps images in memory.
type MemoryStorage struct {
	mu      sync.Mutex
	Objects map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{Objects: map[string][]byte{}}
}

func (m *MemoryStorage) Save(_ context.Context, key string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[key] = data
	return "http://testserver/media/" + key, nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Objects, key)
	return nil
}

// Has reports whether key is stored.
func (m *MemoryStorage) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Objects[key]
	return ok
}

func (m *MemoryStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Objects)
}
