package service

import (
	"context"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// IAuthService defines the interface for authentication operations
type IAuthService interface {
	Login(ctx context.Context, req types.LoginRequest) (string, error)
	GenerateToken(user *models.User) (string, error)
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
	Logout(ctx context.Context, claims *types.TokenClaims) error
	SetPassword(ctx context.Context, userID uint, req types.SetPasswordRequest) error
	PurgeExpiredRevocations(ctx context.Context) (int64, error)
}

// IUserService defines the interface for account and avatar operations
type IUserService interface {
	Register(ctx context.Context, req types.RegisterRequest) (*models.User, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
	List(ctx context.Context, page types.PageRequest) ([]models.User, int64, error)
	Subscriptions(ctx context.Context, userID uint, page types.PageRequest) ([]models.User, int64, error)
	Present(ctx context.Context, viewerID uint, users []models.User) ([]types.UserResponse, error)
	PresentOne(ctx context.Context, viewerID uint, user *models.User) (*types.UserResponse, error)
	PresentWithRecipes(ctx context.Context, viewerID uint, authors []models.User, recipeLimit int) ([]types.UserWithRecipesResponse, error)
	SetAvatar(ctx context.Context, userID uint, payload string) (string, error)
	DeleteAvatar(ctx context.Context, userID uint) error
}

// IRecipeService defines the interface for recipe operations
type IRecipeService interface {
	List(ctx context.Context, viewerID uint, filter types.RecipeFilter, page types.PageRequest) ([]models.Recipe, int64, error)
	Get(ctx context.Context, id uint) (*models.Recipe, error)
	Short(ctx context.Context, id uint) (*types.RecipeShort, error)
	Create(ctx context.Context, authorID uint, req types.RecipeRequest) (*models.Recipe, error)
	Update(ctx context.Context, userID, id uint, req types.RecipeRequest) (*models.Recipe, error)
	Delete(ctx context.Context, userID, id uint) error
	Present(ctx context.Context, viewerID uint, recipes []models.Recipe) ([]types.RecipeResponse, error)
	PresentOne(ctx context.Context, viewerID uint, recipe *models.Recipe) (*types.RecipeResponse, error)
}

// IRelationService defines the interface for favorites, cart and subscriptions
type IRelationService interface {
	Add(ctx context.Context, kind RelationKind, userID, targetID uint) error
	Remove(ctx context.Context, kind RelationKind, userID, targetID uint) error
	Exists(ctx context.Context, kind RelationKind, userID, targetID uint) (bool, error)
}

type IShoppingListService interface {
	Aggregate(ctx context.Context, userID uint) ([]types.ShoppingListItem, error)
}

type IShortLinkService interface {
	GetOrCreate(ctx context.Context, recipeID uint) (*models.ShortLink, error)
	Resolve(ctx context.Context, code string) (uint, error)
}

type ICatalogService interface {
	ListTags(ctx context.Context) ([]models.Tag, error)
	GetTag(ctx context.Context, id uint) (*models.Tag, error)
	ListIngredients(ctx context.Context, prefix string) ([]models.Ingredient, error)
	GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error)
}

var (
	_ IAuthService         = (*AuthService)(nil)
	_ IUserService         = (*UserService)(nil)
	_ IRecipeService       = (*RecipeService)(nil)
	_ IRelationService     = (*RelationService)(nil)
	_ IShoppingListService = (*ShoppingListService)(nil)
	_ IShortLinkService    = (*ShortLinkService)(nil)
	_ ICatalogService      = (*CatalogService)(nil)
)
