package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/storage"
	"github.com/pageza/foodgram/backend/internal/types"
	"github.com/pageza/foodgram/backend/internal/validation"
)

// recipeTag is a row of the recipes/tags join table.
type recipeTag struct {
	RecipeID uint `gorm:"primaryKey"`
	TagID    uint `gorm:"primaryKey"`
}

func (recipeTag) TableName() string { return "recipe_tags" }

// RecipeService handles recipe operations
type RecipeService struct {
	db      *gorm.DB
	storage storage.ImageStorage
}

// NewRecipeService creates a new RecipeService instance
func NewRecipeService(db *gorm.DB, store storage.ImageStorage) *RecipeService {
	return &RecipeService{db: db, storage: store}
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.id") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_ingredients.id") }).
		Preload("Ingredients.Ingredient")
}

// List returns a page of recipes matching filter as seen by viewerID
// (0 for anonymous), newest first.
func (s *RecipeService) List(ctx context.Context, viewerID uint, filter types.RecipeFilter, page types.PageRequest) ([]models.Recipe, int64, error) {
	scope := s.filterScope(viewerID, filter)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}

	var recipes []models.Recipe
	err := withDetails(s.db.WithContext(ctx)).
		Scopes(scope).
		Order("recipes.pub_date DESC").
		Order("recipes.id DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, total, nil
}

func (s *RecipeService) filterScope(viewerID uint, f types.RecipeFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.AuthorID != nil {
			db = db.Where("recipes.author_id = ?", *f.AuthorID)
		}
		if len(f.TagSlugs) > 0 {
			tagged := s.db.Table("recipe_tags").
				Select("recipe_tags.recipe_id").
				Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
				Where("tags.slug IN ?", f.TagSlugs)
			db = db.Where("recipes.id IN (?)", tagged)
		}
		db = s.membershipFilter(db, "favorites", viewerID, f.IsFavorited)
		db = s.membershipFilter(db, "shopping_cart_items", viewerID, f.IsInShoppingCart)
		return db
	}
}

// membershipFilter keeps recipes in (or, for false, outside) the viewer's
// table. Anonymous viewers have an empty set.
func (s *RecipeService) membershipFilter(db *gorm.DB, table string, viewerID uint, flag *bool) *gorm.DB {
	if flag == nil {
		return db
	}
	if viewerID == 0 {
		if *flag {
			return db.Where("1 = 0")
		}
		return db
	}

	members := s.db.Table(table).Select("recipe_id").Where("user_id = ?", viewerID)
	if *flag {
		return db.Where("recipes.id IN (?)", members)
	}
	return db.Where("recipes.id NOT IN (?)", members)
}

// Get loads a recipe with its author, tags and ingredients.
func (s *RecipeService) Get(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := withDetails(s.db.WithContext(ctx)).First(&recipe, id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &recipe, nil
}

// Short returns the compact view used by favorites and the cart.
func (s *RecipeService) Short(ctx context.Context, id uint) (*types.RecipeShort, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	short := recipeShort(&recipe)
	return &short, nil
}

// Create stores the image and then the recipe with its composition.
func (s *RecipeService) Create(ctx context.Context, authorID uint, req types.RecipeRequest) (*models.Recipe, error) {
	if err := s.validateRequest(ctx, req, true); err != nil {
		return nil, err
	}

	img, err := storage.DecodeDataURL(req.Image)
	if err != nil {
		return nil, NewValidationError("image", err.Error())
	}
	key := storage.NewKey(storage.RecipePrefix, "", img.Ext)
	url, err := s.storage.Save(ctx, key, img.Data, img.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store recipe image: %w", err)
	}

	recipe := models.Recipe{
		AuthorID:    authorID,
		Name:        req.Name,
		Text:        req.Text,
		Image:       url,
		ImageKey:    key,
		CookingTime: req.CookingTime,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return err
		}
		return replaceComposition(tx, recipe.ID, req)
	})
	if err != nil {
		s.removeObject(ctx, key)
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	logging.Ctx(ctx).Info().Uint("recipe_id", recipe.ID).Uint("author_id", authorID).Msg("recipe created")
	return s.Get(ctx, recipe.ID)
}

// Update replaces the recipe fields and composition. The image is kept
// unless a new one is sent.
func (s *RecipeService) Update(ctx context.Context, userID, id uint, req types.RecipeRequest) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	if err := s.authorize(ctx, &recipe, userID); err != nil {
		return nil, err
	}
	if err := s.validateRequest(ctx, req, false); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":         req.Name,
		"text":         req.Text,
		"cooking_time": req.CookingTime,
	}

	var newKey string
	if req.Image != "" {
		img, err := storage.DecodeDataURL(req.Image)
		if err != nil {
			return nil, NewValidationError("image", err.Error())
		}
		newKey = storage.NewKey(storage.RecipePrefix, "", img.Ext)
		url, err := s.storage.Save(ctx, newKey, img.Data, img.ContentType)
		if err != nil {
			return nil, fmt.Errorf("failed to store recipe image: %w", err)
		}
		updates["image"] = url
		updates["image_key"] = newKey
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Recipe{}).Where("id = ?", recipe.ID).Updates(updates).Error; err != nil {
			return err
		}
		return replaceComposition(tx, recipe.ID, req)
	})
	if err != nil {
		if newKey != "" {
			s.removeObject(ctx, newKey)
		}
		return nil, fmt.Errorf("failed to update recipe: %w", err)
	}

	if newKey != "" && recipe.ImageKey != "" {
		s.removeObject(ctx, recipe.ImageKey)
	}
	return s.Get(ctx, recipe.ID)
}

// Delete removes the recipe, everything that references it and its image.
func (s *RecipeService) Delete(ctx context.Context, userID, id uint) error {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		return notFoundOr(err)
	}
	if err := s.authorize(ctx, &recipe, userID); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dependents := []interface{}{
			&models.Favorite{},
			&models.ShoppingCartItem{},
			&models.ShortLink{},
			&models.RecipeIngredient{},
			&recipeTag{},
		}
		for _, model := range dependents {
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Recipe{}, recipe.ID).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	if recipe.ImageKey != "" {
		s.removeObject(ctx, recipe.ImageKey)
	}
	logging.Ctx(ctx).Info().Uint("recipe_id", recipe.ID).Msg("recipe deleted")
	return nil
}

// authorize allows the author and staff users to modify a recipe.
func (s *RecipeService) authorize(ctx context.Context, recipe *models.Recipe, userID uint) error {
	if recipe.AuthorID == userID {
		return nil
	}
	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "is_staff").First(&user, userID).Error; err != nil {
		if notFoundOr(err) == ErrNotFound {
			return ErrForbidden
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsStaff {
		return ErrForbidden
	}
	return nil
}

// validateRequest checks the payload and that every referenced ingredient
// and tag exists.
func (s *RecipeService) validateRequest(ctx context.Context, req types.RecipeRequest, requireImage bool) error {
	fe := validation.ValidateStruct(req)
	if fe == nil {
		fe = validation.FieldErrors{}
	}
	if requireImage && req.Image == "" {
		fe.Add("image", "this field is required")
	}
	if len(fe) > 0 {
		return &ValidationError{Fields: fe}
	}

	ingredientIDs := make([]uint, len(req.Ingredients))
	for i, in := range req.Ingredients {
		ingredientIDs[i] = in.ID
	}
	if err := s.checkExisting(ctx, &models.Ingredient{}, ingredientIDs, "ingredients", "ingredient", fe); err != nil {
		return err
	}
	if err := s.checkExisting(ctx, &models.Tag{}, req.Tags, "tags", "tag", fe); err != nil {
		return err
	}
	if len(fe) > 0 {
		return &ValidationError{Fields: fe}
	}
	return nil
}

func (s *RecipeService) checkExisting(ctx context.Context, model interface{}, ids []uint, field, noun string, fe validation.FieldErrors) error {
	if len(ids) == 0 {
		return nil
	}
	var found []uint
	if err := s.db.WithContext(ctx).Model(model).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return fmt.Errorf("failed to look up %ss: %w", noun, err)
	}
	present := make(map[uint]bool, len(found))
	for _, id := range found {
		present[id] = true
	}
	for _, id := range ids {
		if !present[id] {
			fe.Add(field, fmt.Sprintf("%s %d does not exist", noun, id))
		}
	}
	return nil
}

// replaceComposition rewrites the recipe's ingredient and tag rows.
func replaceComposition(tx *gorm.DB, recipeID uint, req types.RecipeRequest) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
		return err
	}
	rows := make([]models.RecipeIngredient, len(req.Ingredients))
	for i, in := range req.Ingredients {
		rows[i] = models.RecipeIngredient{RecipeID: recipeID, IngredientID: in.ID, Amount: in.Amount}
	}
	if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
		return err
	}

	if err := tx.Where("recipe_id = ?", recipeID).Delete(&recipeTag{}).Error; err != nil {
		return err
	}
	if len(req.Tags) == 0 {
		return nil
	}
	tags := make([]recipeTag, len(req.Tags))
	for i, id := range req.Tags {
		tags[i] = recipeTag{RecipeID: recipeID, TagID: id}
	}
	return tx.Create(&tags).Error
}

// Present renders recipes as seen by viewerID (0 for anonymous).
func (s *RecipeService) Present(ctx context.Context, viewerID uint, recipes []models.Recipe) ([]types.RecipeResponse, error) {
	recipeIDs := make([]uint, len(recipes))
	authorIDs := make([]uint, len(recipes))
	for i, r := range recipes {
		recipeIDs[i] = r.ID
		authorIDs[i] = r.AuthorID
	}

	favorited, err := memberSet(ctx, s.db, "favorites", "recipe_id", viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	inCart, err := memberSet(ctx, s.db, "shopping_cart_items", "recipe_id", viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	subscribed, err := memberSet(ctx, s.db, "subscriptions", "author_id", viewerID, authorIDs)
	if err != nil {
		return nil, err
	}

	out := make([]types.RecipeResponse, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		ingredients := make([]types.IngredientAmount, len(r.Ingredients))
		for j, ri := range r.Ingredients {
			ingredients[j] = types.IngredientAmount{
				ID:              ri.IngredientID,
				Name:            ri.Ingredient.Name,
				MeasurementUnit: ri.Ingredient.MeasurementUnit,
				Amount:          ri.Amount,
			}
		}
		tags := r.Tags
		if tags == nil {
			tags = []models.Tag{}
		}
		out[i] = types.RecipeResponse{
			ID:               r.ID,
			Tags:             tags,
			Author:           userResponse(&r.Author, subscribed[r.AuthorID]),
			Ingredients:      ingredients,
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
			Name:             r.Name,
			Image:            r.Image,
			Text:             r.Text,
			CookingTime:      r.CookingTime,
		}
	}
	return out, nil
}

// PresentOne is Present for a single recipe.
func (s *RecipeService) PresentOne(ctx context.Context, viewerID uint, recipe *models.Recipe) (*types.RecipeResponse, error) {
	out, err := s.Present(ctx, viewerID, []models.Recipe{*recipe})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *RecipeService) removeObject(ctx context.Context, key string) {
	if err := s.storage.Delete(ctx, key); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("failed to delete stored image")
	}
}

func recipeShort(r *models.Recipe) types.RecipeShort {
	return types.RecipeShort{
		ID:          r.ID,
		Name:        r.Name,
		Image:       r.Image,
		CookingTime: r.CookingTime,
	}
}
