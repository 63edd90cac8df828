package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/storage"
	"github.com/pageza/foodgram/backend/internal/types"
)

type UserService struct {
	db      *gorm.DB
	storage storage.ImageStorage
}

func NewUserService(db *gorm.DB, store storage.ImageStorage) *UserService {
	return &UserService{db: db, storage: store}
}

// Register creates an account. Email and username must be unused.
func (s *UserService) Register(ctx context.Context, req types.RegisterRequest) (*models.User, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	if err := s.checkUnique(ctx, req.Email, req.Username); err != nil {
		return nil, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			// Lost a race with a concurrent registration
			if uerr := s.checkUnique(ctx, req.Email, req.Username); uerr != nil {
				return nil, uerr
			}
			return nil, NewValidationError("email", "a user with that email already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logging.Ctx(ctx).Info().Uint("user_id", user.ID).Msg("user registered")
	return &user, nil
}

func (s *UserService) checkUnique(ctx context.Context, email, username string) error {
	verr := &ValidationError{Fields: map[string][]string{}}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		verr.Fields.Add("email", "a user with that email already exists")
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if count > 0 {
		verr.Fields.Add("username", "a user with that username already exists")
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &user, nil
}

// List returns a page of users ordered by id.
func (s *UserService) List(ctx context.Context, page types.PageRequest) ([]models.User, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	err := s.db.WithContext(ctx).
		Order("id").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// Subscriptions returns a page of authors userID follows.
func (s *UserService) Subscriptions(ctx context.Context, userID uint, page types.PageRequest) ([]models.User, int64, error) {
	followed := s.db.Model(&models.Subscription{}).Select("author_id").Where("user_id = ?", userID)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id IN (?)", followed).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	var authors []models.User
	err := s.db.WithContext(ctx).
		Where("id IN (?)", followed).
		Order("id").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&authors).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return authors, total, nil
}

// Present renders users as seen by viewerID (0 for anonymous).
func (s *UserService) Present(ctx context.Context, viewerID uint, users []models.User) ([]types.UserResponse, error) {
	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	subscribed, err := memberSet(ctx, s.db, "subscriptions", "author_id", viewerID, ids)
	if err != nil {
		return nil, err
	}

	out := make([]types.UserResponse, len(users))
	for i, u := range users {
		out[i] = userResponse(&u, subscribed[u.ID])
	}
	return out, nil
}

// PresentOne is Present for a single user.
func (s *UserService) PresentOne(ctx context.Context, viewerID uint, user *models.User) (*types.UserResponse, error) {
	out, err := s.Present(ctx, viewerID, []models.User{*user})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// PresentWithRecipes adds each author's newest recipes (at most recipeLimit
// when it is positive) and their recipe count.
func (s *UserService) PresentWithRecipes(ctx context.Context, viewerID uint, authors []models.User, recipeLimit int) ([]types.UserWithRecipesResponse, error) {
	base, err := s.Present(ctx, viewerID, authors)
	if err != nil {
		return nil, err
	}

	out := make([]types.UserWithRecipesResponse, len(authors))
	for i, author := range authors {
		q := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("author_id = ?", author.ID)

		var count int64
		if err := q.Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count recipes: %w", err)
		}

		recipes := s.db.WithContext(ctx).Where("author_id = ?", author.ID).Order("pub_date DESC, id DESC")
		if recipeLimit > 0 {
			recipes = recipes.Limit(recipeLimit)
		}
		var rows []models.Recipe
		if err := recipes.Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to load recipes: %w", err)
		}

		short := make([]types.RecipeShort, len(rows))
		for j := range rows {
			short[j] = recipeShort(&rows[j])
		}
		out[i] = types.UserWithRecipesResponse{
			UserResponse: base[i],
			Recipes:      short,
			RecipesCount: count,
		}
	}
	return out, nil
}

// SetAvatar decodes a data URL, stores it and replaces the user's avatar.
func (s *UserService) SetAvatar(ctx context.Context, userID uint, payload string) (string, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	img, err := storage.DecodeDataURL(payload)
	if err != nil {
		return "", NewValidationError("avatar", err.Error())
	}

	key := storage.NewKey(storage.AvatarPrefix, "avatar", img.Ext)
	url, err := s.storage.Save(ctx, key, img.Data, img.ContentType)
	if err != nil {
		return "", fmt.Errorf("failed to store avatar: %w", err)
	}

	oldKey := user.AvatarKey
	err = s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"avatar":     url,
		"avatar_key": key,
	}).Error
	if err != nil {
		s.removeObject(ctx, key)
		return "", fmt.Errorf("failed to update avatar: %w", err)
	}

	if oldKey != "" {
		s.removeObject(ctx, oldKey)
	}
	return url, nil
}

// DeleteAvatar clears the avatar and removes the stored image.
func (s *UserService) DeleteAvatar(ctx context.Context, userID uint) error {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"avatar":     "",
		"avatar_key": "",
	}).Error
	if err != nil {
		return fmt.Errorf("failed to clear avatar: %w", err)
	}

	if user.AvatarKey != "" {
		s.removeObject(ctx, user.AvatarKey)
	}
	return nil
}

func (s *UserService) removeObject(ctx context.Context, key string) {
	if err := s.storage.Delete(ctx, key); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("failed to delete stored image")
	}
}

func userResponse(u *models.User, subscribed bool) types.UserResponse {
	var avatar *string
	if u.Avatar != "" {
		a := u.Avatar
		avatar = &a
	}
	return types.UserResponse{
		Email:        u.Email,
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
		Avatar:       avatar,
	}
}

// memberSet returns which of ids userID is related to through table.column.
func memberSet(ctx context.Context, db *gorm.DB, table, column string, userID uint, ids []uint) (map[uint]bool, error) {
	set := make(map[uint]bool)
	if userID == 0 || len(ids) == 0 {
		return set, nil
	}

	var found []uint
	err := db.WithContext(ctx).
		Table(table).
		Where("user_id = ?", userID).
		Where(column+" IN ?", ids).
		Pluck(column, &found).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", table, err)
	}
	for _, id := range found {
		set[id] = true
	}
	return set, nil
}
