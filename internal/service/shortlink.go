package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/models"
)

const (
	shortCodeBytes    = 6
	shortCodeAttempts = 5
)

var ErrShortCodeExhausted = errors.New("could not allocate a unique short code")

type ShortLinkService struct {
	db       *gorm.DB
	generate func() (string, error)
}

func NewShortLinkService(db *gorm.DB) *ShortLinkService {
	return &ShortLinkService{db: db, generate: generateShortCode}
}

// generateShortCode returns 8 URL-safe characters.
func generateShortCode() (string, error) {
	buf := make([]byte, shortCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GetOrCreate returns the recipe's short link, creating it on first use.
func (s *ShortLinkService) GetOrCreate(ctx context.Context, recipeID uint) (*models.ShortLink, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("id = ?", recipeID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to look up recipe: %w", err)
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	for attempt := 0; attempt < shortCodeAttempts; attempt++ {
		var link models.ShortLink
		err := s.db.WithContext(ctx).Where("recipe_id = ?", recipeID).First(&link).Error
		if err == nil {
			return &link, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load short link: %w", err)
		}

		code, err := s.generate()
		if err != nil {
			return nil, err
		}
		link = models.ShortLink{RecipeID: recipeID, ShortCode: code}
		err = s.db.WithContext(ctx).Omit(clause.Associations).Create(&link).Error
		if err == nil {
			metrics.ShortLinksCreatedTotal.Inc()
			return &link, nil
		}
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("failed to create short link: %w", err)
		}
		// Either the code collided or another request linked this recipe
		// first; the next iteration tells the two apart.
		logging.Ctx(ctx).Debug().Uint("recipe_id", recipeID).Int("attempt", attempt+1).Msg("short link insert conflicted")
	}
	return nil, ErrShortCodeExhausted
}

// Resolve maps a short code to its recipe id.
func (s *ShortLinkService) Resolve(ctx context.Context, code string) (uint, error) {
	var link models.ShortLink
	if err := s.db.WithContext(ctx).Where("short_code = ?", code).First(&link).Error; err != nil {
		return 0, notFoundOr(err)
	}
	return link.RecipeID, nil
}
