package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/models"
)

// RelationKind names a user-to-target toggle relation.
type RelationKind string

const (
	Favorite     RelationKind = "favorite"
	ShoppingCart RelationKind = "shopping_cart"
	Subscription RelationKind = "subscription"
)

type relationDef struct {
	// target is the model whose existence is checked before any change
	target       interface{}
	model        func(userID, targetID uint) interface{}
	targetColumn string
	existsMsg    string
	missingMsg   string
}

var relationDefs = map[RelationKind]relationDef{
	Favorite: {
		target: &models.Recipe{},
		model: func(userID, targetID uint) interface{} {
			return &models.Favorite{UserID: userID, RecipeID: targetID}
		},
		targetColumn: "recipe_id",
		existsMsg:    "recipe is already in favorites",
		missingMsg:   "recipe is not in favorites",
	},
	ShoppingCart: {
		target: &models.Recipe{},
		model: func(userID, targetID uint) interface{} {
			return &models.ShoppingCartItem{UserID: userID, RecipeID: targetID}
		},
		targetColumn: "recipe_id",
		existsMsg:    "recipe is already in the shopping cart",
		missingMsg:   "recipe is not in the shopping cart",
	},
	Subscription: {
		target: &models.User{},
		model: func(userID, targetID uint) interface{} {
			return &models.Subscription{UserID: userID, AuthorID: targetID}
		},
		targetColumn: "author_id",
		existsMsg:    "you are already subscribed to this user",
		missingMsg:   "you are not subscribed to this user",
	},
}

// RelationService adds and removes favorites, cart items and subscriptions.
type RelationService struct {
	db *gorm.DB
}

func NewRelationService(db *gorm.DB) *RelationService {
	return &RelationService{db: db}
}

func (s *RelationService) lookup(kind RelationKind) (relationDef, error) {
	def, ok := relationDefs[kind]
	if !ok {
		return relationDef{}, fmt.Errorf("unknown relation kind %q", kind)
	}
	return def, nil
}

func (s *RelationService) checkTarget(ctx context.Context, def relationDef, targetID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(def.target).Where("id = ?", targetID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up target: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

// Add creates the relation between userID and targetID.
func (s *RelationService) Add(ctx context.Context, kind RelationKind, userID, targetID uint) error {
	def, err := s.lookup(kind)
	if err != nil {
		return err
	}
	if err := s.checkTarget(ctx, def, targetID); err != nil {
		return err
	}
	if kind == Subscription && userID == targetID {
		return NewValidationError("author", "you cannot subscribe to yourself")
	}

	row := def.model(userID, targetID)
	exists, err := s.Exists(ctx, kind, userID, targetID)
	if err != nil {
		return err
	}
	if exists {
		return conflictError(def.existsMsg)
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return conflictError(def.existsMsg)
		}
		return fmt.Errorf("failed to add %s: %w", kind, err)
	}

	metrics.RecordRelationChange(string(kind), "add")
	logging.Ctx(ctx).Debug().
		Str("kind", string(kind)).
		Uint("user_id", userID).
		Uint("target_id", targetID).
		Msg("relation added")
	return nil
}

// Remove deletes the relation between userID and targetID.
func (s *RelationService) Remove(ctx context.Context, kind RelationKind, userID, targetID uint) error {
	def, err := s.lookup(kind)
	if err != nil {
		return err
	}
	if err := s.checkTarget(ctx, def, targetID); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND "+def.targetColumn+" = ?", userID, targetID).
		Delete(def.model(0, 0))
	if res.Error != nil {
		return fmt.Errorf("failed to remove %s: %w", kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return notInRelationError(def.missingMsg)
	}

	metrics.RecordRelationChange(string(kind), "remove")
	return nil
}

// Exists reports whether the relation is present.
func (s *RelationService) Exists(ctx context.Context, kind RelationKind, userID, targetID uint) (bool, error) {
	def, err := s.lookup(kind)
	if err != nil {
		return false, err
	}

	var count int64
	err = s.db.WithContext(ctx).
		Model(def.model(0, 0)).
		Where("user_id = ? AND "+def.targetColumn+" = ?", userID, targetID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", kind, err)
	}
	return count > 0, nil
}
