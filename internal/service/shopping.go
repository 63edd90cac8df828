package service

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/types"
)

const shoppingListHeader = "Shopping list:"

type ShoppingListService struct {
	db *gorm.DB
}

func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{db: db}
}

// aggregateQuery sums ingredient amounts over every recipe in the user's
// cart, one row per (name, unit).
func aggregateQuery(userID uint) (string, []interface{}, error) {
	return sq.Select(
		"i.name AS name",
		"i.measurement_unit AS measurement_unit",
		"SUM(ri.amount) AS amount",
	).
		From("shopping_cart_items sc").
		Join("recipes r ON r.id = sc.recipe_id").
		Join("recipe_ingredients ri ON ri.recipe_id = r.id").
		Join("ingredients i ON i.id = ri.ingredient_id").
		Where(sq.Eq{"sc.user_id": userID}).
		GroupBy("i.name", "i.measurement_unit").
		OrderBy("i.name", "i.measurement_unit").
		ToSql()
}

func (s *ShoppingListService) Aggregate(ctx context.Context, userID uint) ([]types.ShoppingListItem, error) {
	query, args, err := aggregateQuery(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to build shopping list query: %w", err)
	}

	var items []types.ShoppingListItem
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate shopping list: %w", err)
	}
	return items, nil
}

// RenderShoppingList formats items as the downloadable text file.
func RenderShoppingList(items []types.ShoppingListItem) string {
	var b strings.Builder
	b.WriteString(shoppingListHeader + "\n\n")

	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = fmt.Sprintf("%s - %d %s", item.Name, item.Amount, item.MeasurementUnit)
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}
