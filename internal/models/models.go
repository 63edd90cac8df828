// Package models holds the gorm entities of the recipe service.
package models

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Subscription{},
		&RevokedToken{},
		&Ingredient{},
		&Tag{},
		&Recipe{},
		&RecipeIngredient{},
		&Favorite{},
		&ShoppingCartItem{},
		&ShortLink{},
	}
}
