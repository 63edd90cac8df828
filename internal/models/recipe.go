package models

import (
	"time"
)

type Ingredient struct {
	ID              uint   `gorm:"primarykey" json:"id"`
	Name            string `gorm:"size:200;not null;index;uniqueIndex:idx_ingredient_name_unit" json:"name"`
	MeasurementUnit string `gorm:"size:100;not null;uniqueIndex:idx_ingredient_name_unit" json:"measurement_unit"`
}

type Tag struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `gorm:"size:200;uniqueIndex;not null" json:"name"`
	Slug string `gorm:"size:200;uniqueIndex;not null" json:"slug"`
}

// Recipe is owned by its author and removed together with them.
type Recipe struct {
	ID          uint      `gorm:"primarykey"`
	AuthorID    uint      `gorm:"not null;index"`
	Name        string    `gorm:"size:200;not null"`
	Text        string    `gorm:"type:text;not null"`
	Image       string    `gorm:"size:512;not null"`
	ImageKey    string    `gorm:"size:255"`
	CookingTime int       `gorm:"not null;check:chk_recipes_cooking_time,cooking_time >= 1"`
	PubDate     time.Time `gorm:"not null;index;autoCreateTime"`
	UpdatedAt   time.Time

	Author      User               `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Tags        []Tag              `gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE"`
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

// RecipeIngredient is the quantity of one ingredient in one recipe.
type RecipeIngredient struct {
	ID           uint       `gorm:"primarykey"`
	RecipeID     uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient"`
	IngredientID uint       `gorm:"not null;index;uniqueIndex:idx_recipe_ingredient"`
	Amount       int        `gorm:"not null;check:chk_recipe_ingredients_amount,amount >= 1"`
	Ingredient   Ingredient `gorm:"foreignKey:IngredientID;constraint:OnDelete:CASCADE"`
}

type Favorite struct {
	ID        uint `gorm:"primarykey"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_favorite_user_recipe"`
	RecipeID  uint `gorm:"not null;index;uniqueIndex:idx_favorite_user_recipe"`
	CreatedAt time.Time
	User      User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Recipe    Recipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

type ShoppingCartItem struct {
	ID        uint `gorm:"primarykey"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_cart_user_recipe"`
	RecipeID  uint `gorm:"not null;index;uniqueIndex:idx_cart_user_recipe"`
	CreatedAt time.Time
	User      User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Recipe    Recipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

// ShortLink binds a public short code to a recipe, one per recipe.
type ShortLink struct {
	ID        uint   `gorm:"primarykey"`
	RecipeID  uint   `gorm:"not null;uniqueIndex"`
	ShortCode string `gorm:"size:10;not null;uniqueIndex"`
	CreatedAt time.Time
	Recipe    Recipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}
