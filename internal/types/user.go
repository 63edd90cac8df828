package types

// RegisterRequest is the body of POST /users/.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,max=150,username,notme"`
	FirstName string `json:"first_name" validate:"required,max=150,personname"`
	LastName  string `json:"last_name" validate:"required,max=150,personname"`
	Password  string `json:"password" validate:"required,min=8,max=150"`
}

type UserCreatedResponse struct {
	Email     string `json:"email"`
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type UserResponse struct {
	Email        string  `json:"email"`
	ID           uint    `json:"id"`
	Username     string  `json:"username"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	IsSubscribed bool    `json:"is_subscribed"`
	Avatar       *string `json:"avatar"`
}

// UserWithRecipesResponse is a followed author with a preview of their recipes.
type UserWithRecipesResponse struct {
	UserResponse
	Recipes      []RecipeShort `json:"recipes"`
	RecipesCount int64         `json:"recipes_count"`
}

type AvatarRequest struct {
	Avatar *string `json:"avatar"`
}

type AvatarResponse struct {
	Avatar string `json:"avatar"`
}
