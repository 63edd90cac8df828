// Package api holds the HTTP handlers of the foodgram API.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/service"
)

// Services are the dependencies shared by the handlers.
type Services struct {
	Auth       service.IAuthService
	Users      service.IUserService
	Recipes    service.IRecipeService
	Relations  service.IRelationService
	Shopping   service.IShoppingListService
	ShortLinks service.IShortLinkService
	Catalog    service.ICatalogService
}

// Options tune routing.
type Options struct {
	Pager Paginator
	// WriteLimit guards mutating endpoints; nil disables it
	WriteLimit gin.HandlerFunc
	PublicURL  string
}

// RegisterRoutes mounts the API under /api and short links under /s.
func RegisterRoutes(router *gin.Engine, svc Services, opts Options) {
	apiGroup := router.Group("/api")

	NewAuthHandler(svc.Auth, opts.WriteLimit).RegisterRoutes(apiGroup)
	NewUserHandler(svc.Users, svc.Relations, svc.Auth, opts.Pager, opts.WriteLimit).RegisterRoutes(apiGroup)
	NewCatalogHandler(svc.Catalog).RegisterRoutes(apiGroup)

	recipes := NewRecipeHandler(RecipeHandlerConfig{
		Recipes:    svc.Recipes,
		Relations:  svc.Relations,
		Shopping:   svc.Shopping,
		ShortLinks: svc.ShortLinks,
		Validator:  svc.Auth,
		Pager:      opts.Pager,
		Limit:      opts.WriteLimit,
		PublicURL:  opts.PublicURL,
	})
	recipes.RegisterRoutes(apiGroup)
	recipes.RegisterRedirect(router)
}
