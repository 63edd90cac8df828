package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

const shoppingListFilename = "Shopping_cart.txt"

type RecipeHandler struct {
	recipes    service.IRecipeService
	relations  service.IRelationService
	shopping   service.IShoppingListService
	shortLinks service.IShortLinkService
	validator  middleware.TokenValidator
	pager      Paginator
	limit      gin.HandlerFunc
	publicURL  string
}

// RecipeHandlerConfig holds the recipe handler's dependencies.
type RecipeHandlerConfig struct {
	Recipes    service.IRecipeService
	Relations  service.IRelationService
	Shopping   service.IShoppingListService
	ShortLinks service.IShortLinkService
	Validator  middleware.TokenValidator
	Pager      Paginator
	Limit      gin.HandlerFunc
	PublicURL  string
}

func NewRecipeHandler(cfg RecipeHandlerConfig) *RecipeHandler {
	return &RecipeHandler{
		recipes:    cfg.Recipes,
		relations:  cfg.Relations,
		shopping:   cfg.Shopping,
		shortLinks: cfg.ShortLinks,
		validator:  cfg.Validator,
		pager:      cfg.Pager,
		limit:      orNoop(cfg.Limit),
		publicURL:  cfg.PublicURL,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	optionalAuth := middleware.OptionalAuth(h.validator)
	requireAuth := middleware.RequireAuth(h.validator)

	recipes := router.Group("/recipes")
	{
		recipes.GET("", optionalAuth, h.List)
		recipes.POST("", requireAuth, h.limit, h.Create)
		recipes.GET("/download_shopping_cart", requireAuth, h.DownloadShoppingCart)
		recipes.GET("/:id", optionalAuth, h.Get)
		recipes.PATCH("/:id", requireAuth, h.limit, h.Update)
		recipes.DELETE("/:id", requireAuth, h.Delete)
		recipes.GET("/:id/get-link", h.GetLink)
		recipes.POST("/:id/favorite", requireAuth, h.limit, h.relationAdd(service.Favorite))
		recipes.DELETE("/:id/favorite", requireAuth, h.relationRemove(service.Favorite))
		recipes.POST("/:id/shopping_cart", requireAuth, h.limit, h.relationAdd(service.ShoppingCart))
		recipes.DELETE("/:id/shopping_cart", requireAuth, h.relationRemove(service.ShoppingCart))
	}
}

// RegisterRedirect serves short links outside the API prefix.
func (h *RecipeHandler) RegisterRedirect(router gin.IRoutes) {
	router.GET("/s/:code", h.Redirect)
}

func (h *RecipeHandler) List(c *gin.Context) {
	filter, err := parseRecipeFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, ok := h.pager.Request(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	viewerID := middleware.UserID(c)

	recipes, total, err := h.recipes.List(ctx, viewerID, filter, page)
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := h.recipes.Present(ctx, viewerID, recipes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, page, total, out)
}

func (h *RecipeHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	recipe, err := h.recipes.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := h.recipes.PresentOne(ctx, middleware.UserID(c), recipe)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *RecipeHandler) Create(c *gin.Context) {
	var req types.RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c, err)
		return
	}
	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	recipe, err := h.recipes.Create(ctx, userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := h.recipes.PresentOne(ctx, userID, recipe)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *RecipeHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req types.RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c, err)
		return
	}
	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	recipe, err := h.recipes.Update(ctx, userID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := h.recipes.PresentOne(ctx, userID, recipe)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *RecipeHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.recipes.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) relationAdd(kind service.RelationKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()

		if err := h.relations.Add(ctx, kind, middleware.UserID(c), id); err != nil {
			respondError(c, err)
			return
		}
		short, err := h.recipes.Short(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, short)
	}
}

func (h *RecipeHandler) relationRemove(kind service.RelationKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := h.relations.Remove(c.Request.Context(), kind, middleware.UserID(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	items, err := h.shopping.Aggregate(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	metrics.ShoppingListDownloadsTotal.Inc()
	c.Header("Content-Disposition", "attachment; filename="+shoppingListFilename)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(service.RenderShoppingList(items)))
}

func (h *RecipeHandler) GetLink(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	link, err := h.shortLinks.GetOrCreate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.ShortLinkResponse{
		ShortLink: fmt.Sprintf("%s/s/%s/", baseURL(c, h.publicURL), link.ShortCode),
	})
}

func (h *RecipeHandler) Redirect(c *gin.Context) {
	recipeID, err := h.shortLinks.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/recipes/%d/", recipeID))
}

// parseRecipeFilter reads author, tags, is_favorited and is_in_shopping_cart.
func parseRecipeFilter(c *gin.Context) (types.RecipeFilter, error) {
	var filter types.RecipeFilter
	fields := map[string][]string{}

	if raw := c.Query("author"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			fields["author"] = []string{"enter a valid user id"}
		} else {
			author := uint(id)
			filter.AuthorID = &author
		}
	}

	seen := map[string]bool{}
	for _, value := range c.QueryArray("tags") {
		for _, slug := range strings.Split(value, ",") {
			slug = strings.TrimSpace(slug)
			if slug != "" && !seen[slug] {
				seen[slug] = true
				filter.TagSlugs = append(filter.TagSlugs, slug)
			}
		}
	}

	for name, dst := range map[string]**bool{
		"is_favorited":        &filter.IsFavorited,
		"is_in_shopping_cart": &filter.IsInShoppingCart,
	} {
		raw, present := c.GetQuery(name)
		if !present {
			continue
		}
		v, ok := parseBool(raw)
		if !ok {
			fields[name] = []string{"enter a valid boolean"}
			continue
		}
		*dst = &v
	}

	if len(fields) > 0 {
		return filter, &service.ValidationError{Fields: fields}
	}
	return filter, nil
}

// parseBool accepts the usual yes/no spellings.
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes", "y", "on":
		return true, true
	case "0", "false", "f", "no", "n", "off":
		return false, true
	}
	return false, false
}
