package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

type UserHandler struct {
	users     service.IUserService
	relations service.IRelationService
	validator middleware.TokenValidator
	pager     Paginator
	limit     gin.HandlerFunc
}

func NewUserHandler(users service.IUserService, relations service.IRelationService, validator middleware.TokenValidator, pager Paginator, limit gin.HandlerFunc) *UserHandler {
	return &UserHandler{
		users:     users,
		relations: relations,
		validator: validator,
		pager:     pager,
		limit:     orNoop(limit),
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	optionalAuth := middleware.OptionalAuth(h.validator)
	requireAuth := middleware.RequireAuth(h.validator)

	users := router.Group("/users")
	{
		users.GET("", optionalAuth, h.List)
		users.POST("", h.limit, h.Register)
		users.GET("/me", requireAuth, h.Me)
		users.GET("/subscriptions", requireAuth, h.Subscriptions)
		users.PUT("/me/avatar", requireAuth, h.limit, h.SetAvatar)
		users.DELETE("/me/avatar", requireAuth, h.DeleteAvatar)
		users.GET("/:id", optionalAuth, h.Get)
		users.POST("/:id/subscribe", requireAuth, h.limit, h.Subscribe)
		users.DELETE("/:id/subscribe", requireAuth, h.Unsubscribe)
	}
}

func (h *UserHandler) List(c *gin.Context) {
	page, ok := h.pager.Request(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	users, total, err := h.users.List(ctx, page)
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := h.users.Present(ctx, middleware.UserID(c), users)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, page, total, out)
}

func (h *UserHandler) Register(c *gin.Context) {
	var req types.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, types.UserCreatedResponse{
		Email:     user.Email,
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.respondUser(c, id)
}

func (h *UserHandler) Me(c *gin.Context) {
	h.respondUser(c, middleware.UserID(c))
}

func (h *UserHandler) respondUser(c *gin.Context, id uint) {
	ctx := c.Request.Context()
	user, err := h.users.GetByID(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := h.users.PresentOne(ctx, middleware.UserID(c), user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	page, ok := h.pager.Request(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	viewerID := middleware.UserID(c)

	authors, total, err := h.users.Subscriptions(ctx, viewerID, page)
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := h.users.PresentWithRecipes(ctx, viewerID, authors, recipeLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, page, total, out)
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	authorID, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	viewerID := middleware.UserID(c)

	if err := h.relations.Add(ctx, service.Subscription, viewerID, authorID); err != nil {
		respondError(c, err)
		return
	}

	author, err := h.users.GetByID(ctx, authorID)
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := h.users.PresentWithRecipes(ctx, viewerID, []models.User{*author}, recipeLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out[0])
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	authorID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.relations.Remove(c.Request.Context(), service.Subscription, middleware.UserID(c), authorID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) SetAvatar(c *gin.Context) {
	var req types.AvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c, err)
		return
	}
	if req.Avatar == nil || *req.Avatar == "" {
		c.JSON(http.StatusBadRequest, gin.H{"avatar": []string{"this field is required"}})
		return
	}

	url, err := h.users.SetAvatar(c.Request.Context(), middleware.UserID(c), *req.Avatar)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.AvatarResponse{Avatar: url})
}

func (h *UserHandler) DeleteAvatar(c *gin.Context) {
	if err := h.users.DeleteAvatar(c.Request.Context(), middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// recipeLimit reads a positive recipe_limit; anything else means no limit.
func recipeLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("recipe_limit"))
	if err != nil || n < 1 {
		return 0
	}
	return n
}
