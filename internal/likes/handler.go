package likes

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"recipehub/internal/auth"
	"recipehub/internal/live"
)

// Publisher receives like events; *live.Hub implements it.
type Publisher interface {
	Publish(live.Event)
}

type Handler struct {
	Repo   *Repo
	Events Publisher
	Logger *slog.Logger
}

func NewHandler(repo *Repo, events Publisher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Repo: repo, Events: events, Logger: logger}
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/recipes/:id/toggle-like", h.toggle)
	rg.GET("/recipes/:id/likes", h.listByRecipe)
	rg.POST("/recipes/:id/likes", h.like)
	rg.DELETE("/recipes/:id/likes", h.unlike)
	rg.GET("/likes/:id", h.show)
	rg.DELETE("/likes/:id", h.destroy)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/like-stats", h.stats)
}

func (h *Handler) toggle(c *gin.Context) {
	user := auth.MustGetUser(c)
	if user.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "admins cannot like recipes"})
		return
	}
	recipeID, ok := parseID(c)
	if !ok {
		return
	}

	liked, count, err := h.Repo.Toggle(c.Request.Context(), user.ID, recipeID)
	if errors.Is(err, ErrRecipeNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
		return
	}
	if err != nil {
		h.Logger.Error("toggle like", "recipe_id", recipeID, "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "toggle like failed"})
		return
	}

	h.publish(recipeID, user.ID, liked, count)

	c.JSON(http.StatusOK, gin.H{
		"liked":       liked,
		"likes_count": count,
	})
}

func (h *Handler) like(c *gin.Context) {
	user := auth.MustGetUser(c)
	if user.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "admins cannot like recipes"})
		return
	}
	recipeID, ok := parseID(c)
	if !ok {
		return
	}

	created, count, err := h.Repo.Like(c.Request.Context(), user.ID, recipeID)
	if errors.Is(err, ErrRecipeNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
		return
	}
	if err != nil {
		h.Logger.Error("like", "recipe_id", recipeID, "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "like failed"})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.publish(recipeID, user.ID, true, count)
	}
	c.JSON(status, gin.H{
		"liked":       true,
		"likes_count": count,
	})
}

func (h *Handler) unlike(c *gin.Context) {
	user := auth.MustGetUser(c)
	recipeID, ok := parseID(c)
	if !ok {
		return
	}

	removed, count, err := h.Repo.Unlike(c.Request.Context(), user.ID, recipeID)
	if errors.Is(err, ErrRecipeNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
		return
	}
	if err != nil {
		h.Logger.Error("unlike", "recipe_id", recipeID, "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unlike failed"})
		return
	}
	if removed {
		h.publish(recipeID, user.ID, false, count)
	}
	c.JSON(http.StatusOK, gin.H{
		"liked":       false,
		"likes_count": count,
	})
}

func (h *Handler) show(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	l, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.Logger.Error("get like", "like_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if l == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "like not found"})
		return
	}
	c.JSON(http.StatusOK, l)
}

// destroy deletes a like by id; only its owner may.
func (h *Handler) destroy(c *gin.Context) {
	user := auth.MustGetUser(c)
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	l, err := h.Repo.GetByID(ctx, id)
	if err != nil {
		h.Logger.Error("get like", "like_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if l == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "like not found"})
		return
	}
	if l.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot delete another user's like"})
		return
	}

	count, err := h.Repo.Delete(ctx, l)
	if err != nil {
		h.Logger.Error("delete like", "like_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	h.publish(l.RecipeID, user.ID, false, count)
	c.JSON(http.StatusOK, gin.H{
		"liked":       false,
		"likes_count": count,
	})
}

func (h *Handler) publish(recipeID, userID int64, liked bool, count int) {
	if h.Events == nil {
		return
	}
	go h.Events.Publish(live.Event{
		Type:       live.EventRecipeLike,
		RecipeID:   recipeID,
		UserID:     userID,
		Liked:      &liked,
		LikesCount: &count,
	})
}

func (h *Handler) listByRecipe(c *gin.Context) {
	recipeID, ok := parseID(c)
	if !ok {
		return
	}
	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	items, total, err := h.Repo.ListByRecipe(c.Request.Context(), recipeID, limit, offset)
	if err != nil {
		h.Logger.Error("list likes", "recipe_id", recipeID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total": total,
		"items": items,
	})
}

func (h *Handler) stats(c *gin.Context) {
	s, err := h.Repo.Stats(c.Request.Context(), parseInt(c.Query("top"), 10))
	if err != nil {
		h.Logger.Error("like stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	c.JSON(http.StatusOK, s)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
