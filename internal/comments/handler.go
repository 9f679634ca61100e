package comments

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"recipehub/internal/auth"
	"recipehub/internal/live"
)

const MaxContentRunes = 500

// Publisher receives comment events; *live.Hub implements it.
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
	rg.GET("/recipes/:id/comments", h.listByRecipe)
	rg.POST("/recipes/:id/comments", h.create)
	rg.GET("/comments/:id", h.show)
	rg.DELETE("/comments/:id", h.delete)
	rg.GET("/user/comments", h.listMine)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/comments", h.adminList)
	rg.GET("/comments/user/:user_id", h.adminUserComments)
	rg.GET("/comments/:id", h.adminShow)
	rg.DELETE("/comments/bulk", h.bulkDelete)
	rg.DELETE("/comments/:id", h.delete)
}

type createReq struct {
	Content string `json:"content"`
}

func (h *Handler) create(c *gin.Context) {
	user := auth.MustGetUser(c)
	recipeID, ok := parseID(c)
	if !ok {
		return
	}

	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "content required"})
		return
	}
	if utf8.RuneCountInString(content) > MaxContentRunes {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "content must be at most 500 characters"})
		return
	}

	cm, err := h.Repo.Create(c.Request.Context(), user.ID, recipeID, content)
	if errors.Is(err, ErrRecipeNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
		return
	}
	if err != nil {
		h.Logger.Error("create comment", "recipe_id", recipeID, "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}

	h.publish(live.Event{Type: live.EventCommentCreate, RecipeID: recipeID, UserID: user.ID, CommentID: cm.ID})
	c.JSON(http.StatusCreated, cm)
}

func (h *Handler) show(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	cm, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.Logger.Error("get comment", "comment_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if cm == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, cm)
}

// adminShow also returns deleted comments, with the recipe title.
func (h *Handler) adminShow(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	cm, err := h.Repo.Lookup(c.Request.Context(), id)
	if err != nil {
		h.Logger.Error("lookup comment", "comment_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if cm == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, cm)
}

func (h *Handler) adminUserComments(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	ctx := c.Request.Context()

	summary, err := h.Repo.UserSummary(ctx, userID)
	if err != nil {
		h.Logger.Error("user comment summary", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	if summary == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	q := ListQuery{
		UserID: userID,
		Limit:  parseInt(c.Query("limit"), 20),
		Offset: parseInt(c.Query("offset"), 0),
	}
	items, total, err := h.Repo.List(ctx, q)
	if err != nil {
		h.Logger.Error("list user comments", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":     total,
		"limit":     q.Limit,
		"offset":    q.Offset,
		"items":     items,
		"user_info": summary,
	})
}

func (h *Handler) listByRecipe(c *gin.Context) {
	recipeID, ok := parseID(c)
	if !ok {
		return
	}
	h.respondList(c, ListQuery{RecipeID: recipeID})
}

func (h *Handler) listMine(c *gin.Context) {
	h.respondList(c, ListQuery{UserID: auth.MustGetUser(c).ID})
}

func (h *Handler) adminList(c *gin.Context) {
	q := ListQuery{Keyword: c.Query("keyword")}
	if id, err := strconv.ParseInt(c.Query("recipe_id"), 10, 64); err == nil {
		q.RecipeID = id
	}
	h.respondList(c, q)
}

func (h *Handler) respondList(c *gin.Context, q ListQuery) {
	q.Limit = parseInt(c.Query("limit"), 20)
	q.Offset = parseInt(c.Query("offset"), 0)

	items, total, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		h.Logger.Error("list comments", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  items,
	})
}

// delete serves both the owner route and the admin route; AdminOnly has
// already run on the latter.
func (h *Handler) delete(c *gin.Context) {
	user := auth.MustGetUser(c)
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	cm, err := h.Repo.GetByID(ctx, id)
	if err != nil {
		h.Logger.Error("get comment", "comment_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if cm == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if cm.UserID != user.ID && !user.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your comment"})
		return
	}

	found, err := h.Repo.SoftDelete(ctx, id)
	if err != nil {
		h.Logger.Error("delete comment", "comment_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.publish(live.Event{Type: live.EventCommentDelete, RecipeID: cm.RecipeID, UserID: user.ID, CommentID: id})
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type bulkReq struct {
	IDs []int64 `json:"ids"`
}

func (h *Handler) bulkDelete(c *gin.Context) {
	var req bulkReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(req.IDs) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "ids required"})
		return
	}

	n, err := h.Repo.BulkSoftDelete(c.Request.Context(), req.IDs)
	if err != nil {
		h.Logger.Error("bulk delete comments", "count", len(req.IDs), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "bulk delete failed"})
		return
	}
	h.Logger.Info("comments bulk deleted", "requested", len(req.IDs), "deleted", n)
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (h *Handler) publish(e live.Event) {
	if h.Events != nil {
		go h.Events.Publish(e)
	}
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
