package recipes

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"recipehub/internal/auth"
	"recipehub/pkg/models"
)

// LikeLookup reports which of recipeIDs the user has liked.
type LikeLookup interface {
	LikedSet(ctx context.Context, userID int64, recipeIDs []int64) (map[int64]bool, error)
}

type Handler struct {
	Repo   *Repo
	Likes  LikeLookup
	Logger *slog.Logger
}

func NewHandler(repo *Repo, likes LikeLookup, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Repo: repo, Likes: likes, Logger: logger}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/recipes", h.list)
	rg.GET("/recipes/search", h.search)
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.GET("/recipes/:id", h.show)
	rg.GET("/user/recipes", h.userRecipes)
	rg.GET("/user/liked-recipes", h.likedRecipes)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/recipes", h.adminList)
	rg.POST("/recipes", h.create)
	rg.GET("/recipes/:id", h.adminShow)
	rg.PUT("/recipes/:id", h.update)
	rg.DELETE("/recipes/:id", h.delete)
	rg.POST("/recipes/:id/restore", h.restore)
	rg.DELETE("/recipes/:id/permanent-delete", h.forceDelete)
}

// recipeView adds the caller's like state to a recipe.
type recipeView struct {
	models.Recipe
	IsLiked bool `json:"is_liked"`
}

type viewPage struct {
	CurrentPage int          `json:"current_page"`
	Data        []recipeView `json:"data"`
	LastPage    int          `json:"last_page"`
	PerPage     int          `json:"per_page"`
	Total       int64        `json:"total"`
}

func listQueryFrom(c *gin.Context) ListQuery {
	keyword := c.Query("keyword")
	if keyword == "" {
		keyword = c.Query("q")
	}
	return ListQuery{
		Keyword: keyword,
		Genre:   c.Query("genre"),
		Page:    parseInt(c.Query("page"), 1),
		PerPage: parseInt(c.Query("per_page"), DefaultPerPage),
	}
}

func (h *Handler) list(c *gin.Context) {
	q := listQueryFrom(c)
	q.Genre = ""
	q.PerPage = DefaultPerPage
	q.PublishedOnly = true
	h.respondPage(c, q)
}

func (h *Handler) search(c *gin.Context) {
	q := listQueryFrom(c)
	q.PublishedOnly = true
	h.respondPage(c, q)
}

func (h *Handler) adminList(c *gin.Context) {
	q := listQueryFrom(c)
	q.WithTrashed = true
	h.respondPage(c, q)
}

func (h *Handler) respondPage(c *gin.Context, q ListQuery) {
	page, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		h.Logger.Error("list recipes", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) userRecipes(c *gin.Context) {
	q := listQueryFrom(c)
	q.PublishedOnly = true
	h.respondViews(c, q)
}

func (h *Handler) likedRecipes(c *gin.Context) {
	q := listQueryFrom(c)
	q.PublishedOnly = true
	q.LikedBy = auth.MustGetUser(c).ID
	h.respondViews(c, q)
}

func (h *Handler) respondViews(c *gin.Context, q ListQuery) {
	ctx := c.Request.Context()
	user := auth.MustGetUser(c)

	page, err := h.Repo.List(ctx, q)
	if err != nil {
		h.Logger.Error("list user recipes", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	ids := make([]int64, 0, len(page.Data))
	for _, r := range page.Data {
		ids = append(ids, r.ID)
	}
	liked, err := h.likedSet(ctx, user.ID, ids)
	if err != nil {
		h.Logger.Error("load liked set", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	views := make([]recipeView, 0, len(page.Data))
	for _, r := range page.Data {
		views = append(views, recipeView{Recipe: r, IsLiked: liked[r.ID]})
	}
	c.JSON(http.StatusOK, viewPage{
		CurrentPage: page.CurrentPage,
		Data:        views,
		LastPage:    page.LastPage,
		PerPage:     page.PerPage,
		Total:       page.Total,
	})
}

func (h *Handler) likedSet(ctx context.Context, userID int64, ids []int64) (map[int64]bool, error) {
	if h.Likes == nil || len(ids) == 0 {
		return map[int64]bool{}, nil
	}
	return h.Likes.LikedSet(ctx, userID, ids)
}

func (h *Handler) show(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	user := auth.MustGetUser(c)

	rec, err := h.Repo.Get(ctx, id, false)
	if err != nil {
		h.Logger.Error("get recipe", "recipe_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if rec == nil || (!rec.IsPublished && !user.IsAdmin()) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if !user.IsAdmin() {
		if err := h.Repo.IncrementViews(ctx, id); err != nil {
			h.Logger.Warn("increment views", "recipe_id", id, "error", err)
		} else {
			rec.ViewsCount++
		}
	}

	liked, err := h.likedSet(ctx, user.ID, []int64{id})
	if err != nil {
		h.Logger.Error("load liked set", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	c.JSON(http.StatusOK, recipeView{Recipe: *rec, IsLiked: liked[id]})
}

func (h *Handler) adminShow(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rec, err := h.Repo.Get(c.Request.Context(), id, true)
	if err != nil {
		h.Logger.Error("get recipe", "recipe_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

type recipeReq struct {
	Title        string `json:"title"`
	Genre        string `json:"genre"`
	Servings     string `json:"servings"`
	Ingredients  string `json:"ingredients"`
	Instructions string `json:"instructions"`
	ImageURL     string `json:"image_url"`
	IsPublished  *bool  `json:"is_published"`
}

func (r *recipeReq) validate() string {
	r.Title = strings.TrimSpace(r.Title)
	r.Genre = strings.TrimSpace(r.Genre)
	r.Servings = strings.TrimSpace(r.Servings)
	r.ImageURL = strings.TrimSpace(r.ImageURL)

	switch {
	case r.Title == "":
		return "title required"
	case utf8.RuneCountInString(r.Title) > 255:
		return "title must be at most 255 characters"
	case utf8.RuneCountInString(r.Genre) > 100:
		return "genre must be at most 100 characters"
	case !models.ValidServings(r.Servings):
		return "servings must be one of " + strings.Join(models.Servings, ", ")
	case strings.TrimSpace(r.Ingredients) == "":
		return "ingredients required"
	case strings.TrimSpace(r.Instructions) == "":
		return "instructions required"
	}
	return ""
}

func (r recipeReq) applyTo(rec *models.Recipe) {
	rec.Title = r.Title
	rec.Genre = r.Genre
	rec.Servings = r.Servings
	rec.Ingredients = r.Ingredients
	rec.Instructions = r.Instructions
	rec.ImageURL = r.ImageURL
	if r.IsPublished != nil {
		rec.IsPublished = *r.IsPublished
	}
}

func bindRecipe(c *gin.Context) (recipeReq, bool) {
	var req recipeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return req, false
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": msg})
		return req, false
	}
	return req, true
}

func (h *Handler) create(c *gin.Context) {
	req, ok := bindRecipe(c)
	if !ok {
		return
	}

	rec := models.Recipe{AdminID: auth.MustGetUser(c).ID, IsPublished: true}
	req.applyTo(&rec)

	if err := h.Repo.Create(c.Request.Context(), &rec); err != nil {
		h.Logger.Error("create recipe", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	h.Logger.Info("recipe created", "recipe_id", rec.ID, "admin_id", rec.AdminID)
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	req, ok := bindRecipe(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	rec, err := h.Repo.Get(ctx, id, false)
	if err != nil {
		h.Logger.Error("get recipe", "recipe_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	req.applyTo(rec)
	if err := h.Repo.Update(ctx, rec); err != nil {
		h.Logger.Error("update recipe", "recipe_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) delete(c *gin.Context) {
	h.mutate(c, "delete", h.Repo.SoftDelete, "deleted")
}

func (h *Handler) restore(c *gin.Context) {
	h.mutate(c, "restore", h.Repo.Restore, "restored")
}

func (h *Handler) forceDelete(c *gin.Context) {
	h.mutate(c, "permanent delete", h.Repo.ForceDelete, "permanently deleted")
}

func (h *Handler) mutate(c *gin.Context, op string, fn func(context.Context, int64) (bool, error), status string) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	found, err := fn(c.Request.Context(), id)
	if err != nil {
		h.Logger.Error(op+" recipe", "recipe_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	h.Logger.Info("recipe "+status, "recipe_id", id)
	c.JSON(http.StatusOK, gin.H{"status": status})
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
