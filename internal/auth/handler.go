package auth

import (
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"recipehub/pkg/models"
)

type Handler struct {
	Repo   *Repo
	Tokens TokenService
	// AdminCodeHash is the bcrypt hash of the admin registration code. Empty
	// disables admin registration.
	AdminCodeHash string
	// AvatarHosts limits profile avatar URLs; empty allows any host.
	AvatarHosts []string
	Logger      *slog.Logger
}

func NewHandler(repo *Repo, tokens TokenService, adminCodeHash string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Repo: repo, Tokens: tokens, AdminCodeHash: adminCodeHash, Logger: logger}
}

// RegisterRoutes mounts /auth/*, /user/profile and the /admin account
// routes on rg.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	authed := Middleware(h.Tokens, h.Repo)

	a := rg.Group("/auth")
	a.POST("/register", RequireToken(h.Tokens), h.register)
	a.GET("/check", authed, h.check)
	a.POST("/logout", authed, h.logout)

	p := rg.Group("/user/profile", authed)
	p.GET("", h.showProfile)
	p.PUT("", h.updateProfile)
	p.DELETE("", h.deleteProfile)

	rg.POST("/admin/register", RequireToken(h.Tokens), h.registerAdmin)
	rg.GET("/admin/check", authed, AdminOnly(), h.check)
	rg.POST("/admin/logout", authed, AdminOnly(), h.logoutAdmin)
}

type registerReq struct {
	Name string `json:"name"`
}

// profileFrom fills a new user from the token, letting the request override
// the display name.
func profileFrom(claims *Claims, name string) (models.User, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimSpace(claims.Name)
	}
	if name == "" {
		return models.User{}, "name required"
	}
	if utf8.RuneCountInString(name) > 255 {
		return models.User{}, "name must be at most 255 characters"
	}
	return models.User{
		UID:    claims.UID(),
		Name:   name,
		Email:  strings.TrimSpace(strings.ToLower(claims.Email)),
		Avatar: claims.Picture,
	}, ""
}

func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}

	claims := MustGetClaims(c)
	ctx := c.Request.Context()

	if u, err := h.Repo.GetByUID(ctx, claims.UID()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load user failed"})
		return
	} else if u != nil {
		c.JSON(http.StatusOK, gin.H{"user": u})
		return
	}

	profile, msg := profileFrom(claims, req.Name)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	u, err := h.Repo.Create(ctx, profile)
	if err != nil {
		h.Logger.Error("register user", "uid", profile.UID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
		return
	}
	h.Logger.Info("user registered", "user_id", u.ID)
	c.JSON(http.StatusCreated, gin.H{"user": u})
}

func (h *Handler) check(c *gin.Context) {
	u := MustGetUser(c)
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"is_admin":      u.IsAdmin(),
		"user":          u,
	})
}

// logout has nothing to revoke locally; sessions live with the identity
// provider. It still requires a valid token so clients get a 401 when theirs
// has expired.
func (h *Handler) logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *Handler) logoutAdmin(c *gin.Context) {
	h.Logger.Info("admin logged out", "user_id", MustGetUser(c).ID)
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

type registerAdminReq struct {
	Name      string `json:"name"`
	AdminCode string `json:"admin_code"`
}

func (h *Handler) registerAdmin(c *gin.Context) {
	var req registerAdminReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if h.AdminCodeHash == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin registration disabled"})
		return
	}
	if req.AdminCode == "" ||
		bcrypt.CompareHashAndPassword([]byte(h.AdminCodeHash), []byte(req.AdminCode)) != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid admin code"})
		return
	}

	claims := MustGetClaims(c)
	ctx := c.Request.Context()

	existing, err := h.Repo.GetByUID(ctx, claims.UID())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load user failed"})
		return
	}
	if existing != nil {
		if !existing.IsAdmin() {
			if err := h.Repo.SetRole(ctx, existing.UID, models.RoleAdmin); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "promote failed"})
				return
			}
			existing.Role = models.RoleAdmin
			h.Logger.Info("user promoted to admin", "user_id", existing.ID)
		}
		c.JSON(http.StatusOK, gin.H{"user": existing})
		return
	}

	profile, msg := profileFrom(claims, req.Name)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	profile.Role = models.RoleAdmin

	u, err := h.Repo.Create(ctx, profile)
	if err != nil {
		h.Logger.Error("register admin", "uid", profile.UID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
		return
	}
	h.Logger.Info("admin registered", "user_id", u.ID)
	c.JSON(http.StatusCreated, gin.H{"user": u})
}
