package auth

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"recipehub/pkg/models"
)

const MaxProfileNameRunes = 20

var (
	profileNameChars = regexp.MustCompile(`^[a-zA-Z0-9\p{Hiragana}\p{Katakana}\p{Han}_\-\s・、。！？()（）ー]+$`)
	repeatedSpace    = regexp.MustCompile(`\s{2,}`)
)

type profileView struct {
	*models.User
	Stats ProfileStats `json:"stats"`
}

type updateProfileReq struct {
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

// validateProfileName returns the trimmed name or a message for the client.
func validateProfileName(name string) (string, string) {
	name = strings.TrimSpace(name)
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		return "", "name required"
	case n > MaxProfileNameRunes:
		return "", "name must be at most 20 characters"
	}
	if !profileNameChars.MatchString(name) {
		return "", "name contains characters that are not allowed"
	}
	if repeatedSpace.MatchString(name) {
		return "", "name must not contain consecutive spaces"
	}
	return name, ""
}

// validateAvatarURL accepts absolute http(s) URLs whose host is one of
// allowed (or a subdomain of one). An empty allow list accepts any host.
func validateAvatarURL(raw string, allowed []string) string {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return "avatar_url must be an http(s) URL"
	}
	if len(allowed) == 0 {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range allowed {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" && (host == h || strings.HasSuffix(host, "."+h)) {
			return ""
		}
	}
	return "avatar_url host is not allowed"
}

func (h *Handler) respondProfile(c *gin.Context, status int, u *models.User, extra gin.H) {
	stats, err := h.Repo.ProfileStats(c.Request.Context(), u)
	if err != nil {
		h.Logger.Error("profile stats", "user_id", u.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load profile failed"})
		return
	}
	body := gin.H{"user": profileView{User: u, Stats: stats}}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}

func (h *Handler) showProfile(c *gin.Context) {
	h.respondProfile(c, http.StatusOK, MustGetUser(c), nil)
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req updateProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name, msg := validateProfileName(req.Name)
	if msg != "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": msg, "field": "name"})
		return
	}

	var avatar *string
	if req.AvatarURL != nil && strings.TrimSpace(*req.AvatarURL) != "" {
		v := strings.TrimSpace(*req.AvatarURL)
		if msg := validateAvatarURL(v, h.AvatarHosts); msg != "" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": msg, "field": "avatar_url"})
			return
		}
		avatar = &v
	}

	user := MustGetUser(c)
	u, err := h.Repo.UpdateProfile(c.Request.Context(), user.ID, name, avatar)
	if err != nil || u == nil {
		h.Logger.Error("update profile", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update profile failed"})
		return
	}
	h.Logger.Info("profile updated", "user_id", u.ID, "avatar_changed", avatar != nil)
	h.respondProfile(c, http.StatusOK, u, gin.H{"status": "updated"})
}

// deleteProfile anonymizes the caller's account. Admin accounts cannot be
// deleted this way.
func (h *Handler) deleteProfile(c *gin.Context) {
	user := MustGetUser(c)
	if user.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin accounts cannot be deleted"})
		return
	}
	if err := h.Repo.Anonymize(c.Request.Context(), user.ID, time.Now()); err != nil {
		h.Logger.Error("delete account", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete account failed"})
		return
	}
	h.Logger.Info("user account deleted", "user_id", user.ID)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
