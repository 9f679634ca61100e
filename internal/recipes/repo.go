package recipes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"recipehub/internal/search"
	"recipehub/pkg/models"
)

const (
	DefaultPerPage = 9
	MaxPerPage     = 100
)

type Repo struct {
	DB      *gorm.DB
	Matcher *search.Matcher
}

func NewRepo(db *gorm.DB, m *search.Matcher) *Repo {
	return &Repo{DB: db, Matcher: m}
}

type ListQuery struct {
	Keyword       string
	Genre         string
	PublishedOnly bool
	WithTrashed   bool
	// LikedBy limits results to recipes the user liked.
	LikedBy int64
	Page    int
	PerPage int
}

// Page is the paginated envelope returned by list endpoints.
type Page struct {
	CurrentPage int             `json:"current_page"`
	Data        []models.Recipe `json:"data"`
	LastPage    int             `json:"last_page"`
	PerPage     int             `json:"per_page"`
	Total       int64           `json:"total"`
}

func (q *ListQuery) normalize() {
	if q.PerPage <= 0 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	q.Genre = strings.TrimSpace(q.Genre)
}

// List returns one page of recipes, newest first. The keyword filter comes
// from the search matcher and is computed once for both the count and the
// page query.
func (r *Repo) List(ctx context.Context, q ListQuery) (Page, error) {
	q.normalize()

	var filter search.Filter
	if r.Matcher != nil {
		filter = r.Matcher.Filter(ctx, q.Keyword)
	}

	scoped := func() *gorm.DB {
		tx := r.DB.WithContext(ctx).Model(&models.Recipe{})
		if q.WithTrashed {
			tx = tx.Unscoped()
		}
		if q.PublishedOnly {
			tx = tx.Where("recipes.is_published = ?", true)
		}
		if q.Genre != "" {
			tx = tx.Where("recipes.genre = ?", q.Genre)
		}
		if q.LikedBy > 0 {
			tx = tx.Where("recipes.id IN (SELECT recipe_id FROM recipe_likes WHERE user_id = ?)", q.LikedBy)
		}
		return filter.Scope(tx)
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return Page{}, fmt.Errorf("count recipes: %w", err)
	}

	items := make([]models.Recipe, 0, q.PerPage)
	err := scoped().
		Preload("Admin").
		Order("recipes.created_at DESC").Order("recipes.id DESC").
		Limit(q.PerPage).Offset((q.Page - 1) * q.PerPage).
		Find(&items).Error
	if err != nil {
		return Page{}, fmt.Errorf("list recipes: %w", err)
	}

	last := int((total + int64(q.PerPage) - 1) / int64(q.PerPage))
	if last < 1 {
		last = 1
	}
	return Page{
		CurrentPage: q.Page,
		Data:        items,
		LastPage:    last,
		PerPage:     q.PerPage,
		Total:       total,
	}, nil
}

// Get returns the recipe or nil when it does not exist.
func (r *Repo) Get(ctx context.Context, id int64, withTrashed bool) (*models.Recipe, error) {
	tx := r.DB.WithContext(ctx).Preload("Admin")
	if withTrashed {
		tx = tx.Unscoped()
	}
	var rec models.Recipe
	if err := tx.First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	return &rec, nil
}

// Create inserts rec; search_reading is filled by the save hook.
func (r *Repo) Create(ctx context.Context, rec *models.Recipe) error {
	if err := r.DB.WithContext(ctx).Omit("Admin").Create(rec).Error; err != nil {
		return fmt.Errorf("create recipe: %w", err)
	}
	return nil
}

// Update saves every column of rec; search_reading is recomputed by the save
// hook.
func (r *Repo) Update(ctx context.Context, rec *models.Recipe) error {
	if err := r.DB.WithContext(ctx).Omit("Admin").Save(rec).Error; err != nil {
		return fmt.Errorf("update recipe: %w", err)
	}
	return nil
}

func (r *Repo) IncrementViews(ctx context.Context, id int64) error {
	err := r.DB.WithContext(ctx).Model(&models.Recipe{}).
		Where("id = ?", id).
		UpdateColumn("views_count", gorm.Expr("views_count + 1")).Error
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}

// SoftDelete reports false when no live recipe has id.
func (r *Repo) SoftDelete(ctx context.Context, id int64) (bool, error) {
	res := r.DB.WithContext(ctx).Delete(&models.Recipe{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("delete recipe: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Restore reports false when no trashed recipe has id.
func (r *Repo) Restore(ctx context.Context, id int64) (bool, error) {
	res := r.DB.WithContext(ctx).Unscoped().Model(&models.Recipe{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Update("deleted_at", nil)
	if res.Error != nil {
		return false, fmt.Errorf("restore recipe: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ForceDelete removes the recipe row along with its likes and comments.
func (r *Repo) ForceDelete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM recipe_likes WHERE recipe_id = ?`, id).Error; err != nil {
			return fmt.Errorf("delete likes: %w", err)
		}
		if err := tx.Exec(`DELETE FROM recipe_comments WHERE recipe_id = ?`, id).Error; err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		res := tx.Unscoped().Delete(&models.Recipe{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete recipe: %w", res.Error)
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("force delete recipe: %w", err)
	}
	return deleted, nil
}
