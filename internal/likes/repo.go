package likes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"recipehub/pkg/models"
)

var ErrRecipeNotFound = errors.New("recipe not found")

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Toggle flips the user's like on a published recipe and refreshes the
// recipe's likes_count from the like rows in the same transaction.
func (r *Repo) Toggle(ctx context.Context, userID, recipeID int64) (liked bool, count int, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("begin toggle like: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = requireRecipe(ctx, tx, recipeID, true); err != nil {
		return false, 0, err
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM recipe_likes WHERE user_id = ? AND recipe_id = ?
	`, userID, recipeID)
	if err != nil {
		return false, 0, fmt.Errorf("unlike: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, 0, fmt.Errorf("unlike rows: %w", err)
	}
	if removed == 0 {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO recipe_likes (user_id, recipe_id) VALUES (?, ?)
		`, userID, recipeID); err != nil {
			return false, 0, fmt.Errorf("like: %w", err)
		}
		liked = true
	}

	if count, err = refreshCount(ctx, tx, recipeID); err != nil {
		return false, 0, err
	}

	if err = tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("commit toggle like: %w", err)
	}
	return liked, count, nil
}

// Like records the user's like of a published recipe. Liking twice is not an
// error; created reports whether a row was written.
func (r *Repo) Like(ctx context.Context, userID, recipeID int64) (created bool, count int, err error) {
	err = r.inTx(ctx, "like", func(tx *sql.Tx) error {
		if err := requireRecipe(ctx, tx, recipeID, true); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO recipe_likes (user_id, recipe_id) VALUES (?, ?)
		`, userID, recipeID)
		if err != nil {
			return fmt.Errorf("insert like: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("like rows: %w", err)
		}
		created = n > 0
		count, err = refreshCount(ctx, tx, recipeID)
		return err
	})
	return created, count, err
}

// Unlike removes the user's like on a recipe, if any. Unpublished recipes can
// still be unliked.
func (r *Repo) Unlike(ctx context.Context, userID, recipeID int64) (removed bool, count int, err error) {
	err = r.inTx(ctx, "unlike", func(tx *sql.Tx) error {
		if err := requireRecipe(ctx, tx, recipeID, false); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			DELETE FROM recipe_likes WHERE user_id = ? AND recipe_id = ?
		`, userID, recipeID)
		if err != nil {
			return fmt.Errorf("delete like: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("unlike rows: %w", err)
		}
		removed = n > 0
		count, err = refreshCount(ctx, tx, recipeID)
		return err
	})
	return removed, count, err
}

// GetByID returns (nil, nil) when the like does not exist.
func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Like, error) {
	var l models.Like
	err := r.DB.QueryRowContext(ctx, `
		SELECT l.id, l.user_id, u.name, l.recipe_id, l.created_at
		FROM recipe_likes l
		JOIN users u ON u.id = l.user_id
		WHERE l.id = ?
	`, id).Scan(&l.ID, &l.UserID, &l.UserName, &l.RecipeID, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get like: %w", err)
	}
	return &l, nil
}

// Delete removes like l and returns its recipe's refreshed likes_count.
func (r *Repo) Delete(ctx context.Context, l *models.Like) (count int, err error) {
	err = r.inTx(ctx, "delete like", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_likes WHERE id = ?`, l.ID); err != nil {
			return fmt.Errorf("delete like: %w", err)
		}
		count, err = refreshCount(ctx, tx, l.RecipeID)
		return err
	})
	return count, err
}

func (r *Repo) inTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", op, err)
	}
	return nil
}

func requireRecipe(ctx context.Context, tx *sql.Tx, recipeID int64, published bool) error {
	q := `SELECT COUNT(*) FROM recipes WHERE id = ? AND deleted_at IS NULL`
	if published {
		q += ` AND is_published = 1`
	}
	var n int
	if err := tx.QueryRowContext(ctx, q, recipeID).Scan(&n); err != nil {
		return fmt.Errorf("check recipe: %w", err)
	}
	if n == 0 {
		return ErrRecipeNotFound
	}
	return nil
}

// refreshCount recomputes the denormalized likes_count from the like rows.
func refreshCount(ctx context.Context, tx *sql.Tx, recipeID int64) (int, error) {
	if _, err := tx.ExecContext(ctx, `
		UPDATE recipes
		SET likes_count = (SELECT COUNT(*) FROM recipe_likes WHERE recipe_id = ?)
		WHERE id = ?
	`, recipeID, recipeID); err != nil {
		return 0, fmt.Errorf("refresh likes_count: %w", err)
	}
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT likes_count FROM recipes WHERE id = ?`, recipeID).Scan(&count); err != nil {
		return 0, fmt.Errorf("read likes_count: %w", err)
	}
	return count, nil
}

func (r *Repo) ListByRecipe(ctx context.Context, recipeID int64, limit, offset int) ([]models.Like, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM recipe_likes WHERE recipe_id = ?
	`, recipeID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count likes: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT l.id, l.user_id, u.name, l.recipe_id, l.created_at
		FROM recipe_likes l
		JOIN users u ON u.id = l.user_id
		WHERE l.recipe_id = ?
		ORDER BY l.created_at DESC, l.id DESC
		LIMIT ? OFFSET ?
	`, recipeID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list likes: %w", err)
	}
	defer rows.Close()

	out := make([]models.Like, 0, limit)
	for rows.Next() {
		var l models.Like
		if err := rows.Scan(&l.ID, &l.UserID, &l.UserName, &l.RecipeID, &l.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan like: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}
	return out, total, nil
}

// LikedSet reports which of recipeIDs userID has liked.
func (r *Repo) LikedSet(ctx context.Context, userID int64, recipeIDs []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(recipeIDs))
	if len(recipeIDs) == 0 {
		return out, nil
	}

	marks := strings.TrimSuffix(strings.Repeat("?,", len(recipeIDs)), ",")
	args := make([]any, 0, len(recipeIDs)+1)
	args = append(args, userID)
	for _, id := range recipeIDs {
		args = append(args, id)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT recipe_id FROM recipe_likes
		WHERE user_id = ? AND recipe_id IN (`+marks+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("liked set: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan liked set: %w", err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

type RecipeLikes struct {
	RecipeID   int64  `json:"recipe_id"`
	Title      string `json:"title"`
	LikesCount int    `json:"likes_count"`
}

type Stats struct {
	TotalLikes  int           `json:"total_likes"`
	LikedToday  int           `json:"liked_today"`
	TopRecipes  []RecipeLikes `json:"top_recipes"`
	RecentLikes []models.Like `json:"recent_likes"`
}

// Stats summarizes likes for the admin dashboard.
func (r *Repo) Stats(ctx context.Context, top int) (Stats, error) {
	if top <= 0 || top > 50 {
		top = 10
	}
	var s Stats

	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN date(created_at) = date('now') THEN 1 ELSE 0 END), 0)
		FROM recipe_likes
	`).Scan(&s.TotalLikes, &s.LikedToday); err != nil {
		return Stats{}, fmt.Errorf("count likes: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, title, likes_count
		FROM recipes
		WHERE deleted_at IS NULL AND likes_count > 0
		ORDER BY likes_count DESC, id ASC
		LIMIT ?
	`, top)
	if err != nil {
		return Stats{}, fmt.Errorf("top recipes: %w", err)
	}
	defer rows.Close()

	s.TopRecipes = make([]RecipeLikes, 0, top)
	for rows.Next() {
		var rl RecipeLikes
		if err := rows.Scan(&rl.RecipeID, &rl.Title, &rl.LikesCount); err != nil {
			return Stats{}, fmt.Errorf("scan top recipe: %w", err)
		}
		s.TopRecipes = append(s.TopRecipes, rl)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("rows err: %w", err)
	}

	recent, err := r.DB.QueryContext(ctx, `
		SELECT l.id, l.user_id, u.name, l.recipe_id, l.created_at
		FROM recipe_likes l
		JOIN users u ON u.id = l.user_id
		ORDER BY l.created_at DESC, l.id DESC
		LIMIT ?
	`, top)
	if err != nil {
		return Stats{}, fmt.Errorf("recent likes: %w", err)
	}
	defer recent.Close()

	s.RecentLikes = make([]models.Like, 0, top)
	for recent.Next() {
		var l models.Like
		if err := recent.Scan(&l.ID, &l.UserID, &l.UserName, &l.RecipeID, &l.CreatedAt); err != nil {
			return Stats{}, fmt.Errorf("scan recent like: %w", err)
		}
		s.RecentLikes = append(s.RecentLikes, l)
	}
	if err := recent.Err(); err != nil {
		return Stats{}, fmt.Errorf("rows err: %w", err)
	}
	return s, nil
}
