package comments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"recipehub/internal/search"
	"recipehub/pkg/models"
)

var ErrRecipeNotFound = errors.New("recipe not found")

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const selectComment = `
	SELECT c.id, c.recipe_id, c.user_id, u.name, c.content, c.created_at, c.updated_at, c.deleted_at
	FROM recipe_comments c
	JOIN users u ON u.id = c.user_id
`

func scanComment(row interface{ Scan(...any) error }) (*models.Comment, error) {
	var (
		c       models.Comment
		deleted sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.RecipeID, &c.UserID, &c.UserName, &c.Content, &c.CreatedAt, &c.UpdatedAt, &deleted); err != nil {
		return nil, err
	}
	if deleted.Valid {
		c.DeletedAt = &deleted.Time
	}
	return &c, nil
}

func (r *Repo) Create(ctx context.Context, userID, recipeID int64, content string) (*models.Comment, error) {
	var exists int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM recipes
		WHERE id = ? AND is_published = 1 AND deleted_at IS NULL
	`, recipeID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check recipe: %w", err)
	}
	if exists == 0 {
		return nil, ErrRecipeNotFound
	}

	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO recipe_comments (content, user_id, recipe_id)
		VALUES (?, ?, ?)
	`, content, userID, recipeID)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return r.GetByID(ctx, id)
}

// GetByID returns a live comment or nil.
func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	row := r.DB.QueryRowContext(ctx, selectComment+`WHERE c.id = ? AND c.deleted_at IS NULL`, id)
	c, err := scanComment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

// Lookup returns the comment with its recipe title whether or not it was
// deleted, or nil.
func (r *Repo) Lookup(ctx context.Context, id int64) (*models.Comment, error) {
	var (
		c       models.Comment
		deleted sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT c.id, c.recipe_id, c.user_id, u.name, c.content, c.created_at, c.updated_at, c.deleted_at,
		       COALESCE(r.title, '')
		FROM recipe_comments c
		JOIN users u ON u.id = c.user_id
		LEFT JOIN recipes r ON r.id = c.recipe_id
		WHERE c.id = ?
	`, id).Scan(&c.ID, &c.RecipeID, &c.UserID, &c.UserName, &c.Content, &c.CreatedAt, &c.UpdatedAt, &deleted, &c.RecipeTitle)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup comment: %w", err)
	}
	if deleted.Valid {
		c.DeletedAt = &deleted.Time
	}
	return &c, nil
}

type UserSummary struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	TotalComments     int        `json:"total_comments"`
	ThisMonthComments int        `json:"this_month_comments"`
	FirstCommentAt    *time.Time `json:"first_comment_date"`
	LastCommentAt     *time.Time `json:"last_comment_date"`
}

// UserSummary describes a user's live comments, or returns nil when the user
// does not exist.
func (r *Repo) UserSummary(ctx context.Context, userID int64) (*UserSummary, error) {
	s := UserSummary{ID: userID}
	err := r.DB.QueryRowContext(ctx, `SELECT name, email FROM users WHERE id = ?`, userID).Scan(&s.Name, &s.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN strftime('%Y-%m', created_at) = strftime('%Y-%m', 'now') THEN 1 ELSE 0 END), 0)
		FROM recipe_comments
		WHERE user_id = ? AND deleted_at IS NULL
	`, userID).Scan(&s.TotalComments, &s.ThisMonthComments); err != nil {
		return nil, fmt.Errorf("count user comments: %w", err)
	}
	if s.TotalComments == 0 {
		return &s, nil
	}

	edge := func(order string) (*time.Time, error) {
		var t time.Time
		err := r.DB.QueryRowContext(ctx, `
			SELECT created_at FROM recipe_comments
			WHERE user_id = ? AND deleted_at IS NULL
			ORDER BY created_at `+order+`, id `+order+`
			LIMIT 1
		`, userID).Scan(&t)
		if err != nil {
			return nil, fmt.Errorf("user comment dates: %w", err)
		}
		return &t, nil
	}
	if s.FirstCommentAt, err = edge("ASC"); err != nil {
		return nil, err
	}
	if s.LastCommentAt, err = edge("DESC"); err != nil {
		return nil, err
	}
	return &s, nil
}

type ListQuery struct {
	RecipeID int64
	UserID   int64
	// Keyword filters on comment content, user name and recipe title.
	Keyword string
	Limit   int
	Offset  int
}

func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	base := selectComment
	if countOnly {
		base = `SELECT COUNT(*) FROM recipe_comments c JOIN users u ON u.id = c.user_id`
	}
	base += ` LEFT JOIN recipes r ON r.id = c.recipe_id`

	where := []string{"c.deleted_at IS NULL"}
	var args []any

	if q.RecipeID > 0 {
		where = append(where, "c.recipe_id = ?")
		args = append(args, q.RecipeID)
	}
	if q.UserID > 0 {
		where = append(where, "c.user_id = ?")
		args = append(args, q.UserID)
	}
	for _, tok := range search.Tokenize(q.Keyword) {
		where = append(where, `(c.content LIKE ? ESCAPE '\' OR u.name LIKE ? ESCAPE '\' OR r.title LIKE ? ESCAPE '\')`)
		p := search.LikePattern(tok)
		args = append(args, p, p, p)
	}

	sqlStr := base + " WHERE " + strings.Join(where, " AND ")
	if !countOnly {
		sqlStr += " ORDER BY c.created_at DESC, c.id DESC LIMIT ? OFFSET ?"
		limit := q.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	}
	return sqlStr, args
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Comment, int, error) {
	countSQL, countArgs := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}

	listSQL, args := buildListSQL(q, false)
	rows, err := r.DB.QueryContext(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	out := make([]models.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}
	return out, total, nil
}

// SoftDelete reports false when no live comment has id.
func (r *Repo) SoftDelete(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE recipe_comments
		SET deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND deleted_at IS NULL
	`, id)
	if err != nil {
		return false, fmt.Errorf("delete comment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete comment rows: %w", err)
	}
	return n > 0, nil
}

// BulkSoftDelete returns how many live comments were deleted.
func (r *Repo) BulkSoftDelete(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE recipe_comments
		SET deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE deleted_at IS NULL AND id IN (`+marks+`)
	`, args...)
	if err != nil {
		return 0, fmt.Errorf("bulk delete comments: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bulk delete rows: %w", err)
	}
	return n, nil
}
