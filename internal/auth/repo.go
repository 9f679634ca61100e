package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"recipehub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const userColumns = `id, uid, name, email, role, COALESCE(avatar, ''), created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.UID, &u.Name, &u.Email, &u.Role, &u.Avatar, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) GetByUID(ctx context.Context, uid string) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE uid = ?
	`, strings.TrimSpace(uid))

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get by uid: %w", err)
	}
	return u, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = ?
	`, id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get by id: %w", err)
	}
	return u, nil
}

// Create inserts u and returns the stored row.
func (r *Repo) Create(ctx context.Context, u models.User) (*models.User, error) {
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	var avatar any
	if u.Avatar != "" {
		avatar = u.Avatar
	}

	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (uid, name, email, role, avatar)
		VALUES (?, ?, ?, ?, ?)
	`, u.UID, u.Name, u.Email, u.Role, avatar)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create user id: %w", err)
	}
	return r.GetByID(ctx, id)
}

// SetRole changes the role of the user with uid.
func (r *Repo) SetRole(ctx context.Context, uid, role string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET role = ?, updated_at = CURRENT_TIMESTAMP
		WHERE uid = ?
	`, role, uid)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set role rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("set role: user not found")
	}
	return nil
}

// UpdateProfile sets the user's name and, when avatar is non-nil, the avatar
// URL, then returns the stored row.
func (r *Repo) UpdateProfile(ctx context.Context, id int64, name string, avatar *string) (*models.User, error) {
	var err error
	if avatar != nil {
		_, err = r.DB.ExecContext(ctx, `
			UPDATE users
			SET name = ?, avatar = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, name, *avatar, id)
	} else {
		_, err = r.DB.ExecContext(ctx, `
			UPDATE users
			SET name = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, name, id)
	}
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return r.GetByID(ctx, id)
}

type ProfileStats struct {
	TotalLikes    int `json:"total_likes"`
	TotalComments int `json:"total_comments"`
	// Only reported for admins.
	TotalRecipes     *int `json:"total_recipes,omitempty"`
	PublishedRecipes *int `json:"published_recipes,omitempty"`
}

func (r *Repo) ProfileStats(ctx context.Context, u *models.User) (ProfileStats, error) {
	var s ProfileStats
	if err := r.DB.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM recipe_likes WHERE user_id = ?),
			(SELECT COUNT(*) FROM recipe_comments WHERE user_id = ? AND deleted_at IS NULL)
	`, u.ID, u.ID).Scan(&s.TotalLikes, &s.TotalComments); err != nil {
		return ProfileStats{}, fmt.Errorf("profile stats: %w", err)
	}
	if !u.IsAdmin() {
		return s, nil
	}

	var total, published int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_published = 1 THEN 1 ELSE 0 END), 0)
		FROM recipes
		WHERE admin_id = ? AND deleted_at IS NULL
	`, u.ID).Scan(&total, &published); err != nil {
		return ProfileStats{}, fmt.Errorf("admin recipe stats: %w", err)
	}
	s.TotalRecipes, s.PublishedRecipes = &total, &published
	return s, nil
}

const DeletedUserName = "削除されたユーザー"

// Anonymize closes a user account: its likes are removed (refreshing the
// affected likes_count values) and its identifying fields are overwritten so
// the provider UID can register again. Comments stay, under the anonymous
// name.
func (r *Repo) Anonymize(ctx context.Context, id int64, now time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin anonymize: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		UPDATE recipes
		SET likes_count = (
			SELECT COUNT(*) FROM recipe_likes l
			WHERE l.recipe_id = recipes.id AND l.user_id <> ?
		)
		WHERE id IN (SELECT recipe_id FROM recipe_likes WHERE user_id = ?)
	`, id, id); err != nil {
		return fmt.Errorf("refresh likes_count: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_likes WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("delete likes: %w", err)
	}

	stamp := now.Unix()
	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET name = ?, email = ?, avatar = NULL, uid = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, DeletedUserName,
		fmt.Sprintf("deleted_%d_%d@example.com", stamp, id),
		fmt.Sprintf("deleted_%d_%d", id, stamp),
		id)
	if err != nil {
		return fmt.Errorf("anonymize user: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("anonymize rows: %w", err)
	} else if n == 0 {
		return fmt.Errorf("anonymize: user not found")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit anonymize: %w", err)
	}
	return nil
}
