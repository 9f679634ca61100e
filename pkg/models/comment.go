package models

import "time"

type Comment struct {
	ID       int64  `json:"id"`
	RecipeID int64  `json:"recipe_id"`
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
	// RecipeTitle is only filled by admin lookups.
	RecipeTitle string     `json:"recipe_title,omitempty"`
	Content     string     `json:"content"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}
