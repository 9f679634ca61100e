package live

import "time"

const (
	EventRecipeLike    = "recipe.like"
	EventCommentCreate = "comment.create"
	EventCommentDelete = "comment.delete"
)

// Event is pushed to every connected client.
type Event struct {
	Type       string    `json:"type"`
	RecipeID   int64     `json:"recipe_id"`
	UserID     int64     `json:"user_id,omitempty"`
	CommentID  int64     `json:"comment_id,omitempty"`
	Liked      *bool     `json:"liked,omitempty"`
	LikesCount *int      `json:"likes_count,omitempty"`
	At         time.Time `json:"at"`
}
