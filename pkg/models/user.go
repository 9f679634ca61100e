package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the local profile of an identity-provider account, keyed by the
// provider's subject (UID).
type User struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	UID       string    `json:"uid" gorm:"column:uid"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
