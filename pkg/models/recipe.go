package models

import (
	"time"

	"gorm.io/gorm"
)

// Servings categories accepted for a recipe.
var Servings = []string{"1人分", "2人分", "3人分", "4人分", "5人分以上"}

func ValidServings(s string) bool {
	for _, v := range Servings {
		if v == s {
			return true
		}
	}
	return false
}

type Recipe struct {
	ID           int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Title        string `json:"title" gorm:"not null"`
	Genre        string `json:"genre"`
	Servings     string `json:"servings" gorm:"not null"`
	Ingredients  string `json:"ingredients" gorm:"not null"`
	Instructions string `json:"instructions" gorm:"not null"`
	ImageURL     string `json:"image_url"`
	AdminID      int64  `json:"admin_id" gorm:"not null;index"`
	IsPublished  bool   `json:"is_published"`
	ViewsCount   int    `json:"views_count"`
	LikesCount   int    `json:"likes_count"`

	// SearchReading is derived on every save (reading form + raw text).
	// Never set it directly.
	SearchReading *string `json:"-" gorm:"column:search_reading"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	Admin *User `json:"admin,omitempty" gorm:"foreignKey:AdminID"`
}

func (Recipe) TableName() string {
	return "recipes"
}
