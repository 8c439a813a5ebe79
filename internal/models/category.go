package models

import (
	"regexp"
	"time"

	"github.com/gofrs/uuid"
)

// DefaultCategoryColor is applied when a category is created without one.
const DefaultCategoryColor = "#6366f1"

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type Category struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	Name        string    `json:"name" gorm:"not null;uniqueIndex:idx_categories_owner_name"`
	Description string    `json:"description"`
	Color       string    `json:"color" gorm:"not null;default:'#6366f1'"`
	OwnerID     uuid.UUID `json:"owner_id" gorm:"type:uuid;not null;uniqueIndex:idx_categories_owner_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func IsValidHexColor(c string) bool {
	return hexColorPattern.MatchString(c)
}
