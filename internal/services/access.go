package services

import (
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// Access control is expressed as gorm scopes so every task query goes through
// the same predicate instead of re-deriving the filter per call site.
//
// The read/write asymmetry is deliberate: an assignee can see a task and move
// its status, but only the creator can edit, reassign, or delete it. Any
// operation outside the caller's capability surfaces as not-found so callers
// cannot distinguish "absent" from "not yours".

// TaskReadScope limits a task query to rows the caller may see: tasks they
// created or tasks assigned to them.
func TaskReadScope(callerID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("created_by = ? OR assigned_to = ?", callerID, callerID)
	}
}

// TaskOwnerScope limits a task query to rows the caller created. Used by
// update, delete, and assign.
func TaskOwnerScope(callerID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("created_by = ?", callerID)
	}
}

// CategoryOwnerScope limits a category query to the caller's own rows.
// Categories are never shared.
func CategoryOwnerScope(callerID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("owner_id = ?", callerID)
	}
}
