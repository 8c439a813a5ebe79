package services

import (
	"errors"
	"fmt"
	"strings"

	"tasktrack/backend/internal/apperrors"
	"tasktrack/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const MaxCategoryNameLength = 100

type CategoryCreateInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// CategoryUpdateInput is a partial patch; nil fields are left unchanged.
type CategoryUpdateInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
}

type CategoryService interface {
	ListCategories(db *gorm.DB, callerID uuid.UUID) ([]models.Category, error)
	GetCategory(db *gorm.DB, callerID, categoryID uuid.UUID) (*models.Category, error)
	CreateCategory(db *gorm.DB, callerID uuid.UUID, input CategoryCreateInput) (*models.Category, error)
	UpdateCategory(db *gorm.DB, callerID, categoryID uuid.UUID, input CategoryUpdateInput) (*models.Category, error)
	DeleteCategory(db *gorm.DB, callerID, categoryID uuid.UUID) error
	ListCategoryTasks(db *gorm.DB, callerID, categoryID uuid.UUID) ([]models.Task, error)
}

type CategoryServiceImpl struct{}

func NewCategoryService() *CategoryServiceImpl {
	return &CategoryServiceImpl{}
}

func (s *CategoryServiceImpl) ListCategories(db *gorm.DB, callerID uuid.UUID) ([]models.Category, error) {
	var categories []models.Category
	err := db.Scopes(CategoryOwnerScope(callerID)).
		Order("name asc").
		Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *CategoryServiceImpl) GetCategory(db *gorm.DB, callerID, categoryID uuid.UUID) (*models.Category, error) {
	var category models.Category
	err := db.Scopes(CategoryOwnerScope(callerID)).First(&category, "id = ?", categoryID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &category, nil
}

func (s *CategoryServiceImpl) CreateCategory(db *gorm.DB, callerID uuid.UUID, input CategoryCreateInput) (*models.Category, error) {
	name := strings.TrimSpace(input.Name)
	if len(name) < 1 || len(name) > MaxCategoryNameLength {
		return nil, apperrors.NewValidationError("name", fmt.Sprintf("must be between 1 and %d characters", MaxCategoryNameLength))
	}

	color := input.Color
	if color == "" {
		color = models.DefaultCategoryColor
	}
	if !models.IsValidHexColor(color) {
		return nil, apperrors.NewValidationError("color", "must be a #RRGGBB hex color")
	}

	category := models.Category{
		ID:          uuid.Must(uuid.NewV4()),
		Name:        name,
		Description: input.Description,
		Color:       color,
		OwnerID:     callerID,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := checkNameAvailable(tx, callerID, name, uuid.Nil); err != nil {
			return err
		}
		return tx.Create(&category).Error
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("create category: %w", err)
	}

	return &category, nil
}

func (s *CategoryServiceImpl) UpdateCategory(db *gorm.DB, callerID, categoryID uuid.UUID, input CategoryUpdateInput) (*models.Category, error) {
	updates := map[string]interface{}{}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if len(name) < 1 || len(name) > MaxCategoryNameLength {
			return nil, apperrors.NewValidationError("name", fmt.Sprintf("must be between 1 and %d characters", MaxCategoryNameLength))
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Color != nil {
		if !models.IsValidHexColor(*input.Color) {
			return nil, apperrors.NewValidationError("color", "must be a #RRGGBB hex color")
		}
		updates["color"] = *input.Color
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.Scopes(CategoryOwnerScope(callerID)).First(&category, "id = ?", categoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}

		if name, ok := updates["name"].(string); ok && name != category.Name {
			if err := checkNameAvailable(tx, callerID, name, categoryID); err != nil {
				return err
			}
		}

		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&category).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("update category: %w", err)
	}

	return s.GetCategory(db, callerID, categoryID)
}

// DeleteCategory removes the category and clears the reference on any task
// pointing at it, in one transaction. Tasks themselves survive.
func (s *CategoryServiceImpl) DeleteCategory(db *gorm.DB, callerID, categoryID uuid.UUID) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		result := tx.Scopes(CategoryOwnerScope(callerID)).Delete(&models.Category{}, "id = ?", categoryID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}

		return tx.Model(&models.Task{}).
			Where("category_id = ?", categoryID).
			Update("category_id", nil).Error
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

func (s *CategoryServiceImpl) ListCategoryTasks(db *gorm.DB, callerID, categoryID uuid.UUID) ([]models.Task, error) {
	if _, err := s.GetCategory(db, callerID, categoryID); err != nil {
		return nil, err
	}

	var tasks []models.Task
	err := db.Scopes(TaskReadScope(callerID)).
		Where("category_id = ?", categoryID).
		Order("created_at desc, id asc").
		Preload("Category").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list category tasks: %w", err)
	}
	return tasks, nil
}

func checkNameAvailable(tx *gorm.DB, callerID uuid.UUID, name string, excludeID uuid.UUID) error {
	query := tx.Model(&models.Category{}).
		Scopes(CategoryOwnerScope(callerID)).
		Where("name = ?", name)
	if excludeID != uuid.Nil {
		query = query.Where("id != ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperrors.ErrConflict
	}
	return nil
}
