package services

import (
	"tasktrack/backend/internal/cache"
	"tasktrack/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// CachedCategoryService decorates a CategoryService with cache invalidation.
// Category name and color are embedded in cached task list pages and in the
// category rollup, so rename, recolor and delete drop the cached views of
// everyone who can see a task in the category.
type CachedCategoryService struct {
	categoryService CategoryService
	cache           *cache.RedisCache
}

func NewCachedCategoryService(categoryService CategoryService, cacheInstance *cache.RedisCache) *CachedCategoryService {
	return &CachedCategoryService{
		categoryService: categoryService,
		cache:           cacheInstance,
	}
}

func (s *CachedCategoryService) ListCategories(db *gorm.DB, callerID uuid.UUID) ([]models.Category, error) {
	return s.categoryService.ListCategories(db, callerID)
}

func (s *CachedCategoryService) GetCategory(db *gorm.DB, callerID, categoryID uuid.UUID) (*models.Category, error) {
	return s.categoryService.GetCategory(db, callerID, categoryID)
}

// CreateCategory passes through; no cached page can reference a category
// that did not exist yet.
func (s *CachedCategoryService) CreateCategory(db *gorm.DB, callerID uuid.UUID, input CategoryCreateInput) (*models.Category, error) {
	return s.categoryService.CreateCategory(db, callerID, input)
}

func (s *CachedCategoryService) UpdateCategory(db *gorm.DB, callerID, categoryID uuid.UUID, input CategoryUpdateInput) (*models.Category, error) {
	affected := s.viewers(db, callerID, categoryID)
	category, err := s.categoryService.UpdateCategory(db, callerID, categoryID, input)
	if err != nil {
		return nil, err
	}
	s.invalidate(affected)
	return category, nil
}

func (s *CachedCategoryService) DeleteCategory(db *gorm.DB, callerID, categoryID uuid.UUID) error {
	// Viewers are collected before the delete clears the task references.
	affected := s.viewers(db, callerID, categoryID)
	if err := s.categoryService.DeleteCategory(db, callerID, categoryID); err != nil {
		return err
	}
	s.invalidate(affected)
	return nil
}

func (s *CachedCategoryService) ListCategoryTasks(db *gorm.DB, callerID, categoryID uuid.UUID) ([]models.Task, error) {
	return s.categoryService.ListCategoryTasks(db, callerID, categoryID)
}

// viewers returns the owner plus every assignee of a task in the category.
// Task creators always own the category, so the owner covers that side.
func (s *CachedCategoryService) viewers(db *gorm.DB, callerID, categoryID uuid.UUID) []uuid.UUID {
	affected := []uuid.UUID{callerID}

	var assignees []uuid.UUID
	db.Model(&models.Task{}).
		Where("category_id = ? AND assigned_to IS NOT NULL", categoryID).
		Distinct("assigned_to").
		Pluck("assigned_to", &assignees)

	for _, id := range assignees {
		if id != callerID {
			affected = append(affected, id)
		}
	}
	return affected
}

func (s *CachedCategoryService) invalidate(userIDs []uuid.UUID) {
	for _, userID := range userIDs {
		s.cache.DeletePattern(cache.TaskListPattern(userID))
		s.cache.DeletePattern(cache.AnalyticsPattern(userID))
	}
}
