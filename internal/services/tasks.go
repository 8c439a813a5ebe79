package services

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"tasktrack/backend/internal/apperrors"
	"tasktrack/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	MaxTitleLength = 200
)

// TaskListQuery carries the raw filter/sort/page parameters of a list
// request. Values are validated by ListTasks before any store access.
type TaskListQuery struct {
	Status     string `form:"status"`
	Priority   string `form:"priority"`
	CategoryID string `form:"category_id"`
	AssignedTo string `form:"assigned_to"`
	DueBefore  string `form:"due_before"`
	DueAfter   string `form:"due_after"`
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
	SortBy     string `form:"sort_by"`
	SortOrder  string `form:"sort_order"`
}

// taskFilters is the validated form of a TaskListQuery.
type taskFilters struct {
	status     string
	priority   string
	categoryID *uuid.UUID
	assignedTo *uuid.UUID
	dueBefore  *time.Time
	dueAfter   *time.Time
	page       int
	limit      int
	sortBy     string
	sortOrder  string
}

var sortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"due_date":   "due_date",
	"priority":   "priority",
	"title":      "title",
}

type TaskCreateInput struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	CategoryID  *uuid.UUID `json:"category_id"`
	AssignedTo  *uuid.UUID `json:"assigned_to"`
}

// TaskUpdateInput is a partial patch; nil fields are left unchanged.
type TaskUpdateInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	CategoryID  *uuid.UUID `json:"category_id"`
}

type TaskService interface {
	ListTasks(db *gorm.DB, callerID uuid.UUID, query TaskListQuery) ([]models.Task, int64, error)
	GetTask(db *gorm.DB, callerID, taskID uuid.UUID) (*models.Task, error)
	CreateTask(db *gorm.DB, callerID uuid.UUID, input TaskCreateInput) (*models.Task, error)
	UpdateTask(db *gorm.DB, callerID, taskID uuid.UUID, input TaskUpdateInput) (*models.Task, error)
	DeleteTask(db *gorm.DB, callerID, taskID uuid.UUID) error
	SetStatus(db *gorm.DB, callerID, taskID uuid.UUID, status string) (*models.Task, error)
	AssignTask(db *gorm.DB, callerID, taskID, assigneeID uuid.UUID) (*models.Task, error)
}

type TaskServiceImpl struct{}

func NewTaskService() *TaskServiceImpl {
	return &TaskServiceImpl{}
}

// Pages computes the pagination page count for a list response.
func Pages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return int64(math.Ceil(float64(total) / float64(limit)))
}

func (s *TaskServiceImpl) ListTasks(db *gorm.DB, callerID uuid.UUID, query TaskListQuery) ([]models.Task, int64, error) {
	filters, err := validateListQuery(query)
	if err != nil {
		return nil, 0, err
	}

	scoped := db.Model(&models.Task{}).Scopes(TaskReadScope(callerID))
	scoped = applyFilters(scoped, filters)

	// Total counts every visible row matching the filters, independent of
	// the requested window.
	var total int64
	if err := scoped.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	var tasks []models.Task
	offset := (filters.page - 1) * filters.limit
	// Ties on the sort key fall back to insertion order; the id keeps the
	// order deterministic across pages when creation times collide.
	err = scoped.Session(&gorm.Session{}).
		Order(fmt.Sprintf("%s %s, created_at asc, id asc", filters.sortBy, filters.sortOrder)).
		Offset(offset).
		Limit(filters.limit).
		Preload("Category").
		Find(&tasks).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}

	return tasks, total, nil
}

func (s *TaskServiceImpl) GetTask(db *gorm.DB, callerID, taskID uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := db.Scopes(TaskReadScope(callerID)).
		Preload("Category").
		First(&task, "id = ?", taskID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &task, nil
}

func (s *TaskServiceImpl) CreateTask(db *gorm.DB, callerID uuid.UUID, input TaskCreateInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if len(title) < 1 || len(title) > MaxTitleLength {
		return nil, apperrors.NewValidationError("title", fmt.Sprintf("must be between 1 and %d characters", MaxTitleLength))
	}

	status := input.Status
	if status == "" {
		status = models.StatusTodo
	}
	if !models.IsValidStatus(status) {
		return nil, apperrors.NewValidationError("status", "must be one of todo, in_progress, completed")
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.IsValidPriority(priority) {
		return nil, apperrors.NewValidationError("priority", "must be one of low, medium, high")
	}

	task := models.Task{
		ID:          uuid.Must(uuid.NewV4()),
		Title:       title,
		Description: input.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     input.DueDate,
		CategoryID:  input.CategoryID,
		CreatedBy:   callerID,
		AssignedTo:  input.AssignedTo,
	}

	// A task created directly in completed state still carries the
	// completion timestamp.
	if status == models.StatusCompleted {
		now := time.Now().UTC()
		task.CompletedAt = &now
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if task.CategoryID != nil {
			if err := checkCategoryOwnership(tx, callerID, *task.CategoryID); err != nil {
				return err
			}
		}
		return tx.Create(&task).Error
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCategory) {
			return nil, err
		}
		return nil, fmt.Errorf("create task: %w", err)
	}

	return s.GetTask(db, callerID, task.ID)
}

func (s *TaskServiceImpl) UpdateTask(db *gorm.DB, callerID, taskID uuid.UUID, input TaskUpdateInput) (*models.Task, error) {
	updates := map[string]interface{}{}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if len(title) < 1 || len(title) > MaxTitleLength {
			return nil, apperrors.NewValidationError("title", fmt.Sprintf("must be between 1 and %d characters", MaxTitleLength))
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Status != nil && !models.IsValidStatus(*input.Status) {
		return nil, apperrors.NewValidationError("status", "must be one of todo, in_progress, completed")
	}
	if input.Priority != nil {
		if !models.IsValidPriority(*input.Priority) {
			return nil, apperrors.NewValidationError("priority", "must be one of low, medium, high")
		}
		updates["priority"] = *input.Priority
	}
	if input.DueDate != nil {
		updates["due_date"] = *input.DueDate
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.Scopes(TaskOwnerScope(callerID)).First(&task, "id = ?", taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}

		if input.CategoryID != nil {
			if err := checkCategoryOwnership(tx, callerID, *input.CategoryID); err != nil {
				return err
			}
			updates["category_id"] = *input.CategoryID
		}

		// Status and completed_at always move together, even when status
		// changes through a general update.
		if input.Status != nil && *input.Status != task.Status {
			updates["status"] = *input.Status
			if *input.Status == models.StatusCompleted {
				updates["completed_at"] = time.Now().UTC()
			} else if task.Status == models.StatusCompleted {
				updates["completed_at"] = nil
			}
		}

		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&task).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrInvalidCategory) {
			return nil, err
		}
		var ve *apperrors.ValidationError
		if errors.As(err, &ve) {
			return nil, err
		}
		return nil, fmt.Errorf("update task: %w", err)
	}

	return s.GetTask(db, callerID, taskID)
}

func (s *TaskServiceImpl) DeleteTask(db *gorm.DB, callerID, taskID uuid.UUID) error {
	result := db.Scopes(TaskOwnerScope(callerID)).Delete(&models.Task{}, "id = ?", taskID)
	if result.Error != nil {
		return fmt.Errorf("delete task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (s *TaskServiceImpl) SetStatus(db *gorm.DB, callerID, taskID uuid.UUID, status string) (*models.Task, error) {
	if !models.IsValidStatus(status) {
		return nil, apperrors.NewValidationError("status", "must be one of todo, in_progress, completed")
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		// Status changes are open to the creator and the assignee.
		var task models.Task
		if err := tx.Scopes(TaskReadScope(callerID)).First(&task, "id = ?", taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}

		updates := map[string]interface{}{"status": status}
		if status == models.StatusCompleted && task.Status != models.StatusCompleted {
			updates["completed_at"] = time.Now().UTC()
		} else if status != models.StatusCompleted {
			updates["completed_at"] = nil
		}

		return tx.Model(&task).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("set status: %w", err)
	}

	return s.GetTask(db, callerID, taskID)
}

func (s *TaskServiceImpl) AssignTask(db *gorm.DB, callerID, taskID, assigneeID uuid.UUID) (*models.Task, error) {
	// The assignee is not checked against any user registry; assignment is
	// a weak reference by design.
	result := db.Model(&models.Task{}).
		Scopes(TaskOwnerScope(callerID)).
		Where("id = ?", taskID).
		Update("assigned_to", assigneeID)
	if result.Error != nil {
		return nil, fmt.Errorf("assign task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrNotFound
	}

	return s.GetTask(db, callerID, taskID)
}

// checkCategoryOwnership fails with ErrInvalidCategory unless the category
// exists and belongs to the caller.
func checkCategoryOwnership(tx *gorm.DB, callerID, categoryID uuid.UUID) error {
	var count int64
	err := tx.Model(&models.Category{}).
		Scopes(CategoryOwnerScope(callerID)).
		Where("id = ?", categoryID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return apperrors.ErrInvalidCategory
	}
	return nil
}

func validateListQuery(query TaskListQuery) (*taskFilters, error) {
	f := &taskFilters{
		page:      query.Page,
		limit:     query.Limit,
		sortBy:    query.SortBy,
		sortOrder: query.SortOrder,
	}

	if query.Status != "" {
		if !models.IsValidStatus(query.Status) {
			return nil, apperrors.NewValidationError("status", "must be one of todo, in_progress, completed")
		}
		f.status = query.Status
	}

	if query.Priority != "" {
		if !models.IsValidPriority(query.Priority) {
			return nil, apperrors.NewValidationError("priority", "must be one of low, medium, high")
		}
		f.priority = query.Priority
	}

	if query.CategoryID != "" {
		id, err := uuid.FromString(query.CategoryID)
		if err != nil {
			return nil, apperrors.NewValidationError("category_id", "must be a valid UUID")
		}
		f.categoryID = &id
	}

	if query.AssignedTo != "" {
		id, err := uuid.FromString(query.AssignedTo)
		if err != nil {
			return nil, apperrors.NewValidationError("assigned_to", "must be a valid UUID")
		}
		f.assignedTo = &id
	}

	if query.DueBefore != "" {
		t, err := parseDateParam(query.DueBefore)
		if err != nil {
			return nil, apperrors.NewValidationError("due_before", "must be an RFC 3339 timestamp or YYYY-MM-DD date")
		}
		f.dueBefore = &t
	}

	if query.DueAfter != "" {
		t, err := parseDateParam(query.DueAfter)
		if err != nil {
			return nil, apperrors.NewValidationError("due_after", "must be an RFC 3339 timestamp or YYYY-MM-DD date")
		}
		f.dueAfter = &t
	}

	if f.page == 0 {
		f.page = DefaultPage
	}
	if f.page < 1 {
		return nil, apperrors.NewValidationError("page", "must be at least 1")
	}

	if f.limit == 0 {
		f.limit = DefaultLimit
	}
	if f.limit < 1 || f.limit > MaxLimit {
		return nil, apperrors.NewValidationError("limit", fmt.Sprintf("must be between 1 and %d", MaxLimit))
	}

	if f.sortBy == "" {
		f.sortBy = "created_at"
	}
	column, ok := sortColumns[f.sortBy]
	if !ok {
		return nil, apperrors.NewValidationError("sort_by", "must be one of created_at, updated_at, due_date, priority, title")
	}
	f.sortBy = column

	if f.sortOrder == "" {
		f.sortOrder = "desc"
	}
	if f.sortOrder != "asc" && f.sortOrder != "desc" {
		return nil, apperrors.NewValidationError("sort_order", "must be asc or desc")
	}

	return f, nil
}

func applyFilters(db *gorm.DB, f *taskFilters) *gorm.DB {
	if f.status != "" {
		db = db.Where("status = ?", f.status)
	}
	if f.priority != "" {
		db = db.Where("priority = ?", f.priority)
	}
	if f.categoryID != nil {
		db = db.Where("category_id = ?", *f.categoryID)
	}
	if f.assignedTo != nil {
		db = db.Where("assigned_to = ?", *f.assignedTo)
	}
	if f.dueBefore != nil {
		db = db.Where("due_date <= ?", *f.dueBefore)
	}
	if f.dueAfter != nil {
		db = db.Where("due_date >= ?", *f.dueAfter)
	}
	return db
}

func parseDateParam(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
