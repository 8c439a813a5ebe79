package services

import (
	"fmt"
	"time"

	"tasktrack/backend/internal/cache"
	"tasktrack/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const taskListTTL = 2 * time.Minute

// CachedTaskService decorates a TaskService with Redis caching of list
// pages and invalidation of the caller's cached views on every mutation.
// Cache failures fall through to the store; they never fail the request.
type CachedTaskService struct {
	taskService TaskService
	cache       *cache.RedisCache
}

func NewCachedTaskService(taskService TaskService, cacheInstance *cache.RedisCache) *CachedTaskService {
	return &CachedTaskService{
		taskService: taskService,
		cache:       cacheInstance,
	}
}

type cachedTaskList struct {
	Tasks []models.Task `json:"tasks"`
	Total int64         `json:"total"`
}

func (s *CachedTaskService) ListTasks(db *gorm.DB, callerID uuid.UUID, query TaskListQuery) ([]models.Task, int64, error) {
	key := cache.TaskListKey(callerID, listFingerprint(query))

	var cached cachedTaskList
	if err := s.cache.Get(key, &cached); err == nil {
		return cached.Tasks, cached.Total, nil
	}

	tasks, total, err := s.taskService.ListTasks(db, callerID, query)
	if err != nil {
		return tasks, total, err
	}

	s.cache.Set(key, cachedTaskList{Tasks: tasks, Total: total}, taskListTTL)
	return tasks, total, nil
}

func (s *CachedTaskService) GetTask(db *gorm.DB, callerID, taskID uuid.UUID) (*models.Task, error) {
	return s.taskService.GetTask(db, callerID, taskID)
}

func (s *CachedTaskService) CreateTask(db *gorm.DB, callerID uuid.UUID, input TaskCreateInput) (*models.Task, error) {
	task, err := s.taskService.CreateTask(db, callerID, input)
	if err != nil {
		return nil, err
	}
	s.invalidate(callerID, task)
	return task, nil
}

func (s *CachedTaskService) UpdateTask(db *gorm.DB, callerID, taskID uuid.UUID, input TaskUpdateInput) (*models.Task, error) {
	task, err := s.taskService.UpdateTask(db, callerID, taskID, input)
	if err != nil {
		return nil, err
	}
	s.invalidate(callerID, task)
	return task, nil
}

func (s *CachedTaskService) DeleteTask(db *gorm.DB, callerID, taskID uuid.UUID) error {
	// Capture the assignee before the row disappears; their cached views
	// hold the task too.
	task, _ := s.taskService.GetTask(db, callerID, taskID)
	if err := s.taskService.DeleteTask(db, callerID, taskID); err != nil {
		return err
	}
	s.invalidate(callerID, task)
	return nil
}

func (s *CachedTaskService) SetStatus(db *gorm.DB, callerID, taskID uuid.UUID, status string) (*models.Task, error) {
	task, err := s.taskService.SetStatus(db, callerID, taskID, status)
	if err != nil {
		return nil, err
	}
	s.invalidate(callerID, task)
	return task, nil
}

func (s *CachedTaskService) AssignTask(db *gorm.DB, callerID, taskID, assigneeID uuid.UUID) (*models.Task, error) {
	task, err := s.taskService.AssignTask(db, callerID, taskID, assigneeID)
	if err != nil {
		return nil, err
	}
	s.invalidate(callerID, task)
	return task, nil
}

// invalidate drops the caller's cached lists and analytics. When the task is
// visible to an assignee their views are stale too, so theirs go as well.
func (s *CachedTaskService) invalidate(callerID uuid.UUID, task *models.Task) {
	affected := []uuid.UUID{callerID}
	if task != nil {
		if task.CreatedBy != callerID {
			affected = append(affected, task.CreatedBy)
		}
		if task.AssignedTo != nil && *task.AssignedTo != callerID {
			affected = append(affected, *task.AssignedTo)
		}
	}

	for _, userID := range affected {
		s.cache.DeletePattern(cache.TaskListPattern(userID))
		s.cache.DeletePattern(cache.AnalyticsPattern(userID))
	}
}

func listFingerprint(q TaskListQuery) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s:%s:%d:%d:%s:%s",
		q.Status, q.Priority, q.CategoryID, q.AssignedTo,
		q.DueBefore, q.DueAfter, q.Page, q.Limit, q.SortBy, q.SortOrder)
}
