package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"tasktrack/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const (
	DefaultSeriesPeriodDays       = 30
	DefaultProductivityPeriodDays = 7
	MaxPeriodDays                 = 365
)

type OverviewStats struct {
	TotalTasks      int     `json:"total_tasks"`
	TodoTasks       int     `json:"todo_tasks"`
	InProgressTasks int     `json:"in_progress_tasks"`
	CompletedTasks  int     `json:"completed_tasks"`
	OverdueTasks    int     `json:"overdue_tasks"`
	CompletionRate  float64 `json:"completion_rate"`
}

type CompletionRatePoint struct {
	Date      string `json:"date"`
	Completed int    `json:"completed"`
}

type OverdueTaskItem struct {
	models.Task
	DaysOverdue int `json:"days_overdue"`
}

type OverdueReport struct {
	Tasks      []OverdueTaskItem `json:"tasks"`
	Total      int               `json:"total"`
	ByPriority map[string]int    `json:"by_priority"`
}

type PriorityActivity struct {
	Created   int `json:"created"`
	Completed int `json:"completed"`
}

type ProductivityStats struct {
	PeriodDays                 int                         `json:"period_days"`
	TasksCreated               int                         `json:"tasks_created"`
	TasksCompleted             int                         `json:"tasks_completed"`
	CompletionRate             float64                     `json:"completion_rate"`
	AverageCompletionTimeHours float64                     `json:"average_completion_time_hours"`
	ByPriority                 map[string]PriorityActivity `json:"by_priority"`
}

type CategoryStats struct {
	CategoryID      *uuid.UUID `json:"category_id"`
	Name            string     `json:"name"`
	Color           string     `json:"color"`
	TotalTasks      int        `json:"total_tasks"`
	TodoTasks       int        `json:"todo_tasks"`
	InProgressTasks int        `json:"in_progress_tasks"`
	CompletedTasks  int        `json:"completed_tasks"`
	CompletionRate  float64    `json:"completion_rate"`
}

// AnalyticsService computes aggregate views over the caller's visible task
// set. Every view is computed fresh from the store; nothing is materialized.
type AnalyticsService interface {
	Overview(db *gorm.DB, callerID uuid.UUID, now time.Time) (*OverviewStats, error)
	CompletionRateSeries(db *gorm.DB, callerID uuid.UUID, periodDays int, now time.Time) ([]CompletionRatePoint, error)
	OverdueBreakdown(db *gorm.DB, callerID uuid.UUID, now time.Time) (*OverdueReport, error)
	Productivity(db *gorm.DB, callerID uuid.UUID, periodDays int, now time.Time) (*ProductivityStats, error)
	CategoryRollup(db *gorm.DB, callerID uuid.UUID) ([]CategoryStats, error)
}

type AnalyticsServiceImpl struct{}

func NewAnalyticsService() *AnalyticsServiceImpl {
	return &AnalyticsServiceImpl{}
}

func (s *AnalyticsServiceImpl) Overview(db *gorm.DB, callerID uuid.UUID, now time.Time) (*OverviewStats, error) {
	tasks, err := visibleTasks(db, callerID)
	if err != nil {
		return nil, err
	}

	stats := &OverviewStats{TotalTasks: len(tasks)}
	for i := range tasks {
		switch tasks[i].Status {
		case models.StatusTodo:
			stats.TodoTasks++
		case models.StatusInProgress:
			stats.InProgressTasks++
		case models.StatusCompleted:
			stats.CompletedTasks++
		}
		if tasks[i].IsOverdue(now) {
			stats.OverdueTasks++
		}
	}

	stats.CompletionRate = completionRate(stats.CompletedTasks, stats.TotalTasks)
	return stats, nil
}

// CompletionRateSeries buckets completions by UTC calendar day over the
// trailing window, emitting every day even when its count is zero.
func (s *AnalyticsServiceImpl) CompletionRateSeries(db *gorm.DB, callerID uuid.UUID, periodDays int, now time.Time) ([]CompletionRatePoint, error) {
	periodDays = clampPeriod(periodDays, DefaultSeriesPeriodDays)

	var tasks []models.Task
	err := db.Scopes(TaskReadScope(callerID)).
		Where("status = ? AND completed_at IS NOT NULL", models.StatusCompleted).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("load completed tasks: %w", err)
	}

	today := now.UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(periodDays - 1))

	buckets := make(map[string]int, periodDays)
	for d := 0; d < periodDays; d++ {
		buckets[start.AddDate(0, 0, d).Format("2006-01-02")] = 0
	}

	for i := range tasks {
		day := tasks[i].CompletedAt.UTC().Format("2006-01-02")
		if _, ok := buckets[day]; ok {
			buckets[day]++
		}
	}

	points := make([]CompletionRatePoint, 0, periodDays)
	for d := 0; d < periodDays; d++ {
		date := start.AddDate(0, 0, d).Format("2006-01-02")
		points = append(points, CompletionRatePoint{Date: date, Completed: buckets[date]})
	}

	return points, nil
}

func (s *AnalyticsServiceImpl) OverdueBreakdown(db *gorm.DB, callerID uuid.UUID, now time.Time) (*OverdueReport, error) {
	var tasks []models.Task
	err := db.Scopes(TaskReadScope(callerID)).
		Where("due_date < ? AND status != ?", now, models.StatusCompleted).
		Order("due_date asc").
		Preload("Category").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("load overdue tasks: %w", err)
	}

	report := &OverdueReport{
		Tasks: make([]OverdueTaskItem, 0, len(tasks)),
		ByPriority: map[string]int{
			models.PriorityHigh:   0,
			models.PriorityMedium: 0,
			models.PriorityLow:    0,
		},
	}

	for i := range tasks {
		daysOverdue := int(now.Sub(*tasks[i].DueDate).Hours() / 24)
		report.Tasks = append(report.Tasks, OverdueTaskItem{
			Task:        tasks[i],
			DaysOverdue: daysOverdue,
		})
		report.ByPriority[tasks[i].Priority]++
	}

	report.Total = len(report.Tasks)
	return report, nil
}

func (s *AnalyticsServiceImpl) Productivity(db *gorm.DB, callerID uuid.UUID, periodDays int, now time.Time) (*ProductivityStats, error) {
	periodDays = clampPeriod(periodDays, DefaultProductivityPeriodDays)
	windowStart := now.AddDate(0, 0, -periodDays)

	var tasks []models.Task
	err := db.Scopes(TaskReadScope(callerID)).
		Where("created_at >= ?", windowStart).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("load recent tasks: %w", err)
	}

	stats := &ProductivityStats{
		PeriodDays:   periodDays,
		TasksCreated: len(tasks),
		ByPriority: map[string]PriorityActivity{
			models.PriorityHigh:   {},
			models.PriorityMedium: {},
			models.PriorityLow:    {},
		},
	}

	var totalCompletionHours float64
	for i := range tasks {
		activity := stats.ByPriority[tasks[i].Priority]
		activity.Created++

		if tasks[i].Status == models.StatusCompleted {
			stats.TasksCompleted++
			activity.Completed++
			if tasks[i].CompletedAt != nil {
				totalCompletionHours += tasks[i].CompletedAt.Sub(tasks[i].CreatedAt).Hours()
			}
		}

		stats.ByPriority[tasks[i].Priority] = activity
	}

	stats.CompletionRate = completionRate(stats.TasksCompleted, stats.TasksCreated)
	if stats.TasksCompleted > 0 {
		stats.AverageCompletionTimeHours = round2(totalCompletionHours / float64(stats.TasksCompleted))
	}

	return stats, nil
}

// CategoryRollup reports per-category counts for the caller's own
// categories, plus a synthetic Uncategorized bucket for visible tasks with
// no category, appended only when non-empty.
func (s *AnalyticsServiceImpl) CategoryRollup(db *gorm.DB, callerID uuid.UUID) ([]CategoryStats, error) {
	var categories []models.Category
	err := db.Scopes(CategoryOwnerScope(callerID)).Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	tasks, err := visibleTasks(db, callerID)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[uuid.UUID][]*models.Task)
	var uncategorized []*models.Task
	for i := range tasks {
		if tasks[i].CategoryID == nil {
			uncategorized = append(uncategorized, &tasks[i])
		} else {
			byCategory[*tasks[i].CategoryID] = append(byCategory[*tasks[i].CategoryID], &tasks[i])
		}
	}

	rollup := make([]CategoryStats, 0, len(categories)+1)
	for i := range categories {
		id := categories[i].ID
		entry := buildCategoryStats(byCategory[id])
		entry.CategoryID = &id
		entry.Name = categories[i].Name
		entry.Color = categories[i].Color
		rollup = append(rollup, entry)
	}

	if len(uncategorized) > 0 {
		entry := buildCategoryStats(uncategorized)
		entry.Name = "Uncategorized"
		entry.Color = "#9ca3af"
		rollup = append(rollup, entry)
	}

	sort.SliceStable(rollup, func(i, j int) bool {
		return rollup[i].TotalTasks > rollup[j].TotalTasks
	})

	return rollup, nil
}

func buildCategoryStats(tasks []*models.Task) CategoryStats {
	entry := CategoryStats{TotalTasks: len(tasks)}
	for _, task := range tasks {
		switch task.Status {
		case models.StatusTodo:
			entry.TodoTasks++
		case models.StatusInProgress:
			entry.InProgressTasks++
		case models.StatusCompleted:
			entry.CompletedTasks++
		}
	}
	entry.CompletionRate = completionRate(entry.CompletedTasks, entry.TotalTasks)
	return entry
}

func visibleTasks(db *gorm.DB, callerID uuid.UUID) ([]models.Task, error) {
	var tasks []models.Task
	if err := db.Scopes(TaskReadScope(callerID)).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("load visible tasks: %w", err)
	}
	return tasks, nil
}

func clampPeriod(periodDays, fallback int) int {
	if periodDays <= 0 {
		return fallback
	}
	if periodDays > MaxPeriodDays {
		return MaxPeriodDays
	}
	return periodDays
}

func completionRate(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(completed) / float64(total) * 100)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
