package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"tasktrack/backend/internal/models"
	"tasktrack/backend/internal/services"
	"tasktrack/backend/internal/worker"
)

// RegisterJobHandlers wires the per-user job handlers into the worker.
// The analytics service is the cached decorator so warm jobs populate redis.
func RegisterJobHandlers(w *worker.Worker, db *gorm.DB, analytics *services.CachedAnalyticsService) {
	w.RegisterHandler(worker.JobTypeDigestDelivery, digestHandler(db))
	w.RegisterHandler(worker.JobTypeAnalyticsWarm, warmHandler(db, analytics))
}

// digestHandler builds a user's morning summary: tasks due today and tasks
// already overdue, across everything the user can see.
func digestHandler(db *gorm.DB) worker.JobHandler {
	return func(ctx context.Context, job *worker.Job) error {
		now := time.Now().UTC()
		dayStart := now.Truncate(24 * time.Hour)
		dayEnd := dayStart.Add(24 * time.Hour)

		visible := db.WithContext(ctx).Model(&models.Task{}).
			Scopes(services.TaskReadScope(job.UserID)).
			Where("status != ?", models.StatusCompleted)

		var dueToday int64
		if err := visible.Session(&gorm.Session{}).
			Where("due_date >= ? AND due_date < ?", dayStart, dayEnd).
			Count(&dueToday).Error; err != nil {
			return fmt.Errorf("count due today: %w", err)
		}

		var overdue int64
		if err := visible.Session(&gorm.Session{}).
			Where("due_date IS NOT NULL AND due_date < ?", dayStart).
			Count(&overdue).Error; err != nil {
			return fmt.Errorf("count overdue: %w", err)
		}

		if dueToday == 0 && overdue == 0 {
			slog.Debug("digest skipped, nothing pending", "user_id", job.UserID)
			return nil
		}

		slog.Info("daily digest",
			"user_id", job.UserID,
			"due_today", dueToday,
			"overdue", overdue)
		return nil
	}
}

func warmHandler(db *gorm.DB, analytics *services.CachedAnalyticsService) worker.JobHandler {
	return func(ctx context.Context, job *worker.Job) error {
		return analytics.WarmUserAnalytics(db.WithContext(ctx), job.UserID, time.Now().UTC())
	}
}
