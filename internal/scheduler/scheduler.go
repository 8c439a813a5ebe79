package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"tasktrack/backend/internal/config"
	"tasktrack/backend/internal/models"
	"tasktrack/backend/internal/services"
	"tasktrack/backend/internal/worker"
)

// Scheduler owns the cron instance and the periodic maintenance jobs:
// a morning digest, an overdue sweep, a weekly cleanup of old completed
// tasks, and a nightly statistics pass that warms the analytics cache.
// Jobs are stateless and fire-and-forget; failures are logged, not retried
// (per-user fan-out goes through the job queue, which has its own retries).
type Scheduler struct {
	cron     *cron.Cron
	db       *gorm.DB
	cfg      config.SchedulerConfig
	profiles services.ProfileService
	queue    *worker.Queue
}

func New(db *gorm.DB, cfg config.SchedulerConfig, profiles services.ProfileService, queue *worker.Queue) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		db:       db,
		cfg:      cfg,
		profiles: profiles,
		queue:    queue,
	}
}

func (s *Scheduler) Start() error {
	jobs := []struct {
		name string
		spec string
		fn   func()
	}{
		{"daily_digest", fmt.Sprintf("0 %d * * *", s.cfg.DigestHour), s.runDigest},
		{"overdue_check", fmt.Sprintf("@every %s", s.cfg.OverdueInterval), s.runOverdueCheck},
		{"weekly_cleanup", "0 3 * * 0", s.runCleanup},
		{"daily_statistics", fmt.Sprintf("0 %d * * *", s.cfg.StatisticsHour), s.runStatistics},
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, job.fn); err != nil {
			return fmt.Errorf("schedule %s: %w", job.name, err)
		}
		slog.Info("scheduled job", "job", job.name, "spec", job.spec)
	}

	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("scheduler stopped")
}

// runDigest fans a digest job out per user. The worker builds and delivers
// each user's due-today/overdue summary.
func (s *Scheduler) runDigest() {
	profiles, err := s.profiles.ListProfiles(s.db)
	if err != nil {
		slog.Error("digest: listing profiles failed", "error", err)
		return
	}

	enqueued := 0
	for _, p := range profiles {
		if err := s.queue.Enqueue(context.Background(), worker.JobTypeDigestDelivery, p.ID); err != nil {
			slog.Error("digest: enqueue failed", "user_id", p.ID, "error", err)
			continue
		}
		enqueued++
	}
	slog.Info("digest jobs enqueued", "users", enqueued)
}

// runOverdueCheck logs a snapshot of how many open tasks have slipped past
// their due date, broken down by priority.
func (s *Scheduler) runOverdueCheck() {
	now := time.Now().UTC()

	type row struct {
		Priority string
		Count    int64
	}
	var rows []row
	err := s.db.Model(&models.Task{}).
		Select("priority, count(*) as count").
		Where("due_date IS NOT NULL AND due_date < ? AND status != ?", now, models.StatusCompleted).
		Group("priority").
		Scan(&rows).Error
	if err != nil {
		slog.Error("overdue check failed", "error", err)
		return
	}

	var total int64
	attrs := []any{}
	for _, r := range rows {
		total += r.Count
		attrs = append(attrs, r.Priority, r.Count)
	}
	slog.Info("overdue sweep", append([]any{"total", total}, attrs...)...)
}

// runCleanup hard-deletes completed tasks older than the retention window.
func (s *Scheduler) runCleanup() {
	cutoff := time.Now().UTC().Add(-s.cfg.CleanupRetention)

	result := s.db.Where("status = ? AND completed_at IS NOT NULL AND completed_at < ?",
		models.StatusCompleted, cutoff).
		Delete(&models.Task{})
	if result.Error != nil {
		slog.Error("cleanup failed", "error", result.Error)
		return
	}
	slog.Info("cleanup removed old completed tasks", "deleted", result.RowsAffected, "cutoff", cutoff)
}

// runStatistics enqueues an analytics warm job per user so the first
// dashboard hit of the day is served from cache.
func (s *Scheduler) runStatistics() {
	profiles, err := s.profiles.ListProfiles(s.db)
	if err != nil {
		slog.Error("statistics: listing profiles failed", "error", err)
		return
	}

	enqueued := 0
	for _, p := range profiles {
		if err := s.queue.Enqueue(context.Background(), worker.JobTypeAnalyticsWarm, p.ID); err != nil {
			slog.Error("statistics: enqueue failed", "user_id", p.ID, "error", err)
			continue
		}
		enqueued++
	}
	slog.Info("statistics jobs enqueued", "users", enqueued)
}
