package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
)

// Job types produced by the scheduler. Each carries a user_id payload and
// is processed independently, so a failure for one user never blocks the rest.
type JobType string

const (
	JobTypeDigestDelivery JobType = "digest_delivery"
	JobTypeAnalyticsWarm  JobType = "analytics_warm"
)

const (
	DefaultQueue = "tasktrack:jobs"
	retryQueue   = "tasktrack:jobs:retry"
	deadQueue    = "tasktrack:jobs:dead"

	defaultMaxTries = 3
	jobTimeout      = 30 * time.Second
)

type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	UserID    uuid.UUID       `json:"user_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Attempts  int             `json:"attempts"`
	MaxTries  int             `json:"max_tries"`
	CreatedAt time.Time       `json:"created_at"`
	ProcessAt time.Time       `json:"process_at"`
}

type JobHandler func(ctx context.Context, job *Job) error

// Worker drains job queues with a pool of goroutines. Handlers are
// registered per job type before Start.
type Worker struct {
	client   *redis.Client
	handlers map[JobType]JobHandler
	queues   []string
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewWorker(client *redis.Client, queues ...string) *Worker {
	if len(queues) == 0 {
		queues = []string{DefaultQueue, retryQueue}
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		client:   client,
		handlers: make(map[JobType]JobHandler),
		queues:   queues,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (w *Worker) RegisterHandler(jobType JobType, handler JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = handler
}

func (w *Worker) Start(concurrency int) {
	if concurrency < 1 {
		concurrency = 1
	}
	slog.Info("starting job worker", "concurrency", concurrency, "queues", w.queues)

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go w.loop()
	}
}

func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
	slog.Info("job worker stopped")
}

func (w *Worker) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			if err := w.processNext(); err != nil {
				slog.Error("job processing failed", "error", err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) processNext() error {
	result, err := w.client.BLPop(w.ctx, 5*time.Second, w.queues...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("pop job: %w", err)
	}
	if len(result) < 2 {
		return errors.New("malformed BLPop result")
	}

	queue, raw := result[0], result[1]

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return fmt.Errorf("decode job: %w", err)
	}

	// Delayed jobs go back on the queue until their time comes. The pause
	// keeps a lone not-yet-due job from ping-ponging against redis.
	if time.Now().Before(job.ProcessAt) {
		select {
		case <-w.ctx.Done():
		case <-time.After(time.Second):
		}
		return w.push(queue, &job)
	}

	return w.execute(&job)
}

func (w *Worker) execute(job *Job) error {
	w.mu.RLock()
	handler, ok := w.handlers[job.Type]
	w.mu.RUnlock()

	if !ok {
		return fmt.Errorf("no handler for job type %q", job.Type)
	}

	ctx, cancel := context.WithTimeout(w.ctx, jobTimeout)
	defer cancel()

	if err := handler(ctx, job); err != nil {
		job.Attempts++
		if job.Attempts < job.MaxTries {
			slog.Warn("job failed, scheduling retry",
				"job_id", job.ID, "type", job.Type,
				"attempt", job.Attempts, "max_tries", job.MaxTries, "error", err)
			job.ProcessAt = time.Now().Add(time.Duration(1<<job.Attempts) * time.Minute)
			return w.push(retryQueue, job)
		}

		slog.Error("job failed permanently",
			"job_id", job.ID, "type", job.Type, "attempts", job.Attempts, "error", err)
		return w.bury(job, err)
	}

	slog.Debug("job completed", "job_id", job.ID, "type", job.Type, "user_id", job.UserID)
	return nil
}

// push uses its own context so an in-hand job still makes it back onto a
// queue when the worker is shutting down.
func (w *Worker) push(queue string, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return w.client.RPush(ctx, queue, data).Err()
}

func (w *Worker) bury(job *Job, jobErr error) error {
	dead := map[string]interface{}{
		"job":       job,
		"error":     jobErr.Error(),
		"failed_at": time.Now().UTC(),
	}
	data, err := json.Marshal(dead)
	if err != nil {
		return fmt.Errorf("encode dead job: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return w.client.RPush(ctx, deadQueue, data).Err()
}

// Queue is the producer side, used by the scheduler to fan out per-user work.
type Queue struct {
	client *redis.Client
}

func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client}
}

func (q *Queue) Enqueue(ctx context.Context, jobType JobType, userID uuid.UUID) error {
	job := &Job{
		ID:        uuid.Must(uuid.NewV4()).String(),
		Type:      jobType,
		UserID:    userID,
		MaxTries:  defaultMaxTries,
		CreatedAt: time.Now().UTC(),
		ProcessAt: time.Now().UTC(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return q.client.RPush(ctx, DefaultQueue, data).Err()
}

func (q *Queue) Size(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return q.client.LLen(ctx, DefaultQueue).Result()
}
