package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const lockKeyPrefix = "captainspark:scheduler:"

// MagicLinkRepository defines methods for magic link cleanup
type MagicLinkRepository interface {
	// DeleteExpired removes links that expired or were used before the given time
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Locker grants a job run to a single scheduler instance
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// redisLocker locks with SET NX
type redisLocker struct {
	client *redis.Client
}

// NewRedisLocker creates a Locker backed by Redis
func NewRedisLocker(client *redis.Client) Locker {
	return &redisLocker{client: client}
}

func (l *redisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, lockKeyPrefix+key, time.Now().Unix(), ttl).Result()
}

// Job is a named cleanup run on a cron schedule
type Job struct {
	Name     string
	Schedule cron.Schedule
	Run      func(ctx context.Context, now time.Time) error
	next     time.Time
}

// NewJob parses a standard five-field cron expression into a job
func NewJob(name, expr string, run func(ctx context.Context, now time.Time) error) (*Job, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule for %s: %w", name, err)
	}
	return &Job{Name: name, Schedule: schedule, Run: run}, nil
}

// PurgeMagicLinks returns a job body deleting expired and used sign-in links
func PurgeMagicLinks(repo MagicLinkRepository, logger *zap.Logger) func(ctx context.Context, now time.Time) error {
	return func(ctx context.Context, now time.Time) error {
		deleted, err := repo.DeleteExpired(ctx, now)
		if err != nil {
			return err
		}
		logger.Info("Purged magic links", zap.Int64("deleted", deleted))
		return nil
	}
}

// Scheduler runs cleanup jobs
type Scheduler struct {
	jobs     []*Job
	locker   Locker
	logger   *zap.Logger
	ticker   *time.Ticker
	stopChan chan struct{}
	done     chan struct{}
	now      func() time.Time
}

// NewScheduler creates a new scheduler instance checking for due jobs every interval
func NewScheduler(locker Locker, logger *zap.Logger, interval time.Duration, jobs ...*Job) *Scheduler {
	return &Scheduler{
		jobs:     jobs,
		locker:   locker,
		logger:   logger,
		ticker:   time.NewTicker(interval),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		now:      time.Now,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.jobs)))
	go s.run()
}

// Stop stops the scheduler and waits for the running pass to finish
func (s *Scheduler) Stop() {
	s.ticker.Stop()
	close(s.stopChan)
	<-s.done
	s.logger.Info("Scheduler stopped")
}

// run executes the scheduler loop
func (s *Scheduler) run() {
	defer close(s.done)
	ctx := context.Background()

	// Plan the first run of each job
	now := s.now()
	for _, job := range s.jobs {
		job.next = job.Schedule.Next(now)
	}

	for {
		select {
		case <-s.ticker.C:
			s.runDue(ctx)
		case <-s.stopChan:
			return
		}
	}
}

// runDue executes every job whose next run has passed
func (s *Scheduler) runDue(ctx context.Context) {
	now := s.now()
	for _, job := range s.jobs {
		if job.next.IsZero() {
			job.next = job.Schedule.Next(now)
		}
		if now.Before(job.next) {
			continue
		}
		next := job.Schedule.Next(now)
		s.execute(ctx, job, now, next.Sub(now))
		job.next = next
	}
}

// execute runs a job once across all scheduler instances
func (s *Scheduler) execute(ctx context.Context, job *Job, now time.Time, lease time.Duration) {
	key := fmt.Sprintf("%s:%d", job.Name, now.Truncate(time.Minute).Unix())
	acquired, err := s.locker.TryLock(ctx, key, lease)
	if err != nil {
		s.logger.Error("Failed to acquire job lock", zap.String("job", job.Name), zap.Error(err))
		return
	}
	if !acquired {
		s.logger.Debug("Job already running elsewhere", zap.String("job", job.Name))
		return
	}

	start := time.Now()
	if err := job.Run(ctx, now); err != nil {
		s.logger.Error("Job failed", zap.String("job", job.Name), zap.Error(err))
		return
	}
	s.logger.Info("Job finished", zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
}
