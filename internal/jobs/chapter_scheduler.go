package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/mata-s/novel-day/internal/calendar"
	"github.com/mata-s/novel-day/internal/config"
	"github.com/mata-s/novel-day/internal/models"
	"github.com/mata-s/novel-day/internal/services"
)

// ProfileLister returns the users eligible for automatic generation.
type ProfileLister interface {
	ListAutoGenerate(ctx context.Context, kind models.PeriodKind) ([]string, error)
}

// TaskEnqueuer pushes one HTTP-invocation task onto a queue.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, queue, method, url string, body []byte) (string, error)
}

// Locker is the distributed lock surface used to keep one firing per window
// across instances.
type Locker interface {
	AcquireLock(ctx context.Context, lockKey, lockValue string, expiration time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey, lockValue string) (bool, error)
}

// ChapterScheduler fires the weekly and monthly fan-out jobs and enqueues one
// generation task per eligible user.
type ChapterScheduler struct {
	cfg        *config.Config
	profiles   ProfileLister
	queue      TaskEnqueuer
	locker     Locker
	scheduler  gocron.Scheduler
	limiter    *rate.Limiter
	instanceID string
}

// NewChapterScheduler creates the scheduler. locker may be nil; locking is
// then skipped, which is only safe for single-instance deployments.
func NewChapterScheduler(cfg *config.Config, profiles ProfileLister, queue TaskEnqueuer, locker Locker) (*ChapterScheduler, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	perSecond := cfg.EnqueuePerSecond
	if perSecond < 1 {
		perSecond = 1
	}

	return &ChapterScheduler{
		cfg:        cfg,
		profiles:   profiles,
		queue:      queue,
		locker:     locker,
		scheduler:  scheduler,
		limiter:    rate.NewLimiter(rate.Limit(perSecond), perSecond),
		instanceID: uuid.New().String(),
	}, nil
}

// Start registers the cron jobs and starts the scheduler. With no worker URL
// configured the scheduler stays idle; nothing could receive the tasks.
func (s *ChapterScheduler) Start() error {
	if s.cfg.WorkerBaseURL == "" {
		log.Println("⏭️ WORKER_BASE_URL not set, chapter scheduler disabled")
		return nil
	}

	weeklyCron := fmt.Sprintf("CRON_TZ=%s %s", s.cfg.SchedulerTimezone, s.cfg.WeeklyCron)
	if _, err := s.scheduler.NewJob(
		gocron.CronJob(weeklyCron, false),
		gocron.NewTask(func() {
			s.runWindow(models.PeriodWeekly)
		}),
		gocron.WithName("weekly-chapters"),
	); err != nil {
		return fmt.Errorf("failed to register weekly job: %w", err)
	}

	monthlyCron := fmt.Sprintf("CRON_TZ=%s %s", s.cfg.SchedulerTimezone, s.cfg.MonthlyCron)
	if _, err := s.scheduler.NewJob(
		gocron.CronJob(monthlyCron, false),
		gocron.NewTask(func() {
			s.runWindow(models.PeriodMonthly)
		}),
		gocron.WithName("monthly-chapters"),
	); err != nil {
		return fmt.Errorf("failed to register monthly job: %w", err)
	}

	s.scheduler.Start()
	log.Printf("⏰ Chapter scheduler started (weekly: %s, monthly: %s, tz: %s)",
		s.cfg.WeeklyCron, s.cfg.MonthlyCron, s.cfg.SchedulerTimezone)

	return nil
}

// Stop shuts the scheduler down
func (s *ChapterScheduler) Stop() error {
	return s.scheduler.Shutdown()
}

// runWindow is the cron entry point for one firing. The lock key carries the
// firing hour so a late second instance skips rather than double-enqueues.
func (s *ChapterScheduler) runWindow(kind models.PeriodKind) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if s.locker != nil {
		lockKey := fmt.Sprintf("chapter-lock:%s:%d", kind, time.Now().Unix()/3600)
		acquired, err := s.locker.AcquireLock(ctx, lockKey, s.instanceID, 30*time.Minute)
		if err != nil {
			log.Printf("❌ Failed to acquire %s lock: %v", kind, err)
			return
		}
		if !acquired {
			log.Printf("⏭️ %s window already handled by another instance", kind)
			return
		}
		defer func() {
			if _, err := s.locker.ReleaseLock(ctx, lockKey, s.instanceID); err != nil {
				log.Printf("⚠️ Failed to release %s lock: %v", kind, err)
			}
		}()
	}

	var (
		count int
		err   error
	)
	switch kind {
	case models.PeriodWeekly:
		count, err = s.EnqueueWeeklyTasks(ctx, time.Now())
	case models.PeriodMonthly:
		count, err = s.EnqueueMonthlyTasks(ctx, time.Now())
	}
	if err != nil {
		log.Printf("❌ %s fan-out failed: %v", kind, err)
		return
	}

	log.Printf("✅ Enqueued %d %s tasks", count, kind)
}

// EnqueueWeeklyTasks fans out one weekly task per eligible user for the week
// before now. It returns the number of tasks enqueued.
func (s *ChapterScheduler) EnqueueWeeklyTasks(ctx context.Context, now time.Time) (int, error) {
	week := calendar.LastWeek(now)
	period := models.Period{
		Kind:        models.PeriodWeekly,
		StartKey:    week.StartKey,
		EndKey:      week.EndKey,
		Key:         week.StartKey,
		WeekOfMonth: week.WeekOfMonth,
	}
	return s.enqueueAll(ctx, period, s.cfg.WeeklyQueue, "/tasks/weekly")
}

// EnqueueMonthlyTasks fans out one monthly task per eligible user for the
// month before now.
func (s *ChapterScheduler) EnqueueMonthlyTasks(ctx context.Context, now time.Time) (int, error) {
	month := calendar.LastMonth(now)
	period := models.Period{
		Kind:     models.PeriodMonthly,
		StartKey: month.StartKey,
		EndKey:   month.NextStartKey,
		Key:      month.StartKey,
		Label:    month.Label,
	}
	return s.enqueueAll(ctx, period, s.cfg.MonthlyQueue, "/tasks/monthly")
}

// enqueueAll pushes one task per user. A failed user is logged and skipped;
// one bad enqueue must not starve the rest of the window.
func (s *ChapterScheduler) enqueueAll(ctx context.Context, period models.Period, queue, path string) (int, error) {
	userIDs, err := s.profiles.ListAutoGenerate(ctx, period.Kind)
	if err != nil {
		return 0, fmt.Errorf("failed to list eligible users: %w", err)
	}

	url := strings.TrimRight(s.cfg.WorkerBaseURL, "/") + path

	concurrency := s.cfg.EnqueueConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		count int
	)
	sem := make(chan struct{}, concurrency)

	for _, userID := range userIDs {
		if err := s.limiter.Wait(ctx); err != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(userID string) {
			defer wg.Done()
			defer func() { <-sem }()

			payload := models.TaskPayload{UserID: userID, Period: period}
			body, err := json.Marshal(payload)
			if err != nil {
				log.Printf("⚠️ Failed to marshal task for user %s: %v", userID, err)
				return
			}

			if _, err := s.queue.Enqueue(ctx, queue, "POST", url, body); err != nil {
				log.Printf("⚠️ Failed to enqueue %s task for user %s: %v", period.Kind, userID, err)
				return
			}

			services.RecordTaskEnqueued(string(period.Kind))
			mu.Lock()
			count++
			mu.Unlock()
		}(userID)
	}

	wg.Wait()
	return count, nil
}

// Status reports the next planned firing per job in the scheduler timezone.
func (s *ChapterScheduler) Status() map[string]string {
	status := make(map[string]string)
	if s.cfg.WorkerBaseURL == "" {
		status["scheduler"] = "disabled"
		return status
	}

	loc, err := time.LoadLocation(s.cfg.SchedulerTimezone)
	if err != nil {
		loc = time.UTC
	}
	now := time.Now().In(loc)

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if sched, err := parser.Parse(s.cfg.WeeklyCron); err == nil {
		status["weekly_next_run"] = sched.Next(now).Format(time.RFC3339)
	}
	if sched, err := parser.Parse(s.cfg.MonthlyCron); err == nil {
		status["monthly_next_run"] = sched.Next(now).Format(time.RFC3339)
	}

	return status
}
