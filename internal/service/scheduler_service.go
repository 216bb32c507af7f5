package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/aulao-api/internal/models"
)

type meetingSweeper interface {
	ReleaseDue(ctx context.Context, now time.Time) ([]models.ClassEvent, error)
	FinishElapsed(ctx context.Context, now time.Time) (int64, error)
}

// SweepResult summarises one scheduler pass.
type SweepResult struct {
	Released []models.ClassEvent
	Finished int64
}

// MeetingScheduler periodically releases started meetings and archives elapsed classes.
type MeetingScheduler struct {
	events   meetingSweeper
	cache    *CacheService
	metrics  *MetricsService
	emitter  EventEmitter
	logger   *zap.Logger
	cron     *cron.Cron
	schedule string
	timeout  time.Duration
	now      func() time.Time
}

// MeetingSchedulerParams groups constructor dependencies.
type MeetingSchedulerParams struct {
	Events   meetingSweeper
	Cache    *CacheService
	Metrics  *MetricsService
	Emitter  EventEmitter
	Logger   *zap.Logger
	Schedule string
}

// NewMeetingScheduler constructs a scheduler. Overlapping sweeps are skipped.
func NewMeetingScheduler(params MeetingSchedulerParams) *MeetingScheduler {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	schedule := params.Schedule
	if schedule == "" {
		schedule = "@every 1m"
	}
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	return &MeetingScheduler{
		events:   params.Events,
		cache:    params.Cache,
		metrics:  params.Metrics,
		emitter:  params.Emitter,
		logger:   logger,
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		schedule: schedule,
		timeout:  30 * time.Second,
		now:      time.Now,
	}
}

// Start registers the sweep and starts the cron loop.
func (s *MeetingScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.run); err != nil {
		return fmt.Errorf("schedule meeting sweep %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.Info("meeting scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts the cron loop and waits for a running sweep.
func (s *MeetingScheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *MeetingScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("meeting sweep failed", zap.Error(err))
	}
}

// Sweep releases meetings of started published classes that carry a URL and
// finishes classes whose scheduled end has passed.
func (s *MeetingScheduler) Sweep(ctx context.Context) (*SweepResult, error) {
	now := s.now().UTC()
	released, err := s.events.ReleaseDue(ctx, now)
	if err != nil {
		s.metrics.RecordSweep("error", 0)
		return nil, fmt.Errorf("release due meetings: %w", err)
	}
	finished, err := s.events.FinishElapsed(ctx, now)
	if err != nil {
		s.metrics.RecordSweep("error", len(released))
		return nil, fmt.Errorf("finish elapsed classes: %w", err)
	}
	s.metrics.RecordSweep("ok", len(released))

	teachers := make(map[string]struct{})
	for _, event := range released {
		teachers[event.TeacherProfileID] = struct{}{}
		if s.emitter != nil {
			s.emitter.Emit(EventClassEventMeetingOpen, newClassEventEvent(event))
		}
	}
	for teacherID := range teachers {
		_ = s.cache.Invalidate(ctx, teacherDashboardCacheKey(teacherID))
	}

	if len(released) > 0 || finished > 0 {
		s.logger.Info("meeting sweep completed", zap.Int("released", len(released)), zap.Int64("finished", finished))
	}
	return &SweepResult{Released: released, Finished: finished}, nil
}
