package collector

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler drives poll cycles at a fixed interval. Ticks never overlap:
// the next run is only eligible once the current one has finished.
type Scheduler struct {
	scheduler *gocron.Scheduler
	interval  time.Duration
	poll      func(context.Context)
	logger    *slog.Logger
}

// NewScheduler creates a Scheduler that invokes poll every interval.
func NewScheduler(interval time.Duration, poll func(context.Context), logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		interval:  interval,
		poll:      poll,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 5
	}

	_, err := s.scheduler.Every(minutes).Minutes().SingletonMode().Do(func() {
		s.logger.Info("scheduler: running collection cycle")
		s.poll(context.Background())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop cancels future ticks. An in-flight cycle is allowed to finish.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
