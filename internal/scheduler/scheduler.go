package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-by-city/internal/widget"
)

// Dispatcher delivers events to the widget. *widget.Runtime satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev widget.Event) (widget.State, error)
}

// Flag reports whether the refresh job is scheduled. prometheus.Gauge satisfies it.
type Flag interface {
	Set(float64)
}

// Scheduler periodically asks the widget to refresh its last successful query.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	dispatcher Dispatcher
	interval   time.Duration
	timeout    time.Duration
	flag       Flag
	logger     *zap.Logger
}

// New creates a new Scheduler. An interval of zero disables it.
func New(dispatcher Dispatcher, interval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := gocron.NewScheduler(time.UTC)
	s.WaitForScheduleAll()
	s.SingletonModeAll()
	return &Scheduler{
		scheduler:  s,
		dispatcher: dispatcher,
		interval:   interval,
		timeout:    30 * time.Second,
		logger:     logger.Named("scheduler"),
	}
}

// WithFlag sets a gauge flipped to 1 while the job is scheduled.
func (s *Scheduler) WithFlag(f Flag) *Scheduler {
	s.flag = f
	return s
}

// Start schedules the refresh job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("periodic refresh disabled")
		return nil
	}
	if s.dispatcher == nil {
		return errors.New("scheduler: no dispatcher")
	}

	_, err := s.scheduler.Every(s.interval).Do(s.refresh)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	if s.flag != nil {
		s.flag.Set(1)
	}
	s.logger.Info("periodic refresh scheduled", zap.Duration("interval", s.interval))
	return nil
}

func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.dispatcher.Dispatch(ctx, widget.Refresh{}); err != nil {
		s.logger.Warn("refresh dispatch failed", zap.Error(err))
		return
	}
	s.logger.Debug("refresh dispatched")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil && s.scheduler.IsRunning() {
		s.scheduler.Stop()
	}
	if s.flag != nil {
		s.flag.Set(0)
	}
}
