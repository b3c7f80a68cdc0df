package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"license_notification_bot/internal/app" // For CycleReport
)

// MinInterval is the shortest period allowed between two cycles.
const MinInterval = 5 * time.Minute

// CycleRunner runs one full license check.
type CycleRunner interface {
	RunCycle(ctx context.Context) (app.CycleReport, error)
}

// Timer is a cancellable one-shot timer.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// Clock abstracts wall-clock time so tests can drive ticks directly.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTimer(d time.Duration) Timer { return realTimer{time.NewTimer(d)} }

type realTimer struct{ t *time.Timer }

func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Stop() bool          { return r.t.Stop() }

// EffectiveInterval clamps a configured interval to MinInterval.
func EffectiveInterval(d time.Duration) time.Duration {
	if d < MinInterval {
		return MinInterval
	}
	return d
}

type LicenseScheduler struct {
	runner       CycleRunner
	schedule     cron.Schedule
	interval     time.Duration
	cycleTimeout time.Duration
	clock        Clock
	logger       *logrus.Entry
}

// Option customises a LicenseScheduler.
type Option func(*LicenseScheduler)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(s *LicenseScheduler) { s.clock = c }
}

func NewLicenseScheduler(
	runner CycleRunner,
	interval time.Duration, // clamped to MinInterval
	cycleTimeout time.Duration,
	logger *logrus.Entry,
	opts ...Option,
) *LicenseScheduler {
	interval = EffectiveInterval(interval)
	s := &LicenseScheduler{
		runner:       runner,
		schedule:     cron.Every(interval),
		interval:     interval,
		cycleTimeout: cycleTimeout,
		clock:        realClock{},
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interval returns the effective period between cycles.
func (s *LicenseScheduler) Interval() time.Duration {
	return s.interval
}

// Run waits for ready, runs a cycle immediately and then one cycle per
// interval until ctx is cancelled. The next timer is armed only once the
// current cycle has returned, so cycles never overlap; a slow cycle delays
// the next one instead of being skipped.
func (s *LicenseScheduler) Run(ctx context.Context, ready <-chan struct{}) error {
	s.logger.Info("Waiting for the messaging transport to become ready...")
	select {
	case <-ctx.Done():
		s.logger.Info("License scheduler stopped before the transport was ready.")
		return nil
	case <-ready:
	}

	s.logger.WithField("interval", s.interval.String()).Info("License scheduler started.")

	for {
		s.executeCycle(ctx)

		now := s.clock.Now()
		timer := s.clock.NewTimer(s.schedule.Next(now).Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("License scheduler stopped.")
			return nil
		case <-timer.C():
		}
	}
}

// executeCycle is the failure boundary of one cycle: errors and panics are
// logged and never reach the loop.
func (s *LicenseScheduler) executeCycle(parent context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("panic", fmt.Sprint(r)).Error("License check cycle panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(parent, s.cycleTimeout)
	defer cancel()

	started := s.clock.Now()
	report, err := s.runner.RunCycle(ctx)
	logCtx := s.logger.WithFields(logrus.Fields{
		"cycle_id": report.CycleID,
		"duration": s.clock.Now().Sub(started).String(),
	})
	if err != nil {
		logCtx.WithError(err).Error("License check cycle failed")
		return
	}
	logCtx.WithField("sent", report.Sent).Info("License check cycle completed")
}
