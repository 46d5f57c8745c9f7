package reminder

import (
	"context"
	"maps"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/jask/teammate/internal/config"
	"github.com/jask/teammate/internal/router"
)

// Runner executes a reminder command. A non-nil error means the command did
// not take effect and may be retried.
type Runner interface {
	Execute(ctx context.Context, s *router.CommandState) error
}

// Dispatcher polls a Queue and runs due reminders.
type Dispatcher struct {
	queue        Queue
	runner       Runner
	pollInterval time.Duration
	batchSize    int
	maxAttempts  int
	retryInitial time.Duration
	retryMax     time.Duration
	now          func() time.Time
	logger       *zap.Logger
}

func NewDispatcher(q Queue, runner Runner, cfg config.ReminderConfig, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		queue:        q,
		runner:       runner,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		maxAttempts:  cfg.MaxAttempts,
		retryInitial: cfg.RetryInitial,
		retryMax:     cfg.RetryMax,
		now:          time.Now,
		logger:       logger.Named("reminder"),
	}
	if d.pollInterval <= 0 {
		d.pollInterval = 15 * time.Second
	}
	if d.batchSize <= 0 {
		d.batchSize = 20
	}
	if d.maxAttempts < 1 {
		d.maxAttempts = 1
	}
	if d.retryInitial <= 0 {
		d.retryInitial = 30 * time.Second
	}
	if d.retryMax < d.retryInitial {
		d.retryMax = d.retryInitial
	}
	return d
}

// Run polls until ctx is done. The first poll happens immediately.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("dispatcher started", zap.Duration("poll_interval", d.pollInterval))
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()
	for {
		if _, err := d.Tick(ctx); err != nil && ctx.Err() == nil {
			d.logger.Error("poll failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick runs every reminder due now and returns how many it ran.
func (d *Dispatcher) Tick(ctx context.Context) (int, error) {
	now := d.now()
	due, err := d.queue.Due(ctx, now, d.batchSize)
	if err != nil {
		return 0, err
	}
	for _, r := range due {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		d.runOne(ctx, now, r)
	}
	return len(due), nil
}

func (d *Dispatcher) runOne(ctx context.Context, now time.Time, r Reminder) {
	log := d.logger.With(zap.String("reminder_id", r.ID), zap.String("command", r.Command))
	s := router.NewState(r.Command, maps.Clone(r.Context))

	if err := d.runner.Execute(ctx, s); err != nil {
		attempt := r.Attempts + 1
		if attempt >= d.maxAttempts {
			log.Error("reminder failed", zap.Int("attempt", attempt), zap.Error(err))
			if ferr := d.queue.Fail(ctx, r.ID, err.Error()); ferr != nil {
				log.Error("mark failed", zap.Error(ferr))
			}
			return
		}
		delay := RetryDelay(attempt, d.retryInitial, d.retryMax)
		log.Warn("reminder attempt failed, retrying", zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))
		if rerr := d.queue.Retry(ctx, r.ID, err.Error(), now.Add(delay)); rerr != nil {
			log.Error("reschedule", zap.Error(rerr))
		}
		return
	}
	log.Info("reminder sent", zap.String("response", s.Response))
	if err := d.queue.Complete(ctx, r.ID); err != nil {
		log.Error("mark complete", zap.Error(err))
	}
}

// RetryDelay is the wait before retry number attempt (1-based): initial,
// doubling each attempt, capped at ceiling.
func RetryDelay(attempt int, initial, ceiling time.Duration) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = ceiling
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.Reset()
	d := initial
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}
