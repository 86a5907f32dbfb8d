package notifier

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/lib/metrics"
)

// DispatcherConfig bounds the retry loop
type DispatcherConfig struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	AttemptTimeout  time.Duration
}

// DefaultDispatcherConfig returns the production retry bounds
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		MaxAttempts:     5,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		AttemptTimeout:  10 * time.Second,
	}
}

// Result reports how a dispatch went
type Result struct {
	Attempts int
	Err      error
}

// Dispatcher sends messages through a Notifier with bounded exponential backoff
type Dispatcher struct {
	notifier Notifier
	cfg      DispatcherConfig
	log      *logger.Logger
}

// NewDispatcher wraps n with the given retry bounds
func NewDispatcher(n Notifier, cfg DispatcherConfig, log *logger.Logger) *Dispatcher {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = DefaultDispatcherConfig().InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = DefaultDispatcherConfig().MaxInterval
	}
	return &Dispatcher{notifier: n, cfg: cfg, log: log}
}

// Dispatch sends msg, retrying failures until the attempt budget is spent
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) Result {
	attempts := 0

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.cfg.InitialInterval
	b.MaxInterval = d.cfg.MaxInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		attemptCtx := ctx
		if d.cfg.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, d.cfg.AttemptTimeout)
			defer cancel()
		}
		return struct{}{}, d.notifier.Send(attemptCtx, msg)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(d.cfg.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			metrics.RecordRetry("notifier")
			d.log.FromContext(ctx).
				WithField("idempotency_key", msg.IdempotencyKey).
				WithField("retry_in", next.String()).
				WithError(err).
				Warn("notification attempt failed")
		}),
	)

	if err != nil {
		metrics.RecordNotification("failed")
	} else {
		metrics.RecordNotification("sent")
	}
	return Result{Attempts: attempts, Err: err}
}
