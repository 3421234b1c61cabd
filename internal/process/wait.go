package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/giantswarm/smoketest/internal/sentinel"
	"k8s.io/apimachinery/pkg/util/wait"
)

// Sentinel errors returned by WaitReady. They survive wrapping, so callers
// match them with errors.Is.
const (
	// ErrIntervalNotPositive indicates a non-positive poll interval.
	ErrIntervalNotPositive = sentinel.Error("interval must be positive")

	// ErrTimeoutNotPositive indicates a non-positive overall timeout.
	ErrTimeoutNotPositive = sentinel.Error("timeout must be positive")

	// ErrInitialDelayNegative indicates a negative initial delay.
	ErrInitialDelayNegative = sentinel.Error("initial delay must not be negative")

	// ErrProcessExited indicates the process exited before becoming ready.
	ErrProcessExited = sentinel.Error("process exited before becoming ready")

	// ErrReadyTimeout indicates the overall deadline elapsed while the
	// process was still alive but not yet ready.
	ErrReadyTimeout = sentinel.Error("process not ready before deadline")
)

// ReadinessCheck probes the process once. attempt is 1-based. Returning
// (false, nil) schedules another probe; a non-nil error aborts polling.
// ctx carries the overall deadline so a blocking probe can give up with it.
type ReadinessCheck func(ctx context.Context, attempt int) (ready bool, err error)

// WaitReadyConfig configures WaitReady.
type WaitReadyConfig struct {
	InitialDelay  time.Duration   // quiet period before the first probe
	Interval      time.Duration   // delay between the end of one probe and the start of the next
	Timeout       time.Duration   // overall deadline, counted from the WaitReady call
	Name          string          // for logging and errors
	Port          int             // for logging context
	Logger        *slog.Logger    // optional, defaults to slog.Default()
	ProcessExited <-chan struct{} // if non-nil, closing it aborts polling
}

func (c WaitReadyConfig) validate() error {
	if c.Name == "" {
		return errors.New("wait ready: name must not be empty")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("wait for %s: %w", c.Name, ErrIntervalNotPositive)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("wait for %s: %w", c.Name, ErrTimeoutNotPositive)
	}
	if c.InitialDelay < 0 {
		return fmt.Errorf("wait for %s: %w", c.Name, ErrInitialDelayNegative)
	}
	return nil
}

// WaitReady waits InitialDelay, then calls check with a fixed delay of
// Interval between probes until it reports ready, fails, the process exits,
// or Timeout elapses. Probes never overlap. Liveness is checked before every
// probe. A probe that is already running when the deadline passes and then
// succeeds still counts as ready.
func WaitReady(ctx context.Context, cfg WaitReadyConfig, check ReadinessCheck) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	readyCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := sleepUnlessExited(readyCtx, cfg.InitialDelay, cfg.ProcessExited); err != nil {
		return cfg.wrap(ctx, err)
	}

	// attempt needs no synchronization: the backoff loop calls the condition
	// sequentially from this goroutine.
	attempt := 0
	backoff := wait.Backoff{Duration: cfg.Interval, Steps: math.MaxInt32}
	err := wait.ExponentialBackoffWithContext(readyCtx, backoff, func(probeCtx context.Context) (bool, error) {
		if cfg.ProcessExited != nil {
			select {
			case <-cfg.ProcessExited:
				return false, fmt.Errorf("process %s: %w", cfg.Name, ErrProcessExited)
			default:
			}
		}

		attempt++
		ready, err := check(probeCtx, attempt)
		if err != nil {
			return false, err
		}
		if ready {
			log.Debug("wait succeeded", "name", cfg.Name, "port", cfg.Port, "attempt", attempt)
		}
		return ready, nil
	})
	if err != nil {
		return cfg.wrap(ctx, err)
	}
	return nil
}

// wrap converts a deadline on the readiness context into ErrReadyTimeout.
// Cancellation by the parent context is reported as the parent's error.
func (c WaitReadyConfig) wrap(parent context.Context, err error) error {
	if wait.Interrupted(err) || errors.Is(err, context.DeadlineExceeded) {
		if perr := parent.Err(); perr != nil {
			err = perr
		} else {
			err = fmt.Errorf("%w after %s", ErrReadyTimeout, c.Timeout)
		}
	}
	return fmt.Errorf("wait for %s readiness on port %d: %w", c.Name, c.Port, err)
}

// sleepUnlessExited waits d, returning early with ErrProcessExited if exited
// closes or with the context error if ctx ends.
func sleepUnlessExited(ctx context.Context, d time.Duration, exited <-chan struct{}) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-exited:
		return ErrProcessExited
	case <-ctx.Done():
		return ctx.Err()
	}
}
