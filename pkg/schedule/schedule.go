package schedule

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Task is one periodic worker pass. A pass that returns an error delays the
// next attempt by ErrBackoff instead of Interval; the loop itself never exits
// until the context is cancelled.
type Task struct {
	Name       string
	Interval   time.Duration
	ErrBackoff time.Duration
	Run        func(ctx context.Context) error
}

// Loop runs the task until ctx is done, passing first and sleeping after, so
// the first pass lands at startup rather than one interval in. It blocks;
// callers start it on its own goroutine.
func Loop(ctx context.Context, task Task) {
	backoff := task.ErrBackoff
	if backoff <= 0 {
		backoff = task.Interval
	}

	zerolog.Ctx(ctx).Info().Str("task", task.Name).Dur("interval", task.Interval).Msg("worker started")

	timer := time.NewTimer(task.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			zerolog.Ctx(ctx).Info().Str("task", task.Name).Msg("worker stopped")
			return
		default:
		}

		wait := task.Interval
		if err := task.Run(ctx); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("task", task.Name).Msg("worker pass failed")
			wait = backoff
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			zerolog.Ctx(ctx).Info().Str("task", task.Name).Msg("worker stopped")
			return
		case <-timer.C:
		}
	}
}
