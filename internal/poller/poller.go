// Package poller watches the datastore for the rows an asynchronous scoring
// job writes, at a fixed interval and for a bounded number of attempts.
package poller

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type State string

const (
	StateIdle      State = "idle"
	StatePolling   State = "polling"
	StateSucceeded State = "succeeded"
	StateTimedOut  State = "timed_out"
	StateCancelled State = "cancelled"
)

// Settled reports whether s is terminal.
func (s State) Settled() bool {
	return s == StateSucceeded || s == StateTimedOut || s == StateCancelled
}

// TimeoutMessage is shown when the attempt budget runs out.
const TimeoutMessage = "Scoring is taking longer than expected. Refresh the candidate list in a few minutes."

type Config struct {
	Interval    time.Duration
	MaxAttempts int
}

func DefaultConfig() Config {
	return Config{Interval: 5 * time.Second, MaxAttempts: 60}
}

// CountFunc reads the current number of rows for the job being watched.
type CountFunc func(ctx context.Context) (int, error)

// Outcome is the settled result of one poll run.
type Outcome struct {
	State    State
	Attempts int
	Count    int
	Message  string
}

// Poll reads count once per interval, the first read one interval after the
// call. It returns as soon as the count exceeds baseline, after exactly
// cfg.MaxAttempts reads without an increase, or when ctx is cancelled.
// A failed read uses up an attempt. onTick, if set, sees every read.
func Poll(ctx context.Context, cfg Config, baseline int, count CountFunc, log *zap.Logger, onTick func(attempt, count int)) Outcome {
	if cfg.Interval <= 0 || cfg.MaxAttempts <= 0 {
		def := DefaultConfig()
		if cfg.Interval <= 0 {
			cfg.Interval = def.Interval
		}
		if cfg.MaxAttempts <= 0 {
			cfg.MaxAttempts = def.MaxAttempts
		}
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	out := Outcome{Count: baseline}
	for {
		select {
		case <-ctx.Done():
			out.State = StateCancelled
			out.Message = "polling stopped"
			return out
		case <-ticker.C:
		}

		out.Attempts++
		n, err := count(ctx)
		if err != nil {
			if ctx.Err() != nil {
				out.State = StateCancelled
				out.Message = "polling stopped"
				return out
			}
			log.Warn("count read failed", zap.Int("attempt", out.Attempts), zap.Error(err))
		} else {
			out.Count = n
		}
		if onTick != nil {
			onTick(out.Attempts, out.Count)
		}

		if err == nil && n > baseline {
			out.State = StateSucceeded
			out.Message = "new candidates scored"
			return out
		}
		if out.Attempts >= cfg.MaxAttempts {
			out.State = StateTimedOut
			out.Message = TimeoutMessage
			return out
		}
	}
}
