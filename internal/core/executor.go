package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"extension-mirror/internal/ports"
	"extension-mirror/internal/types"
)

const defaultKillGrace = 10 * time.Second

// TaskExecutor runs one publish procedure under a deadline. KillGrace bounds
// how long RunBounded waits for a cancelled procedure to return.
type TaskExecutor struct {
	Clock     func() time.Time
	KillGrace time.Duration
}

func NewTaskExecutor() TaskExecutor {
	return TaskExecutor{Clock: time.Now, KillGrace: defaultKillGrace}
}

// RunBounded launches the procedure on its own goroutine and arms the
// deadline at the same moment. Whichever finishes first decides the outcome;
// the deadline is disarmed before RunBounded returns. On expiry the
// procedure's context is cancelled, which a process-backed procedure turns
// into an immediate kill of its process group, and RunBounded waits for the
// procedure to return before reporting TimedOut. A procedure that ignores
// cancellation is abandoned after KillGrace.
func (e TaskExecutor) RunBounded(ctx context.Context, procedure ports.Procedure, timeout time.Duration) types.TaskOutcome {
	if timeout <= 0 {
		timeout = types.DefaultTimeoutMinutes * time.Minute
	}
	clock := e.Clock
	if clock == nil {
		clock = time.Now
	}
	start := clock()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- runIsolated(runCtx, procedure)
	}()

	select {
	case err := <-done:
		elapsed := clock().Sub(start)
		if err != nil {
			return types.TaskOutcome{
				Status:   types.TaskStatusFailure,
				Reason:   err.Error(),
				Err:      err,
				Duration: elapsed,
			}
		}
		return types.TaskOutcome{Status: types.TaskStatusSuccess, Duration: elapsed}
	case <-runCtx.Done():
		if !e.awaitTermination(done) {
			log.Warn().Dur("grace", e.killGrace()).Msg("publish procedure ignored cancellation, abandoning it")
		}
		elapsed := clock().Sub(start)
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return types.TaskOutcome{
				Status:   types.TaskStatusTimedOut,
				Reason:   fmt.Sprintf("exceeded timeout of %s", timeout),
				Err:      runCtx.Err(),
				Duration: elapsed,
			}
		}
		return types.TaskOutcome{
			Status:   types.TaskStatusFailure,
			Reason:   "cancelled",
			Err:      runCtx.Err(),
			Duration: elapsed,
		}
	}
}

// awaitTermination waits for the cancelled procedure to return. It reports
// false when the grace period ran out first.
func (e TaskExecutor) awaitTermination(done <-chan error) bool {
	grace := time.NewTimer(e.killGrace())
	defer grace.Stop()
	select {
	case <-done:
		return true
	case <-grace.C:
		return false
	}
}

func (e TaskExecutor) killGrace() time.Duration {
	if e.KillGrace <= 0 {
		return defaultKillGrace
	}
	return e.KillGrace
}

// runIsolated turns a panicking procedure into an ordinary failure.
func runIsolated(ctx context.Context, procedure ports.Procedure) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("publish procedure panicked: %v", recovered)
		}
	}()
	if procedure == nil {
		return errors.New("publish procedure is nil")
	}
	return procedure.Run(ctx)
}
