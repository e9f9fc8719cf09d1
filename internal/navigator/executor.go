// File: internal/navigator/executor.go
package navigator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sumant2123/Travel-Itineary-Planner/internal/command"
)

// Outcome is the executor's verdict for one action.
type Outcome string

const (
	// OutcomeContinue means the loop proceeds to the next iteration.
	OutcomeContinue Outcome = "continue"
	// OutcomeTerminate means the oracle signalled completion.
	OutcomeTerminate Outcome = "terminate"
	// OutcomeActionFailed means the browser interaction failed. The failure
	// is contained here; the oracle sees the resulting state next screenshot
	// and can recover or repeat.
	OutcomeActionFailed Outcome = "action_failed"
)

// ExecResult reports how executing an action went. Reason is only set for
// OutcomeActionFailed.
type ExecResult struct {
	Outcome Outcome
	Reason  error
}

// Executor applies decoded actions against the live browser session. Every
// browser-interaction failure (element not found, stale reference, click
// intercepted, no focused element) is caught at this boundary and reported as
// an ExecResult, never propagated as the run's failure.
type Executor struct {
	session      Session
	clickTimeout time.Duration
	logger       *zap.Logger
	sleep        sleepFunc
}

// NewExecutor wires an executor to a session. clickTimeout bounds how long a
// Click waits for its element to become clickable.
func NewExecutor(session Session, clickTimeout time.Duration, logger *zap.Logger) *Executor {
	return &Executor{
		session:      session,
		clickTimeout: clickTimeout,
		logger:       logger.Named("executor"),
		sleep:        sleepCtx,
	}
}

// Execute applies one action. It never returns an error; failures are folded
// into the result.
func (e *Executor) Execute(ctx context.Context, action command.Action) ExecResult {
	switch action.Type {
	case command.ActionClick:
		e.logger.Info("Attempting to click element.",
			zap.String("selector", action.Selector),
			zap.String("kind", string(action.SelectorKind)),
		)
		if err := e.session.ClickSelector(ctx, action.Selector, action.SelectorKind, e.clickTimeout); err != nil {
			e.logger.Error("Failed to click element.", zap.String("selector", action.Selector), zap.Error(err))
			return ExecResult{Outcome: OutcomeActionFailed, Reason: err}
		}
		e.logger.Info("Successfully clicked element.")
		return ExecResult{Outcome: OutcomeContinue}

	case command.ActionTypeText:
		e.logger.Info("Attempting to type text.", zap.String("text", action.Text))
		if err := e.session.TypeActive(ctx, action.Text); err != nil {
			e.logger.Error("Failed to type text.", zap.Error(err))
			return ExecResult{Outcome: OutcomeActionFailed, Reason: err}
		}
		e.logger.Info("Successfully typed text.")
		return ExecResult{Outcome: OutcomeContinue}

	case command.ActionWait:
		d := time.Duration(action.Seconds * float64(time.Second))
		e.logger.Info("Waiting.", zap.Duration("duration", d))
		if err := e.sleep(ctx, d); err != nil {
			return ExecResult{Outcome: OutcomeActionFailed, Reason: err}
		}
		return ExecResult{Outcome: OutcomeContinue}

	case command.ActionDone:
		// No browser interaction; the loop owns the shutdown.
		return ExecResult{Outcome: OutcomeTerminate}

	default:
		// Unrecognized replies are a defined no-op, not an error.
		e.logger.Warn("Guidance matched no known grammar; skipping iteration.")
		return ExecResult{Outcome: OutcomeContinue}
	}
}

type sleepFunc func(ctx context.Context, d time.Duration) error

// sleepCtx is a context-aware sleep. It returns early with the context error
// if the run is cancelled mid-wait.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
