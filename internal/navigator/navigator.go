// File: internal/navigator/navigator.go
//
// The navigator owns the perception-decide-act control loop: screenshot the
// browser, ask the guidance oracle for the next single step, decode it, apply
// it, repeat until DONE or a fatal failure. It is deliberately
// single-threaded and memoryless across iterations; the only state it carries
// is the live session handle and the iteration counter.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sumant2123/Travel-Itineary-Planner/internal/command"
	"github.com/sumant2123/Travel-Itineary-Planner/internal/config"
	"github.com/sumant2123/Travel-Itineary-Planner/internal/oracle"
)

// Session is the browser capability set the loop needs. *browser.Session
// satisfies it; tests substitute fakes.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Screenshot(ctx context.Context) ([]byte, error)
	ClickSelector(ctx context.Context, selector string, kind command.SelectorKind, timeout time.Duration) error
	TypeActive(ctx context.Context, text string) error
	Close()
}

// Oracle proposes exactly one next step for a given screenshot.
type Oracle interface {
	Guide(ctx context.Context, snapshot []byte, task string) (string, error)
}

// ErrStepBudgetExhausted is returned when the optional max_steps guard fires.
// The guard is off by default; the loop is unbounded unless an operator opts in.
var ErrStepBudgetExhausted = errors.New("maximum step count reached before DONE")

// Navigator runs the control loop over one exclusively-owned browser session.
type Navigator struct {
	session  Session
	oracle   Oracle
	executor *Executor
	cfg      config.NavigatorConfig
	logger   *zap.Logger

	// pacer spaces loop iterations so neither the browser nor the oracle is
	// hammered back-to-back.
	pacer *rate.Limiter
	sleep sleepFunc
}

// New assembles a navigator. clickTimeout comes from the browser config
// because it bounds a browser-side wait, not an oracle decision.
func New(session Session, guide Oracle, cfg config.NavigatorConfig, clickTimeout time.Duration, logger *zap.Logger) *Navigator {
	log := logger.Named("navigator")

	pacer := rate.NewLimiter(rate.Every(cfg.IterationDelay), 1)
	// Drain the initial token so the very first pacing wait already spaces
	// the loop instead of passing through for free.
	pacer.Allow()

	return &Navigator{
		session:  session,
		oracle:   guide,
		executor: NewExecutor(session, clickTimeout, log),
		cfg:      cfg,
		logger:   log,
		pacer:    pacer,
		sleep:    sleepCtx,
	}
}

// Run drives the loop from Starting through Running to Terminated or Failed.
// The session is released on every exit path. Only setup failures and
// explicit cancellation produce a non-nil error; iteration-level trouble is
// logged and recovered from inside the loop.
func (n *Navigator) Run(ctx context.Context) error {
	defer n.session.Close()

	// -- Starting --
	if err := n.session.Navigate(ctx, n.cfg.StartURL); err != nil {
		return fmt.Errorf("failed to open start location: %w", err)
	}
	n.logger.Info("Waiting for initial page load.", zap.Duration("settle_delay", n.cfg.SettleDelay))
	if err := n.sleep(ctx, n.cfg.SettleDelay); err != nil {
		return err
	}

	// -- Running --
	for iteration := 1; ; iteration++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if n.cfg.MaxSteps > 0 && iteration > n.cfg.MaxSteps {
			return fmt.Errorf("%w (%d)", ErrStepBudgetExhausted, n.cfg.MaxSteps)
		}

		log := n.logger.With(zap.Int("iteration", iteration))
		log.Debug("Starting navigation iteration.")

		done, err := n.step(ctx, log)
		if err != nil {
			// Fatal errors and cancellation abort the run; everything else
			// was already absorbed by step.
			return err
		}
		if done {
			log.Info("Target state reached.")
			return nil
		}

		// Fixed inter-iteration delay, applied after every completed
		// iteration regardless of its outcome. This is what gives the page
		// settle time between an executed action and the next screenshot,
		// so it must not be absorbed by time the iteration already spent.
		if err := n.sleep(ctx, n.cfg.IterationDelay); err != nil {
			return err
		}
		// The pacer additionally caps how often iterations may start, which
		// matters when the delay is tuned down but the oracle is fast.
		if err := n.pacer.Wait(ctx); err != nil {
			return err
		}
	}
}

// step performs one capture → guide → interpret → execute cycle. It returns
// done=true when the oracle signalled DONE. Iteration-level failures are
// logged and absorbed (after the recovery delay where applicable); only
// run-fatal conditions surface as an error.
func (n *Navigator) step(ctx context.Context, log *zap.Logger) (done bool, err error) {
	snapshot, err := n.session.Screenshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		log.Error("Screen capture failed; recovering.", zap.Error(err))
		return false, n.recover(ctx)
	}

	reply, err := n.oracle.Guide(ctx, snapshot, n.cfg.Task)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if oracle.IsFatal(err) {
			return false, fmt.Errorf("guidance oracle failed permanently: %w", err)
		}
		log.Error("Guidance unavailable after retries; recovering.", zap.Error(err))
		return false, n.recover(ctx)
	}
	log.Info("Guidance received.", zap.String("guidance", reply))

	action, err := command.Interpret(reply)
	if err != nil {
		// Malformed payload on a known grammar: a logged no-op, never fatal.
		log.Warn("Guidance payload malformed; skipping iteration.", zap.Error(err))
		return false, nil
	}

	result := n.executor.Execute(ctx, action)
	switch result.Outcome {
	case OutcomeTerminate:
		return true, nil
	case OutcomeActionFailed:
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		log.Warn("Action failed; the oracle will reassess next screenshot.", zap.Error(result.Reason))
	}
	return false, nil
}

// recover pauses the fixed recovery delay before the loop re-enters from the
// top. The failed iteration is abandoned, not resumed mid-step.
func (n *Navigator) recover(ctx context.Context) error {
	return n.sleep(ctx, n.cfg.RecoveryDelay)
}
