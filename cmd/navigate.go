// File: cmd/navigate.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sumant2123/Travel-Itineary-Planner/internal/browser"
	"github.com/sumant2123/Travel-Itineary-Planner/internal/config"
	"github.com/sumant2123/Travel-Itineary-Planner/internal/navigator"
	"github.com/sumant2123/Travel-Itineary-Planner/internal/observability"
	"github.com/sumant2123/Travel-Itineary-Planner/internal/oracle"
)

// newNavigateCmd creates and configures the `navigate` command.
func newNavigateCmd() *cobra.Command {
	navigateCmd := &cobra.Command{
		Use:   "navigate [start-url]",
		Short: "Runs the vision-guided navigation loop until the oracle reports DONE",
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their Viper keys so command-line values override
			// the config file and environment with the right precedence.
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			if err := viper.BindPFlag("navigator.task", cmd.Flags().Lookup("task")); err != nil {
				return err
			}
			return viper.BindPFlag("navigator.max_steps", cmd.Flags().Lookup("max-steps"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			cfg, err := config.NewFromViper(viper.GetViper())
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.Navigator.StartURL = args[0]
			}

			runID := uuid.New().String()
			logger.Info("Starting navigation run",
				zap.String("run_id", runID),
				zap.String("start_url", cfg.Navigator.StartURL),
				zap.String("model", cfg.Oracle.Model),
				zap.Int("max_steps", cfg.Navigator.MaxSteps),
			)

			// A signal-aware context so an interrupt aborts the current step
			// and still runs every deferred cleanup path.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runNavigation(ctx, cfg, logger)
		},
	}

	navigateCmd.Flags().Bool("headless", false, "run the browser without a visible window")
	navigateCmd.Flags().String("task", "", "override the task instruction sent to the oracle")
	navigateCmd.Flags().Int("max-steps", 0, "abort after this many iterations (0 = unbounded)")

	return navigateCmd
}

// runNavigation builds the run's components and drives the loop. Any error it
// returns is a fatal/setup failure and surfaces as a non-zero exit status.
func runNavigation(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	// The oracle client is built first: a missing credential should fail the
	// run before a browser ever launches.
	guide, err := oracle.NewClient(cfg.Oracle, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize guidance oracle: %w", err)
	}

	session, err := browser.New(ctx, cfg.Browser, logger)
	if err != nil {
		return fmt.Errorf("failed to start browser session: %w", err)
	}
	// The navigator closes the session on every exit path; this extra close
	// is an idempotent backstop for panics between here and Run.
	defer session.Close()

	nav := navigator.New(session, guide, cfg.Navigator, cfg.Browser.ClickTimeout, logger)

	if err := nav.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("Navigation aborted by user signal")
			return fmt.Errorf("navigation aborted by user signal")
		}
		return fmt.Errorf("navigation failed: %w", err)
	}

	logger.Info("Navigation completed successfully")
	return nil
}
