// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sightline-ai/sightline/api/schemas"
	"github.com/sightline-ai/sightline/internal/agent"
	"github.com/sightline-ai/sightline/internal/artifacts"
	"github.com/sightline-ai/sightline/internal/config"
	"github.com/sightline-ai/sightline/internal/executor"
	"github.com/sightline-ai/sightline/internal/input"
	cdpdriver "github.com/sightline-ai/sightline/internal/input/cdp"
	"github.com/sightline-ai/sightline/internal/llmclient"
	"github.com/sightline-ai/sightline/internal/observability"
	"github.com/sightline-ai/sightline/internal/perception"
	"github.com/sightline-ai/sightline/internal/planner"
	"github.com/sightline-ai/sightline/internal/store"
)

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run \"<goal>\"",
		Short: "Drives the UI toward the given natural-language goal",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags over their viper keys so the CLI overrides config
			// file and environment values.
			if err := viper.BindPFlag("agent.max_steps", cmd.Flags().Lookup("max-steps")); err != nil {
				return err
			}
			if err := viper.BindPFlag("input.driver", cmd.Flags().Lookup("driver")); err != nil {
				return err
			}
			if err := viper.BindPFlag("input.target_url", cmd.Flags().Lookup("target-url")); err != nil {
				return err
			}
			return viper.BindPFlag("artifacts.dir", cmd.Flags().Lookup("output"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			goal := args[0]

			cfg := appCfg
			// Flags were bound after the initial load; re-unmarshal so they
			// take effect.
			if err := viper.Unmarshal(cfg); err != nil {
				return fmt.Errorf("failed to apply flag overrides: %w", err)
			}
			if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
				cfg.Input.Driver = config.DriverNoop
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			components, err := initializeRunComponents(ctx, cfg, logger)
			if err != nil {
				if components != nil {
					components.Shutdown()
				}
				return fmt.Errorf("failed to initialize run components: %w", err)
			}
			defer components.Shutdown()

			report, err := components.Agent.Run(ctx, goal)
			if err != nil && errors.Is(err, context.Canceled) {
				logger.Warn("Run aborted by user signal", zap.String("run_id", report.RunID))
			}

			printReport(cmd, report, components.ArtifactDir)

			if report.Outcome == schemas.OutcomeFailed {
				return fmt.Errorf("run %s failed: %s", report.RunID, report.LastError)
			}
			return nil
		},
	}

	runCmd.Flags().IntP("max-steps", "n", 0, "Maximum number of action steps. (Overrides config/env)")
	runCmd.Flags().String("driver", "", "Input driver: 'cdp' or 'noop'. (Overrides config/env)")
	runCmd.Flags().String("target-url", "", "Chromium target URL for the cdp driver. (Overrides config/env)")
	runCmd.Flags().StringP("output", "o", "", "Base directory for run artifacts. (Overrides config/env)")
	runCmd.Flags().Bool("dry-run", false, "Log actions instead of dispatching them (forces the noop driver).")

	return runCmd
}

// runComponents holds the initialized services behind one run.
type runComponents struct {
	Agent       *agent.Agent
	ArtifactDir func() string
	closers     []func()
}

// Shutdown releases resources in reverse construction order.
func (rc *runComponents) Shutdown() {
	for i := len(rc.closers) - 1; i >= 0; i-- {
		rc.closers[i]()
	}
}

// initializeRunComponents handles dependency injection for the run command.
func initializeRunComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*runComponents, error) {
	components := &runComponents{ArtifactDir: func() string { return "" }}

	// 1. Input driver and screenshot source.
	var (
		driver input.Driver
		shot   schemas.Screenshotter
	)
	switch cfg.Input.Driver {
	case config.DriverCDP:
		cdp, err := cdpdriver.New(ctx, cfg.Input, logger)
		if err != nil {
			return components, err
		}
		components.closers = append(components.closers, cdp.Close)
		driver, shot = cdp, cdp
	case config.DriverNoop:
		driver = input.NewNoopDriver(logger)
		shot = staticScreen{}
	default:
		return components, fmt.Errorf("unsupported input driver: %q", cfg.Input.Driver)
	}

	// 2. Perception: the remote parser behind a capturer, probed up front so
	// a dead parser fails the run before the first step.
	parserClient := perception.NewOmniParserClient(cfg.Parser.URL, cfg.Parser.Timeout, logger)
	if err := parserClient.Probe(ctx); err != nil {
		logger.Warn("Parser probe failed; perception will retry per step", zap.Error(err))
	}
	capturer := perception.NewCapturer(shot, parserClient, logger)

	// 3. Planner over the configured LLM.
	llm, err := llmclient.New(ctx, cfg.LLM, logger)
	if err != nil {
		return components, err
	}
	plan := planner.New(llm, cfg.Agent.HistoryWindow, cfg.Agent.MaxPromptElements, logger)

	// 4. Executor.
	exec := executor.New(driver, shot, cfg.Scaling(), logger)

	// 5. Artifact sinks.
	var sinks artifacts.MultiSink
	if cfg.Artifacts.Enabled {
		fsSink := artifacts.NewFSSink(cfg.Artifacts.Dir, logger)
		sinks = append(sinks, fsSink)
		components.ArtifactDir = fsSink.RunDir
	}
	if cfg.Database.DSN != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.DSN)
		if err != nil {
			return components, fmt.Errorf("failed to connect to database: %w", err)
		}
		components.closers = append(components.closers, pool.Close)
		archive, err := store.New(ctx, pool, logger)
		if err != nil {
			return components, fmt.Errorf("failed to initialize run archive: %w", err)
		}
		if err := archive.EnsureSchema(ctx); err != nil {
			return components, err
		}
		sinks = append(sinks, store.NewSink(archive))
	}
	var sink artifacts.Sink
	if len(sinks) > 0 {
		sink = sinks
	}

	// 6. The loop itself.
	components.Agent = agent.New(capturer, plan, exec, sink, agent.Options{
		MaxSteps:               cfg.Agent.MaxSteps,
		MaxConsecutiveFailures: cfg.Agent.MaxConsecutiveFailures,
		PerceptionRetries:      cfg.Agent.PerceptionRetries,
		PerceptionTimeout:      cfg.Agent.PerceptionTimeout,
		PlanningTimeout:        cfg.Agent.PlanningTimeout,
		SettleDelay:            cfg.Agent.SettleDelay,
		PlatformHint:           runtime.GOOS,
	}, logger)

	return components, nil
}

// printReport renders the terminal summary for one finished run.
func printReport(cmd *cobra.Command, report *schemas.RunReport, artifactDir func() string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nRun %s: %s\n", report.RunID, report.Outcome)
	fmt.Fprintf(out, "Goal: %s\n", report.Goal)
	fmt.Fprintf(out, "Steps: %d (%s)\n", report.Steps, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	for _, entry := range report.History {
		status := "ok"
		if !entry.Success {
			status = "FAILED"
		}
		fmt.Fprintf(out, "  %2d. [%s] %s\n", entry.Step, status, entry.Summary)
	}
	if report.LastError != "" {
		fmt.Fprintf(out, "Last error: %s\n", report.LastError)
	}
	if dir := artifactDir(); dir != "" {
		fmt.Fprintf(out, "Artifacts: %s\n", dir)
	}
}

// staticScreen backs dry runs with a synthetic blank display so the
// perception pipeline still exercises end to end.
type staticScreen struct{}

var _ schemas.Screenshotter = staticScreen{}

func (staticScreen) CaptureScreen(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, 1920, 1080))
	bg := color.NRGBA{R: 32, G: 32, B: 32, A: 255}
	for y := 0; y < 1080; y++ {
		for x := 0; x < 1920; x++ {
			img.SetNRGBA(x, y, bg)
		}
	}
	return img, nil
}
