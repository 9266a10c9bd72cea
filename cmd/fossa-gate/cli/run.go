package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/davarch/fossa-gate/internal/application"
	"github.com/davarch/fossa-gate/internal/domain"
	"github.com/davarch/fossa-gate/internal/infrastructure/abort_fs"
	"github.com/davarch/fossa-gate/internal/infrastructure/config"
	"github.com/davarch/fossa-gate/internal/infrastructure/fossa_http"
	"github.com/davarch/fossa-gate/internal/infrastructure/logging"
	"github.com/davarch/fossa-gate/internal/infrastructure/report_fs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runLocator   string
	runTimeout   time.Duration
	runAbortFile string
	runReport    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Submit the revision for a build and wait for a clean scan",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRunConfig(cmd)
		if err != nil {
			return err
		}

		log := logging.New(cfg.Log.Level, cfg.Log.Format)
		defer func() { _ = log.Sync() }()

		return runGate(cmd.Context(), log, cfg)
	},
}

func init() {
	runCmd.Flags().StringVar(&runLocator, "locator", "", "revision locator (default git+<CIRCLE_REPOSITORY_URL>$<CIRCLE_SHA1>)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "per-stage poll timeout (overrides FOSSA_POLL_TIMEOUT)")
	runCmd.Flags().StringVar(&runAbortFile, "abort-file", "", "stop waiting when this file appears")
	runCmd.Flags().StringVar(&runReport, "report", "", "write a JSON report of the run to this path")

	rootCmd.AddCommand(runCmd)
}

func loadRunConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("locator") {
		cfg.Revision.Locator = runLocator
	}
	if flags.Changed("timeout") {
		cfg.Poll.Timeout = runTimeout
	}
	if flags.Changed("abort-file") {
		cfg.Poll.AbortFile = runAbortFile
	}
	if flags.Changed("report") {
		cfg.Report.Path = runReport
	}

	return cfg, cfg.Validate()
}

func runGate(ctx context.Context, log *zap.Logger, cfg config.Config) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ctx, stop, err := abort_fs.Watch(ctx, log, cfg.Poll.AbortFile)
	if err != nil {
		return err
	}
	defer stop()

	var rw domain.ReportWriter
	if cfg.Report.Path != "" {
		rw = report_fs.New(cfg.Report.Path)
	}

	api := fossa_http.New(cfg.API.BaseURL, cfg.API.Token, cfg.API.Timeout)
	gate := application.NewGate(log, api, rw, application.Poller{
		Interval: cfg.Poll.Interval,
		Deadline: cfg.Poll.Timeout,
	})

	log.Info("start",
		zap.String("version", version),
		zap.String("fossa", cfg.API.BaseURL),
		zap.String("locator", cfg.Locator()),
		zap.Duration("poll_timeout", cfg.Poll.Timeout),
		zap.Duration("every", cfg.Poll.Interval),
		zap.String("abort_file", cfg.Poll.AbortFile),
		zap.String("report", cfg.Report.Path),
	)

	_, err = gate.Run(ctx, cfg.Locator())
	return err
}
