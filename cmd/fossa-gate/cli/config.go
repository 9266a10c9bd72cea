package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/davarch/fossa-gate/internal/infrastructure/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	showYAML  bool
	initForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the config file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (token redacted)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = cfg.Redacted()

		out := cmd.OutOrStdout()
		if showYAML {
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(&cfg); err != nil {
				return err
			}
			return enc.Close()
		}

		locator := cfg.Locator()
		if locator == "" {
			locator = "(unset)"
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "KEY\tVALUE")
		_, _ = fmt.Fprintf(w, "api.base_url\t%s\n", cfg.API.BaseURL)
		_, _ = fmt.Fprintf(w, "api.token\t%s\n", orUnset(cfg.API.Token))
		_, _ = fmt.Fprintf(w, "api.timeout\t%s\n", cfg.API.Timeout)
		_, _ = fmt.Fprintf(w, "revision.locator\t%s\n", locator)
		_, _ = fmt.Fprintf(w, "poll.timeout\t%s\n", cfg.Poll.Timeout)
		_, _ = fmt.Fprintf(w, "poll.interval\t%s\n", cfg.Poll.Interval)
		_, _ = fmt.Fprintf(w, "poll.abort_file\t%s\n", orUnset(cfg.Poll.AbortFile))
		_, _ = fmt.Fprintf(w, "report.path\t%s\n", orUnset(cfg.Report.Path))
		_, _ = fmt.Fprintf(w, "log.level\t%s\n", cfg.Log.Level)
		return w.Flush()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file to --config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfgPath); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		if err := config.Save(cfgPath, config.Default()); err != nil {
			return err
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote: %s\n", cfgPath)
		return nil
	},
}

func init() {
	configShowCmd.Flags().BoolVar(&showYAML, "yaml", false, "print YAML")
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configShowCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}
