// Package cmd contains all fisioctl commands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fisioonhand/goSession/internal/config"
	"github.com/fisioonhand/goSession/internal/output"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "fisioctl",
	Short: "FisioOnHand practitioner CLI",
	Long: `fisioctl keeps a practitioner session on this machine and uses it to
work with patients, assessment records and notes.

The session survives restarts: it is stored in a local bbolt file (or Redis)
and checked against the server before each command.

Example usage:
  fisioctl login --email ana@clinic.com.br    # Sign in (password prompt via --password-stdin)
  fisioctl status                             # Show who is signed in
  fisioctl patients list                      # List your patients
  fisioctl notes add 12 --text "Evolução boa"  # Add a note to record 12
  fisioctl logout                             # Sign out and forget the session`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .fisioctl.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func initConfig() error {
	var err error

	cfg, err = config.Load(cfgFile)
	if err != nil {
		return &output.CLIError{
			Summary:    "invalid configuration",
			Detail:     err.Error(),
			Suggestion: "check .fisioctl.yaml and FISIOCTL_* environment variables",
			ExitCode:   output.ExitConfigError,
			Err:        err,
		}
	}

	level := slog.LevelWarn
	switch {
	case verbose || cfg.Logging.Level == "debug":
		level = slog.LevelDebug
	case cfg.Logging.Level == "info":
		level = slog.LevelInfo
	case cfg.Logging.Level == "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Logging.Format == "json" {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, opts))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stderr, opts))
	}

	logger.Debug("configuration loaded",
		"api", cfg.API.BaseURL,
		"backend", cfg.Session.Backend,
		"verify_on_start", cfg.Session.VerifyOnStart,
	)
	return nil
}

func newPrinter(cmd *cobra.Command) *output.Printer {
	colors := false
	if cfg != nil {
		colors = output.ResolveColors(cfg.Output.Colors)
	}
	return output.NewPrinterTo(cmd.OutOrStdout(), cmd.ErrOrStderr(), colors)
}

func usageError(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return &output.CLIError{Summary: msg, ExitCode: output.ExitUsageError}
}
