// internal/cli/root.go
package cli

import (
	"context"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/quake/internal/app"
	"github.com/law-makers/quake/internal/config"
	"github.com/law-makers/quake/internal/ui"
)

const closeTimeout = 5 * time.Second

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quake",
	Short: "PHIVOLCS earthquake bulletins as JSON",
	Long: `Quake scrapes the PHIVOLCS latest-earthquake index and its bulletin pages.

It serves them as a rate-limited JSON API (quake serve) or works directly
from the command line (latest, details, export).`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// current is the application built for the running command; Execute closes it
var current *app.Application

// Execute runs the root command with ctx, which is cancelled on interrupt.
// It returns the command error so main can set the exit code.
func Execute(ctx context.Context) error {
	defer closeApp()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Command failed")
	}
	return err
}

func init() {
	config.RegisterFlags(rootCmd)

	// The application is built lazily so -h and --version never touch the network stack
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd)
		if err != nil {
			return err
		}

		// Command-line use keeps the console quiet unless asked otherwise
		if cmd.Name() != serveCmd.Name() && cfg.LogLevel == config.DefaultLogLevel {
			cfg.LogLevel = "warn"
		}

		ui.Enabled = !cfg.JSONLog && isatty.IsTerminal(os.Stdout.Fd())

		a, err := app.New(cfg)
		if err != nil {
			return err
		}

		current = a
		// A subcommand keeps the context of an earlier execution; use the current one
		cmd.SetContext(cmd.Root().Context())
		SetApp(cmd, a)
		return nil
	}
}

func closeApp() {
	if current == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	_ = current.Close(ctx)
	current = nil
}
