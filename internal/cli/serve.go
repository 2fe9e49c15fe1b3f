package cli

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON API server",
	Long: `Serve exposes the scraper over HTTP:

  GET /api/phivolcs/latest           latest earthquakes
  GET /api/phivolcs/details?url=...  one bulletin
  GET /healthz                       liveness and cache stats

Every client is rate limited per endpoint with a fixed window.`,
	Example: `  # Listen on the default address
  quake serve

  # Share rate-limit windows between instances through Redis
  QUAKE_REDIS_ADDR=localhost:6379 quake serve --addr :9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	if a == nil {
		return errors.New("application not initialized")
	}
	ctx := cmd.Context()

	srv, err := a.Server(ctx)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Warn().Msg("Interrupt received, shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
