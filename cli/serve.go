package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"vote-ledger/api"
	"vote-ledger/logger"
	"vote-ledger/service"
)

func newServeCmd(base *baseConfiguration) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := base.openApp()
			if err != nil {
				return err
			}
			defer app.Close()
			return Serve(cmd.Context(), app)
		},
	}
}

// Serve runs the API, the mining queue and the snapshot loop until ctx is
// cancelled or one of them fails. A last snapshot is written on the way out.
func Serve(ctx context.Context, app *App) error {
	log := app.log
	cfg := app.Config

	queue := service.NewQueueProcessor(app.Service, cfg.QueueSize, logger.Module(log, "queue"))
	queue.Start()
	defer queue.Stop()

	server := api.NewServer(app.Service, queue, cfg.AdminAddress, logger.Module(log, "api"))
	httpServer := api.NewHTTPServer(fmt.Sprintf(":%d", cfg.Port), server.Handler())

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", httpServer.Addr).Msg("API server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("API server shutdown error")
		}
		log.Info().Msg("API server exited")
		return nil
	})

	g.Go(func() error {
		if cfg.SnapshotInterval <= 0 {
			return nil
		}
		ticker := time.NewTicker(cfg.SnapshotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := app.Snapshot(); err != nil {
					log.Error().Err(err).Msg("periodic snapshot failed")
				}
			}
		}
	})

	err := g.Wait()
	if snapErr := app.Snapshot(); snapErr != nil {
		log.Error().Err(snapErr).Msg("final snapshot failed")
	}
	return err
}
