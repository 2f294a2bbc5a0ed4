package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fieldops/internal/httpapi"
	"fieldops/internal/identity"
	"fieldops/internal/realtime"
	"fieldops/internal/report"
	"fieldops/internal/store"
	"fieldops/internal/task"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP coordination server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() {
				if err := st.Close(); err != nil {
					log.Printf("WARNING: store close: %v", err)
				}
			}()

			registry := realtime.NewRegistry()
			dispatcher := realtime.NewDispatcher(registry)
			ident := identity.NewService(st, identity.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL.Std()))
			tasks := task.NewService(st, dispatcher)
			reports := report.NewGenerator(st, cfg.ReportsDir)

			api := httpapi.New(ident, tasks, st, reports, registry)
			srv := &http.Server{
				Addr:    cfg.Addr,
				Handler: api.Router(),
			}

			// Graceful shutdown on interrupt.
			errCh := make(chan error, 1)
			go func() {
				log.Printf("fieldops listening on %s", cfg.Addr)
				errCh <- srv.ListenAndServe()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case sig := <-sigCh:
				log.Printf("received %s, shutting down", sig)
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(ctx); err != nil {
					return fmt.Errorf("shutdown: %w", err)
				}
				return nil
			}
		},
	}
}
