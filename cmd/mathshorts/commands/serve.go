package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"math-shorts-pipeline/internal/api"
	"math-shorts-pipeline/internal/render"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p, err := a.pipeline(ctx, cmd)
			if err != nil {
				return err
			}
			defer p.Close()

			srv := &http.Server{
				Addr: addr,
				Handler: api.NewServer(api.Options{
					Pipeline:  p,
					Store:     p.Store(),
					History:   p.History(),
					Templates: render.DefaultTable().IDs(),
					Logger:    a.log,
				}),
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       30 * time.Second,
				// runs take minutes; no WriteTimeout
				IdleTimeout: 60 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				a.log.Info("server listening", "addr", addr)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return errorf(cmd, "Server stopped", err)
				}
				return nil
			case <-ctx.Done():
			}

			a.log.Info("shutdown signal received")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				a.log.Warn("graceful shutdown failed", "error", err)
				_ = srv.Close()
			}
			a.log.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	return cmd
}
