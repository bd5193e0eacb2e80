package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chriamue/didcomm-mediator/internal/logger"
	transporthttp "github.com/chriamue/didcomm-mediator/internal/transport/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the mediator HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, configDir)
		if err != nil {
			return err
		}

		srv := &transporthttp.Server{
			Dispatcher: newDispatcher(a),
			Wallet:     a.wallet,
			Health:     newHealthChecker(a),
			ExtService: a.cfg.Identity.ExtService,
			Ident:      a.cfg.Identity.Ident,
			Log:        a.log,
		}
		mux := transporthttp.NewServer(srv)

		httpServer := &http.Server{
			Addr:    a.cfg.Server.ListenAddr,
			Handler: mux,
		}

		did, err := a.wallet.DID()
		if err == nil {
			a.log.Info("mediator starting", logger.String("did", did), logger.String("listen_addr", a.cfg.Server.ListenAddr))
		}

		errCh := make(chan error, 1)
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
