package main

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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/five82/lector/internal/devserver"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "lector-devserver: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		addr       string
		adminNick  string
		adminPass  string
		secret     string
		noSamples  bool
		requestLog bool
	)
	cmd := &cobra.Command{
		Use:           "lector-devserver",
		Short:         "Serve an in-memory library backend for local development",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gin.SetMode(gin.ReleaseMode)
			opts := []devserver.Option{devserver.WithSecret(secret)}
			if requestLog {
				opts = append(opts, devserver.WithRequestLog())
			}
			srv := devserver.New(opts...)
			if _, err := srv.SeedAdmin(adminNick, adminPass); err != nil {
				return err
			}
			if !noSamples {
				if err := srv.SeedSamples(); err != nil {
					return err
				}
			}
			return serve(cmd.Context(), addr, srv.Handler())
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	flags.StringVar(&adminNick, "admin", "admin", "administrator nick")
	flags.StringVar(&adminPass, "admin-password", "admin", "administrator password")
	flags.StringVar(&secret, "secret", "", "JWT signing key (random when empty)")
	flags.BoolVar(&noSamples, "empty", false, "start without sample readers and books")
	flags.BoolVar(&requestLog, "log-requests", false, "log every request")
	return cmd
}

func serve(ctx context.Context, addr string, handler http.Handler) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("devserver listening on http://%s", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Printf("devserver stopped")
	return nil
}
