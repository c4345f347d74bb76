package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/JoshuaRamirez/ACS-sub017/internal/router"
	"github.com/JoshuaRamirez/ACS-sub017/internal/supervisor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the front router",
	Long: `Starts the multi-tenant front router. Tenant workers are spawned on demand
as child processes and health-checked; requests are forwarded to the worker
owning the resolved tenant.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sup, err := supervisor.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to create supervisor: %w", err)
		}
		defer sup.Close()

		r := router.New(cfg, sup)

		// Wrap router with h2c for HTTP/2 cleartext support (required for Connect RPC)
		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      h2c.NewHandler(r, &http2.Server{}),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			log.Printf("Starting router on %s", cfg.ServerAddr)
			if len(cfg.Tenants) > 0 {
				log.Printf("Serving tenants: %v", cfg.Tenants)
			}
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			log.Printf("Received signal %v, shutting down gracefully", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			log.Printf("Router stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
