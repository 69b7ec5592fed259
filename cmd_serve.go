package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-ledger/internal/models"
	"marketplace-ledger/internal/router"
	"marketplace-ledger/internal/services"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Replay the journal and start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, database, err := boot()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := migrate(database, log); err != nil {
			return err
		}

		var genesis models.Identity
		if cfg.GenesisAdmin != "" {
			genesis, err = models.ParseIdentity(cfg.GenesisAdmin)
			if err != nil {
				return fmt.Errorf("GENESIS_ADMIN: %w", err)
			}
		}

		wallet := services.NewWalletService(database, log)
		marketplace, err := services.NewMarketplaceService(cmd.Context(), database, log, wallet, genesis, cfg.BreakerActive)
		if err != nil {
			return fmt.Errorf("failed to load ledger: %w", err)
		}
		auth := services.NewAuthService(cfg.JWTSecret, cfg.TokenTTL, log)

		r := router.SetupRouter(router.Dependencies{
			Marketplace: marketplace,
			Wallet:      wallet,
			Auth:        auth,
			RateLimit:   rate.Limit(cfg.RateLimit),
			RateBurst:   cfg.RateBurst,
		}, log)

		server := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("port", cfg.Port).Msg("Server listening")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		select {
		case <-quit:
			log.Info().Msg("Shutdown signal received")
		case err := <-errCh:
			return fmt.Errorf("server error: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
			return err
		}

		log.Info().Msg("Server stopped")
		return nil
	},
}
