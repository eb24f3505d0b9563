package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/elys-network/lbp/internal/config"
	"github.com/elys-network/lbp/internal/controller"
	"github.com/elys-network/lbp/internal/daemon"
	"github.com/elys-network/lbp/internal/health"
	"github.com/elys-network/lbp/internal/state"
	"github.com/elys-network/lbp/internal/vault"
	"github.com/elys-network/lbp/internal/web"
)

const accountCacheSize = 1024

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pool engine daemon",
	Long: `Run the pool engine: restore the last checkpoint from PostgreSQL, serve the HTTP API
and the gRPC health service, journal every committed operation and checkpoint state every
LBP_CHECKPOINT_INTERVAL. Without DB_USER the engine runs in memory only.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// --- 1. Initialization Phase ---
	if err := config.LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log.Info().Msg("LBP engine starting...")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	custody := vault.NewMemoryVault()
	defer custody.Close()

	ctrl, err := controller.New(controller.Config{Params: config.Engine, Custodian: custody})
	if err != nil {
		return err
	}

	healthServer := health.NewServer()
	go func() {
		if err := healthServer.Start(":" + config.GRPCHealthPort); err != nil {
			log.Error().Err(err).Msg("gRPC health server failed")
		}
	}()
	defer healthServer.Stop()

	// --- 2. Persistence (optional) ---
	persistent := config.DBUser != ""
	var d *daemon.Daemon
	var accounts web.AccountReader
	if persistent {
		if err := state.InitDB(state.ConfiguredDB()); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer state.CloseDB()
		if err := state.EnsureSchema(); err != nil {
			return fmt.Errorf("failed to ensure database schema: %w", err)
		}

		store, err := state.NewAccountStore(state.DB, accountCacheSize)
		if err != nil {
			return err
		}
		accounts = store
		d, err = daemon.NewDaemon(daemon.Config{Controller: ctrl, Accounts: store, Custody: custody, Health: healthServer})
		if err != nil {
			return err
		}
		if err := d.Restore(ctx); err != nil {
			return fmt.Errorf("failed to restore checkpoint: %w", err)
		}
		if err := d.ReconcileParameters(ctx); err != nil {
			return fmt.Errorf("engine parameters rejected: %w", err)
		}
	} else {
		log.Warn().Msg("DB_USER not set. Running without persistence; state is lost on exit.")
	}

	if err := daemon.BootstrapFromConfig(ctx, ctrl); err != nil {
		return fmt.Errorf("failed to bootstrap master account: %w", err)
	}

	// --- 3. Web Server ---
	opts := web.Options{Journal: persistent, Accounts: accounts}
	if config.DevFaucet {
		log.Warn().Msg("LBP_DEV_FAUCET enabled. Anyone can credit custody balances.")
		opts.Faucet = custody
	}
	webServer := web.NewWebServer(config.WebPort, ctrl, opts)
	go func() {
		log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting LBP web API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed")
			stop()
		}
	}()

	// --- 4. Main Loop ---
	done := make(chan struct{})
	if d != nil {
		go func() {
			defer close(done)
			d.RunLoop(ctx, config.CheckpointInterval)
		}()
	} else {
		healthServer.SetServing(true)
		close(done)
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Web server shutdown failed")
	}
	<-done
	log.Info().Msg("LBP engine stopped")
	return nil
}
