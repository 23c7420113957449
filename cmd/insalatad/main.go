// Command insalatad runs the infrastructure-state reconciliation daemon:
// it loads one or more environments, drives their collector schedulers,
// and serves the command surface implemented by internal/server. Entry
// point style and graceful shutdown follow structured JSON logging plus
// signal-driven shutdown with a bounded timeout.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tumi8/insalata-go/internal/config"
	"github.com/tumi8/insalata-go/internal/environment"
	"github.com/tumi8/insalata-go/internal/server"
)

const (
	serviceName       = "insalatad"
	shutdownTimeout   = 30 * time.Second
	exitConfigOrSetup = 1
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   serviceName,
		Short: "Reconciliation daemon for virtual infrastructure goal states",
		RunE:  run,
	}
	root.Flags().StringVar(&configPath, "config", "/etc/insalatad/daemon.yaml", "path to the daemon config document")

	if err := root.Execute(); err != nil {
		os.Exit(exitConfigOrSetup)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	cfg, err := config.LoadDaemonConfig(configPath)
	if err != nil {
		log.Error("failed to load daemon config", "error", err, "path", configPath)
		return err
	}

	if len(cfg.Environments) == 0 {
		log.Error("daemon config declares no environments", "path", configPath)
		return fmt.Errorf("insalatad: no environments configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := environment.NewManager(environment.PlannerOptions{
		PlannerPath: cfg.Planner.PlannerPath,
		DomainFile:  cfg.Planner.DomainFile,
		Search:      cfg.Planner.Search,
	}, cfg.WorkDir, log)

	for _, src := range cfg.Environments {
		dataDir := src.DataDirectory
		if dataDir == "" {
			dataDir = filepath.Join(cfg.WorkDir, "data", src.Name)
		}
		log.Info("loading environment", "environment", src.Name, "config", src.ConfigFile)
		if err := mgr.LoadEnvironment(ctx, src.Name, src.ConfigFile, src.OverridesFile, src.LocationsFile, dataDir); err != nil {
			log.Error("failed to load environment", "environment", src.Name, "error", err)
			return err
		}
	}

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.NewRouter(mgr, log),
	}

	serveErrs := make(chan error, 1)
	go func() {
		log.Info("command server listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErrs <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErrs:
		log.Error("command server failed", "error", err)
		mgr.Shutdown()
		return err
	case sig := <-quit:
		log.Info("received shutdown signal", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("command server shutdown forced", "error", err)
	}

	mgr.Shutdown()
	log.Info("insalatad exited")
	return nil
}
