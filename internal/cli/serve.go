package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/grunga-fit/grunga/internal/api"
	"github.com/grunga-fit/grunga/internal/app/badge"
	"github.com/grunga-fit/grunga/internal/app/challenge"
	"github.com/grunga-fit/grunga/internal/app/maintenance"
	"github.com/grunga-fit/grunga/internal/app/points"
	"github.com/grunga-fit/grunga/internal/app/social"
	"github.com/grunga-fit/grunga/internal/app/streak"
	"github.com/grunga-fit/grunga/internal/app/workout"
	"github.com/grunga-fit/grunga/internal/clock"
	"github.com/grunga-fit/grunga/internal/daemon"
	"github.com/grunga-fit/grunga/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Grunga API server and daily maintenance",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return err
	}
	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	clk := clock.New(cfg.Clock.Timezone)
	db.SetNow(clk.Now)

	pointsSvc := points.New(db, clk)
	workoutSvc := workout.New(db, clk)
	challengeSvc := challenge.New(db, clk)
	socialSvc := social.New(db)
	badgeSvc := badge.New(db)
	streakTracker := streak.New(db, clk, cfg.Gamification.StreakThreshold)

	// The trigger is owned here, by the bootstrap: constructed, started,
	// and stopped explicitly.
	trigger := maintenance.New(streakTracker, challengeSvc, clk)
	if cfg.Maintenance.Enabled {
		trigger.Start()
		defer trigger.Stop()
	}

	server := api.NewServer(pointsSvc, workoutSvc, challengeSvc, socialSvc, badgeSvc)
	if cfg.API.MetricsEnabled {
		server.EnableMetrics()
	}

	httpServer := &http.Server{
		Addr:    cfg.API.Addr(),
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[serve] listening on %s", cfg.API.Addr())
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-sigCh:
		log.Printf("[serve] received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

func loadConfig(cmd *cobra.Command) (daemon.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = daemon.ConfigPath()
	}
	return daemon.LoadConfig(path)
}
