package cli

import (
	"github.com/spf13/cobra"

	"github.com/grunga-fit/grunga/internal/app/challenge"
	"github.com/grunga-fit/grunga/internal/app/maintenance"
	"github.com/grunga-fit/grunga/internal/app/streak"
	"github.com/grunga-fit/grunga/internal/clock"
	"github.com/grunga-fit/grunga/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(maintainCmd)
}

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run one daily maintenance pass (streak roll + challenge expiry)",
	Long: `Run the daily maintenance pass once and exit: roll streaks for the
completed prior business day and expire overdue pending challenges.
Both jobs are idempotent, so running this alongside a live server, or
more than once, changes nothing extra.`,
	RunE: runMaintain,
}

func runMaintain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	clk := clock.New(cfg.Clock.Timezone)
	db.SetNow(clk.Now)
	trigger := maintenance.New(
		streak.New(db, clk, cfg.Gamification.StreakThreshold),
		challenge.New(db, clk),
		clk,
	)
	return trigger.RunNow()
}
