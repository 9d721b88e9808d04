package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/formorer/ProxLB/internal/alert"
	"github.com/formorer/ProxLB/internal/config"
	"github.com/formorer/ProxLB/internal/daemon"
	"github.com/formorer/ProxLB/internal/output"
	"github.com/formorer/ProxLB/internal/proxmox"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute a migration plan once and print it without migrating",
	Long:  `plan is a one-shot alias for "run --dry-run --json", suited to invocation from cron or CI.`,
	RunE:  runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := setupLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	hv := proxmox.New(cfg.Proxmox, logger)
	alerts := alert.NewService(nil, logger)

	loop := daemon.NewLoop(hv, cfg.Balancing.Policy(), cfg.Balancing.IgnoreNodes, cfg.Balancing.IgnoreVMs, true, cfg.Balancing.Interval, alerts, logger)

	// RunOnce does not print, so render the table and JSON dump here.
	report, state, err := loop.RunOnce(ctx)
	if err != nil {
		return err
	}
	if err := output.Table(os.Stdout, report.Plan); err != nil {
		return err
	}
	data, err := output.JSON(state)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
