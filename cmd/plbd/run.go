package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/formorer/ProxLB/internal/alert"
	"github.com/formorer/ProxLB/internal/cache"
	"github.com/formorer/ProxLB/internal/config"
	"github.com/formorer/ProxLB/internal/controlapi"
	"github.com/formorer/ProxLB/internal/daemon"
	"github.com/formorer/ProxLB/internal/history"
	"github.com/formorer/ProxLB/internal/proxmox"
)

var (
	runDryRun bool
	runJSON   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the placement engine on its configured schedule",
	Long: `run loads the configured balancing policy and repeatedly fetches a
cluster snapshot, computes a migration plan, and executes it every
balancing.interval until interrupted. --dry-run suppresses execution and
prints each cycle's plan instead; --json additionally prints the plan as a
JSON object keyed by VM name.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "compute and print each cycle's plan; never migrate")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "additionally print each cycle's plan as JSON")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	dryRun := cfg.Service.DryRun || runDryRun

	logger, err := setupLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting plbd", zap.Bool("dry_run", dryRun), zap.String("proxmox_host", cfg.Proxmox.Host))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	hv := proxmox.New(cfg.Proxmox, logger)

	var cacheClient *cache.Cache
	var publisher alert.Publisher
	if cfg.Cache.Enabled {
		cacheClient, err = cache.New(cfg.Cache, logger)
		if err != nil {
			return err
		}
		defer cacheClient.Close()
		publisher = cacheClient
	}
	alerts := alert.NewService(publisher, logger)

	var historyStore *history.Store
	if cfg.History.Enabled {
		if err := history.Migrate(cfg.History.DSN, cfg.History.MigrationsPath, logger); err != nil {
			return err
		}
		db, err := history.NewDB(ctx, cfg.History.DSN, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		historyStore = history.NewStore(db, logger)
	}

	var opts []daemon.Option
	if historyStore != nil {
		opts = append(opts, daemon.WithHistory(historyStore))
	}
	if cacheClient != nil {
		opts = append(opts, daemon.WithCache(cacheClient))
	}
	if dryRun {
		opts = append(opts, daemon.WithOutput(daemon.OutputConfig{
			Writer:    os.Stdout,
			ShowTable: true,
			ShowJSON:  runJSON,
		}))
	}

	loop := daemon.NewLoop(hv, cfg.Balancing.Policy(), cfg.Balancing.IgnoreNodes, cfg.Balancing.IgnoreVMs, dryRun, cfg.Balancing.Interval, alerts, logger, opts...)

	var wg sync.WaitGroup
	var loopErr, apiErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		loopErr = loop.Start(ctx)
	}()

	if cfg.ControlAPI.Enabled {
		triggerCh := make(chan struct{}, 1)

		var reportSource controlapi.ReportSource = loop
		if cacheClient != nil {
			reportSource = cacheClient
		}
		srv := controlapi.New(cfg.ControlAPI, reportSource, cacheClient, triggerCh, logger)

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer cancel()
			apiErr = srv.Run(ctx)
		}()

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-triggerCh:
					loop.Trigger()
				}
			}
		}()
	}

	wg.Wait()

	if loopErr != nil {
		return loopErr
	}
	return apiErr
}
