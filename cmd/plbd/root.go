package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/formorer/ProxLB/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "plbd",
	Short: "Proxmox VE placement engine daemon",
	Long: `plbd rebalances virtual machines across a Proxmox VE cluster by
periodically fetching node and VM load, computing a migration plan against
a configured balancing policy, and executing it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the plbd INI config file (default: search /etc/plbd, then the working directory, for plbd.ini)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setupLogger builds a zap logger from the log configuration section,
// mirroring the teacher's controlplane logger setup.
func setupLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapConfig zap.Config
	if cfg.Format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	return zapConfig.Build()
}
