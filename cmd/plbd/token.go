package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/formorer/ProxLB/internal/config"
	"github.com/formorer/ProxLB/internal/domain"
	"github.com/formorer/ProxLB/internal/token"
)

var (
	tokenIssueSubject string
	tokenIssueTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage Control API bearer tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Mint a Control API bearer token signed with control_api.jwt_secret",
	RunE:  runTokenIssue,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd)

	tokenIssueCmd.Flags().StringVar(&tokenIssueSubject, "subject", "operator", "the operator or service this token identifies")
	tokenIssueCmd.Flags().DurationVar(&tokenIssueTTL, "ttl", 24*time.Hour, "token validity duration")
}

func runTokenIssue(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.ControlAPI.JWTSecret == "" {
		return domain.NewError(domain.ErrConfigKey, fmt.Errorf("control_api.jwt_secret is required to issue a token"))
	}

	mgr := token.NewManager(cfg.ControlAPI.JWTSecret)
	signed, err := mgr.Issue(tokenIssueSubject, tokenIssueTTL)
	if err != nil {
		return err
	}

	fmt.Println(signed)
	return nil
}
