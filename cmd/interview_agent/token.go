package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/server"
)

var tokenCmd = &cobra.Command{
	Use:   "token <email>",
	Short: "Mint a development JWT for the given email",
	Long: `Mint a bearer token signed with JWT_SECRET. Requests carrying it talk on the
thread derived from the email. Intended for local development only.`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	jwtCfg, err := cfg.Auth.JWT()
	if err != nil {
		return err
	}

	token, err := server.NewJWTService(jwtCfg).GenerateToken(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
