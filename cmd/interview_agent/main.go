// Package main provides the entry point for the interview coach server and CLI.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "interview_agent",
	Short: "Interview Coach HTTP API Server and CLI",
	Long: "Interview Coach runs mock interviews: it gathers the interview context, asks one question per turn, " +
		"and finishes with a structured scorecard.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setupLogging(cmd.ErrOrStderr(), logLevel, logFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML or JSON config file (environment overrides file values)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format (console or json)")
}

// setupLogging configures the global zerolog logger.
func setupLogging(w io.Writer, level, format string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)

	switch format {
	case "json":
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	case "console", "":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen})
	default:
		return fmt.Errorf("invalid --log-format %q: must be console or json", format)
	}
	return nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
