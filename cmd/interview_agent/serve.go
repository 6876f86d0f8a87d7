package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/server"
	"github.com/jonathan/interview-coach/internal/server/ratelimit"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the interview conversation endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config and PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	srvCfg, err := serverConfig(cfg, a)
	if err != nil {
		return err
	}
	srv, err := server.New(srvCfg, a.controller)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(ctx)
}

// serverConfig maps the application config onto the HTTP server options.
func serverConfig(cfg *config.Config, a *app) (server.Config, error) {
	srvCfg := server.Config{
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout.D(),
		WriteTimeout:    cfg.Server.WriteTimeout.D(),
		ShutdownTimeout: cfg.Server.ShutdownTimeout.D(),
		AllowedOrigin:   cfg.Server.AllowedOrigin,
		RateLimit:       ratelimit.LoadConfig(),
		Lister:          a.backend.lister,
		Metrics:         a.metrics.Handler(),
		HealthCheck:     a.backend.ping,
	}

	if cfg.Auth.Enabled {
		jwtCfg, err := cfg.Auth.JWT()
		if err != nil {
			return server.Config{}, err
		}
		srvCfg.Auth = &server.AuthOptions{
			Validator: server.NewJWTService(jwtCfg).AsTokenValidator(),
			Required:  cfg.Auth.Required,
		}
	}
	return srvCfg, nil
}

// contextOrBackground keeps commands usable when cobra runs without a context.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
