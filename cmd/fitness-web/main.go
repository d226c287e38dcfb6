// Command fitness-web serves the fitness web front end.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitnessweb/internal/apiclient"
	"fitnessweb/internal/cache"
	"fitnessweb/internal/config"
	"fitnessweb/internal/observability"
	"fitnessweb/internal/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fitness-web",
	Short: "fitness-web serves the fitness app pages over the fitness API",
	Long:  "fitness-web renders the login, dashboard, shop and admin pages and forwards every data operation to the fitness API.",
	RunE:  runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	RunE:  runServe,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and check that the API and Redis answer",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(serveCmd, checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "fitness-web",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		log.Printf("Tracing disabled: %v", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("Tracing shutdown error: %v", err)
		}
	}()

	return srv.Start()
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "config: ok (env=%s, api=%s)\n", cfg.Env, cfg.APIBaseURL)

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	api, err := apiclient.New(cfg.APIBaseURL, cfg.APITimeout())
	if err != nil {
		return fmt.Errorf("api client: %w", err)
	}
	if _, err := api.For(nil).Status(ctx); apiclient.IsTransport(err) {
		return fmt.Errorf("api unreachable: %w", err)
	}
	fmt.Fprintln(out, "api: ok")

	if cfg.RedisURL == "" {
		fmt.Fprintln(out, "redis: not configured, using in-memory stores")
		return nil
	}
	rdb := cache.InitRedis(cfg.RedisURL)
	if rdb == nil {
		return fmt.Errorf("redis: cannot connect to %s", cfg.RedisURL)
	}
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	fmt.Fprintln(out, "redis: ok")
	return nil
}
