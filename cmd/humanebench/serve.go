package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jacksenechal/humanebench-eval/internal/api"
	"github.com/jacksenechal/humanebench-eval/internal/config"
	"github.com/jacksenechal/humanebench-eval/internal/evaluator"
	"github.com/jacksenechal/humanebench-eval/internal/hermes"
	"github.com/jacksenechal/humanebench-eval/internal/metrics"
	"github.com/jacksenechal/humanebench-eval/internal/pipeline"
	"github.com/jacksenechal/humanebench-eval/internal/schema"
	"github.com/jacksenechal/humanebench-eval/internal/session"
	"github.com/jacksenechal/humanebench-eval/internal/slack"
	"github.com/jacksenechal/humanebench-eval/internal/store"
	"github.com/jacksenechal/humanebench-eval/internal/telemetry"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat evaluation HTTP service",
	Long: `Starts the HTTP API. Configuration comes from the environment
(PROVIDER, EVAL_SCHEMA, DATABASE_URL, NATS_URL, SLACK_BOT_TOKEN, ...).
Postgres, NATS, Slack and telemetry export are each optional.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)
	logger := slog.Default()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sch, err := schema.Load(cfg.EvalSchema)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	provider, err := newProvider(cfg, sch)
	if err != nil {
		return err
	}
	slog.Info("humanebench starting",
		"port", cfg.Port,
		"provider", cfg.Provider,
		"chat_model", cfg.ChatModel,
		"eval_model", cfg.EvalModel,
		"schema", sch.Name,
	)

	scorer := evaluator.NewScorer(provider, cfg.EvalModel, sch, cfg.ScoringTimeout, logger)
	p := pipeline.New(provider, cfg.ChatModel, scorer, session.NewRegistry(cfg.MaxTurns, cfg.MaxSessions), logger)

	m := metrics.New()
	p.AddSink("metrics", m)

	if cfg.TelemetryURL != "" {
		p.SetTelemetry(telemetry.NewExporter(cfg.TelemetryURL, cfg.TelemetryTimeout, logger))
		slog.Info("telemetry export enabled", "url", cfg.TelemetryURL)
	}

	// Audit archive (optional)
	var reports api.Reporter
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		p.AddSink("store", store.NewTurnSink(db))
		reports = db
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set, running without audit archive")
	}

	// NATS/Hermes (optional)
	var hermesClient *hermes.Client
	if cfg.NatsURL != "" {
		hermesClient, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			return err
		}
		defer hermesClient.Close()
		p.AddSink("hermes", hermes.NewTurnSink(hermesClient))
		slog.Info("NATS connected", "url", cfg.NatsURL)
	}

	// Slack incident notifier (optional)
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		poster := slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, logger)
		p.AddSink("slack", slack.NewIncidentNotifier(poster, sch, cfg.IncidentThreshold))
		slog.Info("slack incident notifier ready", "channel", cfg.SlackChannel)
	}

	srv := api.NewServer(cfg.Port, cfg.APIToken, p, reports, api.Info{
		Provider:  cfg.Provider,
		ChatModel: cfg.ChatModel,
		EvalModel: cfg.EvalModel,
		Schema:    sch.Name,
	}, m, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	if hermesClient != nil {
		if err := hermesClient.Publish("humanebench.service.registered", map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"port":      cfg.Port,
			"schema":    sch.Name,
		}); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	slog.Info("humanebench ready", "port", cfg.Port)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", "error", err)
	}
	p.Wait()
	slog.Info("humanebench stopped")
	return nil
}
