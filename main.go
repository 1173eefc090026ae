package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"pagebrief/backend/internal/app"
	"pagebrief/backend/internal/auth"
	"pagebrief/backend/internal/config"
	"pagebrief/backend/internal/gen"
	"pagebrief/backend/internal/logger"

	"github.com/nsqio/go-nsq"
)

func main() {
	// Structured logger with correlation id propagation
	base := slog.NewJSONHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(logger.NewContextHandler(base)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("failed to bootstrap dependencies", "error", err)
		os.Exit(1)
	}
	defer deps.DB.Close()

	var completer app.Completer
	if cfg.GeminiAPIKey != "" {
		genClient, err := gen.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			slog.Error("failed to create generation client", "error", err)
			os.Exit(1)
		}
		defer genClient.Close()
		completer = genClient
	} else {
		// Extractive fallback kicks in for every request.
		slog.Warn("GEMINI_API_KEY not set, summaries will be extractive only")
		completer = gen.Disabled{}
	}

	var verifier auth.Verifier
	if cfg.AuthVerifyURL != "" {
		verifier = auth.NewHTTPVerifier(cfg.AuthVerifyURL)
	} else {
		slog.Warn("AUTH_VERIFY_URL not set, authenticated endpoints will report a configuration error")
		verifier = auth.Disabled{}
	}

	application := app.New(cfg, deps.DB, deps.SearchIndex, completer, deps.NSQProducer, verifier)

	// Consumers: indexing jobs and external processor results.
	startConsumer(config.TopicIndex, "backend", cfg.NSQLookupd, application.IndexConsumer.HandleMessage)
	startConsumer(config.TopicJobResult, "backend", cfg.NSQLookupd, application.ResultWriter.HandleMessage)

	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	slog.Info("server starting", "port", cfg.ServerPort)
	if err := application.Server(addr).ListenAndServe(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func startConsumer(topic, channel, lookupd string, handle func(*nsq.Message) error) {
	consumer, err := nsq.NewConsumer(topic, channel, nsq.NewConfig())
	if err != nil {
		slog.Error("failed to create NSQ consumer", "topic", topic, "error", err)
		return
	}
	consumer.AddHandler(nsq.HandlerFunc(handle))
	if err := consumer.ConnectToNSQLookupd(lookupd); err != nil {
		slog.Error("failed to connect to NSQLookupd", "topic", topic, "error", err)
		return
	}
	slog.Info("NSQ consumer connected", "topic", topic, "channel", channel)
}
