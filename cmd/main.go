package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"urlsum/internal/bot"
	"urlsum/internal/config"
	"urlsum/internal/extractor"
	"urlsum/internal/metrics"
	"urlsum/internal/pipeline"
	"urlsum/internal/prompt"
	"urlsum/internal/source"
	"urlsum/internal/summarizer"
	"urlsum/internal/web"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 10 * time.Second

func main() {
	level := new(slog.LevelVar)
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config",
			"error", err)

		return
	}
	level.Set(cfg.LogLevel)

	log.InfoContext(ctx, "Config is loaded",
		"httpAddr", cfg.HTTPAddr,
		"logLevel", cfg.LogLevel.String(),
		"provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"pageFormat", cfg.PageFormat,
		"transcriptLanguages", cfg.TranscriptLanguages,
		"telegramEnabled", cfg.TelegramToken != "")

	if cfg.Fetch.InsecureSkipVerify {
		log.WarnContext(ctx, "TLS certificate verification is disabled for fetched pages",
			"envVar", "FETCH_INSECURE_SKIP_VERIFY")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	p, err := initPipeline(cfg, reg, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize pipeline",
			"error", err,
			"provider", cfg.LLM.Provider)

		return
	}

	server, err := web.New(cfg.HTTPAddr, p, reg, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize web server",
			"error", err)

		return
	}

	go func() {
		if err := server.Start(); err != nil {
			log.ErrorContext(ctx, "Web server is stopped with error",
				"error", err,
				"httpAddr", cfg.HTTPAddr)
			cancel()
		}
	}()
	log.InfoContext(ctx, "Web server is started",
		"httpAddr", cfg.HTTPAddr)

	startBot(ctx, cfg, p, log)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-c:
		log.InfoContext(ctx, "Shutdown signal is received",
			"signal", sig.String())
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.ErrorContext(shutdownCtx, "Failed to shut down gracefully",
			"error", err)
	}

	log.InfoContext(shutdownCtx, "Exiting...",
		"uptimeSeconds", time.Since(start).Seconds())
}

func initPipeline(cfg config.Config, reg prometheus.Registerer, log *slog.Logger) (*pipeline.Pipeline, error) {
	client := extractor.NewHTTPClient(cfg.Fetch.Timeout, cfg.Fetch.InsecureSkipVerify)

	page := extractor.NewWeb(client, extractor.WebConfig{
		UserAgent: cfg.Fetch.UserAgent,
		Markdown:  cfg.PageFormat == config.PageFormatMarkdown,
	}, log)
	youTube := extractor.NewYouTube(client, extractor.YouTubeConfig{
		UserAgent: cfg.Fetch.UserAgent,
		Languages: cfg.TranscriptLanguages,
	}, log)

	newSummarizer, err := summarizer.NewFactory(cfg.LLM, nil)
	if err != nil {
		return nil, err
	}

	return pipeline.New(
		source.NewRouter(source.DefaultMarkers),
		extractor.NewRegistry(page, youTube),
		prompt.Default(),
		newSummarizer,
		metrics.New(reg),
		log,
	), nil
}

// startBot runs the Telegram front-end in the background when it is
// configured. It stops with ctx.
func startBot(ctx context.Context, cfg config.Config, p *pipeline.Pipeline, log *slog.Logger) {
	if cfg.TelegramToken == "" {
		return
	}

	if cfg.LLM.APIKey == "" {
		log.WarnContext(ctx, "LLM_API_KEY is missing so bot replies will ask for it",
			"envVar", "LLM_API_KEY")
	}

	botInst, err := bot.New(bot.Config{
		Token:        cfg.TelegramToken,
		Credential:   cfg.LLM.APIKey,
		AllowedUsers: cfg.AllowedUsers,
		Provider:     cfg.LLM.Provider,
		Model:        cfg.LLM.Model,
	}, p, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize bot",
			"error", err,
			"allowedUsersCount", len(cfg.AllowedUsers))

		return
	}

	go botInst.Start(ctx)
	log.InfoContext(ctx, "Bot is started",
		"allowedUsersCount", len(cfg.AllowedUsers))
}
