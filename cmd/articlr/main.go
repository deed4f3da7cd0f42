// Package main wires together the article generation service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/articlr/articlr/internal/api"
	"github.com/articlr/articlr/internal/config"
	"github.com/articlr/articlr/internal/gen"
	"github.com/articlr/articlr/internal/logging"
	"github.com/articlr/articlr/internal/metrics"
	"github.com/articlr/articlr/internal/pipeline"
	"github.com/articlr/articlr/internal/scrape"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var strategies []scrape.Strategy
	if cfg.Scrape.HeadlessEnabled {
		strategies = append(strategies, scrape.NewBrowserStrategy(scrape.BrowserConfig{
			UserAgent:         cfg.Scrape.UserAgent,
			NavigationTimeout: cfg.Scrape.NavTimeout(),
			BodyWaitTimeout:   cfg.Scrape.BodyWait(),
			MaxTextChars:      cfg.Scrape.MaxTextChars,
		}, logger.Named("browser")))
	}
	strategies = append(strategies, scrape.NewDirectStrategy(scrape.DirectConfig{
		UserAgent:    cfg.Scrape.UserAgent,
		Timeout:      cfg.Scrape.HTTPTimeout(),
		MaxRetries:   cfg.Scrape.MaxRetries,
		MaxTextChars: cfg.Scrape.MaxTextChars,
	}, logger.Named("direct")))

	fetcher := scrape.NewFetcher(logger.Named("fetcher"), strategies...)
	batch := scrape.NewBatch(fetcher, logger.Named("batch"))

	client, err := gen.NewClient(gen.Config{
		APIKey:   cfg.Gemini.APIKey,
		Model:    cfg.Gemini.Model,
		Endpoint: cfg.Gemini.Endpoint,
		Timeout:  cfg.Gemini.Timeout(),
	}, logger.Named("gemini"))
	if err != nil {
		logger.Fatal("generative client init failed", zap.Error(err))
	}
	generator := gen.NewGenerator(client, logger.Named("generator"))

	pipe := pipeline.New(pipeline.Deps{
		Acquirer: batch,
		Outliner: generator,
		Articler: generator,
		Logger:   logger.Named("pipeline"),
	})

	apiServer := api.NewServer(pipe, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
