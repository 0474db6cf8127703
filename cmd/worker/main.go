package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"pipemail.dev/triage/common/id"
	"pipemail.dev/triage/common/logger"
	"pipemail.dev/triage/common/otel"
	"pipemail.dev/triage/common/typesense"
	"pipemail.dev/triage/core/config"
	"pipemail.dev/triage/core/db"
	"pipemail.dev/triage/internal/analyzer"
	"pipemail.dev/triage/internal/joblog"
	"pipemail.dev/triage/internal/pipeline"
	"pipemail.dev/triage/internal/queue"
	"pipemail.dev/triage/internal/result"
	"pipemail.dev/triage/internal/search"
	"pipemail.dev/triage/internal/store"
	"pipemail.dev/triage/internal/worker"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "triage worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Pipeline.RedisGroup,
		"consumer_name", cfg.Pipeline.RedisConsumer)

	// Different node ID than the server so IDs never collide.
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       cfg.Pipeline.RedisStream,
		Group:        cfg.Pipeline.RedisGroup,
		Consumer:     cfg.Pipeline.RedisConsumer,
		DLQStream:    cfg.Pipeline.RedisDLQStream,
		BatchSize:    1, // One notification at a time
		Block:        5 * time.Second,
		MaxAttempts:  3,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	var indexer *search.Indexer
	if cfg.Search.Enabled() {
		tsClient, err := typesense.New(typesense.Config{
			URL:        cfg.Search.URL,
			APIKey:     cfg.Search.APIKey,
			Collection: cfg.Search.Collection,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to create search client", "error", err)
			os.Exit(1)
		}
		indexer = search.NewIndexer(tsClient)
		if err := indexer.Setup(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to set up search collection", "error", err)
			os.Exit(1)
		}
		slog.InfoContext(ctx, "search indexing enabled", "collection", cfg.Search.Collection)
	} else {
		slog.InfoContext(ctx, "search indexing disabled (typesense not configured)")
	}

	fetcher := newLogFetcher(ctx, cfg)
	writer := result.NewWriter(cfg.Results.Dir)
	orchestrator := analyzer.New(cfg.LLM, writer, nil)

	runner := pipeline.New(pipeline.Config{
		SenderFilter:  cfg.Mail.SenderFilter,
		MockErrorType: cfg.Mock.ErrorType,
		MockEnabled:   cfg.Mock.Enabled,
	}, fetcher, orchestrator, writer)

	stores := store.NewStores(database)
	processor := worker.NewProcessor(runner, stores.Analyses(), indexer)

	w := worker.New(consumer, processor, worker.Config{
		MaxAttempts: 3,
	})

	reclaimer := worker.NewRedisReclaimer(redisClient, worker.RedisReclaimerConfig{
		Stream:    cfg.Pipeline.RedisStream,
		Group:     cfg.Pipeline.RedisGroup,
		Consumer:  cfg.Pipeline.RedisConsumer + "-reclaimer",
		MinIdle:   5 * time.Minute,
		Interval:  1 * time.Minute,
		BatchSize: 10,
	}, consumer, w.ProcessMessage)

	errCh := make(chan error, 2)
	go func() {
		errCh <- w.Run(ctx)
	}()
	go func() {
		reclaimer.Run(ctx)
		errCh <- nil
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Reclaimer stops fast; the worker may still be mid-task.
	reclaimer.Stop()
	w.Stop()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

// newLogFetcher wires the acquisition chain: the GitLab API when a token
// is configured, the page scraper always.
func newLogFetcher(ctx context.Context, cfg config.Config) *joblog.Fetcher {
	var api joblog.JobAPI
	if cfg.GitLab.Enabled() {
		client, err := joblog.NewAPIClient(cfg.GitLab.BaseURL, cfg.GitLab.Token)
		if err != nil {
			slog.WarnContext(ctx, "gitlab api client unavailable, scrape only", "error", err)
		} else {
			api = client
			slog.InfoContext(ctx, "gitlab api log acquisition enabled", "base_url", cfg.GitLab.BaseURL)
		}
	} else {
		slog.InfoContext(ctx, "gitlab token not configured, scrape only")
	}
	return joblog.NewFetcher(api, joblog.NewScraper())
}

const banner = `
████████╗██████╗ ██╗ █████╗  ██████╗ ███████╗    ██╗    ██╗ ██████╗ ██████╗ ██╗  ██╗███████╗██████╗
╚══██╔══╝██╔══██╗██║██╔══██╗██╔════╝ ██╔════╝    ██║    ██║██╔═══██╗██╔══██╗██║ ██╔╝██╔════╝██╔══██╗
   ██║   ██████╔╝██║███████║██║  ███╗█████╗      ██║ █╗ ██║██║   ██║██████╔╝█████╔╝ █████╗  ██████╔╝
   ██║   ██╔══██╗██║██╔══██║██║   ██║██╔══╝      ██║███╗██║██║   ██║██╔══██╗██╔═██╗ ██╔══╝  ██╔══██╗
   ██║   ██║  ██║██║██║  ██║╚██████╔╝███████╗    ╚███╔███╔╝╚██████╔╝██║  ██║██║  ██╗███████╗██║  ██║
   ╚═╝   ╚═╝  ╚═╝╚═╝╚═╝  ╚═╝ ╚═════╝ ╚══════╝     ╚══╝╚══╝  ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝
`
