// Package main 知识库构建执行器入口（ingest-worker）
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"creator-kb-api/internal/application/knowledge"
	"creator-kb-api/internal/config"
	"creator-kb-api/internal/infrastructure/embedding"
	"creator-kb-api/internal/infrastructure/llm"
	"creator-kb-api/internal/infrastructure/messaging"
	"creator-kb-api/internal/infrastructure/persistence/milvus"
	"creator-kb-api/internal/infrastructure/persistence/postgres"
	redisinfra "creator-kb-api/internal/infrastructure/persistence/redis"
	"creator-kb-api/internal/infrastructure/source"
	einoobs "creator-kb-api/internal/observability/eino"
	"creator-kb-api/pkg/logger"
	"creator-kb-api/pkg/tracer"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx := context.Background()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "ingest-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(ctx) }()

	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatal(ctx, "failed to init postgres", err)
	}
	defer func() { _ = pgClient.Close() }()

	if err := pgClient.Migrate(ctx); err != nil {
		logger.Fatal(ctx, "failed to run migrations", err)
	}

	redisClient, err := redisinfra.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Fatal(ctx, "failed to init redis", err)
	}
	defer func() { _ = redisClient.Close() }()

	videoRepo := postgres.NewVideoRepository(pgClient)
	chunkRepo := postgres.NewChunkRepository(pgClient)
	usageRepo := postgres.NewUsageEventRepository(pgClient)
	txManager := postgres.NewTxManager(pgClient)

	einoobs.Init(usageRepo)

	var recall knowledge.CandidateRecall
	if cfg.Vector.Milvus.Enabled {
		milvusClient, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
		if err != nil {
			logger.Fatal(ctx, "failed to init milvus", err)
		}
		defer func() { _ = milvusClient.Close() }()

		adapter := milvus.NewCandidateRecallAdapter(milvus.NewRepository(milvusClient))
		if err := adapter.EnsureCollection(ctx); err != nil {
			logger.Fatal(ctx, "failed to ensure milvus collection", err)
		}
		recall = adapter
	}

	cache := redisinfra.NewCache(redisClient)
	var searchCache knowledge.SearchCache
	if cfg.Cache.Search.Enabled {
		searchCache = redisinfra.NewSearchCache(cache, cfg.Cache.Search.TTL)
	}

	embedder, err := embedding.NewEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		logger.Fatal(ctx, "failed to init embedder", err)
	}

	llmFactory := llm.NewEinoFactory(cfg)
	chatModel, err := llmFactory.Default(ctx)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn("chat model unavailable, summarization falls back to heuristics", "error", err)
		chatModel = nil
	}

	pacer := knowledge.NewFixedIntervalPacer(map[string]time.Duration{
		knowledge.PaceKeyVideo:     cfg.Ingest.VideoPause,
		knowledge.PaceKeyBatch:     cfg.Ingest.BatchPause,
		knowledge.PaceKeyEmbedding: cfg.Ingest.EmbeddingBatchPause,
	})

	summarizer := knowledge.NewSummarizer(chatModel, 0)
	builder := knowledge.NewBuilder(knowledge.ChunkingParams{
		SectionWindowSeconds:   cfg.Knowledge.Chunking.SectionWindowSeconds,
		RetrievalWindowSeconds: cfg.Knowledge.Chunking.RetrievalWindowSeconds,
		OverlapFraction:        cfg.Knowledge.Chunking.OverlapFraction,
		MaxKeywords:            cfg.Knowledge.Chunking.MaxKeywords,
	})
	chunkEmbedder := knowledge.NewChunkEmbedder(embedder, pacer, cfg.Embedding.BatchSize)
	writer := knowledge.NewIndexWriter(videoRepo, chunkRepo, txManager, recall, searchCache)

	transcriptClient := source.NewTranscriptClient(&cfg.Sources.Transcript)
	catalogClient := source.NewCatalogClient(&cfg.Sources.Catalog)
	analysisClient := source.NewAnalysisClient(&cfg.Sources.Analysis)

	producer := messaging.NewProducer(redisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))

	orchestrator := knowledge.NewOrchestrator(
		catalogClient,
		transcriptClient,
		summarizer,
		builder,
		chunkEmbedder,
		writer,
		videoRepo,
		messaging.NewAnalysisPublisher(producer),
		pacer,
		knowledge.OrchestratorConfig{
			MaxVideosPerRun: cfg.Ingest.MaxVideosPerRun,
			MinVideoSeconds: cfg.Ingest.MinVideoSeconds,
			MaxVideoSeconds: cfg.Ingest.MaxVideoSeconds,
			BatchSize:       cfg.Ingest.BatchSize,
		},
	)

	// 构建任务消费者
	ingestConsumer := messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamKBIngest,
		Group:         messaging.ConsumerGroupIngestWorker,
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  cfg.Messaging.RedisStream.BlockTimeout,
		ClaimInterval: cfg.Messaging.RedisStream.ClaimInterval,
		RetryLimit:    cfg.Messaging.RedisStream.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    cfg.Messaging.RedisStream.RetryBackoff.Initial,
			Max:        cfg.Messaging.RedisStream.RetryBackoff.Max,
			Multiplier: cfg.Messaging.RedisStream.RetryBackoff.Multiplier,
		},
	})

	ingestConsumer.RegisterHandler("kb_ingest", func(msgCtx context.Context, msg *messaging.Message) error {
		var payload messaging.IngestJobMessage
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return err
		}

		report, err := orchestrator.ProcessCatalog(msgCtx, knowledge.IngestInput{
			TenantID:  payload.TenantID,
			CreatorID: payload.CreatorID,
			MaxVideos: payload.MaxVideos,
			Force:     payload.Force,
		})
		if err != nil {
			return err
		}

		log := logger.FromContext(msgCtx)
		log.Info("ingest job finished",
			"job_id", payload.JobID,
			"processed", report.Processed,
			"skipped", report.Skipped,
			"failed", report.Failed,
			"chunks", report.ChunksTotal,
			"quota_limited", report.QuotaLimited,
		)
		return nil
	})

	// 模式分析消费者
	analysisConsumer := messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamPatternAnalysis,
		Group:         messaging.ConsumerGroupAnalysisWorker,
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  cfg.Messaging.RedisStream.BlockTimeout,
		ClaimInterval: cfg.Messaging.RedisStream.ClaimInterval,
		RetryLimit:    cfg.Messaging.RedisStream.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    cfg.Messaging.RedisStream.RetryBackoff.Initial,
			Max:        cfg.Messaging.RedisStream.RetryBackoff.Max,
			Multiplier: cfg.Messaging.RedisStream.RetryBackoff.Multiplier,
		},
	})

	analysisConsumer.RegisterHandler("pattern_analysis", func(msgCtx context.Context, msg *messaging.Message) error {
		var payload messaging.PatternAnalysisMessage
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return err
		}
		return analysisClient.Analyze(msgCtx, payload.TenantID, payload.CreatorID, payload.VideoIDs)
	})

	if err := ingestConsumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start ingest consumer", err)
	}
	if err := analysisConsumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start analysis consumer", err)
	}

	log := logger.FromContext(ctx)
	log.Info("ingest-worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("ingest-worker shutting down")
	ingestConsumer.Stop()
	analysisConsumer.Stop()
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
