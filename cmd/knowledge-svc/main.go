// Package main 知识库 API 服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"creator-kb-api/internal/application/knowledge"
	"creator-kb-api/internal/application/quota"
	"creator-kb-api/internal/config"
	"creator-kb-api/internal/infrastructure/embedding"
	"creator-kb-api/internal/infrastructure/llm"
	"creator-kb-api/internal/infrastructure/messaging"
	"creator-kb-api/internal/infrastructure/persistence/milvus"
	"creator-kb-api/internal/infrastructure/persistence/postgres"
	redisinfra "creator-kb-api/internal/infrastructure/persistence/redis"
	"creator-kb-api/internal/infrastructure/source"
	"creator-kb-api/internal/interfaces/http/handler"
	"creator-kb-api/internal/interfaces/http/router"
	einoobs "creator-kb-api/internal/observability/eino"
	"creator-kb-api/pkg/logger"
	"creator-kb-api/pkg/tracer"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件（如果存在）
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting knowledge-svc",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	// 初始化追踪
	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// 数据层
	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatal(ctx, "failed to connect postgres", err)
	}
	defer pgClient.Close()

	if err := pgClient.Migrate(ctx); err != nil {
		logger.Fatal(ctx, "failed to run migrations", err)
	}

	redisClient, err := redisinfra.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Fatal(ctx, "failed to connect redis", err)
	}
	defer redisClient.Close()

	videoRepo := postgres.NewVideoRepository(pgClient)
	chunkRepo := postgres.NewChunkRepository(pgClient)
	usageRepo := postgres.NewUsageEventRepository(pgClient)
	txManager := postgres.NewTxManager(pgClient)

	// 初始化 Eino 全局 callbacks（指标/追踪/用量流水）
	einoobs.Init(usageRepo)

	// 向量召回（可选）
	var milvusClient *milvus.Client
	var recall knowledge.CandidateRecall
	if cfg.Vector.Milvus.Enabled {
		milvusClient, err = milvus.NewClient(ctx, &cfg.Vector.Milvus)
		if err != nil {
			logger.Fatal(ctx, "failed to connect milvus", err)
		}
		defer milvusClient.Close()

		adapter := milvus.NewCandidateRecallAdapter(milvus.NewRepository(milvusClient))
		if err := adapter.EnsureCollection(ctx); err != nil {
			logger.Fatal(ctx, "failed to ensure milvus collection", err)
		}
		recall = adapter
	}

	// 检索缓存（可选）
	cache := redisinfra.NewCache(redisClient)
	var searchCache knowledge.SearchCache
	if cfg.Cache.Search.Enabled {
		searchCache = redisinfra.NewSearchCache(cache, cfg.Cache.Search.TTL)
	}

	// 嵌入与 LLM
	embedder, err := embedding.NewEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		logger.Fatal(ctx, "failed to init embedder", err)
	}

	llmFactory := llm.NewEinoFactory(cfg)
	chatModel, err := llmFactory.Default(ctx)
	if err != nil {
		// 摘要生成在模型缺失时退化为启发式切分，不阻塞启动
		log.Warn("chat model unavailable, summarization falls back to heuristics", "error", err)
		chatModel = nil
	}

	// 应用层
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
	engine := knowledge.NewEngine(embedder, chunkRepo, recall, searchCache, knowledge.ScoringParams{
		VectorWeight:  cfg.Knowledge.Search.VectorWeight,
		KeywordWeight: cfg.Knowledge.Search.KeywordWeight,
		ScoreFloor:    cfg.Knowledge.Search.ScoreFloor,
		DefaultLimit:  cfg.Knowledge.Search.DefaultLimit,
		MaxLimit:      cfg.Knowledge.Search.MaxLimit,
	})

	// 外部协作方
	transcriptClient := source.NewTranscriptClient(&cfg.Sources.Transcript)
	catalogClient := source.NewCatalogClient(&cfg.Sources.Catalog)

	// 构建完成后的模式分析经消息队列异步下发
	producer := messaging.NewProducer(redisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
	analyzer := messaging.NewAnalysisPublisher(producer)

	orchestrator := knowledge.NewOrchestrator(
		catalogClient,
		transcriptClient,
		summarizer,
		builder,
		chunkEmbedder,
		writer,
		videoRepo,
		analyzer,
		pacer,
		knowledge.OrchestratorConfig{
			MaxVideosPerRun: cfg.Ingest.MaxVideosPerRun,
			MinVideoSeconds: cfg.Ingest.MinVideoSeconds,
			MaxVideoSeconds: cfg.Ingest.MaxVideoSeconds,
			BatchSize:       cfg.Ingest.BatchSize,
		},
	)

	quotaChecker := quota.NewTokenQuotaChecker(usageRepo, cfg.Security.Quota)

	// 路由
	r := router.New(cfg, router.Handlers{
		Health: handler.NewHealthHandler(pgClient, redisClient, milvusClient),
		Search: handler.NewSearchHandler(engine),
		Ingest: handler.NewIngestHandler(orchestrator, producer, quotaChecker),
		Stats:  handler.NewStatsHandler(engine, cache),
		Video:  handler.NewVideoHandler(videoRepo, chunkRepo, writer),
	}, redisClient.Redis())

	// 创建 HTTP 服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	// 启动服务器
	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
