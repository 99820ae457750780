// docrag ingests documents and answers questions about them from the
// command line. HTTP serving, auth and session expiry belong to the host
// process; this binary is the composition root for the core pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studyowl/docrag/internal/chunker"
	"github.com/studyowl/docrag/internal/config"
	dbRedis "github.com/studyowl/docrag/internal/db/redis"
	"github.com/studyowl/docrag/internal/domain"
	"github.com/studyowl/docrag/internal/engine"
	"github.com/studyowl/docrag/internal/extract"
	logpkg "github.com/studyowl/docrag/internal/logger"
	"github.com/studyowl/docrag/internal/metrics"
	"github.com/studyowl/docrag/internal/registry"
	"github.com/studyowl/docrag/internal/repository/embcache"
	openaiT "github.com/studyowl/docrag/internal/transport/openai"
	"github.com/studyowl/docrag/internal/version"
)

func main() {
	var (
		ask    = flag.String("ask", "", "question to answer from the ingested documents")
		mode   = flag.String("mode", engine.ModeRAG, "answer mode: rag or topic-explorer")
		topK   = flag.Int("k", 0, "number of chunks to retrieve (0 = config default)")
		tenant = flag.String("tenant", "local", "tenant (session) identifier")
	)
	flag.Parse()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting docrag",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("tenant", *tenant),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Register metrics explicitly (no init()). Exposition belongs to the
	// host process; the default registry keeps the counters available.
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()

	// Optional redis-backed embedding cache shared by all tenants.
	var cacheStore *dbRedis.Store
	if cfg.Cache.Enabled {
		cacheStore, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer cacheStore.Close()

		readiness := time.Duration(cfg.Cache.ReadinessTimeoutSec) * time.Second
		if err := cacheStore.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	cacheTTL := time.Duration(cfg.Cache.TTLHours) * time.Hour

	// One engine per tenant; the factory builds the provider chain from the
	// tenant's credentials.
	reg := registry.New(func(tenantID string, creds registry.Credentials) (*engine.Engine, error) {
		tenantLogger := logger.With(zap.String("tenant", tenantID))

		var embedder domain.Embedder = openaiT.NewEmbedder(&openaiT.Config{
			APIKey:   creds.APIKey,
			BaseURL:  creds.BaseURL,
			Model:    creds.EmbeddingModel,
			User:     tenantID,
			Provider: "openai",
			Logger:   tenantLogger,
		})
		if cacheStore != nil {
			embedder = embcache.New(embedder, cacheStore, cacheTTL, metrics.EmbeddingCacheTotal, tenantLogger)
		}

		generator := openaiT.NewChatModel(&openaiT.ChatConfig{
			APIKey:   creds.APIKey,
			BaseURL:  creds.BaseURL,
			Model:    creds.ChatModel,
			Provider: "openai",
			Logger:   tenantLogger,
		})

		eng := engine.New(embedder, generator, tenantLogger).
			WithBatchSize(cfg.Provider.EmbedBatchSize).
			WithDefaultK(cfg.Retrieval.TopK)
		return eng, nil
	})

	creds := registry.Credentials{
		APIKey:         cfg.Provider.APIKey,
		BaseURL:        cfg.Provider.BaseURL,
		ChatModel:      cfg.Provider.ChatModel,
		EmbeddingModel: cfg.Provider.EmbeddingModel,
	}
	eng, err := reg.GetOrCreate(*tenant, creds)
	if err != nil {
		logger.Fatal("Failed to create engine", zap.Error(err))
	}

	extractor := extract.New(logger).
		WithLimits(int64(cfg.Extract.MaxFileSizeMB)<<20, cfg.Extract.MaxPages)
	chk := chunker.New(logger)

	for _, path := range flag.Args() {
		if err := ingestFile(ctx, eng, extractor, chk, cfg, path); err != nil {
			logger.Fatal("Ingestion failed", zap.String("file", path), zap.Error(err))
		}
	}

	info := eng.DocumentInfo()
	logger.Info("Corpus ready",
		zap.Int("documents", info.DocumentCount),
		zap.Int("chunks", info.TotalChunks),
		zap.String("state", eng.State().String()),
	)

	if *ask == "" {
		return
	}

	answer, err := eng.Query(ctx, engine.QueryRequest{
		Question: *ask,
		K:        *topK,
		Mode:     *mode,
	})
	if err != nil {
		logger.Fatal("Query failed", zap.Error(err))
	}
	fmt.Println(answer)
}

func ingestFile(
	ctx context.Context,
	eng *engine.Engine,
	extractor *extract.Extractor,
	chk *chunker.Chunker,
	cfg config.Config,
	path string,
) error {
	res, err := extractor.Extract(path, "")
	if err != nil {
		return err
	}

	pieces, err := chk.Chunk(res.Text, cfg.Chunking.SizeTokens, *cfg.Chunking.OverlapTokens)
	if err != nil {
		return err
	}

	documentID := uuid.NewString()
	chunks := make([]domain.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = domain.Chunk{
			ID:         domain.ChunkKey(documentID, i),
			DocumentID: documentID,
			Index:      i,
			Text:       p.Text,
			TokenCount: p.TokenCount,
		}
	}

	return eng.IndexDocument(ctx, documentID, chunks, map[string]any{
		"file_name": res.FileName,
		"file_type": res.FileType,
		"file_size": res.SizeBytes,
	})
}
