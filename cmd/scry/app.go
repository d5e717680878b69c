package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/matsen/scry/internal/cache"
	"github.com/matsen/scry/internal/config"
	"github.com/matsen/scry/internal/embedding"
	"github.com/matsen/scry/internal/journal"
	"github.com/matsen/scry/internal/openalex"
	"github.com/matsen/scry/internal/recommend"
	"github.com/matsen/scry/internal/review"
	"github.com/matsen/scry/internal/similarity"
	"github.com/matsen/scry/internal/zotero"
)

// app holds the wired-up clients and engine shared by all commands.
type app struct {
	cfg      *config.Config
	cacheDir string
	library  *zotero.Client
	index    *openalex.Client
	provider *embedding.OllamaProvider
	store    *cache.EmbeddingStore
	resolver *journal.Resolver
	engine   *recommend.Engine
	log      zerolog.Logger
}

// newApp loads configuration and wires all components.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cacheDir, err := cfg.ResolveCacheDir()
	if err != nil {
		return nil, fmt.Errorf("resolving cache directory: %w", err)
	}

	library, err := zotero.NewClient(cfg.ZoteroAPIKey, cfg.ZoteroUserID)
	if err != nil {
		return nil, err
	}

	var indexOpts []openalex.ClientOption
	if cfg.OpenAlexMailto != "" {
		indexOpts = append(indexOpts, openalex.WithMailto(cfg.OpenAlexMailto))
	}
	index := openalex.NewClient(indexOpts...)

	var ollamaOpts []embedding.OllamaOption
	if cfg.OllamaURL != "" {
		ollamaOpts = append(ollamaOpts, embedding.WithBaseURL(cfg.OllamaURL))
	}
	if cfg.OllamaModel != "" {
		ollamaOpts = append(ollamaOpts, embedding.WithModel(cfg.OllamaModel))
	}
	provider := embedding.NewOllamaProvider(ollamaOpts...)

	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	store := cache.NewEmbeddingStore(config.EmbeddingsPath(cacheDir), provider.ModelName(), provider.Dimensions())
	resolver := journal.NewResolver(index, config.JournalsPath(cacheDir))

	engine := recommend.NewEngine(recommend.Params{
		Library:    library,
		Index:      index,
		Similarity: similarity.NewEngine(provider),
		Embeddings: store,
		Resolver:   resolver,
		GraphPath:  config.GraphPath(cacheDir),
		Logger:     &log,
	})

	return &app{
		cfg:      cfg,
		cacheDir: cacheDir,
		library:  library,
		index:    index,
		provider: provider,
		store:    store,
		resolver: resolver,
		engine:   engine,
		log:      log,
	}, nil
}

// mustApp wires the app or exits with a configuration error.
func mustApp() *app {
	a, err := newApp()
	if err != nil {
		exitWithError(ExitConfigError, "%s", err)
	}
	return a
}

// openReviews opens the reviewed-papers store under the cache directory.
func (a *app) openReviews() (*review.Store, error) {
	return review.Open(config.ReviewedDBPath(a.cacheDir))
}

// checkProvider verifies the embedding provider is reachable and has the
// configured model pulled.
func (a *app) checkProvider(ctx context.Context) {
	if err := a.provider.IsAvailable(ctx); err != nil {
		exitWithError(ExitOllamaError, "embedding provider not reachable: %s (is ollama running?)", err)
	}
	ok, err := a.provider.HasModel(ctx)
	if err != nil {
		exitWithError(ExitOllamaError, "checking embedding model: %s", err)
	}
	if !ok {
		exitWithError(ExitOllamaError, "embedding model %q not found; run: ollama pull %s",
			a.provider.ModelName(), a.provider.ModelName())
	}
}

// collectionID returns the collection from the flag, falling back to config.
func (a *app) collectionID(flag string) string {
	if flag != "" {
		return flag
	}
	return a.cfg.Collection
}
