// Package app wires configuration into the pipeline, ledger and cache shared by the
// server and the CLI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spherical/lecturecast/internal/cache"
	"github.com/spherical/lecturecast/internal/config"
	"github.com/spherical/lecturecast/internal/document"
	"github.com/spherical/lecturecast/internal/domain"
	"github.com/spherical/lecturecast/internal/handout"
	"github.com/spherical/lecturecast/internal/lecture"
	"github.com/spherical/lecturecast/internal/llm"
	"github.com/spherical/lecturecast/internal/narration"
	"github.com/spherical/lecturecast/internal/observability"
	"github.com/spherical/lecturecast/internal/script"
	"github.com/spherical/lecturecast/internal/storage"
	"github.com/spherical/lecturecast/internal/tts"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, req lecture.RunRequest) (*domain.PipelineResult, error)
}

// App holds the long-lived dependencies of a lecturecast process.
type App struct {
	Config   *config.Config
	Logger   *observability.Logger
	Runs     *storage.RunRepository
	Results  *cache.ResultStore
	Handouts *handout.Renderer
	Pipeline Runner

	db          *sql.DB
	cacheClient cache.Client
}

// New opens the run ledger and result cache and builds the pipeline.
func New(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*App, error) {
	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.DatabaseDSN(), storage.Options{
		MaxOpenConns:    cfg.Database.Postgres.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("open run ledger: %w", err)
	}

	cacheClient, err := NewCacheClient(cfg.Cache)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open result cache: %w", err)
	}

	runs := storage.NewRunRepository(db)

	logger.Info().
		Str("database", cfg.Database.Driver).
		Str("cache", cfg.Cache.Driver).
		Str("model", cfg.Expansion.Model).
		Str("voice", cfg.Synthesis.VoiceID).
		Msg("lecturecast initialized")

	return &App{
		Config:      cfg,
		Logger:      logger,
		Runs:        runs,
		Results:     cache.NewResultStore(cacheClient, cfg.Cache.TTL),
		Handouts:    handout.NewRenderer(),
		Pipeline:    NewOrchestrator(cfg, runs, logger),
		db:          db,
		cacheClient: cacheClient,
	}, nil
}

// NewCacheClient builds the configured cache backend.
func NewCacheClient(cfg config.CacheConfig) (cache.Client, error) {
	switch cfg.Driver {
	case "redis":
		return cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
	case "", "memory":
		return cache.NewMemoryClient(cfg.MaxEntries), nil
	default:
		return nil, domain.ConfigError("unknown cache driver: "+cfg.Driver, nil)
	}
}

// NewOrchestrator builds the extract, script and synthesize stages from cfg.
// recorder may be nil.
func NewOrchestrator(cfg *config.Config, recorder domain.RunRecorder, logger *observability.Logger) *lecture.Orchestrator {
	extractor := document.NewExtractor(
		document.NewConverter(cfg.Extraction.ConverterBinary, cfg.Extraction.ConversionTimeout, logger),
		document.NewRasterizer(cfg.Extraction.RenderScale),
		logger,
	)

	expander := llm.NewClient(llm.Config{
		APIKey:         cfg.Expansion.APIKey,
		BaseURL:        cfg.Expansion.BaseURL,
		Model:          cfg.Expansion.Model,
		RequestTimeout: cfg.Expansion.RequestTimeout,
		MaxRetries:     cfg.Expansion.MaxRetries,
	}, logger)

	speech := tts.NewClient(tts.Config{
		APIKey:         cfg.Synthesis.APIKey,
		BaseURL:        cfg.Synthesis.BaseURL,
		VoiceID:        cfg.Synthesis.VoiceID,
		ModelID:        cfg.Synthesis.ModelID,
		OutputFormat:   cfg.Synthesis.OutputFormat,
		RequestTimeout: cfg.Synthesis.RequestTimeout,
		MaxRetries:     cfg.Synthesis.MaxRetries,
	}, logger)

	return lecture.New(lecture.Config{
		WorkDir:         cfg.Storage.WorkDir,
		PublicDir:       cfg.Storage.PublicDir,
		PublicURLPrefix: cfg.Storage.PublicURLPrefix,
		RunTimeout:      cfg.Pipeline.RunTimeout,
	},
		extractor,
		script.NewGenerator(expander, cfg.Pipeline.PageConcurrency, logger),
		narration.NewSynthesizer(speech, cfg.Pipeline.PageConcurrency, logger),
		recorder,
		logger,
	)
}

// Process runs the pipeline and caches the payload of a successful run.
// A cache failure is logged and does not fail the run.
func (a *App) Process(ctx context.Context, req lecture.RunRequest) (*domain.PipelineResult, domain.ResultPayload, error) {
	result, err := a.Pipeline.Run(ctx, req)
	if err != nil {
		return nil, domain.ResultPayload{}, err
	}

	payload := domain.NewResultPayload(result)
	if err := a.Results.Put(ctx, payload); err != nil {
		a.Logger.Warn().Err(err).Str("run_id", result.RunID).Msg("failed to cache result")
	}
	return result, payload, nil
}

// Workspace returns the directory layout of a namespace.
func (a *App) Workspace(namespace string) lecture.Workspace {
	return lecture.Workspace{
		WorkDir:         a.Config.Storage.WorkDir,
		PublicDir:       a.Config.Storage.PublicDir,
		PublicURLPrefix: a.Config.Storage.PublicURLPrefix,
		Namespace:       namespace,
	}
}

// LoadResult reads the latest completed result of a namespace from disk.
func (a *App) LoadResult(namespace string) (*domain.PipelineResult, error) {
	return lecture.LoadResult(a.Workspace(namespace).ResultPath())
}

// RunResult returns the full result of a completed run. A run whose namespace has since
// been re-run no longer has its files and reports SourceNotFound.
func (a *App) RunResult(ctx context.Context, runID string) (*domain.PipelineResult, error) {
	run, err := a.lookupRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	result, err := a.LoadResult(run.Namespace)
	if err != nil {
		return nil, err
	}
	if result.RunID != runID {
		return nil, domain.SourceNotFoundError(fmt.Sprintf("result of run %s was replaced by run %s", runID, result.RunID), nil)
	}
	return result, nil
}

// RunPayload returns the client payload of a completed run, from cache when possible.
func (a *App) RunPayload(ctx context.Context, runID string) (*domain.ResultPayload, error) {
	run, err := a.lookupRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	payload, err := a.Results.Get(ctx, run.Namespace, runID)
	if err == nil {
		return payload, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		a.Logger.Warn().Err(err).Str("run_id", runID).Msg("result cache read failed")
	}

	result, err := a.RunResult(ctx, runID)
	if err != nil {
		return nil, err
	}
	p := domain.NewResultPayload(result)
	if err := a.Results.Put(ctx, p); err != nil {
		a.Logger.Warn().Err(err).Str("run_id", runID).Msg("failed to cache result")
	}
	return &p, nil
}

func (a *App) lookupRun(ctx context.Context, runID string) (*storage.Run, error) {
	run, err := a.Runs.Get(ctx, runID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, domain.SourceNotFoundError("unknown run "+runID, err)
	}
	if err != nil {
		return nil, domain.IOError("failed to read run ledger", err)
	}
	if run.State != domain.StateComplete {
		return nil, domain.ValidationError(fmt.Sprintf("run %s is %s, not complete", runID, run.State), nil)
	}
	return run, nil
}

// Close releases the cache and the database.
func (a *App) Close() error {
	return errors.Join(a.cacheClient.Close(), a.db.Close())
}
