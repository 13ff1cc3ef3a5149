package cmd

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/Aman-CERP/docrag/internal/chunk"
	"github.com/Aman-CERP/docrag/internal/config"
	"github.com/Aman-CERP/docrag/internal/embed"
	"github.com/Aman-CERP/docrag/internal/index"
	"github.com/Aman-CERP/docrag/internal/logging"
	"github.com/Aman-CERP/docrag/internal/store"
)

// app is the wiring shared by every command that touches the data directory.
type app struct {
	cfg      *config.Config
	store    *store.SQLiteStore
	keywords *store.KeywordIndex
	model    *embed.Slot
	svc      *index.Service

	mu         sync.Mutex
	embedder   embed.Embedder
	logCleanup func()
}

type appOptions struct {
	// withModel creates the embedder. Commands that only read the catalogue
	// skip it so an offline Ollama does not slow them down.
	withModel bool
	// stdioSafe keeps all logging out of stdout and stderr.
	stdioSafe bool
	progress  index.ProgressFunc
}

// loadConfig reads configuration for the working directory and applies the
// global flags.
func loadConfig() (*config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	cfg, err := config.Load(wd)
	if err != nil {
		return nil, err
	}
	if dataDirFlag != "" {
		cfg.DataDir = dataDirFlag
	}
	if debugMode {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func openApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logCleanup: func() {}}
	if err := a.setupLogging(opts.stdioSafe); err != nil {
		return nil, err
	}

	a.store, err = store.Open(cfg.DatabasePath())
	if err != nil {
		a.Close()
		return nil, err
	}

	// Keyword search is optional; a broken index is rebuilt from the store.
	a.keywords, err = store.OpenKeywordIndex(cfg.KeywordIndexPath())
	if err != nil {
		slog.Warn("keyword_index_unavailable", slog.String("error", err.Error()))
		a.keywords = nil
	}

	a.model = embed.NewSlot(embed.Uninitialized())
	if opts.withModel {
		a.initModel(ctx)
	}

	a.svc, err = index.NewService(index.ServiceConfig{
		Store:        a.store,
		Keywords:     a.keywords,
		Capability:   a.model,
		Chunking:     chunk.Config{ChunkSize: cfg.Chunking.ChunkSize, Overlap: cfg.Chunking.Overlap},
		DocumentsDir: cfg.DocumentsDir(),
		DataDir:      cfg.DataDir,
		DefaultK:     cfg.Search.DefaultK,
		Progress:     opts.progress,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) setupLogging(stdioSafe bool) error {
	logCfg := logging.Config{
		Level:     a.cfg.Logging.Level,
		FilePath:  logging.LogPath(a.cfg.DataDir),
		MaxSizeMB: a.cfg.Logging.MaxSizeMB,
		MaxFiles:  a.cfg.Logging.MaxFiles,
	}
	if stdioSafe {
		cleanup, err := logging.SetupStdioSafe(logCfg)
		if err != nil {
			return err
		}
		a.logCleanup = cleanup
		return nil
	}

	logCfg.WriteToStderr = debugMode
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	a.logCleanup = cleanup
	return nil
}

func (a *app) embedderOptions() embed.Options {
	e := a.cfg.Embeddings
	provider, _ := embed.ParseProvider(e.Provider)
	return embed.Options{
		Provider:          provider,
		Model:             e.Model,
		Dimensions:        e.Dimensions,
		OllamaHost:        e.OllamaHost,
		BatchSize:         e.BatchSize,
		RequestsPerSecond: e.RequestsPerSecond,
		CacheSize:         e.CacheSize,
	}
}

// initModel creates the configured embedder and, once it answers, makes it
// the current capability. Failure leaves the capability Uninitialized.
func (a *app) initModel(ctx context.Context) bool {
	e, err := embed.NewEmbedder(ctx, a.embedderOptions())
	if err != nil {
		slog.Warn("embedder_unavailable",
			slog.String("provider", a.cfg.Embeddings.Provider),
			slog.String("error", err.Error()))
		return false
	}
	if !e.Available(ctx) {
		slog.Warn("embedder_not_ready", slog.String("model", e.ModelName()))
		_ = e.Close()
		return false
	}

	opts := embed.DefaultWorkerOptions()
	if a.cfg.Embeddings.BatchSize > 0 {
		opts.BatchSize = a.cfg.Embeddings.BatchSize
	}
	if a.cfg.Embeddings.Workers > 0 {
		opts.Concurrency = a.cfg.Embeddings.Workers
	}
	w := embed.NewWorker(e, opts)
	a.mu.Lock()
	a.embedder = w
	a.mu.Unlock()
	a.model.Set(embed.Ready(w))
	slog.Info("embedder_ready",
		slog.String("model", e.ModelName()),
		slog.Int("dimensions", e.Dimensions()))
	return true
}

// retryModel keeps trying to bring the embedder up until it is ready or ctx
// ends. onReady runs once when it succeeds.
func (a *app) retryModel(ctx context.Context, interval time.Duration, onReady func()) {
	if a.model.Current().IsReady() {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if a.initModel(ctx) {
				if onReady != nil {
					onReady()
				}
				return
			}
		}
	}
}

// modelInfo describes the active embedder, or the configured one when none
// is ready.
func (a *app) modelInfo(ctx context.Context) (embed.EmbedderInfo, string) {
	if e, ok := a.model.Current().Embedder(); ok {
		return embed.GetInfo(ctx, e), "ready"
	}
	provider, _ := embed.ParseProvider(a.cfg.Embeddings.Provider)
	info := embed.EmbedderInfo{Provider: provider, Dimensions: a.cfg.Embeddings.Dimensions}
	if provider == embed.ProviderOllama {
		info.Model = a.cfg.Embeddings.Model
	}
	return info, "offline"
}

// Close releases everything openApp acquired.
func (a *app) Close() {
	a.mu.Lock()
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	a.mu.Unlock()
	if a.keywords != nil {
		_ = a.keywords.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	a.logCleanup()
}
