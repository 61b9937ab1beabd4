// Package app wires configuration into the running extraction stack shared by the
// CLI and the HTTP server.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hyperjump/kubun/internal/archive"
	"github.com/hyperjump/kubun/internal/assembler"
	"github.com/hyperjump/kubun/internal/config"
	"github.com/hyperjump/kubun/internal/embedding"
	"github.com/hyperjump/kubun/internal/grobid"
	"github.com/hyperjump/kubun/internal/heading"
	"github.com/hyperjump/kubun/internal/indexer"
	"github.com/hyperjump/kubun/internal/keyword"
	"github.com/hyperjump/kubun/internal/loader"
	"github.com/hyperjump/kubun/internal/models"
	"github.com/hyperjump/kubun/internal/search"
	"github.com/hyperjump/kubun/internal/segment"
	"github.com/hyperjump/kubun/internal/storage"
	"github.com/hyperjump/kubun/internal/vector"
	"github.com/hyperjump/kubun/pkg/utils"
)

// Components holds every long-lived dependency built from one Config.
type Components struct {
	Config       *config.Config
	Logger       *zap.Logger
	Storage      storage.Storage
	Embedder     embedding.Embedder
	VectorIndex  vector.VectorIndex
	KeywordIndex keyword.Index
	Archive      archive.Archive
	Grobid       *grobid.Client // nil when disabled
	Loader       *loader.Loader
	Assembler    *assembler.Assembler
	Indexer      *indexer.Indexer
	Engine       *search.Engine
}

// Option adjusts component construction.
type Option func(*options)

type options struct {
	embedder embedding.Embedder
	warm     bool
}

// WithEmbedder uses e instead of building one from the embedding config.
func WithEmbedder(e embedding.Embedder) Option {
	return func(o *options) { o.embedder = e }
}

// WithWarmup pre-embeds the heading phrase sets before returning.
func WithWarmup(warm bool) Option {
	return func(o *options) { o.warm = warm }
}

// New builds the components. On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (c *Components, err error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	logger = utils.OrNop(logger)
	c = &Components{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			err = multierr.Append(err, c.Close())
			c = nil
		}
	}()

	c.Storage, err = storage.Open(ctx, &cfg.Storage)
	if err != nil {
		return c, fmt.Errorf("failed to initialize storage: %w", err)
	}

	c.Embedder = o.embedder
	if c.Embedder == nil {
		c.Embedder, err = embedding.NewFromConfig(ctx, &cfg.Embedding, logger)
		if err != nil {
			return c, fmt.Errorf("failed to initialize embedder: %w", err)
		}
	}

	mem, err := vector.NewMemoryIndex(c.Embedder.Dimensions())
	if err != nil {
		return c, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	c.VectorIndex = mem
	if path := cfg.Storage.VectorIndexPath; path != "" {
		if loadErr := mem.Load(path); loadErr != nil {
			logger.Warn("vector index load skipped (run reindex)", zap.String("path", path), zap.Error(loadErr))
		}
	}

	c.KeywordIndex, err = keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return c, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	c.Archive, err = archive.Open(ctx, &cfg.Archive)
	if err != nil {
		return c, fmt.Errorf("failed to initialize archive: %w", err)
	}

	loaderOpts := []loader.Option{loader.WithLogger(logger)}
	if !cfg.Grobid.Disabled {
		c.Grobid = grobid.New(&cfg.Grobid, grobid.WithLogger(logger))
		loaderOpts = append(loaderOpts, loader.WithPDFConverter(c.Grobid))
	}
	c.Loader = loader.New(loaderOpts...)

	configs, err := segment.FromSettings(cfg.Sections)
	if err != nil {
		return c, fmt.Errorf("invalid sections config: %w", err)
	}
	matcher := heading.NewMatcher(c.Embedder, heading.WithLogger(logger))
	c.Assembler = assembler.New(matcher,
		assembler.WithConfigs(configs),
		assembler.WithFlatMethods(cfg.Extract.FlatMethods),
		assembler.WithLogger(logger))
	if o.warm {
		if err = c.Assembler.Warm(ctx); err != nil {
			return c, fmt.Errorf("failed to warm heading phrases: %w", err)
		}
	}

	outputs := archive.NewOutputs(c.Archive,
		archive.WithLogger(logger),
		archive.WithKeepSource(cfg.Archive.KeepSource))
	c.Indexer = indexer.NewIndexer(c.Assembler, c.Storage, c.Embedder, c.VectorIndex, c.KeywordIndex,
		indexer.WithLoader(c.Loader),
		indexer.WithOutputs(outputs),
		indexer.WithTimeout(time.Duration(cfg.Extract.TimeoutSeconds)*time.Second),
		indexer.WithLogger(logger))
	c.Engine = search.NewEngine(c.Storage, c.Embedder, c.VectorIndex, c.KeywordIndex, &cfg.Search, logger)
	return c, nil
}

// Status collects counts, disk usage and GROBID liveness.
func (c *Components) Status(ctx context.Context) (*models.Status, error) {
	st := &models.Status{
		StorageDriver:    c.Config.Storage.Driver,
		ArchiveDriver:    c.Config.Archive.Driver,
		EmbeddingModel:   c.Config.Embedding.Provider,
		Dimensions:       c.Embedder.Dimensions(),
		VectorParagraphs: c.VectorIndex.Size(),
		WatchDirectories: c.Config.Watch.Directories,
		Grobid:           "disabled",
	}
	var err error
	if st.Extractions, err = c.Storage.CountExtractions(ctx); err != nil {
		return nil, fmt.Errorf("count extractions: %w", err)
	}
	if st.Failed, err = c.Storage.CountFailed(ctx); err != nil {
		return nil, fmt.Errorf("count failed: %w", err)
	}
	if st.KeywordDocuments, err = c.KeywordIndex.DocCount(); err != nil {
		return nil, fmt.Errorf("count keyword documents: %w", err)
	}
	paths := []string{c.Config.Storage.BleveIndexPath, c.Config.Storage.VectorIndexPath}
	if c.Config.Storage.Driver == "sqlite" {
		paths = append(paths, c.Config.Storage.DatabasePath)
	}
	if c.Config.Archive.Driver == "local" {
		paths = append(paths, c.Config.Archive.Directory)
	}
	if usage, total, diskErr := storage.DiskUsage(paths...); diskErr == nil {
		st.DiskUsage, st.DiskUsageBytes = usage, total
	} else {
		c.Logger.Warn("disk usage unavailable", zap.Error(diskErr))
	}
	if c.Grobid != nil {
		st.Grobid = "down"
		if c.Grobid.Alive(ctx) {
			st.Grobid = "up"
		}
	}
	return st, nil
}

// SaveVectors persists the vector index to the configured path.
func (c *Components) SaveVectors() error {
	if c.VectorIndex == nil || c.Config.Storage.VectorIndexPath == "" {
		return nil
	}
	return c.VectorIndex.Save(c.Config.Storage.VectorIndexPath)
}

// Close saves the vector index and closes every component, combining failures.
func (c *Components) Close() error {
	var err error
	if c.VectorIndex != nil {
		err = multierr.Append(err, c.SaveVectors())
		err = multierr.Append(err, c.VectorIndex.Close())
	}
	if c.KeywordIndex != nil {
		err = multierr.Append(err, c.KeywordIndex.Close())
	}
	if c.Embedder != nil {
		err = multierr.Append(err, c.Embedder.Close())
	}
	if c.Storage != nil {
		err = multierr.Append(err, c.Storage.Close())
	}
	return err
}
