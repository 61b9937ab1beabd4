// Package indexer runs the extraction pipeline: load a document, assemble its sections,
// persist the extraction, index it for search, and archive the outputs.
package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hyperjump/kubun/internal/archive"
	"github.com/hyperjump/kubun/internal/assembler"
	"github.com/hyperjump/kubun/internal/docid"
	"github.com/hyperjump/kubun/internal/embedding"
	"github.com/hyperjump/kubun/internal/keyword"
	"github.com/hyperjump/kubun/internal/loader"
	"github.com/hyperjump/kubun/internal/models"
	"github.com/hyperjump/kubun/internal/storage"
	"github.com/hyperjump/kubun/internal/vector"
)

// ErrTimeout marks an extraction that did not finish within the configured timeout.
var ErrTimeout = errors.New("extraction timed out")

// Indexer extracts documents and keeps storage, the keyword index, the vector index
// and the output archive in sync.
type Indexer struct {
	loader       *loader.Loader
	assembler    *assembler.Assembler
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	keywordIndex keyword.Index
	outputs      *archive.Outputs
	timeout      time.Duration
	logger       *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithLoader replaces the default loader (no PDF converter).
func WithLoader(l *loader.Loader) IndexerOption {
	return func(idx *Indexer) { idx.loader = l }
}

// WithOutputs archives JSON/TXT outputs and the error log.
func WithOutputs(o *archive.Outputs) IndexerOption {
	return func(idx *Indexer) { idx.outputs = o }
}

// WithTimeout bounds the section assembly of one document. Zero means no limit.
func WithTimeout(d time.Duration) IndexerOption {
	return func(idx *Indexer) { idx.timeout = d }
}

// NewIndexer creates an indexer with the given dependencies.
func NewIndexer(
	asm *assembler.Assembler,
	storage storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	keywordIndex keyword.Index,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		assembler:    asm,
		storage:      storage,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.loader == nil {
		idx.loader = loader.New(loader.WithLogger(idx.logger))
	}
	if idx.outputs == nil {
		idx.outputs = archive.NewOutputs(nil)
	}
	return idx
}

// Loader returns the loader used for files and uploads.
func (idx *Indexer) Loader() *loader.Loader {
	return idx.loader
}

// Outputs returns the output archive wrapper.
func (idx *Indexer) Outputs() *archive.Outputs {
	return idx.outputs
}

// Extract assembles doc, saves the extraction, and indexes it. Section failures are
// recorded on the extraction and do not fail the call; a timeout does. A document
// without an ID gets one derived from its content.
func (idx *Indexer) Extract(ctx context.Context, doc *models.Document) (*models.Extraction, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if doc.ID == "" {
		data, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("marshal document: %w", err)
		}
		doc.ID = docid.FromContent(data)
	}
	if !docid.Valid(doc.ID) {
		return nil, fmt.Errorf("invalid document id %q", doc.ID)
	}

	sections, err := idx.assemble(ctx, doc)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s", ErrTimeout, doc.ID)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	e := &models.Extraction{
		DocumentID: doc.ID,
		Source:     doc.Source,
		Title:      sections.Title.Content,
		Sections:   sections,
	}
	for _, sectionErr := range multierr.Errors(err) {
		e.Errors = append(e.Errors, sectionErr.Error())
	}
	if err := idx.store(ctx, e); err != nil {
		return nil, err
	}
	idx.logger.Debug("document extracted",
		zap.String("doc_id", e.DocumentID),
		zap.Int("methods_paragraphs", len(sections.Paragraphs(models.SectionMethods))),
		zap.Int("results_paragraphs", len(sections.Paragraphs(models.SectionResultsDiscussion))),
		zap.Int("errors", len(e.Errors)))
	return e, nil
}

func (idx *Indexer) assemble(ctx context.Context, doc *models.Document) (*models.DocumentSections, error) {
	if idx.timeout <= 0 {
		return idx.assembler.Assemble(ctx, doc)
	}
	tctx, cancel := context.WithTimeout(ctx, idx.timeout)
	defer cancel()
	return idx.assembler.Assemble(tctx, doc)
}

// store persists e and refreshes both search indexes.
func (idx *Indexer) store(ctx context.Context, e *models.Extraction) error {
	if err := idx.storage.SaveExtraction(ctx, e); err != nil {
		return fmt.Errorf("failed to store extraction: %w", err)
	}
	if err := idx.keywordIndex.Index(ctx, e); err != nil {
		return fmt.Errorf("failed to index keywords: %w", err)
	}
	if err := idx.indexParagraphs(ctx, e); err != nil {
		return fmt.Errorf("failed to index vectors: %w", err)
	}
	return nil
}

// indexParagraphs replaces the paragraph embeddings of e's document.
func (idx *Indexer) indexParagraphs(ctx context.Context, e *models.Extraction) error {
	if _, err := idx.vectorIndex.RemovePrefix(ctx, vector.DocumentPrefix(e.DocumentID)); err != nil {
		return err
	}
	if e.Sections == nil {
		return nil
	}
	var ids, texts []string
	for _, section := range models.Sections {
		for i, p := range e.Sections.Paragraphs(section) {
			ids = append(ids, vector.ParagraphID(e.DocumentID, section, i))
			texts = append(texts, p)
		}
	}
	if len(texts) == 0 {
		return nil
	}
	embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	return idx.vectorIndex.Add(ctx, ids, embeddings)
}

// ExtractBytes loads an uploaded file and extracts it. The document ID is derived from
// the content unless the parsed document carries one. Outputs are archived; a failure
// is appended to the error log.
func (idx *Indexer) ExtractBytes(ctx context.Context, filename string, data []byte) (*models.Extraction, error) {
	doc, err := idx.loader.LoadBytes(ctx, filename, data)
	if err != nil {
		idx.logFailure(ctx, filename, err)
		return nil, err
	}
	if doc.ID == "" {
		doc.ID = docid.FromContent(data)
	}
	return idx.extractAndArchive(ctx, doc, filename, data)
}

// ExtractFile loads the file at path and extracts it under an ID derived from its
// absolute path, so re-extracting the file replaces the previous result.
func (idx *Indexer) ExtractFile(ctx context.Context, path string) (*models.Extraction, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	name := filepath.Base(absPath)
	if _, err := loader.FormatFor(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	doc, err := idx.loader.LoadBytes(ctx, name, data)
	if err != nil {
		idx.logFailure(ctx, name, err)
		return nil, err
	}
	doc.ID = docid.FromPath(absPath)
	doc.Source = absPath
	return idx.extractAndArchive(ctx, doc, name, data)
}

func (idx *Indexer) extractAndArchive(ctx context.Context, doc *models.Document, filename string, data []byte) (*models.Extraction, error) {
	e, err := idx.Extract(ctx, doc)
	if err != nil {
		idx.logFailure(ctx, filename, err)
		return nil, err
	}
	if err := idx.outputs.Write(ctx, e, filename, data); err != nil {
		idx.logger.Warn("outputs not archived", zap.String("doc_id", e.DocumentID), zap.Error(err))
	}
	idx.logger.Info("document extracted", zap.String("file", filename), zap.String("doc_id", e.DocumentID))
	return e, nil
}

func (idx *Indexer) logFailure(ctx context.Context, filename string, cause error) {
	idx.logger.Warn("extraction failed", zap.String("file", filename), zap.Error(cause))
	if err := idx.outputs.LogError(ctx, filename, cause); err != nil {
		idx.logger.Warn("error log not written", zap.String("file", filename), zap.Error(err))
	}
}

// ExtractDirectory walks dir recursively and extracts every file whose extension is in
// allowedExts (all loader formats when empty). Failed files are logged and skipped; the
// returned error combines their failures. n counts successful extractions.
func (idx *Indexer) ExtractDirectory(ctx context.Context, dir string, allowedExts []string) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	if len(allowedExts) == 0 {
		allowedExts = loader.SupportedExtensions()
	}
	var failures error
	walkErr := filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !extensionAllowed(filepath.Ext(path), allowedExts) {
			return nil
		}
		// Resolve symlinks so only regular files are extracted
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		if _, extractErr := idx.ExtractFile(ctx, path); extractErr != nil {
			failures = multierr.Append(failures, fmt.Errorf("%s: %w", filepath.Base(path), extractErr))
			return nil
		}
		n++
		return nil
	})
	return n, multierr.Append(walkErr, failures)
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

// Delete removes a document's extraction from storage, both indexes and the archive.
func (idx *Indexer) Delete(ctx context.Context, documentID string) error {
	idx.logger.Debug("indexer deleting document", zap.String("doc_id", documentID))
	e, err := idx.storage.GetExtraction(ctx, documentID)
	if err != nil {
		return err
	}
	if err := idx.keywordIndex.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete from keyword index: %w", err)
	}
	if _, err := idx.vectorIndex.RemovePrefix(ctx, vector.DocumentPrefix(documentID)); err != nil {
		return fmt.Errorf("failed to delete from vector index: %w", err)
	}
	filename := ""
	if e.Source != "" {
		filename = filepath.Base(e.Source)
	}
	if err := idx.outputs.Remove(ctx, documentID, filename); err != nil {
		idx.logger.Warn("archived outputs not removed", zap.String("doc_id", documentID), zap.Error(err))
	}
	if err := idx.storage.DeleteExtraction(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete extraction: %w", err)
	}
	return nil
}

// DeleteFile removes the extraction of the file at path. A file that was never
// extracted is not an error.
func (idx *Indexer) DeleteFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	err = idx.Delete(ctx, docid.FromPath(absPath))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

// Reindex rebuilds the keyword and vector entries of every stored extraction, e.g.
// after the index directory was removed.
func (idx *Indexer) Reindex(ctx context.Context) (int, error) {
	const page = 100
	n := 0
	for offset := 0; ; offset += page {
		batch, err := idx.storage.ListExtractions(ctx, offset, page)
		if err != nil {
			return n, err
		}
		for _, e := range batch {
			if err := idx.keywordIndex.Index(ctx, e); err != nil {
				return n, fmt.Errorf("failed to index keywords: %w", err)
			}
			if err := idx.indexParagraphs(ctx, e); err != nil {
				return n, fmt.Errorf("failed to index vectors: %w", err)
			}
			n++
		}
		if len(batch) < page {
			return n, nil
		}
	}
}
