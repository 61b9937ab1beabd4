// Package watcher turns directories into extraction inboxes: files dropped in are
// extracted by a small worker pool, and removed files lose their extraction.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/kubun/internal/config"
	"github.com/hyperjump/kubun/internal/models"
)

const (
	defaultDebounce = 400 * time.Millisecond
	queueSize       = 256
)

// Handler extracts and forgets files. *indexer.Indexer satisfies it.
type Handler interface {
	ExtractFile(ctx context.Context, path string) (*models.Extraction, error)
	DeleteFile(ctx context.Context, path string) error
}

// Stats counts inbox activity since Start.
type Stats struct {
	Queued    int64 `json:"queued"`
	Extracted int64 `json:"extracted"`
	Failed    int64 `json:"failed"`
	Removed   int64 `json:"removed"`
}

// Watcher watches inbox directories and feeds changed files to a Handler.
type Watcher struct {
	roots       []string
	extensions  []string
	recursive   bool
	workers     int
	handler     Handler
	debounce    time.Duration
	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	rootPaths   map[string][]string // root -> watched directories under it
	queue       chan string
	pending     map[string]bool
	ctx         context.Context
	wg          sync.WaitGroup
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
	logger      *zap.Logger

	queued, extracted, failed, removed atomic.Int64
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets how long a file must stay quiet before it is extracted.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithWorkers sets how many files are extracted concurrently.
func WithWorkers(n int) WatcherOption {
	return func(w *Watcher) { w.workers = n }
}

// NewWatcher creates a watcher over roots. extensions filter which files are handled
// (empty = all).
func NewWatcher(roots []string, extensions []string, recursive bool, handler Handler, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		roots:       roots,
		extensions:  extensions,
		recursive:   recursive,
		workers:     1,
		handler:     handler,
		debounce:    defaultDebounce,
		debounceMap: make(map[string]*time.Timer),
		rootPaths:   make(map[string][]string),
		pending:     make(map[string]bool),
		done:        make(chan struct{}),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.workers < 1 {
		w.workers = 1
	}
	w.queue = make(chan string, queueSize)
	return w
}

// FromConfig creates a watcher from the watch section of the configuration.
func FromConfig(cfg *config.WatchConfig, handler Handler, logger *zap.Logger) *Watcher {
	opts := []WatcherOption{WithWorkers(cfg.Workers), WithLogger(logger)}
	if cfg.DebounceMS > 0 {
		opts = append(opts, WithDebounce(time.Duration(cfg.DebounceMS)*time.Millisecond))
	}
	return NewWatcher(cfg.Directories, cfg.Extensions, cfg.RecursiveOrDefault(), handler, opts...)
}

// Start starts watching and the worker pool. It runs until ctx is cancelled or Stop
// is called. Missing roots are created.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	w.ctx = ctx
	w.logger.Debug("watcher starting",
		zap.Strings("roots", w.roots),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", w.recursive),
		zap.Int("workers", w.workers))
	for _, root := range w.roots {
		if err := w.addRootLocked(root); err != nil {
			_ = w.watcher.Close()
			w.watcher = nil
			w.started = false
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.work(ctx)
	}
	go w.run(ctx, watcher)
	return nil
}

func (w *Watcher) run(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) work(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		case path := <-w.queue:
			w.mu.Lock()
			delete(w.pending, path)
			w.mu.Unlock()
			w.extract(ctx, path)
		}
	}
}

func (w *Watcher) extract(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		// Removed before its turn came.
		return
	}
	if _, err := w.handler.ExtractFile(ctx, path); err != nil {
		w.failed.Add(1)
		w.logger.Warn("inbox extraction failed", zap.String("path", path), zap.Error(err))
		return
	}
	w.extracted.Add(1)
	w.logger.Debug("inbox file extracted", zap.String("path", path))
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	if !w.underRoot(path) || ignored(path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if w.matchExtension(path) {
			w.debounceExtract(path)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		// A rename reports the old name; the new name arrives as Create.
		w.cancelDebounce(path)
		if w.matchExtension(path) {
			w.remove(path)
		}
	}
}

func (w *Watcher) remove(path string) {
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := w.handler.DeleteFile(ctx, path); err != nil {
		w.logger.Warn("inbox delete failed", zap.String("path", path), zap.Error(err))
		return
	}
	w.removed.Add(1)
}

// handleNewDirectory watches a directory that appeared under a root and queues the
// files already inside it.
func (w *Watcher) handleNewDirectory(dirPath string) {
	w.mu.Lock()
	recursive := w.recursive
	watcher := w.watcher
	w.mu.Unlock()
	if watcher == nil {
		return
	}
	w.logger.Debug("watcher handling new directory", zap.String("path", dirPath))
	if recursive {
		_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if err := watcher.Add(path); err != nil {
					w.logger.Debug("watcher failed to add directory", zap.String("path", path), zap.Error(err))
				}
			}
			return nil
		})
	} else if err := watcher.Add(dirPath); err != nil {
		w.logger.Debug("watcher failed to add directory", zap.String("path", dirPath), zap.Error(err))
	}
	w.syncDirectory(dirPath)
}

func (w *Watcher) underRoot(path string) bool {
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	w.mu.Unlock()
	clean := filepath.Clean(path)
	for _, root := range roots {
		rootClean := filepath.Clean(root)
		if rootClean == clean || inDir(rootClean, clean) {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ignored reports editor, office lock and partial-download files.
func ignored(path string) bool {
	name := filepath.Base(path)
	switch {
	case strings.HasPrefix(name, "."), strings.HasPrefix(name, "~$"), strings.HasSuffix(name, "~"):
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".tmp", ".part", ".crdownload", ".swp":
		return true
	}
	return false
}

func (w *Watcher) matchExtension(path string) bool {
	return matchExtension(path, w.extensions)
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	extNorm := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == extNorm {
			return true
		}
	}
	return false
}

func (w *Watcher) debounceExtract(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
		w.enqueue(path)
	})
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

// enqueue queues path once; a path already waiting is not queued twice.
func (w *Watcher) enqueue(path string) {
	w.mu.Lock()
	if w.pending[path] || !w.started {
		w.mu.Unlock()
		return
	}
	w.pending[path] = true
	w.mu.Unlock()
	select {
	case w.queue <- path:
		w.queued.Add(1)
	case <-w.done:
	}
}

// AddDirectory adds a root directory to watch and optionally queues its existing files.
func (w *Watcher) AddDirectory(root string, syncExisting bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	for _, r := range w.roots {
		if filepath.Clean(r) == filepath.Clean(abs) {
			return nil
		}
	}
	if err := w.addRootLocked(abs); err != nil {
		return err
	}
	w.roots = append(w.roots, abs)
	w.logger.Debug("watcher directory added", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if syncExisting {
		go w.syncDirectory(abs)
	}
	return nil
}

func (w *Watcher) addRootLocked(root string) error {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(root, 0755); err != nil {
			return err
		}
	}
	var paths []string
	if w.recursive {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if err := w.watcher.Add(path); err != nil {
				return err
			}
			paths = append(paths, path)
			return nil
		})
		if err != nil {
			return err
		}
	} else {
		if err := w.watcher.Add(root); err != nil {
			return err
		}
		paths = append(paths, root)
	}
	w.rootPaths[root] = paths
	return nil
}

func (w *Watcher) syncDirectory(root string) {
	w.mu.Lock()
	exts := append([]string(nil), w.extensions...)
	recursive := w.recursive
	w.mu.Unlock()
	w.logger.Debug("watcher syncing directory", zap.String("root", root))
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !ignored(path) && matchExtension(path, exts) {
			w.enqueue(path)
		}
		return nil
	})
}

// RemoveDirectory stops watching the given root. Extractions are kept.
func (w *Watcher) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	idx := -1
	for i, r := range w.roots {
		if filepath.Clean(r) == abs {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	for _, p := range w.rootPaths[abs] {
		_ = w.watcher.Remove(p)
	}
	delete(w.rootPaths, abs)
	w.roots = append(w.roots[:idx], w.roots[idx+1:]...)
	w.logger.Debug("watcher directory removed", zap.String("path", abs))
	return nil
}

// Directories returns a copy of the current watched root directories.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// SyncExistingFiles queues every file already present in the watched roots.
// Call this after Start.
func (w *Watcher) SyncExistingFiles() {
	for _, root := range w.Directories() {
		w.syncDirectory(root)
	}
}

// Stats returns activity counters.
func (w *Watcher) Stats() Stats {
	return Stats{
		Queued:    w.queued.Load(),
		Extracted: w.extracted.Load(),
		Failed:    w.failed.Load(),
		Removed:   w.removed.Load(),
	}
}

// Stop stops watching, waits for in-flight extractions and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
	w.wg.Wait()
}
