package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/kubun/internal/config"
	"github.com/hyperjump/kubun/internal/models"
)

type recorder struct {
	mu        sync.Mutex
	extracted []string
	deleted   []string
	fail      bool
}

func (r *recorder) ExtractFile(_ context.Context, path string) (*models.Extraction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extracted = append(r.extracted, path)
	if r.fail {
		return nil, errors.New("boom")
	}
	return &models.Extraction{DocumentID: path}, nil
}

func (r *recorder) DeleteFile(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, path)
	return nil
}

func (r *recorder) snapshot() (extracted, deleted []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.extracted...), append([]string(nil), r.deleted...)
}

func hasSuffix(paths []string, suffix string) bool {
	for _, p := range paths {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func startWatcher(t *testing.T, roots []string, exts []string, h Handler) *Watcher {
	t.Helper()
	w := NewWatcher(roots, exts, true, h, WithDebounce(50*time.Millisecond), WithWorkers(2))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_AddRemoveDirectories(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, nil, []string{".pdf"}, &recorder{})

	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	dirs := w.Directories()
	if len(dirs) != 1 || filepath.Clean(dirs[0]) != filepath.Clean(dir) {
		t.Errorf("Directories() = %v", dirs)
	}
	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	if len(w.Directories()) != 1 {
		t.Errorf("adding twice should be a no-op: %v", w.Directories())
	}
	if err := w.RemoveDirectory(dir); err != nil {
		t.Fatal(err)
	}
	if len(w.Directories()) != 0 {
		t.Errorf("after remove: %v", w.Directories())
	}
}

func TestWatcher_ExtractsNewFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := mkdirAll(sub); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	w := startWatcher(t, []string{dir}, []string{".xml"}, rec)

	if err := writeFile(filepath.Join(sub, "paper.tei.xml"), "<TEI/>"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(sub, "notes.xyz"), "skip"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(sub, ".hidden.xml"), "skip"); err != nil {
		t.Fatal(err)
	}
	ok := waitFor(t, func() bool {
		extracted, _ := rec.snapshot()
		return hasSuffix(extracted, "paper.tei.xml")
	})
	if !ok {
		t.Fatal("paper.tei.xml was not extracted")
	}
	extracted, _ := rec.snapshot()
	if hasSuffix(extracted, "notes.xyz") || hasSuffix(extracted, ".hidden.xml") {
		t.Errorf("filtered files extracted: %v", extracted)
	}
	if w.Stats().Extracted < 1 {
		t.Errorf("stats = %+v", w.Stats())
	}
}

func TestWatcher_RemoveDeletesExtraction(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paper.pdf")
	if err := writeFile(path, "%PDF"); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	w := startWatcher(t, []string{dir}, []string{".pdf"}, rec)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	ok := waitFor(t, func() bool {
		_, deleted := rec.snapshot()
		return hasSuffix(deleted, "paper.pdf")
	})
	if !ok {
		t.Fatal("removal was not handled")
	}
	if w.Stats().Removed != 1 {
		t.Errorf("stats = %+v", w.Stats())
	}
}

func TestWatcher_FailuresCounted(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{fail: true}
	w := startWatcher(t, []string{dir}, nil, rec)
	if err := writeFile(filepath.Join(dir, "bad.json"), "{"); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, func() bool { return w.Stats().Failed == 1 }) {
		t.Errorf("stats = %+v", w.Stats())
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.pdf", []string{".pdf"}, true},
		{"/a/b.PDF", []string{"pdf"}, true},
		{"/a/b.md", []string{".pdf"}, false},
		{"/a/b", nil, true},
		{"/a/b", []string{}, true},
	}
	for _, tt := range tests {
		got := matchExtension(tt.path, tt.extensions)
		if got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestIgnored(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/in/paper.pdf", false},
		{"/in/.paper.pdf", true},
		{"/in/~$report.docx", true},
		{"/in/paper.pdf~", true},
		{"/in/paper.pdf.part", true},
		{"/in/download.crdownload", true},
	}
	for _, tt := range tests {
		if got := ignored(tt.path); got != tt.want {
			t.Errorf("ignored(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.txt", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		got := inDir(tt.dir, tt.path)
		if got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

func TestWatcher_SyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := writeFile(filepath.Join(dir, "a.pdf"), "x"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "ignore.xyz"), "x"); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	w := startWatcher(t, []string{dir}, []string{".pdf"}, rec)
	w.SyncExistingFiles()

	if !waitFor(t, func() bool { e, _ := rec.snapshot(); return len(e) == 1 }) {
		e, _ := rec.snapshot()
		t.Fatalf("expected one extracted file, got %v", e)
	}
	extracted, _ := rec.snapshot()
	if !strings.HasSuffix(extracted[0], "a.pdf") {
		t.Errorf("extracted = %v", extracted)
	}
}

func TestWatcher_Start_createsMissingRootDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "watch", "me")
	startWatcher(t, []string{root}, []string{".pdf"}, &recorder{})
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
}

func TestWatcher_HandleNewDirectory_recursive(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, []string{dir}, []string{".md", ".pdf"}, rec)

	nested := filepath.Join(dir, "level1", "level2")
	if err := mkdirAll(nested); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(nested, "deep.md"), "# Deep"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "level1", "top.pdf"), "%PDF"); err != nil {
		t.Fatal(err)
	}
	ok := waitFor(t, func() bool {
		e, _ := rec.snapshot()
		return hasSuffix(e, "deep.md") && hasSuffix(e, "top.pdf")
	})
	if !ok {
		e, _ := rec.snapshot()
		t.Errorf("expected deep.md and top.pdf to be extracted, got %v", e)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := &config.WatchConfig{Directories: []string{"/in"}, Extensions: []string{".pdf"}, Workers: 3, DebounceMS: 10}
	w := FromConfig(cfg, &recorder{}, nil)
	if w.workers != 3 || w.debounce != 10*time.Millisecond || !w.recursive {
		t.Errorf("watcher = workers %d debounce %v recursive %v", w.workers, w.debounce, w.recursive)
	}
}

func mkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
