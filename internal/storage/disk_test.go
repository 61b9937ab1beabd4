package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsage(t *testing.T) {
	dir := t.TempDir()

	f1 := filepath.Join(dir, "f1.json")
	if err := os.WriteFile(f1, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "archive")
	if err := os.MkdirAll(filepath.Join(sub, "nested"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a.txt"), []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "nested", "b.txt"), []byte("xyz"), 0644); err != nil {
		t.Fatal(err)
	}

	usage, total, err := DiskUsage(f1, sub, "", filepath.Join(dir, "missing"))
	if err != nil {
		t.Fatal(err)
	}
	if total != 10 {
		t.Errorf("total = %d, want 10", total)
	}
	if len(usage) != 2 {
		t.Fatalf("usage = %+v", usage)
	}
	if usage[0].Path != f1 || usage[0].Bytes != 5 {
		t.Errorf("file usage = %+v", usage[0])
	}
	if usage[1].Path != sub || usage[1].Bytes != 5 {
		t.Errorf("dir usage = %+v", usage[1])
	}
}

func TestDiskUsage_none(t *testing.T) {
	usage, total, err := DiskUsage()
	if err != nil || total != 0 || len(usage) != 0 {
		t.Errorf("DiskUsage() = %v, %d, %v", usage, total, err)
	}
}
