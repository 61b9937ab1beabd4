package docid

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestFromPath(t *testing.T) {
	id1 := FromPath("/foo/bar.pdf")
	id2 := FromPath("/foo/bar.pdf")
	if id1 != id2 {
		t.Errorf("same path should give same ID: %q vs %q", id1, id2)
	}
	if !strings.HasPrefix(id1, filePrefix) {
		t.Errorf("ID should have prefix %q: got %q", filePrefix, id1)
	}
	if len(id1) != len(filePrefix)+hashLen {
		t.Errorf("unexpected ID length: %q", id1)
	}
}

func TestFromPath_differentPaths(t *testing.T) {
	if FromPath("/foo/bar.pdf") == FromPath("/foo/baz.pdf") {
		t.Error("different paths should give different IDs")
	}
}

func TestFromPath_cleaned(t *testing.T) {
	a := FromPath(filepath.Join("/foo", "x", "..", "bar.pdf"))
	b := FromPath("/foo/bar.pdf")
	if a != b {
		t.Errorf("cleaned paths should match: %q vs %q", a, b)
	}
}

func TestFromContent(t *testing.T) {
	a := FromContent([]byte("paper one"))
	if a != FromContent([]byte("paper one")) {
		t.Error("same content should give same ID")
	}
	if a == FromContent([]byte("paper two")) {
		t.Error("different content should give different IDs")
	}
	if !strings.HasPrefix(a, contentPrefix) {
		t.Errorf("ID should have prefix %q: got %q", contentPrefix, a)
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"doc-abc", true},
		{"paper_2021", true},
		{"", false},
		{"   ", false},
		{"a#b", false},
		{"a/b", false},
	}
	for _, tt := range tests {
		if got := Valid(tt.id); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
	if !Valid(FromPath("/x.pdf")) || !Valid(FromContent(nil)) {
		t.Error("derived IDs should be valid")
	}
}
