package utils

import (
	"reflect"
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("αβγδ", 2); got != "αβ..." {
		t.Errorf("rune truncate got %q", got)
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  We   purified\n protein X. ", "We purified protein X."},
		{"ﬁxation buffer", "fixation buffer"},
		{"Methods and Materials", "Methods and Materials"},
		{"３. Results", "3. Results"},
		{"", ""},
		{" \t\n", ""},
	}
	for _, tt := range tests {
		if got := CleanText(tt.in); got != tt.want {
			t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanParagraphs(t *testing.T) {
	got := CleanParagraphs([]string{" a  b ", "", "   ", "c"})
	if !reflect.DeepEqual(got, []string{"a b", "c"}) {
		t.Errorf("CleanParagraphs = %v", got)
	}
}
