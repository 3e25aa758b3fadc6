package cmd

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		r := bufio.NewReader(strings.NewReader(tt.input))
		if got := confirm(r, io.Discard, "sure?"); got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestRemoveMatching(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"alert_a.mp3", "alert_b.mp3", "keep.mp3"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	if n := removeMatching(filepath.Join(dir, "alert_*.mp3")); n != 2 {
		t.Errorf("removeMatching() = %d, want 2", n)
	}
	if _, err := os.Stat(filepath.Join(dir, "keep.mp3")); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}
}
