package utils

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestIsPathWithin(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "sub", "file.txt")
	if !IsPathWithin(inside, []string{root}) {
		t.Fatal("expected path within root")
	}
	if IsPathWithin(filepath.Join(root, "..", "elsewhere"), []string{root}) {
		t.Fatal("expected path outside root")
	}
}

func TestReportPath(t *testing.T) {
	at := time.Date(2026, 8, 24, 10, 15, 0, 0, time.UTC)
	p := ReportPath("outputs", "issues", "case42", at)
	want := filepath.Join("outputs", "issues_case42_20260824_101500.csv")
	if p != want {
		t.Fatalf("got %s want %s", p, want)
	}
	p = ReportPath("outputs", "inventory", "", at)
	if !strings.HasPrefix(filepath.Base(p), "inventory_2026") {
		t.Fatalf("unexpected name: %s", p)
	}
}

func TestNormalizeExt(t *testing.T) {
	cases := map[string]string{
		"":      "",
		".JPEG": ".jpg",
		"jpe":   ".jpg",
		".tif":  ".tiff",
		".htm":  ".html",
		".txt":  ".txt",
		"PNG":   ".png",
	}
	for in, want := range cases {
		if got := NormalizeExt(in); got != want {
			t.Errorf("NormalizeExt(%q) = %q, want %q", in, got, want)
		}
	}
}
