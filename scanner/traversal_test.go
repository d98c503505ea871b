package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func walkFiles(t *testing.T, w fastWalker, root string) []string {
	t.Helper()
	var files []string
	err := w.Walk(context.Background(), root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			t.Fatalf("walk error at %s: %v", path, err)
		}
		if d != nil && !d.IsDir() {
			rel, _ := filepath.Rel(root, path)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	sort.Strings(files)
	return files
}

func TestFastWalkerVisitsAllFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":          "a",
		"sub/b.txt":      "b",
		"sub/deep/c.txt": "c",
	})

	files := walkFiles(t, fastWalker{}, root)
	want := []string{"a.txt", "sub/b.txt", "sub/deep/c.txt"}
	if len(files) != len(want) {
		t.Fatalf("got %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("got %v, want %v", files, want)
		}
	}
}

func TestFastWalkerSkipDir(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"keep/a.txt": "a",
		"skip/b.txt": "b",
	})

	var files []string
	err := fastWalker{}.Walk(context.Background(), root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && d.Name() == "skip" {
			return fs.SkipDir
		}
		if !d.IsDir() {
			files = append(files, filepath.Base(path))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(files) != 1 || files[0] != "a.txt" {
		t.Fatalf("skipped directory was descended: %v", files)
	}
}

func TestFastWalkerCancellation(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a", "b.txt": "b"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := fastWalker{}.Walk(ctx, root, func(path string, d fs.DirEntry, err error) error {
		return nil
	})
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFastWalkerMissingRoot(t *testing.T) {
	var reported error
	err := fastWalker{}.Walk(context.Background(), filepath.Join(t.TempDir(), "nope"), func(path string, d fs.DirEntry, err error) error {
		reported = err
		return err
	})
	if err == nil || reported == nil {
		t.Fatal("expected the stat error to surface through the callback")
	}
}

func TestFastWalkerSymlinkedDir(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"real/a.txt": "a"})
	link := filepath.Join(root, "link")
	if err := os.Symlink(filepath.Join(root, "real"), link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	files := walkFiles(t, fastWalker{}, root)
	if len(files) != 1 || files[0] != "real/a.txt" {
		t.Fatalf("default walk must not descend symlinked dirs: %v", files)
	}

	files = walkFiles(t, fastWalker{followSymlinks: true}, root)
	if len(files) != 2 {
		t.Fatalf("follow walk should see the linked copy too: %v", files)
	}
}
