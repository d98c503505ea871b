package hasher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestComputeHashes(t *testing.T) {
	tmp, err := os.CreateTemp("", "hash-test")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	defer os.Remove(tmp.Name())
	tmp.WriteString("hello world")
	tmp.Close()

	hashes, err := ComputeHashes(tmp.Name(), []string{"md5", "sha1", "sha256"})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if hashes["md5"] != "5eb63bbbe01eeed093cb22bb8f5acdc3" {
		t.Errorf("md5 mismatch: %s", hashes["md5"])
	}
	if hashes["sha1"] != "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed" {
		t.Errorf("sha1 mismatch: %s", hashes["sha1"])
	}
	if hashes["sha256"] != "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9" {
		t.Errorf("sha256 mismatch: %s", hashes["sha256"])
	}
}

func TestComputeHashesModernAlgorithms(t *testing.T) {
	tmp, err := os.CreateTemp("", "hash-test")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	defer os.Remove(tmp.Name())
	tmp.WriteString("hello world")
	tmp.Close()

	hashes, err := ComputeHashes(tmp.Name(), []string{"xxh64", "blake3"})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(hashes["xxh64"]) != 16 {
		t.Errorf("xxh64 digest length: %q", hashes["xxh64"])
	}
	if len(hashes["blake3"]) != 64 {
		t.Errorf("blake3 digest length: %q", hashes["blake3"])
	}
}

func TestComputeHashesUnsupportedAlgorithm(t *testing.T) {
	tmp, _ := os.CreateTemp("", "hash-test")
	tmp.Close()
	defer os.Remove(tmp.Name())

	_, err := ComputeHashes(tmp.Name(), []string{"md5", "whirlpool"})
	if !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Fatalf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
}

func TestComputeHashesMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	_, err := ComputeHashes(missing, []string{"md5"})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Fatal("read failure must not look like an unsupported algorithm")
	}
}

func TestComputeHashesDeduplicatesAlgorithms(t *testing.T) {
	tmp, _ := os.CreateTemp("", "hash-test")
	tmp.WriteString("x")
	tmp.Close()
	defer os.Remove(tmp.Name())

	hashes, err := ComputeHashes(tmp.Name(), []string{"md5", "md5"})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(hashes) != 1 {
		t.Fatalf("expected one digest, got %d", len(hashes))
	}
}

func TestSupported(t *testing.T) {
	if !Supported("sha256") || !Supported("blake3") {
		t.Fatal("expected built-in algorithms to be supported")
	}
	if Supported("whirlpool") {
		t.Fatal("unexpected support for whirlpool")
	}
}
