package hasher

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
	"lukechampine.com/blake3"
)

// ErrUnsupportedAlgorithm reports a digest algorithm this build does not
// provide. Callers distinguish it from read failures via errors.Is.
var ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")

const (
	hashBufferSmallSize      = 32 * 1024
	hashBufferLargeSize      = 128 * 1024
	hashLargeBufferThreshold = 256 * 1024
)

var hashBufferSmallPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, hashBufferSmallSize)
		return &buf
	},
}

var hashBufferLargePool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, hashBufferLargeSize)
		return &buf
	},
}

// Supported reports whether the named algorithm is available.
func Supported(algorithm string) bool {
	_, err := newHasher(algorithm)
	return err == nil
}

func newHasher(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case "md5":
		return md5.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "sha256":
		return sha256.New(), nil
	case "xxh64":
		return xxhash.New(), nil
	case "blake3":
		return blake3.New(32, nil), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algorithm)
	}
}

// ComputeHashes streams the file once and returns algorithm name to hex
// digest. An unknown algorithm fails before any I/O; open and read failures
// wrap the underlying error so the caller can treat them as unreadable.
func ComputeHashes(path string, algorithms []string) (map[string]string, error) {
	type hasherEntry struct {
		name string
		h    hash.Hash
	}
	hashers := make([]hasherEntry, 0, len(algorithms))
	seen := make(map[string]struct{}, len(algorithms))
	for _, algo := range algorithms {
		if _, ok := seen[algo]; ok {
			continue
		}
		h, err := newHasher(algo)
		if err != nil {
			return nil, err
		}
		hashers = append(hashers, hasherEntry{name: algo, h: h})
		seen[algo] = struct{}{}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	bufferPool := &hashBufferSmallPool
	if info, statErr := file.Stat(); statErr == nil && info.Size() >= hashLargeBufferThreshold {
		bufferPool = &hashBufferLargePool
	}
	bufferPtr := bufferPool.Get().(*[]byte)
	buffer := *bufferPtr
	defer bufferPool.Put(bufferPtr)

	for {
		n, readErr := file.Read(buffer)
		if n > 0 {
			chunk := buffer[:n]
			for i := range hashers {
				hashers[i].h.Write(chunk)
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				return nil, fmt.Errorf("read %s: %w", path, readErr)
			}
			break
		}
	}

	hashes := make(map[string]string, len(hashers))
	for i := range hashers {
		hashes[hashers[i].name] = hex.EncodeToString(hashers[i].h.Sum(nil))
	}
	return hashes, nil
}
