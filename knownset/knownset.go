// Package knownset answers approximate membership queries against a list of
// known-benign content digests (NSRL-style reference sets), so that unremarkable
// files can be marked without carrying the full digest list in memory.
package knownset

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/FastFilter/xorfilter"
	"github.com/cespare/xxhash/v2"
)

// Set is an immutable approximate-membership filter over hex digests.
// False positives are possible at the filter's design rate; false negatives
// are not.
type Set struct {
	filter *xorfilter.BinaryFuse8
	count  int
}

// Load reads one hex digest per line (blank lines and #-comments skipped)
// and builds the filter. Digest case is ignored.
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open known-hash file: %w", err)
	}
	defer f.Close()

	var keys []uint64
	seen := make(map[uint64]struct{})
	scan := bufio.NewScanner(f)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key := digestKey(line)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("read known-hash file: %w", err)
	}
	if len(keys) == 0 {
		return &Set{}, nil
	}

	filter, err := xorfilter.PopulateBinaryFuse8(keys)
	if err != nil {
		return nil, fmt.Errorf("build known-hash filter: %w", err)
	}
	return &Set{filter: filter, count: len(keys)}, nil
}

// Contains reports whether the digest is (probably) in the set.
func (s *Set) Contains(digest string) bool {
	if s == nil || s.filter == nil || digest == "" {
		return false
	}
	return s.filter.Contains(digestKey(digest))
}

// Len returns the number of digests loaded.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return s.count
}

func digestKey(digest string) uint64 {
	return xxhash.Sum64String(strings.ToLower(strings.TrimSpace(digest)))
}
