package validate

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"varanus/hasher"
	"varanus/scanner"
)

// Rehasher recomputes content digests for a path. It must fail with
// hasher.ErrUnsupportedAlgorithm for unknown algorithm names and with an
// ordinary error for unreadable files; the verifier maps the two onto
// different issue codes.
type Rehasher interface {
	ComputeHashes(path string, algorithms []string) (map[string]string, error)
}

// RehashFunc adapts a plain function to the Rehasher interface.
type RehashFunc func(path string, algorithms []string) (map[string]string, error)

func (f RehashFunc) ComputeHashes(path string, algorithms []string) (map[string]string, error) {
	return f(path, algorithms)
}

const digestPrefixLen = 12

// SampleVerifyHashes re-verifies recorded digests on a bounded random sample
// of the batch. The sample size is round(n*ratio) clamped into [minBound,
// maxBound]; when the batch is no larger than the target, every record is
// verified. A nil rehasher yields a single scan-wide HASH_VERIFY_SKIPPED
// issue. The rng must be caller-seeded so a fixed seed reproduces the exact
// sample.
func SampleVerifyHashes(records []*scanner.FileRecord, algorithms []string, rehash Rehasher, ratio float64, minBound, maxBound int, rng *rand.Rand) []Issue {
	if rehash == nil {
		return []Issue{newIssue(CodeHashVerifySkipped, "", "", "",
			"hash verification skipped: no digest engine available")}
	}

	eligible := make([]*scanner.FileRecord, 0, len(records))
	for _, record := range records {
		if record.Path != "" {
			eligible = append(eligible, record)
		}
	}
	sampled := sampleRecords(eligible, ratio, minBound, maxBound, rng)

	var issues []Issue
	for _, record := range sampled {
		issues = append(issues, verifyRecord(record, algorithms, rehash)...)
	}
	return issues
}

func verifyRecord(record *scanner.FileRecord, algorithms []string, rehash Rehasher) []Issue {
	actual, err := rehash.ComputeHashes(record.Path, algorithms)
	if err != nil {
		if errors.Is(err, hasher.ErrUnsupportedAlgorithm) {
			return []Issue{newIssue(CodeHashVerifyError, record.Path, "", "",
				fmt.Sprintf("digest engine rejected request: %v", err))}
		}
		return []Issue{newIssue(CodeHashVerifyReadFail, record.Path, "", "",
			fmt.Sprintf("cannot re-read file: %v", err))}
	}

	var issues []Issue
	for _, algo := range algorithms {
		expected, _ := record.HashDigest(algo)
		if expected == "" {
			issues = append(issues, newIssue(CodeHashExpectedMissing, record.Path, algo, "",
				fmt.Sprintf("no recorded %s digest to verify", algo)))
			continue
		}
		recomputed := actual[algo]
		if recomputed == "" {
			issues = append(issues, newIssue(CodeHashActualMissing, record.Path, algo, "",
				fmt.Sprintf("digest engine returned no %s digest", algo)))
			continue
		}
		if !strings.EqualFold(expected, recomputed) {
			issues = append(issues, newIssue(CodeHashVerifyFail, record.Path, algo, expected,
				fmt.Sprintf("recorded %s, recomputed %s", digestPrefix(expected), digestPrefix(recomputed))))
		}
	}
	return issues
}

// sampleRecords draws k records without replacement via shuffle-then-slice
// over indices, then restores input order so issue emission stays ordered.
func sampleRecords(records []*scanner.FileRecord, ratio float64, minBound, maxBound int, rng *rand.Rand) []*scanner.FileRecord {
	n := len(records)
	k := sampleSize(n, ratio, minBound, maxBound)
	if n <= k {
		return records
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	rng.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
	selected := indices[:k]
	sort.Ints(selected)

	sampled := make([]*scanner.FileRecord, 0, k)
	for _, i := range selected {
		sampled = append(sampled, records[i])
	}
	return sampled
}

func sampleSize(n int, ratio float64, minBound, maxBound int) int {
	k := int(math.Round(float64(n) * ratio))
	if k < minBound {
		k = minBound
	}
	if maxBound > 0 && k > maxBound {
		k = maxBound
	}
	if k > n {
		k = n
	}
	return k
}

func digestPrefix(digest string) string {
	if len(digest) > digestPrefixLen {
		return digest[:digestPrefixLen]
	}
	return digest
}
