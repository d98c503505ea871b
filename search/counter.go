package search

import (
	"bytes"
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// Counter reports per-term occurrence counts in a chunk of content. It is
// used as a cheap whole-file prefilter before the line scan.
type Counter interface {
	CountBytes(content []byte) map[string]int
}

const (
	autoAhoMinTerms        = 8
	autoAhoMinContentBytes = 4 * 1024
)

type naiveCounter struct {
	terms     []string
	termBytes [][]byte
}

func (c naiveCounter) CountBytes(content []byte) map[string]int {
	var hits map[string]int
	for i, term := range c.terms {
		count := bytes.Count(content, c.termBytes[i])
		if count > 0 {
			if hits == nil {
				hits = make(map[string]int, 4)
			}
			hits[term] = count
		}
	}
	return hits
}

type ahoCounter struct {
	terms     []string
	termBytes [][]byte
	matcher   *ahocorasick.Matcher
}

func (c ahoCounter) CountBytes(content []byte) map[string]int {
	matches := c.matcher.MatchThreadSafe(content)
	if len(matches) == 0 {
		return nil
	}
	var hits map[string]int
	for _, idx := range matches {
		if idx < 0 || idx >= len(c.terms) {
			continue
		}
		count := bytes.Count(content, c.termBytes[idx])
		if count > 0 {
			if hits == nil {
				hits = make(map[string]int, len(matches))
			}
			hits[c.terms[idx]] = count
		}
	}
	return hits
}

// autoCounter picks the automaton only when it pays off: many terms over
// enough content.
type autoCounter struct {
	naive naiveCounter
	aho   ahoCounter
}

func (c autoCounter) CountBytes(content []byte) map[string]int {
	if len(c.naive.terms) < autoAhoMinTerms || len(content) < autoAhoMinContentBytes {
		return c.naive.CountBytes(content)
	}
	return c.aho.CountBytes(content)
}

// BuildCounter constructs a counter over the deduplicated, trimmed terms.
// Matching is byte-exact; callers lowercase both terms and content for
// case-insensitive search.
func BuildCounter(terms []string) Counter {
	normalized := normalizeTerms(terms)
	termBytes := make([][]byte, len(normalized))
	for i := range normalized {
		termBytes[i] = []byte(normalized[i])
	}
	naive := naiveCounter{terms: normalized, termBytes: termBytes}
	if len(normalized) == 0 {
		return naive
	}
	aho := ahoCounter{terms: normalized, termBytes: termBytes, matcher: ahocorasick.NewStringMatcher(normalized)}
	return autoCounter{naive: naive, aho: aho}
}

func normalizeTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	normalized := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		normalized = append(normalized, term)
	}
	return normalized
}
