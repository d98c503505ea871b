// Package search runs case-insensitive keyword searches over the light text
// files of an inventory, producing per-line hit rows for the report.
package search

import (
	"bytes"
	"path/filepath"
	"strings"

	"varanus/logger"
	"varanus/scanner"
)

const defaultPreviewMaxLen = 240

// Hit is one matched line occurrence.
type Hit struct {
	Path      string
	LineNo    int
	SpanStart int
	SpanEnd   int
	Matched   string
	Pattern   string
	Preview   string
}

// Options configure a search pass.
type Options struct {
	Terms         []string
	Extensions    []string // without the dot, e.g. "txt"
	MaxFileSize   int64
	PreviewMaxLen int
}

// IsTextPath reports whether a path's extension marks it as a light text
// candidate.
func IsTextPath(path string, extensions []string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, allowed := range extensions {
		if ext == strings.ToLower(strings.TrimPrefix(allowed, ".")) {
			return true
		}
	}
	return false
}

// Search scans every text-candidate record for the configured terms. Files
// that vanished or turned unreadable since the inventory pass are skipped;
// the validator reports those separately. Hits follow record order, then
// line order, then term order within a line.
func Search(records []*scanner.FileRecord, opts Options) []Hit {
	terms := normalizeTerms(opts.Terms)
	if len(terms) == 0 {
		return nil
	}
	lowered := make([]string, len(terms))
	for i, term := range terms {
		lowered[i] = strings.ToLower(term)
	}
	counter := BuildCounter(lowered)
	previewMax := opts.PreviewMaxLen
	if previewMax <= 0 {
		previewMax = defaultPreviewMaxLen
	}

	var hits []Hit
	for _, record := range records {
		if record.Path == "" || !IsTextPath(record.Path, opts.Extensions) {
			continue
		}
		content, err := readContent(record.Path, opts.MaxFileSize)
		if err != nil {
			logger.Debugf("Search skipping %s: %v", record.Path, err)
			continue
		}
		if content == nil {
			continue
		}
		lowerContent := bytes.ToLower(content)
		if counter.CountBytes(lowerContent) == nil {
			continue
		}
		hits = append(hits, scanLines(record.Path, content, lowerContent, terms, lowered, previewMax)...)
	}
	return hits
}

// scanLines walks the file line by line and emits one hit per term per
// matching line, anchored at the first occurrence, like a per-line regex
// search would.
func scanLines(path string, content, lowerContent []byte, terms, lowered []string, previewMax int) []Hit {
	var hits []Hit
	lineNo := 0
	for start := 0; start <= len(content); {
		lineNo++
		end := bytes.IndexByte(content[start:], '\n')
		var line, lowerLine []byte
		if end < 0 {
			line = content[start:]
			lowerLine = lowerContent[start:]
			start = len(content) + 1
		} else {
			line = content[start : start+end]
			lowerLine = lowerContent[start : start+end]
			start += end + 1
		}
		display := strings.TrimRight(string(line), "\r")

		for i, term := range terms {
			idx := bytes.Index(lowerLine, []byte(lowered[i]))
			if idx < 0 {
				continue
			}
			spanEnd := idx + len(term)
			hits = append(hits, Hit{
				Path:      path,
				LineNo:    lineNo,
				SpanStart: idx,
				SpanEnd:   spanEnd,
				Matched:   string(line[idx:min(spanEnd, len(line))]),
				Pattern:   term,
				Preview:   shrink(display, idx, spanEnd, previewMax),
			})
		}
	}
	return hits
}

// shrink windows a long line around the match so the preview stays readable.
func shrink(line string, start, end, maxLen int) string {
	if len(line) <= maxLen {
		return line
	}
	center := (start + end) / 2
	half := maxLen / 2
	left := center - half
	if left < 0 {
		left = 0
	}
	right := left + maxLen
	if right > len(line) {
		right = len(line)
	}
	snippet := line[left:right]
	prefix, suffix := "", ""
	if left > 0 {
		prefix = "…"
	}
	if right < len(line) {
		suffix = "…"
	}
	return prefix + snippet + suffix
}
