// Package output persists scan results as CSV reports. Files are written
// with a UTF-8 byte-order mark for spreadsheet compatibility and replaced
// atomically so an interrupted run never leaves a truncated report behind.
package output

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"varanus/scanner"
	"varanus/search"
	"varanus/timeline"
	"varanus/validate"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// writeCSV writes header and rows to a temp file in the target directory and
// renames it into place.
func writeCSV(path string, header []string, rows [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".varanus-*")
	if err != nil {
		return fmt.Errorf("create report temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	buf := bufio.NewWriterSize(tmp, 1024*1024)
	if _, err := buf.Write(utf8BOM); err != nil {
		return err
	}
	w := csv.NewWriter(buf)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

var inventoryHeader = []string{
	"path", "name", "parent", "size_bytes",
	"mtime_epoch", "atime_epoch", "ctime_epoch", "birthtime_epoch",
	"is_symlink", "file_id", "ext_on_disk",
	"sig_mime", "sig_ext", "sig_desc", "ext_mismatch", "known",
	"hashes", "fuzzy_hashes", "metadata",
}

// WriteInventoryCSV persists one row per inventory record.
func WriteInventoryCSV(path string, records []*scanner.FileRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		size, _ := r.Field(scanner.FieldSizeBytes)
		mtime, _ := r.Field(scanner.FieldMtime)
		atime, _ := r.Field(scanner.FieldAtime)
		ctime, _ := r.Field(scanner.FieldCtime)
		birth, _ := r.Field(scanner.FieldBirthtime)
		rows = append(rows, []string{
			r.Path, r.Name, r.ParentDir, size,
			mtime, atime, ctime, birth,
			strconv.FormatBool(r.IsSymlink), r.FileID, r.DiskExtension,
			r.SignatureMIME, r.SignatureExt, r.SignatureDesc,
			strconv.FormatBool(r.ExtensionMismatch), strconv.FormatBool(r.Known),
			jsonCell(r.Hashes), jsonCell(r.FuzzyHashes), jsonCell(r.Metadata),
		})
	}
	return writeCSV(path, inventoryHeader, rows)
}

var issuesHeader = []string{"severity", "code", "path", "field", "value", "detail"}

// WriteIssuesCSV persists the validation report, one row per issue in
// emission order.
func WriteIssuesCSV(path string, issues []validate.Issue) error {
	rows := make([][]string, 0, len(issues))
	for _, issue := range issues {
		rows = append(rows, []string{
			string(issue.Severity), string(issue.Code),
			issue.Path, issue.Field, issue.Value, issue.Detail,
		})
	}
	return writeCSV(path, issuesHeader, rows)
}

var timelineHeader = []string{"timestamp", "epoch", "event", "path", "name"}

// WriteTimelineCSV persists the chronological event stream.
func WriteTimelineCSV(path string, events []timeline.Event) error {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			e.Timestamp(),
			strconv.FormatFloat(e.Epoch, 'f', -1, 64),
			e.Event, e.Path, e.Name,
		})
	}
	return writeCSV(path, timelineHeader, rows)
}

var hitsHeader = []string{
	"path", "line_no", "match_span_start", "match_span_end",
	"matched", "pattern", "line_preview",
}

// WriteHitsCSV persists keyword search hits.
func WriteHitsCSV(path string, hits []search.Hit) error {
	rows := make([][]string, 0, len(hits))
	for _, h := range hits {
		rows = append(rows, []string{
			h.Path, strconv.Itoa(h.LineNo),
			strconv.Itoa(h.SpanStart), strconv.Itoa(h.SpanEnd),
			h.Matched, h.Pattern, h.Preview,
		})
	}
	return writeCSV(path, hitsHeader, rows)
}

// FormatSummary renders issue counts with severities first (worst last), then
// codes alphabetically, for the end-of-run log line.
func FormatSummary(summary map[string]int) string {
	if len(summary) == 0 {
		return "no issues"
	}
	var parts []string
	for _, severity := range []validate.Severity{validate.SeverityInfo, validate.SeverityWarn, validate.SeverityError} {
		if count, ok := summary[string(severity)]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", severity, count))
		}
	}
	severities := map[string]bool{"INFO": true, "WARN": true, "ERROR": true}
	var codes []string
	for key := range summary {
		if !severities[key] {
			codes = append(codes, key)
		}
	}
	sort.Strings(codes)
	for _, code := range codes {
		parts = append(parts, fmt.Sprintf("%s=%d", code, summary[code]))
	}
	return strings.Join(parts, " ")
}

func jsonCell(value interface{}) string {
	switch v := value.(type) {
	case map[string]string:
		if len(v) == 0 {
			return ""
		}
	case map[string]interface{}:
		if len(v) == 0 {
			return ""
		}
	case nil:
		return ""
	}
	data, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return string(data)
}
