package validate

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"varanus/config"
	"varanus/scanner"
)

func ptrI64(v int64) *int64     { return &v }
func ptrF64(v float64) *float64 { return &v }

// goodRecord returns a record for an existing temp file that passes every
// default check.
func goodRecord(t *testing.T, name, content string) *scanner.FileRecord {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	info, err := os.Lstat(path)
	if err != nil {
		t.Fatalf("lstat: %v", err)
	}
	mtime := float64(info.ModTime().UnixNano()) / 1e9
	return &scanner.FileRecord{
		Path:       path,
		Name:       name,
		ParentDir:  filepath.Dir(path),
		SizeBytes:  ptrI64(info.Size()),
		MtimeEpoch: &mtime,
		AtimeEpoch: &mtime,
		CtimeEpoch: &mtime,
	}
}

func defaultOptions() Options {
	return Options{
		RequiredFields:   config.DefaultRequiredFields,
		CheckExists:      true,
		CheckSize:        true,
		DetectDuplicates: true,
	}
}

func countCode(issues []Issue, code Code) int {
	n := 0
	for _, issue := range issues {
		if issue.Code == code {
			n++
		}
	}
	return n
}

func findCode(t *testing.T, issues []Issue, code Code) Issue {
	t.Helper()
	for _, issue := range issues {
		if issue.Code == code {
			return issue
		}
	}
	t.Fatalf("no %s issue in %+v", code, issues)
	return Issue{}
}

func TestValidateCleanBatch(t *testing.T) {
	records := []*scanner.FileRecord{
		goodRecord(t, "a.txt", "alpha"),
		goodRecord(t, "b.txt", "bravo"),
	}
	issues := ValidateRecords(records, defaultOptions())
	if len(issues) != 0 {
		t.Fatalf("clean batch produced issues: %+v", issues)
	}
}

func TestMissingFieldPerFieldPerRecord(t *testing.T) {
	r := goodRecord(t, "a.txt", "alpha")
	r.Name = ""
	r.SizeBytes = nil
	issues := checkRequiredFields([]*scanner.FileRecord{r}, config.DefaultRequiredFields)
	if len(issues) != 2 {
		t.Fatalf("expected one issue per missing field, got %+v", issues)
	}
	if issues[0].Field != "name" || issues[1].Field != "size_bytes" {
		t.Fatalf("fields: %q, %q", issues[0].Field, issues[1].Field)
	}
	for _, issue := range issues {
		if issue.Code != CodeMissingField || issue.Severity != SeverityError {
			t.Fatalf("bad issue: %+v", issue)
		}
	}
}

func TestMisspelledRequiredFieldAlwaysFires(t *testing.T) {
	r := goodRecord(t, "a.txt", "alpha")
	issues := checkRequiredFields([]*scanner.FileRecord{r}, []string{"sizebytes"})
	if len(issues) != 1 || issues[0].Field != "sizebytes" {
		t.Fatalf("unknown field name must be reported missing: %+v", issues)
	}
}

func TestFileNotFound(t *testing.T) {
	r := goodRecord(t, "a.txt", "alpha")
	r.Path = filepath.Join(t.TempDir(), "gone.txt")
	issues := ValidateRecords([]*scanner.FileRecord{r}, defaultOptions())
	issue := findCode(t, issues, CodeFileNotFound)
	if issue.Severity != SeverityError || issue.Path != r.Path {
		t.Fatalf("bad issue: %+v", issue)
	}
}

func TestEmptyPathSkipsStatChecksOnly(t *testing.T) {
	r := &scanner.FileRecord{}
	issues := ValidateRecords([]*scanner.FileRecord{r}, defaultOptions())
	if countCode(issues, CodeFileNotFound) != 0 || countCode(issues, CodeSizeMissing) != 0 {
		t.Fatalf("empty path must skip stat checks: %+v", issues)
	}
	// Required-field checks still apply.
	if countCode(issues, CodeMissingField) != len(config.DefaultRequiredFields) {
		t.Fatalf("expected all required fields missing: %+v", issues)
	}
}

func TestSizeMismatch(t *testing.T) {
	r := goodRecord(t, "b.bin", "12345678901234567890123456789012345678901234567890") // 50 bytes
	r.SizeBytes = ptrI64(100)
	issues := ValidateRecords([]*scanner.FileRecord{r}, defaultOptions())
	if countCode(issues, CodeSizeMismatch) != 1 {
		t.Fatalf("expected exactly one SIZE_MISMATCH: %+v", issues)
	}
	issue := findCode(t, issues, CodeSizeMismatch)
	if issue.Severity != SeverityWarn || issue.Value != "100" {
		t.Fatalf("bad issue: %+v", issue)
	}
}

func TestSizeMissing(t *testing.T) {
	r := goodRecord(t, "a.txt", "alpha")
	r.SizeBytes = nil
	issues := checkExistence([]*scanner.FileRecord{r}, defaultOptions())
	if len(issues) != 1 || issues[0].Code != CodeSizeMissing || issues[0].Severity != SeverityError {
		t.Fatalf("unexpected issues: %+v", issues)
	}
}

func TestTimestampChecks(t *testing.T) {
	r := goodRecord(t, "a.txt", "alpha")
	r.MtimeEpoch = ptrF64(-5)
	r.AtimeEpoch = nil
	nan := math.NaN()
	r.CtimeEpoch = &nan

	issues := checkTimestamps([]*scanner.FileRecord{r}, defaultOptions())
	if len(issues) != 3 {
		t.Fatalf("expected 3 timestamp issues, got %+v", issues)
	}

	out := findCode(t, issues, CodeTSOutOfRange)
	if out.Field != "mtime_epoch" || out.Severity != SeverityWarn || out.Value != "-5" {
		t.Fatalf("bad out-of-range issue: %+v", out)
	}
	missing := findCode(t, issues, CodeTSMissing)
	if missing.Field != "atime_epoch" {
		t.Fatalf("bad missing issue: %+v", missing)
	}
	bad := findCode(t, issues, CodeTSBadType)
	if bad.Field != "ctime_epoch" || bad.Value != "NaN" {
		t.Fatalf("bad NaN issue: %+v", bad)
	}
}

func TestZeroEpochIsOutOfRange(t *testing.T) {
	r := goodRecord(t, "a.txt", "alpha")
	r.MtimeEpoch = ptrF64(0)
	issues := checkTimestamps([]*scanner.FileRecord{r}, defaultOptions())
	if countCode(issues, CodeTSOutOfRange) != 1 {
		t.Fatalf("zero epoch must be flagged: %+v", issues)
	}
}

func TestEpochMinRaisesTheBar(t *testing.T) {
	r := goodRecord(t, "a.txt", "alpha")
	r.MtimeEpoch = ptrF64(1000)
	opts := defaultOptions()
	opts.EpochMin = 946684800 // 2000-01-01
	issues := checkTimestamps([]*scanner.FileRecord{r}, opts)
	if countCode(issues, CodeTSOutOfRange) != 1 {
		t.Fatalf("epoch below configured minimum must be flagged: %+v", issues)
	}
}

func TestBirthtimeOnlyInStrictMode(t *testing.T) {
	r := goodRecord(t, "a.txt", "alpha")
	issues := checkTimestamps([]*scanner.FileRecord{r}, defaultOptions())
	if len(issues) != 0 {
		t.Fatalf("missing birthtime flagged outside strict mode: %+v", issues)
	}
	opts := defaultOptions()
	opts.StrictBirthtime = true
	issues = checkTimestamps([]*scanner.FileRecord{r}, opts)
	if countCode(issues, CodeTSMissing) != 1 {
		t.Fatalf("strict mode must require birthtime: %+v", issues)
	}
	if issues[0].Field != "birthtime_epoch" {
		t.Fatalf("bad field: %+v", issues[0])
	}
}

func TestDupPathOnceWithCount(t *testing.T) {
	a := goodRecord(t, "a.txt", "alpha")
	b := goodRecord(t, "b.txt", "bravo")
	dup1 := *a
	dup2 := *a
	records := []*scanner.FileRecord{b, a, &dup1, &dup2}

	issues := checkDuplicates(records)
	if len(issues) != 1 {
		t.Fatalf("a path seen 3 times must yield exactly one issue: %+v", issues)
	}
	issue := issues[0]
	if issue.Code != CodeDupPath || issue.Severity != SeverityWarn || issue.Path != a.Path {
		t.Fatalf("bad issue: %+v", issue)
	}
	if issue.Detail != "path appears 3 times in the inventory" {
		t.Fatalf("count must be embedded in detail: %q", issue.Detail)
	}
}

func TestDupPathFirstAppearanceOrder(t *testing.T) {
	a := goodRecord(t, "a.txt", "alpha")
	b := goodRecord(t, "b.txt", "bravo")
	dupA := *a
	dupB := *b
	records := []*scanner.FileRecord{b, a, &dupA, &dupB}

	issues := checkDuplicates(records)
	if len(issues) != 2 || issues[0].Path != b.Path || issues[1].Path != a.Path {
		t.Fatalf("duplicates must report in first-appearance order: %+v", issues)
	}
}

func TestExtMismatchPropagation(t *testing.T) {
	r := goodRecord(t, "invoice.pdf", "not really a pdf")
	r.DiskExtension = ".pdf"
	r.SignatureExt = ".png"
	r.SignatureMIME = "image/png"
	r.ExtensionMismatch = true

	issues := checkSignatures([]*scanner.FileRecord{r})
	if len(issues) != 1 {
		t.Fatalf("expected one issue: %+v", issues)
	}
	issue := issues[0]
	if issue.Code != CodeExtMismatch || issue.Severity != SeverityInfo {
		t.Fatalf("bad issue: %+v", issue)
	}
	if issue.Value != ".pdf" {
		t.Fatalf("value must carry the on-disk extension: %+v", issue)
	}
}

func TestValidatePipelineOrder(t *testing.T) {
	r := goodRecord(t, "a.txt", "alpha")
	r.Name = ""                   // MISSING_FIELD
	r.SizeBytes = ptrI64(999)     // SIZE_MISMATCH
	r.MtimeEpoch = ptrF64(-1)     // TS_OUT_OF_RANGE
	r.ExtensionMismatch = true    // EXT_MISMATCH
	dup := *r
	records := []*scanner.FileRecord{r, &dup}

	issues := ValidateRecords(records, defaultOptions())
	var codes []Code
	for _, issue := range issues {
		codes = append(codes, issue.Code)
	}
	want := []Code{
		CodeMissingField, CodeMissingField,
		CodeSizeMismatch, CodeSizeMismatch,
		CodeTSOutOfRange, CodeTSOutOfRange,
		CodeDupPath,
		CodeExtMismatch, CodeExtMismatch,
	}
	if !reflect.DeepEqual(codes, want) {
		t.Fatalf("pipeline order:\n got %v\nwant %v", codes, want)
	}
}

func TestValidateIdempotent(t *testing.T) {
	records := []*scanner.FileRecord{
		goodRecord(t, "a.txt", "alpha"),
		goodRecord(t, "b.txt", "bravo"),
	}
	records[0].SizeBytes = ptrI64(1234)
	records[1].AtimeEpoch = nil

	first := ValidateRecords(records, defaultOptions())
	second := ValidateRecords(records, defaultOptions())
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated validation differs:\n%+v\n%+v", first, second)
	}
}
