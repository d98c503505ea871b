package validate

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"varanus/config"
	"varanus/scanner"
)

// Options selects which cross-checks run and tunes their thresholds.
type Options struct {
	RequiredFields   []string
	CheckExists      bool
	CheckSize        bool
	DetectDuplicates bool
	StrictBirthtime  bool
	EpochMin         float64
}

// OptionsFromConfig maps the CLI configuration onto validator options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		RequiredFields:   cfg.RequiredFields,
		CheckExists:      cfg.CheckExists,
		CheckSize:        cfg.CheckSize,
		DetectDuplicates: cfg.DetectDuplicates,
		StrictBirthtime:  cfg.StrictBirthtime,
		EpochMin:         cfg.EpochMin,
	}
}

// ValidateRecords runs every enabled cross-check over the batch and returns
// the combined issue list. Checks run in a fixed pipeline order (fields,
// existence/size, timestamps, duplicates, signature) and each preserves the
// input record order, so identical input yields an identical list.
func ValidateRecords(records []*scanner.FileRecord, opts Options) []Issue {
	var issues []Issue
	issues = append(issues, checkRequiredFields(records, opts.RequiredFields)...)
	if opts.CheckExists || opts.CheckSize {
		issues = append(issues, checkExistence(records, opts)...)
	}
	issues = append(issues, checkTimestamps(records, opts)...)
	if opts.DetectDuplicates {
		issues = append(issues, checkDuplicates(records)...)
	}
	issues = append(issues, checkSignatures(records)...)
	return issues
}

// checkRequiredFields emits one MISSING_FIELD per absent field per record.
func checkRequiredFields(records []*scanner.FileRecord, fields []string) []Issue {
	var issues []Issue
	for _, record := range records {
		for _, name := range fields {
			if _, ok := record.Field(name); ok {
				continue
			}
			issues = append(issues, newIssue(CodeMissingField, record.Path, name, "",
				fmt.Sprintf("required field %q is absent or empty", name)))
		}
	}
	return issues
}

// checkExistence re-stats each path instead of trusting the record; the
// point of the check is to observe the filesystem as it is now. Records
// without a path cannot be resolved and are skipped here.
func checkExistence(records []*scanner.FileRecord, opts Options) []Issue {
	var issues []Issue
	for _, record := range records {
		if record.Path == "" {
			continue
		}
		info, statErr := os.Lstat(record.Path)
		if statErr != nil && opts.CheckExists {
			issues = append(issues, newIssue(CodeFileNotFound, record.Path, "", "",
				fmt.Sprintf("cannot stat path: %v", statErr)))
		}
		if !opts.CheckSize {
			continue
		}
		if record.SizeBytes == nil {
			issues = append(issues, newIssue(CodeSizeMissing, record.Path, scanner.FieldSizeBytes, "",
				"record has no size"))
			continue
		}
		if statErr == nil && info.Size() != *record.SizeBytes {
			recorded := strconv.FormatInt(*record.SizeBytes, 10)
			issues = append(issues, newIssue(CodeSizeMismatch, record.Path, scanner.FieldSizeBytes, recorded,
				fmt.Sprintf("recorded %d bytes, %d bytes on disk", *record.SizeBytes, info.Size())))
		}
	}
	return issues
}

// checkTimestamps audits mtime/atime/ctime (plus birthtime in strict mode)
// for absence, non-numeric values and implausibly early epochs. A zero or
// negative epoch is anomalous regardless of the configured minimum.
func checkTimestamps(records []*scanner.FileRecord, opts Options) []Issue {
	fields := []string{scanner.FieldMtime, scanner.FieldAtime, scanner.FieldCtime}
	if opts.StrictBirthtime {
		fields = append(fields, scanner.FieldBirthtime)
	}
	var issues []Issue
	for _, record := range records {
		for _, name := range fields {
			ts, _ := record.TimestampField(name)
			switch {
			case ts == nil:
				issues = append(issues, newIssue(CodeTSMissing, record.Path, name, "",
					fmt.Sprintf("timestamp %q is absent", name)))
			case math.IsNaN(*ts):
				issues = append(issues, newIssue(CodeTSBadType, record.Path, name, "NaN",
					fmt.Sprintf("timestamp %q is not a number", name)))
			case *ts <= 0 || *ts < opts.EpochMin:
				rendered := strconv.FormatFloat(*ts, 'f', -1, 64)
				issues = append(issues, newIssue(CodeTSOutOfRange, record.Path, name, rendered,
					fmt.Sprintf("timestamp %q is below the acceptable minimum", name)))
			}
		}
	}
	return issues
}

// checkDuplicates tallies paths in one pass and reports each duplicated path
// exactly once, in first-appearance order, with the occurrence count in the
// detail.
func checkDuplicates(records []*scanner.FileRecord) []Issue {
	counts := make(map[string]int, len(records))
	var order []string
	for _, record := range records {
		if record.Path == "" {
			continue
		}
		if counts[record.Path] == 0 {
			order = append(order, record.Path)
		}
		counts[record.Path]++
	}
	var issues []Issue
	for _, path := range order {
		if n := counts[path]; n > 1 {
			issues = append(issues, newIssue(CodeDupPath, path, "", "",
				fmt.Sprintf("path appears %d times in the inventory", n)))
		}
	}
	return issues
}

// checkSignatures propagates the upstream extension-mismatch flag into the
// issue list.
func checkSignatures(records []*scanner.FileRecord) []Issue {
	var issues []Issue
	for _, record := range records {
		if !record.ExtensionMismatch {
			continue
		}
		detail := fmt.Sprintf("on-disk extension %q disagrees with content signature %q", record.DiskExtension, record.SignatureExt)
		if record.SignatureMIME != "" {
			detail += fmt.Sprintf(" (%s)", record.SignatureMIME)
		}
		issues = append(issues, newIssue(CodeExtMismatch, record.Path, "ext_on_disk", record.DiskExtension, detail))
	}
	return issues
}
