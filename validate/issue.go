// Package validate cross-checks an inventory for internal inconsistency:
// missing fields, size drift, timestamp anomalies, duplicate identities and
// stale digests. It never fails a batch; every anomaly becomes an Issue and
// the pass always completes.
package validate

// Severity classifies how alarming an issue is. Fixed per code, never
// computed ad hoc.
type Severity string

const (
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

// Code identifies one kind of anomaly. The set is closed; validators never
// invent codes at runtime.
type Code string

const (
	CodeMissingField        Code = "MISSING_FIELD"
	CodeFileNotFound        Code = "FILE_NOT_FOUND"
	CodeSizeMissing         Code = "SIZE_MISSING"
	CodeSizeMismatch        Code = "SIZE_MISMATCH"
	CodeTSMissing           Code = "TS_MISSING"
	CodeTSBadType           Code = "TS_BAD_TYPE"
	CodeTSOutOfRange        Code = "TS_OUT_OF_RANGE"
	CodeDupPath             Code = "DUP_PATH"
	CodeExtMismatch         Code = "EXT_MISMATCH"
	CodeHashVerifySkipped   Code = "HASH_VERIFY_SKIPPED"
	CodeHashVerifyError     Code = "HASH_VERIFY_ERROR"
	CodeHashVerifyReadFail  Code = "HASH_VERIFY_READ_FAIL"
	CodeHashExpectedMissing Code = "HASH_EXPECTED_MISSING"
	CodeHashActualMissing   Code = "HASH_ACTUAL_MISSING"
	CodeHashVerifyFail      Code = "HASH_VERIFY_FAIL"
)

// severityOf pins each code to exactly one severity, so the same anomaly
// reports the same severity across runs.
var severityOf = map[Code]Severity{
	CodeMissingField:        SeverityError,
	CodeFileNotFound:        SeverityError,
	CodeSizeMissing:         SeverityError,
	CodeSizeMismatch:        SeverityWarn,
	CodeTSMissing:           SeverityWarn,
	CodeTSBadType:           SeverityWarn,
	CodeTSOutOfRange:        SeverityWarn,
	CodeDupPath:             SeverityWarn,
	CodeExtMismatch:         SeverityInfo,
	CodeHashVerifySkipped:   SeverityInfo,
	CodeHashVerifyError:     SeverityError,
	CodeHashVerifyReadFail:  SeverityWarn,
	CodeHashExpectedMissing: SeverityWarn,
	CodeHashActualMissing:   SeverityWarn,
	CodeHashVerifyFail:      SeverityError,
}

// SeverityFor returns the fixed severity for a code.
func SeverityFor(code Code) Severity {
	if s, ok := severityOf[code]; ok {
		return s
	}
	return SeverityWarn
}

// Issue is one detected anomaly. Path may be empty for scan-wide issues;
// Field and Value name the offending attribute and its rendered value where
// one exists. Issues are immutable once created.
type Issue struct {
	Path     string   `json:"path"`
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	Field    string   `json:"field,omitempty"`
	Value    string   `json:"value,omitempty"`
	Detail   string   `json:"detail"`
}

func newIssue(code Code, path, field, value, detail string) Issue {
	return Issue{
		Path:     path,
		Code:     code,
		Severity: SeverityFor(code),
		Field:    field,
		Value:    value,
		Detail:   detail,
	}
}

// Summarize counts issues by severity and by code in a single mapping. The
// two namespaces share the map: no code in the closed enumeration is named
// like a severity literal, which TestNoCodeCollidesWithSeverity pins.
func Summarize(issues []Issue) map[string]int {
	summary := make(map[string]int)
	for _, issue := range issues {
		summary[string(issue.Severity)]++
		summary[string(issue.Code)]++
	}
	return summary
}
