package scanner

import (
	"math"
	"strconv"
)

// FileRecord is one filesystem entry's collected facts plus the optional
// fields attached by the digest, signature and metadata stages. It is
// intentionally a fixed struct rather than an open map; optional numerics are
// pointers so "absent" stays distinguishable from zero.
type FileRecord struct {
	Path              string                 `json:"path"`
	Name              string                 `json:"name,omitempty"`
	ParentDir         string                 `json:"parent,omitempty"`
	SizeBytes         *int64                 `json:"size_bytes,omitempty"`
	MtimeEpoch        *float64               `json:"mtime_epoch,omitempty"`
	AtimeEpoch        *float64               `json:"atime_epoch,omitempty"`
	CtimeEpoch        *float64               `json:"ctime_epoch,omitempty"`
	BirthtimeEpoch    *float64               `json:"birthtime_epoch,omitempty"`
	IsSymlink         bool                   `json:"is_symlink,omitempty"`
	FileID            string                 `json:"file_id,omitempty"`
	Hashes            map[string]string      `json:"hashes,omitempty"`
	FuzzyHashes       map[string]string      `json:"fuzzy_hashes,omitempty"`
	SignatureMIME     string                 `json:"sig_mime,omitempty"`
	SignatureExt      string                 `json:"sig_ext,omitempty"`
	SignatureDesc     string                 `json:"sig_desc,omitempty"`
	DiskExtension     string                 `json:"ext_on_disk,omitempty"`
	ExtensionMismatch bool                   `json:"ext_mismatch,omitempty"`
	Known             bool                   `json:"known,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}

// Timestamp field names accepted by Field and TimestampField.
const (
	FieldPath      = "path"
	FieldName      = "name"
	FieldParent    = "parent"
	FieldSizeBytes = "size_bytes"
	FieldMtime     = "mtime_epoch"
	FieldAtime     = "atime_epoch"
	FieldCtime     = "ctime_epoch"
	FieldBirthtime = "birthtime_epoch"
)

// Field renders the named core attribute as text and reports whether it is
// populated. Unknown names are never populated, which makes a misspelled
// required-field configuration loudly visible in validation output.
func (r *FileRecord) Field(name string) (string, bool) {
	switch name {
	case FieldPath:
		return r.Path, r.Path != ""
	case FieldName:
		return r.Name, r.Name != ""
	case FieldParent:
		return r.ParentDir, r.ParentDir != ""
	case FieldSizeBytes:
		if r.SizeBytes == nil {
			return "", false
		}
		return strconv.FormatInt(*r.SizeBytes, 10), true
	case FieldMtime, FieldAtime, FieldCtime, FieldBirthtime:
		ts, _ := r.TimestampField(name)
		if ts == nil {
			return "", false
		}
		return formatEpoch(*ts), true
	default:
		return "", false
	}
}

// TimestampField returns the named epoch field and whether the name denotes
// a timestamp at all.
func (r *FileRecord) TimestampField(name string) (*float64, bool) {
	switch name {
	case FieldMtime:
		return r.MtimeEpoch, true
	case FieldAtime:
		return r.AtimeEpoch, true
	case FieldCtime:
		return r.CtimeEpoch, true
	case FieldBirthtime:
		return r.BirthtimeEpoch, true
	default:
		return nil, false
	}
}

// HashDigest returns the recorded digest for an algorithm, if any.
func (r *FileRecord) HashDigest(algorithm string) (string, bool) {
	if r.Hashes == nil {
		return "", false
	}
	digest, ok := r.Hashes[algorithm]
	return digest, ok
}

func formatEpoch(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
