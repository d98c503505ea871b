package scanner

import (
	"math"
	"testing"
)

func TestFieldAccess(t *testing.T) {
	size := int64(42)
	mtime := 1700000000.5
	r := &FileRecord{
		Path:       "/evidence/a.txt",
		Name:       "a.txt",
		ParentDir:  "/evidence",
		SizeBytes:  &size,
		MtimeEpoch: &mtime,
	}

	if v, ok := r.Field(FieldPath); !ok || v != "/evidence/a.txt" {
		t.Fatalf("path field: %q %v", v, ok)
	}
	if v, ok := r.Field(FieldSizeBytes); !ok || v != "42" {
		t.Fatalf("size field: %q %v", v, ok)
	}
	if v, ok := r.Field(FieldMtime); !ok || v != "1700000000.5" {
		t.Fatalf("mtime field: %q %v", v, ok)
	}
	if _, ok := r.Field(FieldAtime); ok {
		t.Fatal("absent atime must not be populated")
	}
	if _, ok := r.Field("no_such_field"); ok {
		t.Fatal("unknown field must not be populated")
	}
}

func TestFieldRendersNaN(t *testing.T) {
	nan := math.NaN()
	r := &FileRecord{CtimeEpoch: &nan}
	if v, ok := r.Field(FieldCtime); !ok || v != "NaN" {
		t.Fatalf("NaN timestamp: %q %v", v, ok)
	}
}

func TestTimestampField(t *testing.T) {
	v := 1.0
	r := &FileRecord{AtimeEpoch: &v}
	ts, known := r.TimestampField(FieldAtime)
	if !known || ts == nil || *ts != 1.0 {
		t.Fatalf("atime: %v %v", ts, known)
	}
	if _, known := r.TimestampField(FieldSizeBytes); known {
		t.Fatal("size_bytes is not a timestamp")
	}
	ts, known = r.TimestampField(FieldBirthtime)
	if !known || ts != nil {
		t.Fatalf("birthtime: %v %v", ts, known)
	}
}

func TestHashDigest(t *testing.T) {
	r := &FileRecord{Hashes: map[string]string{"md5": "deadbeef"}}
	if d, ok := r.HashDigest("md5"); !ok || d != "deadbeef" {
		t.Fatalf("md5: %q %v", d, ok)
	}
	if _, ok := r.HashDigest("sha256"); ok {
		t.Fatal("sha256 should be absent")
	}
	empty := &FileRecord{}
	if _, ok := empty.HashDigest("md5"); ok {
		t.Fatal("no hashes at all")
	}
}
