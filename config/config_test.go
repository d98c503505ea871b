package config

import (
	"os"
	"testing"
)

func TestParseCommaSeparated(t *testing.T) {
	res := parseCommaSeparated("a,b , c")
	if len(res) != 3 || res[1] != "b" {
		t.Fatalf("unexpected result: %v", res)
	}
	if res := parseCommaSeparated(""); len(res) != 0 {
		t.Fatalf("expected empty slice")
	}
}

func TestParseKeyValues(t *testing.T) {
	res := parseKeyValues("authorization=Bearer abc, x-tenant = acme")
	if res["authorization"] != "Bearer abc" || res["x-tenant"] != "acme" {
		t.Fatalf("unexpected result: %v", res)
	}
	// Pairs without an equals sign are dropped.
	if res := parseKeyValues("garbage"); len(res) != 0 {
		t.Fatalf("expected empty map: %v", res)
	}
	if res := parseKeyValues(""); len(res) != 0 {
		t.Fatalf("expected empty map: %v", res)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmp, err := os.CreateTemp("", "cfg*.json")
	if err != nil {
		t.Fatalf("temp: %v", err)
	}
	tmp.WriteString(`{"start_paths":["/tmp"],"validate":false,"sample_ratio":0.25}`)
	tmp.Close()
	defer os.Remove(tmp.Name())

	cfg := &Config{}
	if err := cfg.loadFromFile(tmp.Name()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StartPaths[0] != "/tmp" || cfg.Validate || cfg.SampleRatio != 0.25 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := &Config{}
	if err := cfg.loadFromFile("/nonexistent/config.json"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			StartPaths:       []string{"/"},
			ConcurrencyLevel: 1,
			NiceLevel:        "medium",
			SampleRatio:      0.05,
			SampleMin:        5,
			SampleMax:        200,
		}
	}

	if err := base().validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := base()
	cfg.StartPaths = nil
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for missing paths")
	}

	cfg = base()
	cfg.ConcurrencyLevel = 0
	if err := cfg.validate(); err == nil {
		t.Fatal("expected invalid concurrency")
	}

	cfg = base()
	cfg.SampleRatio = 1.5
	if err := cfg.validate(); err == nil {
		t.Fatal("expected invalid sample ratio")
	}

	cfg = base()
	cfg.SampleMin = 50
	cfg.SampleMax = 10
	if err := cfg.validate(); err == nil {
		t.Fatal("expected sample-min above sample-max to fail")
	}

	cfg = base()
	cfg.SampleMin = -1
	if err := cfg.validate(); err == nil {
		t.Fatal("expected negative sample bound to fail")
	}

	cfg = base()
	cfg.NiceLevel = "bad"
	if err := cfg.validate(); err == nil {
		t.Fatal("expected invalid nice level")
	}
}

func TestDefaultRequiredFields(t *testing.T) {
	want := map[string]bool{
		"path": true, "name": true, "parent": true, "size_bytes": true,
		"mtime_epoch": true, "atime_epoch": true, "ctime_epoch": true,
	}
	if len(DefaultRequiredFields) != len(want) {
		t.Fatalf("unexpected defaults: %v", DefaultRequiredFields)
	}
	for _, f := range DefaultRequiredFields {
		if !want[f] {
			t.Fatalf("unexpected default required field: %s", f)
		}
	}
	for _, f := range DefaultRequiredFields {
		if f == "birthtime_epoch" {
			t.Fatal("birthtime must not be required by default")
		}
	}
}
