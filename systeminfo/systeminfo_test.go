package systeminfo

import (
	"testing"

	"varanus/config"
	"varanus/logger"
)

func init() {
	logger.Init("error")
}

func TestGetSystemInfoDisabled(t *testing.T) {
	info := GetSystemInfo(&config.Config{CollectSystemInfo: false})
	if info == nil {
		t.Fatal("nil info")
	}
	if info.Hostname != "" || len(info.Volumes) != 0 {
		t.Fatalf("disabled collection must stay empty: %+v", info)
	}
	if info.CollectedAt == "" {
		t.Fatal("collection time must always be stamped")
	}
}

func TestGetSystemInfoCollectsHostContext(t *testing.T) {
	cfg := &config.Config{CollectSystemInfo: true, StartPaths: []string{t.TempDir()}}
	info := GetSystemInfo(cfg)
	if info.Hostname == "" {
		t.Error("hostname missing")
	}
	if info.OSVersion == "" {
		t.Error("os version missing")
	}
	if info.TotalMemoryBytes == 0 {
		t.Error("memory size missing")
	}
	if len(info.Volumes) != 1 {
		t.Fatalf("expected one volume entry: %+v", info.Volumes)
	}
	if info.Volumes[0].TotalBytes == 0 {
		t.Errorf("volume size missing: %+v", info.Volumes[0])
	}
}
