// Package systeminfo captures the host context a scan ran under, so a report
// can be tied back to the machine and volumes it was produced on.
package systeminfo

import (
	"fmt"
	"net"
	"time"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"varanus/config"
	"varanus/logger"
	"varanus/utils"
)

type SystemInfo struct {
	Hostname          string          `json:"hostname,omitempty"`
	OSVersion         string          `json:"os_version,omitempty"`
	KernelVersion     string          `json:"kernel_version,omitempty"`
	Architecture      string          `json:"architecture,omitempty"`
	BootTime          string          `json:"boot_time,omitempty"`
	TotalMemoryBytes  uint64          `json:"total_memory_bytes,omitempty"`
	NetworkInterfaces []InterfaceInfo `json:"network_interfaces,omitempty"`
	Volumes           []VolumeInfo    `json:"volumes,omitempty"`
	CollectedAt       string          `json:"collected_at"`
}

type InterfaceInfo struct {
	Name      string   `json:"name"`
	MAC       string   `json:"mac,omitempty"`
	Addresses []string `json:"addresses,omitempty"`
}

// VolumeInfo describes the filesystem backing one start path.
type VolumeInfo struct {
	Path       string `json:"path"`
	TotalBytes uint64 `json:"total_bytes"`
	FreeBytes  uint64 `json:"free_bytes"`
}

// GetSystemInfo gathers host context. Individual probes fail soft: a host
// where one source is unavailable still yields a partial block.
func GetSystemInfo(cfg *config.Config) *SystemInfo {
	info := &SystemInfo{CollectedAt: time.Now().UTC().Format(time.RFC3339)}
	if cfg == nil || !cfg.CollectSystemInfo {
		return info
	}

	if err := gatherHost(info); err != nil {
		logger.Warnf("Failed to gather host details: %v", err)
	}
	if err := gatherMemory(info); err != nil {
		logger.Warnf("Failed to gather memory details: %v", err)
	}
	if err := gatherNetworkInterfaces(info); err != nil {
		logger.Warnf("Failed to gather network interfaces: %v", err)
	}
	gatherVolumes(info, cfg.StartPaths)
	return info
}

func gatherHost(info *SystemInfo) error {
	h, err := host.Info()
	if err != nil {
		return err
	}
	info.Hostname = h.Hostname
	info.OSVersion = fmt.Sprintf("%s %s", h.Platform, h.PlatformVersion)
	info.KernelVersion = h.KernelVersion
	info.Architecture = h.KernelArch
	if h.BootTime > 0 {
		info.BootTime = time.Unix(int64(h.BootTime), 0).UTC().Format(time.RFC3339)
	}
	return nil
}

func gatherMemory(info *SystemInfo) error {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return err
	}
	info.TotalMemoryBytes = vm.Total
	return nil
}

func gatherNetworkInterfaces(info *SystemInfo) error {
	ifaces, err := net.Interfaces()
	if err != nil {
		return err
	}
	for _, iface := range ifaces {
		entry := InterfaceInfo{Name: iface.Name, MAC: iface.HardwareAddr.String()}
		if addrs, err := iface.Addrs(); err == nil {
			for _, addr := range addrs {
				entry.Addresses = append(entry.Addresses, addr.String())
			}
		}
		info.NetworkInterfaces = append(info.NetworkInterfaces, entry)
	}
	return nil
}

func gatherVolumes(info *SystemInfo, startPaths []string) {
	for _, path := range startPaths {
		usage, err := utils.GetDriveUsage(path)
		if err != nil {
			logger.Debugf("Failed to stat volume for %s: %v", path, err)
			continue
		}
		info.Volumes = append(info.Volumes, VolumeInfo{
			Path:       path,
			TotalBytes: usage.TotalBytes,
			FreeBytes:  usage.FreeBytes,
		})
	}
}
