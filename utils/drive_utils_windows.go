//go:build windows
// +build windows

package utils

import (
	"golang.org/x/sys/windows"
)

// DriveUsage holds capacity figures for the filesystem containing a path.
type DriveUsage struct {
	TotalBytes uint64
	FreeBytes  uint64
}

// GetDriveUsage stats the volume of the given path.
func GetDriveUsage(path string) (DriveUsage, error) {
	var free, total, totalFree uint64
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return DriveUsage{}, err
	}
	if err := windows.GetDiskFreeSpaceEx(p, &free, &total, &totalFree); err != nil {
		return DriveUsage{}, err
	}
	return DriveUsage{TotalBytes: total, FreeBytes: free}, nil
}
