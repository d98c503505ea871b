//go:build !windows
// +build !windows

package utils

import (
	"golang.org/x/sys/unix"
)

// DriveUsage holds capacity figures for the filesystem containing a path.
type DriveUsage struct {
	TotalBytes uint64
	FreeBytes  uint64
}

// GetDriveUsage stats the filesystem of the given path. Used to annotate the
// scan report with the capacity of the evidence volume.
func GetDriveUsage(path string) (DriveUsage, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return DriveUsage{}, err
	}
	bsize := uint64(st.Bsize)
	return DriveUsage{
		TotalBytes: st.Blocks * bsize,
		FreeBytes:  st.Bavail * bsize,
	}, nil
}
