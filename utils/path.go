package utils

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// IsPathWithin returns true if the given path is within any of the roots.
func IsPathWithin(path string, roots []string) bool {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}
	absPath, err := filepath.Abs(resolved)
	if err != nil {
		return false
	}
	for _, root := range roots {
		rResolved, err := filepath.EvalSymlinks(root)
		if err != nil {
			rResolved = root
		}
		absRoot, err := filepath.Abs(rResolved)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absRoot, absPath)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// ReportPath builds a timestamped report file name under dir, e.g.
// outputs/issues_casework_20260824_101500.csv.
func ReportPath(dir, tool, label string, at time.Time) string {
	base := tool
	if label != "" {
		base += "_" + label
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s.csv", base, at.Format("20060102_150405")))
}

// NormalizeExt lowercases an extension and maps common aliases to one
// canonical spelling, so ".JPEG" and ".jpg" compare equal.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	switch ext {
	case ".jpe", ".jpeg":
		return ".jpg"
	case ".tif":
		return ".tiff"
	case ".htm":
		return ".html"
	}
	return ext
}
