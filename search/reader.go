package search

import (
	"os"

	"golang.org/x/exp/mmap"
)

const mmapMinSize = 128 * 1024

// readContent loads a candidate file, memory-mapping larger files. Files
// over maxSize return nil content with no error; callers treat that as a
// skip, not a failure.
func readContent(path string, maxSize int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, nil
	}
	if info.Size() >= mmapMinSize {
		if content, err := readContentMmap(path, info.Size()); err == nil {
			return content, nil
		}
		// Fall through to a plain read when mapping fails.
	}
	return os.ReadFile(path)
}

func readContentMmap(path string, size int64) ([]byte, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if size <= 0 {
		return []byte{}, nil
	}
	buf := make([]byte, size)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return nil, err
	}
	return buf, nil
}
