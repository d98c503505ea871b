package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"

	"varanus/config"
	"varanus/fuzzy"
	"varanus/hasher"
	"varanus/knownset"
	"varanus/logger"
	"varanus/metadata"
	"varanus/tracing"
	"varanus/utils"
)

type fileScanTask struct {
	path string
	info os.FileInfo
}

var processedCount atomic.Int64

// ProcessedCount reports how many files have been processed so far, for the
// stall watchdog.
func ProcessedCount() int64 {
	return processedCount.Load()
}

// CollectInventory walks the configured start paths and returns one record
// per regular file, enriched with digests, signatures and metadata according
// to the configuration. Records are returned sorted by path so repeated runs
// over an unchanged tree produce identical reports.
func CollectInventory(ctx context.Context, cfg *config.Config, known *knownset.Set) ([]*FileRecord, error) {
	algorithms := supportedAlgorithms(cfg.HashAlgorithms)
	matcher := utils.NewPatternMatcher(cfg.IncludePatterns, cfg.ExcludePatterns)
	selectedWalker := fastWalker{followSymlinks: cfg.FollowSymlinks}
	adjustConcurrency(cfg)

	totalFiles := -1
	if !cfg.SkipCount {
		logger.Info("Counting total number of files...")
		totalFiles = 0
		for _, startPath := range cfg.StartPaths {
			count, err := countFiles(ctx, startPath, cfg, matcher, selectedWalker)
			if err != nil {
				logger.Warnf("Failed to count files in %s: %v", startPath, err)
				continue
			}
			totalFiles += count
		}
		logger.Infof("Total files to scan: %d", totalFiles)
	}

	bar := progressbar.NewOptions(totalFiles,
		progressbar.OptionSetDescription("Collecting inventory"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetVisibility(progressVisible()),
		progressbar.OptionFullWidth(),
	)

	var ioLimiter *rate.Limiter
	if cfg.MaxIOPerSecond > 0 {
		ioLimiter = rate.NewLimiter(rate.Limit(cfg.MaxIOPerSecond), cfg.MaxIOPerSecond)
	}

	filesChan := make(chan fileScanTask, cfg.ConcurrencyLevel)
	recordsChan := make(chan *FileRecord, cfg.ConcurrencyLevel)

	go func() {
		defer close(filesChan)
		for _, startPath := range cfg.StartPaths {
			err := selectedWalker.Walk(ctx, startPath, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					logger.Warnf("Failed to access %s: %v", path, err)
					return nil
				}
				if d == nil || d.IsDir() {
					return nil
				}
				if !matcher.ShouldInclude(path) {
					return nil
				}
				info, ok := resolveEntry(path, d, cfg.FollowSymlinks)
				if !ok {
					return nil
				}
				if cfg.MaxFileSize > 0 && info.Size() > cfg.MaxFileSize {
					return nil
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case filesChan <- fileScanTask{path: path, info: info}:
					if ioLimiter != nil {
						if err := ioLimiter.Wait(ctx); err != nil {
							return err
						}
					}
				}
				return nil
			})
			if err != nil && err != context.Canceled {
				logger.Warnf("Error walking path %s: %v", startPath, err)
			}
		}
	}()

	var wg sync.WaitGroup
	for range cfg.ConcurrencyLevel {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range filesChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				record := collectRecord(ctx, task.path, task.info, cfg, algorithms, known)
				if record != nil {
					recordsChan <- record
				}
				processedCount.Add(1)
				_ = bar.Add(1)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(recordsChan)
	}()

	var records []*FileRecord
	for record := range recordsChan {
		records = append(records, record)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Path < records[j].Path
	})
	return records, nil
}

func collectRecord(ctx context.Context, path string, info os.FileInfo, cfg *config.Config, algorithms []string, known *knownset.Set) *FileRecord {
	ctx, endTask := tracing.StartTask(ctx, "collect_record")
	tracing.Log(ctx, "file", path)
	defer endTask()

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	size := info.Size()
	record := &FileRecord{
		Path:          abs,
		Name:          filepath.Base(abs),
		ParentDir:     filepath.Dir(abs),
		SizeBytes:     &size,
		IsSymlink:     isSymlink(path, info),
		FileID:        getFileID(path, info),
		DiskExtension: utils.NormalizeExt(filepath.Ext(abs)),
	}

	ts, err := statTimes(path, cfg.FollowSymlinks)
	if err != nil {
		logger.Warnf("Failed to read timestamps for %s: %v", path, err)
	} else {
		mtime, atime := ts.mtime, ts.atime
		record.MtimeEpoch = &mtime
		record.AtimeEpoch = &atime
		record.CtimeEpoch = ts.ctime
		record.BirthtimeEpoch = ts.birth
	}

	if cfg.WithHashes && len(algorithms) > 0 {
		endRegion := tracing.StartRegion(ctx, "hash")
		attachHashes(record, path, algorithms)
		endRegion()
	}
	if cfg.FuzzyHash && size >= cfg.FuzzyMinSize && (cfg.FuzzyMaxSize <= 0 || size <= cfg.FuzzyMaxSize) {
		attachFuzzyHashes(record, path, cfg.FuzzyAlgorithms)
	}
	if cfg.WithSignature {
		endRegion := tracing.StartRegion(ctx, "signature")
		attachSignature(record, path)
		endRegion()
	}
	if cfg.WithMetadata && record.SignatureMIME != "" {
		record.Metadata = metadata.Extract(path, record.SignatureMIME, cfg.MetadataMaxBytes)
	}
	if known.Len() > 0 {
		markKnown(record, known)
	}
	return record
}

func attachHashes(record *FileRecord, path string, algorithms []string) {
	record.Hashes = make(map[string]string, len(algorithms))
	digests, err := hasher.ComputeHashes(path, algorithms)
	if err != nil {
		logger.Warnf("Failed to hash %s: %v", path, err)
		for _, algo := range algorithms {
			record.Hashes[algo] = ""
		}
		return
	}
	for _, algo := range algorithms {
		record.Hashes[algo] = digests[algo]
	}
}

func attachFuzzyHashes(record *FileRecord, path string, algorithms []string) {
	for _, name := range algorithms {
		h, ok := fuzzy.Lookup(name)
		if !ok {
			logger.Warnf("Unknown fuzzy hash algorithm: %s", name)
			continue
		}
		digest, err := h.HashFile(path)
		if err != nil {
			logger.Debugf("Fuzzy hash %s failed for %s: %v", name, path, err)
			continue
		}
		if record.FuzzyHashes == nil {
			record.FuzzyHashes = make(map[string]string, len(algorithms))
		}
		record.FuzzyHashes[h.Name()] = digest
	}
}

func attachSignature(record *FileRecord, path string) {
	sig, err := probeSignature(path)
	if err != nil {
		logger.Debugf("Signature probe failed for %s: %v", path, err)
		return
	}
	record.SignatureMIME = sig.mimeType
	record.SignatureExt = sig.ext
	record.SignatureDesc = sig.description
	record.ExtensionMismatch = extMismatch(record.DiskExtension, sig.ext)
}

func markKnown(record *FileRecord, known *knownset.Set) {
	for _, digest := range record.Hashes {
		if digest != "" && known.Contains(digest) {
			record.Known = true
			return
		}
	}
}

func countFiles(ctx context.Context, startPath string, cfg *config.Config, matcher *utils.PatternMatcher, w walker) (int, error) {
	var total int
	err := w.Walk(ctx, startPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d == nil || d.IsDir() {
			return nil
		}
		if !matcher.ShouldInclude(path) {
			return nil
		}
		if info, ok := resolveEntry(path, d, cfg.FollowSymlinks); ok {
			if cfg.MaxFileSize > 0 && info.Size() > cfg.MaxFileSize {
				return nil
			}
			total++
		}
		return nil
	})
	return total, err
}

// resolveEntry stats the entry according to the symlink policy and reports
// whether it should be inventoried as a file.
func resolveEntry(path string, d fs.DirEntry, follow bool) (os.FileInfo, bool) {
	if d.Type()&fs.ModeSymlink != 0 {
		if !follow {
			return nil, false
		}
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return nil, false
		}
		return info, true
	}
	if !d.Type().IsRegular() {
		return nil, false
	}
	info, err := d.Info()
	if err != nil {
		return nil, false
	}
	return info, true
}

func isSymlink(path string, info os.FileInfo) bool {
	if info.Mode()&os.ModeSymlink != 0 {
		return true
	}
	// When following links the stat result describes the target; check the
	// link itself.
	if li, err := os.Lstat(path); err == nil {
		return li.Mode()&os.ModeSymlink != 0
	}
	return false
}

func supportedAlgorithms(requested []string) []string {
	out := make([]string, 0, len(requested))
	for _, algo := range requested {
		if !hasher.Supported(algo) {
			logger.Warnf("Unsupported hash algorithm: %s", algo)
			continue
		}
		out = append(out, algo)
	}
	return out
}

func adjustConcurrency(cfg *config.Config) {
	if cfg.ConcurrencySet {
		return
	}
	numCPU := runtime.NumCPU()
	switch cfg.NiceLevel {
	case "high":
		cfg.ConcurrencyLevel = numCPU
	case "medium":
		cfg.ConcurrencyLevel = max(numCPU/2, 1)
	case "low":
		cfg.ConcurrencyLevel = 1
	}
}

func progressVisible() bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv("VARANUS_DISABLE_PROGRESS")))
	return value != "1" && value != "true" && value != "yes" && value != "on"
}
