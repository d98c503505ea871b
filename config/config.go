package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"varanus/version"
)

type Config struct {
	StartPaths        []string          `json:"start_paths"`
	OutputDir         string            `json:"output_dir"`
	Label             string            `json:"label"`
	FollowSymlinks    bool              `json:"follow_symlinks"`
	IncludePatterns   []string          `json:"include_patterns"`
	ExcludePatterns   []string          `json:"exclude_patterns"`
	MaxFileSize       int64             `json:"max_file_size"`
	ConcurrencyLevel  int               `json:"concurrency_level"`
	NiceLevel         string            `json:"nice_level"`
	MaxIOPerSecond    int               `json:"max_io_per_second"`
	LogLevel          string            `json:"log_level"`
	SkipCount         bool              `json:"skip_count"`
	ConfigFile        string            `json:"config_file"`
	WithHashes        bool              `json:"with_hashes"`
	HashAlgorithms    []string          `json:"hash_algorithms"`
	WithSignature     bool              `json:"with_signature"`
	WithMetadata      bool              `json:"with_metadata"`
	MetadataMaxBytes  int64             `json:"metadata_max_bytes"`
	FuzzyHash         bool              `json:"fuzzy_hash"`
	FuzzyAlgorithms   []string          `json:"fuzzy_algorithms"`
	FuzzyMinSize      int64             `json:"fuzzy_min_size"`
	FuzzyMaxSize      int64             `json:"fuzzy_max_size"`
	KnownHashFile     string            `json:"known_hash_file"`
	WithTimeline      bool              `json:"with_timeline"`
	TimelineUTC       bool              `json:"timeline_utc"`
	TimelineOffsetMin int               `json:"timeline_offset_minutes"`
	Validate          bool              `json:"validate"`
	RequiredFields    []string          `json:"required_fields"`
	CheckExists       bool              `json:"check_exists"`
	CheckSize         bool              `json:"check_size"`
	DetectDuplicates  bool              `json:"detect_duplicates"`
	StrictBirthtime   bool              `json:"strict_birthtime"`
	EpochMin          float64           `json:"epoch_min"`
	VerifyHashes      bool              `json:"verify_hashes"`
	SampleRatio       float64           `json:"sample_ratio"`
	SampleMin         int               `json:"sample_min"`
	SampleMax         int               `json:"sample_max"`
	SampleSeed        int64             `json:"sample_seed"`
	SearchTerms       []string          `json:"search_terms"`
	SearchExts        []string          `json:"search_extensions"`
	SearchMaxFileSize int64             `json:"search_max_file_size"`
	CollectSystemInfo bool              `json:"collect_system_info"`
	OtelEndpoint      string            `json:"otel_endpoint"`
	OtelFromEnv       bool              `json:"otel_from_env"`
	OtelHeaders       map[string]string `json:"otel_headers"`
	OtelServiceName   string            `json:"otel_service_name"`
	OtelTimeout       time.Duration     `json:"otel_timeout"`
	OtelExportPaths   bool              `json:"otel_export_paths"`
	DiagStallDump     time.Duration     `json:"diag_stall_dump"`
	DiagDir           string            `json:"diag_dir"`
	TraceFlight       bool              `json:"trace_flight"`
	TraceFlightFile   string            `json:"trace_flight_file"`
	ConcurrencySet    bool              `json:"-"`
	MaxIOSet          bool              `json:"-"`
	SampleSeedSet     bool              `json:"-"`
}

// DefaultRequiredFields are the record fields the validator demands by
// default. Birthtime is excluded because several platforms never populate it.
var DefaultRequiredFields = []string{
	"path", "name", "parent", "size_bytes",
	"mtime_epoch", "atime_epoch", "ctime_epoch",
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		StartPaths:        []string{"."},
		OutputDir:         "outputs",
		ConcurrencyLevel:  runtime.NumCPU(),
		NiceLevel:         "medium",
		MaxIOPerSecond:    1000,
		LogLevel:          "info",
		SkipCount:         true,
		WithHashes:        true,
		HashAlgorithms:    []string{"md5", "sha256"},
		WithSignature:     true,
		MetadataMaxBytes:  1 * 1024 * 1024,
		FuzzyAlgorithms:   []string{"tlsh"},
		FuzzyMinSize:      256,
		FuzzyMaxSize:      20 * 1024 * 1024,
		Validate:          true,
		RequiredFields:    append([]string(nil), DefaultRequiredFields...),
		CheckExists:       true,
		CheckSize:         true,
		DetectDuplicates:  true,
		EpochMin:          0,
		SampleRatio:       0.05,
		SampleMin:         5,
		SampleMax:         200,
		SearchExts:        []string{"txt", "log", "csv", "json", "xml", "md", "ini", "conf"},
		SearchMaxFileSize: 10 * 1024 * 1024,
		CollectSystemInfo: true,
		OtelHeaders:       map[string]string{},
		OtelServiceName:   "varanus",
		OtelTimeout:       5 * time.Second,
		DiagDir:           ".",
		TraceFlightFile:   "trace-flight.out",
	}

	startPath := flag.String("path", strings.Join(cfg.StartPaths, ","), "Comma-separated list of root paths to scan.")
	outputDir := flag.String("out-dir", cfg.OutputDir, "Directory for report CSV files.")
	label := flag.String("label", "", "Optional label embedded in report file names.")
	followSymlinks := flag.Bool("follow-symlinks", cfg.FollowSymlinks, "Follow symbolic links during traversal.")
	includes := flag.String("include", "", "Comma-separated include patterns (glob or regex).")
	excludes := flag.String("exclude", "", "Comma-separated exclude patterns (glob or regex).")
	maxFileSize := flag.Int64("max-file-size", cfg.MaxFileSize, "Maximum file size to process in bytes (0 means unlimited).")
	concurrency := flag.Int("concurrency", cfg.ConcurrencyLevel, "Worker pool size.")
	nice := flag.String("nice", cfg.NiceLevel, "Nice level: high, medium, or low.")
	maxIO := flag.Int("max-io-per-second", cfg.MaxIOPerSecond, "Maximum disk I/O operations per second (0 disables limiting).")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error, fatal, or panic.")
	skipCount := flag.Bool("skip-count", cfg.SkipCount, "Skip the initial file count and start scanning immediately.")
	configFile := flag.String("config", "", "Path to JSON configuration file.")
	withHashes := flag.Bool("with-hash", cfg.WithHashes, "Attach content digests to inventory records.")
	hashes := flag.String("hashes", strings.Join(cfg.HashAlgorithms, ","), "Comma-separated digest algorithms (md5, sha1, sha256, xxh64, blake3).")
	withSignature := flag.Bool("with-signature", cfg.WithSignature, "Probe content signatures and flag extension mismatches.")
	withMetadata := flag.Bool("with-metadata", cfg.WithMetadata, "Extract embedded document metadata (EXIF, PDF, DOCX).")
	metadataMaxBytes := flag.Int64("metadata-max-bytes", cfg.MetadataMaxBytes, "Maximum bytes metadata parsers may read per file (0 means unlimited).")
	fuzzyHash := flag.Bool("fuzzy-hash", cfg.FuzzyHash, "Attach similarity digests to inventory records.")
	fuzzyAlgorithms := flag.String("fuzzy-algorithms", strings.Join(cfg.FuzzyAlgorithms, ","), "Comma-separated similarity digest algorithms.")
	fuzzyMinSize := flag.Int64("fuzzy-min-size", cfg.FuzzyMinSize, "Minimum file size in bytes for similarity digests.")
	fuzzyMaxSize := flag.Int64("fuzzy-max-size", cfg.FuzzyMaxSize, "Maximum file size in bytes for similarity digests.")
	knownHashFile := flag.String("known-hashes", "", "File of known-benign hex digests; matching records are marked known.")
	withTimeline := flag.Bool("timeline", cfg.WithTimeline, "Write a chronological event timeline CSV.")
	timelineUTC := flag.Bool("timeline-utc", cfg.TimelineUTC, "Render timeline timestamps in UTC instead of local time.")
	timelineOffset := flag.Int("timeline-offset-minutes", cfg.TimelineOffsetMin, "Fixed timezone offset in minutes for timeline timestamps.")
	validate := flag.Bool("validate", cfg.Validate, "Run cross-field consistency checks over the inventory.")
	requiredFields := flag.String("required-fields", strings.Join(cfg.RequiredFields, ","), "Comma-separated record fields the validator requires.")
	checkExists := flag.Bool("check-exists", cfg.CheckExists, "Re-stat each record path during validation.")
	checkSize := flag.Bool("check-size", cfg.CheckSize, "Compare recorded sizes against the live filesystem.")
	detectDuplicates := flag.Bool("detect-duplicates", cfg.DetectDuplicates, "Flag paths appearing more than once in the inventory.")
	strictBirthtime := flag.Bool("strict-birthtime", cfg.StrictBirthtime, "Treat a missing birthtime as a validation issue.")
	epochMin := flag.Float64("epoch-min", cfg.EpochMin, "Minimum acceptable epoch timestamp.")
	verifyHashes := flag.Bool("verify-hashes", cfg.VerifyHashes, "Re-verify recorded digests on a random sample of records.")
	sampleRatio := flag.Float64("sample-ratio", cfg.SampleRatio, "Fraction of records to re-hash during verification.")
	sampleMin := flag.Int("sample-min", cfg.SampleMin, "Minimum sample size for hash verification.")
	sampleMax := flag.Int("sample-max", cfg.SampleMax, "Maximum sample size for hash verification.")
	sampleSeed := flag.Int64("sample-seed", 0, "Seed for verification sampling (0 uses a time-based seed).")
	searches := flag.String("search", "", "Comma-separated keywords to search in light text files.")
	searchExts := flag.String("search-extensions", strings.Join(cfg.SearchExts, ","), "Extensions treated as light text files for keyword search.")
	searchMaxFileSize := flag.Int64("search-max-file-size", cfg.SearchMaxFileSize, "Maximum text file size in bytes for keyword search.")
	collectSystemInfo := flag.Bool("collect-system-info", cfg.CollectSystemInfo, "Record host context alongside the reports.")
	otelEndpoint := flag.String("otel-endpoint", cfg.OtelEndpoint, "OTLP/HTTP logs endpoint for issue export.")
	otelFromEnv := flag.Bool("otel-from-env", cfg.OtelFromEnv, "Allow OTEL endpoint fallback from OTEL environment variables.")
	otelHeaders := flag.String("otel-headers", "", "Comma-separated OTEL headers (key=value) for export.")
	otelServiceName := flag.String("otel-service-name", cfg.OtelServiceName, "OTEL service name for export.")
	otelTimeout := flag.Duration("otel-timeout", cfg.OtelTimeout, "OTEL export timeout.")
	otelExportPaths := flag.Bool("otel-export-paths", cfg.OtelExportPaths, "Include raw file paths in OTEL payloads.")
	diagStallDump := flag.Duration("diag-stall-dump", cfg.DiagStallDump, "If positive, dump diagnostics when scan progress stalls for this duration.")
	diagDir := flag.String("diag-dir", cfg.DiagDir, "Diagnostics output directory.")
	traceFlight := flag.Bool("trace-flight", cfg.TraceFlight, "Enable flight recorder tracing.")
	traceFlightFile := flag.String("trace-flight-file", cfg.TraceFlightFile, "Flight recorder output file.")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("varanus version %s\n", version.Version)
		os.Exit(0)
	}

	if *configFile != "" {
		cfg.ConfigFile = *configFile
		if err := cfg.loadFromFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "path":
			cfg.StartPaths = parseCommaSeparated(*startPath)
		case "out-dir":
			cfg.OutputDir = *outputDir
		case "label":
			cfg.Label = *label
		case "follow-symlinks":
			cfg.FollowSymlinks = *followSymlinks
		case "include":
			cfg.IncludePatterns = parseCommaSeparated(*includes)
		case "exclude":
			cfg.ExcludePatterns = parseCommaSeparated(*excludes)
		case "max-file-size":
			cfg.MaxFileSize = *maxFileSize
		case "concurrency":
			cfg.ConcurrencyLevel = *concurrency
			cfg.ConcurrencySet = true
		case "nice":
			cfg.NiceLevel = *nice
		case "max-io-per-second":
			cfg.MaxIOPerSecond = *maxIO
			cfg.MaxIOSet = true
		case "log-level":
			cfg.LogLevel = *logLevel
		case "skip-count":
			cfg.SkipCount = *skipCount
		case "with-hash":
			cfg.WithHashes = *withHashes
		case "hashes":
			cfg.HashAlgorithms = parseCommaSeparated(*hashes)
		case "with-signature":
			cfg.WithSignature = *withSignature
		case "with-metadata":
			cfg.WithMetadata = *withMetadata
		case "metadata-max-bytes":
			cfg.MetadataMaxBytes = *metadataMaxBytes
		case "fuzzy-hash":
			cfg.FuzzyHash = *fuzzyHash
		case "fuzzy-algorithms":
			cfg.FuzzyAlgorithms = parseCommaSeparated(*fuzzyAlgorithms)
		case "fuzzy-min-size":
			cfg.FuzzyMinSize = *fuzzyMinSize
		case "fuzzy-max-size":
			cfg.FuzzyMaxSize = *fuzzyMaxSize
		case "known-hashes":
			cfg.KnownHashFile = *knownHashFile
		case "timeline":
			cfg.WithTimeline = *withTimeline
		case "timeline-utc":
			cfg.TimelineUTC = *timelineUTC
		case "timeline-offset-minutes":
			cfg.TimelineOffsetMin = *timelineOffset
		case "validate":
			cfg.Validate = *validate
		case "required-fields":
			cfg.RequiredFields = parseCommaSeparated(*requiredFields)
		case "check-exists":
			cfg.CheckExists = *checkExists
		case "check-size":
			cfg.CheckSize = *checkSize
		case "detect-duplicates":
			cfg.DetectDuplicates = *detectDuplicates
		case "strict-birthtime":
			cfg.StrictBirthtime = *strictBirthtime
		case "epoch-min":
			cfg.EpochMin = *epochMin
		case "verify-hashes":
			cfg.VerifyHashes = *verifyHashes
		case "sample-ratio":
			cfg.SampleRatio = *sampleRatio
		case "sample-min":
			cfg.SampleMin = *sampleMin
		case "sample-max":
			cfg.SampleMax = *sampleMax
		case "sample-seed":
			cfg.SampleSeed = *sampleSeed
			cfg.SampleSeedSet = true
		case "search":
			cfg.SearchTerms = parseCommaSeparated(*searches)
		case "search-extensions":
			cfg.SearchExts = parseCommaSeparated(*searchExts)
		case "search-max-file-size":
			cfg.SearchMaxFileSize = *searchMaxFileSize
		case "collect-system-info":
			cfg.CollectSystemInfo = *collectSystemInfo
		case "otel-endpoint":
			cfg.OtelEndpoint = *otelEndpoint
		case "otel-from-env":
			cfg.OtelFromEnv = *otelFromEnv
		case "otel-headers":
			cfg.OtelHeaders = parseKeyValues(*otelHeaders)
		case "otel-service-name":
			cfg.OtelServiceName = *otelServiceName
		case "otel-timeout":
			cfg.OtelTimeout = *otelTimeout
		case "otel-export-paths":
			cfg.OtelExportPaths = *otelExportPaths
		case "diag-stall-dump":
			cfg.DiagStallDump = *diagStallDump
		case "diag-dir":
			cfg.DiagDir = *diagDir
		case "trace-flight":
			cfg.TraceFlight = *traceFlight
		case "trace-flight-file":
			cfg.TraceFlightFile = *traceFlightFile
		}
	})

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if len(c.StartPaths) == 0 {
		return fmt.Errorf("at least one start path is required")
	}
	if c.ConcurrencyLevel < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("sample ratio must be within [0,1]")
	}
	if c.SampleMin < 0 || c.SampleMax < 0 {
		return fmt.Errorf("sample bounds must be non-negative")
	}
	if c.SampleMax > 0 && c.SampleMin > c.SampleMax {
		return fmt.Errorf("sample-min exceeds sample-max")
	}
	switch c.NiceLevel {
	case "high", "medium", "low":
	default:
		return fmt.Errorf("invalid nice level: %s", c.NiceLevel)
	}
	return nil
}

func parseCommaSeparated(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseKeyValues(value string) map[string]string {
	out := map[string]string{}
	for _, pair := range parseCommaSeparated(value) {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
