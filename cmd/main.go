package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"varanus/config"
	"varanus/diag"
	"varanus/hasher"
	"varanus/knownset"
	"varanus/logger"
	"varanus/output"
	"varanus/scanner"
	"varanus/search"
	"varanus/systeminfo"
	"varanus/timeline"
	"varanus/tracing"
	"varanus/update"
	"varanus/utils"
	"varanus/validate"
	"varanus/version"
)

const (
	flightRecorderMaxBytes = 16 << 20
	flightRecorderMinAge   = 10 * time.Second
)

func main() {
	if err := tracing.Start("trace.out"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start trace: %v\n", err)
	} else {
		defer tracing.Stop()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel)

	if cfg.TraceFlight {
		if err := tracing.StartFlightRecorder(flightRecorderMaxBytes, flightRecorderMinAge); err != nil {
			logger.Warnf("Failed to start flight recorder: %v", err)
		} else {
			defer func() {
				if err := tracing.WriteFlightRecorder(cfg.TraceFlightFile); err != nil {
					logger.Warnf("Failed to write flight recorder: %v", err)
				}
				tracing.StopFlightRecorder()
			}()
		}
	}

	if latest, notes, newer, err := update.CheckForUpdate(version.Version); err == nil && newer {
		if strings.Contains(strings.ToLower(notes), "security") {
			logger.Warnf("Update available: %s -> %s (security fixes included)", version.Version, latest)
		} else {
			logger.Infof("Update available: %s -> %s", version.Version, latest)
		}
	}

	startedAt := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel, cfg.TraceFlight, cfg.TraceFlightFile)

	watchdog := diag.NewController(diag.Options{
		StallThreshold:     cfg.DiagStallDump,
		Dir:                cfg.DiagDir,
		ProgressFn:         scanner.ProcessedCount,
		DumpFlightRecorder: tracing.WriteFlightRecorder,
	})
	watchdog.Start(ctx)
	defer watchdog.Close()

	if cfg.CollectSystemInfo {
		info := systeminfo.GetSystemInfo(cfg)
		writeSystemInfo(cfg, info, startedAt)
	}

	if utils.IsPathWithin(cfg.OutputDir, cfg.StartPaths) {
		logger.Warnf("Output directory %s lies inside a scanned path; reports from earlier runs will be inventoried", cfg.OutputDir)
	}

	var known *knownset.Set
	if cfg.KnownHashFile != "" {
		known, err = knownset.Load(cfg.KnownHashFile)
		if err != nil {
			logger.Fatalf("Failed to load known hash set: %v", err)
		}
		logger.Infof("Loaded %d known digests", known.Len())
	}

	records, err := scanner.CollectInventory(ctx, cfg, known)
	if err != nil {
		logger.Fatalf("Inventory collection failed: %v", err)
	}
	logger.Infof("Collected %d records in %s", len(records), time.Since(startedAt).Round(time.Millisecond))

	inventoryPath := utils.ReportPath(cfg.OutputDir, "inventory", cfg.Label, startedAt)
	if err := output.WriteInventoryCSV(inventoryPath, records); err != nil {
		logger.Fatalf("Failed to write inventory report: %v", err)
	}
	logger.Infof("Inventory report: %s", inventoryPath)

	if cfg.WithTimeline {
		events := timeline.BuildEvents(records, timeline.Options{
			UTC:           cfg.TimelineUTC,
			OffsetMinutes: cfg.TimelineOffsetMin,
		})
		timelinePath := utils.ReportPath(cfg.OutputDir, "timeline", cfg.Label, startedAt)
		if err := output.WriteTimelineCSV(timelinePath, events); err != nil {
			logger.Errorf("Failed to write timeline report: %v", err)
		} else {
			logger.Infof("Timeline report: %s (%d events)", timelinePath, len(events))
		}
	}

	if cfg.Validate {
		runValidation(cfg, records, startedAt)
	}

	if len(cfg.SearchTerms) > 0 {
		hits := search.Search(records, search.Options{
			Terms:       cfg.SearchTerms,
			Extensions:  cfg.SearchExts,
			MaxFileSize: cfg.SearchMaxFileSize,
		})
		hitsPath := utils.ReportPath(cfg.OutputDir, "hits", cfg.Label, startedAt)
		if err := output.WriteHitsCSV(hitsPath, hits); err != nil {
			logger.Errorf("Failed to write search report: %v", err)
		} else {
			logger.Infof("Search report: %s (%d hits)", hitsPath, len(hits))
		}
	}

	logger.Info("Scan completed successfully.")
}

// runValidation executes the cross-check pipeline and the optional sampled
// hash re-verification, then persists and exports the issue list.
func runValidation(cfg *config.Config, records []*scanner.FileRecord, startedAt time.Time) {
	issues := validate.ValidateRecords(records, validate.OptionsFromConfig(cfg))

	if cfg.VerifyHashes {
		seed := cfg.SampleSeed
		if !cfg.SampleSeedSet {
			seed = time.Now().UnixNano()
		}
		rng := rand.New(rand.NewSource(seed))

		// With hashing disabled no digests were recorded, so there is
		// nothing to verify against.
		var rehash validate.Rehasher
		if cfg.WithHashes {
			rehash = validate.RehashFunc(hasher.ComputeHashes)
		}
		issues = append(issues, validate.SampleVerifyHashes(
			records, cfg.HashAlgorithms, rehash,
			cfg.SampleRatio, cfg.SampleMin, cfg.SampleMax, rng)...)
	}

	summary := validate.Summarize(issues)
	logger.Infof("Validation summary: %s", output.FormatSummary(summary))

	issuesPath := utils.ReportPath(cfg.OutputDir, "issues", cfg.Label, startedAt)
	if err := output.WriteIssuesCSV(issuesPath, issues); err != nil {
		logger.Errorf("Failed to write issues report: %v", err)
	} else {
		logger.Infof("Issues report: %s (%d issues)", issuesPath, len(issues))
	}

	exporter, err := output.NewIssueExporter(cfg)
	if err != nil {
		logger.Warnf("OTEL export disabled: %v", err)
		return
	}
	if exporter != nil {
		logger.Infof("Exporting issues to %s", exporter.Endpoint())
		exporter.EmitIssues(issues)
		exporter.Shutdown()
	}
}

func writeSystemInfo(cfg *config.Config, info *systeminfo.SystemInfo, startedAt time.Time) {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		logger.Errorf("Failed to encode system info: %v", err)
		return
	}
	if err := os.MkdirAll(cfg.OutputDir, 0700); err != nil {
		logger.Errorf("Failed to create output directory: %v", err)
		return
	}
	name := "systeminfo"
	if cfg.Label != "" {
		name += "_" + cfg.Label
	}
	path := filepath.Join(cfg.OutputDir, fmt.Sprintf("%s_%s.json", name, startedAt.Format("20060102_150405")))
	if err := os.WriteFile(path, data, 0600); err != nil {
		logger.Errorf("Failed to write system info: %v", err)
		return
	}
	logger.Infof("System info: %s", path)
}

func handleSignals(cancel context.CancelFunc, traceFlight bool, traceFlightFile string) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("Interrupt signal received. Shutting down...")

	if traceFlight {
		if err := tracing.WriteFlightRecorder(traceFlightFile); err != nil {
			logger.Warnf("Failed to write flight recorder: %v", err)
		}
		tracing.StopFlightRecorder()
	}
	cancel()
}
