// Package diag watches scan progress and dumps diagnostics when a run
// stalls, so a hung scan over damaged media leaves evidence of where it
// stopped.
package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/pprof"
	"sync"
	"time"

	"varanus/logger"
)

type profileWriter interface {
	WriteTo(w io.Writer, debug int) error
}

type Options struct {
	// StallThreshold is how long progress may sit still before a dump.
	// Zero disables the watchdog.
	StallThreshold time.Duration
	Dir            string
	// ProgressFn reports a monotonically increasing work counter.
	ProgressFn         func() int64
	DumpFlightRecorder func(path string) error

	// Test seams.
	NowFn           func() time.Time
	ProfileLookupFn func(name string) profileWriter
}

type Controller struct {
	threshold          time.Duration
	dir                string
	progressFn         func() int64
	dumpFlightRecorder func(path string) error
	nowFn              func() time.Time
	profileLookupFn    func(name string) profileWriter

	mu             sync.Mutex
	lastProgress   int64
	lastProgressAt time.Time
	lastDumpAt     time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewController(opts Options) *Controller {
	nowFn := opts.NowFn
	if nowFn == nil {
		nowFn = time.Now
	}
	lookup := opts.ProfileLookupFn
	if lookup == nil {
		lookup = func(name string) profileWriter { return pprof.Lookup(name) }
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	return &Controller{
		threshold:          opts.StallThreshold,
		dir:                dir,
		progressFn:         opts.ProgressFn,
		dumpFlightRecorder: opts.DumpFlightRecorder,
		nowFn:              nowFn,
		profileLookupFn:    lookup,
	}
}

// Start launches the watchdog goroutine. It is a no-op when the watchdog is
// disabled or no progress source was given.
func (c *Controller) Start(ctx context.Context) {
	if c == nil || c.threshold <= 0 || c.progressFn == nil || c.stopCh != nil {
		return
	}

	now := c.nowFn()
	c.mu.Lock()
	c.lastProgress = c.progressFn()
	c.lastProgressAt = now
	c.lastDumpAt = time.Time{}
	c.mu.Unlock()

	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	interval := c.threshold / 2
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	if interval > 2*time.Second {
		interval = 2 * time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(c.doneCh)
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			case <-ticker.C:
				c.probe(c.nowFn())
			}
		}
	}()
}

// Close stops the watchdog and waits for it to finish.
func (c *Controller) Close() {
	if c == nil || c.stopCh == nil {
		return
	}
	close(c.stopCh)
	<-c.doneCh
	c.stopCh = nil
	c.doneCh = nil
}

func (c *Controller) probe(now time.Time) {
	progress := c.progressFn()

	c.mu.Lock()
	if progress != c.lastProgress {
		c.lastProgress = progress
		c.lastProgressAt = now
		c.mu.Unlock()
		return
	}
	stalledFor := now.Sub(c.lastProgressAt)
	shouldDump := stalledFor >= c.threshold &&
		(c.lastDumpAt.IsZero() || now.Sub(c.lastDumpAt) >= c.threshold)
	if shouldDump {
		c.lastDumpAt = now
	}
	c.mu.Unlock()

	if shouldDump {
		if err := c.dumpStallArtifacts(now, progress, stalledFor); err != nil {
			logger.Warnf("Diagnostics stall dump failed: %v", err)
		}
	}
}

func (c *Controller) dumpStallArtifacts(now time.Time, progress int64, stalledFor time.Duration) error {
	if err := os.MkdirAll(c.dir, 0700); err != nil {
		return err
	}
	ts := now.UTC().Format("20060102-150405.000")

	event := map[string]interface{}{
		"event":               "scan_stalled",
		"timestamp":           now.UTC().Format(time.RFC3339Nano),
		"progress_count":      progress,
		"threshold_ms":        c.threshold.Milliseconds(),
		"observed_stalled_ms": stalledFor.Milliseconds(),
	}
	data, err := json.MarshalIndent(event, "", "  ")
	if err != nil {
		return err
	}
	eventPath := filepath.Join(c.dir, fmt.Sprintf("varanus-stall-%s.json", ts))
	if err := os.WriteFile(eventPath, data, 0600); err != nil {
		return err
	}

	if _, err := c.writeProfile("goroutine", 2, ts); err != nil {
		logger.Warnf("Diagnostics goroutine profile dump failed: %v", err)
	}
	if c.dumpFlightRecorder != nil {
		tracePath := filepath.Join(c.dir, fmt.Sprintf("varanus-flight-%s.out", ts))
		if err := c.dumpFlightRecorder(tracePath); err != nil {
			logger.Warnf("Diagnostics flight recorder dump failed: %v", err)
		}
	}
	return nil
}

func (c *Controller) writeProfile(name string, debug int, ts string) (string, error) {
	profile := c.profileLookupFn(name)
	if profile == nil {
		return "", fmt.Errorf("pprof profile %q unavailable", name)
	}
	path := filepath.Join(c.dir, fmt.Sprintf("varanus-%s-profile-%s.pprof", name, ts))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := profile.WriteTo(f, debug); err != nil {
		return "", err
	}
	return path, nil
}
