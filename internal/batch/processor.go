// Package batch runs the full processing pipeline over many recordings with
// a bounded worker pool, optionally persisting results.
package batch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/somnolab/actigraphy/internal/accel"
	"github.com/somnolab/actigraphy/internal/backend"
	"github.com/somnolab/actigraphy/internal/config"
	"github.com/somnolab/actigraphy/internal/device"
	"github.com/somnolab/actigraphy/internal/monitoring"
	"github.com/somnolab/actigraphy/internal/sleep"
	"github.com/somnolab/actigraphy/internal/store"
	"github.com/somnolab/actigraphy/internal/timeutil"
)

// FileResult is the outcome of processing one recording. Err is set when the
// file failed; the other fields are then zero.
type FileResult struct {
	Path    string
	RunID   string
	Err     error
	Elapsed time.Duration

	Samples      int
	Epochs       int
	SleepMinutes float64
	Window       *sleep.Window
	NonwearMin   float64
}

// Processor fans recordings out to workers. Store is optional; without it
// results are only returned, not persisted.
type Processor struct {
	Backend backend.Backend
	Config  *config.Config
	Store   *store.Store
	Clock   timeutil.Clock
}

// New builds a processor with the real clock.
func New(b backend.Backend, cfg *config.Config, st *store.Store) *Processor {
	return &Processor{Backend: b, Config: cfg, Store: st, Clock: timeutil.RealClock{}}
}

// Process runs every path through the pipeline using the configured worker
// count. Per-file failures land in the matching FileResult; Process itself
// only fails when the context is cancelled before all files finish. Results
// come back ordered by path.
func (p *Processor) Process(ctx context.Context, paths []string) ([]FileResult, error) {
	workers := p.Config.GetWorkers()
	if workers > len(paths) {
		workers = len(paths)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string)
	results := make(chan FileResult)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				results <- p.processFile(ctx, path)
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, path := range paths {
			select {
			case jobs <- path:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]FileResult, 0, len(paths))
	for r := range results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })

	if err := ctx.Err(); err != nil && len(out) < len(paths) {
		return out, fmt.Errorf("batch interrupted after %d of %d files: %w", len(out), len(paths), err)
	}
	return out, nil
}

// processFile runs one recording through parse, calibration, imputation,
// epoching, sleep scoring, window detection and nonwear detection.
func (p *Processor) processFile(ctx context.Context, path string) FileResult {
	started := p.Clock.Now()
	res := FileResult{Path: path}
	fail := func(err error) FileResult {
		res.Err = err
		res.Elapsed = p.Clock.Since(started)
		monitoring.Logf("batch: %s failed: %v", path, err)
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	raw, err := p.Backend.ReadRecording(path, device.Options{IncludeAux: p.Config.GetIncludeAux()})
	if err != nil {
		return fail(err)
	}
	res.Samples = raw.Len()

	var calibration accel.CalibrationResult
	if p.Config.GetCalibrate() {
		calibration, err = p.Backend.Calibrate(raw, accel.DefaultCalibrationParams())
		if err != nil {
			return fail(err)
		}
		if calibration.Success {
			raw = raw.Calibrated(calibration)
		}
	}

	if p.Config.GetImpute() {
		imp, err := p.Backend.Impute(raw, p.Config.GetGapToleranceSeconds())
		if err != nil {
			return fail(err)
		}
		if imp.GapCount > 0 {
			raw = imp.Filled(raw)
		}
	}

	epochs, err := p.Backend.Epochs(raw, p.Config.GetEpochSeconds())
	if err != nil {
		return fail(err)
	}
	res.Epochs = epochs.Len()

	scores, err := p.Backend.ScoreSleep(p.Config.GetSleepAlgorithm(), epochs.Magnitude)
	if err != nil {
		return fail(err)
	}
	res.SleepMinutes = scores.SleepMinutes(p.Config.GetEpochSeconds())

	// Window and nonwear detection are best-effort: short or restless
	// recordings legitimately yield nothing.
	if w, err := p.Backend.SleepWindow(raw, sleep.DefaultWindowParams()); err == nil {
		res.Window = w
	} else {
		monitoring.Debugf("batch: %s: no sleep window: %v", path, err)
	}
	nw, nwErr := p.Backend.Nonwear(p.Config.GetNonwearAlgorithm(), raw, epochs)
	if nwErr == nil {
		res.NonwearMin = nw.NonwearMinutes()
	} else {
		monitoring.Debugf("batch: %s: nonwear skipped: %v", path, nwErr)
	}

	if p.Store != nil {
		runID := store.NewRunID()
		run := store.Run{
			ID:           runID,
			SourcePath:   path,
			SampleRate:   raw.SampleRate,
			Backend:      p.Backend.Name(),
			EpochSeconds: p.Config.GetEpochSeconds(),
			Samples:      raw.Len(),
		}
		if raw.Device != nil {
			run.Serial = raw.Device.Serial
		}
		if err := p.Store.InsertRun(run); err != nil {
			return fail(err)
		}
		if p.Config.GetCalibrate() {
			if err := p.Store.SaveCalibration(runID, calibration); err != nil {
				return fail(err)
			}
		}
		if err := p.Store.SaveEpochs(runID, epochs); err != nil {
			return fail(err)
		}
		if res.Window != nil {
			if err := p.Store.SaveSleepWindow(runID, res.Window); err != nil {
				return fail(err)
			}
		}
		if nwErr == nil {
			if err := p.Store.SaveNonwearRanges(runID, nw); err != nil {
				return fail(err)
			}
		}
		res.RunID = runID
	}

	res.Elapsed = p.Clock.Since(started)
	monitoring.Debugf("batch: %s: %d samples, %d epochs in %v", path, res.Samples, res.Epochs, res.Elapsed)
	return res
}
