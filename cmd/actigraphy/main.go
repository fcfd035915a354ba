// Command actigraphy processes accelerometer recordings: it parses device
// containers, calibrates and epochs the signal, scores sleep and nonwear,
// and optionally persists results and writes an HTML report.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/somnolab/actigraphy/internal/backend"
	"github.com/somnolab/actigraphy/internal/batch"
	"github.com/somnolab/actigraphy/internal/config"
	"github.com/somnolab/actigraphy/internal/device"
	"github.com/somnolab/actigraphy/internal/monitoring"
	"github.com/somnolab/actigraphy/internal/report"
	"github.com/somnolab/actigraphy/internal/store"
)

var (
	input         = flag.String("input", "", "recording file or directory of recordings")
	configPath    = flag.String("config", "", "JSON config file (optional)")
	dbPath        = flag.String("db", "", "results database path (optional)")
	migrationsDir = flag.String("migrations", "migrations", "schema migrations directory")
	reportDir     = flag.String("report", "", "directory for HTML reports (optional)")
	backendID     = flag.String("backend", "", "backend name (default: best available)")
	workers       = flag.Int("workers", 0, "worker count override")
	metadataOnly  = flag.Bool("metadata-only", false, "print device metadata and exit")
	verbose       = flag.Bool("verbose", false, "enable debug logging")
	listBackends  = flag.Bool("list-backends", false, "list registered backends and exit")
)

func main() {
	flag.Parse()
	monitoring.Verbose = *verbose

	if *listBackends {
		for _, name := range backend.DefaultRegistry().Names() {
			fmt.Println(name)
		}
		return
	}
	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(); err != nil {
		log.Fatalf("actigraphy: %v", err)
	}
}

func run() error {
	paths, err := collectInputs(*input)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no recordings under %s", *input)
	}

	if *metadataOnly {
		return printMetadata(paths)
	}

	cfg := config.Empty()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			return err
		}
	}
	if *workers > 0 {
		cfg.Workers = workers
	}
	if *backendID != "" {
		cfg.Backend = backendID
	}

	b, err := backend.DefaultRegistry().Create(cfg.GetBackend())
	if err != nil {
		return err
	}
	monitoring.Logf("using backend %s (%v)", b.Name(), b.Capabilities())

	var st *store.Store
	if *dbPath != "" {
		st, err = store.Open(*dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.MigrateUp(*migrationsDir); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proc := batch.New(b, cfg, st)
	results, err := proc.Process(ctx, paths)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", r.Path, r.Err)
			continue
		}
		fmt.Printf("%s: %d samples, %d epochs, %.0f min sleep", r.Path, r.Samples, r.Epochs, r.SleepMinutes)
		if r.Window != nil {
			fmt.Printf(", window %.0f min (eff %.1f%%)", r.Window.DurationMinutes, r.Window.Efficiency)
		}
		fmt.Println()

		if *reportDir != "" {
			if err := writeReport(b, cfg, r); err != nil {
				monitoring.Logf("report for %s failed: %v", r.Path, err)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d recordings failed", failed, len(results))
	}
	return nil
}

// collectInputs expands a file or directory argument into recording paths.
func collectInputs(root string) ([]string, error) {
	st, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return []string{root}, nil
	}
	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(path), ".gt3x") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func printMetadata(paths []string) error {
	for _, path := range paths {
		info, err := device.ReadMetadata(path)
		if err != nil {
			return err
		}
		fmt.Printf("%s: serial=%s rate=%gHz start=%s scale=%g\n",
			path, info.Serial, info.SampleRate, info.StartTime.Format("2006-01-02 15:04:05"), info.AccelScale)
	}
	return nil
}

// writeReport re-derives the epoch and score series for one processed file
// and renders its HTML page.
func writeReport(b backend.Backend, cfg *config.Config, r batch.FileResult) error {
	raw, err := b.ReadRecording(r.Path, device.Options{IncludeAux: cfg.GetIncludeAux()})
	if err != nil {
		return err
	}
	epochs, err := b.Epochs(raw, cfg.GetEpochSeconds())
	if err != nil {
		return err
	}
	scores, err := b.ScoreSleep(cfg.GetSleepAlgorithm(), epochs.Magnitude)
	if err != nil {
		return err
	}
	data := &report.Data{
		Title:  filepath.Base(r.Path),
		Epochs: epochs,
		Scores: scores,
		Window: r.Window,
	}
	if nw, err := b.Nonwear(cfg.GetNonwearAlgorithm(), raw, epochs); err == nil {
		data.Nonwear = nw
	}
	base := strings.TrimSuffix(filepath.Base(r.Path), filepath.Ext(r.Path))

	// A static ENMO plot in mg accompanies the interactive page.
	if enmo, err := b.ENMO(raw); err == nil {
		if mg, err := enmo.InUnits("mg"); err == nil {
			if err := report.SaveMetricPNG(filepath.Join(*reportDir, base+"_enmo.png"), mg); err != nil {
				monitoring.Debugf("enmo plot for %s failed: %v", r.Path, err)
			}
		}
	}
	return report.WriteHTMLFile(filepath.Join(*reportDir, base+".html"), data)
}
