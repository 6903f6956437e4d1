package benchmark

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-pixel/colors"
	"github.com/nvr-ai/go-pixel/config"
	"github.com/nvr-ai/go-pixel/images"
	"github.com/nvr-ai/go-pixel/pipeline"
	"github.com/nvr-ai/go-pixel/profiler"
	"github.com/nvr-ai/go-pixel/source"
)

// ErrNoCorpus is returned when a scenario runs before any frames were loaded.
var ErrNoCorpus = errors.New("benchmark: empty corpus")

// Suite manages and executes benchmark scenarios
type Suite struct {
	base      *config.Config
	outputDir string
	logger    *zap.Logger

	mu        sync.RWMutex
	corpus    []image.Image
	scenarios []Scenario
	results   []PerformanceMetrics
}

// NewSuite creates a new benchmark suite.
//
// Arguments:
//   - base: The configuration every scenario starts from, nil uses defaults.
//   - outputDir: Where SaveResults writes.
//   - logger: Receives per-scenario progress, nil discards it.
//
// Returns:
//   - *Suite: The benchmark suite.
func NewSuite(base *config.Config, outputDir string, logger *zap.Logger) *Suite {
	if base == nil {
		base = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Suite{
		base:      base,
		outputDir: outputDir,
		logger:    logger.Named("benchmark"),
		scenarios: make([]Scenario, 0),
		results:   make([]PerformanceMetrics, 0),
	}
}

// AddScenario adds a test scenario to the benchmark suite
func (bs *Suite) AddScenario(scenario Scenario) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.scenarios = append(bs.scenarios, scenario)
}

// AddScenarioSet adds every scenario of set.
func (bs *Suite) AddScenarioSet(set *ScenarioSet) {
	for _, s := range set.Scenarios {
		bs.AddScenario(s)
	}
}

// LoadCorpus decodes the frame-N images of dir. Images are scaled to each
// scenario's geometry before it runs.
func (bs *Suite) LoadCorpus(dir string) error {
	files, err := source.ListFrames(dir)
	if err != nil {
		return err
	}

	corpus := make([]image.Image, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file.Path)
		if err != nil {
			return errors.Wrapf(err, "read %s", file.Path)
		}
		img, err := images.Decode(data, file.Format)
		if err != nil {
			return errors.Wrapf(err, "frame %d", file.Frame)
		}
		corpus = append(corpus, img)
	}
	if len(corpus) == 0 {
		return errors.Wrapf(ErrNoCorpus, "no frames in %s", dir)
	}

	bs.mu.Lock()
	bs.corpus = corpus
	bs.mu.Unlock()
	return nil
}

// SyntheticCorpus replaces the corpus with n generated frames: a diagonal
// color gradient with a bright square that moves from frame to frame.
func (bs *Suite) SyntheticCorpus(n, width, height int) {
	corpus := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		f := images.NewFrame(width, height)
		side := max(min(width, height)/4, 1)
		x0 := (i * side / 2) % max(width-side, 1)
		y0 := (i * side / 3) % max(height-side, 1)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := colors.RGBA{
					R: uint8(x * 255 / max(width-1, 1)),
					G: uint8(y * 255 / max(height-1, 1)),
					B: uint8((x + y + i*7) % 256),
					A: 255,
				}
				if x >= x0 && x < x0+side && y >= y0 && y < y0+side {
					c = colors.RGBA{R: 250, G: 250, B: 240, A: 255}
				}
				f.Set(x, y, c)
			}
		}
		corpus = append(corpus, f.Image())
	}

	bs.mu.Lock()
	bs.corpus = corpus
	bs.mu.Unlock()
}

// RunScenario executes a single benchmark scenario
func (bs *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	if scenario.Iterations < 1 {
		return nil, errors.Errorf("scenario %s: iterations %d must be >= 1", scenario.Name, scenario.Iterations)
	}
	bs.mu.RLock()
	corpus := bs.corpus
	bs.mu.RUnlock()
	if len(corpus) == 0 {
		return nil, ErrNoCorpus
	}

	prof := profiler.NewRuntimeProfiler(profiler.ProfilingOptions{MaxSamples: scenario.Iterations}, nil)
	tracker := &gatedTracker{prof: prof}
	pipe, err := pipeline.New(scenario.Config(bs.base), nil, pipeline.WithTracker(tracker))
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %s", scenario.Name)
	}
	defer pipe.Close()

	metrics := &PerformanceMetrics{
		Scenario:  scenario,
		Timestamp: time.Now(),
	}

	resizeStart := time.Now()
	frames := make([]*images.Frame, len(corpus))
	for i, img := range corpus {
		frames[i] = pipe.Size().NewFrame()
		if err := images.ResizeInto(img, frames[i]); err != nil {
			return nil, err
		}
	}
	metrics.ResizeDuration = time.Since(resizeStart)
	work := pipe.Size().NewFrame()

	// Warmup runs
	for i := 0; i < scenario.WarmupRuns; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_ = work.CopyFrom(frames[i%len(frames)])
		_, _ = pipe.Process(work)
	}

	// Capture initial memory stats
	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	tracker.on.Store(true)
	startTime := time.Now()
	skipped := 0

	// Run benchmark iterations
	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_ = work.CopyFrom(frames[i%len(frames)])

		res, err := pipe.Process(work)
		if err != nil {
			return nil, errors.Wrapf(err, "scenario %s iteration %d", scenario.Name, i)
		}
		if len(res.Skipped) > 0 {
			skipped++
		}
		if res.Edges {
			metrics.EdgeFrames++
		}
		if res.PaletteRefreshed {
			metrics.PaletteRefreshes++
		}
	}

	totalDuration := time.Since(startTime)
	tracker.on.Store(false)

	// Capture final memory stats
	var endMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&endMem)

	// Calculate metrics
	metrics.TotalDuration = totalDuration
	metrics.FramesPerSecond = float64(scenario.Iterations) / totalDuration.Seconds()
	metrics.SkipRate = float64(skipped) / float64(scenario.Iterations)
	metrics.Stages = prof.Snapshot().Operations

	metrics.MemoryStats = MemoryMetrics{
		AllocBytes:      endMem.Alloc,
		TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
		SysBytes:        endMem.Sys,
		NumGC:           endMem.NumGC - startMem.NumGC,
		HeapAllocBytes:  endMem.HeapAlloc,
		HeapSysBytes:    endMem.HeapSys,
	}

	metrics.CPUStats = CPUMetrics{
		NumCPU:  runtime.NumCPU(),
		Workers: scenario.Workers,
	}

	return metrics, nil
}

// RunAllScenarios executes all configured benchmark scenarios and saves the
// results. A failed scenario is logged and reported after the others ran.
func (bs *Suite) RunAllScenarios(ctx context.Context) error {
	bs.mu.Lock()
	scenarios := make([]Scenario, len(bs.scenarios))
	copy(scenarios, bs.scenarios)
	bs.mu.Unlock()

	var errs error
	for _, scenario := range scenarios {
		metrics, err := bs.RunScenario(ctx, scenario)
		if err != nil {
			if ctx.Err() != nil {
				return multierr.Append(errs, err)
			}
			bs.logger.Warn("scenario failed", zap.String("scenario", scenario.Name), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}

		bs.mu.Lock()
		bs.results = append(bs.results, *metrics)
		bs.mu.Unlock()

		bs.logger.Info("scenario completed",
			zap.String("scenario", scenario.Name),
			zap.String("features", scenario.Features()),
			zap.Float64("fps", metrics.FramesPerSecond),
			zap.Duration("total", metrics.TotalDuration),
		)
	}

	if _, _, err := bs.SaveResults(); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

// SaveResults writes the detailed results as JSON and a summary as CSV into
// the output directory and returns both paths.
func (bs *Suite) SaveResults() (string, string, error) {
	results := bs.GetResults()

	// Ensure output directory exists
	if err := os.MkdirAll(bs.outputDir, 0o755); err != nil {
		return "", "", errors.Wrap(err, "create output directory")
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	resultsFile := filepath.Join(bs.outputDir, fmt.Sprintf("benchmark_results_%s.json", timestamp))

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", "", errors.Wrap(err, "marshal results")
	}
	if err := os.WriteFile(resultsFile, data, 0o644); err != nil {
		return "", "", errors.Wrap(err, "write results file")
	}

	summaryFile := filepath.Join(bs.outputDir, fmt.Sprintf("benchmark_summary_%s.csv", timestamp))
	if err := saveSummaryCSV(summaryFile, results); err != nil {
		return "", "", errors.Wrap(err, "save summary CSV")
	}

	bs.logger.Info("results saved", zap.String("results", resultsFile), zap.String("summary", summaryFile))
	return resultsFile, summaryFile, nil
}

func saveSummaryCSV(filename string, results []PerformanceMetrics) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, file.Close()) }()

	w := csv.NewWriter(file)
	rows := [][]string{{"Scenario", "Resolution", "Features", "Blur", "Workers", "FPS", "Total_Duration_ms", "Frame_P95_ms", "Alloc_MB", "Skip_Rate"}}
	for _, r := range results {
		rows = append(rows, []string{
			r.Scenario.Name,
			fmt.Sprintf("%dx%d", r.Scenario.Resolution.Width, r.Scenario.Resolution.Height),
			r.Scenario.Features(),
			r.Scenario.Blur.String(),
			strconv.Itoa(r.Scenario.Workers),
			strconv.FormatFloat(r.FramesPerSecond, 'f', 2, 64),
			strconv.FormatFloat(float64(r.TotalDuration.Nanoseconds())/1e6, 'f', 2, 64),
			strconv.FormatFloat(r.Stages[pipeline.StageFrame].P95, 'f', 3, 64),
			strconv.FormatFloat(float64(r.MemoryStats.TotalAllocBytes)/(1024*1024), 'f', 2, 64),
			strconv.FormatFloat(r.SkipRate, 'f', 4, 64),
		})
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return nil
}

// GetResults returns all benchmark results
func (bs *Suite) GetResults() []PerformanceMetrics {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	results := make([]PerformanceMetrics, len(bs.results))
	copy(results, bs.results)
	return results
}

// gatedTracker drops timings while warmup runs.
type gatedTracker struct {
	prof *profiler.RuntimeProfiler
	on   atomic.Bool
}

func (t *gatedTracker) StartOperation(name string) func() {
	if !t.on.Load() {
		return func() {}
	}
	return t.prof.StartOperation(name)
}
