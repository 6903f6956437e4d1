// Package profiler records per-stage timings and custom metrics of the frame
// pipeline and reports them periodically through zap.
package profiler

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
)

// MetricsCollector defines the interface for collecting custom metrics.
type MetricsCollector interface {
	CollectMetrics() map[string]float64
}

// RuntimeProfiler tracks operation timings, custom metrics and the frame rate.
//
// All methods are safe for concurrent use. StartOperation satisfies the
// stage tracker interface of the edge detector and the pipeline.
type RuntimeProfiler struct {
	reportInterval time.Duration
	sampleInterval time.Duration
	maxSamples     int
	logger         *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	startTime time.Time
	running   bool

	memStats    runtime.MemStats
	lastGCCount uint32

	customMetrics  map[string]*series
	operationTimes map[string]*series
	collectors     []MetricsCollector

	frames     uint64
	lastFrames uint64
	lastReport time.Time
	lastFPS    float64
}

// series keeps a bounded window of samples.
type series struct {
	values []float64
	count  int64
}

func (s *series) add(v float64, max int) {
	s.values = append(s.values, v)
	if len(s.values) > max {
		s.values = s.values[len(s.values)-max:]
	}
	s.count++
}

// ProfilingOptions configures the runtime profiler.
type ProfilingOptions struct {
	// ReportInterval specifies how often to emit status reports (default: 2s).
	ReportInterval time.Duration
	// SampleInterval specifies how often to collect samples (default: 100ms).
	SampleInterval time.Duration
	// MaxSamples specifies the window kept per metric (default: 600).
	MaxSamples int
}

// Summary describes the samples of one metric. Durations are in
// milliseconds.
type Summary struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
}

// Report is a point-in-time view of the profiler.
type Report struct {
	Uptime     time.Duration      `json:"uptime"`
	Goroutines int                `json:"goroutines"`
	HeapAlloc  uint64             `json:"heap_alloc"`
	NumGC      uint32             `json:"num_gc"`
	Frames     uint64             `json:"frames"`
	FPS        float64            `json:"fps"`
	Metrics    map[string]Summary `json:"metrics"`
	Operations map[string]Summary `json:"operations"`
}

// NewRuntimeProfiler creates a new runtime profiler with the specified options.
//
// Arguments:
//   - opts: Configuration options for the profiler.
//   - logger: Destination of the periodic reports, nil discards them.
//
// Returns:
//   - A configured RuntimeProfiler instance.
func NewRuntimeProfiler(opts ProfilingOptions, logger *zap.Logger) *RuntimeProfiler {
	if opts.ReportInterval <= 0 {
		opts.ReportInterval = 2 * time.Second
	}
	if opts.SampleInterval <= 0 {
		opts.SampleInterval = 100 * time.Millisecond
	}
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = 600
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	now := time.Now()
	return &RuntimeProfiler{
		reportInterval: opts.ReportInterval,
		sampleInterval: opts.SampleInterval,
		maxSamples:     opts.MaxSamples,
		logger:         logger.Named("profiler"),
		startTime:      now,
		lastReport:     now,
		customMetrics:  make(map[string]*series),
		operationTimes: make(map[string]*series),
	}
}

// Start begins sampling and periodic reporting until ctx is cancelled or Stop
// is called. Calling Start on a running profiler does nothing.
func (rp *RuntimeProfiler) Start(ctx context.Context) {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	if rp.running {
		return
	}
	ctx, rp.cancel = context.WithCancel(ctx)
	rp.running = true
	rp.startTime = time.Now()
	rp.lastReport = rp.startTime

	rp.wg.Add(2)
	go rp.loop(ctx, rp.sampleInterval, rp.sample)
	go rp.loop(ctx, rp.reportInterval, rp.emitStatusReport)
}

// Stop stops the background goroutines and waits for them.
func (rp *RuntimeProfiler) Stop() {
	rp.mu.Lock()
	if !rp.running {
		rp.mu.Unlock()
		return
	}
	rp.running = false
	cancel := rp.cancel
	rp.mu.Unlock()

	cancel()
	rp.wg.Wait()
}

func (rp *RuntimeProfiler) loop(ctx context.Context, every time.Duration, fn func()) {
	defer rp.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// AddMetricsCollector registers a collector polled on every sample tick.
func (rp *RuntimeProfiler) AddMetricsCollector(collector MetricsCollector) {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.collectors = append(rp.collectors, collector)
}

// RecordMetric records a custom metric value.
func (rp *RuntimeProfiler) RecordMetric(name string, value float64) {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.record(rp.customMetrics, name, value)
}

// StartOperation begins timing an operation.
//
// Arguments:
//   - name: The name of the operation to track.
//
// Returns:
//   - A function to call when the operation completes.
func (rp *RuntimeProfiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		rp.RecordDuration(name, time.Since(start))
	}
}

// RecordDuration records a completed operation.
func (rp *RuntimeProfiler) RecordDuration(name string, d time.Duration) {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.record(rp.operationTimes, name, float64(d)/float64(time.Millisecond))
}

// FrameDone counts one processed frame for the frame rate.
func (rp *RuntimeProfiler) FrameDone() {
	rp.mu.Lock()
	rp.frames++
	rp.mu.Unlock()
}

func (rp *RuntimeProfiler) record(m map[string]*series, name string, v float64) {
	s, ok := m[name]
	if !ok {
		s = &series{values: make([]float64, 0, 64)}
		m[name] = s
	}
	s.add(v, rp.maxSamples)
}

func (rp *RuntimeProfiler) sample() {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	runtime.ReadMemStats(&rp.memStats)
	rp.record(rp.customMetrics, "goroutines", float64(runtime.NumGoroutine()))
	for _, collector := range rp.collectors {
		for name, value := range collector.CollectMetrics() {
			rp.record(rp.customMetrics, name, value)
		}
	}
}

// emitStatusReport logs the frame rate since the previous report together
// with operation timings and memory usage.
func (rp *RuntimeProfiler) emitStatusReport() {
	rp.mu.Lock()
	now := time.Now()
	if elapsed := now.Sub(rp.lastReport).Seconds(); elapsed > 0 {
		rp.lastFPS = float64(rp.frames-rp.lastFrames) / elapsed
	}
	rp.lastFrames = rp.frames
	rp.lastReport = now
	newGC := rp.memStats.NumGC - rp.lastGCCount
	rp.lastGCCount = rp.memStats.NumGC
	rp.mu.Unlock()

	r := rp.Snapshot()
	fields := []zap.Field{
		zap.Duration("uptime", r.Uptime.Truncate(time.Millisecond)),
		zap.Float64("fps", r.FPS),
		zap.Uint64("frames", r.Frames),
		zap.Int("goroutines", r.Goroutines),
		zap.String("heap_alloc", formatBytes(r.HeapAlloc)),
		zap.Uint32("gc_new", newGC),
	}
	for _, name := range sortedKeys(r.Operations) {
		s := r.Operations[name]
		fields = append(fields, zap.String(name, fmt.Sprintf("avg=%.2fms p95=%.2fms max=%.2fms n=%d", s.Mean, s.P95, s.Max, s.Count)))
	}
	rp.logger.Info("status report", fields...)
}

// Snapshot returns the current statistics.
func (rp *RuntimeProfiler) Snapshot() Report {
	rp.mu.RLock()
	defer rp.mu.RUnlock()

	r := Report{
		Uptime:     time.Since(rp.startTime),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  rp.memStats.HeapAlloc,
		NumGC:      rp.memStats.NumGC,
		Frames:     rp.frames,
		FPS:        rp.lastFPS,
		Metrics:    make(map[string]Summary, len(rp.customMetrics)),
		Operations: make(map[string]Summary, len(rp.operationTimes)),
	}
	for name, s := range rp.customMetrics {
		r.Metrics[name] = summarize(s)
	}
	for name, s := range rp.operationTimes {
		r.Operations[name] = summarize(s)
	}
	return r
}

func summarize(s *series) Summary {
	data := stats.Float64Data(s.values)
	out := Summary{Count: s.count}
	if len(data) == 0 {
		return out
	}
	out.Mean, _ = stats.Mean(data)
	out.Min, _ = stats.Min(data)
	out.Max, _ = stats.Max(data)
	out.P50, _ = stats.Median(data)
	if p, err := stats.Percentile(data, 95); err == nil {
		out.P95 = p
	} else {
		out.P95 = out.Max
	}
	return out
}

func sortedKeys(m map[string]Summary) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatBytes formats byte counts in human-readable format.
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
