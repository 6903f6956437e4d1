// Package benchmark runs pipeline scenarios over a frame corpus and records
// throughput, per-stage timings and memory usage.
package benchmark

import (
	"time"

	"github.com/nvr-ai/go-pixel/profiler"
)

// PerformanceMetrics captures detailed performance data
type PerformanceMetrics struct {
	Scenario        Scenario      `json:"scenario"`
	Timestamp       time.Time     `json:"timestamp"`
	TotalDuration   time.Duration `json:"total_duration"`
	ResizeDuration  time.Duration `json:"resize_duration"`
	FramesPerSecond float64       `json:"frames_per_second"`
	MemoryStats     MemoryMetrics `json:"memory_stats"`
	CPUStats        CPUMetrics    `json:"cpu_stats"`
	// Stages holds per-stage timings in milliseconds keyed by stage name.
	Stages map[string]profiler.Summary `json:"stages"`
	// EdgeFrames counts frames that produced an edge mask.
	EdgeFrames int `json:"edge_frames"`
	// PaletteRefreshes counts palette rebuilds.
	PaletteRefreshes int `json:"palette_refreshes"`
	// SkipRate is the share of frames that skipped at least one feature.
	SkipRate float64 `json:"skip_rate"`
}

// MemoryMetrics captures memory usage statistics
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
	HeapSysBytes    uint64 `json:"heap_sys_bytes"`
}

// CPUMetrics captures CPU usage statistics
type CPUMetrics struct {
	NumCPU  int `json:"num_cpu"`
	Workers int `json:"workers"`
}
