// Command benchmark measures pipeline throughput over predefined or
// file-based scenario sets.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-pixel/benchmark"
	"github.com/nvr-ai/go-pixel/config"
	"github.com/nvr-ai/go-pixel/images"
	"github.com/nvr-ai/go-pixel/logging"
)

func main() {
	app := &cli.App{
		Name:  "benchmark",
		Usage: "measure pixel pipeline throughput",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "base YAML configuration every scenario starts from"},
			&cli.StringFlag{Name: "scenarios", Usage: "YAML scenario set to run instead of the predefined sets"},
			&cli.StringFlag{Name: "output", Value: "./benchmark_results", Usage: "output directory for results"},
			&cli.StringFlag{Name: "images", Usage: "directory of frame-N images, synthetic frames when empty"},
			&cli.IntFlag{Name: "synthetic-frames", Value: 8, Usage: "number of generated frames without --images"},
			&cli.StringFlag{Name: "geometry", Value: string(images.ResolutionTypeHD720p), Usage: "preset for filter, feature and worker sets"},
			&cli.BoolFlag{Name: "quick", Usage: "run quick benchmark scenarios"},
			&cli.BoolFlag{Name: "resolutions", Usage: "compare frame geometries"},
			&cli.BoolFlag{Name: "filters", Usage: "compare pre-blur filters"},
			&cli.BoolFlag{Name: "features", Usage: "compare pipeline features"},
			&cli.BoolFlag{Name: "workers", Usage: "measure worker scaling up to the CPU count"},
			&cli.StringFlag{Name: "write-scenarios", Usage: "save the selected scenarios to this file and exit"},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Minute, Usage: "benchmark timeout duration"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	base := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if base, err = config.Load(path); err != nil {
			return err
		}
	}
	logger, err := logging.New(base.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	set, err := selectScenarios(c)
	if err != nil {
		return err
	}
	if path := c.String("write-scenarios"); path != "" {
		if err := benchmark.SaveScenarioSet(set, path); err != nil {
			return err
		}
		logger.Info("scenarios written", zap.String("path", path), zap.Int("count", len(set.Scenarios)))
		return nil
	}

	suite := benchmark.NewSuite(base, c.String("output"), logger)
	suite.AddScenarioSet(set)
	if dir := c.String("images"); dir != "" {
		if err := suite.LoadCorpus(dir); err != nil {
			return err
		}
	} else {
		res, err := images.LookupResolution(c.String("geometry"))
		if err != nil {
			return err
		}
		suite.SyntheticCorpus(c.Int("synthetic-frames"), res.Width, res.Height)
	}

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	logger.Info("starting benchmark", zap.String("set", set.Name), zap.Int("scenarios", len(set.Scenarios)))
	start := time.Now()
	runErr := suite.RunAllScenarios(ctx)
	logger.Info("benchmark completed", zap.Duration("duration", time.Since(start)))

	printSummary(suite.GetResults(), c.String("output"))
	return runErr
}

func selectScenarios(c *cli.Context) (*benchmark.ScenarioSet, error) {
	if path := c.String("scenarios"); path != "" {
		return benchmark.LoadScenarioSet(path)
	}

	res, err := images.LookupResolution(c.String("geometry"))
	if err != nil {
		return nil, err
	}
	predefined := &benchmark.PredefinedScenarios{}
	set := &benchmark.ScenarioSet{Name: "Selected Scenarios"}
	add := func(s *benchmark.ScenarioSet) {
		set.Scenarios = append(set.Scenarios, s.Scenarios...)
	}

	if c.Bool("quick") {
		add(predefined.GetQuickScenarios())
	}
	if c.Bool("resolutions") {
		add(predefined.GetResolutionComparisonScenarios())
	}
	if c.Bool("filters") {
		add(predefined.GetFilterComparisonScenarios(res))
	}
	if c.Bool("features") {
		add(predefined.GetFeatureComparisonScenarios(res))
	}
	if c.Bool("workers") {
		add(predefined.GetWorkerScalingScenarios(res, runtime.NumCPU()))
	}

	// If no specific scenarios requested, use quick by default
	if len(set.Scenarios) == 0 {
		return predefined.GetQuickScenarios(), nil
	}
	return set, nil
}

func printSummary(results []benchmark.PerformanceMetrics, outputDir string) {
	fmt.Printf("\n=== BENCHMARK RESULTS SUMMARY ===\n")
	fmt.Printf("Total scenarios: %d\n", len(results))
	fmt.Printf("Results saved to: %s\n", outputDir)

	var bestFPS float64
	var bestScenario string
	for _, result := range results {
		if result.FramesPerSecond > bestFPS {
			bestFPS = result.FramesPerSecond
			bestScenario = result.Scenario.Name
		}
		fmt.Printf("  %s [%s]: %.2f FPS (%.2f MB allocated)\n",
			result.Scenario.Name,
			result.Scenario.Features(),
			result.FramesPerSecond,
			float64(result.MemoryStats.TotalAllocBytes)/(1024*1024))
	}

	if bestScenario != "" {
		fmt.Printf("\nBest performing scenario: %s (%.2f FPS)\n", bestScenario, bestFPS)
	}
}
