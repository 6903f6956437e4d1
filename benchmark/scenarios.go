package benchmark

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-pixel/config"
	"github.com/nvr-ai/go-pixel/images"
	"github.com/nvr-ai/go-pixel/images/kernels"
)

// Scenario defines one pipeline configuration to measure.
type Scenario struct {
	Name       string            `json:"name" yaml:"name"`
	Resolution images.Resolution `json:"resolution" yaml:"resolution"`
	// Workers is the pool size, 0 uses every CPU.
	Workers    int              `json:"workers" yaml:"workers"`
	Blur       kernels.BlurKind `json:"blur" yaml:"blur"`
	Edges      bool             `json:"edges" yaml:"edges"`
	Palette    bool             `json:"palette" yaml:"palette"`
	Denoise    bool             `json:"denoise" yaml:"denoise"`
	Pixelate   int              `json:"pixelate" yaml:"pixelate"`
	Iterations int              `json:"iterations" yaml:"iterations"`
	WarmupRuns int              `json:"warmup_runs" yaml:"warmup_runs"`
}

// Config returns a copy of base with the scenario's geometry and features.
func (s Scenario) Config(base *config.Config) *config.Config {
	cfg := *base
	cfg.Geometry = config.Geometry{Width: s.Resolution.Width, Height: s.Resolution.Height}
	cfg.Workers = s.Workers
	cfg.Blur.Kind = s.Blur
	cfg.Edges.Enabled = s.Edges
	cfg.Palette.Enabled = s.Palette
	cfg.Effects.Denoise = s.Denoise
	cfg.Effects.Pixelate = s.Pixelate
	return &cfg
}

// Features lists the enabled features, e.g. "edges+palette".
func (s Scenario) Features() string {
	var f []string
	if s.Denoise {
		f = append(f, "denoise")
	}
	if s.Edges {
		f = append(f, "edges")
	}
	if s.Palette {
		f = append(f, "palette")
	}
	if s.Pixelate > 1 {
		f = append(f, "pixelate")
	}
	if len(f) == 0 {
		return "none"
	}
	return strings.Join(f, "+")
}

// ScenarioBuilder helps build test scenarios with fluent API
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder starts from 720p Gaussian edge detection with 100
// iterations after 10 warmup runs.
func NewScenarioBuilder(name string) *ScenarioBuilder {
	res, _ := images.LookupResolution(string(images.ResolutionTypeHD720p))
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:       name,
			Resolution: res,
			Blur:       kernels.BlurGaussian,
			Edges:      true,
			Iterations: 100,
			WarmupRuns: 10,
		},
	}
}

// WithResolution sets the frame geometry
func (sb *ScenarioBuilder) WithResolution(res images.Resolution) *ScenarioBuilder {
	sb.scenario.Resolution = res
	return sb
}

// WithSize sets an unnamed frame geometry
func (sb *ScenarioBuilder) WithSize(width, height int) *ScenarioBuilder {
	sb.scenario.Resolution = images.Resolution{
		Name:   images.ResolutionType(fmt.Sprintf("%dx%d", width, height)),
		Width:  width,
		Height: height,
	}
	return sb
}

// WithWorkers sets the worker pool size
func (sb *ScenarioBuilder) WithWorkers(workers int) *ScenarioBuilder {
	sb.scenario.Workers = workers
	return sb
}

// WithBlur sets the edge detector pre-blur
func (sb *ScenarioBuilder) WithBlur(kind kernels.BlurKind) *ScenarioBuilder {
	sb.scenario.Blur = kind
	return sb
}

// WithEdges toggles edge detection
func (sb *ScenarioBuilder) WithEdges(on bool) *ScenarioBuilder {
	sb.scenario.Edges = on
	return sb
}

// WithPalette toggles palette quantization
func (sb *ScenarioBuilder) WithPalette(on bool) *ScenarioBuilder {
	sb.scenario.Palette = on
	return sb
}

// WithDenoise toggles the color bilateral filter
func (sb *ScenarioBuilder) WithDenoise(on bool) *ScenarioBuilder {
	sb.scenario.Denoise = on
	return sb
}

// WithPixelate sets the pixelation block size
func (sb *ScenarioBuilder) WithPixelate(size int) *ScenarioBuilder {
	sb.scenario.Pixelate = size
	return sb
}

// WithIterations sets the number of test iterations
func (sb *ScenarioBuilder) WithIterations(iterations int) *ScenarioBuilder {
	sb.scenario.Iterations = iterations
	return sb
}

// WithWarmupRuns sets the number of warmup runs
func (sb *ScenarioBuilder) WithWarmupRuns(warmups int) *ScenarioBuilder {
	sb.scenario.WarmupRuns = warmups
	return sb
}

// Build returns the configured test scenario
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}

// ScenarioSet represents a collection of related test scenarios
type ScenarioSet struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Scenarios   []Scenario `json:"scenarios" yaml:"scenarios"`
}

// PredefinedScenarios contains common benchmark scenario sets
type PredefinedScenarios struct{}

// GetQuickScenarios returns a smaller set for quick testing
func (ps *PredefinedScenarios) GetQuickScenarios() *ScenarioSet {
	scenarios := make([]Scenario, 0)

	for _, name := range []images.ResolutionType{images.ResolutionTypeVGA, images.ResolutionTypeHD720p} {
		res, _ := images.LookupResolution(string(name))
		scenarios = append(scenarios, NewScenarioBuilder(fmt.Sprintf("quick_%s", slug(res.Name))).
			WithResolution(res).
			WithIterations(50).
			WithWarmupRuns(5).
			Build())
	}

	return &ScenarioSet{
		Name:        "Quick Performance Test",
		Description: "Edge detection at VGA and 720p",
		Scenarios:   scenarios,
	}
}

// GetResolutionComparisonScenarios runs edge detection at every preset
// geometry.
func (ps *PredefinedScenarios) GetResolutionComparisonScenarios() *ScenarioSet {
	scenarios := make([]Scenario, 0)

	for _, res := range images.Resolutions() {
		scenarios = append(scenarios, NewScenarioBuilder(fmt.Sprintf("resolution_%s", slug(res.Name))).
			WithResolution(res).
			Build())
	}

	return &ScenarioSet{
		Name:        "Resolution Comparison",
		Description: "Compares edge detection cost across frame geometries",
		Scenarios:   scenarios,
	}
}

// GetFilterComparisonScenarios compares the pre-blur filters at one
// geometry.
func (ps *PredefinedScenarios) GetFilterComparisonScenarios(res images.Resolution) *ScenarioSet {
	scenarios := make([]Scenario, 0)

	kinds := []kernels.BlurKind{kernels.BlurNone, kernels.BlurGaussian, kernels.BlurBox, kernels.BlurMedian, kernels.BlurBilateral}
	for _, kind := range kinds {
		scenarios = append(scenarios, NewScenarioBuilder(fmt.Sprintf("filter_%s_%s", kind, slug(res.Name))).
			WithResolution(res).
			WithBlur(kind).
			Build())
	}

	return &ScenarioSet{
		Name:        fmt.Sprintf("Filter Comparison @ %s", res.Name),
		Description: fmt.Sprintf("Compares edge detector pre-blur filters at %dx%d", res.Width, res.Height),
		Scenarios:   scenarios,
	}
}

// GetFeatureComparisonScenarios measures each pipeline feature alone and all
// of them together.
func (ps *PredefinedScenarios) GetFeatureComparisonScenarios(res images.Resolution) *ScenarioSet {
	base := func(name string) *ScenarioBuilder {
		return NewScenarioBuilder(fmt.Sprintf("feature_%s_%s", name, slug(res.Name))).WithResolution(res).WithEdges(false)
	}
	scenarios := []Scenario{
		base("edges").WithEdges(true).Build(),
		base("palette").WithPalette(true).Build(),
		base("denoise").WithDenoise(true).Build(),
		base("pixelate").WithPixelate(8).Build(),
		base("all").WithEdges(true).WithPalette(true).WithDenoise(true).WithPixelate(8).Build(),
	}

	return &ScenarioSet{
		Name:        fmt.Sprintf("Feature Comparison @ %s", res.Name),
		Description: "Compares the cost of each pipeline feature",
		Scenarios:   scenarios,
	}
}

// GetWorkerScalingScenarios doubles the worker count from 1 up to
// maxWorkers.
func (ps *PredefinedScenarios) GetWorkerScalingScenarios(res images.Resolution, maxWorkers int) *ScenarioSet {
	scenarios := make([]Scenario, 0)

	for w := 1; w <= max(maxWorkers, 1); w *= 2 {
		scenarios = append(scenarios, NewScenarioBuilder(fmt.Sprintf("workers_%d_%s", w, slug(res.Name))).
			WithResolution(res).
			WithWorkers(w).
			Build())
	}

	return &ScenarioSet{
		Name:        fmt.Sprintf("Worker Scaling @ %s", res.Name),
		Description: "Measures row fan-out speedup",
		Scenarios:   scenarios,
	}
}

func slug(name images.ResolutionType) string {
	return strings.NewReplacer(" ", "-", "(", "", ")", "", ":", "-", "+", "plus").Replace(strings.ToLower(string(name)))
}

// SaveScenarioSet saves a scenario set to a YAML file
func SaveScenarioSet(scenarioSet *ScenarioSet, filename string) error {
	data, err := yaml.Marshal(scenarioSet)
	if err != nil {
		return errors.Wrap(err, "marshal scenario set")
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrap(err, "write scenario file")
	}

	return nil
}

// LoadScenarioSet loads a scenario set from a YAML file
func LoadScenarioSet(filename string) (*ScenarioSet, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "read scenario file")
	}

	var scenarioSet ScenarioSet
	if err := yaml.Unmarshal(data, &scenarioSet); err != nil {
		return nil, errors.Wrap(err, "unmarshal scenario set")
	}

	return &scenarioSet, nil
}
