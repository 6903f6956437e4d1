package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nvr-ai/go-pixel/edges"
	"github.com/nvr-ai/go-pixel/images/kernels"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	res, err := cfg.Size()
	require.NoError(t, err)
	assert.Equal(t, 1280, res.Width)
	assert.Equal(t, 720, res.Height)

	assert.Equal(t, edges.DefaultConfig(), cfg.EdgeConfig())
	assert.Equal(t, 2*time.Second, cfg.Profile.ReportInterval)
	assert.False(t, cfg.Palette.Enabled)
}

func TestParse(t *testing.T) {
	doc := `
geometry: {width: 320, height: 240}
workers: 4
padding: 3
blur: {kind: median, median_window: 7}
edges: {high_ratio: 0.2, low_ratio: 0.05, thicken: directional, hysteresis: propagate, overlay: mask}
palette: {enabled: true, size: 16, auto_refresh: true, refresh_distance: 0.4, refresh_frames: 5, split_column: 100}
effects: {denoise: true, saturation: 1.5, pixelate: 4}
log: {level: debug, development: true}
profile: {report_interval: 500ms}
`
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)

	res, err := cfg.Size()
	require.NoError(t, err)
	assert.Equal(t, 320, res.Width)
	assert.Equal(t, 240, res.Height)

	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, kernels.BlurMedian, cfg.Blur.Kind)
	assert.Equal(t, 7, cfg.Blur.MedianWindow)
	assert.Equal(t, 2, cfg.Blur.BilateralRadius, "unset fields keep their defaults")

	ec := cfg.EdgeConfig()
	assert.Equal(t, edges.ThickenDirectional, ec.Thicken)
	assert.Equal(t, edges.Propagate, ec.Hysteresis)
	assert.Equal(t, 3, ec.Padding)
	assert.Equal(t, OverlayMask, cfg.Edges.Overlay)
	assert.True(t, cfg.Edges.Enabled)

	th := cfg.Thresholds()
	assert.Equal(t, 0.4, th.Distance)
	assert.Equal(t, 5, th.HysteresisFrames)
	assert.Equal(t, 100, cfg.Palette.SplitColumn)
	assert.Equal(t, 500*time.Millisecond, cfg.Profile.ReportInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{
			name: "unknown enum",
			doc:  "blur: {kind: sharpen}",
			want: []string{"sharpen"},
		},
		{
			name: "every problem is reported",
			doc: `
geometry: {preset: "HD 720p"}
workers: -1
edges: {high_ratio: 2, overlay: glow}
palette: {size: 0}
effects: {pixelate: -2}
log: {level: loud}
`,
			want: []string{"workers", "high_ratio", "overlay", "palette size", "pixelate", "loud"},
		},
		{
			name: "padding below blur radius",
			doc:  "padding: 1",
			want: []string{"padding 1"},
		},
		{
			name: "unknown preset",
			doc:  `geometry: {preset: "VHS"}`,
			want: []string{"VHS"},
		},
		{
			name: "half explicit geometry",
			doc:  "geometry: {width: 640}",
			want: []string{"geometry 640x0"},
		},
		{
			name: "refresh thresholds checked when auto refresh is on",
			doc:  "palette: {auto_refresh: true, refresh_frames: 0}",
			want: []string{"hysteresis frames"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pixel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 2\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pixel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 1\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	reloads := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, zaptest.NewLogger(t), func(c *Config) {
			select {
			case reloads <- c:
			default:
			}
		})
	}()

	// An invalid edit is ignored; the watcher keeps running.
	require.NoError(t, os.WriteFile(path, []byte("workers: -5\n"), 0o600))

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("workers: 6\n"), 0o600)
		for {
			select {
			case got := <-reloads:
				if got.Workers == 6 {
					return true
				}
			default:
				return false
			}
		}
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
