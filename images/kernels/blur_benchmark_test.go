package kernels

import (
	"math/rand"
	"testing"

	"github.com/nvr-ai/go-pixel/grid"
	"github.com/nvr-ai/go-pixel/parallel"
)

func genGray(rows, cols int) *grid.Grid[float32] {
	g := grid.New[float32](rows, cols)
	rng := rand.New(rand.NewSource(1))
	for i := range g.Data() {
		g.Data()[i] = float32(rng.Intn(256))
	}
	return g
}

func BenchmarkGaussianBlur_720p(b *testing.B) {
	pool := parallel.NewPool(0)
	defer pool.Close()
	g := genGray(720, 1280)
	tmp := grid.New[float32](720, 1280)
	opts := grid.Options{Padding: 2, Pool: pool}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = GaussianBlur(g, tmp, opts)
	}
}

func BenchmarkBoxBlur_720p_r3(b *testing.B) {
	pool := parallel.NewPool(0)
	defer pool.Close()
	g := genGray(720, 1280)
	tmp := grid.New[float32](720, 1280)
	opts := grid.Options{Padding: 3, Pool: pool}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = BoxBlur(g, tmp, 3, opts)
	}
}

func BenchmarkMedian_720p_w5(b *testing.B) {
	pool := parallel.NewPool(0)
	defer pool.Close()
	src := genGray(720, 1280)
	dst := grid.New[float32](720, 1280)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Median(src, dst, 5, pool)
	}
}

func BenchmarkBilateral_720p_r2(b *testing.B) {
	pool := parallel.NewPool(0)
	defer pool.Close()
	f, _ := NewBilateral(2, 2, 25)
	src := genGray(720, 1280)
	dst := grid.New[float32](720, 1280)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = f.Gray(src, dst, pool)
	}
}

func BenchmarkBilateralDownsampled_720p_r2_x4(b *testing.B) {
	pool := parallel.NewPool(0)
	defer pool.Close()
	f, _ := NewBilateral(2, 2, 25)
	ds, _ := NewDownsampler(f, 720, 1280, 4)
	src := genGray(720, 1280)
	dst := grid.New[float32](720, 1280)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ds.Filter(src, dst, pool)
	}
}
