package parallel

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowsCoversEveryRowOnce(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		rows    int
	}{
		{name: "single worker", workers: 1, rows: 100},
		{name: "small input runs inline", workers: 8, rows: 5},
		{name: "uneven split", workers: 3, rows: 721},
		{name: "many workers", workers: 16, rows: 1080},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPool(tt.workers)
			defer p.Close()

			hits := make([]int32, tt.rows)
			p.Rows(tt.rows, func(from, to int) {
				for y := from; y < to; y++ {
					atomic.AddInt32(&hits[y], 1)
				}
			})

			for y, h := range hits {
				require.Equal(t, int32(1), h, "row %d", y)
			}
		})
	}
}

func TestNilPoolRunsInline(t *testing.T) {
	var p *Pool
	calls := 0
	p.Rows(42, func(from, to int) {
		calls++
		assert.Equal(t, 0, from)
		assert.Equal(t, 42, to)
	})
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, p.Workers())
	p.Close()
}

func TestRowsZeroIsNoop(t *testing.T) {
	p := NewPool(2)
	defer p.Close()
	p.Rows(0, func(from, to int) {
		t.Fatalf("unexpected call %d..%d", from, to)
	})
}

func TestCloseIsIdempotentAndFallsBackInline(t *testing.T) {
	p := NewPool(4)
	p.Close()
	p.Close()

	var sum int64
	p.Rows(1000, func(from, to int) {
		atomic.AddInt64(&sum, int64(to-from))
	})
	assert.Equal(t, int64(1000), sum)
}

func TestDefaultWorkers(t *testing.T) {
	p := NewPool(0)
	defer p.Close()
	assert.GreaterOrEqual(t, p.Workers(), 1)
}

func TestChunkSize(t *testing.T) {
	assert.Equal(t, minRowsPerChunk, chunkSize(10, 8))
	assert.Equal(t, 45, chunkSize(720, 8))
}

func TestCloseDuringRows(t *testing.T) {
	for round := 0; round < 20; round++ {
		p := NewPool(4)
		start := make(chan struct{})
		var wg sync.WaitGroup
		var total int64
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for i := 0; i < 50; i++ {
					p.Rows(200, func(from, to int) {
						atomic.AddInt64(&total, int64(to-from))
					})
				}
			}()
		}
		close(start)
		p.Close()
		wg.Wait()
		assert.Equal(t, int64(4*50*200), total)
	}
}
