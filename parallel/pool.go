// Package parallel provides the fixed-size worker pool every per-pixel stage
// fans out on. Work is split by contiguous row ranges and each call joins
// before returning, so stages stay strictly sequential.
package parallel

import (
	"runtime"
	"sync"
)

// Pool is a fixed set of worker goroutines fed from a shared task queue.
// A nil *Pool is valid and runs every call inline on the caller's goroutine.
type Pool struct {
	workers int
	tasks   chan func()
	done    sync.WaitGroup

	// mu is held shared while Rows queues tasks and exclusively by Close.
	mu     sync.RWMutex
	closed bool
}

// NewPool starts a pool with the given number of workers.
// Workers <= 0 selects GOMAXPROCS.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		workers: workers,
		tasks:   make(chan func(), workers*4),
	}

	p.done.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}

	return p
}

func (p *Pool) work() {
	defer p.done.Done()
	for task := range p.tasks {
		task()
	}
}

// Workers returns the number of worker goroutines (1 for a nil pool).
func (p *Pool) Workers() int {
	if p == nil {
		return 1
	}
	return p.workers
}

// Rows partitions [0, n) into contiguous chunks, runs fn on each chunk using
// the pool's workers, and returns once every chunk has completed.
//
// Chunks never overlap, so fn may write to any index derived from its own row
// range without synchronization. Rows must not be called from inside fn.
func (p *Pool) Rows(n int, fn func(from, to int)) {
	if n <= 0 {
		return
	}
	if p == nil || p.workers == 1 || n < minRowsPerChunk*2 {
		fn(0, n)
		return
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		fn(0, n)
		return
	}

	chunk := chunkSize(n, p.workers)

	var wg sync.WaitGroup
	for from := 0; from < n; from += chunk {
		to := from + chunk
		if to > n {
			to = n
		}
		wg.Add(1)
		s, e := from, to
		p.tasks <- func() {
			defer wg.Done()
			fn(s, e)
		}
	}
	p.mu.RUnlock()
	wg.Wait()
}

// Close stops the workers after draining queued tasks. It is safe to call
// more than once; later Rows calls run inline.
func (p *Pool) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.done.Wait()
}

const minRowsPerChunk = 8

// chunkSize aims for two chunks per worker, so a slow chunk does not stall
// the join, while keeping each chunk at least minRowsPerChunk rows tall.
func chunkSize(n, workers int) int {
	chunks := workers * 2
	size := (n + chunks - 1) / chunks
	if size < minRowsPerChunk {
		size = minRowsPerChunk
	}
	return size
}
