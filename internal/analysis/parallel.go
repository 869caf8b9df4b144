package analysis

import (
	"runtime"
	"sync"
)

// Parallel round configuration.
const (
	// parallelThreshold is the vertex count below which a round runs on the
	// calling goroutine. Small graphs gain nothing from fan-out.
	parallelThreshold = 4096

	// minChunk keeps each worker's slice of the vertex range large enough to
	// amortize goroutine startup.
	minChunk = 1024
)

// resolveWorkers turns a configured worker count into a usable one
func resolveWorkers(workers int) int {
	if workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return workers
}

// parallelRange runs fn over contiguous chunks of [0, n) and returns once
// every chunk is done. The return is the round barrier: writes made by fn
// are visible to the caller afterwards.
func parallelRange(n, workers int, fn func(lo, hi int)) {
	workers = resolveWorkers(workers)
	if n < parallelThreshold || workers == 1 {
		fn(0, n)
		return
	}

	chunk := (n + workers - 1) / workers
	if chunk < minChunk {
		chunk = minChunk
	}

	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			fn(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}
