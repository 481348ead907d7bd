/*package thread contains functions for controlling and using gopic's
worker threads. All the shared-memory parallelism in the compute kernels
funnels through Split so that thread counts stay consistent across the
code base.*/
package thread

import (
	"runtime"
	"sync"

	"github.com/phil-mansfield/gopic/lib/error"
)

var workers = runtime.NumCPU()

// Set sets the number of worker threads used by gopic's parallel kernels.
// n = -1 means one worker per core.
func Set(n int) {
	if n == -1 {
		n = runtime.NumCPU()
	} else if n <= 0 || n > runtime.NumCPU() {
		error.External("%d threads requested, but your system has %d "+
			"cores per node. If you want gopic to use the maximum number "+
			"of threads per node, set Threads=-1.", n, runtime.NumCPU())
	}

	workers = n
	runtime.GOMAXPROCS(n)
}

// Workers returns the current worker count.
func Workers() int { return workers }

// Split runs f(id, lo, hi) on every worker, handing worker id the index
// range [lo, hi) of an n-element loop. It returns once every worker has
// finished. Ranges are contiguous and differ in length by at most one, so
// callers may use id to index per-worker scratch.
func Split(n int, f func(id, lo, hi int)) {
	SplitN(workers, n, f)
}

// SplitN is Split with an explicit worker count.
func SplitN(p, n int, f func(id, lo, hi int)) {
	if p > n { p = n }
	if p <= 1 {
		f(0, 0, n)
		return
	}

	wg := &sync.WaitGroup{}
	wg.Add(p)
	for id := 0; id < p; id++ {
		lo := id * n / p
		hi := (id + 1) * n / p
		go func(id, lo, hi int) {
			f(id, lo, hi)
			wg.Done()
		}(id, lo, hi)
	}
	wg.Wait()
}
