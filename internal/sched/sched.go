// Package sched is the sequential execution substrate for the training core.
//
// The training algorithms were written against a thread pool, but fmgo runs
// them strictly single-threaded: Submit executes its task inline before
// returning and Sync is a no-op because nothing is ever outstanding. The
// configured thread count survives only as an input to the partition
// helpers, which must split index ranges at exactly the boundaries the
// pool-based loops used. Enabling real parallelism here would change
// accumulation order and therefore numeric results.
package sched

// Pool mimics a fixed-size worker pool with immediate, same-goroutine
// execution.
type Pool struct {
	threads int
}

// NewPool creates a pool with the given nominal thread count.
// Counts below 1 are clamped to 1.
func NewPool(threads int) *Pool {
	if threads < 1 {
		threads = 1
	}
	return &Pool{threads: threads}
}

// Submit runs task on the calling goroutine and returns once it completes.
func (p *Pool) Submit(task func()) {
	task()
}

// Sync waits for outstanding tasks. There are never any.
func (p *Pool) Sync(waitCount int) {
	_ = waitCount
}

// ThreadNumber reports the nominal concurrency level. It sizes partitioning
// only; no goroutines are spawned.
func (p *Pool) ThreadNumber() int {
	return p.threads
}

// Start returns the first index of worker id's slice of [0, count) when the
// range is divided across total workers.
func Start(count, total, id int) int {
	gap := count / total
	return id * gap
}

// End returns one past the last index of worker id's slice of [0, count).
// The remainder count%total goes to the last worker.
func End(count, total, id int) int {
	gap := count / total
	end := (id + 1) * gap
	if id == total-1 {
		end += count % total
	}
	return end
}
