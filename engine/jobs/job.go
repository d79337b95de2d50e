// Package jobs implements the work-stealing job scheduler used to
// parallelize asset conversion, pipeline compilation and other batch
// work across the host's hardware threads.
package jobs

import "sync/atomic"

// Job is a unit of work that can be split into itemCount invocations,
// handed out itemGroup at a time to whichever worker asks for more.
// A Job is immutable once constructed except for its internal atomic
// progress counters and its dependency count, the latter only ever
// touched by the Manager while holding its mutex.
type Job struct {
	itemCount uint32
	itemGroup uint32
	proc      func(index, count uint32)

	next atomic.Uint32
	done atomic.Uint32

	deps uint32
}

func newJob(itemCount, itemGroup uint32, proc func(index, count uint32)) *Job {
	if itemGroup == 0 {
		itemGroup = 1
	}
	return &Job{itemCount: itemCount, itemGroup: itemGroup, proc: proc}
}

// NewSimpleJob creates a job that executes fn exactly once.
func NewSimpleJob(fn func()) *Job {
	return newJob(1, 1, func(uint32, uint32) { fn() })
}

// NewBatchJob creates a job that calls fn once per invocation index in
// [0, itemCount), handed out itemGroup indices at a time. itemGroup
// should be chosen so that it amortizes the overhead of fn.
func NewBatchJob(itemCount, itemGroup uint32, fn func(index uint32)) *Job {
	return newJob(itemCount, itemGroup, func(index, count uint32) {
		for i := index; i < index+count; i++ {
			fn(i)
		}
	})
}

// NewComplexJob creates a job that calls fn once per workgroup with
// the workgroup's index and invocation count, useful for work that
// computes data locally before a reduction step.
func NewComplexJob(itemCount, itemGroup uint32, fn func(index, count uint32)) *Job {
	return newJob(itemCount, itemGroup, fn)
}

// isDone reports whether every invocation of the job has completed.
func (j *Job) isDone() bool {
	return j.done.Load() == j.itemCount
}

// Done reports whether every invocation of the job has completed. It
// never blocks, so callers can use it to report progress on a job
// they do not want to Wait on yet.
func (j *Job) Done() bool {
	return j.isDone()
}

// getWorkItems claims up to itemGroup invocations for the caller.
// It returns the starting index, the count claimed (which may be
// zero if nothing is left), and whether further invocations remain
// unclaimed after this call.
func (j *Job) getWorkItems() (index, count uint32, more bool) {
	next := j.next.Load()
	size := min32(j.itemCount-next, j.itemGroup)

	for size != 0 {
		if j.next.CompareAndSwap(next, next+size) {
			break
		}
		next = j.next.Load()
		size = min32(j.itemCount-next, j.itemGroup)
	}

	return next, size, next+size < j.itemCount
}

// notifyWorkItems records that count invocations have completed and
// reports whether that was the last outstanding invocation.
func (j *Job) notifyWorkItems(count uint32) bool {
	return j.done.Add(count) == j.itemCount
}

// addDependency increments the job's unresolved dependency count.
// Must only be called by the Manager while holding its mutex.
func (j *Job) addDependency() {
	j.deps++
}

// notifyDependency resolves one dependency and reports whether none
// remain. Must only be called by the Manager while holding its mutex.
func (j *Job) notifyDependency() bool {
	j.deps--
	return j.deps == 0
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
