package jobs

import (
	"runtime"
	"sync"

	"github.com/alseid-engine/anima/engine/core"
)

// Manager owns a queue of jobs and the worker goroutines that drain
// it. Jobs with unresolved dependencies are held back until every
// dependency finishes, at which point they are enqueued automatically.
type Manager struct {
	mu          sync.Mutex
	queueCond   sync.Cond
	pendingCond sync.Cond

	queue        []*Job
	dependencies map[*Job][]*Job
	pending      uint64

	workerCount int
	wg          sync.WaitGroup
}

// NewManager starts a Manager with workerCount worker goroutines. A
// workerCount of zero uses runtime.NumCPU().
func NewManager(workerCount int) *Manager {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}

	m := &Manager{
		dependencies: make(map[*Job][]*Job),
		workerCount:  workerCount,
	}
	m.queueCond.L = &m.mu
	m.pendingCond.L = &m.mu

	m.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go func() {
			defer m.wg.Done()
			m.runWorker()
		}()
	}

	core.LogDebug("jobs: started manager with %d workers", workerCount)
	return m
}

// WorkerCount returns the number of worker goroutines.
func (m *Manager) WorkerCount() int {
	return m.workerCount
}

// Dispatch enqueues job once every entry in deps either is nil or has
// already finished; otherwise the job is held until the last pending
// dependency resolves. Dispatch always returns job so callers can
// chain it straight into a dependent Dispatch call.
func (m *Manager) Dispatch(job *Job, deps ...*Job) *Job {
	m.mu.Lock()
	m.pending++

	wait := false
	for _, dep := range deps {
		if m.registerDependency(job, dep) {
			wait = true
		}
	}

	if !wait {
		m.enqueueJob(job)
		m.queueCond.Broadcast()
	}
	m.mu.Unlock()

	return job
}

// Wait blocks until job has finished executing.
func (m *Manager) Wait(job *Job) {
	m.mu.Lock()
	for !job.isDone() {
		m.pendingCond.Wait()
	}
	m.mu.Unlock()
}

// WaitAll blocks until every dispatched job, including jobs dispatched
// by other goroutines after this call starts waiting, has finished.
func (m *Manager) WaitAll() {
	m.mu.Lock()
	for m.pending != 0 {
		m.pendingCond.Wait()
	}
	m.mu.Unlock()
}

// Shutdown waits for all pending work to finish and stops the worker
// goroutines. The Manager must not be used afterward.
func (m *Manager) Shutdown() {
	m.WaitAll()

	m.mu.Lock()
	m.queue = append(m.queue, nil)
	m.queueCond.Broadcast()
	m.mu.Unlock()

	m.wg.Wait()
}

// registerDependency must be called with m.mu held. It returns true if
// job now depends on dep and should not be enqueued yet.
func (m *Manager) registerDependency(job, dep *Job) bool {
	if dep == nil || dep.isDone() {
		return false
	}

	job.addDependency()
	m.dependencies[dep] = append(m.dependencies[dep], job)
	return true
}

// enqueueJob must be called with m.mu held.
func (m *Manager) enqueueJob(job *Job) {
	m.queue = append(m.queue, job)
}

// notifyJob must be called with m.mu held. It releases every job that
// depended on job and was waiting on nothing else.
func (m *Manager) notifyJob(job *Job) {
	waiters := m.dependencies[job]
	delete(m.dependencies, job)

	notify := false
	for _, waiter := range waiters {
		if waiter.notifyDependency() {
			m.enqueueJob(waiter)
			notify = true
		}
	}

	if notify {
		m.queueCond.Broadcast()
	}

	m.pending--
	m.pendingCond.Broadcast()
}

func (m *Manager) runWorker() {
	locked := false
	for {
		if !locked {
			m.mu.Lock()
			locked = true
		}

		for len(m.queue) == 0 {
			m.queueCond.Wait()
		}

		job := m.queue[0]
		if job == nil {
			m.mu.Unlock()
			return
		}

		index, count, more := job.getWorkItems()
		if !more {
			m.queue = m.queue[1:]
		}

		if count == 0 {
			// Stay locked; another worker claimed the remaining
			// items between the pop check and here.
			continue
		}

		m.mu.Unlock()
		locked = false

		done := false
		for {
			job.proc(index, count)
			done = job.notifyWorkItems(count)

			index, count, more = job.getWorkItems()
			if count == 0 {
				break
			}
		}
		_ = more

		if done {
			m.mu.Lock()
			m.notifyJob(job)
			locked = true
		}
	}
}
