package jobs

import (
	"sync/atomic"
	"testing"
)

func TestManagerBatchJobCompletes(t *testing.T) {
	m := NewManager(4)
	defer m.Shutdown()

	var sum atomic.Int64
	job := NewBatchJob(1000, 16, func(uint32) {
		sum.Add(1)
	})

	m.Dispatch(job)
	m.Wait(job)

	if sum.Load() != 1000 {
		t.Fatalf("expected 1000 invocations, got %d", sum.Load())
	}
}

func TestManagerDependencyOrdering(t *testing.T) {
	m := NewManager(4)
	defer m.Shutdown()

	// B depends on A and C depends on B, so the manager guarantees
	// A finishes before B starts and B finishes before C starts:
	// appends below never race with each other.
	var order []int32

	a := NewSimpleJob(func() { order = append(order, 1) })
	b := NewSimpleJob(func() { order = append(order, 2) })
	c := NewSimpleJob(func() { order = append(order, 3) })

	m.Dispatch(a)
	m.Dispatch(b, a)
	m.Dispatch(c, b)

	m.Wait(c)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("expected strict A,B,C order, got %v", order)
	}
}

func TestManagerWaitAll(t *testing.T) {
	m := NewManager(4)
	defer m.Shutdown()

	var count atomic.Int32
	for i := 0; i < 50; i++ {
		m.Dispatch(NewSimpleJob(func() { count.Add(1) }))
	}

	m.WaitAll()

	if count.Load() != 50 {
		t.Fatalf("expected 50 completions, got %d", count.Load())
	}
}

func TestManagerDependencyOnAlreadyDoneJob(t *testing.T) {
	m := NewManager(2)
	defer m.Shutdown()

	a := NewSimpleJob(func() {})
	m.Dispatch(a)
	m.Wait(a)

	var ran atomic.Bool
	b := NewSimpleJob(func() { ran.Store(true) })
	m.Dispatch(b, a)
	m.Wait(b)

	if !ran.Load() {
		t.Fatalf("expected dependent job to run when dependency already done")
	}
}

func TestManagerNilDependencyIgnored(t *testing.T) {
	m := NewManager(2)
	defer m.Shutdown()

	var ran atomic.Bool
	job := NewSimpleJob(func() { ran.Store(true) })
	m.Dispatch(job, nil)
	m.Wait(job)

	if !ran.Load() {
		t.Fatalf("expected job with nil dependency to run")
	}
}
