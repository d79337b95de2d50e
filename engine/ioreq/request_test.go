package ioreq

import (
	"path/filepath"
	"sync"
	"testing"
)

func TestRequestReadWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")

	wf, err := OpenFile(path, OpenCreate)
	if err != nil {
		t.Fatalf("open for write: %v", err)
	}

	src := []byte("hello ioreq")
	wr := NewRequest()
	wr.Write(wf, 0, uint64(len(src)), src)
	wr.SetPending()
	if status := wr.Execute(); status != StatusSuccess {
		t.Fatalf("write request failed: %v", status)
	}
	wf.Close()

	rf, err := OpenFile(path, OpenRead)
	if err != nil {
		t.Fatalf("open for read: %v", err)
	}
	defer rf.Close()

	dst := make([]byte, len(src))
	rr := NewRequest()
	rr.Read(rf, 0, uint64(len(dst)), dst)
	rr.SetPending()
	if status := rr.Execute(); status != StatusSuccess {
		t.Fatalf("read request failed: %v", status)
	}
	if string(dst) != string(src) {
		t.Fatalf("expected %q, got %q", src, dst)
	}
}

func TestRequestStatusTransitionsResetPendingSuccess(t *testing.T) {
	r := NewRequest()
	if r.GetStatus() != StatusReset {
		t.Fatalf("expected Reset, got %v", r.GetStatus())
	}

	r.SetPending()
	if r.GetStatus() != StatusPending {
		t.Fatalf("expected Pending, got %v", r.GetStatus())
	}

	if status := r.Execute(); status != StatusSuccess {
		t.Fatalf("expected Success for an empty request, got %v", status)
	}
	if r.GetStatus() != StatusSuccess {
		t.Fatalf("expected terminal Success, got %v", r.GetStatus())
	}
}

func TestRequestReadPastEndOfFileFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.bin")

	wf, err := OpenFile(path, OpenCreate)
	if err != nil {
		t.Fatalf("open for write: %v", err)
	}
	wf.writeAt(0, 4, []byte{1, 2, 3, 4})
	wf.Close()

	rf, err := OpenFile(path, OpenRead)
	if err != nil {
		t.Fatalf("open for read: %v", err)
	}
	defer rf.Close()

	r := NewRequest()
	r.Read(rf, 0, 1024, make([]byte, 1024))
	r.SetPending()
	if status := r.Execute(); status != StatusError {
		t.Fatalf("expected Error reading past end of file, got %v", status)
	}
}

func TestRequestStreamCallbackSeesData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stream.bin")

	wf, err := OpenFile(path, OpenCreate)
	if err != nil {
		t.Fatalf("open for write: %v", err)
	}
	payload := []byte("streamed-bytes")
	wf.writeAt(0, uint64(len(payload)), payload)
	wf.Close()

	rf, err := OpenFile(path, OpenRead)
	if err != nil {
		t.Fatalf("open for read: %v", err)
	}
	defer rf.Close()

	var seen []byte
	r := NewRequest()
	r.Stream(rf, 0, uint64(len(payload)), func(data []byte) error {
		seen = append([]byte(nil), data...)
		return nil
	})
	r.SetPending()
	if status := r.Execute(); status != StatusSuccess {
		t.Fatalf("stream request failed: %v", status)
	}
	if string(seen) != string(payload) {
		t.Fatalf("expected callback to observe %q, got %q", payload, seen)
	}
}

func TestRequestOnCompletionFiresInlineAfterTerminal(t *testing.T) {
	r := NewRequest()
	r.SetPending()
	r.Execute()

	var got Status = -1
	r.OnCompletion(func(status Status) {
		got = status
	})

	if got != StatusSuccess {
		t.Fatalf("expected callback registered after completion to fire inline with Success, got %v", got)
	}
}

func TestRequestOnCompletionQueuedBeforeTerminalFiresOnce(t *testing.T) {
	r := NewRequest()

	var mu sync.Mutex
	var fired int
	r.OnCompletion(func(Status) {
		mu.Lock()
		fired++
		mu.Unlock()
	})

	r.SetPending()
	r.Execute()

	mu.Lock()
	defer mu.Unlock()
	if fired != 1 {
		t.Fatalf("expected completion callback to fire exactly once, got %d", fired)
	}
}

func TestRequestWaitBlocksUntilTerminal(t *testing.T) {
	r := NewRequest()
	r.SetPending()

	done := make(chan Status, 1)
	go func() {
		done <- r.Wait()
	}()

	r.Execute()

	if status := <-done; status != StatusSuccess {
		t.Fatalf("expected Wait to observe Success, got %v", status)
	}
}
