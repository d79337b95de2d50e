package ioreq

import (
	"sync"
	"sync/atomic"
)

// Status is a Request's lifecycle state. Transitions are strictly
// Reset -> Pending -> (Success | Error); Success and Error are
// terminal.
type Status int32

const (
	StatusReset Status = iota
	StatusPending
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusReset:
		return "reset"
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

type itemType int

const (
	itemRead itemType = iota
	itemWrite
	itemStream
)

// ItemCallback runs after its item's own read/write completes,
// before the rest of the Request is executed. Returning a non-nil
// error fails the whole Request. For a read or stream item, data is
// the bytes that were read; for a write item, it is the bytes that
// were written. A stream item's data is only valid for the duration
// of the callback.
type ItemCallback func(data []byte) error

type item struct {
	kind   itemType
	file   *File
	offset uint64
	size   uint64
	buf    []byte // caller-owned destination (read) or source (write)
	cb     ItemCallback
}

// Callback runs once the Request reaches a terminal status.
type Callback func(Status)

// Request batches a sequence of Read, Write and Stream items against
// one or more Files, to be executed together by a caller (typically
// an I/O worker goroutine) via Execute. It is safe to register
// completion callbacks and query status from other goroutines while
// the request is in flight.
type Request struct {
	mu   sync.Mutex
	cond sync.Cond

	status    atomic.Int32
	callbacks []Callback
	items     []item
}

// NewRequest creates a Request in the Reset state.
func NewRequest() *Request {
	r := &Request{}
	r.cond.L = &r.mu
	return r
}

// Read enqueues a read of size bytes at offset from file into dst.
// dst must remain valid until the request completes.
func (r *Request) Read(file *File, offset, size uint64, dst []byte) {
	r.append(item{kind: itemRead, file: file, offset: offset, size: size, buf: dst})
}

// ReadWithCallback enqueues a read, invoking cb with the bytes read
// once that item's read completes successfully.
func (r *Request) ReadWithCallback(file *File, offset, size uint64, dst []byte, cb ItemCallback) {
	r.append(item{kind: itemRead, file: file, offset: offset, size: size, buf: dst, cb: cb})
}

// Write enqueues a write of size bytes at offset to file from src.
// src must remain valid until the request completes.
func (r *Request) Write(file *File, offset, size uint64, src []byte) {
	r.append(item{kind: itemWrite, file: file, offset: offset, size: size, buf: src})
}

// WriteWithCallback enqueues a write, invoking cb with the bytes
// written once that item's write completes successfully.
func (r *Request) WriteWithCallback(file *File, offset, size uint64, src []byte, cb ItemCallback) {
	r.append(item{kind: itemWrite, file: file, offset: offset, size: size, buf: src, cb: cb})
}

// Stream enqueues a read of size bytes at offset from file into a
// buffer owned by the request, handing the data to cb as soon as the
// read completes. The data is only valid for the duration of cb; it
// is useful for data that is immediately decoded and discarded, such
// as a sub-file read straight out of an archive.
func (r *Request) Stream(file *File, offset, size uint64, cb ItemCallback) {
	r.append(item{kind: itemStream, file: file, offset: offset, size: size, cb: cb})
}

func (r *Request) append(it item) {
	r.mu.Lock()
	r.items = append(r.items, it)
	r.mu.Unlock()
}

// GetStatus returns the request's current status without blocking.
func (r *Request) GetStatus() Status {
	return Status(r.status.Load())
}

// SetPending marks the request as submitted for execution. It must
// be called before Execute, from whichever goroutine hands the
// request off to an I/O worker.
func (r *Request) SetPending() {
	r.setStatus(StatusPending)
}

// Wait blocks until the request reaches Success or Error and returns
// the final status.
func (r *Request) Wait() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	for r.GetStatus() == StatusPending || r.GetStatus() == StatusReset {
		r.cond.Wait()
	}
	return r.GetStatus()
}

// OnCompletion registers callback to run once the request reaches a
// terminal status. If the request has already completed, callback
// runs immediately, inline, on the calling goroutine.
func (r *Request) OnCompletion(callback Callback) {
	r.mu.Lock()
	status := r.GetStatus()

	if status == StatusPending || status == StatusReset {
		r.callbacks = append(r.callbacks, callback)
		r.mu.Unlock()
		return
	}

	r.mu.Unlock()
	callback(status)
}

// Execute runs every queued item in order against its file, stopping
// at (and including) the first item whose read, write or per-item
// callback fails. It then sets the terminal status and, under the lock
// that makes OnCompletion safe, wakes Wait()ers and takes and clears
// the registered completion callbacks; they fire after the lock is
// released.
//
// Execute is meant to be called by a single worker goroutine that
// owns this request after SetPending; it is not safe to call
// concurrently with itself.
func (r *Request) Execute() Status {
	streamBuf := make([]byte, 0, 4096)
	status := StatusSuccess

	for _, it := range r.items {
		switch it.kind {
		case itemRead:
			status = it.file.readAt(it.offset, it.size, it.buf)
		case itemWrite:
			status = it.file.writeAt(it.offset, it.size, it.buf)
		case itemStream:
			if cap(streamBuf) < int(it.size) {
				streamBuf = make([]byte, it.size)
			}
			streamBuf = streamBuf[:it.size]
			status = it.file.readAt(it.offset, it.size, streamBuf)
			it.buf = streamBuf
		}

		if status == StatusSuccess && it.cb != nil {
			if err := it.cb(it.buf); err != nil {
				status = StatusError
			}
		}

		if status == StatusError {
			break
		}
	}

	r.items = nil
	r.setStatus(status)
	return status
}

func (r *Request) setStatus(status Status) {
	r.mu.Lock()
	r.status.Store(int32(status))

	if status != StatusSuccess && status != StatusError {
		r.mu.Unlock()
		return
	}

	r.cond.Broadcast()

	callbacks := r.callbacks
	r.callbacks = nil
	r.mu.Unlock()

	for _, cb := range callbacks {
		cb(status)
	}
}
