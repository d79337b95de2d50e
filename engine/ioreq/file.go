// Package ioreq implements the batched asynchronous file I/O model:
// a File abstraction over an on-disk file opened for either reading
// or writing, and a Request that batches Read/Write/Stream items
// against one or more Files for execution as a unit.
package ioreq

import (
	"os"
	"sync"

	"github.com/alseid-engine/anima/engine/core"
)

// Mode restricts a File to one direction, matching the teacher's
// read/write file handles never being bidirectional.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

// OpenMode selects how OpenFile behaves with respect to an existing
// file at path.
type OpenMode int

const (
	// OpenRead opens an existing file for reading; fails if absent.
	OpenRead OpenMode = iota
	// OpenWrite opens an existing file for writing, preserving its
	// contents; fails if absent.
	OpenWrite
	// OpenWriteOrCreate opens for writing, creating the file if it
	// does not already exist, preserving contents either way.
	OpenWriteOrCreate
	// OpenCreate truncates an existing file or creates a new one.
	OpenCreate
	// OpenCreateOrFail creates a new file, failing if one exists.
	OpenCreateOrFail
)

// File is a handle to an open file usable by a Request's items. It
// tracks its own size so concurrent write items can grow it without
// re-stat'ing the filesystem.
type File struct {
	path string
	mode Mode
	f    *os.File

	mu   sync.Mutex
	size uint64
}

// OpenFile opens path according to how, returning a File ready to be
// passed to Request items.
func OpenFile(path string, how OpenMode) (*File, error) {
	var flag int
	var mode Mode

	switch how {
	case OpenRead:
		flag, mode = os.O_RDONLY, ModeRead
	case OpenWrite:
		flag, mode = os.O_WRONLY, ModeWrite
	case OpenWriteOrCreate:
		flag, mode = os.O_WRONLY|os.O_CREATE, ModeWrite
	case OpenCreate:
		flag, mode = os.O_WRONLY|os.O_CREATE|os.O_TRUNC, ModeWrite
	case OpenCreateOrFail:
		flag, mode = os.O_WRONLY|os.O_CREATE|os.O_EXCL, ModeWrite
	default:
		return nil, core.NewError(core.InvalidArgument, "ioreq: unknown open mode %d", how)
	}

	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, core.WrapError(core.IoError, err, "ioreq: open %s", path)
	}

	size := uint64(0)
	if info, err := f.Stat(); err == nil {
		size = uint64(info.Size())
	}

	return &File{path: path, mode: mode, f: f, size: size}, nil
}

// Close closes the underlying OS file.
func (f *File) Close() error {
	return f.f.Close()
}

// Mode reports whether the file was opened for reading or writing.
func (f *File) Mode() Mode {
	return f.mode
}

// Size returns the file's current size. For a file being written to
// by in-flight requests, this reflects every write that has already
// completed.
func (f *File) Size() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

func (f *File) readAt(offset, size uint64, dst []byte) Status {
	if f.mode != ModeRead {
		return StatusError
	}
	if size == 0 {
		return StatusSuccess
	}
	if offset+size > f.Size() {
		return StatusError
	}
	if _, err := f.f.ReadAt(dst[:size], int64(offset)); err != nil {
		return StatusError
	}
	return StatusSuccess
}

func (f *File) writeAt(offset, size uint64, src []byte) Status {
	if f.mode != ModeWrite {
		return StatusError
	}
	if size == 0 {
		return StatusSuccess
	}
	if _, err := f.f.WriteAt(src[:size], int64(offset)); err != nil {
		return StatusError
	}

	f.mu.Lock()
	if end := offset + size; end > f.size {
		f.size = end
	}
	f.mu.Unlock()

	return StatusSuccess
}
