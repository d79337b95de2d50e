package scratch

import "testing"

func TestLinearAllocatorAlignment(t *testing.T) {
	l := NewLinearAllocator(128)

	off, ok := l.Alloc(10, 16)
	if !ok || off != 0 {
		t.Fatalf("expected first alloc at offset 0, got %d", off)
	}

	off2, ok := l.Alloc(10, 16)
	if !ok || off2 != 16 {
		t.Fatalf("expected second alloc aligned to 16, got %d", off2)
	}
}

func TestLinearAllocatorExhaustion(t *testing.T) {
	l := NewLinearAllocator(16)

	if _, ok := l.Alloc(20, 1); ok {
		t.Fatalf("expected alloc larger than capacity to fail")
	}

	if _, ok := l.Alloc(16, 1); !ok {
		t.Fatalf("expected alloc matching capacity to succeed")
	}

	if _, ok := l.Alloc(1, 1); ok {
		t.Fatalf("expected allocator to be exhausted")
	}
}

func TestLinearAllocatorReset(t *testing.T) {
	l := NewLinearAllocator(16)

	l.Alloc(16, 1)
	if _, ok := l.Alloc(1, 1); ok {
		t.Fatalf("expected allocator to be exhausted before reset")
	}

	l.Reset()

	if _, ok := l.Alloc(16, 1); !ok {
		t.Fatalf("expected alloc to succeed after reset")
	}
}
