package asset

import "testing"

func TestAssetResidencyFullCycle(t *testing.T) {
	mgr := NewManager()
	a := NewAsset(KindTexture)

	if a.Status() != NonResident {
		t.Fatalf("expected NonResident, got %v", a.Status())
	}
	if a.Descriptor() != 0 {
		t.Fatalf("expected zero descriptor before streaming, got %d", a.Descriptor())
	}

	if err := a.RequestStream(mgr); err != nil {
		t.Fatalf("RequestStream: %v", err)
	}
	if a.Status() != StreamRequest {
		t.Fatalf("expected StreamRequest, got %v", a.Status())
	}
	if a.Descriptor() == 0 {
		t.Fatalf("expected non-zero descriptor in StreamRequest")
	}

	if err := a.MakeResident(); err != nil {
		t.Fatalf("MakeResident: %v", err)
	}
	if a.Status() != Resident {
		t.Fatalf("expected Resident, got %v", a.Status())
	}
	if a.Descriptor() == 0 {
		t.Fatalf("expected non-zero descriptor while Resident")
	}

	if err := a.RequestEviction(); err != nil {
		t.Fatalf("RequestEviction: %v", err)
	}
	if a.Status() != EvictRequest {
		t.Fatalf("expected EvictRequest, got %v", a.Status())
	}

	if err := a.Evict(mgr); err != nil {
		t.Fatalf("Evict: %v", err)
	}
	if a.Status() != NonResident {
		t.Fatalf("expected NonResident after evict, got %v", a.Status())
	}
	if a.Descriptor() != 0 {
		t.Fatalf("expected zero descriptor outside Resident/StreamRequest, got %d", a.Descriptor())
	}
}

func TestAssetResidencyRejectsOutOfOrderTransitions(t *testing.T) {
	mgr := NewManager()
	a := NewAsset(KindSampler)

	if err := a.MakeResident(); err == nil {
		t.Fatalf("expected MakeResident to fail before RequestStream")
	}
	if err := a.RequestEviction(); err == nil {
		t.Fatalf("expected RequestEviction to fail before Resident")
	}
	if err := a.Evict(mgr); err == nil {
		t.Fatalf("expected Evict to fail before EvictRequest")
	}

	if err := a.RequestStream(mgr); err != nil {
		t.Fatalf("RequestStream: %v", err)
	}
	if err := a.RequestStream(mgr); err == nil {
		t.Fatalf("expected a second RequestStream to fail from StreamRequest")
	}
}

func TestAssetResidencyDescriptorsAreUniquePerAsset(t *testing.T) {
	mgr := NewManager()
	a := NewAsset(KindTexture)
	b := NewAsset(KindTexture)

	if err := a.RequestStream(mgr); err != nil {
		t.Fatalf("a.RequestStream: %v", err)
	}
	if err := b.RequestStream(mgr); err != nil {
		t.Fatalf("b.RequestStream: %v", err)
	}

	if a.Descriptor() == b.Descriptor() {
		t.Fatalf("expected distinct descriptors, both got %d", a.Descriptor())
	}
}
