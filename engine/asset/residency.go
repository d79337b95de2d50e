// Package asset implements the GPU residency state machine for
// streamed assets (textures and samplers): NonResident -> StreamRequest
// -> Resident -> EvictRequest -> NonResident, each asset owning a
// descriptor index that is only non-zero while Resident or
// StreamRequest. Discovery and hot-reload of the files backing these
// assets is handled separately by engine/assets; this package only
// tracks GPU-side residency once an asset has been selected to load.
package asset

import (
	"sync"

	"github.com/alseid-engine/anima/engine/core"
)

// Status is an asset's residency state. Transitions are one-way per
// tick: RequestStream, MakeResident, RequestEviction and Evict each
// move the asset exactly one step forward; there is no way back
// except by going all the way around through NonResident again.
type Status int32

const (
	NonResident Status = iota
	StreamRequest
	Resident
	EvictRequest
)

func (s Status) String() string {
	switch s {
	case NonResident:
		return "non-resident"
	case StreamRequest:
		return "stream-request"
	case Resident:
		return "resident"
	case EvictRequest:
		return "evict-request"
	default:
		return "unknown"
	}
}

// Kind distinguishes the two asset shapes the FSM tracks, matching
// the descriptor heaps a bindless renderer keeps per resource type.
type Kind int

const (
	KindTexture Kind = iota
	KindSampler
)

// Manager owns the descriptor index namespace assets pull from. Its
// only job is allocating and freeing descriptors; ordering residency
// transitions relative to frame fences is the caller's
// responsibility, per spec.
type Manager struct {
	mu sync.Mutex
}

// NewManager creates an empty descriptor-allocating Manager.
func NewManager() *Manager {
	return &Manager{}
}

// createDescriptor allocates a descriptor index for kind, guaranteed
// non-zero (0 is reserved as "no descriptor" so the FSM's invariant
// can use a plain zero check, matching the reference's
// `if (m_descriptor)` sentinel).
func (m *Manager) createDescriptor(kind Kind) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return core.IdentifierAquireNewID(kind) + 1
}

// freeDescriptor releases descriptor back to the pool.
func (m *Manager) freeDescriptor(descriptor uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = core.IdentifierReleaseID(descriptor - 1)
}

// Asset is one streamed texture or sampler's residency state. The
// zero value is a NonResident asset with no descriptor.
type Asset struct {
	Kind Kind

	mu         sync.Mutex
	status     Status
	descriptor uint32
}

// NewAsset creates a NonResident asset of the given kind.
func NewAsset(kind Kind) *Asset {
	return &Asset{Kind: kind}
}

// Status returns the asset's current residency state.
func (a *Asset) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Descriptor returns the asset's descriptor index. It is guaranteed
// to be zero outside Resident and StreamRequest.
func (a *Asset) Descriptor() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.descriptor
}

// RequestStream moves the asset NonResident -> StreamRequest and
// allocates its descriptor through manager. It fails if the asset is
// not currently NonResident.
func (a *Asset) RequestStream(manager *Manager) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != NonResident {
		return core.NewError(core.InvalidArgument, "asset: RequestStream called in state %v, expected NonResident", a.status)
	}

	a.status = StreamRequest
	a.descriptor = manager.createDescriptor(a.Kind)
	return nil
}

// MakeResident moves the asset StreamRequest -> Resident, once its
// GPU resources have finished uploading.
func (a *Asset) MakeResident() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != StreamRequest {
		return core.NewError(core.InvalidArgument, "asset: MakeResident called in state %v, expected StreamRequest", a.status)
	}

	a.status = Resident
	return nil
}

// RequestEviction moves the asset Resident -> EvictRequest, signaling
// that its resources should be freed once it is safe to do so.
func (a *Asset) RequestEviction() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != Resident {
		return core.NewError(core.InvalidArgument, "asset: RequestEviction called in state %v, expected Resident", a.status)
	}

	a.status = EvictRequest
	return nil
}

// Evict moves the asset EvictRequest -> NonResident and frees its
// descriptor through manager.
func (a *Asset) Evict(manager *Manager) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != EvictRequest {
		return core.NewError(core.InvalidArgument, "asset: Evict called in state %v, expected EvictRequest", a.status)
	}

	a.status = NonResident
	if a.descriptor != 0 {
		manager.freeDescriptor(a.descriptor)
		a.descriptor = 0
	}
	return nil
}
