package geometry

// MorphTargetInput is one morph target's data for a single meshlet:
// the target's slot index within the geometry's morph target array
// and the morphed vertex deltas for every vertex of the meshlet, in
// the same order as the meshlet's dense vertex buffer. GLTF morph
// target accessors already store deltas relative to the base mesh, so
// Vertices holds deltas directly, not absolute attribute values.
type MorphTargetInput struct {
	SlotIndex int
	Vertices  []Vertex
}

// ProcessMorphTargets packs the morph deltas for every input target,
// skipping vertices whose packed morph data is entirely zero, and
// returns the packed morph buffer, one MeshletMorphTargetInfo per
// target that modifies at least one vertex (ordered by slot index),
// the accumulated per-target bitmask over those slots, and how much
// the culling sphere radius must grow to still contain the morphed
// positions (zero if POSITION is not part of the morph stream).
func ProcessMorphTargets(layout *PackedLayout, inputs []MorphTargetInput) (morphBuffer []byte, targets []MeshletMorphTargetInfo, targetMask uint32, sphereRadiusDelta float32) {
	if layout.MorphStride == 0 || len(inputs) == 0 {
		return nil, nil, 0, 0
	}

	stride := int(layout.MorphStride)
	zero := make([]byte, stride)

	type slotEntry struct {
		info MeshletMorphTargetInfo
		used bool
	}
	maxSlot := 0
	for _, in := range inputs {
		if in.SlotIndex+1 > maxSlot {
			maxSlot = in.SlotIndex + 1
		}
	}
	slots := make([]slotEntry, maxSlot)

	posAttr := layout.FindAttribute(SemanticPosition, 0)
	positionMorphed := posAttr != nil && posAttr.Morph

	for _, in := range inputs {
		entry := &slots[in.SlotIndex]
		entry.info.DataIndex = uint32(len(morphBuffer) / stride)

		var maxDelta float32
		for v := range in.Vertices {
			packed := make([]byte, stride)
			layout.PackMorphVertex(&in.Vertices[v], packed)

			if positionMorphed {
				maxDelta = maxf(maxDelta, vec3Length(in.Vertices[v].Position))
			}

			if bytesEqual(packed, zero) {
				continue
			}

			entry.info.setModified(v)
			entry.used = true
			morphBuffer = append(morphBuffer, packed...)
		}

		sphereRadiusDelta += maxDelta
	}

	for i, s := range slots {
		if s.used {
			targetMask |= 1 << uint(i)
			targets = append(targets, s.info)
		}
	}

	return morphBuffer, targets, targetMask, sphereRadiusDelta
}
