package geometry

import "github.com/alseid-engine/anima/engine/math"

// AttributeFormat is the encoding used to pack one vertex attribute
// component group into a stream.
type AttributeFormat uint16

const (
	FormatFloat32 AttributeFormat = iota
	FormatFloat16
	FormatUnorm8
	FormatUnorm16
)

func componentSize(f AttributeFormat) int {
	switch f {
	case FormatFloat32:
		return 4
	case FormatFloat16, FormatUnorm16:
		return 2
	case FormatUnorm8:
		return 1
	}
	return 4
}

// Vertex holds one source vertex's attributes, already resolved to
// float32 components by the GLTF accessor reader regardless of the
// accessor's storage type (GLTF normalized integer attributes decode
// to floats in [0,1] or [-1,1]; non-normalized integers and floats
// pass through as-is).
type Vertex struct {
	Position math.Vec3
	Normal   math.Vec3
	Tangent  [4]float32
	TexCoord [][2]float32
	Color    [][4]float32
	Joints   [][4]uint32
	Weights  [][4]float32
}

// PackedAttribute locates one attribute within a PackedLayout's
// streams.
type PackedAttribute struct {
	Semantic      MeshletAttributeSemantic
	SemanticIndex uint16
	Stream        MeshletAttributeStream
	Format        AttributeFormat
	Components    int
	Offset        uint16
	Morph         bool
}

// PackedLayout is a material's packed vertex layout: the set of
// attributes every meshlet assigned to that material packs into its
// vertex, shading, and morph streams, plus the computed stride of
// each stream.
type PackedLayout struct {
	Attributes    []PackedAttribute
	VertexStride  uint16
	ShadingStride uint16
	MorphStride   uint16
}

// NewPackedLayout lays out attrs into the vertex/shading/morph
// streams in the order given, packing each attribute tightly and
// computing the resulting stream strides.
func NewPackedLayout(attrs []PackedAttribute) *PackedLayout {
	l := &PackedLayout{Attributes: append([]PackedAttribute(nil), attrs...)}

	var vertexOffset, shadingOffset, morphOffset uint16

	for i := range l.Attributes {
		a := &l.Attributes[i]
		size := uint16(componentSize(a.Format) * a.Components)

		switch a.Stream {
		case StreamVertexData:
			a.Offset = vertexOffset
			vertexOffset += size
		case StreamShadingData:
			a.Offset = shadingOffset
			shadingOffset += size
		}

		if a.Morph {
			a.Offset = morphOffset
			morphOffset += size
		}
	}

	l.VertexStride = vertexOffset
	l.ShadingStride = shadingOffset
	l.MorphStride = morphOffset
	return l
}

func encodeComponent(dst []byte, v float32, format AttributeFormat) {
	switch format {
	case FormatFloat32:
		putF32(dst, v)
	case FormatFloat16:
		putU16(dst, floatToHalf(v))
	case FormatUnorm8:
		dst[0] = byte(clamp01(v)*255.0 + 0.5)
	case FormatUnorm16:
		putU16(dst, uint16(clamp01(v)*65535.0+0.5))
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func putF32(dst []byte, v float32) {
	bits := f32bits(v)
	dst[0] = byte(bits)
	dst[1] = byte(bits >> 8)
	dst[2] = byte(bits >> 16)
	dst[3] = byte(bits >> 24)
}

func putU16(dst []byte, v uint16) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
}

// floatToHalf converts a float32 to an IEEE 754 binary16 value,
// rounding toward nearest-even and flushing results below the normal
// half range to signed zero.
func floatToHalf(f float32) uint16 {
	bits := f32bits(f)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xff) - 127 + 15
	mant := bits & 0x7fffff

	if exp <= 0 {
		return sign
	}
	if exp >= 0x1f {
		return sign | 0x7c00
	}
	half := uint32(sign) | uint32(exp)<<10 | mant>>13
	// A carry out of the mantissa bumps the exponent, which is the
	// correctly rounded result (up to infinity).
	if rem := mant & 0x1fff; rem > 0x1000 || (rem == 0x1000 && half&1 != 0) {
		half++
	}
	return uint16(half)
}

// componentsAt reads v's components for the given semantic/index into
// a fixed-size float32 slice; the number of valid entries is returned
// alongside.
func (v *Vertex) componentsAt(semantic MeshletAttributeSemantic, index uint16) ([4]float32, int) {
	switch semantic {
	case SemanticPosition:
		return [4]float32{v.Position.X, v.Position.Y, v.Position.Z, 0}, 3
	case SemanticNormal:
		return [4]float32{v.Normal.X, v.Normal.Y, v.Normal.Z, 0}, 3
	case SemanticTangent:
		return v.Tangent, 4
	case SemanticTexCoord:
		if int(index) < len(v.TexCoord) {
			t := v.TexCoord[index]
			return [4]float32{t[0], t[1], 0, 0}, 2
		}
	case SemanticColor:
		if int(index) < len(v.Color) {
			return v.Color[index], 4
		}
	case SemanticWeights:
		if int(index) < len(v.Weights) {
			return v.Weights[index], 4
		}
	case SemanticJoints:
		if int(index) < len(v.Joints) {
			j := v.Joints[index]
			return [4]float32{float32(j[0]), float32(j[1]), float32(j[2]), float32(j[3])}, 4
		}
	}
	return [4]float32{}, 0
}

// PackVertex encodes one vertex's non-morph attributes into a
// vertexStride+shadingStride sized buffer laid out as
// [vertex stream][shading stream].
func (l *PackedLayout) PackVertex(v *Vertex, dst []byte) {
	for _, a := range l.Attributes {
		if a.Morph {
			continue
		}

		var base int
		switch a.Stream {
		case StreamVertexData:
			base = int(a.Offset)
		case StreamShadingData:
			base = int(l.VertexStride) + int(a.Offset)
		default:
			continue
		}

		comps, n := v.componentsAt(a.Semantic, a.SemanticIndex)
		size := componentSize(a.Format)
		for c := 0; c < a.Components && c < n; c++ {
			encodeComponent(dst[base+c*size:], comps[c], a.Format)
		}
	}
}

// PackMorphVertex encodes one morphed vertex's morph-stream attributes
// into a morphStride sized buffer.
func (l *PackedLayout) PackMorphVertex(v *Vertex, dst []byte) {
	for _, a := range l.Attributes {
		if !a.Morph {
			continue
		}

		comps, n := v.componentsAt(a.Semantic, a.SemanticIndex)
		size := componentSize(a.Format)
		for c := 0; c < a.Components && c < n; c++ {
			encodeComponent(dst[int(a.Offset)+c*size:], comps[c], a.Format)
		}
	}
}

// FindAttribute looks up one of the layout's attributes by semantic.
func (l *PackedLayout) FindAttribute(semantic MeshletAttributeSemantic, index uint16) *PackedAttribute {
	for i := range l.Attributes {
		if l.Attributes[i].Semantic == semantic && l.Attributes[i].SemanticIndex == index {
			return &l.Attributes[i]
		}
	}
	return nil
}
