package far

import (
	"fmt"
	"math"

	"github.com/Faultbox/patchtables/pkg/sdc"
)

// Builder accumulates patch arrays and their attachments, then hands them
// over to an immutable PatchTables. It is the only mutating surface of the
// package and is not safe for concurrent use.
type Builder struct {
	tables    *PatchTables
	sharpness map[float32]Index
}

// NewBuilder returns a builder for tables of a mesh with the given maximum
// vertex valence and ptex face count.
func NewBuilder(maxValence, numPtexFaces int) *Builder {
	return &Builder{
		tables: &PatchTables{
			maxValence:   maxValence,
			numPtexFaces: numPtexFaces,
		},
		sharpness: make(map[float32]Index),
	}
}

func (b *Builder) live() (*PatchTables, error) {
	if b.tables == nil {
		return nil, ErrBuilderFinished
	}
	return b.tables, nil
}

// ReservePatchArrays preallocates room for n patch arrays.
func (b *Builder) ReservePatchArrays(n int) {
	if b.tables == nil || n <= cap(b.tables.arrays) {
		return
	}
	arrays := make([]patchArray, len(b.tables.arrays), n)
	copy(arrays, b.tables.arrays)
	b.tables.arrays = arrays
}

// PushPatchArray appends an array of numPatches patches of one descriptor
// and returns its index. verts holds the control vertices of every patch
// back to back, params one bitfield per patch. quadOffsets is only
// accepted for legacy Gregory arrays and holds four entries per patch.
func (b *Builder) PushPatchArray(desc PatchDescriptor, numPatches int, verts []Index, params []PatchParam, quadOffsets []uint32) (int, error) {
	pt, err := b.live()
	if err != nil {
		return -1, err
	}

	ncv := desc.NumControlVertices()
	switch {
	case !desc.Type.Valid() || ncv == 0:
		return -1, fmt.Errorf("%w: descriptor %s", ErrInvalidPatchArray, desc.Type)
	case numPatches <= 0:
		return -1, fmt.Errorf("%w: %d patches", ErrInvalidPatchArray, numPatches)
	case len(verts) != numPatches*ncv:
		return -1, fmt.Errorf("%w: %s needs %d vertices, got %d", ErrInvalidPatchArray, desc, numPatches*ncv, len(verts))
	case len(params) != numPatches:
		return -1, fmt.Errorf("%w: %d patches, %d params", ErrInvalidPatchArray, numPatches, len(params))
	case pt.FindPatchArray(desc) >= 0:
		return -1, fmt.Errorf("%w: %s", ErrDuplicatePatchArray, desc.Type)
	}
	if quadOffsets != nil {
		if desc.Type != Gregory && desc.Type != GregoryBoundary {
			return -1, fmt.Errorf("%w: quad offsets on %s array", ErrInvalidPatchArray, desc.Type)
		}
		if len(quadOffsets) != 4*numPatches {
			return -1, fmt.Errorf("%w: need %d quad offsets, got %d", ErrInvalidPatchArray, 4*numPatches, len(quadOffsets))
		}
	}
	for i, p := range params {
		if limit := uint16(1) << p.level(); p.U() >= limit || p.V() >= limit {
			return -1, fmt.Errorf("%w: patch %d: %s", ErrInvalidPatchArray, i, p)
		}
	}

	pa := patchArray{
		desc:        desc,
		basis:       desc.Basis(),
		numPatches:  numPatches,
		vertexStart: Index(len(pt.patchVerts)),
		patchStart:  len(pt.paramTable),
		quadStart:   Index(len(pt.quadOffsets)),
	}
	pt.arrays = append(pt.arrays, pa)
	pt.patchVerts = append(pt.patchVerts, verts...)
	pt.paramTable = append(pt.paramTable, params...)
	pt.quadOffsets = append(pt.quadOffsets, quadOffsets...)
	if desc.IsAdaptive() {
		pt.adaptive = true
	}
	return len(pt.arrays) - 1, nil
}

// SetSingleCreaseSharpness records the crease sharpness of patch p in
// array a. Equal sharpness values share one entry of the value table.
func (b *Builder) SetSingleCreaseSharpness(a, p int, sharpness float32) error {
	pt, err := b.live()
	if err != nil {
		return err
	}
	if a < 0 || a >= len(pt.arrays) || p < 0 || p >= pt.arrays[a].numPatches {
		return fmt.Errorf("%w: array %d patch %d", ErrInvalidPatch, a, p)
	}
	if !(sharpness >= 0) || math.IsInf(float64(sharpness), 1) {
		return fmt.Errorf("%w: sharpness %g", ErrInvalidPatch, sharpness)
	}

	idx, ok := b.sharpness[sharpness]
	if !ok {
		idx = Index(len(pt.sharpnessValues))
		pt.sharpnessValues = append(pt.sharpnessValues, sharpness)
		b.sharpness[sharpness] = idx
	}
	for len(pt.sharpnessIndices) < len(pt.paramTable) {
		pt.sharpnessIndices = append(pt.sharpnessIndices, InvalidIndex)
	}
	pt.sharpnessIndices[pt.arrays[a].patchStart+p] = idx
	return nil
}

// SetVertexValenceTable attaches the legacy Gregory neighbourhood table.
func (b *Builder) SetVertexValenceTable(table []Index) error {
	pt, err := b.live()
	if err != nil {
		return err
	}
	pt.valenceTable = table
	return nil
}

// SetEndCapStencils attaches the stencil tables producing Gregory-basis
// control points. The tables are referenced, not copied; they must not be
// modified afterwards.
func (b *Builder) SetEndCapStencils(vertex, varying Stencils) error {
	pt, err := b.live()
	if err != nil {
		return err
	}
	pt.endCapVertex = vertex
	pt.endCapVarying = varying
	return nil
}

// AllocateFVarChannels creates n empty face-varying channels.
func (b *Builder) AllocateFVarChannels(n int) error {
	pt, err := b.live()
	if err != nil {
		return err
	}
	if len(pt.fvarChannels) > 0 {
		return fmt.Errorf("%w: channels already allocated", ErrInvalidFVarChannel)
	}
	if n < 0 {
		return fmt.Errorf("%w: %d channels", ErrInvalidFVarChannel, n)
	}
	pt.fvarChannels = make([]fvarChannel, n)
	for i := range pt.fvarChannels {
		pt.fvarChannels[i].offsets = []Index{0}
		pt.fvarChannels[i].patchesType = Quads
	}
	return nil
}

func (b *Builder) channel(ch int) (*fvarChannel, error) {
	pt, err := b.live()
	if err != nil {
		return nil, err
	}
	if ch < 0 || ch >= len(pt.fvarChannels) {
		return nil, fmt.Errorf("%w: channel %d of %d", ErrInvalidFVarChannel, ch, len(pt.fvarChannels))
	}
	return &pt.fvarChannels[ch], nil
}

// SetFVarChannelLinearInterpolation sets the interpolation mode of a
// channel.
func (b *Builder) SetFVarChannelLinearInterpolation(ch int, interp sdc.FVarLinearInterpolation) error {
	c, err := b.channel(ch)
	if err != nil {
		return err
	}
	c.interpolation = interp
	return nil
}

// SetFVarChannelPatchesType sets the patch type shared by every patch of a
// channel. It must be called before any patch is appended.
func (b *Builder) SetFVarChannelPatchesType(ch int, t PatchType) error {
	c, err := b.channel(ch)
	if err != nil {
		return err
	}
	if c.numPatches() > 0 {
		return fmt.Errorf("%w: channel %d already has patches", ErrInvalidFVarChannel, ch)
	}
	c.patchesType = t
	return nil
}

// AppendFVarPatch appends the next patch of a channel. Patches must be
// appended in absolute patch order.
func (b *Builder) AppendFVarPatch(ch int, t PatchType, values []Index) error {
	c, err := b.channel(ch)
	if err != nil {
		return err
	}
	if n := NewDescriptor(t).NumControlVertices(); n == 0 || len(values) != n {
		return fmt.Errorf("%w: %s patch needs %d values, got %d", ErrInvalidFVarChannel, t, n, len(values))
	}

	if len(c.types) == 0 && t != c.patchesType {
		c.types = make([]PatchType, c.numPatches(), c.numPatches()+1)
		for i := range c.types {
			c.types[i] = c.patchesType
		}
	}
	if len(c.types) > 0 || t != c.patchesType {
		c.types = append(c.types, t)
	}
	c.values = append(c.values, values...)
	c.offsets = append(c.offsets, Index(len(c.values)))
	return nil
}

// Build validates the accumulated data and returns the finished tables.
// The builder cannot be used afterwards.
func (b *Builder) Build() (*PatchTables, error) {
	pt, err := b.live()
	if err != nil {
		return nil, err
	}

	for a := range pt.arrays {
		pa := &pt.arrays[a]
		if pa.desc.Type != GregoryBasis {
			continue
		}
		rows := pa.numPatches * pa.stride()
		if pt.endCapVertex == nil {
			return nil, fmt.Errorf("%w: array %d is %s", ErrMissingStencils, a, pa.desc.Type)
		}
		if n := pt.endCapVertex.NumStencils(); n < rows {
			return nil, fmt.Errorf("%w: %d vertex stencils, need %d", ErrInvalidStencils, n, rows)
		}
		if pt.endCapVarying != nil {
			if n := pt.endCapVarying.NumStencils(); n < rows {
				return nil, fmt.Errorf("%w: %d varying stencils, need %d", ErrInvalidStencils, n, rows)
			}
		}
	}

	total := len(pt.paramTable)
	for i := range pt.fvarChannels {
		if n := pt.fvarChannels[i].numPatches(); n != total {
			return nil, fmt.Errorf("%w: channel %d has %d patches, tables have %d", ErrInvalidFVarChannel, i, n, total)
		}
	}
	if len(pt.sharpnessIndices) > 0 {
		for len(pt.sharpnessIndices) < total {
			pt.sharpnessIndices = append(pt.sharpnessIndices, InvalidIndex)
		}
	}

	b.tables = nil
	b.sharpness = nil
	return pt, nil
}
