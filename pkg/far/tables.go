package far

import (
	"fmt"
	"io"
	"sort"
)

// PatchHandle identifies one patch of the PatchTables that issued it.
type PatchHandle struct {
	ArrayIndex   int   // patch array holding the patch
	PatchIndex   int   // absolute index across all arrays
	VertexOffset Index // first control vertex in the flat vertex table
}

// patchArray is a run of patches sharing one descriptor.
type patchArray struct {
	desc        PatchDescriptor
	basis       Basis
	numPatches  int
	vertexStart Index // offset into PatchTables.patchVerts
	patchStart  int   // offset into PatchTables.paramTable
	quadStart   Index // offset into PatchTables.quadOffsets
}

func (pa *patchArray) stride() int { return pa.desc.NumControlVertices() }

// PatchTables holds arrays of patches produced by adaptive refinement and
// everything needed to evaluate them. Construct with a Builder.
type PatchTables struct {
	maxValence   int
	numPtexFaces int
	adaptive     bool

	arrays     []patchArray
	patchVerts []Index
	paramTable []PatchParam

	endCapVertex  Stencils
	endCapVarying Stencils
	quadOffsets   []uint32
	valenceTable  []Index

	fvarChannels []fvarChannel

	sharpnessIndices []Index
	sharpnessValues  []float32
}

// IsFeatureAdaptive reports whether the tables hold adaptive patch types
// rather than uniformly refined bilinear quads.
func (pt *PatchTables) IsFeatureAdaptive() bool { return pt.adaptive }

// NumControlVerticesTotal returns the length of the flat control-vertex
// table.
func (pt *PatchTables) NumControlVerticesTotal() int { return len(pt.patchVerts) }

// NumPatchesTotal returns the number of patches across all arrays.
func (pt *PatchTables) NumPatchesTotal() int { return len(pt.paramTable) }

// MaxValence returns the highest vertex valence of the source mesh.
func (pt *PatchTables) MaxValence() int { return pt.maxValence }

// NumPtexFaces returns the number of ptex faces of the source mesh.
func (pt *PatchTables) NumPtexFaces() int { return pt.numPtexFaces }

// NumPatchArrays returns the number of patch arrays.
func (pt *PatchTables) NumPatchArrays() int { return len(pt.arrays) }

func (pt *PatchTables) array(a int) *patchArray {
	if a < 0 || a >= len(pt.arrays) {
		violatef("patch array %d out of range [0,%d)", a, len(pt.arrays))
	}
	return &pt.arrays[a]
}

func (pt *PatchTables) patchIndex(a, p int) int {
	pa := pt.array(a)
	if p < 0 || p >= pa.numPatches {
		violatef("patch %d out of range [0,%d) in array %d", p, pa.numPatches, a)
	}
	return pa.patchStart + p
}

func (pt *PatchTables) checkHandle(h PatchHandle) *patchArray {
	pa := pt.array(h.ArrayIndex)
	local := h.PatchIndex - pa.patchStart
	if local < 0 || local >= pa.numPatches ||
		h.VertexOffset != pa.vertexStart+Index(local*pa.stride()) {
		violatef("invalid patch handle %+v", h)
	}
	return pa
}

// Handle returns the handle of patch p in array a.
func (pt *PatchTables) Handle(a, p int) PatchHandle {
	idx := pt.patchIndex(a, p)
	pa := &pt.arrays[a]
	return PatchHandle{
		ArrayIndex:   a,
		PatchIndex:   idx,
		VertexOffset: pa.vertexStart + Index(p*pa.stride()),
	}
}

// HandleAt returns the handle of the patch with absolute index i.
func (pt *PatchTables) HandleAt(i int) PatchHandle {
	if i < 0 || i >= len(pt.paramTable) {
		violatef("patch %d out of range [0,%d)", i, len(pt.paramTable))
	}
	a := sort.Search(len(pt.arrays), func(k int) bool {
		pa := &pt.arrays[k]
		return pa.patchStart+pa.numPatches > i
	})
	return pt.Handle(a, i-pt.arrays[a].patchStart)
}

// PatchDescriptor returns the descriptor of the patch identified by h.
func (pt *PatchTables) PatchDescriptor(h PatchHandle) PatchDescriptor {
	return pt.checkHandle(h).desc
}

// PatchVertices returns the control-vertex indices of the patch
// identified by h.
func (pt *PatchTables) PatchVertices(h PatchHandle) []Index {
	pa := pt.checkHandle(h)
	n := Index(pa.stride())
	return pt.patchVerts[h.VertexOffset : h.VertexOffset+n : h.VertexOffset+n]
}

// PatchParam returns the parametric bitfield of the patch identified by h.
func (pt *PatchTables) PatchParam(h PatchHandle) PatchParam {
	pt.checkHandle(h)
	return pt.paramTable[h.PatchIndex]
}

// PatchVerticesAt returns the control-vertex indices of patch p in array a.
func (pt *PatchTables) PatchVerticesAt(a, p int) []Index {
	return pt.PatchVertices(pt.Handle(a, p))
}

// PatchParamAt returns the parametric bitfield of patch p in array a.
func (pt *PatchTables) PatchParamAt(a, p int) PatchParam {
	return pt.paramTable[pt.patchIndex(a, p)]
}

// NumPatches returns the number of patches in array a.
func (pt *PatchTables) NumPatches(a int) int { return pt.array(a).numPatches }

// NumControlVertices returns the number of control-vertex indices in
// array a.
func (pt *PatchTables) NumControlVertices(a int) int {
	pa := pt.array(a)
	return pa.numPatches * pa.stride()
}

// PatchArrayDescriptor returns the descriptor shared by array a.
func (pt *PatchTables) PatchArrayDescriptor(a int) PatchDescriptor { return pt.array(a).desc }

// PatchArrayVertices returns the control-vertex indices of every patch in
// array a.
func (pt *PatchTables) PatchArrayVertices(a int) []Index {
	pa := pt.array(a)
	end := pa.vertexStart + Index(pa.numPatches*pa.stride())
	return pt.patchVerts[pa.vertexStart:end:end]
}

// PatchParams returns the bitfields of every patch in array a.
func (pt *PatchTables) PatchParams(a int) []PatchParam {
	pa := pt.array(a)
	end := pa.patchStart + pa.numPatches
	return pt.paramTable[pa.patchStart:end:end]
}

// FindPatchArray returns the index of the array using desc, or -1.
func (pt *PatchTables) FindPatchArray(desc PatchDescriptor) int {
	for i := range pt.arrays {
		if pt.arrays[i].desc == desc {
			return i
		}
	}
	return -1
}

// PatchQuadOffsets returns the four quad offsets of a legacy Gregory
// patch, or nil when the tables carry none.
func (pt *PatchTables) PatchQuadOffsets(h PatchHandle) []uint32 {
	pa := pt.checkHandle(h)
	if len(pt.quadOffsets) == 0 || (pa.desc.Type != Gregory && pa.desc.Type != GregoryBoundary) {
		return nil
	}
	start := pa.quadStart + Index((h.PatchIndex-pa.patchStart)*4)
	return pt.quadOffsets[start : start+4 : start+4]
}

// VertexValenceTable returns the legacy Gregory neighbourhood table.
func (pt *PatchTables) VertexValenceTable() []Index { return pt.valenceTable }

// EndCapVertexStencils returns the stencils producing the control points
// of Gregory-basis patches, or nil.
func (pt *PatchTables) EndCapVertexStencils() Stencils { return pt.endCapVertex }

// EndCapVaryingStencils returns the varying counterpart of
// EndCapVertexStencils, or nil.
func (pt *PatchTables) EndCapVaryingStencils() Stencils { return pt.endCapVarying }

// NumSourceVertices returns how many entries a vertex source needs for
// every patch to evaluate: one past the largest control-vertex index,
// or the source count of the end-cap stencils when that is larger.
// Gregory-basis points come from the stencils, so their indices do not
// count.
func (pt *PatchTables) NumSourceVertices() int {
	n := 0
	for a := range pt.arrays {
		if pt.arrays[a].desc.Type == GregoryBasis {
			continue
		}
		n = max(n, maxIndex(pt.PatchArrayVertices(a))+1)
	}
	for _, st := range []Stencils{pt.endCapVertex, pt.endCapVarying} {
		if src, ok := st.(interface{ NumControlVertices() int }); ok {
			n = max(n, src.NumControlVertices())
		}
	}
	return n
}

func maxIndex(indices []Index) int {
	m := -1
	for _, i := range indices {
		m = max(m, int(i))
	}
	return m
}

// SingleCreaseSharpness returns the crease sharpness of the patch
// identified by h, or 0 when it has none.
func (pt *PatchTables) SingleCreaseSharpness(h PatchHandle) float32 {
	pt.checkHandle(h)
	return pt.sharpnessAt(h.PatchIndex)
}

// SingleCreaseSharpnessAt returns the crease sharpness of patch p in
// array a, or 0 when it has none.
func (pt *PatchTables) SingleCreaseSharpnessAt(a, p int) float32 {
	return pt.sharpnessAt(pt.patchIndex(a, p))
}

func (pt *PatchTables) sharpnessAt(i int) float32 {
	if i >= len(pt.sharpnessIndices) {
		return 0
	}
	idx := pt.sharpnessIndices[i]
	if idx < 0 {
		return 0
	}
	return pt.sharpnessValues[idx]
}

// PatchControlVerticesTable returns the flat control-vertex table.
func (pt *PatchTables) PatchControlVerticesTable() []Index { return pt.patchVerts }

// PatchParamTable returns one bitfield per patch, in array order.
func (pt *PatchTables) PatchParamTable() []PatchParam { return pt.paramTable }

// SharpnessIndexTable returns, per patch, an index into SharpnessValues or
// InvalidIndex. It is empty when no patch carries a crease.
func (pt *PatchTables) SharpnessIndexTable() []Index { return pt.sharpnessIndices }

// SharpnessValues returns the distinct crease sharpness values.
func (pt *PatchTables) SharpnessValues() []float32 { return pt.sharpnessValues }

// QuadOffsetsTable returns the legacy Gregory quad-offsets table.
func (pt *PatchTables) QuadOffsetsTable() []uint32 { return pt.quadOffsets }

// Dump writes a human-readable listing of the tables to w.
func (pt *PatchTables) Dump(w io.Writer) error {
	var err error
	printf := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	printf("patchTables (adaptive=%t maxValence=%d ptexFaces=%d)\n",
		pt.adaptive, pt.maxValence, pt.numPtexFaces)
	for a := range pt.arrays {
		pa := &pt.arrays[a]
		printf("  array %d: %s patches=%d basis=%s\n", a, pa.desc, pa.numPatches, pa.basis)
		for p := 0; p < pa.numPatches; p++ {
			h := pt.Handle(a, p)
			printf("    patch %d: cvs=%v %s", h.PatchIndex, pt.PatchVertices(h), pt.paramTable[h.PatchIndex])
			if sharp := pt.sharpnessAt(h.PatchIndex); sharp > 0 {
				printf(" sharpness=%g", sharp)
			}
			printf("\n")
		}
	}
	for c := range pt.fvarChannels {
		ch := &pt.fvarChannels[c]
		printf("  fvar channel %d: interpolation=%s values=%d\n", c, ch.interpolation, len(ch.values))
	}
	if pt.endCapVertex != nil {
		printf("  end-cap vertex stencils: %d\n", pt.endCapVertex.NumStencils())
	}
	if pt.endCapVarying != nil {
		printf("  end-cap varying stencils: %d\n", pt.endCapVarying.NumStencils())
	}
	return err
}
