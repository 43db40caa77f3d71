package far

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/patchtables/pkg/sdc"
)

// mixedTables builds a table with a regular, a boundary and a quads array.
func mixedTables(t *testing.T) *PatchTables {
	t.Helper()
	b := NewBuilder(4, 6)
	b.ReservePatchArrays(3)

	_, err := b.PushPatchArray(NewDescriptor(Regular), 2, append(seqIndices(0, 16), seqIndices(16, 16)...), params(2), nil)
	require.NoError(t, err)
	_, err = b.PushPatchArray(NewDescriptor(Boundary), 1, seqIndices(32, 12), params(1), nil)
	require.NoError(t, err)
	_, err = b.PushPatchArray(NewDescriptor(Quads), 3, seqIndices(44, 12), params(3), nil)
	require.NoError(t, err)

	require.NoError(t, b.SetSingleCreaseSharpness(0, 1, 2.5))
	return mustBuild(t, b)
}

func TestTablesAggregates(t *testing.T) {
	pt := mixedTables(t)

	assert.True(t, pt.IsFeatureAdaptive())
	assert.Equal(t, 3, pt.NumPatchArrays())
	assert.Equal(t, 6, pt.NumPatchesTotal())
	assert.Equal(t, 56, pt.NumControlVerticesTotal())
	assert.Equal(t, 4, pt.MaxValence())
	assert.Equal(t, 6, pt.NumPtexFaces())

	assert.Equal(t, 2, pt.NumPatches(0))
	assert.Equal(t, 32, pt.NumControlVertices(0))
	assert.Equal(t, 12, pt.NumControlVertices(2))
	assert.Equal(t, NewDescriptor(Boundary), pt.PatchArrayDescriptor(1))
	assert.Equal(t, seqIndices(32, 12), pt.PatchArrayVertices(1))
	assert.Len(t, pt.PatchParams(2), 3)
	assert.Equal(t, 2, pt.FindPatchArray(NewDescriptor(Quads)))
	assert.Equal(t, -1, pt.FindPatchArray(NewDescriptor(Corner)))
}

func TestNumSourceVertices(t *testing.T) {
	assert.Equal(t, 56, mixedTables(t).NumSourceVertices())

	// gregory-basis indices address stencil rows, not vertices
	sizes := make([]int32, 20)
	weights := make([]float32, 20)
	for i := range sizes {
		sizes[i], weights[i] = 1, 1
	}
	stencils, err := NewStencilTable(30, sizes, seqIndices(0, 20), weights)
	require.NoError(t, err)

	b := NewBuilder(4, 2)
	_, err = b.PushPatchArray(NewDescriptor(Quads), 1, seqIndices(20, 4), params(1), nil)
	require.NoError(t, err)
	_, err = b.PushPatchArray(NewDescriptor(GregoryBasis), 1, seqIndices(100, 20), params(1), nil)
	require.NoError(t, err)
	require.NoError(t, b.SetEndCapStencils(stencils, nil))
	assert.Equal(t, 30, mustBuild(t, b).NumSourceVertices())
}

func TestTablesHandles(t *testing.T) {
	pt := mixedTables(t)

	h := pt.Handle(2, 1)
	assert.Equal(t, PatchHandle{ArrayIndex: 2, PatchIndex: 4, VertexOffset: 48}, h)
	assert.Equal(t, h, pt.HandleAt(4))
	assert.Equal(t, seqIndices(48, 4), pt.PatchVertices(h))
	assert.Equal(t, pt.PatchVertices(h), pt.PatchVerticesAt(2, 1))
	assert.Equal(t, Index(1), pt.PatchParam(h).FaceID())
	assert.Equal(t, pt.PatchParam(h), pt.PatchParamAt(2, 1))
	assert.Equal(t, NewDescriptor(Quads), pt.PatchDescriptor(h))

	for i := 0; i < pt.NumPatchesTotal(); i++ {
		h := pt.HandleAt(i)
		assert.Equal(t, i, h.PatchIndex)
		assert.Len(t, pt.PatchVertices(h), pt.PatchDescriptor(h).NumControlVertices())
	}
}

func TestTablesLastPatch(t *testing.T) {
	pt := mixedTables(t)

	last := pt.HandleAt(pt.NumPatchesTotal() - 1)
	assert.Len(t, pt.PatchVertices(last), 4)
	assert.NotPanics(t, func() { pt.PatchParam(last) })

	assertViolation(t, func() { pt.HandleAt(pt.NumPatchesTotal()) })
	assertViolation(t, func() { pt.PatchVerticesAt(2, 3) })
	assertViolation(t, func() { pt.PatchParamAt(3, 0) })
	assertViolation(t, func() { pt.NumPatches(-1) })

	bogus := last
	bogus.PatchIndex++
	assertViolation(t, func() { pt.PatchParam(bogus) })

	skewed := last
	skewed.VertexOffset = 0
	assertViolation(t, func() { pt.PatchVertices(skewed) })
}

func assertViolation(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		require.NotNil(t, r, "expected a contract violation")
		_, ok := r.(*ContractError)
		assert.True(t, ok, "panic value %v is not a *ContractError", r)
	}()
	fn()
}

func TestTablesSharpness(t *testing.T) {
	pt := mixedTables(t)

	assert.Equal(t, float32(2.5), pt.SingleCreaseSharpnessAt(0, 1))
	assert.Equal(t, float32(2.5), pt.SingleCreaseSharpness(pt.Handle(0, 1)))
	assert.Zero(t, pt.SingleCreaseSharpnessAt(0, 0))
	assert.Zero(t, pt.SingleCreaseSharpnessAt(2, 2))
	assert.Len(t, pt.SharpnessIndexTable(), pt.NumPatchesTotal())
	assert.Equal(t, []float32{2.5}, pt.SharpnessValues())
}

func TestBuilderSharesSharpnessValues(t *testing.T) {
	b := NewBuilder(4, 3)
	_, err := b.PushPatchArray(NewDescriptor(SingleCrease), 3, seqIndices(0, 48), params(3), nil)
	require.NoError(t, err)
	require.NoError(t, b.SetSingleCreaseSharpness(0, 0, 1.5))
	require.NoError(t, b.SetSingleCreaseSharpness(0, 2, 1.5))
	require.NoError(t, b.SetSingleCreaseSharpness(0, 1, 3))
	pt := mustBuild(t, b)

	assert.Equal(t, []float32{1.5, 3}, pt.SharpnessValues())
	assert.Equal(t, []Index{0, 1, 0}, pt.SharpnessIndexTable())
}

func TestUniformTables(t *testing.T) {
	b := NewBuilder(4, 2)
	_, err := b.PushPatchArray(NewDescriptor(Quads), 2, seqIndices(0, 8), params(2), nil)
	require.NoError(t, err)
	pt := mustBuild(t, b)

	assert.False(t, pt.IsFeatureAdaptive())
	assert.Empty(t, pt.SharpnessIndexTable())
	assert.Nil(t, pt.EndCapVertexStencils())
	assert.Zero(t, pt.SingleCreaseSharpnessAt(0, 1))
}

func TestQuadOffsets(t *testing.T) {
	b := NewBuilder(5, 2)
	_, err := b.PushPatchArray(NewDescriptor(Regular), 1, seqIndices(0, 16), params(1), nil)
	require.NoError(t, err)
	_, err = b.PushPatchArray(NewDescriptor(Gregory), 2, seqIndices(16, 8), params(2), []uint32{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, err)
	require.NoError(t, b.SetVertexValenceTable([]Index{3, 1, 2, 3}))
	pt := mustBuild(t, b)

	assert.Equal(t, []uint32{5, 6, 7, 8}, pt.PatchQuadOffsets(pt.Handle(1, 1)))
	assert.Nil(t, pt.PatchQuadOffsets(pt.Handle(0, 0)))
	assert.Len(t, pt.QuadOffsetsTable(), 8)
	assert.Equal(t, []Index{3, 1, 2, 3}, pt.VertexValenceTable())
}

func TestBuilderErrors(t *testing.T) {
	tests := []struct {
		name string
		push func(b *Builder) error
		want error
	}{
		{
			name: "vertex count mismatch",
			push: func(b *Builder) error {
				_, err := b.PushPatchArray(NewDescriptor(Regular), 1, seqIndices(0, 15), params(1), nil)
				return err
			},
			want: ErrInvalidPatchArray,
		},
		{
			name: "param count mismatch",
			push: func(b *Builder) error {
				_, err := b.PushPatchArray(NewDescriptor(Quads), 2, seqIndices(0, 8), params(1), nil)
				return err
			},
			want: ErrInvalidPatchArray,
		},
		{
			name: "non-patch descriptor",
			push: func(b *Builder) error {
				_, err := b.PushPatchArray(NewDescriptor(NonPatch), 1, nil, params(1), nil)
				return err
			},
			want: ErrInvalidPatchArray,
		},
		{
			name: "duplicate descriptor",
			push: func(b *Builder) error {
				if _, err := b.PushPatchArray(NewDescriptor(Quads), 1, seqIndices(0, 4), params(1), nil); err != nil {
					return err
				}
				_, err := b.PushPatchArray(NewDescriptor(Quads), 1, seqIndices(4, 4), params(1), nil)
				return err
			},
			want: ErrDuplicatePatchArray,
		},
		{
			name: "quad offsets on regular array",
			push: func(b *Builder) error {
				_, err := b.PushPatchArray(NewDescriptor(Regular), 1, seqIndices(0, 16), params(1), []uint32{0, 1, 2, 3})
				return err
			},
			want: ErrInvalidPatchArray,
		},
		{
			name: "uv outside depth",
			push: func(b *Builder) error {
				p := []PatchParam{NewPatchParam(0, 2, 0, 1, false, 0, 0)}
				_, err := b.PushPatchArray(NewDescriptor(Quads), 1, seqIndices(0, 4), p, nil)
				return err
			},
			want: ErrInvalidPatchArray,
		},
		{
			name: "sharpness on missing patch",
			push: func(b *Builder) error {
				return b.SetSingleCreaseSharpness(0, 0, 1)
			},
			want: ErrInvalidPatch,
		},
		{
			name: "NaN sharpness",
			push: func(b *Builder) error {
				if _, err := b.PushPatchArray(NewDescriptor(SingleCrease), 1, seqIndices(0, 16), params(1), nil); err != nil {
					return err
				}
				return b.SetSingleCreaseSharpness(0, 0, float32(math.NaN()))
			},
			want: ErrInvalidPatch,
		},
		{
			name: "infinite sharpness",
			push: func(b *Builder) error {
				if _, err := b.PushPatchArray(NewDescriptor(SingleCrease), 1, seqIndices(0, 16), params(1), nil); err != nil {
					return err
				}
				return b.SetSingleCreaseSharpness(0, 0, float32(math.Inf(1)))
			},
			want: ErrInvalidPatch,
		},
		{
			name: "negative infinite sharpness",
			push: func(b *Builder) error {
				if _, err := b.PushPatchArray(NewDescriptor(SingleCrease), 1, seqIndices(0, 16), params(1), nil); err != nil {
					return err
				}
				return b.SetSingleCreaseSharpness(0, 0, float32(math.Inf(-1)))
			},
			want: ErrInvalidPatch,
		},
		{
			name: "negative fvar channel count",
			push: func(b *Builder) error {
				return b.AllocateFVarChannels(-1)
			},
			want: ErrInvalidFVarChannel,
		},
		{
			name: "gregory basis without stencils",
			push: func(b *Builder) error {
				if _, err := b.PushPatchArray(NewDescriptor(GregoryBasis), 1, seqIndices(0, 20), params(1), nil); err != nil {
					return err
				}
				_, err := b.Build()
				return err
			},
			want: ErrMissingStencils,
		},
		{
			name: "fvar channel too short",
			push: func(b *Builder) error {
				if _, err := b.PushPatchArray(NewDescriptor(Quads), 2, seqIndices(0, 8), params(2), nil); err != nil {
					return err
				}
				if err := b.AllocateFVarChannels(1); err != nil {
					return err
				}
				if err := b.AppendFVarPatch(0, Quads, seqIndices(0, 4)); err != nil {
					return err
				}
				_, err := b.Build()
				return err
			},
			want: ErrInvalidFVarChannel,
		},
		{
			name: "fvar value count",
			push: func(b *Builder) error {
				if err := b.AllocateFVarChannels(1); err != nil {
					return err
				}
				return b.AppendFVarPatch(0, Regular, seqIndices(0, 4))
			},
			want: ErrInvalidFVarChannel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.push(NewBuilder(4, 4))
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestBuilderFinished(t *testing.T) {
	b := NewBuilder(4, 1)
	_, err := b.PushPatchArray(NewDescriptor(Quads), 1, seqIndices(0, 4), params(1), nil)
	require.NoError(t, err)
	mustBuild(t, b)

	_, err = b.Build()
	assert.ErrorIs(t, err, ErrBuilderFinished)
	_, err = b.PushPatchArray(NewDescriptor(Regular), 1, seqIndices(0, 16), params(1), nil)
	assert.ErrorIs(t, err, ErrBuilderFinished)
}

func TestFVarChannels(t *testing.T) {
	b := NewBuilder(4, 3)
	_, err := b.PushPatchArray(NewDescriptor(Regular), 3, seqIndices(0, 48), params(3), nil)
	require.NoError(t, err)
	require.NoError(t, b.AllocateFVarChannels(2))

	// channel 0: uniform bilinear
	require.NoError(t, b.SetFVarChannelLinearInterpolation(0, sdc.FVarLinearAll))
	for p := 0; p < 3; p++ {
		require.NoError(t, b.AppendFVarPatch(0, Quads, seqIndices(4*p, 4)))
	}

	// channel 1: mixed types
	require.NoError(t, b.SetFVarChannelPatchesType(1, Regular))
	require.NoError(t, b.AppendFVarPatch(1, Regular, seqIndices(0, 16)))
	require.NoError(t, b.AppendFVarPatch(1, Corner, seqIndices(16, 9)))
	require.NoError(t, b.AppendFVarPatch(1, Regular, seqIndices(25, 16)))
	pt := mustBuild(t, b)

	require.Equal(t, 2, pt.NumFVarChannels())
	assert.Equal(t, sdc.FVarLinearAll, pt.FVarChannelLinearInterpolation(0))
	assert.Equal(t, sdc.FVarLinearNone, pt.FVarChannelLinearInterpolation(1))

	assert.Equal(t, []PatchType{Quads, Quads, Quads}, pt.FVarPatchTypes(0))
	assert.Equal(t, []PatchType{Regular, Corner, Regular}, pt.FVarPatchTypes(1))
	assert.Equal(t, Corner, pt.FVarPatchType(1, pt.Handle(0, 1)))
	assert.Equal(t, Corner, pt.FVarPatchTypeAt(1, 0, 1))

	assert.Equal(t, seqIndices(8, 4), pt.FVarPatchValues(0, pt.Handle(0, 2)))
	assert.Equal(t, seqIndices(16, 9), pt.FVarPatchValuesAt(1, 0, 1))
	assert.Len(t, pt.FVarPatchesValues(1), 41)
	assert.Equal(t, 12, pt.NumFVarValues(0))
	assert.Equal(t, 41, pt.NumFVarValues(1))

	assertViolation(t, func() { pt.FVarPatchTypes(2) })
	assertViolation(t, func() { pt.NumFVarValues(2) })
}

func TestDump(t *testing.T) {
	pt := mixedTables(t)

	var buf bytes.Buffer
	require.NoError(t, pt.Dump(&buf))
	out := buf.String()
	assert.Contains(t, out, "array 0: REGULAR(16) patches=2 basis=bspline")
	assert.Contains(t, out, "array 2: QUADS(4) patches=3 basis=bilinear")
	assert.Contains(t, out, "sharpness=2.5")
}
