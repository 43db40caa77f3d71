package far

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStencilTable(t *testing.T) {
	st, err := NewStencilTable(4,
		[]int32{2, 1, 3},
		[]Index{0, 1, 2, 1, 2, 3},
		[]float32{0.5, 0.5, 1, 0.25, 0.5, 0.25})
	require.NoError(t, err)

	assert.Equal(t, 3, st.NumStencils())
	assert.Equal(t, 4, st.NumControlVertices())
	assert.Equal(t, Stencil{Indices: []Index{2}, Weights: []float32{1}}, st.Stencil(1))
	assert.Equal(t, 3, st.Stencil(2).Size())
	assert.Equal(t, []int32{2, 1, 3}, st.Sizes())
	assert.Len(t, st.ControlIndices(), 6)
	assert.Len(t, st.Weights(), 6)

	assertViolation(t, func() { st.Stencil(3) })
	assertViolation(t, func() { st.Stencil(-1) })
}

func TestNewStencilTableErrors(t *testing.T) {
	tests := []struct {
		name    string
		sizes   []int32
		indices []Index
		weights []float32
	}{
		{"length mismatch", []int32{2}, []Index{0, 1}, []float32{1}},
		{"negative size", []int32{-1, 3}, []Index{0, 1}, []float32{1, 1}},
		{"size sum", []int32{1, 2}, []Index{0, 1}, []float32{1, 1}},
		{"index out of range", []int32{2}, []Index{0, 4}, []float32{1, 1}},
		{"negative index", []int32{1}, []Index{-1}, []float32{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStencilTable(4, tt.sizes, tt.indices, tt.weights)
			assert.ErrorIs(t, err, ErrInvalidStencils)
		})
	}
}

func TestUpdateValues(t *testing.T) {
	src := SliceSource[vec3]{{0, 0, 0}, {2, 0, 0}, {2, 2, 0}, {0, 2, 4}}
	st, err := NewStencilTable(len(src),
		[]int32{2, 4},
		[]Index{0, 1, 0, 1, 2, 3},
		[]float32{0.5, 0.5, 0.25, 0.25, 0.25, 0.25})
	require.NoError(t, err)

	out := make([]frame, st.NumStencils())
	out[0].p = vec3{9, 9, 9}
	UpdateValues[vec3](st, src, func(i int) Accumulator[vec3] { return &out[i] })

	assertVecInDelta(t, vec3{1, 0, 0}, out[0].p, 1e-7)
	assertVecInDelta(t, vec3{1, 1, 1}, out[1].p, 1e-7)
	assert.Equal(t, vec3{}, out[1].ds)
}

func TestInterpolateSkipsInvalidSlots(t *testing.T) {
	src := &recordingSource{values: SliceSource[vec3]{{1, 0, 0}, {0, 1, 0}}}
	var f frame
	Interpolate[vec3]([]Index{0, InvalidIndex, 1}, []float32{0.5, 0, 0.5}, nil, nil, src, &f)

	assertVecInDelta(t, vec3{0.5, 0.5, 0}, f.p, 1e-7)
	assert.Len(t, src.seen, 2)
}
