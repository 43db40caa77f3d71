package far

import "fmt"

// Stencil is a read-only view of one weighted combination of control
// vertices.
type Stencil struct {
	Indices []Index
	Weights []float32
}

// Size returns the number of contributing control vertices.
func (s Stencil) Size() int { return len(s.Indices) }

// Stencils is the capability the evaluation engine needs from an end-cap
// stencil table: row lookup by target index.
type Stencils interface {
	NumStencils() int
	Stencil(i Index) Stencil
}

// StencilTable stores stencils as flat, offset-addressed runs.
type StencilTable struct {
	numControlVertices int
	sizes              []int32
	offsets            []Index
	indices            []Index
	weights            []float32
}

// NewStencilTable checks the shape of the given tables and wraps them.
// sizes holds one entry per stencil; indices and weights hold the runs
// back to back. Source indices must lie in [0, numControlVertices).
func NewStencilTable(numControlVertices int, sizes []int32, indices []Index, weights []float32) (*StencilTable, error) {
	if len(indices) != len(weights) {
		return nil, fmt.Errorf("%w: %d indices, %d weights", ErrInvalidStencils, len(indices), len(weights))
	}

	offsets := make([]Index, len(sizes))
	var total Index
	for i, n := range sizes {
		if n < 0 {
			return nil, fmt.Errorf("%w: stencil %d has negative size", ErrInvalidStencils, i)
		}
		offsets[i] = total
		total += n
	}
	if int(total) != len(indices) {
		return nil, fmt.Errorf("%w: sizes sum to %d, have %d entries", ErrInvalidStencils, total, len(indices))
	}
	for i, idx := range indices {
		if idx < 0 || int(idx) >= numControlVertices {
			return nil, fmt.Errorf("%w: entry %d references vertex %d of %d", ErrInvalidStencils, i, idx, numControlVertices)
		}
	}

	return &StencilTable{
		numControlVertices: numControlVertices,
		sizes:              sizes,
		offsets:            offsets,
		indices:            indices,
		weights:            weights,
	}, nil
}

// NumStencils returns the number of stencils.
func (st *StencilTable) NumStencils() int { return len(st.sizes) }

// NumControlVertices returns the number of source vertices the stencils
// reference.
func (st *StencilTable) NumControlVertices() int { return st.numControlVertices }

// Stencil returns stencil i.
func (st *StencilTable) Stencil(i Index) Stencil {
	if i < 0 || int(i) >= len(st.sizes) {
		violatef("stencil %d out of range [0,%d)", i, len(st.sizes))
	}
	off, n := st.offsets[i], st.sizes[i]
	return Stencil{
		Indices: st.indices[off : off+n : off+n],
		Weights: st.weights[off : off+n : off+n],
	}
}

// Sizes returns the per-stencil entry counts.
func (st *StencilTable) Sizes() []int32 { return st.sizes }

// ControlIndices returns all source indices back to back.
func (st *StencilTable) ControlIndices() []Index { return st.indices }

// Weights returns all weights back to back.
func (st *StencilTable) Weights() []float32 { return st.weights }

// UpdateValues writes the combination of every stencil into dst, one
// accumulator per stencil. dst is called with the stencil index and must
// return the accumulator receiving that stencil's value.
func UpdateValues[V any](st Stencils, src Source[V], dst func(i int) Accumulator[V]) {
	for i := 0; i < st.NumStencils(); i++ {
		acc := dst(i)
		acc.Clear()
		s := st.Stencil(Index(i))
		for k, idx := range s.Indices {
			acc.AddWithWeight(src.At(idx), s.Weights[k], 0, 0)
		}
	}
}
