package far

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type vec3 struct {
	x, y, z float32
}

func (v vec3) add(o vec3, w float32) vec3 {
	return vec3{v.x + o.x*w, v.y + o.y*w, v.z + o.z*w}
}

func (v vec3) sub(o vec3) vec3 {
	return vec3{v.x - o.x, v.y - o.y, v.z - o.z}
}

func (v vec3) scale(s float32) vec3 {
	return vec3{v.x * s, v.y * s, v.z * s}
}

type frame struct {
	p, ds, dt vec3
}

func (f *frame) Clear() { *f = frame{} }

func (f *frame) AddWithWeight(v vec3, w, ds, dt float32) {
	f.p = f.p.add(v, w)
	f.ds = f.ds.add(v, ds)
	f.dt = f.dt.add(v, dt)
}

// recordingSource remembers every index it was asked for.
type recordingSource struct {
	values SliceSource[vec3]
	seen   map[Index]bool
}

func (r *recordingSource) At(i Index) vec3 {
	if r.seen == nil {
		r.seen = make(map[Index]bool)
	}
	r.seen[i] = true
	return r.values[i]
}

func assertVecInDelta(t *testing.T, want, got vec3, delta float64, msgAndArgs ...any) {
	t.Helper()
	require.InDelta(t, want.x, got.x, delta, msgAndArgs...)
	require.InDelta(t, want.y, got.y, delta, msgAndArgs...)
	require.InDelta(t, want.z, got.z, delta, msgAndArgs...)
}

// bumpyGrid returns a rows x cols control grid with non-planar heights.
func bumpyGrid(rows, cols int) []vec3 {
	heights := []float32{0.3, -0.7, 1.1, 0.4, -0.2, 0.9, -1.3, 0.6, 0.1, -0.5, 0.8, 1.4}
	grid := make([]vec3, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			z := heights[(r*7+c*5)%len(heights)]
			grid = append(grid, vec3{float32(c), float32(r), z})
		}
	}
	return grid
}

// seqIndices returns n consecutive indices starting at first.
func seqIndices(first, n int) []Index {
	idx := make([]Index, n)
	for i := range idx {
		idx[i] = Index(first + i)
	}
	return idx
}

// subGrid returns the indices of a 4x4 window of a grid with the given
// number of columns, rooted at (row, col).
func subGrid(cols, row, col int) []Index {
	idx := make([]Index, 0, 16)
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			idx = append(idx, Index((row+r)*cols+col+c))
		}
	}
	return idx
}

func params(n int) []PatchParam {
	p := make([]PatchParam, n)
	for i := range p {
		p[i] = NewPatchParam(Index(i), 0, 0, 0, false, 0, 0)
	}
	return p
}

func mustBuild(t *testing.T, b *Builder) *PatchTables {
	t.Helper()
	pt, err := b.Build()
	require.NoError(t, err)
	return pt
}

func sum(w []float32) float64 {
	var s float64
	for _, v := range w {
		s += float64(v)
	}
	return s
}

var samplePoints = []float32{0, 0.1, 0.25, 0.3, 0.5, 0.7, 0.9, 1}
