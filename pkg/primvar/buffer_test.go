package primvar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/patchtables/pkg/far"
)

func TestLimitFrame(t *testing.T) {
	var f LimitFrame
	f.AddWithWeight(Vec3{X: 2}, 0.5, 1, 0)
	f.AddWithWeight(Vec3{Y: 2}, 0.5, 0, 1)

	assert.Equal(t, Vec3{X: 1, Y: 1}, f.P)
	assert.Equal(t, Vec3{X: 2}, f.DS)
	assert.Equal(t, Vec3{Y: 2}, f.DT)
	assert.Equal(t, Vec3{Z: 1}, f.Normal())

	f.Clear()
	assert.Equal(t, LimitFrame{}, f)
	assert.Equal(t, Vec3{}, f.Normal())
}

func TestUVFrame(t *testing.T) {
	var f UVFrame
	f.AddWithWeight(Vec2{X: 1, Y: 2}, 0.25, -1, 2)
	assert.Equal(t, UVFrame{UV: Vec2{0.25, 0.5}, DS: Vec2{-1, -2}, DT: Vec2{2, 4}}, f)
}

func TestFloats(t *testing.T) {
	buf := NewFloats(3, 2)
	assert.Equal(t, 3, buf.Len())
	assert.Equal(t, 0, Floats{}.Len())

	copy(buf.At(1), []float32{5, 6})
	assert.Equal(t, []float32{0, 0, 5, 6, 0, 0}, buf.Data)

	// At is capped so an append cannot spill into the next element
	_ = append(buf.At(0), 9)
	assert.Equal(t, float32(5), buf.Data[2])
}

func TestFloatFrame(t *testing.T) {
	plain := NewFloatFrame(2, false)
	plain.AddWithWeight([]float32{1, 2}, 2, 1, 1)
	assert.Equal(t, []float32{2, 4}, plain.Value)
	assert.Nil(t, plain.DS)

	full := NewFloatFrame(2, true)
	full.AddWithWeight([]float32{1, 2}, 2, 3, -1)
	assert.Equal(t, []float32{3, 6}, full.DS)
	assert.Equal(t, []float32{-1, -2}, full.DT)

	full.Clear()
	assert.Equal(t, []float32{0, 0}, full.Value)
	assert.Equal(t, []float32{0, 0}, full.DS)
}

func TestSlotsWithStencils(t *testing.T) {
	// two stencils: the midpoint of 0 and 1, and vertex 2
	st, err := far.NewStencilTable(3, []int32{2, 1}, []far.Index{0, 1, 2}, []float32{0.5, 0.5, 1})
	require.NoError(t, err)

	points := Vec3Buffer{{X: 0}, {X: 2}, {Z: 7}}
	out := make(Vec3Buffer, 2)
	out[0] = Vec3{X: 100} // overwritten, not accumulated
	far.UpdateValues[Vec3](st, points, out.Slot)
	assert.Equal(t, Vec3Buffer{{X: 1}, {Z: 7}}, out)

	attrs := Floats{Data: []float32{0, 10, 4, 20, 8, 30}, Stride: 2}
	dst := NewFloats(2, 2)
	far.UpdateValues[[]float32](st, attrs, dst.Slot)
	assert.Equal(t, []float32{2, 15, 8, 30}, dst.Data)
}
