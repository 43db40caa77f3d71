package primvar

import "github.com/Faultbox/patchtables/pkg/far"

// Vec3Buffer holds one position per control vertex.
type Vec3Buffer []Vec3

// At returns the position of vertex i.
func (b Vec3Buffer) At(i far.Index) Vec3 { return b[i] }

// Len returns the number of positions.
func (b Vec3Buffer) Len() int { return len(b) }

// Vec2Buffer holds one 2D value per control vertex or face-varying value.
type Vec2Buffer []Vec2

// At returns value i.
func (b Vec2Buffer) At(i far.Index) Vec2 { return b[i] }

// Len returns the number of values.
func (b Vec2Buffer) Len() int { return len(b) }

// LimitFrame accumulates a limit position and its two partial derivatives.
type LimitFrame struct {
	P, DS, DT Vec3
}

// Clear zeroes the frame.
func (f *LimitFrame) Clear() { *f = LimitFrame{} }

// AddWithWeight accumulates v.
func (f *LimitFrame) AddWithWeight(v Vec3, w, ds, dt float32) {
	f.P = f.P.AddScaled(v, w)
	f.DS = f.DS.AddScaled(v, ds)
	f.DT = f.DT.AddScaled(v, dt)
}

// Normal returns the unit surface normal, or zero where the tangents are
// degenerate.
func (f *LimitFrame) Normal() Vec3 {
	return f.DS.Cross(f.DT).Normalize()
}

// UVFrame accumulates a 2D value and its two partial derivatives.
type UVFrame struct {
	UV, DS, DT Vec2
}

// Clear zeroes the frame.
func (f *UVFrame) Clear() { *f = UVFrame{} }

// AddWithWeight accumulates v.
func (f *UVFrame) AddWithWeight(v Vec2, w, ds, dt float32) {
	f.UV = f.UV.Add(v.Scale(w))
	f.DS = f.DS.Add(v.Scale(ds))
	f.DT = f.DT.Add(v.Scale(dt))
}

// Floats is a strided buffer of arbitrary float attributes: element i is
// Data[i*Stride : (i+1)*Stride].
type Floats struct {
	Data   []float32
	Stride int
}

// NewFloats allocates a buffer of n elements of the given stride.
func NewFloats(n, stride int) Floats {
	return Floats{Data: make([]float32, n*stride), Stride: stride}
}

// Len returns the number of elements.
func (f Floats) Len() int {
	if f.Stride == 0 {
		return 0
	}
	return len(f.Data) / f.Stride
}

// At returns element i, aliasing the buffer.
func (f Floats) At(i far.Index) []float32 {
	start := int(i) * f.Stride
	return f.Data[start : start+f.Stride : start+f.Stride]
}

// FloatFrame accumulates a strided element and its derivatives.
// Derivative channels are only written when allocated.
type FloatFrame struct {
	Value, DS, DT []float32
}

// NewFloatFrame allocates a frame of the given width; withDerivs also
// allocates both derivative channels.
func NewFloatFrame(width int, withDerivs bool) *FloatFrame {
	f := &FloatFrame{Value: make([]float32, width)}
	if withDerivs {
		f.DS = make([]float32, width)
		f.DT = make([]float32, width)
	}
	return f
}

// Clear zeroes every allocated channel.
func (f *FloatFrame) Clear() {
	clear(f.Value)
	clear(f.DS)
	clear(f.DT)
}

// AddWithWeight accumulates v.
func (f *FloatFrame) AddWithWeight(v []float32, w, ds, dt float32) {
	for i := range f.Value {
		f.Value[i] += v[i] * w
	}
	for i := range f.DS {
		f.DS[i] += v[i] * ds
	}
	for i := range f.DT {
		f.DT[i] += v[i] * dt
	}
}

// Slot returns an accumulator writing element i of the buffer in place,
// without derivatives. It lets far.UpdateValues fill a Floats buffer.
func (f Floats) Slot(i int) far.Accumulator[[]float32] {
	return &FloatFrame{Value: f.At(far.Index(i))}
}

// Slot returns an accumulator writing element i of the buffer in place.
func (b Vec3Buffer) Slot(i int) far.Accumulator[Vec3] {
	return &vec3Slot{dst: &b[i]}
}

type vec3Slot struct {
	dst *Vec3
}

func (s *vec3Slot) Clear() { *s.dst = Vec3{} }

func (s *vec3Slot) AddWithWeight(v Vec3, w, _, _ float32) {
	*s.dst = s.dst.AddScaled(v, w)
}
