package far

// Source is an indexed, read-only primvar buffer.
type Source[V any] interface {
	At(i Index) V
}

// Accumulator receives a weighted combination of source elements. Clear
// resets the value and both derivative channels; AddWithWeight adds v
// scaled by w to the value and by ds, dt to the derivatives.
type Accumulator[V any] interface {
	Clear()
	AddWithWeight(v V, w, ds, dt float32)
}

// SliceSource adapts a plain slice to Source.
type SliceSource[V any] []V

// At returns element i.
func (s SliceSource[V]) At(i Index) V { return s[i] }

func weightAt(w []float32, k int) float32 {
	if w == nil {
		return 0
	}
	return w[k]
}

// Interpolate accumulates w[k]*src[cvs[k]] into dst. Slots holding
// InvalidIndex are skipped; their weight is zero by construction.
func Interpolate[V any](cvs []Index, w, ds, dt []float32, src Source[V], dst Accumulator[V]) {
	for k, idx := range cvs {
		if idx < 0 {
			continue
		}
		dst.AddWithWeight(src.At(idx), w[k], weightAt(ds, k), weightAt(dt, k))
	}
}

// InterpolateStencils accumulates the control points first..first+len(w)-1
// of a stencil table, each expanded into its weighted source vertices.
func InterpolateStencils[V any](st Stencils, first Index, w, ds, dt []float32, src Source[V], dst Accumulator[V]) {
	for k := range w {
		wk, dsk, dtk := w[k], weightAt(ds, k), weightAt(dt, k)
		s := st.Stencil(first + Index(k))
		for j, idx := range s.Indices {
			sw := s.Weights[j]
			dst.AddWithWeight(src.At(idx), wk*sw, dsk*sw, dtk*sw)
		}
	}
}
