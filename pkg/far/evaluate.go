package far

// Evaluation entry points are free functions because Go methods cannot
// carry type parameters. They only read the tables, so any number of
// goroutines may evaluate the same tables concurrently as long as each
// uses its own destination.

// weights is scratch space for one evaluation.
type weights struct {
	w, ds, dt [MaxPatchWeights]float32
}

func (q *weights) slices(n int) (w, ds, dt []float32) {
	return q.w[:n], q.ds[:n], q.dt[:n]
}

// Evaluate computes the limit value and derivatives of the patch
// identified by h at patch-local (s, t). The tables must be feature
// adaptive. Legacy Gregory patches are not evaluable here and, like any
// other unsupported type, cause a contract violation.
func Evaluate[V any](pt *PatchTables, h PatchHandle, s, t float32, src Source[V], dst Accumulator[V]) {
	if !pt.IsFeatureAdaptive() {
		violatef("Evaluate requires feature-adaptive tables")
	}
	pa := pt.checkHandle(h)
	param := pt.paramTable[h.PatchIndex]

	dst.Clear()

	var q weights
	switch pa.basis {
	case BasisBSpline:
		w, ds, dt := q.slices(16)
		BSplineWeights(param, s, t, w, ds, dt)
		Interpolate(pt.PatchVertices(h), w, ds, dt, src, dst)
	case BasisBSplineCrease:
		w, ds, dt := q.slices(16)
		SingleCreaseWeights(param, pt.sharpnessAt(h.PatchIndex), s, t, w, ds, dt)
		Interpolate(pt.PatchVertices(h), w, ds, dt, src, dst)
	case BasisBSplineBoundary:
		w, ds, dt := q.slices(12)
		BoundaryWeights(param, s, t, w, ds, dt)
		Interpolate(pt.PatchVertices(h), w, ds, dt, src, dst)
	case BasisBSplineCorner:
		w, ds, dt := q.slices(9)
		CornerWeights(param, s, t, w, ds, dt)
		Interpolate(pt.PatchVertices(h), w, ds, dt, src, dst)
	case BasisGregory:
		if pt.endCapVertex == nil {
			violatef("Gregory-basis patch %d has no end-cap vertex stencils", h.PatchIndex)
		}
		w, ds, dt := q.slices(20)
		GregoryWeights(param, s, t, w, ds, dt)
		InterpolateStencils(pt.endCapVertex, h.VertexOffset-pa.vertexStart, w, ds, dt, src, dst)
	case BasisBilinear:
		w, ds, dt := q.slices(4)
		BilinearWeights(param, s, t, w, ds, dt)
		Interpolate(pt.PatchVertices(h), w, ds, dt, src, dst)
	default:
		violatef("Evaluate does not support %s patches", pa.desc.Type)
	}
}

// EvaluateBilinear interpolates the four control vertices of the patch
// identified by h bilinearly, whatever its stored type. It is meant for
// uniformly refined tables of quads.
func EvaluateBilinear[V any](pt *PatchTables, h PatchHandle, s, t float32, src Source[V], dst Accumulator[V]) {
	cvs := pt.PatchVertices(h)
	if len(cvs) != 4 {
		violatef("EvaluateBilinear needs 4 control vertices, %s has %d", pt.arrays[h.ArrayIndex].desc.Type, len(cvs))
	}
	param := pt.paramTable[h.PatchIndex]

	dst.Clear()

	var q weights
	w, ds, dt := q.slices(4)
	BilinearWeights(param, s, t, w, ds, dt)
	Interpolate(cvs, w, ds, dt, src, dst)
}

// EvaluateFaceVarying evaluates a face-varying channel over the patch
// identified by h. Only the channel's own patch type and value indices are
// read; face-varying patches carry no boundary or depth information, so a
// cleared PatchParam drives the weights.
func EvaluateFaceVarying[V any](pt *PatchTables, channel int, h PatchHandle, s, t float32, src Source[V], dst Accumulator[V]) {
	cvs := pt.FVarPatchValues(channel, h)
	ptype := pt.FVarPatchType(channel, h)

	var param PatchParam
	param.Clear()

	dst.Clear()

	var q weights
	switch ptype {
	case Quads:
		w, ds, dt := q.slices(4)
		BilinearWeights(param, s, t, w, ds, dt)
		Interpolate(cvs, w, ds, dt, src, dst)
	case Regular:
		w, ds, dt := q.slices(16)
		BSplineWeights(param, s, t, w, ds, dt)
		Interpolate(cvs, w, ds, dt, src, dst)
	case Boundary:
		w, ds, dt := q.slices(12)
		BoundaryWeights(param, s, t, w, ds, dt)
		Interpolate(cvs, w, ds, dt, src, dst)
	case Corner:
		w, ds, dt := q.slices(9)
		CornerWeights(param, s, t, w, ds, dt)
		Interpolate(cvs, w, ds, dt, src, dst)
	case Triangles:
		violatef("face-varying triangle patches are not implemented")
	default:
		violatef("EvaluateFaceVarying does not support %s patches", ptype)
	}
}

// domainCorners lists, per type, the control vertices sitting on the four
// corners of the patch domain in bilinear weight order.
func domainCorners(t PatchType) [4]int {
	switch t {
	case Regular, SingleCrease:
		return [4]int{5, 6, 10, 9}
	case Boundary:
		return [4]int{1, 2, 6, 5}
	case Corner:
		return [4]int{1, 2, 5, 4}
	case GregoryBasis:
		return [4]int{0, 5, 10, 15}
	}
	return [4]int{0, 1, 2, 3}
}

// EvaluateVarying interpolates varying data bilinearly across the four
// domain corners of the patch identified by h. Gregory-basis corners are
// resolved through the end-cap varying stencils.
func EvaluateVarying[V any](pt *PatchTables, h PatchHandle, s, t float32, src Source[V], dst Accumulator[V]) {
	pa := pt.checkHandle(h)
	param := pt.paramTable[h.PatchIndex]

	switch pa.desc.Type {
	case Quads, Regular, SingleCrease, Boundary, Corner, GregoryBasis:
	default:
		violatef("EvaluateVarying does not support %s patches", pa.desc.Type)
	}

	dst.Clear()

	var q weights
	w, ds, dt := q.slices(4)
	BilinearWeights(param, s, t, w, ds, dt)
	corners := domainCorners(pa.desc.Type)

	if pa.desc.Type == GregoryBasis {
		if pt.endCapVarying == nil {
			violatef("Gregory-basis patch %d has no end-cap varying stencils", h.PatchIndex)
		}
		first := h.VertexOffset - pa.vertexStart
		for k, c := range corners {
			InterpolateStencils(pt.endCapVarying, first+Index(c), w[k:k+1], ds[k:k+1], dt[k:k+1], src, dst)
		}
		return
	}

	cvs := pt.PatchVertices(h)
	var sel [4]Index
	for k, c := range corners {
		sel[k] = cvs[c]
	}
	Interpolate(sel[:], w, ds, dt, src, dst)
}
