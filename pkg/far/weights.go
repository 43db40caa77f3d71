package far

import "github.com/Faultbox/patchtables/pkg/sdc"

// MaxPatchWeights is the largest weight vector any basis produces.
const MaxPatchWeights = 20

// Weight functions fill w with one weight per control vertex and, when
// non-nil, ds and dt with the partial derivatives along s and t. The
// derivatives are expressed in ptex-face units: they are scaled by the
// inverse of the patch's parametric extent.
//
// Bicubic weights are laid out row-major with rows running along t:
//
//	12 13 14 15   t = 1
//	 8  9 10 11
//	 4  5  6  7
//	 0  1  2  3   t = 0

func derivScale(p PatchParam) float32 {
	return 1 / p.ParamFraction()
}

// bsplineCurve returns the uniform cubic B-spline weights and their
// derivatives at t.
func bsplineCurve(t float32) (w, d [4]float32) {
	t2 := t * t
	t3 := t2 * t
	it := 1 - t

	w[0] = it * it * it / 6
	w[1] = (3*t3 - 6*t2 + 4) / 6
	w[2] = (-3*t3 + 3*t2 + 3*t + 1) / 6
	w[3] = t3 / 6

	d[0] = -it * it / 2
	d[1] = 1.5*t2 - 2*t
	d[2] = -1.5*t2 + t + 0.5
	d[3] = t2 / 2
	return w, d
}

// bezierCurve returns the cubic Bernstein weights and their derivatives.
func bezierCurve(t float32) (w, d [4]float32) {
	it := 1 - t

	w[0] = it * it * it
	w[1] = 3 * it * it * t
	w[2] = 3 * it * t * t
	w[3] = t * t * t

	d[0] = -3 * it * it
	d[1] = 3*it*it - 6*it*t
	d[2] = 6*it*t - 3*t*t
	d[3] = 3 * t * t
	return w, d
}

// creaseCurve returns the cross-crease curve weights for a crease of the
// given sharpness sitting on control point 1 at t = 0. Each unit of
// sharpness applies the sharp vertex rule for one subdivision step;
// a fractional remainder blends the sharp and smooth rules. NaN counts
// as smooth, so the recursion depth is bounded by SharpnessInfinite.
func creaseCurve(sharpness, t float32) (w, d [4]float32) {
	if !(sharpness > 0) {
		return bsplineCurve(t)
	}
	if sharpness >= sdc.SharpnessInfinite {
		w, d = bsplineCurve(t)
		foldCurve(&w)
		foldCurve(&d)
		return w, d
	}

	sharp := sharpness
	if sharp > 1 {
		sharp = 1
	}
	smooth := 1 - sharp
	vertex := [4]float32{smooth / 8, smooth*6/8 + sharp, smooth / 8, 0}
	edge1 := [4]float32{0, 0.5, 0.5, 0}
	vertex2 := [4]float32{0, 1.0 / 8, 6.0 / 8, 1.0 / 8}

	var sub [4][4]float32
	var lw, ld [4]float32
	if t < 0.5 {
		sub = [4][4]float32{{0.5, 0.5, 0, 0}, vertex, edge1, vertex2}
		lw, ld = creaseCurve(sharpness-1, 2*t)
	} else {
		sub = [4][4]float32{vertex, edge1, vertex2, {0, 0, 0.5, 0.5}}
		lw, ld = bsplineCurve(2*t - 1)
	}

	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			w[j] += lw[i] * sub[i][j]
			d[j] += 2 * ld[i] * sub[i][j]
		}
	}
	return w, d
}

// foldCurve replaces the phantom point 0 by its reflection 2*P1 - P2.
func foldCurve(w *[4]float32) {
	w[1] += 2 * w[0]
	w[2] -= w[0]
	w[0] = 0
}

// tensor fills 16 weights from two curve bases, s along rows and t across.
func tensor(sw, sd, tw, td [4]float32, scale float32, w, ds, dt *[16]float32) {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			w[4*i+j] = sw[j] * tw[i]
			ds[4*i+j] = sd[j] * tw[i] * scale
			dt[4*i+j] = sw[j] * td[i] * scale
		}
	}
}

// foldEdges rewrites the weights of phantom rows and columns on every
// boundary edge in mask onto the two adjacent interior rows or columns,
// using phantom = 2*inner - next.
func foldEdges(mask uint16, w *[16]float32) {
	if mask&EdgeT0 != 0 {
		for i := 0; i < 4; i++ {
			w[i+8] -= w[i]
			w[i+4] += 2 * w[i]
			w[i] = 0
		}
	}
	if mask&EdgeS1 != 0 {
		for i := 0; i < 16; i += 4 {
			w[i+1] -= w[i+3]
			w[i+2] += 2 * w[i+3]
			w[i+3] = 0
		}
	}
	if mask&EdgeT1 != 0 {
		for i := 0; i < 4; i++ {
			w[i+4] -= w[i+12]
			w[i+8] += 2 * w[i+12]
			w[i+12] = 0
		}
	}
	if mask&EdgeS0 != 0 {
		for i := 0; i < 16; i += 4 {
			w[i+2] -= w[i]
			w[i+1] += 2 * w[i]
			w[i] = 0
		}
	}
}

func bspline(mask uint16, scale, s, t float32) (w, ds, dt [16]float32) {
	sw, sd := bsplineCurve(s)
	tw, td := bsplineCurve(t)
	tensor(sw, sd, tw, td, scale, &w, &ds, &dt)
	foldEdges(mask, &w)
	foldEdges(mask, &ds)
	foldEdges(mask, &dt)
	return w, ds, dt
}

func copyWeights(n int, w, ds, dt []float32, qw, qs, qt *[16]float32, at func(k int) int) {
	for k := 0; k < n; k++ {
		i := at(k)
		w[k] = qw[i]
		if ds != nil {
			ds[k] = qs[i]
		}
		if dt != nil {
			dt[k] = qt[i]
		}
	}
}

func identity(k int) int { return k }

// BilinearWeights computes the 4 weights of a bilinear quad, with corners
// in the order (0,0), (1,0), (1,1), (0,1).
func BilinearWeights(p PatchParam, s, t float32, w, ds, dt []float32) {
	w[0] = (1 - s) * (1 - t)
	w[1] = s * (1 - t)
	w[2] = s * t
	w[3] = (1 - s) * t

	scale := derivScale(p)
	if ds != nil {
		ds[0] = -(1 - t) * scale
		ds[1] = (1 - t) * scale
		ds[2] = t * scale
		ds[3] = -t * scale
	}
	if dt != nil {
		dt[0] = -(1 - s) * scale
		dt[1] = -s * scale
		dt[2] = s * scale
		dt[3] = (1 - s) * scale
	}
}

// BSplineWeights computes the 16 weights of a regular B-spline patch.
// Edges flagged in the boundary mask are folded so that the phantom
// control vertices on them receive zero weight.
func BSplineWeights(p PatchParam, s, t float32, w, ds, dt []float32) {
	qw, qs, qt := bspline(p.Boundary(), derivScale(p), s, t)
	copyWeights(16, w, ds, dt, &qw, &qs, &qt, identity)
}

// BoundaryWeights computes the 12 weights of a boundary patch whose
// boundary lies on the t = 0 edge; the patch stores grid rows 1 to 3.
func BoundaryWeights(p PatchParam, s, t float32, w, ds, dt []float32) {
	qw, qs, qt := bspline(p.Boundary()|EdgeT0, derivScale(p), s, t)
	copyWeights(12, w, ds, dt, &qw, &qs, &qt, func(k int) int { return k + 4 })
}

// CornerWeights computes the 9 weights of a corner patch whose boundaries
// lie on the t = 0 and s = 1 edges; the patch stores grid rows 1 to 3,
// columns 0 to 2.
func CornerWeights(p PatchParam, s, t float32, w, ds, dt []float32) {
	qw, qs, qt := bspline(p.Boundary()|EdgeT0|EdgeS1, derivScale(p), s, t)
	copyWeights(9, w, ds, dt, &qw, &qs, &qt, func(k int) int { return (k/3+1)*4 + k%3 })
}

// SingleCreaseWeights computes the 16 weights of a regular patch with a
// semi-sharp crease along the edge between control vertices 5 and 6.
// Sharpness 0 gives the regular B-spline weights and infinite sharpness
// gives the same weights as a boundary on that edge.
func SingleCreaseWeights(p PatchParam, sharpness, s, t float32, w, ds, dt []float32) {
	sw, sd := bsplineCurve(s)
	tw, td := creaseCurve(sharpness, t)

	var qw, qs, qt [16]float32
	tensor(sw, sd, tw, td, derivScale(p), &qw, &qs, &qt)
	mask := p.Boundary()
	foldEdges(mask, &qw)
	foldEdges(mask, &qs)
	foldEdges(mask, &qt)
	copyWeights(16, w, ds, dt, &qw, &qs, &qt, identity)
}

// BezierWeights computes the 16 weights of a bicubic Bezier patch.
func BezierWeights(p PatchParam, s, t float32, w, ds, dt []float32) {
	sw, sd := bezierCurve(s)
	tw, td := bezierCurve(t)

	var qw, qs, qt [16]float32
	tensor(sw, sd, tw, td, derivScale(p), &qw, &qs, &qt)
	copyWeights(16, w, ds, dt, &qw, &qs, &qt, identity)
}

// Gregory-basis control points:
//
//	P3         e3-      e2+         P2
//	   15------17-------11--------10
//	   |        |        |        |
//	   |       19 f3-   13 f2+    |
//	e3+16-----18 f3+     14 f2- ---12 e2-
//	   |                          |
//	e0- 2------4 f0-     8 f1+ ----6 e1+
//	   |        3 f0+    9 f1-    |
//	   0--------1--------7--------5
//	P0         e0+      e1-         P1
//
// gregoryBezier maps each bicubic Bezier slot to its Gregory point, or to
// one of the four rational face points (negative entries).
var gregoryBezier = [16]int{0, 1, 7, 5, 2, -1, -2, 6, 16, -3, -4, 12, 15, 17, 11, 10}

// gregoryFace lists, per face point, the two Gregory points it blends.
var gregoryFace = [4][2]int{{3, 4}, {9, 8}, {19, 18}, {13, 14}}

// faceBlend returns the rational blend of face point f at (s, t): the
// weight of its first point and that weight's derivatives. The second
// point takes the complement.
func faceBlend(f int, s, t float32) (a, as, at float32) {
	var x, y, xs, xt, ys, yt float32
	switch f {
	case 0:
		x, y, xs, yt = s, t, 1, 1
	case 1:
		x, y, xs, yt = 1-s, t, -1, 1
	case 2:
		x, y, xs, yt = s, 1-t, 1, -1
	case 3:
		x, y, xs, yt = 1-s, 1-t, -1, -1
	}
	d := x + y
	if d == 0 {
		return 0.5, 0, 0
	}
	d2 := d * d
	return x / d, (xs*y - x*ys) / d2, (xt*y - x*yt) / d2
}

// GregoryWeights computes the 20 weights of a Gregory-basis patch: the
// bicubic Bezier weights with the four interior points replaced by
// rational blends of the paired face points.
func GregoryWeights(p PatchParam, s, t float32, w, ds, dt []float32) {
	var bw, bs, bt [16]float32
	sw, sd := bezierCurve(s)
	tw, td := bezierCurve(t)
	tensor(sw, sd, tw, td, 1, &bw, &bs, &bt)

	var gw, gs, gt [20]float32
	for k, idx := range gregoryBezier {
		if idx >= 0 {
			gw[idx] += bw[k]
			gs[idx] += bs[k]
			gt[idx] += bt[k]
			continue
		}
		f := -idx - 1
		a, as, at := faceBlend(f, s, t)
		p0, p1 := gregoryFace[f][0], gregoryFace[f][1]

		gw[p0] += bw[k] * a
		gw[p1] += bw[k] * (1 - a)
		gs[p0] += bs[k]*a + bw[k]*as
		gs[p1] += bs[k]*(1-a) - bw[k]*as
		gt[p0] += bt[k]*a + bw[k]*at
		gt[p1] += bt[k]*(1-a) - bw[k]*at
	}

	scale := derivScale(p)
	for k := 0; k < 20; k++ {
		w[k] = gw[k]
		if ds != nil {
			ds[k] = gs[k] * scale
		}
		if dt != nil {
			dt[k] = gt[k] * scale
		}
	}
}
