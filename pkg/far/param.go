package far

import "fmt"

// Boundary mask bits, one per patch edge.
const (
	EdgeT0 uint16 = 1 << iota // t = 0
	EdgeS1                    // s = 1
	EdgeT1                    // t = 1
	EdgeS0                    // s = 0
)

// PatchParam locates a patch inside its ptex face and records its
// boundary and transition classification.
//
//	Field0: faceID (bits 0-27) | transition mask (bits 28-31)
//	Field1: u (22-31) | v (12-21) | boundary mask (8-11) | non-quad root (4) | depth (0-3)
type PatchParam struct {
	Field0 uint32
	Field1 uint32
}

func pack(value uint32, width, offset uint) uint32 {
	return (value & (1<<width - 1)) << offset
}

func unpack(field uint32, width, offset uint) uint32 {
	return (field >> offset) & (1<<width - 1)
}

// NewPatchParam packs the given fields into a PatchParam.
func NewPatchParam(faceID Index, u, v uint16, depth uint8, nonQuad bool, boundary, transition uint16) PatchParam {
	var p PatchParam
	p.Set(faceID, u, v, depth, nonQuad, boundary, transition)
	return p
}

// Set packs all fields at once.
func (p *PatchParam) Set(faceID Index, u, v uint16, depth uint8, nonQuad bool, boundary, transition uint16) {
	nq := uint32(0)
	if nonQuad {
		nq = 1
	}
	p.Field0 = pack(uint32(faceID), 28, 0) | pack(uint32(transition), 4, 28)
	p.Field1 = pack(uint32(u), 10, 22) |
		pack(uint32(v), 10, 12) |
		pack(uint32(boundary), 4, 8) |
		pack(nq, 1, 4) |
		pack(uint32(depth), 4, 0)
}

// Clear resets every field; the result is an interior depth-0 patch.
func (p *PatchParam) Clear() {
	p.Field0, p.Field1 = 0, 0
}

// FaceID returns the ptex face the patch belongs to.
func (p PatchParam) FaceID() Index { return Index(unpack(p.Field0, 28, 0)) }

// Transition returns the transition edge mask.
func (p PatchParam) Transition() uint16 { return uint16(unpack(p.Field0, 4, 28)) }

// U returns the patch column within its ptex face at its depth.
func (p PatchParam) U() uint16 { return uint16(unpack(p.Field1, 10, 22)) }

// V returns the patch row within its ptex face at its depth.
func (p PatchParam) V() uint16 { return uint16(unpack(p.Field1, 10, 12)) }

// Boundary returns the boundary edge mask.
func (p PatchParam) Boundary() uint16 { return uint16(unpack(p.Field1, 4, 8)) }

// NonQuadRoot reports whether the patch descends from a non-quad face.
func (p PatchParam) NonQuadRoot() bool { return unpack(p.Field1, 1, 4) != 0 }

// Depth returns the refinement level of the patch.
func (p PatchParam) Depth() uint8 { return uint8(unpack(p.Field1, 4, 0)) }

// IsRegular reports whether no edge of the patch is on a boundary.
func (p PatchParam) IsRegular() bool { return p.Boundary() == 0 }

// level is the depth of the patch inside its ptex face. Children of
// non-quad faces are ptex faces themselves, one level below the root.
func (p PatchParam) level() uint8 {
	d := p.Depth()
	if p.NonQuadRoot() && d > 0 {
		d--
	}
	return d
}

// ParamFraction returns the extent of the patch in ptex-face parameter
// units.
func (p PatchParam) ParamFraction() float32 {
	return 1.0 / float32(uint32(1)<<p.level())
}

// Normalize maps (u, v) in ptex-face coordinates to patch-local (s, t).
func (p PatchParam) Normalize(u, v float32) (s, t float32) {
	frac := p.ParamFraction()
	pu := float32(p.U()) * frac
	pv := float32(p.V()) * frac
	return (u - pu) / frac, (v - pv) / frac
}

// Unnormalize maps patch-local (s, t) back to ptex-face coordinates.
func (p PatchParam) Unnormalize(s, t float32) (u, v float32) {
	frac := p.ParamFraction()
	return (s + float32(p.U())) * frac, (t + float32(p.V())) * frac
}

func (p PatchParam) String() string {
	return fmt.Sprintf("face=%d uv=(%d,%d) depth=%d nonquad=%t boundary=%04b transition=%04b",
		p.FaceID(), p.U(), p.V(), p.Depth(), p.NonQuadRoot(), p.Boundary(), p.Transition())
}
