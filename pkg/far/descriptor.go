package far

import "fmt"

// PatchType identifies the topology and basis of a patch. The numeric
// values are part of the PTBL file format and must not be reordered.
type PatchType uint8

// Patch types.
const (
	NonPatch PatchType = iota
	Points
	Lines
	Quads
	Triangles
	Loop
	Regular
	SingleCrease
	Boundary
	Corner
	Gregory
	GregoryBoundary
	GregoryBasis
)

var patchTypeNames = [...]string{
	NonPatch:        "NON_PATCH",
	Points:          "POINTS",
	Lines:           "LINES",
	Quads:           "QUADS",
	Triangles:       "TRIANGLES",
	Loop:            "LOOP",
	Regular:         "REGULAR",
	SingleCrease:    "SINGLE_CREASE",
	Boundary:        "BOUNDARY",
	Corner:          "CORNER",
	Gregory:         "GREGORY",
	GregoryBoundary: "GREGORY_BOUNDARY",
	GregoryBasis:    "GREGORY_BASIS",
}

// String returns the canonical upper-case type name.
func (t PatchType) String() string {
	if int(t) < len(patchTypeNames) {
		return patchTypeNames[t]
	}
	return fmt.Sprintf("PatchType(%d)", uint8(t))
}

// Valid reports whether t is a known patch type.
func (t PatchType) Valid() bool {
	return int(t) < len(patchTypeNames)
}

// ParsePatchType returns the type with the given canonical name.
func ParsePatchType(name string) (PatchType, error) {
	for i, n := range patchTypeNames {
		if n == name {
			return PatchType(i), nil
		}
	}
	return NonPatch, fmt.Errorf("unknown patch type %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (t PatchType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown patch type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *PatchType) UnmarshalText(text []byte) error {
	pt, err := ParsePatchType(string(text))
	if err != nil {
		return err
	}
	*t = pt
	return nil
}

// Basis is the evaluation family of a patch type, decided once per patch
// array.
type Basis uint8

// Basis families.
const (
	BasisUnsupported Basis = iota
	BasisBilinear
	BasisBSpline
	BasisBSplineCrease
	BasisBSplineBoundary
	BasisBSplineCorner
	BasisGregory
)

func (b Basis) String() string {
	switch b {
	case BasisBilinear:
		return "bilinear"
	case BasisBSpline:
		return "bspline"
	case BasisBSplineCrease:
		return "bspline-crease"
	case BasisBSplineBoundary:
		return "bspline-boundary"
	case BasisBSplineCorner:
		return "bspline-corner"
	case BasisGregory:
		return "gregory-basis"
	}
	return "unsupported"
}

// PatchDescriptor describes every patch of one patch array.
type PatchDescriptor struct {
	Type PatchType
}

// NewDescriptor returns the descriptor for type t.
func NewDescriptor(t PatchType) PatchDescriptor {
	return PatchDescriptor{Type: t}
}

// NumControlVertices returns the number of control vertices of a patch.
func (d PatchDescriptor) NumControlVertices() int {
	switch d.Type {
	case Points:
		return 1
	case Lines:
		return 2
	case Quads:
		return 4
	case Triangles:
		return 3
	case Loop:
		return 12
	case Regular, SingleCrease:
		return 16
	case Boundary:
		return 12
	case Corner:
		return 9
	case Gregory, GregoryBoundary:
		return 4
	case GregoryBasis:
		return 20
	}
	return 0
}

// IsAdaptive reports whether the type is only produced by feature-adaptive
// refinement.
func (d PatchDescriptor) IsAdaptive() bool {
	switch d.Type {
	case Regular, SingleCrease, Boundary, Corner, Gregory, GregoryBoundary, GregoryBasis:
		return true
	}
	return false
}

// Basis returns the evaluation family of the descriptor.
func (d PatchDescriptor) Basis() Basis {
	switch d.Type {
	case Quads:
		return BasisBilinear
	case Regular:
		return BasisBSpline
	case SingleCrease:
		return BasisBSplineCrease
	case Boundary:
		return BasisBSplineBoundary
	case Corner:
		return BasisBSplineCorner
	case GregoryBasis:
		return BasisGregory
	}
	return BasisUnsupported
}

func (d PatchDescriptor) String() string {
	return fmt.Sprintf("%s(%d)", d.Type, d.NumControlVertices())
}
