// Package sdc holds the subdivision-scheme options read by patch tables.
package sdc

import (
	"errors"
	"fmt"
	"strings"
)

// SharpnessInfinite is the sharpness at which a crease is treated as
// infinitely sharp.
const SharpnessInfinite float32 = 10.0

// ErrUnknownOption is returned when an option name cannot be parsed.
var ErrUnknownOption = errors.New("unknown subdivision option")

// FVarLinearInterpolation selects how face-varying data is interpolated
// across seams and boundaries.
type FVarLinearInterpolation uint8

// Face-varying linear interpolation modes.
const (
	FVarLinearNone FVarLinearInterpolation = iota // smooth everywhere ("edge only")
	FVarLinearCornersOnly
	FVarLinearCornersPlus1
	FVarLinearCornersPlus2
	FVarLinearBoundaries
	FVarLinearAll // bilinear everywhere
)

var fvarNames = [...]string{
	FVarLinearNone:         "none",
	FVarLinearCornersOnly:  "corners_only",
	FVarLinearCornersPlus1: "corners_plus1",
	FVarLinearCornersPlus2: "corners_plus2",
	FVarLinearBoundaries:   "boundaries",
	FVarLinearAll:          "all",
}

// String returns the option name.
func (f FVarLinearInterpolation) String() string {
	if int(f) < len(fvarNames) {
		return fvarNames[f]
	}
	return fmt.Sprintf("FVarLinearInterpolation(%d)", uint8(f))
}

// MarshalText implements encoding.TextMarshaler.
func (f FVarLinearInterpolation) MarshalText() ([]byte, error) {
	if int(f) >= len(fvarNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOption, uint8(f))
	}
	return []byte(fvarNames[f]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *FVarLinearInterpolation) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range fvarNames {
		if n == name {
			*f = FVarLinearInterpolation(i)
			return nil
		}
	}
	return fmt.Errorf("%w: fvar interpolation %q", ErrUnknownOption, name)
}

// BoundaryInterpolation selects how boundary vertices and edges are treated.
type BoundaryInterpolation uint8

// Boundary interpolation modes.
const (
	BoundaryNone BoundaryInterpolation = iota
	BoundaryEdgeOnly
	BoundaryEdgeAndCorner
)

var boundaryNames = [...]string{
	BoundaryNone:          "none",
	BoundaryEdgeOnly:      "edge_only",
	BoundaryEdgeAndCorner: "edge_and_corner",
}

// String returns the option name.
func (b BoundaryInterpolation) String() string {
	if int(b) < len(boundaryNames) {
		return boundaryNames[b]
	}
	return fmt.Sprintf("BoundaryInterpolation(%d)", uint8(b))
}

// MarshalText implements encoding.TextMarshaler.
func (b BoundaryInterpolation) MarshalText() ([]byte, error) {
	if int(b) >= len(boundaryNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOption, uint8(b))
	}
	return []byte(boundaryNames[b]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *BoundaryInterpolation) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range boundaryNames {
		if n == name {
			*b = BoundaryInterpolation(i)
			return nil
		}
	}
	return fmt.Errorf("%w: boundary interpolation %q", ErrUnknownOption, name)
}
