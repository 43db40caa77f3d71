// Package far stores adaptively refined patches in compact tables and
// evaluates the limit surface they describe.
//
// A PatchTables value is produced once by a Builder and is immutable
// afterwards; any number of goroutines may read from it and evaluate
// patches concurrently without locking. Accessors and evaluation entry
// points treat invalid handles, out-of-range indices and unsupported patch
// types as programmer errors: they panic with a *ContractError instead of
// returning an error.
package far

import (
	"errors"
	"fmt"
)

// Index addresses a vertex, value or stencil row.
type Index = int32

// InvalidIndex marks an unused control-vertex slot.
const InvalidIndex Index = -1

// Builder validation errors.
var (
	ErrInvalidPatchArray   = errors.New("invalid patch array")
	ErrDuplicatePatchArray = errors.New("duplicate patch array descriptor")
	ErrInvalidPatch        = errors.New("invalid patch reference")
	ErrMissingStencils     = errors.New("missing end-cap stencil table")
	ErrInvalidStencils     = errors.New("invalid stencil table")
	ErrInvalidFVarChannel  = errors.New("invalid face-varying channel")
	ErrBuilderFinished     = errors.New("builder already finished")
)

// ContractError is the panic value raised when a caller breaks the
// preconditions of an accessor or evaluation entry point.
type ContractError struct {
	Msg string
}

func (e *ContractError) Error() string {
	return "far: " + e.Msg
}

func violatef(format string, args ...any) {
	panic(&ContractError{Msg: fmt.Sprintf(format, args...)})
}
