// Package tessellate samples the limit surface of patch tables on a
// uniform grid per patch and assembles the samples into a triangle mesh.
package tessellate

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/patchtables/pkg/far"
	"github.com/Faultbox/patchtables/pkg/primvar"
)

var (
	// ErrInvalidLevel is returned for a tessellation level below 1.
	ErrInvalidLevel = errors.New("tessellation level must be at least 1")
	// ErrShortSource is returned when a source holds fewer entries than
	// the tables reference.
	ErrShortSource = errors.New("source too short for patch tables")
)

// Options control tessellation.
type Options struct {
	Level   int  // segments per patch edge
	Workers int  // concurrent patch evaluations, GOMAXPROCS when <= 0
	Normals bool // compute normals from the limit derivatives

	// UVs, when set, is evaluated through face-varying channel UVChannel
	// into Mesh.TexCoords.
	UVs       far.Source[primvar.Vec2]
	UVChannel int

	logger *zap.Logger
}

// DefaultOptions returns eight segments per edge with normals.
func DefaultOptions() Options {
	return Options{Level: 8, Normals: true}
}

// WithLogger returns a copy of o that reports progress to l.
func (o Options) WithLogger(l *zap.Logger) Options {
	o.logger = l
	return o
}

// Mesh is an indexed triangle mesh. Every tessellated patch owns a block
// of (Level+1)^2 consecutive vertices.
type Mesh struct {
	Positions [][3]float32
	Normals   [][3]float32 // nil unless requested
	TexCoords [][2]float32 // nil unless UVs were given
	Indices   []uint32

	Patches []far.PatchHandle // tessellated patches, in vertex-block order
	Skipped int               // patches whose type cannot be evaluated
}

// NumTriangles returns the number of triangles.
func (m *Mesh) NumTriangles() int { return len(m.Indices) / 3 }

// Tessellate samples every evaluable patch of pt. Patches are evaluated
// concurrently; the tables are only read.
func Tessellate(ctx context.Context, pt *far.PatchTables, src far.Source[primvar.Vec3], opts Options) (*Mesh, error) {
	if opts.Level < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, opts.Level)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log := opts.logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := CheckSource("vertex", src, pt.NumSourceVertices()); err != nil {
		return nil, err
	}
	if opts.UVs != nil && opts.UVChannel >= 0 && opts.UVChannel < pt.NumFVarChannels() {
		if err := CheckSource("uv", opts.UVs, pt.NumFVarValues(opts.UVChannel)); err != nil {
			return nil, err
		}
	}
	start := time.Now()

	mesh := &Mesh{}
	for i := 0; i < pt.NumPatchesTotal(); i++ {
		h := pt.HandleAt(i)
		if evaluable(pt, h) {
			mesh.Patches = append(mesh.Patches, h)
		} else {
			mesh.Skipped++
		}
	}
	if mesh.Skipped > 0 {
		log.Warn("skipping patches without a limit evaluation", zap.Int("count", mesh.Skipped))
	}

	n := opts.Level
	perPatch := (n + 1) * (n + 1)
	numVerts := len(mesh.Patches) * perPatch
	mesh.Positions = make([][3]float32, numVerts)
	if opts.Normals {
		mesh.Normals = make([][3]float32, numVerts)
	}
	if opts.UVs != nil {
		mesh.TexCoords = make([][2]float32, numVerts)
	}
	mesh.Indices = make([]uint32, 0, len(mesh.Patches)*n*n*6)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for k, h := range mesh.Patches {
		k, h := k, h
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			return samplePatch(pt, h, src, opts, mesh, k*perPatch)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for k := range mesh.Patches {
		mesh.Indices = appendGrid(mesh.Indices, uint32(k*perPatch), n)
	}

	log.Debug("tessellated patch tables",
		zap.Int("patches", len(mesh.Patches)),
		zap.Int("vertices", numVerts),
		zap.Int("triangles", mesh.NumTriangles()),
		zap.Int("workers", workers),
		zap.Duration("elapsed", time.Since(start)))
	return mesh, nil
}

// CheckSource reports ErrShortSource when src has a Len method and holds
// fewer than n entries. Sources without Len are trusted.
func CheckSource(kind string, src any, n int) error {
	sized, ok := src.(interface{ Len() int })
	if !ok || sized.Len() >= n {
		return nil
	}
	return fmt.Errorf("%w: %s buffer has %d entries, tables reference %d", ErrShortSource, kind, sized.Len(), n)
}

func evaluable(pt *far.PatchTables, h far.PatchHandle) bool {
	desc := pt.PatchDescriptor(h)
	if !pt.IsFeatureAdaptive() {
		return desc.NumControlVertices() == 4
	}
	return desc.Basis() != far.BasisUnsupported
}

// samplePatch fills the vertex block starting at base. Contract violations
// raised by evaluation, such as a missing face-varying channel, are
// reported as errors.
func samplePatch(pt *far.PatchTables, h far.PatchHandle, src far.Source[primvar.Vec3], opts Options, mesh *Mesh, base int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			ce, ok := r.(*far.ContractError)
			if !ok {
				panic(r)
			}
			err = fmt.Errorf("patch %d: %w", h.PatchIndex, ce)
		}
	}()

	var eval evaluator = far.Evaluate[primvar.Vec3]
	if !pt.IsFeatureAdaptive() {
		eval = far.EvaluateBilinear[primvar.Vec3]
	}

	n := opts.Level
	step := 1 / float32(n)
	var frame primvar.LimitFrame
	var uv primvar.UVFrame
	for j := 0; j <= n; j++ {
		t := float32(j) * step
		for i := 0; i <= n; i++ {
			s := float32(i) * step
			v := base + j*(n+1) + i

			eval(pt, h, s, t, src, &frame)
			mesh.Positions[v] = frame.P.Array()
			if opts.Normals {
				mesh.Normals[v] = normalAt(pt, h, s, t, src, &frame, eval)
			}
			if opts.UVs != nil {
				far.EvaluateFaceVarying[primvar.Vec2](pt, opts.UVChannel, h, s, t, opts.UVs, &uv)
				mesh.TexCoords[v] = [2]float32{uv.UV.X, uv.UV.Y}
			}
		}
	}
	return nil
}

type evaluator func(*far.PatchTables, far.PatchHandle, float32, float32, far.Source[primvar.Vec3], far.Accumulator[primvar.Vec3])

// normalAt returns the unit normal of an evaluated frame. Where the
// tangents degenerate, typically at extraordinary corners, the normal is
// taken slightly inside the patch.
func normalAt(pt *far.PatchTables, h far.PatchHandle, s, t float32, src far.Source[primvar.Vec3], f *primvar.LimitFrame, eval evaluator) [3]float32 {
	if nrm := f.Normal(); nrm != (primvar.Vec3{}) {
		return nrm.Array()
	}
	const inset = 1e-3
	var probe primvar.LimitFrame
	eval(pt, h, s+inset*(0.5-s), t+inset*(0.5-t), src, &probe)
	if nrm := probe.Normal(); nrm != (primvar.Vec3{}) {
		return nrm.Array()
	}
	return [3]float32{0, 0, 1}
}

// appendGrid appends the two triangles of every cell of an (n+1)^2 vertex
// grid, counter-clockwise around ds x dt.
func appendGrid(indices []uint32, base uint32, n int) []uint32 {
	row := uint32(n + 1)
	for j := uint32(0); j < uint32(n); j++ {
		for i := uint32(0); i < uint32(n); i++ {
			a := base + j*row + i
			b := a + 1
			c := b + row
			d := a + row
			indices = append(indices, a, b, c, a, c, d)
		}
	}
	return indices
}
