package farfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/patchtables/pkg/far"
	"github.com/Faultbox/patchtables/pkg/primvar"
	"github.com/Faultbox/patchtables/pkg/sdc"
)

// Description is the YAML form of a patch table.
type Description struct {
	MaxValence   int                `yaml:"max_valence"`
	PtexFaces    int                `yaml:"ptex_faces"`
	Arrays       []ArrayDescription `yaml:"arrays"`
	ValenceTable []far.Index        `yaml:"valence_table,omitempty"`
	Stencils     *EndCaps           `yaml:"stencils,omitempty"`
	FVarChannels []FVarDescription  `yaml:"fvar_channels,omitempty"`
}

// ArrayDescription lists the patches of one array.
type ArrayDescription struct {
	Type    far.PatchType      `yaml:"type"`
	Patches []PatchDescription `yaml:"patches"`
}

// PatchDescription is one patch: its control vertices and unpacked
// PatchParam fields.
type PatchDescription struct {
	Vertices    []far.Index `yaml:"vertices,flow"`
	Face        far.Index   `yaml:"face"`
	U           uint16      `yaml:"u,omitempty"`
	V           uint16      `yaml:"v,omitempty"`
	Depth       uint8       `yaml:"depth,omitempty"`
	NonQuad     bool        `yaml:"non_quad,omitempty"`
	Boundary    uint16      `yaml:"boundary,omitempty"`
	Transition  uint16      `yaml:"transition,omitempty"`
	Sharpness   float32     `yaml:"sharpness,omitempty"`
	QuadOffsets []uint32    `yaml:"quad_offsets,omitempty,flow"`
}

func (p PatchDescription) param() far.PatchParam {
	return far.NewPatchParam(p.Face, p.U, p.V, p.Depth, p.NonQuad, p.Boundary, p.Transition)
}

// EndCaps holds the Gregory-basis stencil tables.
type EndCaps struct {
	Vertex  *StencilDescription `yaml:"vertex,omitempty"`
	Varying *StencilDescription `yaml:"varying,omitempty"`
}

// StencilDescription is a stencil table, one entry per stencil.
type StencilDescription struct {
	ControlVertices int            `yaml:"control_vertices"`
	Stencils        []StencilEntry `yaml:"stencils"`
}

// StencilEntry is one weighted combination of source vertices.
type StencilEntry struct {
	Indices []far.Index `yaml:"indices,flow"`
	Weights []float32   `yaml:"weights,flow"`
}

// FVarDescription is one face-varying channel with one patch per table
// patch, in absolute patch order.
type FVarDescription struct {
	Interpolation sdc.FVarLinearInterpolation `yaml:"interpolation"`
	Patches       []FVarPatchDescription      `yaml:"patches"`
}

// FVarPatchDescription is one face-varying patch.
type FVarPatchDescription struct {
	Type   far.PatchType `yaml:"type"`
	Values []far.Index   `yaml:"values,flow"`
}

// ParseYAML parses a YAML table description.
func ParseYAML(data []byte) (*Description, error) {
	var d Description
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing table description: %w", err)
	}
	return &d, nil
}

// LoadYAML reads a YAML table description from disk.
func LoadYAML(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseYAML(data)
}

// Build validates the description and produces patch tables.
func (d *Description) Build() (*far.PatchTables, error) {
	b := far.NewBuilder(d.MaxValence, d.PtexFaces)
	b.ReservePatchArrays(len(d.Arrays))

	for a, arr := range d.Arrays {
		var verts []far.Index
		var quads []uint32
		params := make([]far.PatchParam, len(arr.Patches))
		for p, patch := range arr.Patches {
			verts = append(verts, patch.Vertices...)
			quads = append(quads, patch.QuadOffsets...)
			params[p] = patch.param()
		}
		if _, err := b.PushPatchArray(far.NewDescriptor(arr.Type), len(arr.Patches), verts, params, quads); err != nil {
			return nil, fmt.Errorf("array %d: %w", a, err)
		}
		for p, patch := range arr.Patches {
			if patch.Sharpness == 0 {
				continue
			}
			if err := b.SetSingleCreaseSharpness(a, p, patch.Sharpness); err != nil {
				return nil, fmt.Errorf("array %d patch %d: %w", a, p, err)
			}
		}
	}

	if len(d.ValenceTable) > 0 {
		if err := b.SetVertexValenceTable(d.ValenceTable); err != nil {
			return nil, err
		}
	}

	if d.Stencils != nil {
		vertex, err := d.Stencils.Vertex.table()
		if err != nil {
			return nil, fmt.Errorf("vertex stencils: %w", err)
		}
		varying, err := d.Stencils.Varying.table()
		if err != nil {
			return nil, fmt.Errorf("varying stencils: %w", err)
		}
		if err := b.SetEndCapStencils(vertex, varying); err != nil {
			return nil, err
		}
	}

	if len(d.FVarChannels) > 0 {
		if err := b.AllocateFVarChannels(len(d.FVarChannels)); err != nil {
			return nil, err
		}
		for c, ch := range d.FVarChannels {
			if err := b.SetFVarChannelLinearInterpolation(c, ch.Interpolation); err != nil {
				return nil, err
			}
			if len(ch.Patches) > 0 {
				if err := b.SetFVarChannelPatchesType(c, ch.Patches[0].Type); err != nil {
					return nil, err
				}
			}
			for p, patch := range ch.Patches {
				if err := b.AppendFVarPatch(c, patch.Type, patch.Values); err != nil {
					return nil, fmt.Errorf("fvar channel %d patch %d: %w", c, p, err)
				}
			}
		}
	}

	return b.Build()
}

// table returns nil for a missing description so that an absent varying
// table stays a nil far.Stencils rather than a typed nil.
func (s *StencilDescription) table() (far.Stencils, error) {
	if s == nil {
		return nil, nil
	}
	var sizes []int32
	var indices []far.Index
	var weights []float32
	for i, e := range s.Stencils {
		if len(e.Indices) != len(e.Weights) {
			return nil, fmt.Errorf("%w: stencil %d has %d indices and %d weights",
				far.ErrInvalidStencils, i, len(e.Indices), len(e.Weights))
		}
		sizes = append(sizes, int32(len(e.Indices)))
		indices = append(indices, e.Indices...)
		weights = append(weights, e.Weights...)
	}
	return far.NewStencilTable(s.ControlVertices, sizes, indices, weights)
}

// Describe converts patch tables back into their YAML description.
func Describe(pt *far.PatchTables) *Description {
	d := &Description{
		MaxValence:   pt.MaxValence(),
		PtexFaces:    pt.NumPtexFaces(),
		ValenceTable: pt.VertexValenceTable(),
	}

	for a := 0; a < pt.NumPatchArrays(); a++ {
		arr := ArrayDescription{Type: pt.PatchArrayDescriptor(a).Type}
		for p := 0; p < pt.NumPatches(a); p++ {
			h := pt.Handle(a, p)
			param := pt.PatchParam(h)
			arr.Patches = append(arr.Patches, PatchDescription{
				Vertices:    append([]far.Index(nil), pt.PatchVertices(h)...),
				Face:        param.FaceID(),
				U:           param.U(),
				V:           param.V(),
				Depth:       param.Depth(),
				NonQuad:     param.NonQuadRoot(),
				Boundary:    param.Boundary(),
				Transition:  param.Transition(),
				Sharpness:   pt.SingleCreaseSharpness(h),
				QuadOffsets: pt.PatchQuadOffsets(h),
			})
		}
		d.Arrays = append(d.Arrays, arr)
	}

	vertex, varying := pt.EndCapVertexStencils(), pt.EndCapVaryingStencils()
	if vertex != nil || varying != nil {
		d.Stencils = &EndCaps{
			Vertex:  describeStencils(vertex),
			Varying: describeStencils(varying),
		}
	}

	for c := 0; c < pt.NumFVarChannels(); c++ {
		ch := FVarDescription{Interpolation: pt.FVarChannelLinearInterpolation(c)}
		for i, t := range pt.FVarPatchTypes(c) {
			ch.Patches = append(ch.Patches, FVarPatchDescription{
				Type:   t,
				Values: pt.FVarPatchValues(c, pt.HandleAt(i)),
			})
		}
		d.FVarChannels = append(d.FVarChannels, ch)
	}
	return d
}

func describeStencils(st far.Stencils) *StencilDescription {
	if st == nil {
		return nil
	}
	sd := &StencilDescription{}
	for i := 0; i < st.NumStencils(); i++ {
		s := st.Stencil(far.Index(i))
		sd.Stencils = append(sd.Stencils, StencilEntry{Indices: s.Indices, Weights: s.Weights})
		for _, idx := range s.Indices {
			sd.ControlVertices = max(sd.ControlVertices, int(idx)+1)
		}
	}
	if src, ok := st.(stencilSource); ok {
		sd.ControlVertices = max(sd.ControlVertices, src.NumControlVertices())
	}
	return sd
}

// Marshal renders the description as YAML.
func (d *Description) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

// SaveYAML writes the description to path.
func (d *Description) SaveYAML(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// vertexFile is the YAML layout of a control-vertex file. The uvs list
// is optional and holds face-varying values:
//
//	vertices:
//	  - [0, 0, 0]
//	  - [1, 0, 0.5]
//	uvs:
//	  - [0, 0]
type vertexFile struct {
	Vertices [][3]float32 `yaml:"vertices"`
	UVs      [][2]float32 `yaml:"uvs,omitempty"`
}

// Primvars holds the sources read from a vertex file.
type Primvars struct {
	Vertices primvar.Vec3Buffer
	UVs      primvar.Vec2Buffer // nil when the file has no uvs
}

// ParsePrimvars parses a YAML vertex file.
func ParsePrimvars(data []byte) (*Primvars, error) {
	var f vertexFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing vertices: %w", err)
	}
	pv := &Primvars{Vertices: make(primvar.Vec3Buffer, len(f.Vertices))}
	for i, v := range f.Vertices {
		pv.Vertices[i] = primvar.Vec3{X: v[0], Y: v[1], Z: v[2]}
	}
	if len(f.UVs) > 0 {
		pv.UVs = make(primvar.Vec2Buffer, len(f.UVs))
		for i, uv := range f.UVs {
			pv.UVs[i] = primvar.Vec2{X: uv[0], Y: uv[1]}
		}
	}
	return pv, nil
}

// LoadPrimvars reads a YAML vertex file.
func LoadPrimvars(path string) (*Primvars, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePrimvars(data)
}

// ParseVertices parses a YAML list of control-vertex positions.
func ParseVertices(data []byte) (primvar.Vec3Buffer, error) {
	pv, err := ParsePrimvars(data)
	if err != nil {
		return nil, err
	}
	return pv.Vertices, nil
}

// LoadVertices reads the positions of a YAML vertex file.
func LoadVertices(path string) (primvar.Vec3Buffer, error) {
	pv, err := LoadPrimvars(path)
	if err != nil {
		return nil, err
	}
	return pv.Vertices, nil
}
