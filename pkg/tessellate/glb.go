package tessellate

import (
	"io"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Document converts the mesh into a single-node glTF document.
func (m *Mesh) Document() *gltf.Document {
	doc := gltf.NewDocument()

	prim := &gltf.Primitive{
		Attributes: map[string]uint32{
			gltf.POSITION: uint32(modeler.WritePosition(doc, m.Positions)),
		},
		Indices: gltf.Index(uint32(modeler.WriteIndices(doc, m.Indices))),
	}
	if m.Normals != nil {
		prim.Attributes[gltf.NORMAL] = uint32(modeler.WriteNormal(doc, m.Normals))
	}
	if m.TexCoords != nil {
		prim.Attributes[gltf.TEXCOORD_0] = uint32(modeler.WriteTextureCoord(doc, m.TexCoords))
	}

	pbr := &gltf.PBRMetallicRoughness{
		BaseColorFactor: &[4]float32{0.8, 0.8, 0.8, 1},
		MetallicFactor:  gltf.Float(0),
		RoughnessFactor: gltf.Float(0.6),
	}
	doc.Materials = []*gltf.Material{{Name: "LimitSurface", PBRMetallicRoughness: pbr}}
	prim.Material = gltf.Index(0)

	doc.Meshes = []*gltf.Mesh{{Name: "LimitSurface", Primitives: []*gltf.Primitive{prim}}}
	doc.Nodes = []*gltf.Node{{Name: "LimitSurface", Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(0))
	return doc
}

// EncodeGLB writes the mesh to w as binary glTF.
func (m *Mesh) EncodeGLB(w io.Writer) error {
	enc := gltf.NewEncoder(w)
	enc.AsBinary = true
	return enc.Encode(m.Document())
}

// WriteGLB writes the mesh to path as binary glTF.
func (m *Mesh) WriteGLB(path string) error {
	return gltf.SaveBinary(m.Document(), path)
}
