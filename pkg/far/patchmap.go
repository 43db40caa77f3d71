package far

// PatchMap locates the patch covering a (u, v) location of a ptex face.
// It is a quadtree per face built from the patches' PatchParams.
type PatchMap struct {
	tables *PatchTables
	roots  []quadChild // one per ptex face
	nodes  []quadNode
}

type quadKind uint8

const (
	quadEmpty  quadKind = iota
	quadPatch           // index is an absolute patch index
	quadBranch          // index is a node index
)

type quadChild struct {
	kind  quadKind
	index int
}

type quadNode struct {
	children [4]quadChild
}

// NewPatchMap indexes every patch of pt.
func NewPatchMap(pt *PatchTables) *PatchMap {
	pm := &PatchMap{tables: pt}

	numFaces := pt.NumPtexFaces()
	for _, p := range pt.paramTable {
		if n := int(p.FaceID()) + 1; n > numFaces {
			numFaces = n
		}
	}
	pm.roots = make([]quadChild, numFaces)

	for i, p := range pt.paramTable {
		pm.insert(i, p)
	}
	return pm
}

// quadrant returns the child slot of (u, v) at the given bit of the
// patch coordinates.
func quadrant(u, v uint16, bit uint8) int {
	return int((u>>bit)&1) | int((v>>bit)&1)<<1
}

func (pm *PatchMap) newNode() int {
	pm.nodes = append(pm.nodes, quadNode{})
	return len(pm.nodes) - 1
}

// slot returns the child entry at node (or the face root when node < 0).
// The pointer is only valid until the next newNode call.
func (pm *PatchMap) slot(face Index, node, q int) *quadChild {
	if node < 0 {
		return &pm.roots[face]
	}
	return &pm.nodes[node].children[q]
}

func (pm *PatchMap) insert(patch int, p PatchParam) {
	face := p.FaceID()
	level := p.level()
	u, v := p.U(), p.V()

	node, q := -1, 0
	for j := uint8(0); j < level; j++ {
		if c := pm.slot(face, node, q); c.kind != quadBranch {
			// A coarser patch cannot coexist with finer ones on the same
			// face; the finer patch wins.
			child := pm.newNode()
			*pm.slot(face, node, q) = quadChild{kind: quadBranch, index: child}
		}
		node = pm.slot(face, node, q).index
		q = quadrant(u, v, level-1-j)
	}
	*pm.slot(face, node, q) = quadChild{kind: quadPatch, index: patch}
}

// FindPatch returns the handle of the patch of face faceID containing
// (u, v), with u and v in [0, 1] ptex-face coordinates.
func (pm *PatchMap) FindPatch(faceID Index, u, v float32) (PatchHandle, bool) {
	if faceID < 0 || int(faceID) >= len(pm.roots) || u < 0 || u > 1 || v < 0 || v > 1 {
		return PatchHandle{}, false
	}

	child := pm.roots[faceID]
	for child.kind == quadBranch {
		q := 0
		if u >= 0.5 {
			q |= 1
			u = 2*u - 1
		} else {
			u *= 2
		}
		if v >= 0.5 {
			q |= 2
			v = 2*v - 1
		} else {
			v *= 2
		}
		child = pm.nodes[child.index].children[q]
	}
	if child.kind != quadPatch {
		return PatchHandle{}, false
	}
	return pm.tables.HandleAt(child.index), true
}
