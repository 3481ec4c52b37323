package gltfutil

import (
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

func Load(path string) (*gltf.Document, error) {
	return gltf.Open(path)
}

// VertexBlock is a POSITION accessor and the primitives of one mesh using it.
// Offset is the index of its first vertex counted over all preceding blocks.
type VertexBlock struct {
	Mesh       int
	Accessor   uint32
	Primitives []int
	Offset     int
	Positions  [][3]float32
}

// CollectVertices lists the POSITION accessors of all meshes in document order.
// Primitives sharing an accessor share a block.
func CollectVertices(doc *gltf.Document) ([]*VertexBlock, error) {
	var blocks []*VertexBlock
	offset := 0
	for mi, m := range doc.Meshes {
		byAccessor := map[uint32]*VertexBlock{}
		for pi, p := range m.Primitives {
			a, ok := p.Attributes["POSITION"]
			if !ok {
				continue
			}
			if b, ok := byAccessor[a]; ok {
				b.Primitives = append(b.Primitives, pi)
				continue
			}
			if int(a) >= len(doc.Accessors) {
				return nil, errors.Errorf("gltf: mesh %d: accessor %d out of range", mi, a)
			}
			acr := doc.Accessors[a]
			if acr.Sparse != nil {
				return nil, errors.Errorf("gltf: mesh %d: sparse POSITION accessor is not supported", mi)
			}
			pos, err := modeler.ReadPosition(doc, acr, [][3]float32{})
			if err != nil {
				return nil, errors.Wrapf(err, "gltf: mesh %d", mi)
			}
			b := &VertexBlock{Mesh: mi, Accessor: a, Primitives: []int{pi}, Offset: offset, Positions: pos}
			byAccessor[a] = b
			blocks = append(blocks, b)
			offset += len(pos)
		}
	}
	return blocks, nil
}
