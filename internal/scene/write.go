package scene

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

const generator = "duatanim"

// Write stores m at path as binary glTF (.glb) or JSON glTF with an
// embedded buffer (.gltf). name labels the mesh and node.
func Write(m *Mesh, name, path string) error {
	if err := m.validate(); err != nil {
		return err
	}
	doc := gltf.NewDocument()
	doc.Asset.Generator = generator

	indices := make([]uint32, 0, len(m.Triangles)*3)
	for _, t := range m.Triangles {
		indices = append(indices, t[0], t[1], t[2])
	}
	pos := modeler.WritePosition(doc, m.Positions)
	idx := modeler.WriteIndices(doc, indices)

	doc.Meshes = []*gltf.Mesh{{
		Name: name,
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(idx),
			Attributes: map[string]int{gltf.POSITION: pos},
		}},
	}}
	doc.Nodes = []*gltf.Node{{Name: name, Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure output dir: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".glb":
		return gltf.SaveBinary(doc, path)
	case ".gltf":
		for _, buf := range doc.Buffers {
			buf.EmbeddedResource()
		}
		return gltf.Save(doc, path)
	default:
		return fmt.Errorf("%w: cannot write %q", ErrUnsupportedFormat, ext)
	}
}

// Convert loads src, cleans the mesh and writes it to dst.
func Convert(src, dst, name string) (CleanStats, error) {
	mesh, err := Load(src)
	if err != nil {
		return CleanStats{}, err
	}
	stats := mesh.Clean()
	if err := Write(mesh, name, dst); err != nil {
		return stats, err
	}
	return stats, nil
}
