package scene

import (
	"fmt"
	"math"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

type mat4 [16]float64

var identity = mat4{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

func loadGLTF(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return flatten(doc)
}

// flatten walks the default scene (or every root node when the document has
// no scenes) and collects triangle primitives in world space.
func flatten(doc *gltf.Document) (*Mesh, error) {
	mesh := &Mesh{}
	visited := make(map[int]bool, len(doc.Nodes))

	var walk func(idx int, parent mat4) error
	walk = func(idx int, parent mat4) error {
		if idx < 0 || idx >= len(doc.Nodes) || doc.Nodes[idx] == nil {
			return fmt.Errorf("node index %d out of range", idx)
		}
		if visited[idx] {
			return fmt.Errorf("node %d reached twice; node graph is not a tree", idx)
		}
		visited[idx] = true
		node := doc.Nodes[idx]
		world := mul(parent, localMatrix(node))
		if node.Mesh != nil {
			if err := addMesh(doc, *node.Mesh, world, mesh); err != nil {
				return err
			}
		}
		for _, child := range node.Children {
			if err := walk(child, world); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range rootNodes(doc) {
		if err := walk(root, identity); err != nil {
			return nil, err
		}
	}
	if err := mesh.validate(); err != nil {
		return nil, err
	}
	return mesh, nil
}

func rootNodes(doc *gltf.Document) []int {
	if len(doc.Scenes) > 0 {
		sceneIdx := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			sceneIdx = *doc.Scene
		}
		return doc.Scenes[sceneIdx].Nodes
	}
	isChild := make(map[int]bool)
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			isChild[c] = true
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

func addMesh(doc *gltf.Document, meshIdx int, world mat4, out *Mesh) error {
	if meshIdx < 0 || meshIdx >= len(doc.Meshes) || doc.Meshes[meshIdx] == nil {
		return fmt.Errorf("mesh index %d out of range", meshIdx)
	}
	for pi, prim := range doc.Meshes[meshIdx].Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			continue
		}
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		posAcc, err := accessorAt(doc, posIdx)
		if err != nil {
			return fmt.Errorf("mesh %d primitive %d positions: %w", meshIdx, pi, err)
		}
		positions, err := modeler.ReadPosition(doc, posAcc, nil)
		if err != nil {
			return fmt.Errorf("mesh %d primitive %d positions: %w", meshIdx, pi, err)
		}
		var indices []uint32
		if prim.Indices != nil {
			idxAcc, accErr := accessorAt(doc, *prim.Indices)
			if accErr != nil {
				return fmt.Errorf("mesh %d primitive %d indices: %w", meshIdx, pi, accErr)
			}
			indices, err = modeler.ReadIndices(doc, idxAcc, nil)
			if err != nil {
				return fmt.Errorf("mesh %d primitive %d indices: %w", meshIdx, pi, err)
			}
		} else {
			indices = make([]uint32, len(positions))
			for i := range indices {
				indices[i] = uint32(i)
			}
		}

		for _, v := range indices {
			if int(v) >= len(positions) {
				return fmt.Errorf("mesh %d primitive %d: index %d exceeds %d positions", meshIdx, pi, v, len(positions))
			}
		}

		transformed := make([][3]float32, len(positions))
		for i, p := range positions {
			transformed[i] = world.apply(p)
		}
		tris := make([][3]uint32, 0, len(indices)/3)
		for i := 0; i+2 < len(indices); i += 3 {
			tris = append(tris, [3]uint32{indices[i], indices[i+1], indices[i+2]})
		}
		out.add(transformed, tris)
	}
	return nil
}

// accessorAt resolves an accessor and checks that the buffer view and buffer
// it points at exist.
func accessorAt(doc *gltf.Document, idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(doc.Accessors) || doc.Accessors[idx] == nil {
		return nil, fmt.Errorf("accessor index %d out of range (%d accessors)", idx, len(doc.Accessors))
	}
	acc := doc.Accessors[idx]
	if acc.BufferView == nil {
		return acc, nil
	}
	view := *acc.BufferView
	if view < 0 || view >= len(doc.BufferViews) || doc.BufferViews[view] == nil {
		return nil, fmt.Errorf("accessor %d: buffer view %d out of range", idx, view)
	}
	if buf := doc.BufferViews[view].Buffer; buf < 0 || buf >= len(doc.Buffers) || doc.Buffers[buf] == nil {
		return nil, fmt.Errorf("accessor %d: buffer %d out of range", idx, buf)
	}
	return acc, nil
}

func localMatrix(n *gltf.Node) mat4 {
	if n.Matrix != [16]float64{} && mat4(n.Matrix) != identity {
		return mat4(n.Matrix)
	}
	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	x, y, z, w := r[0], r[1], r[2], r[3]

	// Column-major rotation scaled per axis, then translation.
	return mat4{
		(1 - 2*(y*y+z*z)) * s[0], (2 * (x*y + z*w)) * s[0], (2 * (x*z - y*w)) * s[0], 0,
		(2 * (x*y - z*w)) * s[1], (1 - 2*(x*x+z*z)) * s[1], (2 * (y*z + x*w)) * s[1], 0,
		(2 * (x*z + y*w)) * s[2], (2 * (y*z - x*w)) * s[2], (1 - 2*(x*x+y*y)) * s[2], 0,
		t[0], t[1], t[2], 1,
	}
}

func mul(a, b mat4) mat4 {
	var out mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += a[k*4+row] * b[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

func (m mat4) apply(p [3]float32) [3]float32 {
	x, y, z := float64(p[0]), float64(p[1]), float64(p[2])
	w := m[3]*x + m[7]*y + m[11]*z + m[15]
	if w == 0 || math.IsNaN(w) {
		w = 1
	}
	return [3]float32{
		float32((m[0]*x + m[4]*y + m[8]*z + m[12]) / w),
		float32((m[1]*x + m[5]*y + m[9]*z + m[13]) / w),
		float32((m[2]*x + m[6]*y + m[10]*z + m[14]) / w),
	}
}
