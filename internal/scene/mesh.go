package scene

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsupportedFormat is returned for inputs no loader understands.
var ErrUnsupportedFormat = errors.New("unsupported scene format")

// ErrEmptyScene is returned when a scene holds no triangles.
var ErrEmptyScene = errors.New("scene contains no triangles")

// Mesh is an indexed triangle mesh in world space.
type Mesh struct {
	Positions [][3]float32
	Triangles [][3]uint32
}

// CleanStats counts what Clean removed.
type CleanStats struct {
	MergedVertices       int
	DegenerateFaces      int
	DuplicateFaces       int
	UnreferencedVertices int
}

// Supports reports whether Load understands files with extension ext.
func Supports(ext string) bool {
	switch strings.ToLower(ext) {
	case ".gltf", ".glb", ".obj":
		return true
	default:
		return false
	}
}

// Load reads path into a flattened mesh, dispatching on the file extension.
func Load(path string) (*Mesh, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".gltf", ".glb":
		return loadGLTF(path)
	case ".obj":
		return loadOBJ(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Clean welds identical positions, then drops degenerate and duplicate
// faces and finally the vertices no face references. Face order is kept.
func (m *Mesh) Clean() CleanStats {
	var stats CleanStats

	weld := make(map[[3]float32]uint32, len(m.Positions))
	remap := make([]uint32, len(m.Positions))
	welded := make([][3]float32, 0, len(m.Positions))
	for i, p := range m.Positions {
		if idx, ok := weld[p]; ok {
			remap[i] = idx
			stats.MergedVertices++
			continue
		}
		idx := uint32(len(welded))
		weld[p] = idx
		remap[i] = idx
		welded = append(welded, p)
	}

	seen := make(map[[3]uint32]struct{}, len(m.Triangles))
	faces := make([][3]uint32, 0, len(m.Triangles))
	for _, tri := range m.Triangles {
		t := [3]uint32{remap[tri[0]], remap[tri[1]], remap[tri[2]]}
		if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
			stats.DegenerateFaces++
			continue
		}
		key := t
		sort.Slice(key[:], func(a, b int) bool { return key[a] < key[b] })
		if _, dup := seen[key]; dup {
			stats.DuplicateFaces++
			continue
		}
		seen[key] = struct{}{}
		faces = append(faces, t)
	}

	used := make([]int64, len(welded))
	for i := range used {
		used[i] = -1
	}
	positions := make([][3]float32, 0, len(welded))
	for fi, tri := range faces {
		for k, v := range tri {
			if used[v] < 0 {
				used[v] = int64(len(positions))
				positions = append(positions, welded[v])
			}
			faces[fi][k] = uint32(used[v])
		}
	}
	stats.UnreferencedVertices = len(welded) - len(positions)

	m.Positions = positions
	m.Triangles = faces
	return stats
}

// add appends positions and triangles, offsetting the incoming indices.
func (m *Mesh) add(positions [][3]float32, triangles [][3]uint32) {
	offset := uint32(len(m.Positions))
	m.Positions = append(m.Positions, positions...)
	for _, t := range triangles {
		m.Triangles = append(m.Triangles, [3]uint32{t[0] + offset, t[1] + offset, t[2] + offset})
	}
}

func (m *Mesh) validate() error {
	if len(m.Triangles) == 0 {
		return ErrEmptyScene
	}
	for i, t := range m.Triangles {
		for _, v := range t {
			if int(v) >= len(m.Positions) {
				return fmt.Errorf("triangle %d references vertex %d of %d", i, v, len(m.Positions))
			}
		}
	}
	return nil
}
