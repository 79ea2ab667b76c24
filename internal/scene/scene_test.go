package scene

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

func TestCleanRemovesDuplicatesAndUnreferenced(t *testing.T) {
	m := &Mesh{
		Positions: [][3]float32{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
			{1, 0, 0}, // duplicate of vertex 1
			{5, 5, 5}, // unreferenced
			{0, 0, 1},
		},
		Triangles: [][3]uint32{
			{0, 1, 2},
			{2, 0, 3}, // same face as the first after welding
			{0, 1, 1}, // degenerate
			{0, 2, 5},
		},
	}
	stats := m.Clean()
	if stats.MergedVertices != 1 || stats.DuplicateFaces != 1 || stats.DegenerateFaces != 1 || stats.UnreferencedVertices != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(m.Triangles) != 2 || len(m.Positions) != 4 {
		t.Fatalf("unexpected mesh: %d triangles, %d positions", len(m.Triangles), len(m.Positions))
	}
	if m.Positions[3] != [3]float32{0, 0, 1} || m.Triangles[1] != [3]uint32{0, 2, 3} {
		t.Fatalf("unexpected reindexing %+v %+v", m.Positions, m.Triangles)
	}
}

func TestLoadOBJTriangulatesPolygons(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.obj")
	body := "# quad\nv 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nvn 0 0 1\nf 1//1 2//1 3//1 -1//1\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Triangles) != 2 || m.Triangles[1] != [3]uint32{0, 2, 3} {
		t.Fatalf("unexpected triangles %+v", m.Triangles)
	}
}

func TestLoadOBJRejectsBadReference(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.obj")
	if err := os.WriteFile(path, []byte("v 0 0 0\nv 1 0 0\nf 1 2 9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for out-of-range face")
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idle.fbx")
	if err := os.WriteFile(path, []byte("Kaydara FBX Binary"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestFlattenAppliesNodeTransforms(t *testing.T) {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	idx := modeler.WriteIndices(doc, []uint32{0, 1, 2})
	doc.Meshes = []*gltf.Mesh{{Primitives: []*gltf.Primitive{{
		Indices:    gltf.Index(idx),
		Attributes: map[string]int{gltf.POSITION: pos},
	}}}}
	doc.Nodes = []*gltf.Node{
		{Name: "root", Translation: [3]float64{10, 0, 0}, Children: []int{1}},
		{Name: "child", Mesh: gltf.Index(0), Scale: [3]float64{2, 2, 2}},
		{Name: "twin", Mesh: gltf.Index(0)},
	}
	doc.Scenes[0].Nodes = []int{0, 2}

	src := filepath.Join(t.TempDir(), "clip.glb")
	if err := gltf.SaveBinary(doc, src); err != nil {
		t.Fatalf("SaveBinary: %v", err)
	}
	m, err := Load(src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Positions) != 6 || len(m.Triangles) != 2 {
		t.Fatalf("unexpected flattened mesh %d/%d", len(m.Positions), len(m.Triangles))
	}
	if m.Positions[1] != [3]float32{12, 0, 0} {
		t.Fatalf("expected scaled and translated vertex, got %v", m.Positions[1])
	}
	if m.Positions[4] != [3]float32{1, 0, 0} {
		t.Fatalf("expected untransformed twin vertex, got %v", m.Positions[4])
	}
}

func TestConvertRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tri.obj")
	if err := os.WriteFile(src, []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nv 9 9 9\nf 1 2 3\nf 3 1 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"out.glb", "out.gltf"} {
		dst := filepath.Join(dir, "converted", name)
		stats, err := Convert(src, dst, "khopesh_attack_1")
		if err != nil {
			t.Fatalf("Convert(%s): %v", name, err)
		}
		if stats.DuplicateFaces != 1 || stats.UnreferencedVertices != 1 {
			t.Fatalf("unexpected stats %+v", stats)
		}
		back, err := Load(dst)
		if err != nil {
			t.Fatalf("reload %s: %v", name, err)
		}
		if len(back.Triangles) != 1 || len(back.Positions) != 3 {
			t.Fatalf("unexpected reloaded mesh %d/%d", len(back.Positions), len(back.Triangles))
		}
	}
}

func TestWriteRejectsEmptyMesh(t *testing.T) {
	if err := Write(&Mesh{}, "empty", filepath.Join(t.TempDir(), "empty.glb")); !errors.Is(err, ErrEmptyScene) {
		t.Fatalf("expected ErrEmptyScene, got %v", err)
	}
}

func TestConvertRejectsMalformedGLTF(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "position accessor out of range",
			doc:  `{"asset":{"version":"2.0"},"meshes":[{"primitives":[{"attributes":{"POSITION":7}}]}],"nodes":[{"mesh":0}]}`,
		},
		{
			name: "index accessor out of range",
			doc: `{"asset":{"version":"2.0"},"accessors":[{"componentType":5126,"count":3,"type":"VEC3"}],` +
				`"meshes":[{"primitives":[{"attributes":{"POSITION":0},"indices":5}]}],"nodes":[{"mesh":0}]}`,
		},
		{
			name: "buffer view out of range",
			doc: `{"asset":{"version":"2.0"},"accessors":[{"bufferView":3,"componentType":5126,"count":3,"type":"VEC3"}],` +
				`"meshes":[{"primitives":[{"attributes":{"POSITION":0}}]}],"nodes":[{"mesh":0}]}`,
		},
		{
			name: "mesh out of range",
			doc:  `{"asset":{"version":"2.0"},"nodes":[{"mesh":4}]}`,
		},
		{
			name: "child out of range",
			doc:  `{"asset":{"version":"2.0"},"nodes":[{"children":[9]}]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "broken.gltf")
			if err := os.WriteFile(src, []byte(tt.doc), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Convert(src, filepath.Join(dir, "out.glb"), "broken"); err == nil {
				t.Fatal("expected an error for malformed input")
			}
		})
	}
}
