package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills path with size bytes of a repeating pattern, creating
// parent directories. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	if size <= 0 {
		size = 1
	}
	write(t, path, bytes.Repeat([]byte{0x42}, int(size)))
}

// WriteText writes content to path, creating parent directories.
func WriteText(t testing.TB, path, content string) {
	t.Helper()
	write(t, path, []byte(content))
}

// SampleCatalog is a two-category catalog with one explicit rename.
const SampleCatalog = `{
  "project_name": "Sands of Duat",
  "animation_settings": {"fps": 30, "format": "fbx", "with_skin": true, "quality": "high"},
  "locomotion": ["Idle", "Walking"],
  "combat": ["Sword And Shield Slash"],
  "animation_renames": {"Sword And Shield Slash": "khopesh_attack_1"}
}`

func write(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
