package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Noquela/sands-of-duat/internal/catalog"
	"github.com/Noquela/sands-of-duat/internal/services"
)

const sampleCatalog = `{
  "project_name": "Sands of Duat",
  "animation_settings": {"fps": 30, "format": "fbx", "with_skin": true, "quality": "high"},
  "locomotion": ["Idle", "Walking", "Running"],
  "combat": ["Sword And Shield Slash", "Sword And Shield Block"],
  "animation_renames": {"Sword And Shield Slash": "khopesh_attack_1"},
  "notes": "metadata keys are ignored"
}`

func TestParsePreservesCategoryOrder(t *testing.T) {
	c, err := catalog.Parse(strings.NewReader(sampleCatalog))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if c.ProjectName() != "Sands of Duat" {
		t.Fatalf("unexpected project name %q", c.ProjectName())
	}
	settings := c.Settings()
	if settings.FPS != 30 || settings.Format != "fbx" || !settings.WithSkin || settings.Quality != "high" {
		t.Fatalf("unexpected settings %+v", settings)
	}
	categories := c.Categories()
	if len(categories) != 2 || categories[0].Name != "locomotion" || categories[1].Name != "combat" {
		t.Fatalf("unexpected categories %+v", categories)
	}
	if c.Len() != 5 {
		t.Fatalf("expected 5 entries, got %d", c.Len())
	}
	entries := c.Entries()
	if entries[3].CanonicalName != "Sword And Shield Slash" || entries[3].Rename != "khopesh_attack_1" || entries[3].Category != "combat" {
		t.Fatalf("unexpected entry %+v", entries[3])
	}
}

func TestRenameUsesMappingThenSlug(t *testing.T) {
	c, err := catalog.Parse(strings.NewReader(sampleCatalog))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	tests := []struct {
		name string
		want string
	}{
		{"Sword And Shield Slash", "khopesh_attack_1"},
		{"Sword And Shield Block", "sword_and_shield_block"},
		{"Idle", "idle"},
		{"Not In Catalog", "not_in_catalog"},
	}
	for _, tt := range tests {
		first := c.Rename(tt.name)
		second := c.Rename(tt.name)
		if first != tt.want || second != first {
			t.Fatalf("Rename(%q) = %q/%q, want %q", tt.name, first, second, tt.want)
		}
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Sword And Shield Slash": "sword_and_shield_slash",
		"Jump  Over":             "jump__over",
		" Standing Idle":         "_standing_idle",
		"Capoeira":               "capoeira",
		"Pirouette Élégante":     "pirouette_elegante",
		"Jump/Land":              "jump_land",
	}
	for in, want := range tests {
		if got := catalog.Slug(in); got != want {
			t.Fatalf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLookups(t *testing.T) {
	c, err := catalog.Parse(strings.NewReader(sampleCatalog))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	entry, ok := c.LookupRename("khopesh_attack_1")
	if !ok || entry.CanonicalName != "Sword And Shield Slash" {
		t.Fatalf("unexpected rename lookup %+v %v", entry, ok)
	}
	if _, ok := c.Lookup("Not In Catalog"); ok {
		t.Fatal("expected lookup miss")
	}
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing settings",
			body:    `{"project_name": "x", "combat": ["A"]}`,
			wantErr: "animation_settings",
		},
		{
			name:    "missing project",
			body:    `{"animation_settings": {}, "combat": ["A"]}`,
			wantErr: "project_name",
		},
		{
			name:    "no categories",
			body:    `{"project_name": "x", "animation_settings": {}}`,
			wantErr: "<category>",
		},
		{
			name:    "duplicate across categories",
			body:    `{"project_name": "x", "animation_settings": {}, "a": ["Idle"], "b": ["Idle"]}`,
			wantErr: "appears in both",
		},
		{
			name:    "colliding renames",
			body:    `{"project_name": "x", "animation_settings": {}, "a": ["Idle", "Run"], "animation_renames": {"Run": "idle"}}`,
			wantErr: "both resolve",
		},
		{
			name:    "not an object",
			body:    `["Idle"]`,
			wantErr: "JSON object",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.Parse(strings.NewReader(tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, services.ErrConfigLoad) {
				t.Fatalf("expected ErrConfigLoad, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadReportsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(`{"project_name": "x"}`), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	_, err := catalog.Load(path)
	var loadErr *catalog.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if loadErr.Path != path {
		t.Fatalf("expected path %s, got %s", path, loadErr.Path)
	}

	if _, err := catalog.Load(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, services.ErrConfigLoad) {
		t.Fatalf("expected ErrConfigLoad for missing file, got %v", err)
	}
}
