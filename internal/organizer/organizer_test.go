package organizer_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Noquela/sands-of-duat/internal/catalog"
	"github.com/Noquela/sands-of-duat/internal/logging"
	"github.com/Noquela/sands-of-duat/internal/organizer"
	"github.com/Noquela/sands-of-duat/internal/report"
	"github.com/Noquela/sands-of-duat/internal/services"
	"github.com/Noquela/sands-of-duat/internal/testsupport"
)

func setup(t *testing.T) (*organizer.Organizer, organizer.Options, *catalog.Catalog) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cat, err := catalog.Parse(strings.NewReader(testsupport.SampleCatalog))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	opts := organizer.OptionsFromConfig(cfg)
	return organizer.New(opts, logging.NewNop()), opts, cat
}

func TestOrganizeIsIdempotent(t *testing.T) {
	org, opts, cat := setup(t)
	testsupport.WriteFile(t, filepath.Join(opts.ConvertedDir, "idle.glb"), 1024*1024)
	testsupport.WriteFile(t, filepath.Join(opts.ConvertedDir, "khopesh_attack_1.glb"), 512*1024)
	testsupport.WriteFile(t, filepath.Join(opts.ConvertedDir, "stray.glb"), 10)

	first, err := org.Organize(context.Background(), cat)
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	second, err := org.Organize(context.Background(), cat)
	if err != nil {
		t.Fatalf("second Organize: %v", err)
	}

	for _, summary := range []organizer.Summary{first, second} {
		if len(summary.Placements) != 2 || len(summary.Missing) != 1 || summary.Missing[0] != "walking" {
			t.Fatalf("unexpected summary %+v", summary)
		}
	}
	if !first.Placements[0].Moved || second.Placements[0].Moved {
		t.Fatal("second pass must not move anything")
	}

	if _, err := os.Stat(filepath.Join(opts.OrganizedDir, "locomotion", "idle.glb")); err != nil {
		t.Fatalf("idle not organized: %v", err)
	}
	if _, err := os.Stat(filepath.Join(opts.OrganizedDir, "combat", "khopesh_attack_1.glb")); err != nil {
		t.Fatalf("khopesh not organized: %v", err)
	}
	if _, err := os.Stat(filepath.Join(opts.ConvertedDir, "stray.glb")); err != nil {
		t.Fatalf("uncatalogued file should stay put: %v", err)
	}

	seen := map[string]string{}
	err = filepath.WalkDir(opts.OrganizedDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if prev, dup := seen[d.Name()]; dup {
			t.Fatalf("%s placed in both %s and %s", d.Name(), prev, path)
		}
		seen[d.Name()] = path
		return nil
	})
	if err != nil {
		t.Fatalf("walk organized dir: %v", err)
	}
}

func TestOrganizeWritesConversionReport(t *testing.T) {
	org, opts, cat := setup(t)
	testsupport.WriteFile(t, filepath.Join(opts.ConvertedDir, "idle.glb"), 1024*1024)
	testsupport.WriteFile(t, filepath.Join(opts.ConvertedDir, "khopesh_attack_1.glb"), 512*1024)

	if _, err := org.Organize(context.Background(), cat); err != nil {
		t.Fatalf("Organize: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(opts.ReportsDir, report.ConversionFile))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var doc report.Conversion
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	ps := doc.ProcessingSummary
	if ps.TotalProcessed != 2 || ps.TotalGodotReady != 2 || ps.TotalSizeMB != 1.5 {
		t.Fatalf("unexpected processing summary %+v", ps)
	}
	if ps.Categories["locomotion"] != 1 || ps.Categories["combat"] != 1 {
		t.Fatalf("unexpected category counts %+v", ps.Categories)
	}
	if strings.Join(doc.FileList, ",") != "idle.glb,khopesh_attack_1.glb" {
		t.Fatalf("unexpected file list %v", doc.FileList)
	}
	if got := doc.GodotStructure["combat"]; len(got) != 1 || got[0] != "khopesh_attack_1.glb" {
		t.Fatalf("unexpected structure %v", doc.GodotStructure)
	}
}

func TestReportCountsUncataloguedOutputs(t *testing.T) {
	org, opts, cat := setup(t)
	testsupport.WriteFile(t, filepath.Join(opts.ConvertedDir, "idle.glb"), 1024*1024)
	testsupport.WriteFile(t, filepath.Join(opts.ConvertedDir, "stray.glb"), 1024*1024)
	testsupport.WriteFile(t, filepath.Join(opts.ConvertedDir, ".stray.partial.glb"), 10)

	summary, err := org.Organize(context.Background(), cat)
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	if len(summary.Pending) != 1 || summary.Pending[0].File != "stray.glb" {
		t.Fatalf("expected stray clip pending, got %+v", summary.Pending)
	}
	doc := summary.Report(cat)
	ps := doc.ProcessingSummary
	if ps.TotalProcessed != 2 || ps.TotalGodotReady != 1 || ps.TotalSizeMB != 2 {
		t.Fatalf("unexpected processing summary %+v", ps)
	}
	if strings.Join(doc.FileList, ",") != "idle.glb,stray.glb" {
		t.Fatalf("unexpected file list %v", doc.FileList)
	}
	if got := doc.GodotStructure["locomotion"]; len(got) != 1 || got[0] != "idle.glb" {
		t.Fatalf("unexpected structure %v", doc.GodotStructure)
	}
}

func TestValidateOutputRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.glb")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := organizer.ValidateOutput(path, logging.NewNop()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestOrganizeStopsOnCancel(t *testing.T) {
	org, opts, cat := setup(t)
	testsupport.WriteFile(t, filepath.Join(opts.ConvertedDir, "idle.glb"), 8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := org.Organize(ctx, cat); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(opts.ConvertedDir, "idle.glb")); err != nil {
		t.Fatalf("nothing should move after cancellation: %v", err)
	}
}
