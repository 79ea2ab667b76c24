package services_test

import (
	"context"
	"testing"

	"github.com/Noquela/sands-of-duat/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithItem(ctx, "Sword And Shield Slash")
	ctx = services.WithCategory(ctx, "combat")
	ctx = services.WithStage(ctx, "acquisition")
	ctx = services.WithRunID(ctx, "run-123")

	if item, ok := services.ItemFromContext(ctx); !ok || item != "Sword And Shield Slash" {
		t.Fatalf("unexpected item: %v %v", item, ok)
	}
	if category, ok := services.CategoryFromContext(ctx); !ok || category != "combat" {
		t.Fatalf("unexpected category: %v %v", category, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "acquisition" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RunIDFromContext(ctx); !ok || rid != "run-123" {
		t.Fatalf("unexpected run id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithItem(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.ItemFromContext(ctx); ok {
		t.Fatal("expected no item value")
	}
}
