package download_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Noquela/sands-of-duat/internal/download"
	"github.com/Noquela/sands-of-duat/internal/logging"
	"github.com/Noquela/sands-of-duat/internal/services"
)

func TestDirectoryTokenIgnoresExistingFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "old.fbx"), "old")

	snap, err := download.Take(dir)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	token := download.NewDirectoryToken(snap, "fbx", 10*time.Millisecond, logging.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	_, err = token.Wait(ctx)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestDirectoryTokenFindsNewFile(t *testing.T) {
	dir := t.TempDir()
	snap, err := download.Take(dir)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	token := download.NewDirectoryToken(snap, ".fbx", 10*time.Millisecond, nil)

	go func() {
		time.Sleep(20 * time.Millisecond)
		writeFile(t, filepath.Join(dir, "partial.crdownload"), "x")
		writeFile(t, filepath.Join(dir, "Idle.fbx"), "clip")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done, err := token.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if done.Path != filepath.Join(dir, "Idle.fbx") || done.SuggestedName != "Idle.fbx" {
		t.Fatalf("unexpected completion %+v", done)
	}
}

func TestDirectoryTokenCancel(t *testing.T) {
	snap, err := download.Take(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("Take on missing dir: %v", err)
	}
	token := download.NewDirectoryToken(snap, ".fbx", 10*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := token.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Errorf("write %s: %v", path, err)
	}
}
