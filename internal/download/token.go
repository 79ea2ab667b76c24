package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Noquela/sands-of-duat/internal/logging"
	"github.com/Noquela/sands-of-duat/internal/remote"
	"github.com/Noquela/sands-of-duat/internal/services"
)

const defaultPollInterval = 2 * time.Second

// Snapshot records the files present in a directory at a point in time.
type Snapshot struct {
	Dir   string
	Taken time.Time
	files map[string]time.Time
}

// Take lists dir. A missing directory yields an empty snapshot.
func Take(dir string) (Snapshot, error) {
	snap := Snapshot{Dir: dir, Taken: time.Now(), files: map[string]time.Time{}}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return snap, nil
		}
		return snap, fmt.Errorf("list download dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		snap.files[entry.Name()] = info.ModTime()
	}
	return snap, nil
}

// DirectoryToken implements remote.Download by watching a directory.
type DirectoryToken struct {
	snapshot Snapshot
	ext      string
	poll     time.Duration
	logger   *slog.Logger
}

// NewDirectoryToken builds a token for the next file with extension ext
// appearing in snapshot.Dir.
func NewDirectoryToken(snapshot Snapshot, ext string, poll time.Duration, logger *slog.Logger) *DirectoryToken {
	if poll <= 0 {
		poll = defaultPollInterval
	}
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &DirectoryToken{
		snapshot: snapshot,
		ext:      ext,
		poll:     poll,
		logger:   logging.NewComponentLogger(logger, "download"),
	}
}

// Wait polls until a new matching file exists. Filesystem events shorten the
// wait between polls. ctx bounds the wait; a deadline is reported as
// services.ErrTimeout.
func (t *DirectoryToken) Wait(ctx context.Context) (remote.Completed, error) {
	var events <-chan fsnotify.Event
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		if addErr := watcher.Add(t.snapshot.Dir); addErr == nil {
			events = watcher.Events
		} else {
			t.logger.Debug("directory watch unavailable; polling only", logging.Error(addErr))
		}
	} else {
		t.logger.Debug("fsnotify unavailable; polling only", logging.Error(err))
	}

	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()

	for {
		if path, ok := t.newest(); ok {
			t.logger.Debug("download detected", logging.String("path", path))
			return remote.Completed{Path: path, SuggestedName: filepath.Base(path)}, nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return remote.Completed{}, services.Wrap(services.ErrTimeout, "acquisition", "await download",
					fmt.Sprintf("no %s file appeared in %s", t.ext, t.snapshot.Dir), ctx.Err())
			}
			return remote.Completed{}, ctx.Err()
		case <-ticker.C:
		case _, ok := <-events:
			if !ok {
				events = nil
			}
		}
	}
}

func (t *DirectoryToken) newest() (string, bool) {
	entries, err := os.ReadDir(t.snapshot.Dir)
	if err != nil {
		return "", false
	}
	var (
		best    string
		bestMod time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if t.ext != "" && !strings.EqualFold(filepath.Ext(name), t.ext) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.Size() == 0 {
			continue
		}
		if prev, seen := t.snapshot.files[name]; seen && !info.ModTime().After(prev) {
			continue
		}
		if best == "" || info.ModTime().After(bestMod) {
			best = filepath.Join(t.snapshot.Dir, name)
			bestMod = info.ModTime()
		}
	}
	return best, best != ""
}
