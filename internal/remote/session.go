package remote

import (
	"context"
	"strings"

	"github.com/Noquela/sands-of-duat/internal/catalog"
)

// Handle identifies a search hit inside the remote session.
type Handle struct {
	Name string
	ID   string
}

// ExportOptions are the export controls applied before a download.
type ExportOptions struct {
	Format   string
	FPS      int
	WithSkin bool
	Quality  string
}

// ExportOptionsFrom converts catalog animation settings into export options.
func ExportOptionsFrom(settings catalog.Settings) ExportOptions {
	format := strings.ToLower(strings.TrimSpace(settings.Format))
	if format == "" {
		format = "fbx"
	}
	fps := settings.FPS
	if fps <= 0 {
		fps = 30
	}
	return ExportOptions{
		Format:   format,
		FPS:      fps,
		WithSkin: settings.WithSkin,
		Quality:  strings.TrimSpace(settings.Quality),
	}
}

// Extension returns the file extension, with dot, a download is expected to carry.
func (o ExportOptions) Extension() string {
	switch o.Format {
	case "", "fbx", "fbx7":
		return ".fbx"
	default:
		return "." + o.Format
	}
}

// Completed describes a finished download.
type Completed struct {
	Path          string
	SuggestedName string
}

// Download is the completion token returned when a download is triggered.
// Wait blocks until the file is on disk or ctx ends.
type Download interface {
	Wait(ctx context.Context) (Completed, error)
}

// Session is the remote catalog capability set. Search returns an error
// wrapping services.ErrNotFound when nothing matches within its bounded wait;
// ConfigureExport returns services.ErrConfiguration when a control cannot be
// reached. TriggerDownload may return a nil Download when the implementation
// cannot correlate the request to a file; callers then fall back to watching
// destDir.
type Session interface {
	Login(ctx context.Context) error
	Search(ctx context.Context, name string) (Handle, error)
	ConfigureExport(ctx context.Context, h Handle, opts ExportOptions) error
	TriggerDownload(ctx context.Context, h Handle, destDir string) (Download, error)
	Close() error
}
