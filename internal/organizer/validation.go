package organizer

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Noquela/sands-of-duat/internal/logging"
	"github.com/Noquela/sands-of-duat/internal/services"
)

// ValidateOutput checks that a placed clip is a non-empty regular file and
// returns its size. Scene contents are not inspected.
func ValidateOutput(path string, logger *slog.Logger) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "organization", "validate output", path, err)
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		if logger != nil {
			logger.Error("organized clip failed validation",
				logging.String("path", path),
				logging.Int64("size", info.Size()),
				logging.String(logging.FieldEventType, "output_validation_failed"),
				logging.String(logging.FieldErrorHint, "delete the file and rerun conversion"),
			)
		}
		return 0, services.Wrap(services.ErrValidation, "organization", "validate output",
			fmt.Sprintf("%s is empty or not a regular file", path), nil)
	}
	return info.Size(), nil
}
