package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfigLoad marks an unreadable or invalid catalog/config; fatal before any stage.
	ErrConfigLoad = errors.New("config load error")
	// ErrRemoteInteraction marks a remote page or control that never became ready.
	ErrRemoteInteraction = errors.New("remote interaction error")
	// ErrConverterProcess marks a primary converter failure (exit code, timeout, missing output).
	ErrConverterProcess = errors.New("converter process error")
	// ErrConverterUnavailable marks an item no conversion strategy could handle.
	ErrConverterUnavailable = errors.New("converter unavailable")
	// ErrStageThreshold marks a stage whose success rate fell under its gate.
	ErrStageThreshold = errors.New("stage threshold not met")

	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short stable label for the marker carried by err. Reports
// and the run history use it to group failures.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfigLoad):
		return "config_load"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrRemoteInteraction):
		return "remote_interaction"
	case errors.Is(err, ErrConverterUnavailable):
		return "converter_unavailable"
	case errors.Is(err, ErrConverterProcess):
		return "converter_process"
	case errors.Is(err, ErrStageThreshold):
		return "stage_threshold"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "transient"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
