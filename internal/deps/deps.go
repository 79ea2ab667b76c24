package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/Noquela/sands-of-duat/internal/config"
)

// Requirement names an external binary the pipeline may invoke.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports whether a requirement resolved on PATH.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements derives the binaries a configuration relies on. The primary
// converter is optional whenever the in-process fallback is enabled.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	var reqs []Requirement
	if binary := cfg.PrimaryBinary(); binary != "" {
		reqs = append(reqs, Requirement{
			Name:        "Primary converter",
			Command:     binary,
			Description: "External FBX to glTF converter",
			Optional:    cfg.Converter.FallbackEnabled,
		})
	}
	if bin := strings.TrimSpace(cfg.Remote.BrowserBin); bin != "" && strings.TrimSpace(cfg.Remote.DebuggerURL) == "" {
		reqs = append(reqs, Requirement{
			Name:        "Browser",
			Command:     bin,
			Description: "Chromium build driven for remote acquisition",
			Optional:    true,
		})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			if _, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the required (non-optional) statuses that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
