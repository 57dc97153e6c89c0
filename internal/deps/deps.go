package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement is an external binary podgen shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	// Hint tells the user how to fix a missing binary.
	Hint     string
	Optional bool
}

// Status reports whether a requirement resolved on PATH.
type Status struct {
	Requirement
	Available bool
	// Path is the resolved executable when Available.
	Path   string
	Detail string
}

// CheckBinaries resolves every requirement with exec.LookPath.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		req.Description = strings.TrimSpace(req.Description)
		status := Status{Requirement: req}
		switch path, err := exec.LookPath(req.Command); {
		case req.Command == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		default:
			status.Available = true
			status.Path = path
		}
		if !status.Available && req.Hint != "" {
			status.Detail += " (" + req.Hint + ")"
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the required entries of statuses that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}
