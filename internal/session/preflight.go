package session

import (
	"context"
	"os/exec"

	"github.com/framebench/framebench/internal/sysinfo"
)

// PreflightCheck is one verified requirement.
type PreflightCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// PreflightProbes are the external lookups, injectable for tests.
type PreflightProbes struct {
	LookPath  func(name string) (string, error)
	SteamPath func() (string, error)
	PCIExists func(address string) bool
}

// DefaultProbes returns the real binary/device probes.
func DefaultProbes(steamFind func() (string, error)) PreflightProbes {
	return PreflightProbes{
		LookPath:  exec.LookPath,
		SteamPath: steamFind,
		PCIExists: sysinfo.PCIDeviceExists,
	}
}

// Preflight verifies the session requirements before any external state
// is touched: overlay binary, Steam client, and the configured GPU PCI
// address (when set). No mutation happens here; failures are reported
// as structured checks.
func Preflight(ctx context.Context, cfg Config, probes PreflightProbes) []PreflightCheck {
	var checks []PreflightCheck

	if path, err := probes.LookPath("mangohud"); err != nil {
		checks = append(checks, PreflightCheck{
			Name: "overlay", Code: CodePreflightOverlayMissing,
			Detail: "mangohud binary not found in PATH",
		})
	} else {
		checks = append(checks, PreflightCheck{Name: "overlay", OK: true, Detail: path})
	}

	if path, err := probes.SteamPath(); err != nil {
		checks = append(checks, PreflightCheck{
			Name: "steam", Code: CodePreflightSteamMissing,
			Detail: "steam client not found",
		})
	} else {
		checks = append(checks, PreflightCheck{Name: "steam", OK: true, Detail: path})
	}

	if cfg.GPUPCIAddress != "" {
		if probes.PCIExists(cfg.GPUPCIAddress) {
			checks = append(checks, PreflightCheck{Name: "gpu", OK: true, Detail: cfg.GPUPCIAddress})
		} else {
			checks = append(checks, PreflightCheck{
				Name: "gpu", Code: CodePreflightBadGPU,
				Detail: "PCI address " + cfg.GPUPCIAddress + " does not resolve to a device",
			})
		}
	}

	return checks
}

// PreflightOK reports whether every check passed.
func PreflightOK(checks []PreflightCheck) bool {
	for _, c := range checks {
		if !c.OK {
			return false
		}
	}
	return true
}
