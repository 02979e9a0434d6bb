// Package sysinfo gathers the hardware and OS snapshot used for the
// system fingerprint: GPU, CPU, RAM, OS, kernel, driver versions.
package sysinfo

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// CommandRunner abstracts external command execution for testability.
type CommandRunner interface {
	// Run executes a command and returns its stdout.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecCommandRunner is the default CommandRunner using os/exec.
type ExecCommandRunner struct{}

func (r *ExecCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// OSInfo describes the operating system environment.
type OSInfo struct {
	Name          string `json:"name"`
	Kernel        string `json:"kernel"`
	Desktop       string `json:"desktop"`
	DisplayServer string `json:"display_server"`
}

// CPUInfo describes the processor.
type CPUInfo struct {
	Model        string `json:"model"`
	Vendor       string `json:"vendor"`
	Cores        int    `json:"cores"`
	Threads      int    `json:"threads"`
	BaseClockMHz int    `json:"base_clock_mhz"`
}

// RAMInfo describes installed memory.
type RAMInfo struct {
	TotalGB float64 `json:"total_gb"`
	TotalMB int     `json:"total_mb"`
}

// Snapshot is the full system information record persisted as
// system_info.json next to the fingerprint.
type Snapshot struct {
	OS  OSInfo  `json:"os"`
	GPU GPUInfo `json:"gpu"`
	CPU CPUInfo `json:"cpu"`
	RAM RAMInfo `json:"ram"`
}

// Collector gathers the snapshot. The CommandRunner is injectable so
// tests can stub lspci/vulkaninfo/glxinfo output.
type Collector struct {
	runner CommandRunner
}

// NewCollector creates a Collector with the default command runner.
func NewCollector() *Collector {
	return &Collector{runner: &ExecCommandRunner{}}
}

// NewCollectorWithRunner creates a Collector with a custom runner.
func NewCollectorWithRunner(r CommandRunner) *Collector {
	return &Collector{runner: r}
}

// Collect gathers the complete system snapshot. Individual probe
// failures degrade to "Unknown" fields rather than erroring.
func (c *Collector) Collect(ctx context.Context) Snapshot {
	return Snapshot{
		OS:  c.collectOS(ctx),
		GPU: c.collectGPU(ctx),
		CPU: c.collectCPU(),
		RAM: c.collectRAM(),
	}
}

func (c *Collector) collectOS(ctx context.Context) OSInfo {
	info := OSInfo{
		Name:          "Unknown",
		Kernel:        "Unknown",
		Desktop:       "Unknown",
		DisplayServer: "Unknown",
	}

	if hi, err := host.InfoWithContext(ctx); err == nil {
		info.Kernel = hi.KernelVersion
	}

	// Prefer PRETTY_NAME from os-release over gopsutil's platform slug.
	if data, err := os.ReadFile("/etc/os-release"); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			if strings.HasPrefix(line, "PRETTY_NAME=") {
				info.Name = strings.Trim(strings.TrimPrefix(line, "PRETTY_NAME="), "\"")
				break
			}
		}
	}

	if desktop := os.Getenv("XDG_CURRENT_DESKTOP"); desktop != "" {
		info.Desktop = desktop
	} else if session := os.Getenv("DESKTOP_SESSION"); session != "" {
		info.Desktop = session
	}

	if os.Getenv("WAYLAND_DISPLAY") != "" {
		info.DisplayServer = "wayland"
	} else if os.Getenv("DISPLAY") != "" {
		info.DisplayServer = "x11"
	}

	return info
}

func (c *Collector) collectCPU() CPUInfo {
	info := CPUInfo{Model: "Unknown", Vendor: "Unknown"}

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		first := infos[0]
		info.Model = strings.TrimSpace(first.ModelName)
		info.BaseClockMHz = int(first.Mhz)
		switch {
		case strings.Contains(first.VendorID, "AMD"):
			info.Vendor = "AMD"
		case strings.Contains(first.VendorID, "Intel"):
			info.Vendor = "Intel"
		}
	}

	if physical, err := cpu.Counts(false); err == nil {
		info.Cores = physical
	}
	if logical, err := cpu.Counts(true); err == nil {
		info.Threads = logical
	}

	return info
}

func (c *Collector) collectRAM() RAMInfo {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return RAMInfo{}
	}
	return RAMInfo{
		TotalGB: float64(vm.Total) / (1024 * 1024 * 1024),
		TotalMB: int(vm.Total / (1024 * 1024)),
	}
}
