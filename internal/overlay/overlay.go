// Package overlay manages the MangoHud configuration as a scoped
// resource: back up on acquire, write the benchmark template, restore
// on release. A lock file beside the config prevents two concurrent
// benchmark sessions from fighting over the overlay.
package overlay

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrLocked is returned when another session holds the overlay config.
var ErrLocked = errors.New("overlay config is locked by another session")

// Config parameterizes the overlay for one benchmark session.
type Config struct {
	OutputFolder  string // where the overlay writes CSV logs
	ShowHUD       bool   // render the on-screen HUD
	ManualLogging bool   // user toggles recording with the keybind
	LogDurationS  int    // auto-stop after this many seconds; 0 = manual stop
	PCIDevice     string // optional GPU PCI address for multi-GPU systems
}

// Manager owns the overlay config path for the duration of a session.
type Manager struct {
	configPath string
	lockPath   string

	acquired  bool
	hadConfig bool
	backup    []byte
}

// DefaultConfigPath returns the standard MangoHud config location.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return filepath.Join(home, ".config", "MangoHud", "MangoHud.conf"), nil
}

// NewManager creates a Manager for the given config path.
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
		lockPath:   configPath + ".lock",
	}
}

// ConfigPath returns the managed config file path.
func (m *Manager) ConfigPath() string { return m.configPath }

// Acquire locks the overlay config, backs up the current content, and
// writes the benchmark configuration. Must be balanced by Release on
// every exit path.
func (m *Manager) Acquire(cfg Config) error {
	if m.acquired {
		return fmt.Errorf("overlay config already acquired")
	}

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	lock, err := os.OpenFile(m.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return ErrLocked
		}
		return fmt.Errorf("create lock: %w", err)
	}
	fmt.Fprintf(lock, "%d\n", os.Getpid())
	lock.Close()

	data, err := os.ReadFile(m.configPath)
	switch {
	case err == nil:
		m.hadConfig = true
		m.backup = data
	case os.IsNotExist(err):
		m.hadConfig = false
	default:
		os.Remove(m.lockPath)
		return fmt.Errorf("back up config: %w", err)
	}

	if err := os.WriteFile(m.configPath, []byte(renderConfig(cfg)), 0o644); err != nil {
		os.Remove(m.lockPath)
		return fmt.Errorf("write benchmark config: %w", err)
	}

	m.acquired = true
	return nil
}

// Release restores the original overlay config and drops the lock.
// Safe to call more than once; repeat calls are no-ops, so running the
// restoration twice leaves identical external state.
func (m *Manager) Release() error {
	if !m.acquired {
		return nil
	}
	m.acquired = false

	var restoreErr error
	if m.hadConfig {
		restoreErr = os.WriteFile(m.configPath, m.backup, 0o644)
	} else {
		if err := os.Remove(m.configPath); err != nil && !os.IsNotExist(err) {
			restoreErr = err
		}
	}

	if err := os.Remove(m.lockPath); err != nil && !os.IsNotExist(err) && restoreErr == nil {
		restoreErr = err
	}

	if restoreErr != nil {
		return fmt.Errorf("restore overlay config: %w", restoreErr)
	}
	return nil
}

// renderConfig emits the MangoHud key=value template. The format is
// owned by the overlay; this stays an opaque string from the caller's
// point of view.
func renderConfig(cfg Config) string {
	var b strings.Builder

	b.WriteString("# written by framebench - restored automatically after the session\n")
	b.WriteString("legacy_layout=false\n")
	b.WriteString("fps\n")
	b.WriteString("frametime\n")
	b.WriteString("gpu_stats\n")
	b.WriteString("cpu_stats\n")
	b.WriteString("gpu_temp\n")
	b.WriteString("cpu_temp\n")
	b.WriteString("gpu_power\n")
	b.WriteString("gpu_core_clock\n")
	b.WriteString("vram\n")
	b.WriteString("resolution\n")

	b.WriteString("output_folder=" + cfg.OutputFolder + "\n")
	b.WriteString("log_duration=" + strconv.Itoa(cfg.LogDurationS) + "\n")
	b.WriteString("log_interval=0\n")

	if cfg.ManualLogging {
		b.WriteString("toggle_logging=Shift_L+F2\n")
	} else {
		b.WriteString("autostart_log=1\n")
	}
	if !cfg.ShowHUD {
		b.WriteString("no_display\n")
	}
	if cfg.PCIDevice != "" {
		b.WriteString("pci_dev=" + cfg.PCIDevice + "\n")
	}

	return b.String()
}
