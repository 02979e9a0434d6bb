package overlay

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "MangoHud.conf")
	original := "fps_limit=144\n"
	if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(path)
	cfg := Config{
		OutputFolder:  filepath.Join(dir, "logs"),
		ShowHUD:       true,
		ManualLogging: true,
		LogDurationS:  61,
		PCIDevice:     "0000:03:00.0",
	}
	if err := m.Acquire(cfg); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(written)
	for _, want := range []string{
		"output_folder=" + cfg.OutputFolder,
		"log_duration=61",
		"toggle_logging=",
		"pci_dev=0000:03:00.0",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("config missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "no_display") {
		t.Error("no_display present despite ShowHUD")
	}

	if err := m.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	restored, _ := os.ReadFile(path)
	if string(restored) != original {
		t.Errorf("config not restored: %q", restored)
	}
	if _, err := os.Stat(path + ".lock"); !os.IsNotExist(err) {
		t.Error("lock file not removed")
	}
}

// TestReleaseIdempotent: running restoration twice yields identical
// external state and no error.
func TestReleaseIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "MangoHud.conf")
	os.WriteFile(path, []byte("original\n"), 0o644)

	m := NewManager(path)
	if err := m.Acquire(Config{OutputFolder: dir}); err != nil {
		t.Fatal(err)
	}
	if err := m.Release(); err != nil {
		t.Fatal(err)
	}

	first, _ := os.ReadFile(path)
	if err := m.Release(); err != nil {
		t.Errorf("second Release: %v", err)
	}
	second, _ := os.ReadFile(path)
	if string(first) != string(second) {
		t.Error("second Release changed state")
	}
}

// TestAcquireWithoutExistingConfig: when no config existed, Release
// removes the file we created.
func TestAcquireWithoutExistingConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "MangoHud", "MangoHud.conf")

	m := NewManager(path)
	if err := m.Acquire(Config{OutputFolder: dir}); err != nil {
		t.Fatal(err)
	}
	if err := m.Release(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("config file left behind")
	}
}

// TestLockContention: a second manager cannot acquire while the first
// holds the config.
func TestLockContention(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "MangoHud.conf")

	first := NewManager(path)
	if err := first.Acquire(Config{OutputFolder: dir}); err != nil {
		t.Fatal(err)
	}
	defer first.Release()

	second := NewManager(path)
	err := second.Acquire(Config{OutputFolder: dir})
	if !errors.Is(err, ErrLocked) {
		t.Errorf("second Acquire = %v, want ErrLocked", err)
	}

	if err := first.Release(); err != nil {
		t.Fatal(err)
	}
	if err := second.Acquire(Config{OutputFolder: dir}); err != nil {
		t.Errorf("Acquire after release: %v", err)
	}
	second.Release()
}

func TestDoubleAcquire(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(filepath.Join(dir, "MangoHud.conf"))
	if err := m.Acquire(Config{OutputFolder: dir}); err != nil {
		t.Fatal(err)
	}
	defer m.Release()
	if err := m.Acquire(Config{OutputFolder: dir}); err == nil {
		t.Error("double Acquire succeeded")
	}
}

func TestRenderConfigAutoLogging(t *testing.T) {
	content := renderConfig(Config{OutputFolder: "/tmp/x", LogDurationS: 30})
	if !strings.Contains(content, "autostart_log=1") {
		t.Error("non-manual config missing autostart")
	}
	if !strings.Contains(content, "no_display") {
		t.Error("hidden HUD config missing no_display")
	}
}
