package sysinfo

import (
	"context"
	"fmt"
	"testing"
)

// fakeRunner serves canned output per command name.
type fakeRunner struct {
	outputs map[string]string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	if out, ok := f.outputs[name]; ok {
		return []byte(out), nil
	}
	return nil, fmt.Errorf("%s: command not found", name)
}

const lspciAMD = `0000:03:00.0 VGA compatible controller [0300]: Advanced Micro Devices, Inc. [AMD/ATI] Navi 31 [Radeon RX 7900 XTX] [1002:744c] (rev c8)
0000:13:00.0 VGA compatible controller [0300]: Advanced Micro Devices, Inc. [AMD/ATI] Raphael [1002:164e] (rev c9)`

const vulkanAMD = `GPU0:
	deviceName         = AMD Radeon RX 7900 XTX (RADV NAVI31)
	driverInfo         = Mesa 24.3.1
	apiVersion         = 1.3.289
GPU1:
	deviceName         = AMD Radeon Graphics (RADV RAPHAEL_MENDOCINO)`

const glxinfoMesa = `OpenGL vendor string: AMD
OpenGL version string: 4.6 (Compatibility Profile) Mesa 24.3.1`

func TestCollectGPUAMD(t *testing.T) {
	c := NewCollectorWithRunner(&fakeRunner{outputs: map[string]string{
		"lspci":      lspciAMD,
		"vulkaninfo": vulkanAMD,
		"glxinfo":    glxinfoMesa,
	}})

	info := c.collectGPU(context.Background())

	if info.Vendor != "AMD" {
		t.Errorf("vendor = %q, want AMD", info.Vendor)
	}
	// RADV codename suffix is stripped by the cleanup table.
	if info.Model != "AMD Radeon RX 7900 XTX" {
		t.Errorf("model = %q, want AMD Radeon RX 7900 XTX", info.Model)
	}
	if info.DeviceID != "1002:744c" {
		t.Errorf("device_id = %q, want 1002:744c", info.DeviceID)
	}
	if info.DriverVersion != "24.3.1" {
		t.Errorf("driver_version = %q, want 24.3.1", info.DriverVersion)
	}
	if info.VulkanVersion != "1.3.289" {
		t.Errorf("vulkan_version = %q, want 1.3.289", info.VulkanVersion)
	}
}

func TestCollectGPUNoTools(t *testing.T) {
	c := NewCollectorWithRunner(&fakeRunner{outputs: map[string]string{}})
	info := c.collectGPU(context.Background())
	if info.Model != "Unknown" {
		t.Errorf("model = %q, want Unknown when no probes answer", info.Model)
	}
}

func TestNormalizeGPUName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"AMD Radeon RX 7900 XTX (RADV NAVI31)", "AMD Radeon RX 7900 XTX"},
		{"NVIDIA GeForce RTX 2070 (TU106)", "NVIDIA GeForce RTX 2070"},
		{"NVIDIA GeForce RTX 3080 (GA102)", "NVIDIA GeForce RTX 3080"},
		{"NVIDIA GeForce RTX 4090 (AD102)", "NVIDIA GeForce RTX 4090"},
		{"Plain Name", "Plain Name"},
	}
	for _, tt := range tests {
		if got := NormalizeGPUName(tt.in); got != tt.want {
			t.Errorf("NormalizeGPUName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLookupDeviceID(t *testing.T) {
	// Navi 31 shared ID disambiguated by VRAM.
	tests := []struct {
		id     string
		vramMB int
		want   string
	}{
		{"1002:744c", 24 * 1024, "AMD Radeon RX 7900 XTX"},
		{"1002:744c", 20 * 1024, "AMD Radeon RX 7900 XT"},
		{"1002:744c", 16 * 1024, "AMD Radeon RX 7900 GRE"},
		{"1002:744c", 0, "AMD Radeon RX 7900"},
		{"1002:7480", 16 * 1024, "AMD Radeon RX 7800 XT"},
		{"1002:7480", 12 * 1024, "AMD Radeon RX 7700 XT"},
		{"10de:2204", 0, "RTX 3090"},
		{"ffff:0000", 0, ""},
	}
	for _, tt := range tests {
		if got := lookupDeviceID(tt.id, tt.vramMB); got != tt.want {
			t.Errorf("lookupDeviceID(%q, %d) = %q, want %q", tt.id, tt.vramMB, got, tt.want)
		}
	}
}

func TestDetectAllGPUs(t *testing.T) {
	c := NewCollectorWithRunner(&fakeRunner{outputs: map[string]string{
		"lspci": lspciAMD,
	}})

	gpus := c.DetectAllGPUs(context.Background())
	if len(gpus) != 2 {
		t.Fatalf("gpus = %d, want 2", len(gpus))
	}
	if !gpus[0].IsDiscrete {
		t.Errorf("RX 7900 XTX classified as iGPU: %+v", gpus[0])
	}
	if gpus[0].PCIAddress != "0000:03:00.0" {
		t.Errorf("pci = %q, want 0000:03:00.0", gpus[0].PCIAddress)
	}

	if pci := c.DiscreteGPUPCI(context.Background()); pci != "0000:03:00.0" {
		t.Errorf("DiscreteGPUPCI = %q, want first discrete device", pci)
	}
}

func TestIsDiscrete(t *testing.T) {
	tests := []struct {
		vendor, model string
		want          bool
	}{
		{"NVIDIA", "GeForce RTX 4080", true},
		{"Intel", "UHD Graphics 770", false},
		{"Intel", "Arc A770", true},
		{"AMD", "Radeon RX 7900 XTX", true},
		{"AMD", "Radeon Graphics", false},
		{"AMD", "Rembrandt", false},
		{"AMD", "Radeon 780M", false},
	}
	for _, tt := range tests {
		if got := isDiscrete(tt.vendor, tt.model); got != tt.want {
			t.Errorf("isDiscrete(%q, %q) = %v, want %v", tt.vendor, tt.model, got, tt.want)
		}
	}
}

// TestFingerprintHashStability: the hash depends only on GPU, CPU, Mesa
// version and RAM. Kernel and OS changes keep the same hash.
func TestFingerprintHashStability(t *testing.T) {
	base := Fingerprint{
		GPUModel:      "AMD Radeon RX 7900 XTX",
		CPUModel:      "AMD Ryzen 7 9800X3D",
		MesaVersion:   "24.3.1",
		VulkanVersion: "1.3.289",
		KernelVersion: "6.12.4-cachyos",
		RAMGB:         32,
		OSName:        "CachyOS Linux",
	}

	updated := base
	updated.KernelVersion = "6.13.0-cachyos"
	updated.OSName = "Arch Linux"
	updated.VulkanVersion = "1.4.0"

	if base.Hash() != updated.Hash() {
		t.Errorf("hash changed across OS update: %q vs %q", base.Hash(), updated.Hash())
	}
	if len(base.Hash()) != 8 {
		t.Errorf("hash length = %d, want 8", len(base.Hash()))
	}

	changed := base
	changed.GPUModel = "AMD Radeon RX 6800 XT"
	if base.Hash() == changed.Hash() {
		t.Error("hash unchanged despite different GPU")
	}

	changed = base
	changed.RAMGB = 64
	if base.Hash() == changed.Hash() {
		t.Error("hash unchanged despite different RAM size")
	}
}

func TestSystemID(t *testing.T) {
	fp := Fingerprint{
		GPUModel: "g", CPUModel: "c", MesaVersion: "m", RAMGB: 32,
		OSName: "CachyOS Linux",
	}
	id := fp.SystemID()
	want := "CachyOSLinux_" + fp.Hash()
	if id != want {
		t.Errorf("system id = %q, want %q", id, want)
	}

	fp.OSName = "Some/Very Long Distribution Name Here"
	id = fp.SystemID()
	if len(id) > 20+1+8 {
		t.Errorf("system id %q too long", id)
	}
}

func TestFingerprintFromSnapshot(t *testing.T) {
	snap := Snapshot{
		GPU: GPUInfo{Model: "RX 7900 XTX", DriverVersion: "24.3.1", VulkanVersion: "1.3.289"},
		CPU: CPUInfo{Model: "Ryzen 7 9800X3D"},
		OS:  OSInfo{Name: "CachyOS Linux", Kernel: "6.12.4"},
		RAM: RAMInfo{TotalGB: 31.2},
	}
	fp := FingerprintFromSnapshot(snap)
	if fp.RAMGB != 31 {
		t.Errorf("ram_gb = %d, want 31", fp.RAMGB)
	}
	if fp.MesaVersion != "24.3.1" {
		t.Errorf("mesa_version = %q", fp.MesaVersion)
	}

	// Empty fields degrade to Unknown, never empty strings.
	fp = FingerprintFromSnapshot(Snapshot{})
	if fp.GPUModel != "Unknown" || fp.OSName != "Linux" {
		t.Errorf("defaults = %+v", fp)
	}
}
