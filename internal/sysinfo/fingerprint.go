package sysinfo

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Fingerprint identifies a hardware configuration. The hash is derived
// from hardware only (not OS name or kernel) so that OS updates do not
// fragment benchmark history.
type Fingerprint struct {
	GPUModel      string `json:"gpu_model"`
	CPUModel      string `json:"cpu_model"`
	MesaVersion   string `json:"mesa_version"`
	VulkanVersion string `json:"vulkan_version"`
	KernelVersion string `json:"kernel_version"`
	RAMGB         int    `json:"ram_gb"`
	OSName        string `json:"os_name"`
}

// FingerprintFromSnapshot builds the fingerprint from a system snapshot.
func FingerprintFromSnapshot(s Snapshot) Fingerprint {
	return Fingerprint{
		GPUModel:      orUnknown(s.GPU.Model),
		CPUModel:      orUnknown(s.CPU.Model),
		MesaVersion:   orUnknown(s.GPU.DriverVersion),
		VulkanVersion: orUnknown(s.GPU.VulkanVersion),
		KernelVersion: orUnknown(s.OS.Kernel),
		RAMGB:         int(s.RAM.TotalGB),
		OSName:        orDefault(s.OS.Name, "Linux"),
	}
}

// Hash returns the stable 8-hex-char hardware hash. Only GPU, CPU,
// Mesa version and RAM size participate.
func (f Fingerprint) Hash() string {
	data, _ := json.Marshal(struct {
		CPUModel    string `json:"cpu_model"`
		GPUModel    string `json:"gpu_model"`
		MesaVersion string `json:"mesa_version"`
		RAMGB       int    `json:"ram_gb"`
	}{
		CPUModel:    f.CPUModel,
		GPUModel:    f.GPUModel,
		MesaVersion: f.MesaVersion,
		RAMGB:       f.RAMGB,
	})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:8]
}

// SystemID returns a readable identifier like "CachyOS_c21b11a6".
func (f Fingerprint) SystemID() string {
	clean := strings.ReplaceAll(f.OSName, " ", "")
	clean = strings.ReplaceAll(clean, "/", "-")
	if len(clean) > 20 {
		clean = clean[:20]
	}
	return clean + "_" + f.Hash()
}

func orUnknown(s string) string {
	return orDefault(s, "Unknown")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
