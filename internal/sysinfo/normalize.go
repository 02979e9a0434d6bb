package sysinfo

import (
	"regexp"
	"strings"
)

// GPU name normalization is table-driven: an ordered list of
// (pattern, replacement) pairs applied in sequence, then an ordered
// device-ID lookup. Patterns are data, not code paths.

// cleanupRule strips a driver/codename suffix from a reported name.
type cleanupRule struct {
	pattern *regexp.Regexp
	replace string
}

// cleanupRules run in order over vulkaninfo device names.
var cleanupRules = []cleanupRule{
	{regexp.MustCompile(`\s*\(RADV\s+\w+\)\s*$`), ""}, // Mesa RADV codename
	{regexp.MustCompile(`\s*\(TU\d+\)\s*$`), ""},      // NVIDIA Turing
	{regexp.MustCompile(`\s*\(GA\d+\)\s*$`), ""},      // NVIDIA Ampere
	{regexp.MustCompile(`\s*\(AD\d+\)\s*$`), ""},      // NVIDIA Ada
}

// NormalizeGPUName strips driver-internal suffixes from a GPU name,
// leaving the marketing name.
func NormalizeGPUName(name string) string {
	for _, rule := range cleanupRules {
		name = rule.pattern.ReplaceAllString(name, rule.replace)
	}
	return strings.TrimSpace(name)
}

// cpuNamePatterns flag a Vulkan device entry that is actually a CPU
// (llvmpipe reports the processor as a device).
var cpuNamePatterns = []string{"Ryzen", "Core", "Processor", "llvmpipe"}

func nameLooksLikeCPU(name string) bool {
	for _, p := range cpuNamePatterns {
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}

// deviceIDEntry maps a PCI vendor:device pair to a product name. When
// minVRAMGB is non-zero the entry only matches cards with at least that
// much VRAM; entries are ordered so the largest variant wins first.
type deviceIDEntry struct {
	id        string
	minVRAMGB int
	name      string
}

// deviceIDTable is evaluated in order; first match wins.
var deviceIDTable = []deviceIDEntry{
	// AMD Navi 31 shares one device ID across three products; VRAM
	// size disambiguates.
	{"1002:744c", 23, "AMD Radeon RX 7900 XTX"},
	{"1002:744c", 19, "AMD Radeon RX 7900 XT"},
	{"1002:744c", 15, "AMD Radeon RX 7900 GRE"},
	{"1002:744c", 0, "AMD Radeon RX 7900"},
	// AMD Navi 32: 16 GB = 7800 XT, 12 GB = 7700 XT.
	{"1002:7480", 15, "AMD Radeon RX 7800 XT"},
	{"1002:7480", 0, "AMD Radeon RX 7700 XT"},
	// AMD RDNA 4
	{"1002:7481", 0, "RX 9070"},
	// AMD RDNA 3
	{"1002:7448", 0, "RX 7900 XT"},
	{"1002:745e", 0, "RX 7900 GRE"},
	{"1002:7470", 0, "RX 7800 XT"},
	{"1002:7471", 0, "RX 7700 XT"},
	{"1002:7489", 0, "RX 7600"},
	// AMD RDNA 2
	{"1002:73bf", 0, "RX 6900 XT"},
	{"1002:73af", 0, "RX 6800 XT"},
	{"1002:73a5", 0, "RX 6800"},
	{"1002:73df", 0, "RX 6700 XT"},
	{"1002:73ff", 0, "RX 6600 XT"},
	{"1002:73e3", 0, "RX 6600"},
	// NVIDIA RTX 40 series
	{"10de:2684", 0, "RTX 4090"},
	{"10de:2702", 0, "RTX 4080 SUPER"},
	{"10de:2704", 0, "RTX 4080"},
	{"10de:2782", 0, "RTX 4070 Ti SUPER"},
	{"10de:2783", 0, "RTX 4070 Ti"},
	{"10de:2786", 0, "RTX 4070 SUPER"},
	{"10de:2860", 0, "RTX 4060 Ti"},
	{"10de:2882", 0, "RTX 4060"},
	// NVIDIA RTX 30 series
	{"10de:2204", 0, "RTX 3090"},
	{"10de:2206", 0, "RTX 3080"},
	{"10de:2484", 0, "RTX 3070"},
	{"10de:2503", 0, "RTX 3060"},
}

// lookupDeviceID resolves a PCI device ID (lowercase "vendor:device")
// to a product name, using VRAM to disambiguate shared IDs. Returns ""
// when unknown.
func lookupDeviceID(deviceID string, vramMB int) string {
	vramGB := vramMB / 1024
	for _, e := range deviceIDTable {
		if e.id != deviceID {
			continue
		}
		if vramGB >= e.minVRAMGB {
			return e.name
		}
	}
	return ""
}
