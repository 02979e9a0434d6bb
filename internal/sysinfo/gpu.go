package sysinfo

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// GPUInfo describes the graphics device used for the benchmark.
type GPUInfo struct {
	Model         string `json:"model"`
	Vendor        string `json:"vendor"`
	VRAMMB        int    `json:"vram_mb"`
	Driver        string `json:"driver"`
	DriverVersion string `json:"driver_version"`
	VulkanVersion string `json:"vulkan_version"`
	DeviceID      string `json:"device_id"`
	LspciRaw      string `json:"lspci_raw"`
}

// GPU is one enumerated PCI graphics device.
type GPU struct {
	PCIAddress  string `json:"pci_address"`
	Vendor      string `json:"vendor"`
	Model       string `json:"model"`
	IsDiscrete  bool   `json:"is_dgpu"`
	DisplayName string `json:"display_name"`
}

var (
	lspciNvidiaRe   = regexp.MustCompile(`NVIDIA.*\[(.+?)\]`)
	lspciAMDRe      = regexp.MustCompile(`\[AMD/ATI\]\s*([^\[]+?)\s*\[([^\]]+)\]`)
	lspciRadeonRe   = regexp.MustCompile(`(Radeon[^]]+)`)
	lspciIntelRe    = regexp.MustCompile(`Intel Corporation (.+?)(?:\s*\[|\s*\(rev|\s*$)`)
	lspciDeviceIDRe = regexp.MustCompile(`\[([0-9a-fA-F]{4}:[0-9a-fA-F]{4})\](?:\s*\(rev|\s*$)`)
	vulkanNameRe    = regexp.MustCompile(`=\s*(.+)`)
	vulkanAPIRe     = regexp.MustCompile(`= (\d+\.\d+\.\d+)`)
	mesaVersionRe   = regexp.MustCompile(`Mesa (\d+\.\d+\.\d+)`)
	nvidiaVerRe     = regexp.MustCompile(`NVIDIA (\d+\.\d+\.\d+)`)
)

// collectGPU probes the graphics stack. Model priority: NVML (NVIDIA),
// then vulkaninfo deviceName, then device-ID disambiguation, then the
// raw lspci model.
func (c *Collector) collectGPU(ctx context.Context) GPUInfo {
	info := GPUInfo{Model: "Unknown", Vendor: "Unknown", Driver: "Unknown"}

	lspciModel := c.probeLspci(ctx, &info)
	vulkanModel := c.probeVulkan(ctx, &info)
	c.probeVRAM(&info)
	c.probeGLDriver(ctx, &info)

	// NVML is authoritative when an NVIDIA device answers.
	if nv, ok := probeNVML(); ok {
		info.Vendor = "NVIDIA"
		info.Model = nv.Model
		info.Driver = "NVIDIA"
		if nv.DriverVersion != "" {
			info.DriverVersion = nv.DriverVersion
		}
		if nv.VRAMMB > 0 {
			info.VRAMMB = nv.VRAMMB
		}
		return info
	}

	if info.Vendor == "AMD" && info.DriverVersion == "" {
		info.Driver = "Mesa"
		c.probeMesaFromVulkan(ctx, &info)
	}

	switch {
	case vulkanModel != "":
		info.Model = vulkanModel
	case info.DeviceID != "" && lookupDeviceID(info.DeviceID, info.VRAMMB) != "":
		info.Model = lookupDeviceID(info.DeviceID, info.VRAMMB)
	case lspciModel != "":
		if info.Vendor == "Intel" {
			info.Model = "Intel " + lspciModel
		} else {
			info.Model = lspciModel
		}
	}

	return info
}

// probeLspci fills vendor/device-id/raw line and returns the lspci model.
func (c *Collector) probeLspci(ctx context.Context, info *GPUInfo) string {
	out, err := c.runner.Run(ctx, "lspci", "-nn")
	if err != nil {
		return ""
	}

	model := ""
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "VGA") && !strings.Contains(line, "3D controller") {
			continue
		}
		// Prefer the first discrete device: skip iGPUs once one is found.
		if info.LspciRaw != "" && isIntegratedLine(line) {
			continue
		}

		info.LspciRaw = strings.TrimSpace(line)
		if m := lspciDeviceIDRe.FindStringSubmatch(line); m != nil {
			info.DeviceID = strings.ToLower(m[1])
		}

		switch {
		case strings.Contains(line, "NVIDIA"):
			info.Vendor = "NVIDIA"
			if m := lspciNvidiaRe.FindStringSubmatch(line); m != nil {
				model = m[1]
			}
		case strings.Contains(line, "AMD") || strings.Contains(line, "ATI"):
			info.Vendor = "AMD"
			if m := lspciAMDRe.FindStringSubmatch(line); m != nil {
				model = strings.TrimSpace(m[2])
			} else if m := lspciRadeonRe.FindStringSubmatch(line); m != nil {
				model = strings.TrimSpace(m[1])
			}
		case strings.Contains(line, "Intel"):
			info.Vendor = "Intel"
			if m := lspciIntelRe.FindStringSubmatch(line); m != nil {
				model = strings.TrimSpace(m[1])
			}
		}
	}
	return model
}

// amdIGPUCodenames are APU graphics that lose to a discrete device.
var amdIGPUCodenames = []string{
	"Granite Ridge", "Raphael", "Phoenix", "Hawk Point",
	"Rembrandt", "Cezanne", "Renoir", "Picasso", "Raven",
}

func isIntegratedLine(line string) bool {
	if strings.Contains(line, "Intel") {
		return true
	}
	for _, name := range amdIGPUCodenames {
		if strings.Contains(line, name) {
			return true
		}
	}
	return false
}

// probeVulkan extracts the device name and API version from vulkaninfo.
// Returns the cleaned marketing name, skipping CPU/APU entries.
func (c *Collector) probeVulkan(ctx context.Context, info *GPUInfo) string {
	out, err := c.runner.Run(ctx, "vulkaninfo", "--summary")
	if err != nil {
		return ""
	}

	model := ""
	for _, line := range strings.Split(string(out), "\n") {
		if strings.Contains(line, "deviceName") && model == "" {
			if m := vulkanNameRe.FindStringSubmatch(line); m != nil {
				name := NormalizeGPUName(strings.TrimSpace(m[1]))
				if !nameLooksLikeCPU(name) {
					model = name
				}
			}
		}
		if strings.Contains(line, "apiVersion") && info.VulkanVersion == "" {
			if m := vulkanAPIRe.FindStringSubmatch(line); m != nil {
				info.VulkanVersion = m[1]
			}
		}
	}
	return model
}

// probeVRAM reads the largest mem_info_vram_total under /sys/class/drm.
func (c *Collector) probeVRAM(info *GPUInfo) {
	cards, err := filepath.Glob("/sys/class/drm/card[0-9]/device/mem_info_vram_total")
	if err != nil {
		return
	}
	var max int64
	for _, path := range cards {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if bytes, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64); err == nil && bytes > max {
			max = bytes
		}
	}
	if max > 0 {
		info.VRAMMB = int(max / (1024 * 1024))
	}
}

// probeGLDriver reads the driver name and version from glxinfo.
func (c *Collector) probeGLDriver(ctx context.Context, info *GPUInfo) {
	out, err := c.runner.Run(ctx, "glxinfo", "-B")
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "OpenGL version") && !strings.Contains(line, "OpenGL core profile version") {
			continue
		}
		switch {
		case strings.Contains(line, "Mesa"):
			info.Driver = "Mesa"
			if m := mesaVersionRe.FindStringSubmatch(line); m != nil {
				info.DriverVersion = m[1]
			}
		case strings.Contains(line, "NVIDIA"):
			info.Driver = "NVIDIA"
			if m := nvidiaVerRe.FindStringSubmatch(line); m != nil {
				info.DriverVersion = m[1]
			}
		}
	}
}

// probeMesaFromVulkan recovers the Mesa version from vulkaninfo when
// glxinfo is unavailable (common on Wayland-only systems).
func (c *Collector) probeMesaFromVulkan(ctx context.Context, info *GPUInfo) {
	out, err := c.runner.Run(ctx, "vulkaninfo", "--summary")
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.Contains(line, "driverInfo") {
			if m := mesaVersionRe.FindStringSubmatch(line); m != nil {
				info.DriverVersion = m[1]
				return
			}
		}
	}
}

// DetectAllGPUs enumerates PCI graphics devices with addresses and
// discrete/integrated classification.
func (c *Collector) DetectAllGPUs(ctx context.Context) []GPU {
	out, err := c.runner.Run(ctx, "lspci", "-D")
	if err != nil {
		return nil
	}

	var gpus []GPU
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "VGA") && !strings.Contains(line, "3D controller") {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		if len(parts) < 2 {
			continue
		}
		addr, desc := parts[0], parts[1]

		vendor, model := "Unknown", "Unknown"
		switch {
		case strings.Contains(desc, "NVIDIA"):
			vendor = "NVIDIA"
			model = "NVIDIA GPU"
			if m := lspciNvidiaRe.FindStringSubmatch(desc); m != nil {
				model = m[1]
			}
		case strings.Contains(desc, "AMD") || strings.Contains(desc, "ATI"):
			vendor = "AMD"
			model = "AMD GPU"
			if m := lspciAMDRe.FindStringSubmatch(desc); m != nil {
				model = strings.TrimSpace(m[2])
			} else if m := lspciRadeonRe.FindStringSubmatch(desc); m != nil {
				model = strings.TrimSpace(m[1])
			}
		case strings.Contains(desc, "Intel"):
			vendor = "Intel"
			model = "Intel GPU"
			if m := lspciIntelRe.FindStringSubmatch(desc); m != nil {
				model = strings.TrimSpace(m[1])
			}
		}

		discrete := isDiscrete(vendor, model)
		suffix := "iGPU"
		if discrete {
			suffix = "dGPU"
		}
		gpus = append(gpus, GPU{
			PCIAddress:  addr,
			Vendor:      vendor,
			Model:       model,
			IsDiscrete:  discrete,
			DisplayName: vendor + " " + model + " (" + suffix + ")",
		})
	}
	return gpus
}

// DiscreteGPUPCI returns the PCI address of the first discrete GPU, for
// the overlay's pci_dev option in multi-GPU systems. Empty when none.
func (c *Collector) DiscreteGPUPCI(ctx context.Context) string {
	for _, gpu := range c.DetectAllGPUs(ctx) {
		if gpu.IsDiscrete {
			return gpu.PCIAddress
		}
	}
	return ""
}

// PCIDeviceExists reports whether the given PCI address resolves to a
// device on this system.
func PCIDeviceExists(address string) bool {
	if address == "" {
		return false
	}
	_, err := os.Stat(filepath.Join("/sys/bus/pci/devices", address))
	return err == nil
}

// igpuModelPatterns mark AMD APU graphics as integrated.
var igpuModelPatterns = []string{
	"raphael", "rembrandt", "cezanne", "renoir", "picasso", "raven",
	"vega 8", "vega 7", "vega 6", "vega 11", "vega 10", "vega 3",
	"780m", "760m", "680m", "660m", "610m",
	"graphics", "radeon graphics",
}

// isDiscrete classifies a GPU as discrete or integrated.
func isDiscrete(vendor, model string) bool {
	vl := strings.ToLower(vendor)
	ml := strings.ToLower(model)

	if strings.Contains(vl, "intel") {
		// Intel Arc is the only discrete Intel line.
		return strings.Contains(ml, "arc")
	}
	if strings.Contains(vl, "nvidia") {
		return true
	}
	if strings.Contains(vl, "amd") || strings.Contains(ml, "radeon") {
		for _, p := range igpuModelPatterns {
			if strings.Contains(ml, p) {
				return false
			}
		}
		return true
	}
	return true
}
