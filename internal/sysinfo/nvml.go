package sysinfo

import "github.com/NVIDIA/go-nvml/pkg/nvml"

// nvmlInfo is what the NVML prober reports for the first device.
type nvmlInfo struct {
	Model         string
	DriverVersion string
	VRAMMB        int
}

// probeNVML queries the NVIDIA management library for the first GPU.
// Returns ok=false on systems without the NVIDIA driver; callers fall
// back to lspci/vulkaninfo probing.
func probeNVML() (nvmlInfo, bool) {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return nvmlInfo{}, false
	}
	defer nvml.Shutdown()

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS || count == 0 {
		return nvmlInfo{}, false
	}

	device, ret := nvml.DeviceGetHandleByIndex(0)
	if ret != nvml.SUCCESS {
		return nvmlInfo{}, false
	}

	info := nvmlInfo{}
	if name, ret := device.GetName(); ret == nvml.SUCCESS {
		info.Model = name
	}
	if version, ret := nvml.SystemGetDriverVersion(); ret == nvml.SUCCESS {
		info.DriverVersion = version
	}
	if memory, ret := device.GetMemoryInfo(); ret == nvml.SUCCESS {
		info.VRAMMB = int(memory.Total / (1024 * 1024))
	}

	if info.Model == "" {
		return nvmlInfo{}, false
	}
	return info, true
}
