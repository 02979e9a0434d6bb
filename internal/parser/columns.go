package parser

import "strings"

// columnAliases enumerates the accepted spellings per canonical column.
// Lookup is case-insensitive; first alias present in the header wins.
var columnAliases = map[string][]string{
	"frametime":  {"frametime", "Frame Time", "frame_time"},
	"fps":        {"fps", "FPS"},
	"gpu_temp":   {"gpu_temp", "GPU Temp"},
	"cpu_temp":   {"cpu_temp", "CPU Temp"},
	"gpu_load":   {"gpu_load", "GPU Load"},
	"cpu_load":   {"cpu_load", "CPU Load"},
	"gpu_power":  {"gpu_power", "GPU Power"},
	"gpu_clock":  {"gpu_core_clock", "GPU Core Clock"},
	"vram":       {"vram", "VRAM", "gpu_vram_used"},
	"resolution": {"resolution", "Resolution"},
}

// columnMap resolves header aliases to column indexes once per log.
// Unresolved columns are -1.
type columnMap struct {
	frametime  int
	fps        int
	gpuTemp    int
	cpuTemp    int
	gpuLoad    int
	cpuLoad    int
	gpuPower   int
	gpuClock   int
	vram       int
	resolution int
}

func newColumnMap(header []string) columnMap {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}

	find := func(canonical string) int {
		for _, alias := range columnAliases[canonical] {
			if i, ok := index[strings.ToLower(alias)]; ok {
				return i
			}
		}
		return -1
	}

	return columnMap{
		frametime:  find("frametime"),
		fps:        find("fps"),
		gpuTemp:    find("gpu_temp"),
		cpuTemp:    find("cpu_temp"),
		gpuLoad:    find("gpu_load"),
		cpuLoad:    find("cpu_load"),
		gpuPower:   find("gpu_power"),
		gpuClock:   find("gpu_clock"),
		vram:       find("vram"),
		resolution: find("resolution"),
	}
}

// float reads field idx as a float. Missing columns and unparseable
// values report ok=false.
func (columnMap) float(fields []string, idx int) (float64, bool) {
	if idx < 0 || idx >= len(fields) {
		return 0, false
	}
	return parseFloat(fields[idx])
}
