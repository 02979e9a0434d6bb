// Package parser reads MangoHud CSV logs into a validated frame-time
// stream plus ancillary hardware channel samples.
//
// Two log shapes are accepted:
//
//	SYSTEM INFO            <- sectioned format (MangoHud v0.8+)
//	os,cpu,gpu,kernel,...
//	"CachyOS","AMD ...",...
//	FRAME METRICS
//	fps,frametime,...
//	59.9,16.69,...
//
// or a flat format where the frame-data header is the first line.
package parser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Frametime sanity window: (0.5, 100) ms, i.e. 10-2000 FPS.
// Samples outside the window are dropped from the analysis vector but
// retained in Raw for gap detection.
const (
	minFrametimeMs = 0.5
	maxFrametimeMs = 100.0
	minFPS         = 10.0
	maxFPS         = 2000.0
)

// FrameSample is a single parsed frame row.
type FrameSample struct {
	FrametimeMs float64
	FPS         float64
}

// SystemInfoBlock is the SYSTEM INFO header of a sectioned log.
type SystemInfoBlock struct {
	OS     string
	CPU    string
	GPU    string
	Kernel string
}

// ParsedLog is the parser output: the sanity-filtered frame vector,
// the raw frametimes (for loading-screen detection), and the hardware
// channel vectors, each of independent length.
type ParsedLog struct {
	Frametimes []float64 // filtered to the sanity window
	FPS        []float64 // parallel to Frametimes
	Raw        []float64 // every positive frametime, unfiltered

	GPUTemp  []float64
	CPUTemp  []float64
	GPULoad  []float64
	CPULoad  []float64
	GPUPower []float64
	GPUClock []float64
	VRAM     []float64

	Resolution string
	SystemInfo *SystemInfoBlock
}

// ParseFile reads and parses a MangoHud log from disk.
func ParseFile(path string) (*ParsedLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return Parse(string(data))
}

// Parse parses log content. Row-level errors are skipped; a log that
// yields zero valid frames is still a parser success.
func Parse(content string) (*ParsedLog, error) {
	lines := splitLines(content)

	dataStart := findFrameData(lines)
	if dataStart < 0 || dataStart >= len(lines) {
		return nil, fmt.Errorf("no frame data header found")
	}

	header := parseCSVLine(lines[dataStart])
	cols := newColumnMap(header)
	if cols.frametime < 0 && cols.fps < 0 {
		return nil, fmt.Errorf("no frametime or fps column in header %q", lines[dataStart])
	}

	log := &ParsedLog{
		SystemInfo: parseSystemInfo(lines),
	}

	for _, line := range lines[dataStart+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := parseCSVLine(line)
		log.ingestRow(cols, fields)
	}

	return log, nil
}

// ingestRow parses one data row into the log's vectors. Bad values are
// skipped silently.
func (l *ParsedLog) ingestRow(cols columnMap, fields []string) {
	ft, ftOK := cols.float(fields, cols.frametime)
	fps, fpsOK := cols.float(fields, cols.fps)

	switch {
	case ftOK && ft > 0:
		l.Raw = append(l.Raw, ft)
		if ft > minFrametimeMs && ft < maxFrametimeMs {
			l.Frametimes = append(l.Frametimes, ft)
			l.FPS = append(l.FPS, 1000.0/ft)
		}
	case fpsOK && fps > 0:
		l.Raw = append(l.Raw, 1000.0/fps)
		if fps > minFPS && fps < maxFPS {
			l.FPS = append(l.FPS, fps)
			l.Frametimes = append(l.Frametimes, 1000.0/fps)
		}
	}

	// Optional hardware channels: recorded only when present and > 0.
	if v, ok := cols.float(fields, cols.gpuTemp); ok && v > 0 {
		l.GPUTemp = append(l.GPUTemp, v)
	}
	if v, ok := cols.float(fields, cols.cpuTemp); ok && v > 0 {
		l.CPUTemp = append(l.CPUTemp, v)
	}
	if v, ok := cols.float(fields, cols.gpuLoad); ok && v > 0 {
		l.GPULoad = append(l.GPULoad, v)
	}
	if v, ok := cols.float(fields, cols.cpuLoad); ok && v > 0 {
		l.CPULoad = append(l.CPULoad, v)
	}
	if v, ok := cols.float(fields, cols.gpuPower); ok && v > 0 {
		l.GPUPower = append(l.GPUPower, v)
	}
	if v, ok := cols.float(fields, cols.gpuClock); ok && v > 0 {
		l.GPUClock = append(l.GPUClock, v)
	}
	if v, ok := cols.float(fields, cols.vram); ok && v > 0 {
		l.VRAM = append(l.VRAM, v)
	}

	if l.Resolution == "" && cols.resolution >= 0 && cols.resolution < len(fields) {
		if res := strings.TrimSpace(fields[cols.resolution]); res != "" {
			l.Resolution = res
		}
	}
}

// findFrameData locates the frame-data header row. The FRAME METRICS
// marker wins; otherwise the first line that looks like a frame header.
func findFrameData(lines []string) int {
	for i, line := range lines {
		if strings.Contains(line, "FRAME METRICS") {
			return i + 1
		}
		if isFrameHeader(line) {
			return i
		}
	}
	return -1
}

// isFrameHeader reports whether the line is a flat-format frame header:
// it carries a frametime column under any of its aliases (case-insensitive,
// any position) or leads with an fps column.
func isFrameHeader(line string) bool {
	fields := strings.Split(strings.ToLower(line), ",")
	for i, f := range fields {
		f = strings.TrimSpace(f)
		for _, alias := range columnAliases["frametime"] {
			if f == strings.ToLower(alias) {
				return true
			}
		}
		if i == 0 && f == "fps" {
			return true
		}
	}
	return false
}

// parseSystemInfo extracts the SYSTEM INFO block if present.
// Header and data row must have matching field counts; a GPU field that
// names a CPU is cleared (column misalignment in some overlay builds).
func parseSystemInfo(lines []string) *SystemInfoBlock {
	for i, line := range lines {
		if !strings.Contains(line, "SYSTEM INFO") {
			continue
		}
		if i+2 >= len(lines) {
			return nil
		}
		header := parseCSVLine(lines[i+1])
		data := parseCSVLine(lines[i+2])
		if len(header) != len(data) {
			return nil
		}

		info := &SystemInfoBlock{}
		for j, h := range header {
			switch strings.TrimSpace(strings.ToLower(h)) {
			case "os":
				info.OS = strings.TrimSpace(data[j])
			case "cpu":
				info.CPU = strings.TrimSpace(data[j])
			case "gpu":
				info.GPU = strings.TrimSpace(data[j])
			case "kernel":
				info.Kernel = strings.TrimSpace(data[j])
			}
		}

		if gpuLooksLikeCPU(info.GPU) {
			info.GPU = ""
		}
		return info
	}
	return nil
}

// cpuKeywords flag a GPU field that actually holds a CPU model name.
var cpuKeywords = []string{"ryzen", "intel core", "i5-", "i7-", "i9-", "threadripper", "xeon"}

func gpuLooksLikeCPU(gpu string) bool {
	lower := strings.ToLower(gpu)
	for _, kw := range cpuKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// parseCSVLine parses one line with proper CSV quoting. Falls back to a
// plain comma split when the line is not valid CSV.
func parseCSVLine(line string) []string {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	fields, err := r.Read()
	if err != nil {
		return strings.Split(line, ",")
	}
	return fields
}

func splitLines(content string) []string {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
