package steam

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// BenchmarkLaunchOptions is what a benchmark session sets for the game.
const BenchmarkLaunchOptions = "MANGOHUD=1 %command%"

// LaunchOptions scopes the per-game launch options in Steam's
// localconfig.vdf: the current value is read as the restoration target
// before the benchmark value is written. The file is owned by the Steam
// client, so conflict detection stays best-effort.
type LaunchOptions struct {
	configPath string
	appID      int

	modified bool
	original string // previous LaunchOptions value, "" if absent
	had      bool
}

// NewLaunchOptions locates the most recently used localconfig.vdf under
// the Steam root.
func NewLaunchOptions(steamRoot string, appID int) (*LaunchOptions, error) {
	matches, err := filepath.Glob(filepath.Join(steamRoot, "userdata", "*", "config", "localconfig.vdf"))
	if err != nil || len(matches) == 0 {
		return nil, fmt.Errorf("no localconfig.vdf under %s", steamRoot)
	}

	// Multiple accounts: pick the most recently modified config.
	newest := matches[0]
	var newestMod int64
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && fi.ModTime().UnixNano() > newestMod {
			newestMod = fi.ModTime().UnixNano()
			newest = m
		}
	}

	return &LaunchOptions{configPath: newest, appID: appID}, nil
}

// newLaunchOptionsFile is the test seam for a specific vdf path.
func newLaunchOptionsFile(path string, appID int) *LaunchOptions {
	return &LaunchOptions{configPath: path, appID: appID}
}

// Current returns the game's current launch options value.
func (lo *LaunchOptions) Current() (string, error) {
	data, err := os.ReadFile(lo.configPath)
	if err != nil {
		return "", fmt.Errorf("read localconfig: %w", err)
	}
	value, _, ok := findLaunchOptions(string(data), lo.appID)
	if !ok {
		return "", nil
	}
	return value, nil
}

// Set stores the current value as the restoration target and writes the
// benchmark launch options.
func (lo *LaunchOptions) Set(value string) error {
	data, err := os.ReadFile(lo.configPath)
	if err != nil {
		return fmt.Errorf("read localconfig: %w", err)
	}
	content := string(data)

	current, _, had := findLaunchOptions(content, lo.appID)
	if !lo.modified {
		lo.original = current
		lo.had = had
	}

	updated, err := setLaunchOptions(content, lo.appID, value)
	if err != nil {
		return err
	}
	if err := os.WriteFile(lo.configPath, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("write localconfig: %w", err)
	}
	lo.modified = true
	return nil
}

// Restore writes the original launch options back. Idempotent: calling
// it again after a successful restore is a no-op.
func (lo *LaunchOptions) Restore() error {
	if !lo.modified {
		return nil
	}

	data, err := os.ReadFile(lo.configPath)
	if err != nil {
		return fmt.Errorf("read localconfig: %w", err)
	}

	restored := lo.original
	if !lo.had {
		restored = ""
	}
	updated, err := setLaunchOptions(string(data), lo.appID, restored)
	if err != nil {
		return err
	}
	if err := os.WriteFile(lo.configPath, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("write localconfig: %w", err)
	}
	lo.modified = false
	return nil
}

// findLaunchOptions extracts the LaunchOptions value inside the app's
// block. Returns the value, the block start offset, and whether the key
// exists.
func findLaunchOptions(content string, appID int) (string, int, bool) {
	blockStart, blockEnd := appBlock(content, appID)
	if blockStart < 0 {
		return "", -1, false
	}
	re := regexp.MustCompile(`"LaunchOptions"\s*"((?:[^"\\]|\\.)*)"`)
	m := re.FindStringSubmatchIndex(content[blockStart:blockEnd])
	if m == nil {
		return "", blockStart, false
	}
	return unescapeVDF(content[blockStart+m[2] : blockStart+m[3]]), blockStart, true
}

// setLaunchOptions rewrites or inserts the LaunchOptions key in the
// app's block.
func setLaunchOptions(content string, appID int, value string) (string, error) {
	blockStart, blockEnd := appBlock(content, appID)
	if blockStart < 0 {
		return "", fmt.Errorf("app %d not found in localconfig", appID)
	}

	block := content[blockStart:blockEnd]
	re := regexp.MustCompile(`("LaunchOptions"\s*")((?:[^"\\]|\\.)*)(")`)
	escaped := escapeVDF(value)

	if re.MatchString(block) {
		block = re.ReplaceAllString(block, "${1}"+escaped+"${3}")
	} else {
		// Insert right after the opening brace of the app block.
		brace := strings.Index(block, "{")
		if brace < 0 {
			return "", fmt.Errorf("malformed app block for %d", appID)
		}
		insertion := "\n\t\t\t\t\t\"LaunchOptions\"\t\t\"" + escaped + "\""
		block = block[:brace+1] + insertion + block[brace+1:]
	}

	return content[:blockStart] + block + content[blockEnd:], nil
}

// appBlock finds the `"<appID>" { ... }` span. Returns (-1, -1) when
// the app has no entry.
func appBlock(content string, appID int) (int, int) {
	key := fmt.Sprintf("\"%d\"", appID)
	idx := strings.Index(content, key)
	if idx < 0 {
		return -1, -1
	}
	open := strings.Index(content[idx:], "{")
	if open < 0 {
		return -1, -1
	}
	open += idx

	depth := 0
	for i := open; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return idx, i + 1
			}
		}
	}
	return -1, -1
}

func escapeVDF(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

func unescapeVDF(s string) string {
	s = strings.ReplaceAll(s, `\"`, `"`)
	return strings.ReplaceAll(s, `\\`, `\`)
}
