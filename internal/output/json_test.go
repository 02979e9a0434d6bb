package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	payload := map[string]any{"average": 60.0, "rating": "Excellent"}

	if err := WriteJSON(payload, path); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var loaded map[string]any
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if loaded["rating"] != "Excellent" {
		t.Errorf("rating = %v", loaded["rating"])
	}
	// Indented output, not a single line.
	if !strings.Contains(string(data), "\n  ") {
		t.Error("output not indented")
	}
}

func TestWriteJSONBadPath(t *testing.T) {
	if err := WriteJSON(map[string]int{}, "/nonexistent-dir/out.json"); err == nil {
		t.Error("expected error for unwritable path")
	}
}
