package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// errTimeout marks a watcher deadline expiry; the caller maps it to the
// phase-specific session code.
var errTimeout = errors.New("watch deadline exceeded")

// watcher polls a directory for overlay log files. The overlay has no
// completion signal, so a log counts as finished once its size holds
// steady for stableSamples consecutive polls.
type watcher struct {
	dir           string
	interval      time.Duration
	stableSamples int
}

// snapshot records the log files present before the game starts, so a
// pre-existing log is never mistaken for the new recording.
func (w *watcher) snapshot() map[string]bool {
	existing := make(map[string]bool)
	matches, err := filepath.Glob(filepath.Join(w.dir, "*.csv"))
	if err != nil {
		return existing
	}
	for _, m := range matches {
		existing[m] = true
	}
	return existing
}

// awaitNewLog polls until a csv file not in preexisting appears.
// Returns the newest such file. A cancel is observed at the next poll.
func (w *watcher) awaitNewLog(ctx context.Context, deadline time.Time, preexisting map[string]bool) (string, error) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		matches, _ := filepath.Glob(filepath.Join(w.dir, "*.csv"))
		var newest string
		var newestMod time.Time
		for _, m := range matches {
			if preexisting[m] {
				continue
			}
			fi, err := os.Stat(m)
			if err != nil {
				continue
			}
			if newest == "" || fi.ModTime().After(newestMod) {
				newest = m
				newestMod = fi.ModTime()
			}
		}
		if newest != "" {
			return newest, nil
		}

		if time.Now().After(deadline) {
			return "", errTimeout
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// awaitStable polls the log file until its size is identical and
// non-zero for stableSamples consecutive reads. That is the overlay's
// user-commanded stop.
func (w *watcher) awaitStable(ctx context.Context, deadline time.Time, path string) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var lastSize int64
	stable := 0

	for {
		if fi, err := os.Stat(path); err == nil {
			size := fi.Size()
			if size == lastSize && size > 0 {
				stable++
			} else {
				stable = 0
			}
			lastSize = size
		}
		if stable >= w.stableSamples {
			return nil
		}

		if time.Now().After(deadline) {
			return errTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
