package main

import (
	"strings"
	"testing"
)

// TestCommandsRegistered verifies the CLI surface is wired up.
func TestCommandsRegistered(t *testing.T) {
	cmds := map[string]bool{}
	for _, c := range []struct{ use string }{
		{newBenchCmd().Use},
		{newAnalyzeCmd().Use},
		{newPreflightCmd().Use},
		{newGamesCmd().Use},
		{newRunsCmd().Use},
		{newMCPCmd().Use},
	} {
		name := strings.Fields(c.use)[0]
		if cmds[name] {
			t.Errorf("duplicate command %q", name)
		}
		cmds[name] = true
	}

	for _, want := range []string{"bench", "analyze", "preflight", "games", "runs", "mcp"} {
		if !cmds[want] {
			t.Errorf("missing command %q", want)
		}
	}
}

func TestBenchRejectsBadAppID(t *testing.T) {
	cmd := newBenchCmd()
	cmd.SetArgs([]string{"not-a-number"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for non-numeric app id")
	}
}

func TestRunsRejectsAggregateWithoutResolution(t *testing.T) {
	cmd := newRunsCmd()
	cmd.SetArgs([]string{"1091500", "--aggregate", "--output", t.TempDir()})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "resolution") {
		t.Errorf("err = %v, want resolution requirement", err)
	}
}
