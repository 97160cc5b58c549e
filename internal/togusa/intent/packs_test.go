package intent

import (
	"os"
	"path/filepath"
	"testing"
)

const rosterPack = `
name: roster-wording
entries:
  - action: list_agents
    phrases: ["who is on the roster", "roster"]
  - action: coverage_report
    keywords: [staffing, report]
    usage: "coverage report"
`

// TestParsePack covers a well-formed pack and the two rejection paths:
// schema violations and unknown actions.
func TestParsePack(t *testing.T) {
	pack, err := ParsePack([]byte(rosterPack))
	if err != nil {
		t.Fatalf("ParsePack: %v", err)
	}
	if pack.Name != "roster-wording" {
		t.Errorf("Name = %q, want roster-wording", pack.Name)
	}
	if len(pack.Entries) != 2 {
		t.Fatalf("Entries = %d, want 2", len(pack.Entries))
	}
	if pack.Entries[0].Usage != "who is on the roster" {
		t.Errorf("default usage = %q, want first phrase", pack.Entries[0].Usage)
	}
	if pack.Entries[0].FromPack != "roster-wording" {
		t.Errorf("FromPack = %q, want pack name", pack.Entries[0].FromPack)
	}

	bad := []struct {
		name string
		doc  string
	}{
		{name: "unknown action", doc: "name: p\nentries:\n  - action: drop_tables\n    phrases: [x]\n"},
		{name: "no triggers", doc: "name: p\nentries:\n  - action: list_agents\n"},
		{name: "missing name", doc: "entries:\n  - action: list_agents\n    phrases: [x]\n"},
		{name: "empty entries", doc: "name: p\nentries: []\n"},
		{name: "not yaml", doc: ":\n  - ["},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParsePack([]byte(tc.doc)); err == nil {
				t.Errorf("ParsePack accepted %q", tc.doc)
			}
		})
	}
}

// TestLibraryWithPacks verifies pack entries extend the library between the
// built-in specific tier and the generic defaults: new wordings resolve, the
// built-ins stay unshadowed, and the generic verbs still work.
func TestLibraryWithPacks(t *testing.T) {
	pack, err := ParsePack([]byte(rosterPack))
	if err != nil {
		t.Fatalf("ParsePack: %v", err)
	}
	lib := NewLibrary().WithPacks(pack)

	res, miss := lib.Resolve("who is on the roster?", nil)
	if miss != nil {
		t.Fatalf("pack phrase = NoMatch %+v, want %s", miss, ActionListAgents)
	}
	if res.Action != ActionListAgents {
		t.Errorf("pack phrase = %s, want %s", res.Action, ActionListAgents)
	}

	res, miss = lib.Resolve("staffing report", nil)
	if miss != nil {
		t.Fatalf("pack keywords = NoMatch %+v, want %s", miss, ActionCoverageReport)
	}
	if res.Action != ActionCoverageReport {
		t.Errorf("pack keywords = %s, want %s", res.Action, ActionCoverageReport)
	}

	// Built-in wordings keep priority over pack synonyms.
	res, miss = lib.Resolve("agents", nil)
	if miss != nil || res.Action != ActionListAgents {
		t.Errorf("built-in wording after packs = %v %v, want %s", res, miss, ActionListAgents)
	}

	// Generic defaults still close the table.
	res, miss = lib.Resolve("fetch", nil)
	if miss != nil || res.Action != ActionListWorkbenches {
		t.Errorf("generic default after packs = %v %v, want %s", res, miss, ActionListWorkbenches)
	}
}

// TestLoadPacks exercises directory loading: only YAML files are read, load
// order follows file names, and a missing directory is not an error.
func TestLoadPacks(t *testing.T) {
	dir := t.TempDir()
	writeFile := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	writeFile("10-roster.yaml", rosterPack)
	writeFile("20-extra.yml", "name: extra\nentries:\n  - action: help\n    phrases: [\"what now\"]\n")
	writeFile("notes.txt", "not a pack")

	packs, err := LoadPacks(dir)
	if err != nil {
		t.Fatalf("LoadPacks: %v", err)
	}
	if len(packs) != 2 {
		t.Fatalf("LoadPacks = %d packs, want 2", len(packs))
	}
	if packs[0].Name != "roster-wording" || packs[1].Name != "extra" {
		t.Errorf("pack order = %q, %q", packs[0].Name, packs[1].Name)
	}

	if _, err := LoadPacks(filepath.Join(dir, "missing")); err != nil {
		t.Errorf("LoadPacks(missing dir) = %v, want nil", err)
	}

	writeFile("30-bad.yaml", "name: bad\nentries:\n  - action: nope\n    phrases: [x]\n")
	if _, err := LoadPacks(dir); err == nil {
		t.Error("LoadPacks accepted a pack with an unknown action")
	}
}
