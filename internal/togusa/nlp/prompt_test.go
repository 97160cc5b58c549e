package nlp_test

import (
	"strings"
	"testing"

	"github.com/bdobrica/Togusa/internal/togusa/intent"
	"github.com/bdobrica/Togusa/internal/togusa/nlp"
)

func TestDefaultCatalogueListsEveryAction(t *testing.T) {
	catalogue := nlp.DefaultCatalogue()
	for _, action := range intent.Actions() {
		if !strings.Contains(catalogue, action) {
			t.Errorf("catalogue is missing action %q", action)
		}
	}
	// Optional slots are marked so the model does not invent required args.
	if !strings.Contains(catalogue, "(optional)") {
		t.Error("catalogue should mark optional slots")
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := nlp.BuildSystemPrompt("", []string{"alice", "bob"})

	for _, want := range []string{
		"Togusa",
		"NEVER execute operations yourself",
		"valid JSON",
		"Assessor, Reviewer, Team Lead, Viewer",
		"alice\nbob",
		"list_agents", // empty catalogue falls back to the default one
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt is missing %q", want)
		}
	}
}

func TestBuildSystemPromptWithoutAgents(t *testing.T) {
	prompt := nlp.BuildSystemPrompt(nlp.DefaultCatalogue(), nil)
	if !strings.Contains(prompt, "(none yet)") {
		t.Error("prompt should note that no agents are known yet")
	}
}

func TestBuildSystemPromptCustomCatalogue(t *testing.T) {
	prompt := nlp.BuildSystemPrompt("- frobnicate: does the thing", nil)
	if !strings.Contains(prompt, "frobnicate") {
		t.Error("prompt should embed the supplied catalogue verbatim")
	}
}
