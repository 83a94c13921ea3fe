package strategy

import (
	"strings"
	"testing"

	"github.com/disputalabs/disputa/internal/core"
)

func TestDefaults(t *testing.T) {
	defaults := Defaults()
	if len(defaults) != 3 {
		t.Fatalf("expected 3 built-in strategies, got %d", len(defaults))
	}

	for _, s := range defaults {
		t.Run(s.ID, func(t *testing.T) {
			if s.PromptA == "" || s.PromptB == "" {
				t.Error("role prompts must not be empty")
			}
			if !strings.Contains(s.PromptA, "Agent A") {
				t.Error("prompt A should address Agent A")
			}
			if !strings.Contains(s.PromptB, "Agent B") {
				t.Error("prompt B should address Agent B")
			}
			if s.Temperature != DefaultTemperature {
				t.Errorf("temperature = %v, want %v", s.Temperature, DefaultTemperature)
			}
			if s.MaxTokens != DefaultMaxTokens {
				t.Errorf("max tokens = %d, want %d", s.MaxTokens, DefaultMaxTokens)
			}
			if s.NumTurns != DefaultNumTurns {
				t.Errorf("num turns = %d, want %d", s.NumTurns, DefaultNumTurns)
			}
		})
	}
}

func TestGet(t *testing.T) {
	if s := Get("debate"); s == nil || s.ID != "debate" {
		t.Error("Get(debate) should return the debate strategy")
	}
	if s := Get("nonexistent"); s != nil {
		t.Error("Get(nonexistent) should return nil")
	}
	if !Valid("teacher-student") {
		t.Error("teacher-student should be valid")
	}
}

func TestWithFormat(t *testing.T) {
	base := *Get("debate")

	augmented := base.WithFormat(core.FormatInteger)
	if !strings.Contains(augmented.PromptA, "single integer") {
		t.Error("prompt A missing integer format instruction")
	}
	if !strings.Contains(augmented.PromptB, "single integer") {
		t.Error("prompt B missing integer format instruction")
	}

	// Augmentation copies; the base stays untouched.
	if strings.Contains(base.PromptA, "ANSWER FORMAT") {
		t.Error("WithFormat mutated the receiver")
	}

	custom := base.WithFormat(core.FormatCustom)
	if !strings.Contains(custom.PromptA, "<solution>") {
		t.Error("custom format instruction should mention solution tags")
	}
}
