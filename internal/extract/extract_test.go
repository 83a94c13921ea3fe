package extract

import (
	"testing"

	"github.com/disputalabs/disputa/internal/core"
)

func TestExtractLetter(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"FinalMarker", "After discussion, Final Answer: B", "B"},
		{"Lowercase", "final answer: c", "C"},
		{"BoldMarkdown", "Final Answer: **B**", "B"},
		{"PlainMarker", "I think the Answer: D is right", "D"},
		{"FinalBeatsPlain", "Answer: A was my first guess.\nFinal Answer: C", "C"},
		{"NoMarker", "I believe it is B", ""},
		{"MarkerNoLetter", "Final Answer: 42", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.text, core.FormatLetter); got != tt.want {
				t.Errorf("Extract(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractInteger(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"Simple", "Final Answer: 204", "204"},
		{"Negative", "Final Answer: -17", "-17"},
		{"Bold", "Final Answer: **073**", "073"},
		{"TrailingProse", "Answer: 42 because of the theorem", "42"},
		{"Placeholder", "Answer: [still working]", ""},
		{"BoldPlaceholder", "Answer: **[working]**", ""},
		{"NoMarker", "It must be 7", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.text, core.FormatInteger); got != tt.want {
				t.Errorf("Extract(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractWord(t *testing.T) {
	if got := Extract("Final Answer: glove", core.FormatWord); got != "glove" {
		t.Errorf("word = %q, want glove", got)
	}
	if got := Extract("Answer: **yes**, certainly", core.FormatWord); got != "yes" {
		t.Errorf("word = %q, want yes", got)
	}
	if got := Extract("no conclusion here", core.FormatWord); got != "" {
		t.Errorf("word = %q, want empty", got)
	}
}

func TestExtractCustom(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"FinalSolutionTag", "Final Answer: <solution>3, 1, 2</solution>", "3, 1, 2"},
		{"SolutionTag", "Answer: <solution>blue</solution>", "blue"},
		{"BareSolutionTag", "My reasoning... <solution>yes, no, yes</solution>", "yes, no, yes"},
		{"BoldFinal", "Final Answer: **7, 3, 5**", "7, 3, 5"},
		{"PlainShort", "Answer: the fourth house", "the fourth house"},
		{"CommaList", "Answer: alpha, beta, gamma", "alpha, beta, gamma"},
		{"Nothing", "We should think more about this.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.text, core.FormatCustom); got != tt.want {
				t.Errorf("Extract(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestCustomRejectsLongProse(t *testing.T) {
	text := "Answer: this is a very long rambling sentence that mentions many things " +
		"and keeps going well past any reasonable answer length for a benchmark task"
	if got := Extract(text, core.FormatCustom); got != "" {
		t.Errorf("long prose extracted as %q, want empty", got)
	}
}

func TestFromTranscript(t *testing.T) {
	msgs := []core.Message{
		{Role: core.RoleUser, Content: "What is 6*7?"},
		{Role: core.RoleAssistant, Agent: core.AgentA, Content: "Agent A: Answer: 41"},
		{Role: core.RoleAssistant, Agent: core.AgentB, Content: "Agent B: Final Answer: 42"},
	}
	if got := FromTranscript(msgs, core.FormatInteger); got != "42" {
		t.Errorf("FromTranscript = %q, want 42", got)
	}

	none := []core.Message{{Role: core.RoleAssistant, Content: "still thinking"}}
	if got := FromTranscript(none, core.FormatInteger); got != "" {
		t.Errorf("FromTranscript = %q, want empty", got)
	}
}
