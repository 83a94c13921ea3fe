// Package strategy defines the collaboration strategies that shape a
// dialogue: the two role prompts, per-benchmark answer-format augmentation,
// and the dialogue hyperparameters.
package strategy

import (
	"github.com/disputalabs/disputa/internal/core"
)

// Default dialogue hyperparameters shared by the built-in strategies.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
	DefaultNumTurns    = 5
)

// Strategy is an immutable descriptor of one collaboration style. A Strategy
// is constructed once per evaluation run and read-only during dialogues.
type Strategy struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	PromptA     string  `json:"prompt_a"`
	PromptB     string  `json:"prompt_b"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	NumTurns    int     `json:"num_turns"`
}

// Defaults returns the built-in strategies.
func Defaults() []Strategy {
	return []Strategy{debateStrategy(), cooperativeStrategy(), teacherStudentStrategy()}
}

// Get returns a built-in strategy by ID, or nil if unknown.
func Get(id string) *Strategy {
	for _, s := range Defaults() {
		if s.ID == id {
			return &s
		}
	}
	return nil
}

// List returns all built-in strategy IDs.
func List() []string {
	defaults := Defaults()
	ids := make([]string, len(defaults))
	for i, s := range defaults {
		ids[i] = s.ID
	}
	return ids
}

// Valid checks whether a strategy ID names a built-in strategy.
func Valid(id string) bool {
	return Get(id) != nil
}

// WithFormat returns a copy of the strategy whose role prompts carry the
// answer-format instructions for the benchmark being evaluated. Called once
// before the first dialogue of a run; the copy keeps the original untouched.
func (s Strategy) WithFormat(format core.AnswerFormat) Strategy {
	instruction := FormatInstruction(format)
	if instruction == "" {
		return s
	}
	augmented := s
	augmented.PromptA = s.PromptA + "\n\n" + instruction
	augmented.PromptB = s.PromptB + "\n\n" + instruction
	return augmented
}

// FormatInstruction returns the answer-format text appended to both role
// prompts for a benchmark's answer format.
func FormatInstruction(format core.AnswerFormat) string {
	switch format {
	case core.FormatLetter:
		return "ANSWER FORMAT: State your current choice as 'Answer: X' where X is " +
			"the letter of one option. On the final turn the line must read " +
			"'Final Answer: X' with nothing after the letter."
	case core.FormatInteger:
		return "ANSWER FORMAT: State your current result as 'Answer: N' where N is " +
			"a single integer. On the final turn the line must read 'Final Answer: N'. " +
			"Do not wrap the number in brackets or add units."
	case core.FormatWord:
		return "ANSWER FORMAT: State your current result as 'Answer: W' where W is " +
			"a single word. On the final turn the line must read 'Final Answer: W'."
	case core.FormatCustom:
		return "ANSWER FORMAT: Wrap your answer in solution tags, e.g. " +
			"'Answer: <solution>your answer</solution>'. For list answers keep every " +
			"element, comma-separated and in order. On the final turn use " +
			"'Final Answer: <solution>...</solution>'."
	default:
		return ""
	}
}
