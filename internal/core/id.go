package core

import (
	"fmt"
	"strings"
	"time"
)

// NumericQuestionID maps a question id onto a stable small integer so the
// even/odd final-agent rule gives the same assignment on every run. Integer
// ids parse directly; everything else hashes by summing code points mod 1000.
func NumericQuestionID(id string) int {
	n := 0
	numeric := len(id) > 0
	for _, c := range id {
		if c < '0' || c > '9' {
			numeric = false
			break
		}
		n = n*10 + int(c-'0')
	}
	if numeric {
		return n
	}

	sum := 0
	for _, c := range id {
		sum += int(c)
	}
	return sum % 1000
}

// FinalAgentFor returns the agent that must produce the terminal answer for a
// question. Alternating by id parity cancels out any systematic bias toward
// whichever agent structurally speaks first or last.
func FinalAgentFor(questionID string) string {
	if NumericQuestionID(questionID)%2 == 0 {
		return AgentA
	}
	return AgentB
}

// RunID builds the identifier used to name a run's result artifact.
func RunID(benchmark, strategy string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%d", strings.ToLower(benchmark), strategy, at.Unix())
}

// LogID builds the identifier used to name a per-question conversation log.
func LogID(benchmark, questionID, strategy string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%d", strings.ToLower(benchmark), questionID, strategy, at.Unix())
}
