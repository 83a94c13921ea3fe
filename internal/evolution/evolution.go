// Package evolution classifies how answers develop across a dialogue, along
// two dimensions: whether the agents agreed, and whether their answers were
// correct. Patterns are tallied per run to compare the dialogue protocols.
package evolution

import (
	"github.com/disputalabs/disputa/internal/core"
	"github.com/disputalabs/disputa/internal/extract"
)

// Agreement patterns.
const (
	CompleteAgreement      = "Complete Agreement"
	ResolvedDisagreement   = "Resolved Disagreement"
	UnresolvedDisagreement = "Unresolved Disagreement"
	InsufficientData       = "Insufficient Data"
)

// Correctness patterns.
const (
	StableCorrect         = "Stable Correct"
	StableIncorrect       = "Stable Incorrect"
	StableCorrectOneAgent = "Stable Correct (One Agent)"
	Improvement           = "Improvement"
	Deterioration         = "Deterioration"
	MixedPattern          = "Mixed Pattern"
	MixedFinalCorrect     = "Mixed Pattern (Final Correct)"
	MixedFinalIncorrect   = "Mixed Pattern (Final Incorrect)"
)

// Comparator judges an extracted answer against the ground truth. Benchmarks
// supply their own comparison rules.
type Comparator func(answer, groundTruth string) bool

// HistoryEntry is one answer-bearing turn in a dialogue.
type HistoryEntry struct {
	Turn      int    `json:"turn"`
	Agent     string `json:"agent"`
	Answer    string `json:"answer"`
	IsCorrect bool   `json:"is_correct"`
}

// Analysis is the evolution classification of a single dialogue.
type Analysis struct {
	AgreementPattern   string         `json:"agreement_pattern"`
	CorrectnessPattern string         `json:"correctness_pattern"`
	AnswerHistory      []HistoryEntry `json:"answer_history"`
}

// Analyze extracts per-turn answers from a transcript and classifies the
// dialogue. Turns without an extractable answer do not enter the history.
func Analyze(transcript []core.Message, groundTruth string, format core.AnswerFormat, correct Comparator) Analysis {
	var history []HistoryEntry

	turn := 0
	for _, msg := range transcript {
		if msg.Role == core.RoleUser || msg.Role == core.RoleSystem {
			continue
		}

		agent := core.SpeakerOf(msg)
		if agent != core.AgentA && agent != core.AgentB {
			continue
		}

		answer := extract.Extract(core.BodyOf(msg), format)
		if answer == "" {
			continue
		}

		history = append(history, HistoryEntry{
			Turn:      turn,
			Agent:     agent,
			Answer:    answer,
			IsCorrect: correct(answer, groundTruth),
		})
		turn++
	}

	return Analysis{
		AgreementPattern:   AgreementPattern(history),
		CorrectnessPattern: CorrectnessPattern(history),
		AnswerHistory:      history,
	}
}

// AgreementPattern classifies whether and when the agents converged on the
// same answer.
func AgreementPattern(history []HistoryEntry) string {
	if len(history) < 2 {
		return InsufficientData
	}

	var a, b []string
	for _, item := range history {
		switch item.Agent {
		case core.AgentA:
			a = append(a, item.Answer)
		case core.AgentB:
			b = append(b, item.Answer)
		}
	}
	if len(a) == 0 || len(b) == 0 {
		return InsufficientData
	}

	firstA, firstB := a[0], b[0]
	if firstA == firstB {
		agreed := true
		for _, ans := range append(append([]string(nil), a...), b...) {
			if ans != firstA {
				agreed = false
				break
			}
		}
		if agreed {
			return CompleteAgreement
		}
	}

	lastA, lastB := a[len(a)-1], b[len(b)-1]
	if lastA == lastB {
		// Earlier disagreement means either the opening answers differed or
		// some interior answer deviated from the final one.
		if firstA != firstB {
			return ResolvedDisagreement
		}
		for _, ans := range append(append([]string(nil), a[:len(a)-1]...), b[:len(b)-1]...) {
			if ans != lastA {
				return ResolvedDisagreement
			}
		}
		return CompleteAgreement
	}

	return UnresolvedDisagreement
}

// CorrectnessPattern classifies the trajectory of answer correctness across
// the dialogue, agents pooled in turn order.
func CorrectnessPattern(history []HistoryEntry) string {
	if len(history) == 0 {
		return InsufficientData
	}

	pooled := make([]bool, len(history))
	allCorrect, anyCorrect := true, false
	for i, item := range history {
		pooled[i] = item.IsCorrect
		allCorrect = allCorrect && item.IsCorrect
		anyCorrect = anyCorrect || item.IsCorrect
	}
	if allCorrect {
		return StableCorrect
	}
	if !anyCorrect {
		return StableIncorrect
	}

	// One agent never wavering from the correct answer while the other did.
	perAgent := map[string]bool{}
	seen := map[string]bool{}
	for _, item := range history {
		if !seen[item.Agent] {
			seen[item.Agent] = true
			perAgent[item.Agent] = true
		}
		perAgent[item.Agent] = perAgent[item.Agent] && item.IsCorrect
	}
	for agent := range seen {
		if perAgent[agent] {
			return StableCorrectOneAgent
		}
	}

	if len(pooled) > 1 {
		if !pooled[0] && pooled[len(pooled)-1] {
			return Improvement
		}
		if pooled[0] && !pooled[len(pooled)-1] {
			return Deterioration
		}
	}

	if len(pooled) >= 3 {
		start, end := pooled[0], pooled[len(pooled)-1]
		interiorHasFalse, interiorHasTrue := false, false
		for _, v := range pooled[1 : len(pooled)-1] {
			if v {
				interiorHasTrue = true
			} else {
				interiorHasFalse = true
			}
		}
		if start && end && interiorHasFalse {
			return MixedFinalCorrect
		}
		if !start && !end && interiorHasTrue {
			return MixedFinalIncorrect
		}
	}

	return MixedPattern
}

// Tally counts pattern occurrences by name.
type Tally map[string]int

// ModeTally splits tallies by protocol.
type ModeTally struct {
	Agreement   Tally `json:"agreement"`
	Correctness Tally `json:"correctness"`
}

// Summary aggregates evolution patterns across a run, overall and per
// protocol.
type Summary struct {
	AgreementCounts   Tally     `json:"agreement_counts"`
	CorrectnessCounts Tally     `json:"correctness_counts"`
	Simulated         ModeTally `json:"simulated"`
	Dual              ModeTally `json:"dual"`
}

// NewSummary returns a summary with every known pattern pre-seeded at zero so
// report consumers always see the full key set.
func NewSummary() *Summary {
	agreementKeys := []string{CompleteAgreement, ResolvedDisagreement, UnresolvedDisagreement, InsufficientData}
	correctnessKeys := []string{
		StableCorrect, StableIncorrect, StableCorrectOneAgent, Improvement,
		Deterioration, MixedPattern, MixedFinalCorrect, MixedFinalIncorrect, InsufficientData,
	}
	modeCorrectnessKeys := []string{
		StableCorrect, StableCorrectOneAgent, Improvement, Deterioration,
		StableIncorrect, MixedFinalCorrect, MixedFinalIncorrect,
	}

	seed := func(keys []string) Tally {
		t := make(Tally, len(keys))
		for _, k := range keys {
			t[k] = 0
		}
		return t
	}

	return &Summary{
		AgreementCounts:   seed(agreementKeys),
		CorrectnessCounts: seed(correctnessKeys),
		Simulated:         ModeTally{Agreement: seed(agreementKeys), Correctness: seed(modeCorrectnessKeys)},
		Dual:              ModeTally{Agreement: seed(agreementKeys), Correctness: seed(modeCorrectnessKeys)},
	}
}

// Record tallies one dialogue's analysis under its protocol. Unknown pattern
// names are ignored rather than grown into the key set.
func (s *Summary) Record(mode core.Mode, a Analysis) {
	modeTally := &s.Simulated
	if mode == core.ModeDual {
		modeTally = &s.Dual
	}

	if _, ok := s.AgreementCounts[a.AgreementPattern]; ok {
		s.AgreementCounts[a.AgreementPattern]++
		if _, ok := modeTally.Agreement[a.AgreementPattern]; ok {
			modeTally.Agreement[a.AgreementPattern]++
		}
	}
	if _, ok := s.CorrectnessCounts[a.CorrectnessPattern]; ok {
		s.CorrectnessCounts[a.CorrectnessPattern]++
		if _, ok := modeTally.Correctness[a.CorrectnessPattern]; ok {
			modeTally.Correctness[a.CorrectnessPattern]++
		}
	}
}
