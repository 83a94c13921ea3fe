package benchmark

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/disputalabs/disputa/internal/core"
)

// SimpleBench serves trick questions that are easy for humans but hard for
// models, from a JSON snapshot. Answers are option letters A-F, and grading
// tolerates several phrasings of the final answer.
type SimpleBench struct {
	jsonPath string

	once      sync.Once
	questions []Question
	loadErr   error
}

// NewSimpleBench creates the benchmark over a JSON snapshot.
func NewSimpleBench(jsonPath string) *SimpleBench {
	return &SimpleBench{jsonPath: jsonPath}
}

// Name identifies the benchmark.
func (b *SimpleBench) Name() string { return "SimpleBench" }

// AnswerFormat reports the expected answer shape.
func (b *SimpleBench) AnswerFormat() core.AnswerFormat { return core.FormatLetter }

// Questions loads the snapshot on first call and returns up to max questions
// ordered by question id.
func (b *SimpleBench) Questions(max int) ([]Question, error) {
	b.once.Do(b.load)
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return truncate(b.questions, max), nil
}

func (b *SimpleBench) load() {
	raw, err := os.ReadFile(b.jsonPath)
	if err != nil {
		b.loadErr = fmt.Errorf("open simplebench dataset: %w", err)
		return
	}

	var payload struct {
		EvalData []struct {
			QuestionID int    `json:"question_id"`
			Prompt     string `json:"prompt"`
			Answer     string `json:"answer"`
		} `json:"eval_data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		b.loadErr = fmt.Errorf("parse simplebench dataset: %w", err)
		return
	}

	for _, item := range payload.EvalData {
		b.questions = append(b.questions, Question{
			ID:          fmt.Sprintf("%d", item.QuestionID),
			Text:        item.Prompt,
			GroundTruth: strings.ToUpper(strings.TrimSpace(item.Answer)),
		})
	}

	sortByID(b.questions)
	slog.Info("Loaded SimpleBench dataset", "questions", len(b.questions), "path", b.jsonPath)
}

// Grading regexes, tried in order of decreasing specificity.
var (
	sbFinalRe      = regexp.MustCompile(`(?i)Final Answer:\s*\*{0,2}([A-F])\*{0,2}`)
	sbTheAnswerRe  = regexp.MustCompile(`[Tt]he answer is\s*\*{0,2}([A-F])\*{0,2}`)
	sbLabeledRe    = regexp.MustCompile(`(?:[Oo]ption|[Aa]nswer|:)\s*\*{0,2}([A-F])\*{0,2}[.\s]`)
	sbStandaloneRe = regexp.MustCompile(`(?i)\b\*{0,2}([A-F])\*{0,2}\b`)
)

// Evaluate re-extracts the option letter from the answer text, tolerating
// markdown emphasis and common phrasings, then compares case-insensitively.
func (b *SimpleBench) Evaluate(answer, groundTruth string) bool {
	letter := extractLetter(answer)
	if letter == "" {
		return false
	}
	return letter == strings.ToUpper(strings.TrimSpace(groundTruth))
}

func extractLetter(response string) string {
	for _, re := range []*regexp.Regexp{sbFinalRe, sbTheAnswerRe, sbLabeledRe, sbStandaloneRe} {
		if m := re.FindStringSubmatch(response); m != nil {
			return strings.ToUpper(m[1])
		}
	}
	return ""
}
