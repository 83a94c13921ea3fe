package benchmark

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/disputalabs/disputa/internal/core"
)

// LiveBench serves reasoning puzzles (zebra puzzles, spatial reasoning, web
// of lies) from a JSONL snapshot. Answer formats vary per task, so extraction
// uses the custom cascade and grading normalizes both sides before comparing.
type LiveBench struct {
	jsonlPath  string
	categories map[string]bool

	once      sync.Once
	questions []Question
	loadErr   error
}

// NewLiveBench creates the benchmark over a JSONL snapshot. Optional
// categories restrict loading to matching task or category names.
func NewLiveBench(jsonlPath string, categories ...string) *LiveBench {
	b := &LiveBench{jsonlPath: jsonlPath}
	if len(categories) > 0 {
		b.categories = make(map[string]bool, len(categories))
		for _, c := range categories {
			b.categories[c] = true
		}
	}
	return b
}

// Name identifies the benchmark.
func (b *LiveBench) Name() string { return "LiveBench" }

// AnswerFormat reports the expected answer shape.
func (b *LiveBench) AnswerFormat() core.AnswerFormat { return core.FormatCustom }

// Questions loads the snapshot on first call and returns up to max questions
// ordered by question id.
func (b *LiveBench) Questions(max int) ([]Question, error) {
	b.once.Do(b.load)
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return truncate(b.questions, max), nil
}

type liveBenchRecord struct {
	QuestionID  string   `json:"question_id"`
	Category    string   `json:"category"`
	Task        string   `json:"task"`
	Turns       []string `json:"turns"`
	GroundTruth string   `json:"ground_truth"`
	Level       int      `json:"level"`
}

func (b *LiveBench) load() {
	f, err := os.Open(b.jsonlPath)
	if err != nil {
		b.loadErr = fmt.Errorf("open livebench dataset: %w", err)
		return
	}
	defer f.Close()

	taskCounts := map[string]int{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec liveBenchRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			b.loadErr = fmt.Errorf("parse livebench dataset line %d: %w", line, err)
			return
		}
		if b.categories != nil && !b.categories[rec.Task] && !b.categories[rec.Category] {
			continue
		}
		if len(rec.Turns) == 0 || rec.Turns[0] == "" {
			continue
		}

		id := rec.QuestionID
		if id == "" {
			id = fmt.Sprintf("livebench_%d", line)
		}
		category := rec.Category
		if category == "" {
			category = "reasoning"
		}

		b.questions = append(b.questions, Question{
			ID:          id,
			Text:        rec.Turns[0],
			GroundTruth: rec.GroundTruth,
			Category:    category + "/" + rec.Task,
		})
		taskCounts[rec.Task]++
	}
	if err := scanner.Err(); err != nil {
		b.loadErr = fmt.Errorf("read livebench dataset: %w", err)
		return
	}

	sortByID(b.questions)
	slog.Info("Loaded LiveBench dataset", "questions", len(b.questions), "tasks", taskCounts)
}

var (
	lbSolutionRe = regexp.MustCompile(`(?is)<solution>(.*?)</solution>`)
	lbBoldRe     = regexp.MustCompile(`\*\*([\w\s,]+)\*\*`)
	lbPunctRe    = regexp.MustCompile(`[^\w\s,]`)
	lbSpaceRe    = regexp.MustCompile(`\s+`)
	lbDigitsRe   = regexp.MustCompile(`\b\d+\b`)
)

// Evaluate grades a variable-format answer. Solution tags and bold spans are
// unwrapped first, then both sides are normalized. Comma-separated ground
// truths compare element-wise in order; purely numeric ground truths match
// any number in the answer; everything else compares as a whole phrase.
func (b *LiveBench) Evaluate(answer, groundTruth string) bool {
	if answer == "" || groundTruth == "" {
		return false
	}

	if m := lbSolutionRe.FindStringSubmatch(answer); m != nil {
		answer = strings.TrimSpace(m[1])
	}
	if m := lbBoldRe.FindStringSubmatch(answer); m != nil {
		answer = strings.TrimSpace(m[1])
	}

	a := normalizeAnswer(answer)
	g := normalizeAnswer(groundTruth)

	if strings.Contains(g, ",") {
		aParts := splitTrim(a)
		gParts := splitTrim(g)
		if len(aParts) != len(gParts) {
			return false
		}
		for i := range gParts {
			if aParts[i] != gParts[i] {
				return false
			}
		}
		return true
	}

	if isDigits(g) {
		for _, num := range lbDigitsRe.FindAllString(a, -1) {
			if num == g {
				return true
			}
		}
		return false
	}

	return a == g
}

// normalizeAnswer lowercases, strips punctuation except commas, and collapses
// whitespace.
func normalizeAnswer(text string) string {
	text = strings.ToLower(text)
	text = lbPunctRe.ReplaceAllString(text, "")
	return strings.TrimSpace(lbSpaceRe.ReplaceAllString(text, " "))
}

func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
