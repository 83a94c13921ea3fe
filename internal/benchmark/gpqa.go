package benchmark

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"sync"

	"github.com/disputalabs/disputa/internal/core"
)

// GPQA serves graduate-level multiple-choice science questions from a CSV
// snapshot. The four answer options are shuffled per question so the correct
// letter is not positionally biased; the shuffle is seeded from the record id
// so repeated runs present identical questions.
type GPQA struct {
	csvPath string

	once      sync.Once
	questions []Question
	loadErr   error
}

// NewGPQA creates the benchmark over a CSV snapshot. The file is read on
// first use.
func NewGPQA(csvPath string) *GPQA {
	return &GPQA{csvPath: csvPath}
}

// Name identifies the benchmark.
func (b *GPQA) Name() string { return "GPQA" }

// AnswerFormat reports the expected answer shape.
func (b *GPQA) AnswerFormat() core.AnswerFormat { return core.FormatLetter }

// Evaluate compares the extracted option letter with the ground-truth letter.
func (b *GPQA) Evaluate(answer, groundTruth string) bool {
	return answer == groundTruth
}

// Questions loads the CSV on first call and returns up to max questions.
func (b *GPQA) Questions(max int) ([]Question, error) {
	b.once.Do(b.load)
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return truncate(b.questions, max), nil
}

func (b *GPQA) load() {
	f, err := os.Open(b.csvPath)
	if err != nil {
		b.loadErr = fmt.Errorf("open gpqa dataset: %w", err)
		return
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		b.loadErr = fmt.Errorf("read gpqa header: %w", err)
		return
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Question", "Correct Answer", "Incorrect Answer 1", "Incorrect Answer 2", "Incorrect Answer 3"} {
		if _, ok := col[required]; !ok {
			b.loadErr = fmt.Errorf("gpqa dataset missing column %q", required)
			return
		}
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	rowNum := 0
	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		rowNum++

		correct := field(record, "Correct Answer")
		options := []string{
			correct,
			field(record, "Incorrect Answer 1"),
			field(record, "Incorrect Answer 2"),
			field(record, "Incorrect Answer 3"),
		}
		kept := options[:0]
		for _, opt := range options {
			if opt != "" {
				kept = append(kept, opt)
			}
		}

		id := field(record, "Record ID")
		if id == "" {
			id = fmt.Sprintf("%d", rowNum)
		}

		// Seeded from the record id so the correct letter is stable across
		// runs for the same question.
		rng := rand.New(rand.NewSource(seedFrom(id)))
		rng.Shuffle(len(kept), func(i, j int) { kept[i], kept[j] = kept[j], kept[i] })

		labeled := make(map[string]string, len(kept))
		truthLabel := ""
		var text strings.Builder
		text.WriteString(field(record, "Question"))
		text.WriteString("\n\n")
		for i, opt := range kept {
			label := string(rune('A' + i))
			labeled[label] = opt
			if opt == correct {
				truthLabel = label
			}
			fmt.Fprintf(&text, "%s. %s\n", label, opt)
		}

		category := field(record, "High-level domain")
		if sub := field(record, "Subdomain"); sub != "" && category != "" {
			category = category + " - " + sub
		}

		b.questions = append(b.questions, Question{
			ID:          id,
			Text:        text.String(),
			GroundTruth: truthLabel,
			Options:     labeled,
			Category:    category,
			Difficulty:  field(record, "Writer's Difficulty Estimate"),
		})
	}

	sortByID(b.questions)
	slog.Info("Loaded GPQA dataset", "questions", len(b.questions), "path", b.csvPath)
}

func seedFrom(id string) int64 {
	var seed int64
	for _, r := range id {
		seed = seed*31 + int64(r)
	}
	return seed
}
