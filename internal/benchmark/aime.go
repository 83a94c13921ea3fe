package benchmark

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/disputalabs/disputa/internal/core"
)

// AIME serves competition math problems with non-negative integer answers
// from a JSONL snapshot, one problem per line. Questions are ordered by year
// then problem number.
type AIME struct {
	jsonlPath string
	yearFrom  int
	yearTo    int

	once      sync.Once
	questions []Question
	loadErr   error
}

// NewAIME creates the benchmark over a JSONL snapshot, keeping problems from
// 2021 through 2024.
func NewAIME(jsonlPath string) *AIME {
	return &AIME{jsonlPath: jsonlPath, yearFrom: 2021, yearTo: 2024}
}

// Name identifies the benchmark.
func (b *AIME) Name() string { return "AIME" }

// AnswerFormat reports the expected answer shape.
func (b *AIME) AnswerFormat() core.AnswerFormat { return core.FormatInteger }

// Questions loads the snapshot on first call and returns up to max problems.
func (b *AIME) Questions(max int) ([]Question, error) {
	b.once.Do(b.load)
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return truncate(b.questions, max), nil
}

type aimeRecord struct {
	ID            string          `json:"id"`
	Year          int             `json:"year"`
	ProblemNumber int             `json:"problem_number"`
	Question      string          `json:"question"`
	Answer        json.RawMessage `json:"answer"`
	Part          string          `json:"part"`
}

func (b *AIME) load() {
	f, err := os.Open(b.jsonlPath)
	if err != nil {
		b.loadErr = fmt.Errorf("open aime dataset: %w", err)
		return
	}
	defer f.Close()

	type ordered struct {
		q    Question
		year int
		num  int
	}
	var records []ordered

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec aimeRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			b.loadErr = fmt.Errorf("parse aime dataset line %d: %w", line, err)
			return
		}
		if rec.Year < b.yearFrom || rec.Year > b.yearTo {
			continue
		}

		id := rec.ID
		if id == "" {
			id = fmt.Sprintf("AIME_%d_%d", rec.Year, rec.ProblemNumber)
		}
		records = append(records, ordered{
			q: Question{
				ID:          id,
				Text:        rec.Question,
				GroundTruth: rawAnswerString(rec.Answer),
				Category:    fmt.Sprintf("AIME %d%s", rec.Year, partSuffix(rec.Part)),
			},
			year: rec.Year,
			num:  rec.ProblemNumber,
		})
	}
	if err := scanner.Err(); err != nil {
		b.loadErr = fmt.Errorf("read aime dataset: %w", err)
		return
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].year != records[j].year {
			return records[i].year < records[j].year
		}
		return records[i].num < records[j].num
	})
	for _, r := range records {
		b.questions = append(b.questions, r.q)
	}

	slog.Info("Loaded AIME dataset", "questions", len(b.questions), "years", fmt.Sprintf("%d-%d", b.yearFrom, b.yearTo))
}

// rawAnswerString accepts answers stored as either JSON strings or numbers.
func rawAnswerString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return strings.TrimSpace(string(raw))
}

func partSuffix(part string) string {
	if part == "" {
		return ""
	}
	return " " + part
}

var aimeNumRe = regexp.MustCompile(`\b\d+\b`)

// Evaluate compares the first numeric token of each side, which tolerates
// leading zeros and surrounding prose; without numbers on both sides it falls
// back to exact string comparison.
func (b *AIME) Evaluate(answer, groundTruth string) bool {
	a := strings.TrimSpace(answer)
	g := strings.TrimSpace(groundTruth)

	aMatch := aimeNumRe.FindString(a)
	gMatch := aimeNumRe.FindString(g)
	if aMatch != "" && gMatch != "" {
		an, errA := strconv.Atoi(aMatch)
		gn, errG := strconv.Atoi(gMatch)
		if errA == nil && errG == nil {
			return an == gn
		}
	}
	return a == g
}
