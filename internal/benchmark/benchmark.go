// Package benchmark provides the question sources the evaluation runs
// against. Each benchmark loads a local dataset snapshot, exposes questions
// in a stable order, and owns the comparison rule that judges an extracted
// answer against its ground truth.
package benchmark

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disputalabs/disputa/internal/core"
)

// Question is a single benchmark item, already formatted for presentation to
// the agents.
type Question struct {
	ID          string            `json:"id"`
	Text        string            `json:"question"`
	GroundTruth string            `json:"ground_truth"`
	Options     map[string]string `json:"options,omitempty"`
	Category    string            `json:"category,omitempty"`
	Difficulty  string            `json:"difficulty,omitempty"`
}

// Benchmark is a question source plus its answer-comparison rule.
// Implementations load their dataset lazily and must return questions in a
// stable order so that max-question truncation is reproducible.
type Benchmark interface {
	// Name identifies the benchmark in run ids and reports.
	Name() string

	// AnswerFormat tells the extractor and prompt augmentation which answer
	// shape this benchmark expects.
	AnswerFormat() core.AnswerFormat

	// Questions returns up to max questions in stable order. max <= 0 means
	// all. A dataset loading failure is fatal to the run.
	Questions(max int) ([]Question, error)

	// Evaluate judges an extracted answer against the ground truth.
	Evaluate(answer, groundTruth string) bool
}

// Dataset snapshot filenames resolved under the data directory.
const (
	gpqaFile        = "gpqa_diamond.csv"
	simpleBenchFile = "simple_bench_public.json"
	aimeFile        = "aime_1983_2024.jsonl"
	liveBenchFile   = "livebench_reasoning.jsonl"
)

// Names lists the registered benchmark names in display order.
func Names() []string {
	return []string{"gpqa", "simplebench", "aime", "livebench"}
}

// Open resolves a benchmark by name with its dataset snapshot under dataDir.
func Open(name, dataDir string) (Benchmark, error) {
	switch strings.ToLower(name) {
	case "gpqa":
		return NewGPQA(filepath.Join(dataDir, gpqaFile)), nil
	case "simplebench":
		return NewSimpleBench(filepath.Join(dataDir, simpleBenchFile)), nil
	case "aime":
		return NewAIME(filepath.Join(dataDir, aimeFile)), nil
	case "livebench":
		return NewLiveBench(filepath.Join(dataDir, liveBenchFile)), nil
	default:
		return nil, fmt.Errorf("unknown benchmark %q (available: %s)", name, strings.Join(Names(), ", "))
	}
}

// truncate applies the max-questions limit without reordering.
func truncate(qs []Question, max int) []Question {
	if max > 0 && max < len(qs) {
		return qs[:max]
	}
	return qs
}

// sortByID orders questions by id for stable iteration, numeric ids first in
// numeric order, the rest lexically.
func sortByID(qs []Question) {
	sort.SliceStable(qs, func(i, j int) bool {
		a, aNum := numericID(qs[i].ID)
		b, bNum := numericID(qs[j].ID)
		if aNum && bNum {
			return a < b
		}
		if aNum != bNum {
			return aNum
		}
		return qs[i].ID < qs[j].ID
	})
}

func numericID(id string) (int, bool) {
	n := 0
	for _, r := range id {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, id != ""
}
