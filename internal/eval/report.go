package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/disputalabs/disputa/internal/core"
	"github.com/disputalabs/disputa/internal/evolution"
)

// Sink persists run artifacts. Implementations must be safe for concurrent
// callers; batches write logs in parallel.
type Sink interface {
	// SaveResult stores the run-level result artifact as result_<run_id>.
	SaveResult(runID string, data any) error

	// SaveLog stores a per-question conversation log as log_<log_id>.
	SaveLog(logID string, data any) error

	// SaveComparison stores a cross-strategy report as comparison_<name>.
	SaveComparison(name string, data any) error
}

// DirSink writes artifacts as indented JSON files under a results directory.
type DirSink struct {
	dir string
}

// NewDirSink creates the results directory if needed.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create results directory: %w", err)
	}
	return &DirSink{dir: dir}, nil
}

// Dir returns the directory artifacts are written to.
func (s *DirSink) Dir() string { return s.dir }

// SaveResult implements Sink.
func (s *DirSink) SaveResult(runID string, data any) error {
	return s.write(fmt.Sprintf("result_%s.json", runID), data)
}

// SaveLog implements Sink.
func (s *DirSink) SaveLog(logID string, data any) error {
	return s.write(fmt.Sprintf("log_%s.json", logID), data)
}

// SaveComparison implements Sink.
func (s *DirSink) SaveComparison(name string, data any) error {
	return s.write(fmt.Sprintf("comparison_%s.json", name), data)
}

func (s *DirSink) write(name string, data any) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// StrategyComparison is one strategy's rollup within a comparison report.
type StrategyComparison struct {
	RunID            string             `json:"run_id"`
	Summary          Summary            `json:"summary"`
	EvolutionSummary *evolution.Summary `json:"evolution_summary,omitempty"`
}

// ModeComparison is one protocol's outcome for one question within a
// comparison report.
type ModeComparison struct {
	Answer    string          `json:"answer"`
	Correct   bool            `json:"correct"`
	Time      float64         `json:"time"`
	Tokens    core.TokenUsage `json:"tokens"`
	Evolution PatternPair     `json:"evolution"`
}

// QuestionComparison is one strategy's answers for one question.
type QuestionComparison struct {
	GroundTruth string         `json:"ground_truth"`
	Simulated   ModeComparison `json:"simulated"`
	Dual        ModeComparison `json:"dual"`
}

// Comparison is the cross-strategy report for one benchmark, keyed first by
// strategy for the summaries and by question id for the per-question grid.
type Comparison struct {
	Timestamp  string                                   `json:"timestamp"`
	Benchmark  string                                   `json:"benchmark"`
	Strategies map[string]StrategyComparison            `json:"strategies"`
	Questions  map[string]map[string]QuestionComparison `json:"questions"`
	TokenUsage map[string]int                           `json:"token_usage"`
}

// BuildComparison assembles the cross-strategy report from completed run
// outputs keyed by strategy id.
func BuildComparison(benchmarkName string, outputs map[string]*RunOutput) *Comparison {
	c := &Comparison{
		Timestamp:  time.Now().Format(time.RFC3339),
		Benchmark:  benchmarkName,
		Strategies: make(map[string]StrategyComparison, len(outputs)),
		Questions:  make(map[string]map[string]QuestionComparison),
		TokenUsage: make(map[string]int, len(outputs)+1),
	}

	total := 0
	for strategyID, out := range outputs {
		c.Strategies[strategyID] = StrategyComparison{
			RunID:            out.RunID,
			Summary:          out.Summary,
			EvolutionSummary: out.EvolutionSummary,
		}
		c.TokenUsage[strategyID] = out.Summary.TokenUsage.TotalTokens
		total += out.Summary.TokenUsage.TotalTokens

		for _, r := range out.Results {
			byStrategy, ok := c.Questions[r.QuestionID]
			if !ok {
				byStrategy = make(map[string]QuestionComparison, len(outputs))
				c.Questions[r.QuestionID] = byStrategy
			}
			byStrategy[strategyID] = QuestionComparison{
				GroundTruth: r.GroundTruth,
				Simulated:   modeComparison(r.Simulated),
				Dual:        modeComparison(r.Dual),
			}
		}
	}
	c.TokenUsage["total"] = total

	return c
}

func modeComparison(r ModeResult) ModeComparison {
	return ModeComparison{
		Answer:    r.Answer,
		Correct:   r.Correct,
		Time:      r.Time,
		Tokens:    r.Tokens,
		Evolution: r.Evolution,
	}
}
