package eval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/disputalabs/disputa/internal/benchmark"
	"github.com/disputalabs/disputa/internal/core"
	"github.com/disputalabs/disputa/internal/gateway"
)

type fakeBenchmark struct {
	qs []benchmark.Question
}

func (f *fakeBenchmark) Name() string                    { return "FakeBench" }
func (f *fakeBenchmark) AnswerFormat() core.AnswerFormat { return core.FormatLetter }
func (f *fakeBenchmark) Evaluate(answer, groundTruth string) bool {
	return answer == groundTruth
}
func (f *fakeBenchmark) Questions(max int) ([]benchmark.Question, error) {
	if max > 0 && max < len(f.qs) {
		return f.qs[:max], nil
	}
	return f.qs, nil
}

// memorySink records artifacts in memory for assertions.
type memorySink struct {
	mu          sync.Mutex
	results     map[string]any
	logs        map[string]any
	comparisons map[string]any
	failResults bool
}

func newMemorySink() *memorySink {
	return &memorySink{
		results:     make(map[string]any),
		logs:        make(map[string]any),
		comparisons: make(map[string]any),
	}
}

func (s *memorySink) SaveResult(runID string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failResults {
		return errors.New("disk full")
	}
	s.results[runID] = data
	return nil
}

func (s *memorySink) SaveLog(logID string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[logID] = data
	return nil
}

func (s *memorySink) SaveComparison(name string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comparisons[name] = data
	return nil
}

// failingGateway errors for any transcript mentioning the trigger substring
// and otherwise answers with a fixed response.
type failingGateway struct {
	trigger  string
	response string
}

func (g *failingGateway) Name() string { return "failing" }

func (g *failingGateway) Generate(ctx context.Context, msgs []core.Message, temperature float64, maxTokens int) (string, core.TokenUsage, error) {
	for _, m := range msgs {
		if g.trigger != "" && strings.Contains(m.Content, g.trigger) {
			return "", core.TokenUsage{}, errors.New("scripted failure")
		}
	}
	return g.response, core.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, nil
}

func questions(ids ...string) []benchmark.Question {
	qs := make([]benchmark.Question, len(ids))
	for i, id := range ids {
		qs[i] = benchmark.Question{ID: id, Text: "Question " + id, GroundTruth: "B"}
	}
	return qs
}

func noEvalPacing(o *Options) { o.Pacing = 0 }

func TestRunScoresAndPersists(t *testing.T) {
	bench := &fakeBenchmark{qs: questions("1", "2")}
	gw := gateway.NewMock("I am confident. Final Answer: B")
	sink := newMemorySink()
	m := NewManager(bench, gw, sink, noEvalPacing)

	runID, out, err := m.Run(context.Background(), "debate", 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasPrefix(runID, "fakebench_debate_") {
		t.Errorf("run id = %q, want fakebench_debate_ prefix", runID)
	}

	s := out.Summary
	if s.TotalQuestions != 2 || s.SimulatedCorrect != 2 || s.DualCorrect != 2 {
		t.Errorf("summary = %+v", s)
	}
	if s.SimulatedAccuracy != 1.0 || s.DualAccuracy != 1.0 {
		t.Errorf("accuracies = %v / %v, want 1.0", s.SimulatedAccuracy, s.DualAccuracy)
	}
	if s.TokenUsage.TotalTokens == 0 ||
		s.TokenUsage.TotalTokens != s.TokenUsage.SimulatedTokens+s.TokenUsage.DualTokens {
		t.Errorf("token breakdown = %+v", s.TokenUsage)
	}

	if len(out.Results) != 2 || out.Results[0].QuestionID != "1" || out.Results[1].QuestionID != "2" {
		t.Errorf("results order = %+v", out.Results)
	}
	if out.EvolutionSummary == nil {
		t.Error("missing evolution summary")
	}

	if _, ok := sink.results[runID]; !ok {
		t.Error("run result not persisted")
	}
	if len(sink.logs) != 2 {
		t.Errorf("conversation logs = %d, want 2", len(sink.logs))
	}
}

func TestRunExcludesFailedQuestions(t *testing.T) {
	bench := &fakeBenchmark{qs: questions("1", "2", "3")}
	gw := &failingGateway{trigger: "Question 2", response: "Final Answer: B"}
	sink := newMemorySink()
	m := NewManager(bench, gw, sink, noEvalPacing)

	_, out, err := m.Run(context.Background(), "debate", 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Summary.TotalQuestions != 2 {
		t.Errorf("total questions = %d, want 2 (failed question excluded)", out.Summary.TotalQuestions)
	}
	for _, r := range out.Results {
		if r.QuestionID == "2" {
			t.Error("failed question must not appear in results")
		}
	}
}

func TestRunNoFinalAnswerSentinel(t *testing.T) {
	bench := &fakeBenchmark{qs: questions("1")}
	gw := gateway.NewMock("I keep deliberating without concluding.")
	m := NewManager(bench, gw, newMemorySink(), noEvalPacing)

	_, out, err := m.Run(context.Background(), "debate", 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	r := out.Results[0]
	if r.Simulated.Answer != NoFinalAnswer || r.Dual.Answer != NoFinalAnswer {
		t.Errorf("answers = %q / %q, want sentinel", r.Simulated.Answer, r.Dual.Answer)
	}
	if r.Simulated.Correct || r.Dual.Correct {
		t.Error("sentinel answer must not score as correct")
	}
}

func TestRunUnknownStrategy(t *testing.T) {
	m := NewManager(&fakeBenchmark{qs: questions("1")}, gateway.NewMock("x"), newMemorySink(), noEvalPacing)
	if _, _, err := m.Run(context.Background(), "nope", 0); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestRunPersistenceFailureIsNonFatal(t *testing.T) {
	sink := newMemorySink()
	sink.failResults = true
	m := NewManager(&fakeBenchmark{qs: questions("1")}, gateway.NewMock("Final Answer: B"), sink, noEvalPacing)

	if _, _, err := m.Run(context.Background(), "debate", 0); err != nil {
		t.Fatalf("persistence failure should not fail the run: %v", err)
	}
}

func TestRunManyWritesComparison(t *testing.T) {
	bench := &fakeBenchmark{qs: questions("1", "2")}
	gw := gateway.NewMock("Final Answer: B")
	sink := newMemorySink()
	m := NewManager(bench, gw, sink, noEvalPacing)

	outputs, err := m.RunMany(context.Background(), []string{"debate", "cooperative"}, 0)
	if err != nil {
		t.Fatalf("RunMany: %v", err)
	}
	if len(outputs) != 2 {
		t.Fatalf("outputs = %d, want 2", len(outputs))
	}
	if len(sink.comparisons) != 1 {
		t.Fatalf("comparisons = %d, want 1", len(sink.comparisons))
	}

	for name, data := range sink.comparisons {
		if !strings.HasPrefix(name, "fakebench_") {
			t.Errorf("comparison name = %q", name)
		}
		c := data.(*Comparison)
		if len(c.Strategies) != 2 {
			t.Errorf("comparison strategies = %d, want 2", len(c.Strategies))
		}
		if len(c.Questions) != 2 {
			t.Errorf("comparison questions = %d, want 2", len(c.Questions))
		}
		want := c.TokenUsage["debate"] + c.TokenUsage["cooperative"]
		if c.TokenUsage["total"] != want {
			t.Errorf("token total = %d, want %d", c.TokenUsage["total"], want)
		}
	}
}

func TestRunManyUnknownStrategy(t *testing.T) {
	m := NewManager(&fakeBenchmark{qs: questions("1")}, gateway.NewMock("x"), newMemorySink(), noEvalPacing)
	if _, err := m.RunMany(context.Background(), []string{"debate", "nope"}, 0); err == nil {
		t.Fatal("expected error for unknown strategy in list")
	}
}

func TestDirSinkFilenames(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDirSink(filepath.Join(dir, "results"))
	if err != nil {
		t.Fatalf("NewDirSink: %v", err)
	}

	if err := sink.SaveResult("run1", map[string]string{"k": "v"}); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	if err := sink.SaveLog("log1", map[string]string{"k": "v"}); err != nil {
		t.Fatalf("SaveLog: %v", err)
	}
	if err := sink.SaveComparison("cmp1", map[string]string{"k": "v"}); err != nil {
		t.Fatalf("SaveComparison: %v", err)
	}

	for _, name := range []string{"result_run1.json", "log_log1.json", "comparison_cmp1.json"} {
		if _, err := os.Stat(filepath.Join(sink.Dir(), name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}
}
