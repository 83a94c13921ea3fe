// Package eval runs benchmark evaluations: for every question both dialogue
// protocols are executed against the same strategy, answers are graded, and
// the run is written out as JSON artifacts (per-run results, per-question
// conversation logs, and a cross-strategy comparison report).
package eval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/disputalabs/disputa/internal/benchmark"
	"github.com/disputalabs/disputa/internal/core"
	"github.com/disputalabs/disputa/internal/engine"
	"github.com/disputalabs/disputa/internal/evolution"
	"github.com/disputalabs/disputa/internal/extract"
	"github.com/disputalabs/disputa/internal/gateway"
	"github.com/disputalabs/disputa/internal/strategy"
)

// batchSize bounds how many questions run concurrently. Batches are
// sequential; both protocols of one question always run together.
const batchSize = 5

// NoFinalAnswer is reported when no turn of a transcript yields an
// extractable answer.
const NoFinalAnswer = "No final answer found."

// PatternPair is the evolution classification embedded in result artifacts.
type PatternPair struct {
	AgreementPattern   string `json:"agreement_pattern"`
	CorrectnessPattern string `json:"correctness_pattern"`
}

// ModeResult is one protocol's outcome for one question.
type ModeResult struct {
	Answer    string          `json:"answer"`
	Correct   bool            `json:"correct"`
	Time      float64         `json:"time"`
	Tokens    core.TokenUsage `json:"tokens"`
	LogID     string          `json:"log_id"`
	Evolution PatternPair     `json:"evolution"`
}

// QuestionResult pairs both protocols' outcomes for one question.
type QuestionResult struct {
	QuestionID  string     `json:"question_id"`
	Question    string     `json:"question"`
	GroundTruth string     `json:"ground_truth"`
	Category    string     `json:"category"`
	Difficulty  string     `json:"difficulty"`
	Simulated   ModeResult `json:"simulated"`
	Dual        ModeResult `json:"dual"`
}

// TokenBreakdown splits a run's token spend by protocol.
type TokenBreakdown struct {
	SimulatedTokens int `json:"simulated_tokens"`
	DualTokens      int `json:"dual_tokens"`
	TotalTokens     int `json:"total_tokens"`
}

// Summary is the run-level accuracy and cost rollup. Failed questions are
// excluded from every figure.
type Summary struct {
	TotalQuestions    int            `json:"total_questions"`
	SimulatedCorrect  int            `json:"simulated_correct"`
	DualCorrect       int            `json:"dual_correct"`
	SimulatedAccuracy float64        `json:"simulated_accuracy"`
	DualAccuracy      float64        `json:"dual_accuracy"`
	TokenUsage        TokenBreakdown `json:"token_usage"`
}

// RunOutput is the full result artifact for a single strategy run.
type RunOutput struct {
	RunID            string             `json:"run_id"`
	Timestamp        string             `json:"timestamp"`
	Benchmark        string             `json:"benchmark"`
	Strategy         string             `json:"strategy"`
	Summary          Summary            `json:"summary"`
	Results          []QuestionResult   `json:"results"`
	EvolutionSummary *evolution.Summary `json:"evolution_summary,omitempty"`
}

// conversationLog is the per-question artifact holding both full transcripts.
type conversationLog struct {
	QuestionID         string              `json:"question_id"`
	Question           string              `json:"question"`
	GroundTruth        string              `json:"ground_truth"`
	Strategy           string              `json:"strategy"`
	Benchmark          string              `json:"benchmark"`
	SimulatedMessages  []core.Message      `json:"simulated_messages"`
	DualMessages       []core.Message      `json:"dual_messages"`
	SimulatedEvolution *evolution.Analysis `json:"simulated_evolution,omitempty"`
	DualEvolution      *evolution.Analysis `json:"dual_evolution,omitempty"`
}

// Options configure a Manager beyond its required collaborators.
type Options struct {
	// Pacing is forwarded to the dialogue engines.
	Pacing time.Duration
}

// Manager orchestrates evaluation runs for one benchmark against one model
// gateway.
type Manager struct {
	benchmark benchmark.Benchmark
	gateway   gateway.Gateway
	sink      Sink
	pacing    time.Duration
}

// NewManager creates an evaluation manager. The sink receives every artifact
// the run produces.
func NewManager(b benchmark.Benchmark, gw gateway.Gateway, sink Sink, optFns ...func(o *Options)) *Manager {
	opts := Options{Pacing: time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Manager{benchmark: b, gateway: gw, sink: sink, pacing: opts.Pacing}
}

// Run evaluates one strategy over up to maxQuestions benchmark questions and
// persists the result artifact. Per-question failures are logged and excluded
// from the totals; persistence failures are logged and non-fatal.
func (m *Manager) Run(ctx context.Context, strategyID string, maxQuestions int) (string, *RunOutput, error) {
	base := strategy.Get(strategyID)
	if base == nil {
		return "", nil, fmt.Errorf("unknown strategy %q", strategyID)
	}
	format := m.benchmark.AnswerFormat()
	strat := base.WithFormat(format)

	questions, err := m.benchmark.Questions(maxQuestions)
	if err != nil {
		return "", nil, fmt.Errorf("load %s questions: %w", m.benchmark.Name(), err)
	}
	if len(questions) == 0 {
		return "", nil, fmt.Errorf("benchmark %s returned no questions", m.benchmark.Name())
	}

	eng := engine.New(m.gateway, strat, format, func(o *engine.Options) {
		o.Pacing = m.pacing
	})

	slog.Info("Starting evaluation run",
		"benchmark", m.benchmark.Name(), "strategy", strategyID, "questions", len(questions))

	var results []QuestionResult
	for start := 0; start < len(questions); start += batchSize {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}

		end := start + batchSize
		if end > len(questions) {
			end = len(questions)
		}
		batch := questions[start:end]
		slog.Info("Processing batch",
			"batch", start/batchSize+1, "total", (len(questions)+batchSize-1)/batchSize, "strategy", strategyID)

		batchResults := make([]*QuestionResult, len(batch))
		var wg sync.WaitGroup
		for i, q := range batch {
			wg.Add(1)
			go func(i int, q benchmark.Question) {
				defer wg.Done()
				res, err := m.processQuestion(ctx, eng, strategyID, q)
				if err != nil {
					slog.Error("Question failed, excluding from totals",
						"question_id", q.ID, "strategy", strategyID, "error", err)
					return
				}
				batchResults[i] = res
			}(i, q)
		}
		wg.Wait()

		for _, res := range batchResults {
			if res != nil {
				results = append(results, *res)
			}
		}
	}

	now := time.Now()
	runID := core.RunID(m.benchmark.Name(), strategyID, now)
	output := &RunOutput{
		RunID:            runID,
		Timestamp:        now.Format(time.RFC3339),
		Benchmark:        m.benchmark.Name(),
		Strategy:         strategyID,
		Summary:          summarize(results),
		Results:          results,
		EvolutionSummary: tallyEvolution(results),
	}

	if err := m.sink.SaveResult(runID, output); err != nil {
		slog.Error("Failed to persist run results", "run_id", runID, "error", err)
	}

	slog.Info("Evaluation run finished",
		"run_id", runID,
		"questions", output.Summary.TotalQuestions,
		"simulated_accuracy", output.Summary.SimulatedAccuracy,
		"dual_accuracy", output.Summary.DualAccuracy,
		"total_tokens", output.Summary.TokenUsage.TotalTokens)

	return runID, output, nil
}

// RunMany evaluates several strategies concurrently and writes a comparison
// report across them. A strategy that fails outright is logged and omitted.
func (m *Manager) RunMany(ctx context.Context, strategyIDs []string, maxQuestions int) (map[string]*RunOutput, error) {
	for _, id := range strategyIDs {
		if !strategy.Valid(id) {
			return nil, fmt.Errorf("unknown strategy %q", id)
		}
	}

	outputs := make(map[string]*RunOutput, len(strategyIDs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, id := range strategyIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, out, err := m.Run(ctx, id, maxQuestions)
			if err != nil {
				slog.Error("Strategy run failed", "strategy", id, "error", err)
				return
			}
			mu.Lock()
			outputs[id] = out
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	if len(outputs) == 0 {
		return nil, fmt.Errorf("all strategy runs failed")
	}

	report := BuildComparison(m.benchmark.Name(), outputs)
	name := fmt.Sprintf("%s_%d", strings.ToLower(m.benchmark.Name()), time.Now().Unix())
	if err := m.sink.SaveComparison(name, report); err != nil {
		slog.Error("Failed to persist comparison report", "name", name, "error", err)
	}

	return outputs, nil
}

// processQuestion runs both protocols for one question, grades and classifies
// the outcomes, and persists the conversation log.
func (m *Manager) processQuestion(ctx context.Context, eng *engine.Engine, strategyID string, q benchmark.Question) (*QuestionResult, error) {
	logID := core.LogID(m.benchmark.Name(), q.ID, strategyID, time.Now())
	format := m.benchmark.AnswerFormat()

	var simRes, dualRes *engine.Result
	var simErr, dualErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		simRes, simErr = eng.RunSimulated(ctx, q.ID, q.Text)
	}()
	go func() {
		defer wg.Done()
		dualRes, dualErr = eng.RunDual(ctx, q.ID, q.Text)
	}()
	wg.Wait()

	if simErr != nil {
		return nil, fmt.Errorf("simulated dialogue: %w", simErr)
	}
	if dualErr != nil {
		return nil, fmt.Errorf("dual dialogue: %w", dualErr)
	}

	simAnswer := finalAnswer(simRes.Transcript, format)
	dualAnswer := finalAnswer(dualRes.Transcript, format)

	simEvo := evolution.Analyze(simRes.Transcript, q.GroundTruth, format, m.benchmark.Evaluate)
	dualEvo := evolution.Analyze(dualRes.Transcript, q.GroundTruth, format, m.benchmark.Evaluate)

	result := &QuestionResult{
		QuestionID:  q.ID,
		Question:    q.Text,
		GroundTruth: q.GroundTruth,
		Category:    orUnknown(q.Category),
		Difficulty:  orUnknown(q.Difficulty),
		Simulated: ModeResult{
			Answer:    simAnswer,
			Correct:   m.benchmark.Evaluate(simAnswer, q.GroundTruth),
			Time:      simRes.Elapsed,
			Tokens:    simRes.Usage,
			LogID:     logID,
			Evolution: PatternPair{simEvo.AgreementPattern, simEvo.CorrectnessPattern},
		},
		Dual: ModeResult{
			Answer:    dualAnswer,
			Correct:   m.benchmark.Evaluate(dualAnswer, q.GroundTruth),
			Time:      dualRes.Elapsed,
			Tokens:    dualRes.Usage,
			LogID:     logID,
			Evolution: PatternPair{dualEvo.AgreementPattern, dualEvo.CorrectnessPattern},
		},
	}

	log := conversationLog{
		QuestionID:         q.ID,
		Question:           q.Text,
		GroundTruth:        q.GroundTruth,
		Strategy:           strategyID,
		Benchmark:          m.benchmark.Name(),
		SimulatedMessages:  simRes.Transcript,
		DualMessages:       dualRes.Transcript,
		SimulatedEvolution: &simEvo,
		DualEvolution:      &dualEvo,
	}
	if err := m.sink.SaveLog(logID, log); err != nil {
		slog.Warn("Failed to persist conversation log", "log_id", logID, "error", err)
	}

	return result, nil
}

// finalAnswer scans a transcript from the last turn backwards for the first
// extractable answer.
func finalAnswer(transcript []core.Message, format core.AnswerFormat) string {
	if answer := extract.FromTranscript(transcript, format); answer != "" {
		return answer
	}
	return NoFinalAnswer
}

func summarize(results []QuestionResult) Summary {
	s := Summary{TotalQuestions: len(results)}
	for _, r := range results {
		if r.Simulated.Correct {
			s.SimulatedCorrect++
		}
		if r.Dual.Correct {
			s.DualCorrect++
		}
		s.TokenUsage.SimulatedTokens += r.Simulated.Tokens.TotalTokens
		s.TokenUsage.DualTokens += r.Dual.Tokens.TotalTokens
	}
	s.TokenUsage.TotalTokens = s.TokenUsage.SimulatedTokens + s.TokenUsage.DualTokens
	if s.TotalQuestions > 0 {
		s.SimulatedAccuracy = float64(s.SimulatedCorrect) / float64(s.TotalQuestions)
		s.DualAccuracy = float64(s.DualCorrect) / float64(s.TotalQuestions)
	}
	return s
}

func tallyEvolution(results []QuestionResult) *evolution.Summary {
	s := evolution.NewSummary()
	for _, r := range results {
		s.Record(core.ModeSimulated, evolution.Analysis{
			AgreementPattern:   r.Simulated.Evolution.AgreementPattern,
			CorrectnessPattern: r.Simulated.Evolution.CorrectnessPattern,
		})
		s.Record(core.ModeDual, evolution.Analysis{
			AgreementPattern:   r.Dual.Evolution.AgreementPattern,
			CorrectnessPattern: r.Dual.Evolution.CorrectnessPattern,
		})
	}
	return s
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
