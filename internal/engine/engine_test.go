package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/disputalabs/disputa/internal/core"
	"github.com/disputalabs/disputa/internal/gateway"
	"github.com/disputalabs/disputa/internal/strategy"
)

func testStrategy() strategy.Strategy {
	return strategy.Strategy{
		ID:          "debate",
		PromptA:     "Argue for your initial solution.",
		PromptB:     "Challenge the proposed solution.",
		Temperature: 0.7,
		MaxTokens:   500,
		NumTurns:    5,
	}
}

func noPacing(o *Options) { o.Pacing = 0 }

func TestSimulatedConvergenceStopsEarly(t *testing.T) {
	mock := gateway.NewMock(
		"I believe the answer is clear. Final Answer: B",
		"I agree with that reasoning. Final Answer: B",
	)
	e := New(mock, testStrategy(), core.FormatLetter, noPacing)

	res, err := e.RunSimulated(context.Background(), "4", "Which option?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Converged {
		t.Error("expected convergence")
	}
	if mock.CallCount() != 2 {
		t.Errorf("gateway calls = %d, want 2", mock.CallCount())
	}

	// Transcript: question, two agent turns, convergence notice.
	if len(res.Transcript) != 4 {
		t.Fatalf("transcript length = %d, want 4", len(res.Transcript))
	}
	last := res.Transcript[len(res.Transcript)-1]
	if last.Role != core.RoleSystem || last.Agent != core.AgentSystem {
		t.Errorf("last entry = %+v, want system convergence notice", last)
	}
	if !strings.Contains(last.Content, "converged") {
		t.Errorf("notice content = %q", last.Content)
	}
}

func TestSimulatedNoConvergenceWithoutAnswers(t *testing.T) {
	mock := gateway.NewMock("Let me think about this more.")
	e := New(mock, testStrategy(), core.FormatLetter, noPacing)

	res, err := e.RunSimulated(context.Background(), "4", "Which option?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Converged {
		t.Error("identical answerless turns must not converge")
	}
	if mock.CallCount() != 5 {
		t.Errorf("gateway calls = %d, want 5", mock.CallCount())
	}
}

func TestTurnCapOverridesStrategy(t *testing.T) {
	strat := testStrategy()
	strat.NumTurns = 12

	mock := gateway.NewMock("Still reasoning, no conclusion yet.")
	e := New(mock, strat, core.FormatLetter, noPacing)

	if _, err := e.RunSimulated(context.Background(), "4", "Which option?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.CallCount() != MaxTurns {
		t.Errorf("gateway calls = %d, want %d", mock.CallCount(), MaxTurns)
	}
}

func TestFinalAgentParity(t *testing.T) {
	mock := gateway.NewMock("No answer here.")

	for _, tt := range []struct {
		id   string
		want string
	}{
		{"4", core.AgentA},
		{"5", core.AgentB},
	} {
		e := New(mock, testStrategy(), core.FormatLetter, noPacing)
		res, err := e.RunSimulated(context.Background(), tt.id, "q")
		if err != nil {
			t.Fatalf("id %s: unexpected error: %v", tt.id, err)
		}
		if res.FinalAgent != tt.want {
			t.Errorf("id %s: final agent = %s, want %s", tt.id, res.FinalAgent, tt.want)
		}
	}
}

func TestSanitizeSimulatedResponse(t *testing.T) {
	tests := []struct {
		name string
		text string
		role string
		want string
	}{
		{
			"PlainResponse",
			"The answer follows from the premises.",
			core.AgentA,
			"The answer follows from the premises.",
		},
		{
			"SelfLabelStripped",
			"Agent A: The answer follows from the premises.",
			core.AgentA,
			"The answer follows from the premises.",
		},
		{
			"PeerTurnTruncated",
			"Agent A: My position stands.\nAgent B: I disagree entirely.",
			core.AgentA,
			"My position stands.",
		},
		{
			"MidTextSwitchTruncated",
			"My position stands.\nAgent B: But consider this.",
			core.AgentA,
			"My position stands.",
		},
		{
			"OwnLabelMidTextKept",
			"First point.\nAgent A: Second point.",
			core.AgentA,
			"First point.\nAgent A: Second point.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeSimulatedResponse(tt.text, tt.role); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSimulatedGatewayFailureReturnsPartialTranscript(t *testing.T) {
	boom := errors.New("boom")
	mock := gateway.NewMock("First thoughts on the problem.").FailAt(1, boom)
	e := New(mock, testStrategy(), core.FormatLetter, noPacing)

	res, err := e.RunSimulated(context.Background(), "4", "q")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped boom", err)
	}
	// Question plus the one completed turn.
	if len(res.Transcript) != 2 {
		t.Errorf("transcript length = %d, want 2", len(res.Transcript))
	}
}

func TestDualHistoriesCrossFeed(t *testing.T) {
	mock := gateway.NewMock(
		"Opening argument from A.",
		"Counterpoint from B.",
		"Rebuttal from A.",
	)
	strat := testStrategy()
	strat.NumTurns = 3
	e := New(mock, strat, core.FormatLetter, noPacing)

	res, err := e.RunDual(context.Background(), "4", "What is true?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Transcript) != 4 {
		t.Fatalf("transcript length = %d, want 4", len(res.Transcript))
	}
	if res.Transcript[1].Content != "Agent A: Opening argument from A." {
		t.Errorf("first turn = %q", res.Transcript[1].Content)
	}

	// Agent B's call must see A's output as an incoming user message.
	bCall := mock.Calls[1]
	found := false
	for _, m := range bCall {
		if m.Role == core.RoleUser && m.Content == "Agent A: Opening argument from A." {
			found = true
		}
	}
	if !found {
		t.Error("Agent B history missing cross-fed message from Agent A")
	}

	// A's own history keeps its response as assistant, never user.
	aCall := mock.Calls[2]
	for _, m := range aCall {
		if m.Role == core.RoleUser && strings.HasPrefix(m.Content, "Agent A:") {
			t.Error("Agent A history must not contain its own turn as a user message")
		}
	}
}

func TestDualFinalTurnHint(t *testing.T) {
	mock := gateway.NewMock("No conclusion.")
	strat := testStrategy()
	strat.NumTurns = 3
	e := New(mock, strat, core.FormatLetter, noPacing)

	if _, err := e.RunDual(context.Background(), "4", "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hasHint := func(msgs []core.Message) bool {
		for _, m := range msgs {
			if m.Role == core.RoleUser && strings.Contains(m.Content, "(final turn)") {
				return true
			}
		}
		return false
	}

	if hasHint(mock.Calls[0]) {
		t.Error("turn 1 should not carry the final-turn hint")
	}
	if !hasHint(mock.Calls[1]) {
		t.Error("Agent B's last speaking turn should carry the hint")
	}
	if !hasHint(mock.Calls[2]) {
		t.Error("final turn should carry the hint")
	}
}

func TestDualUsageAccumulates(t *testing.T) {
	mock := gateway.NewMock("No conclusion.")
	strat := testStrategy()
	strat.NumTurns = 2
	e := New(mock, strat, core.FormatLetter, noPacing)

	res, err := e.RunDual(context.Background(), "4", "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Usage.TotalTokens != 30 {
		t.Errorf("total tokens = %d, want 30", res.Usage.TotalTokens)
	}
}

func TestCallbackReceivesTurns(t *testing.T) {
	mock := gateway.NewMock("Turn content.")
	strat := testStrategy()
	strat.NumTurns = 2

	turns := make(chan string, 4)
	e := New(mock, strat, core.FormatLetter, noPacing, func(o *Options) {
		o.Callback = func(mode core.Mode, agent, content string) {
			turns <- agent
		}
	})

	if _, err := e.RunSimulated(context.Background(), "4", "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[string]bool)
	for i := 0; i < 2; i++ {
		select {
		case agent := <-turns:
			seen[agent] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for callback")
		}
	}
	if !seen[core.AgentA] || !seen[core.AgentB] {
		t.Errorf("callback agents = %v, want both agents", seen)
	}
}

func TestPacingHonorsCancellation(t *testing.T) {
	mock := gateway.NewMock("No conclusion.")
	e := New(mock, testStrategy(), core.FormatLetter, func(o *Options) {
		o.Pacing = time.Minute
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := e.RunSimulated(ctx, "4", "q")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("cancellation did not interrupt pacing delay")
	}
}
