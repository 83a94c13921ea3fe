package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/disputalabs/disputa/internal/core"
)

// MockGateway replays scripted responses for tests and offline demo runs.
// Responses are consumed in order and cycle when exhausted; scripted errors
// fire by call index.
type MockGateway struct {
	mu        sync.Mutex
	responses []string
	errAt     map[int]error
	calls     int

	// Calls records the transcripts passed to Generate, for assertions.
	Calls [][]core.Message
}

// NewMock creates a mock gateway with the given scripted responses.
func NewMock(responses ...string) *MockGateway {
	return &MockGateway{responses: responses, errAt: make(map[int]error)}
}

// FailAt makes the nth call (0-based) return err instead of a response.
func (g *MockGateway) FailAt(n int, err error) *MockGateway {
	g.errAt[n] = err
	return g
}

// Name identifies the gateway for logging.
func (g *MockGateway) Name() string { return "mock" }

// CallCount returns how many times Generate was invoked.
func (g *MockGateway) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// Generate implements Gateway with scripted output. Token usage is a fixed
// nominal amount per call so accounting paths stay exercised.
func (g *MockGateway) Generate(ctx context.Context, msgs []core.Message, temperature float64, maxTokens int) (string, core.TokenUsage, error) {
	if err := ctx.Err(); err != nil {
		return "", core.TokenUsage{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.calls
	g.calls++
	g.Calls = append(g.Calls, append([]core.Message(nil), msgs...))

	if err, ok := g.errAt[n]; ok {
		return "", core.TokenUsage{}, &Error{Gateway: g.Name(), Message: "scripted failure", Err: err}
	}
	if len(g.responses) == 0 {
		return fmt.Sprintf("Mock response %d", n), core.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, nil
	}

	resp := g.responses[n%len(g.responses)]
	return resp, core.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, nil
}
