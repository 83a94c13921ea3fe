// Package gateway wraps the remote chat-completion API behind a minimal
// interface. The rest of the system treats generation as a black box:
// messages in, text and token usage out, with transient failures retried a
// bounded number of times before the error surfaces to the caller.
package gateway

import (
	"context"
	"fmt"

	"github.com/disputalabs/disputa/internal/core"
)

// Gateway is the contract the dialogue engine depends on. Implementations
// must be safe for concurrent callers; each call is a self-contained request.
type Gateway interface {
	// Generate produces a completion for the given transcript. The returned
	// text is trimmed of surrounding whitespace.
	Generate(ctx context.Context, msgs []core.Message, temperature float64, maxTokens int) (string, core.TokenUsage, error)

	// Name identifies the gateway for logging.
	Name() string
}

// Error represents a failure talking to a model gateway.
type Error struct {
	Gateway string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s gateway error: %s (%v)", e.Gateway, e.Message, e.Err)
	}
	return fmt.Sprintf("%s gateway error: %s", e.Gateway, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}
