// Package engine drives the turn-taking dialogue protocols between two
// agents backed by a single model gateway. It implements both the simulated
// protocol (one shared context, alternating role directives) and the
// dual-agent protocol (two independent histories cross-fed as user turns),
// with convergence early-stop and final-agent designation.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/disputalabs/disputa/internal/core"
	"github.com/disputalabs/disputa/internal/extract"
	"github.com/disputalabs/disputa/internal/gateway"
	"github.com/disputalabs/disputa/internal/strategy"
)

// MaxTurns caps dialogue length regardless of strategy configuration, to
// bound cost per question.
const MaxTurns = 5

// TurnCallback is invoked once per completed turn for live display. It runs
// on its own goroutine; a slow or panicking consumer cannot affect the
// dialogue.
type TurnCallback func(mode core.Mode, agent, content string)

// Options configure an Engine beyond its required collaborators.
type Options struct {
	// Callback receives completed turns for live display. Optional.
	Callback TurnCallback

	// Pacing is the delay between turns, a courtesy to rate-limited APIs.
	Pacing time.Duration
}

// Engine runs dialogues for one strategy/benchmark pairing.
type Engine struct {
	gateway  gateway.Gateway
	strategy strategy.Strategy
	format   core.AnswerFormat
	callback TurnCallback
	pacing   time.Duration
}

// Result is one completed (or partially completed) dialogue run. Populated
// turn by turn, immutable once returned.
type Result struct {
	Mode       core.Mode        `json:"mode"`
	QuestionID string           `json:"question_id"`
	FinalAgent string           `json:"final_agent"`
	Transcript []core.Message   `json:"transcript"`
	Elapsed    float64          `json:"time"`
	Usage      core.TokenUsage  `json:"tokens"`
	Converged  bool             `json:"converged"`
}

// New creates a dialogue engine. The strategy should already carry the
// benchmark's answer-format augmentation.
func New(gw gateway.Gateway, strat strategy.Strategy, format core.AnswerFormat, optFns ...func(o *Options)) *Engine {
	opts := Options{Pacing: time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{
		gateway:  gw,
		strategy: strat,
		format:   format,
		callback: opts.Callback,
		pacing:   opts.Pacing,
	}
}

// turnCount returns the effective number of turns for this engine's strategy.
func (e *Engine) turnCount() int {
	n := e.strategy.NumTurns
	if n <= 0 || n > MaxTurns {
		n = MaxTurns
	}
	return n
}

// speakerFor returns the agent acting on a 0-indexed turn.
func speakerFor(turn int) string {
	if turn%2 == 0 {
		return core.AgentA
	}
	return core.AgentB
}

// RunSimulated executes the simulated protocol: a single shared transcript
// in which the model plays both agents, steered by per-turn directives.
func (e *Engine) RunSimulated(ctx context.Context, questionID, question string) (*Result, error) {
	start := time.Now()
	finalAgent := core.FinalAgentFor(questionID)
	turns := e.turnCount()

	result := &Result{
		Mode:       core.ModeSimulated,
		QuestionID: questionID,
		FinalAgent: finalAgent,
		Transcript: []core.Message{{Role: core.RoleUser, Content: question}},
	}

	messages := []core.Message{
		{Role: core.RoleSystem, Content: e.simulatedSystemPrompt(finalAgent)},
		{Role: core.RoleUser, Content: question},
	}

	prevAnswer := ""
	for turn := 0; turn < turns; turn++ {
		role := speakerFor(turn)
		directive := simulatedDirective(role, finalAgent, turn, turns)

		prompt := append(append([]core.Message(nil), messages...), core.Message{Role: core.RoleUser, Content: directive})
		text, usage, err := e.gateway.Generate(ctx, prompt, e.strategy.Temperature, e.strategy.MaxTokens)
		if err != nil {
			result.Elapsed = time.Since(start).Seconds()
			return result, fmt.Errorf("simulated turn %d: %w", turn+1, err)
		}
		result.Usage.Add(usage)

		content := sanitizeSimulatedResponse(text, role)
		messages = append(messages, core.Message{Role: core.RoleAssistant, Content: content})
		result.Transcript = append(result.Transcript, core.Message{
			Role:    core.RoleAssistant,
			Agent:   role,
			Content: role + ": " + content,
		})
		e.notify(core.ModeSimulated, role, content)

		slog.Debug("Simulated turn completed", "question_id", questionID, "turn", turn+1, "agent", role)

		answer := extract.Extract(content, e.format)
		if turn < turns-1 && answer != "" && answer == prevAnswer {
			result.Transcript = append(result.Transcript, convergenceNotice(answer, turn+1))
			result.Converged = true
			break
		}
		prevAnswer = answer

		if turn < turns-1 {
			if err := e.pause(ctx); err != nil {
				result.Elapsed = time.Since(start).Seconds()
				return result, err
			}
		}
	}

	result.Elapsed = time.Since(start).Seconds()
	return result, nil
}

// RunDual executes the dual-agent protocol: two independent histories, each
// agent seeing the other's output as an incoming peer message.
func (e *Engine) RunDual(ctx context.Context, questionID, question string) (*Result, error) {
	start := time.Now()
	finalAgent := core.FinalAgentFor(questionID)
	turns := e.turnCount()

	result := &Result{
		Mode:       core.ModeDual,
		QuestionID: questionID,
		FinalAgent: finalAgent,
		Transcript: []core.Message{{Role: core.RoleUser, Content: question}},
	}

	histories := map[string][]core.Message{
		core.AgentA: {
			{Role: core.RoleSystem, Content: dualSystemPrompt(e.strategy.PromptA)},
			{Role: core.RoleUser, Content: question},
		},
		core.AgentB: {
			{Role: core.RoleSystem, Content: dualSystemPrompt(e.strategy.PromptB)},
			{Role: core.RoleUser, Content: question},
		},
	}

	prevAnswer := ""
	for turn := 0; turn < turns; turn++ {
		role := speakerFor(turn)
		other := core.AgentB
		if role == core.AgentB {
			other = core.AgentA
		}

		// Each agent's last speaking turn carries the final-turn hint. The
		// hint stays in the designated final agent's history; for the other
		// agent it is only visible during the call.
		hinted := turn >= turns-2
		if hinted {
			histories[role] = append(histories[role], core.Message{Role: core.RoleUser, Content: finalTurnHint})
		}

		text, usage, err := e.gateway.Generate(ctx, histories[role], e.strategy.Temperature, e.strategy.MaxTokens)
		if hinted && role != finalAgent {
			histories[role] = histories[role][:len(histories[role])-1]
		}
		if err != nil {
			result.Elapsed = time.Since(start).Seconds()
			return result, fmt.Errorf("dual turn %d: %w", turn+1, err)
		}
		result.Usage.Add(usage)

		histories[role] = append(histories[role], core.Message{Role: core.RoleAssistant, Content: text})
		histories[other] = append(histories[other], core.Message{Role: core.RoleUser, Content: role + ": " + text})
		result.Transcript = append(result.Transcript, core.Message{
			Role:    core.RoleAssistant,
			Agent:   role,
			Content: role + ": " + text,
		})
		e.notify(core.ModeDual, role, text)

		slog.Debug("Dual turn completed", "question_id", questionID, "turn", turn+1, "agent", role)

		answer := extract.Extract(text, e.format)
		if turn < turns-1 && answer != "" && answer == prevAnswer {
			result.Transcript = append(result.Transcript, convergenceNotice(answer, turn+1))
			result.Converged = true
			break
		}
		prevAnswer = answer

		if turn < turns-1 {
			if err := e.pause(ctx); err != nil {
				result.Elapsed = time.Since(start).Seconds()
				return result, err
			}
		}
	}

	result.Elapsed = time.Since(start).Seconds()
	return result, nil
}

const finalTurnHint = "(final turn) This is your final response. Conclude with a line beginning 'Final Answer:'."

// simulatedSystemPrompt composes the shared system message embedding both
// role templates plus the convergence and final-answer instructions.
func (e *Engine) simulatedSystemPrompt(finalAgent string) string {
	return "You are a helpful assistant who will simulate a dialogue between two agents - Agent A and " +
		"Agent B - who are discussing and challenging each other's reasoning about the problem. For each " +
		"turn, you will generate only the current agent's contribution, never both agents at once. Your " +
		"responses should be concise and focus on logical reasoning. In this dialogue, Agent A should " +
		"take the position described as: \"" + e.strategy.PromptA + "\", while Agent B should act as: \"" +
		e.strategy.PromptB + "\". If both agents state the same answer in consecutive turns the dialogue " +
		"ends. At the end of the dialogue, " + finalAgent + " concludes with a final statement that " +
		"starts with 'Final Answer:' summarizing the agreed solution."
}

// simulatedDirective builds the user-role steering message for one turn.
func simulatedDirective(role, finalAgent string, turn, turns int) string {
	switch {
	case turn == 0:
		return fmt.Sprintf("Speak only as %s. Introduce your position on the problem.", role)
	case turn == turns-1:
		return fmt.Sprintf("(final turn) Speak only as %s. %s must end with a line beginning 'Final Answer:'.", role, finalAgent)
	default:
		return fmt.Sprintf("Now switch to %s. Respond to the previous turn, speaking only as %s.", role, role)
	}
}

var speakerSwitchRe = regexp.MustCompile(`(?m)^\s*(Agent [AB]):`)

// sanitizeSimulatedResponse strips leaked role labels and truncates any
// attempt by the model to simulate the other agent's turn in the same
// response. The returned content carries no speaker prefix.
func sanitizeSimulatedResponse(text, role string) string {
	content := strings.TrimSpace(text)

	// Drop a leading self-label; the engine attaches the prefix itself.
	if tagged, body := core.ParseAgentPrefix(content); tagged != "" {
		if tagged != role {
			// The model opened as the wrong agent; keep the body but treat
			// any further switch below as the cutoff.
			slog.Warn("Response opened with wrong speaker label", "want", role, "got", tagged)
		}
		content = body
	}

	// Truncate at the first mid-response speaker switch.
	for _, loc := range speakerSwitchRe.FindAllStringSubmatchIndex(content, -1) {
		tag := content[loc[2]:loc[3]]
		if tag != role {
			content = strings.TrimSpace(content[:loc[0]])
			break
		}
	}

	return content
}

// convergenceNotice is the synthetic transcript entry appended when the
// early-stop rule fires.
func convergenceNotice(answer string, turn int) core.Message {
	return core.Message{
		Role:    core.RoleSystem,
		Agent:   core.AgentSystem,
		Content: fmt.Sprintf("Agents converged on answer %q at turn %d; dialogue stopped early.", answer, turn),
	}
}

// notify dispatches a completed turn to the callback without letting the
// consumer block or crash the dialogue.
func (e *Engine) notify(mode core.Mode, agent, content string) {
	if e.callback == nil {
		return
	}
	cb := e.callback
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Turn callback panicked", "recover", r)
			}
		}()
		cb(mode, agent, content)
	}()
}

// pause waits the inter-turn pacing delay, honoring cancellation.
func (e *Engine) pause(ctx context.Context) error {
	if e.pacing <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(e.pacing):
		return nil
	}
}

// dualSystemPrompt augments a role prompt with the generic dual-protocol
// conduct instruction.
func dualSystemPrompt(rolePrompt string) string {
	return rolePrompt + "\n\nStay concise and respond only as your own role. Messages prefixed with the " +
		"other agent's name are from your counterpart in this dialogue."
}
