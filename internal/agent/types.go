// Package agent describes assistants and runs them against a model.
package agent

import (
	"time"

	"github.com/saifsoomro/gemini-chat-assistant/internal/domain"
	"github.com/saifsoomro/gemini-chat-assistant/internal/llm"
)

// Agent is a static assistant descriptor.
type Agent struct {
	Name         string
	Instructions string
	Model        *llm.Model
}

// RunConfig is shared by every run in a session and never mutated after creation.
type RunConfig struct {
	// Model overrides the agent's own model when set.
	Model           *llm.Model
	Provider        llm.Provider
	TracingDisabled bool
}

// RunResult is the outcome of a successful run.
type RunResult struct {
	Input       []domain.Message
	NewItems    []domain.Message
	FinalOutput string
	LastAgent   *Agent
	Model       string
	Usage       llm.Usage
	Duration    time.Duration
}

// ToInputList returns the normalized transcript of the run: the input
// followed by every turn the run produced. It is the history to send next.
func (r *RunResult) ToInputList() []domain.Message {
	out := make([]domain.Message, 0, len(r.Input)+len(r.NewItems))
	out = append(out, r.Input...)
	out = append(out, r.NewItems...)
	return out
}
