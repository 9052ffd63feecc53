package agent

import (
	"context"

	"github.com/saifsoomro/gemini-chat-assistant/internal/domain"
)

// Processor runs an agent over a conversation history.
// This interface is implemented by Runner.
type Processor interface {
	// Run sends input to the agent and waits for its final output.
	Run(ctx context.Context, agent *Agent, input []domain.Message, cfg RunConfig) (*RunResult, error)
}

// Ensure Runner implements Processor.
var _ Processor = (*Runner)(nil)
