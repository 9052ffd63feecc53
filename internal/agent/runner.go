package agent

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/saifsoomro/gemini-chat-assistant/internal/domain"
	"github.com/saifsoomro/gemini-chat-assistant/internal/llm"
)

var (
	// ErrNoAgent is returned when Run is called without an agent.
	ErrNoAgent = errors.New("no agent to run")
	// ErrNoModel is returned when neither the run config nor the agent names a model.
	ErrNoModel = errors.New("no model configured for agent")
)

// Runner executes single-turn agent runs.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a runner. A nil logger falls back to slog.Default().
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger}
}

// Run sends the agent's instructions and the full input history to the model
// and blocks until it answers.
func (r *Runner) Run(ctx context.Context, agent *Agent, input []domain.Message, cfg RunConfig) (*RunResult, error) {
	if agent == nil {
		return nil, ErrNoAgent
	}

	model, err := resolveModel(agent, cfg)
	if err != nil {
		return nil, err
	}

	input = domain.CloneHistory(input)
	start := time.Now()

	resp, err := model.Complete(ctx, agent.Instructions, input)
	if err != nil {
		// Returned unwrapped: the chat layer shows this text to the user.
		return nil, err
	}

	result := &RunResult{
		Input:       input,
		NewItems:    []domain.Message{resp.Message},
		FinalOutput: resp.Message.Content,
		LastAgent:   agent,
		Model:       model.Name,
		Usage:       resp.Usage,
		Duration:    time.Since(start),
	}

	if !cfg.TracingDisabled {
		r.logger.Debug("Agent run trace",
			"agent", agent.Name,
			"model", model.Name,
			"provider", model.Provider.Name(),
			"input_turns", len(input),
			"finish_reason", resp.FinishReason,
			"input_tokens", resp.Usage.InputTokens,
			"output_tokens", resp.Usage.OutputTokens,
			"duration_ms", result.Duration.Milliseconds(),
		)
	}

	return result, nil
}

func resolveModel(agent *Agent, cfg RunConfig) (*llm.Model, error) {
	model := cfg.Model
	if model == nil {
		model = agent.Model
	}
	if model == nil {
		return nil, ErrNoModel
	}
	if model.Provider == nil {
		if cfg.Provider == nil {
			return nil, ErrNoModel
		}
		// A bare model name is served by the run's provider.
		model = llm.NewModel(model.Name, cfg.Provider)
	}
	return model, nil
}
