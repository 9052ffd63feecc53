package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/saifsoomro/gemini-chat-assistant/internal/agent"
	"github.com/saifsoomro/gemini-chat-assistant/internal/config"
	"github.com/saifsoomro/gemini-chat-assistant/internal/domain"
	"github.com/saifsoomro/gemini-chat-assistant/internal/llm"
)

// ProviderFactory builds the model client for a new session.
type ProviderFactory func(cfg config.GeminiConfig) llm.Provider

// Assistant starts chat sessions and answers their messages.
type Assistant struct {
	cfg         config.GeminiConfig
	newProvider ProviderFactory
	runner      agent.Processor
	logger      *slog.Logger
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithProviderFactory replaces the OpenAI-compatible client factory.
func WithProviderFactory(f ProviderFactory) Option {
	return func(a *Assistant) {
		a.newProvider = f
	}
}

// WithProcessor replaces the agent runner.
func WithProcessor(p agent.Processor) Option {
	return func(a *Assistant) {
		a.runner = p
	}
}

// WithLogger sets the logger used for conversation logs.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) {
		a.logger = logger
	}
}

// NewAssistant creates an assistant for the given endpoint.
// It fails with config.ErrMissingAPIKey when no credential is configured.
func NewAssistant(cfg config.GeminiConfig, opts ...Option) (*Assistant, error) {
	if cfg.APIKey == "" {
		return nil, config.ErrMissingAPIKey
	}

	a := &Assistant{
		cfg:         cfg,
		newProvider: newOpenAIProvider,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.runner == nil {
		a.runner = agent.NewRunner(a.logger)
	}
	return a, nil
}

func newOpenAIProvider(cfg config.GeminiConfig) llm.Provider {
	return llm.NewOpenAIProvider(llm.OpenAIConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
	})
}

// ModelName returns the model every session talks to.
func (a *Assistant) ModelName() string {
	return a.cfg.Model
}

// StartSession builds the session state for a new chat and sends the
// welcome message.
func (a *Assistant) StartSession(ctx context.Context, ui UI, userID string) (*Session, error) {
	provider := a.newProvider(a.cfg)
	model := llm.NewModel(a.cfg.Model, provider)

	runCfg := agent.RunConfig{
		Model:           model,
		Provider:        provider,
		TracingDisabled: !a.cfg.Tracing,
	}

	assistant := &agent.Agent{
		Name:         AssistantName,
		Instructions: Instructions,
		Model:        model,
	}

	sess := newSession(userID, ui, runCfg, assistant)

	if err := NewMessage(ui, AssistantName, WelcomeMessage).Send(ctx); err != nil {
		return nil, fmt.Errorf("send welcome message: %w", err)
	}

	a.logger.Info("Chat session started",
		"session_id", sess.ID,
		"user_id", userID,
		"model", model.Name,
	)
	return sess, nil
}

// HandleMessage answers one user message. The reply replaces a placeholder
// message. A failed agent run is shown to the user as "Error: ..." and keeps
// the user's turn in the history; it is not returned. Only UI failures are
// returned.
func (a *Assistant) HandleMessage(ctx context.Context, sess *Session, content string) error {
	sess.History = append(sess.History, domain.UserMessage(content))

	msg := NewMessage(sess.ui, sess.Agent.Name, thinkingText)
	if err := msg.Send(ctx); err != nil {
		return fmt.Errorf("send placeholder: %w", err)
	}

	a.logger.Info("Calling agent with context",
		"session_id", sess.ID,
		"history", sess.History,
	)

	result, err := a.runner.Run(ctx, sess.Agent, sess.History, sess.Config)
	if err != nil {
		a.logger.Error("Agent run failed", "session_id", sess.ID, "error", err)
		msg.Content = errorPrefix + err.Error()
		if updateErr := msg.Update(ctx); updateErr != nil {
			return fmt.Errorf("update message: %w", updateErr)
		}
		return nil
	}

	sess.History = result.ToInputList()
	msg.Content = result.FinalOutput
	if err := msg.Update(ctx); err != nil {
		return fmt.Errorf("update message: %w", err)
	}

	a.logger.Info("Chat turn completed",
		"session_id", sess.ID,
		"user", content,
		"assistant", result.FinalOutput,
		"history_len", len(sess.History),
	)
	return nil
}
