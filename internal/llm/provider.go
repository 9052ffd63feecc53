// Package llm talks to hosted chat-completions models.
package llm

import (
	"context"
	"errors"

	"github.com/saifsoomro/gemini-chat-assistant/internal/domain"
)

// ErrNoChoices is returned when the model answers without any choice.
var ErrNoChoices = errors.New("no response choices returned")

// Provider is a chat-completions backend.
type Provider interface {
	// Name identifies the provider in logs and traces.
	Name() string

	// Complete sends one chat-completions request and returns the first choice.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// CompletionRequest is a single chat-completions call.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	Messages     []domain.Message
}

// CompletionResponse is the first choice of a chat-completions call.
type CompletionResponse struct {
	Message      domain.Message
	Model        string
	FinishReason string
	Usage        Usage
}

// Usage reports token accounting for a call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Model is a model identifier bound to the provider that serves it.
type Model struct {
	Name     string
	Provider Provider
}

// NewModel binds a model name to a provider.
func NewModel(name string, provider Provider) *Model {
	return &Model{Name: name, Provider: provider}
}

// Complete runs a request against the bound provider with this model's name.
func (m *Model) Complete(ctx context.Context, systemPrompt string, messages []domain.Message) (*CompletionResponse, error) {
	return m.Provider.Complete(ctx, CompletionRequest{
		Model:        m.Name,
		SystemPrompt: systemPrompt,
		Messages:     messages,
	})
}
