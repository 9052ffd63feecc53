package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UI renders messages for one chat session.
type UI interface {
	// SendMessage shows a new message.
	SendMessage(ctx context.Context, msg Message) error
	// UpdateMessage replaces the content of a message already shown.
	UpdateMessage(ctx context.Context, msg Message) error
}

// Message is a message shown in the chat UI. It is created with Send and may
// be changed afterwards with Update.
type Message struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`

	ui UI
}

// NewMessage creates an unsent message bound to ui.
func NewMessage(ui UI, author, content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Author:    author,
		Content:   content,
		CreatedAt: time.Now().UTC(),
		ui:        ui,
	}
}

// Send shows the message in the UI.
func (m *Message) Send(ctx context.Context) error {
	return m.ui.SendMessage(ctx, *m)
}

// Update pushes the message's current content to the UI.
func (m *Message) Update(ctx context.Context) error {
	return m.ui.UpdateMessage(ctx, *m)
}
