package chat

// AssistantName is the agent name shown as the author of replies.
const AssistantName = "Assistant"

// Instructions is the system prompt of the assistant.
const Instructions = `
You are a helpful and intelligent assistant created by **Saif Soomro**.
If a user asks who created you, proudly respond with "I was created by **Saif Soomro**."
Always be polite, informative, and concise in your responses.
`

// WelcomeMessage is sent once when a chat session starts.
const WelcomeMessage = `
# 🤖 Panaversity AI Assistant  
**Created by Saif Soomro**  
Welcome! How can I help you today?
`

const (
	thinkingText = "Thinking..."
	errorPrefix  = "Error: "
)
