package llm

import "context"

// Provider defines the interface for stateless chat backends. The caller
// resends the full message history on every call and receives one reply.
type Provider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// StatefulProvider creates conversations whose history is retained by the
// provider side between sends.
type StatefulProvider interface {
	// NewConversation opens a conversation primed with a system instruction
	// and optional seed history.
	NewConversation(ctx context.Context, system string, seed []Message) (Conversation, error)
}

// Conversation is an ongoing chat bound to one stateful context. A failed
// Send must leave the conversation usable for the next call.
type Conversation interface {
	Send(ctx context.Context, text string) (string, error)
}
