// Package llm is the language-model collaborator: it produces the
// natural-language noble and adversary positions for a dilemma. The core
// never calls it — position text flows in from the outer shells only.
package llm

import "context"

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is a minimal chat-completion client.
type Client interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}
