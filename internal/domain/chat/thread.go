// Package chat holds the client-side conversation core: threads, messages
// and the per-user session state that ties them to the storage port.
package chat

import "time"

// Placeholder values for a freshly created thread, before the first user
// message sets the real title and preview.
const (
	NewThreadTitle   = "New Chat"
	NewThreadPreview = "Start a new conversation"
)

// Greeting is the assistant message emitted into every new thread.
const Greeting = "Hello! I'm your AI assistant. How can I help you today?"

// Thread is one conversation in a user's thread list. The ID is the
// creation timestamp in milliseconds; at most one thread per user is
// active at any time.
type Thread struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Preview   string    `json:"preview"`
	Timestamp time.Time `json:"timestamp"`
	IsActive  bool      `json:"isActive"`
	IsNew     bool      `json:"isNew"`
}
