// Package llm defines the Provider interface for generative-text backends.
//
// A provider wraps a remote or local model API (OpenAI, Gemini, Anthropic, a local
// Ollama instance, ...) and exposes the single request/response call the coaching
// gateway needs. Coaching is drafted in one shot after a recording ends, so there
// is no streaming or tool-calling surface here.
//
// Implementors must be safe for concurrent use and must return promptly when the
// supplied context is cancelled.
package llm

import "context"

// Role values accepted in [Message.Role].
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in the prompt conversation.
type Message struct {
	// Role is one of RoleSystem, RoleUser or RoleAssistant.
	Role string

	// Content is the text content of the message.
	Content string
}

// Usage holds token accounting information returned by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the model needs to produce a reply.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// SystemPrompt is an optional high-priority instruction sent before Messages.
	SystemPrompt string

	// Messages is the ordered prompt conversation.
	Messages []Message

	// Temperature controls output randomness in [0.0, 2.0]. Zero leaves the
	// provider default in place.
	Temperature float64

	// MaxTokens caps the number of generated tokens. Zero means provider default.
	MaxTokens int

	// JSONMode asks the backend to constrain output to a single JSON object.
	// Providers without native support ignore it; callers must still validate.
	JSONMode bool
}

// CompletionResponse is the full reply of a completion call.
type CompletionResponse struct {
	// Content is the text of the model's reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any generative-text backend.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// Returns an error if the request fails or ctx is cancelled first.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
