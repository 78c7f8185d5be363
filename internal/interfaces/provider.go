package interfaces

import "context"

// Message is one turn in a reasoning conversation.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// GenerateRequest is the normalized reasoning request shared by every
// provider variant.
type GenerateRequest struct {
	Messages          []Message
	SystemInstruction string
	Temperature       float32
	MaxTokens         int
	JSONMode          bool
}

// GenerateResponse is the normalized reasoning response.
type GenerateResponse struct {
	Text     string
	Provider string
	Model    string
}

// ReasoningProvider generates text. Native errors must be mapped into the
// recoverable/non-recoverable taxonomy before returning.
type ReasoningProvider interface {
	Name() string
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// EmbeddingProvider converts text into a vector.
type EmbeddingProvider interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchResult is one hit from a web-search provider.
type SearchResult struct {
	URL   string
	Title string
}

// SearchProvider queries the live web for candidate URLs.
type SearchProvider interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}
