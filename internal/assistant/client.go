package assistant

import (
	"context"
)

// Reply is the outcome of a single assistant exchange.
type Reply struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CostUSD          float64
}

// Client is the hosted assistant service. Retrieval over the knowledge
// base happens inside the service; callers only exchange messages.
type Client interface {
	// CreateThread provisions a fresh remote conversation thread.
	CreateThread(ctx context.Context) (string, error)

	// VerifyThread reports whether the thread still exists remotely.
	VerifyThread(ctx context.Context, threadID string) bool

	// SendMessage appends the message to the thread, runs the assistant
	// and returns its reply. The call is made at most once; callers own
	// any retry policy.
	SendMessage(ctx context.Context, threadID, message string) (*Reply, error)
}

// Titler generates a short display title from the opening message of a
// conversation.
type Titler interface {
	Title(ctx context.Context, firstMessage string) (string, error)
}
