package repositories

import (
	"context"

	"github.com/kaushikharsh99/MARK-2/domain/entities"
)

// ChatBackend is a direct LLM provider used instead of the WebSocket channel
// when the client runs without the MARK-2 inference backend.
type ChatBackend interface {
	// Reply generates an assistant reply for content given the conversation
	// history so far (not including content).
	Reply(ctx context.Context, history []entities.Message, content string) (string, error)
}
