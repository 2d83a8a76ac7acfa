package repositories

import "context"

// Transcriber abstracts speech recognition services. The clip is a complete
// WAV recording as flushed by the voice capture engine.
type Transcriber interface {
	// Transcribe converts a recorded clip to text.
	Transcribe(ctx context.Context, clip []byte) (string, error)
}
