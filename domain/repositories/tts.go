package repositories

import "context"

// TextToSpeech synthesizes speech audio for a piece of text, streamed in
// chunks as they arrive from the provider.
type TextToSpeech interface {
	ConvertTextToSpeech(ctx context.Context, text string) (<-chan []byte, error)
}

// SpeechPlayer plays raw audio through the local output device.
type SpeechPlayer interface {
	// Play blocks until the clip has been played or ctx is cancelled.
	Play(ctx context.Context, audio []byte) error
}
