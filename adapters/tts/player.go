package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"go.uber.org/zap"

	"github.com/kaushikharsh99/MARK-2/domain/repositories"
)

// Player plays finished audio clips through an external playback command
// (aplay by default). WAV input is passed through as-is; anything else is
// treated as raw 16 kHz signed 16-bit mono PCM.
type Player struct {
	command string
	logger  *zap.Logger
}

var _ repositories.SpeechPlayer = (*Player)(nil)

// NewPlayer creates a Player. An empty command selects aplay.
func NewPlayer(command string, logger *zap.Logger) *Player {
	if command == "" {
		command = "aplay"
	}
	return &Player{command: command, logger: logger}
}

// Play blocks until the clip finished playing or the context is cancelled.
func (p *Player) Play(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return fmt.Errorf("no audio to play")
	}

	args := []string{"-q"}
	if !bytes.HasPrefix(audio, []byte("RIFF")) {
		args = append(args, "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "raw")
	}
	args = append(args, "-")

	cmd := exec.CommandContext(ctx, p.command, args...)
	cmd.Stdin = bytes.NewReader(audio)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("playback failed: %w", err)
	}

	p.logger.Debug("Played audio clip", zap.Int("bytes", len(audio)))
	return nil
}
