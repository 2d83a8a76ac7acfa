package audio

import (
	"context"
	"fmt"
	"io"
	"math"
	"os/exec"
	"sync"

	"go.uber.org/zap"

	"github.com/kaushikharsh99/MARK-2/domain/repositories"
)

const (
	sampleRate = 16000
	fftSize    = 256
	bins       = fftSize / 2
)

// Source captures microphone audio through an external recorder process
// (arecord by default) emitting raw signed 16-bit little-endian mono PCM
// on stdout.
type Source struct {
	command string
	args    []string
	logger  *zap.Logger
}

// NewSource creates a Source using the given capture command. An empty
// command selects arecord with the pipeline's fixed format.
func NewSource(command string, logger *zap.Logger) *Source {
	if command == "" {
		command = "arecord"
	}
	return &Source{
		command: command,
		args: []string{
			"-q",
			"-f", "S16_LE",
			"-r", fmt.Sprint(sampleRate),
			"-c", "1",
			"-t", "raw",
		},
		logger: logger,
	}
}

// Open starts the recorder process. The returned session accumulates the
// full clip and keeps a sliding window of recent samples for spectrum
// frames.
func (s *Source) Open(ctx context.Context) (repositories.CaptureSession, error) {
	cmd := exec.CommandContext(ctx, s.command, s.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open recorder pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start recorder: %w", err)
	}

	sess := &captureSession{
		cmd:    cmd,
		logger: s.logger,
		done:   make(chan struct{}),
	}
	go sess.read(stdout)
	return sess, nil
}

type captureSession struct {
	cmd    *exec.Cmd
	logger *zap.Logger
	done   chan struct{}

	mu      sync.Mutex
	pcm     []byte
	window  [fftSize]int16
	stopped bool
}

func (s *captureSession) read(stdout io.Reader) {
	defer close(s.done)
	buf := make([]byte, 4096)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			s.mu.Lock()
			s.pcm = append(s.pcm, buf[:n]...)
			s.refreshWindowLocked()
			s.mu.Unlock()
		}
		if err != nil {
			if err != io.EOF {
				s.logger.Debug("Recorder stream ended", zap.Error(err))
			}
			return
		}
	}
}

// refreshWindowLocked fills the analysis window with the newest fftSize
// samples.
func (s *captureSession) refreshWindowLocked() {
	samples := len(s.pcm) / 2
	start := samples - fftSize
	if start < 0 {
		start = 0
	}
	for i := 0; i < fftSize; i++ {
		idx := start + i
		if idx >= samples {
			s.window[i] = 0
			continue
		}
		s.window[i] = int16(s.pcm[idx*2]) | int16(s.pcm[idx*2+1])<<8
	}
}

// Spectrum writes one frame of frequency magnitudes, scaled to 0..255, into
// buf. buf must hold at least 128 values.
func (s *captureSession) Spectrum(buf []byte) error {
	if len(buf) < bins {
		return fmt.Errorf("spectrum buffer too small: %d < %d", len(buf), bins)
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("capture session stopped")
	}
	var window [fftSize]float64
	for i, sample := range s.window {
		window[i] = float64(sample) / 32768.0
	}
	s.mu.Unlock()

	magnitudes(window, buf[:bins])
	return nil
}

// magnitudes computes the DFT magnitude of each of the first fftSize/2
// frequency bins, scaled to the 0..255 range.
func magnitudes(window [fftSize]float64, out []byte) {
	for k := 0; k < bins; k++ {
		var re, im float64
		for n := 0; n < fftSize; n++ {
			angle := -2 * math.Pi * float64(k) * float64(n) / fftSize
			re += window[n] * math.Cos(angle)
			im += window[n] * math.Sin(angle)
		}
		mag := math.Sqrt(re*re+im*im) / (fftSize / 2)
		scaled := mag * 255
		if scaled > 255 {
			scaled = 255
		}
		out[k] = byte(scaled)
	}
}

// Recording reports whether the recorder process is still producing audio.
func (s *captureSession) Recording() bool {
	select {
	case <-s.done:
		return false
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped
}

// Stop terminates the recorder and returns the captured clip as a WAV
// document.
func (s *captureSession) Stop() ([]byte, error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil, fmt.Errorf("capture session already stopped")
	}
	s.stopped = true
	s.mu.Unlock()

	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	<-s.done
	s.cmd.Wait()

	s.mu.Lock()
	pcm := s.pcm
	s.mu.Unlock()
	return WrapWAV(pcm, sampleRate, 1), nil
}
