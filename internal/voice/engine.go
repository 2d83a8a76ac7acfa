package voice

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kaushikharsh99/MARK-2/domain/repositories"
)

// State is the capture engine's lifecycle state.
type State string

const (
	StateIdle         State = "idle"
	StateRequesting   State = "requesting"
	StateRecording    State = "recording"
	StateStopping     State = "stopping"
	StateTranscribing State = "transcribing"
	StateDenied       State = "denied"
)

const (
	// silenceThreshold is the mean magnitude (0-255 scale) above which a
	// frame counts as voice activity.
	silenceThreshold = 10

	// silenceTimeout is how long sub-threshold audio runs before the
	// recording stops itself.
	silenceTimeout = 1000 * time.Millisecond

	// frameInterval drives the VAD polling loop at a fixed 60 Hz.
	frameInterval = time.Second / 60

	// minClipBytes is the heuristic floor under which a flushed clip is
	// considered too short to contain actual speech.
	minClipBytes = 1000

	// confirmDelay gives the user a moment to see the transcript before it
	// is sent.
	confirmDelay = 500 * time.Millisecond

	// spectrumBins matches an FFT size of 256.
	spectrumBins = 128

	transcribeTimeout = 60 * time.Second
)

// Engine owns the microphone stream and runs the voice-activity-driven
// recording pipeline: open mic, poll energy frames, stop on silence, flush,
// transcribe, hand the text to the send pipeline. Every exit path releases
// the capture session and terminates the frame loop.
type Engine struct {
	source      repositories.AudioSource
	transcriber repositories.Transcriber
	notifier    repositories.Notifier
	logger      *zap.Logger

	// Overridable in tests.
	frameInterval time.Duration
	silenceWindow time.Duration
	confirmDelay  time.Duration
	now           func() time.Time
	sleep         func(time.Duration)

	mu      sync.Mutex
	state   State
	session repositories.CaptureSession

	onText     func(text string, speakResponse bool)
	onMicState func(open bool)
}

// NewEngine creates an idle capture engine.
func NewEngine(
	source repositories.AudioSource,
	transcriber repositories.Transcriber,
	notifier repositories.Notifier,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		source:        source,
		transcriber:   transcriber,
		notifier:      notifier,
		logger:        logger,
		frameInterval: frameInterval,
		silenceWindow: silenceTimeout,
		confirmDelay:  confirmDelay,
		now:           time.Now,
		sleep:         time.Sleep,
		state:         StateIdle,
	}
}

// SetOnText registers the callback receiving a successfully transcribed
// utterance. The speakResponse flag is always true for voice input.
func (e *Engine) SetOnText(f func(text string, speakResponse bool)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onText = f
}

// SetOnMicState registers a listener for the recording flag, mirrored to
// the UI mic indicator.
func (e *Engine) SetOnMicState(f func(open bool)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onMicState = f
}

// State returns the engine's current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Recording reports whether a capture session is open.
func (e *Engine) Recording() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil
}

// Start requests microphone access and begins recording. A denied request
// surfaces an error and leaves the engine idle. Starting while already
// recording is a no-op.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.session != nil || e.state == StateRequesting {
		e.mu.Unlock()
		return nil
	}
	e.state = StateRequesting
	e.mu.Unlock()

	sess, err := e.source.Open(ctx)
	if err != nil {
		e.setState(StateDenied)
		e.logger.Warn("Microphone access denied", zap.Error(err))
		e.notifier.Error("Microphone access denied.")
		e.setState(StateIdle)
		return err
	}

	e.mu.Lock()
	e.session = sess
	e.state = StateRecording
	e.mu.Unlock()

	e.notifyMicState(true)
	e.notifier.Success("Listening...")
	e.logger.Info("Recording started")

	go e.frameLoop(sess)
	return nil
}

// Stop ends the current recording manually and runs the clip through
// transcription. A no-op while idle.
func (e *Engine) Stop() {
	e.mu.Lock()
	sess := e.session
	e.mu.Unlock()
	if sess != nil {
		e.finish(sess)
	}
}

// SetMicOpen reconciles a caller-controlled mic flag against the internal
// recording state, starting or stopping as needed. This is how a wake-word
// event opens the mic without the user pressing the button.
func (e *Engine) SetMicOpen(ctx context.Context, open bool) {
	recording := e.Recording()
	if open && !recording {
		e.Start(ctx)
	} else if !open && recording {
		e.Stop()
	}
}

// frameLoop polls one energy frame per tick. Iterations are strictly
// sequential; the loop self-terminates as soon as the session is no longer
// the engine's current recording.
func (e *Engine) frameLoop(sess repositories.CaptureSession) {
	buf := make([]byte, spectrumBins)
	detector := newSilenceDetector(silenceThreshold, e.silenceWindow, e.now())

	ticker := time.NewTicker(e.frameInterval)
	defer ticker.Stop()

	for range ticker.C {
		e.mu.Lock()
		current := e.session
		e.mu.Unlock()
		if current != sess || !sess.Recording() {
			return
		}

		if err := sess.Spectrum(buf); err != nil {
			e.logger.Error("Failed to read energy frame", zap.Error(err))
			continue
		}

		if detector.Observe(e.now(), buf) {
			e.logger.Debug("Silence detected, stopping recording")
			e.finish(sess)
			return
		}
	}
}

// finish tears the session down and runs the transcription tail of the
// pipeline. Only the first caller for a given session proceeds; the mic
// stream and frame loop are released on every path out.
func (e *Engine) finish(sess repositories.CaptureSession) {
	e.mu.Lock()
	if e.session != sess {
		e.mu.Unlock()
		return
	}
	e.session = nil
	e.state = StateStopping
	e.mu.Unlock()

	e.notifyMicState(false)

	clip, err := sess.Stop()
	if err != nil {
		e.logger.Error("Failed to flush recording", zap.Error(err))
		e.notifier.Error("Recording failed.")
		e.setState(StateIdle)
		return
	}

	if len(clip) < minClipBytes {
		e.logger.Info("Discarding clip below minimum size", zap.Int("bytes", len(clip)))
		e.notifier.Error("Audio too short.")
		e.setState(StateIdle)
		return
	}

	e.setState(StateTranscribing)
	e.notifier.Info("Transcribing...")

	ctx, cancel := context.WithTimeout(context.Background(), transcribeTimeout)
	defer cancel()

	text, err := e.transcriber.Transcribe(ctx, clip)
	if err != nil {
		e.logger.Error("Transcription failed", zap.Error(err))
		e.notifier.Error("Transcription failed.")
		e.setState(StateIdle)
		return
	}

	text = strings.TrimSpace(text)
	if text == "" {
		e.notifier.Error("Could not understand audio.")
		e.setState(StateIdle)
		return
	}

	e.logger.Info("Transcription completed", zap.String("text", text))

	// Let the user see the transcript before it goes out.
	e.sleep(e.confirmDelay)

	e.mu.Lock()
	onText := e.onText
	e.mu.Unlock()
	if onText != nil {
		onText(text, true)
	}

	e.setState(StateIdle)
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) notifyMicState(open bool) {
	e.mu.Lock()
	listener := e.onMicState
	e.mu.Unlock()
	if listener != nil {
		listener(open)
	}
}
