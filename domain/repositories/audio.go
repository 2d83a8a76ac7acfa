package repositories

import "context"

// CaptureSession is one open microphone recording. Owned exclusively by the
// voice capture engine; torn down on stop, silence timeout, or engine
// shutdown. Never persisted.
type CaptureSession interface {
	// Spectrum fills buf with the current byte-scale (0-255) frequency
	// magnitudes of the live input.
	Spectrum(buf []byte) error
	// Recording reports whether the underlying capture is still running.
	Recording() bool
	// Stop halts capture, flushes buffered audio, and releases the device.
	// It returns the complete recorded clip.
	Stop() ([]byte, error)
}

// AudioSource opens microphone capture sessions. Open failing is the
// permission-denied case and must be surfaced to the user.
type AudioSource interface {
	Open(ctx context.Context) (CaptureSession, error)
}
