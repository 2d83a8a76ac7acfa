package voice

import "time"

// silenceDetector is a fixed-threshold voice-activity detector. It does not
// calibrate to the ambient noise floor; the threshold and timeout are the
// constants the whole pipeline is tuned around.
type silenceDetector struct {
	threshold float64
	timeout   time.Duration
	lastVoice time.Time
}

func newSilenceDetector(threshold float64, timeout time.Duration, now time.Time) *silenceDetector {
	return &silenceDetector{
		threshold: threshold,
		timeout:   timeout,
		lastVoice: now,
	}
}

// Observe feeds one frame of byte-scale frequency magnitudes. It returns
// true once the mean magnitude has stayed at or below the threshold for
// longer than the timeout.
func (d *silenceDetector) Observe(now time.Time, spectrum []byte) bool {
	if meanMagnitude(spectrum) > d.threshold {
		d.lastVoice = now
		return false
	}
	return now.Sub(d.lastVoice) > d.timeout
}

// meanMagnitude averages the 0-255 magnitudes across all bins.
func meanMagnitude(spectrum []byte) float64 {
	if len(spectrum) == 0 {
		return 0
	}
	sum := 0
	for _, v := range spectrum {
		sum += int(v)
	}
	return float64(sum) / float64(len(spectrum))
}
