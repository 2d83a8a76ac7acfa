package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestWrapWAVHeader(t *testing.T) {
	pcm := make([]byte, 320)
	wav := WrapWAV(pcm, 16000, 1)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("wav length = %d, want %d", len(wav), 44+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 16000 {
		t.Errorf("sample rate = %d", got)
	}
	if got := binary.LittleEndian.Uint16(wav[22:24]); got != 1 {
		t.Errorf("channels = %d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Errorf("data size = %d, want %d", got, len(pcm))
	}
}

func TestMagnitudesSilenceIsZero(t *testing.T) {
	var window [fftSize]float64
	out := make([]byte, bins)
	magnitudes(window, out)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("bin %d = %d, want 0 for silence", i, v)
		}
	}
}

func TestMagnitudesPureToneConcentratesInOneBin(t *testing.T) {
	// A full-scale tone at exactly bin 8 of the analysis window.
	var window [fftSize]float64
	for n := 0; n < fftSize; n++ {
		window[n] = math.Sin(2 * math.Pi * 8 * float64(n) / fftSize)
	}
	out := make([]byte, bins)
	magnitudes(window, out)

	peak := 0
	for i, v := range out {
		if v > out[peak] {
			peak = i
		}
	}
	if peak != 8 {
		t.Errorf("peak bin = %d, want 8", peak)
	}
	if out[8] < 200 {
		t.Errorf("peak magnitude = %d, want near full scale", out[8])
	}
	if out[40] > 10 {
		t.Errorf("distant bin magnitude = %d, want near zero", out[40])
	}
}
