package stt

import "testing"

func TestSplitWAVStripsHeader(t *testing.T) {
	wav := make([]byte, 44+10)
	copy(wav[0:4], "RIFF")
	copy(wav[8:12], "WAVE")
	wav[24] = 0x80
	wav[25] = 0x3e // 16000 little-endian
	wav[44] = 0xAB

	pcm, rate := splitWAV(wav)
	if rate != 16000 {
		t.Errorf("rate = %d, want 16000", rate)
	}
	if len(pcm) != 10 || pcm[0] != 0xAB {
		t.Errorf("pcm = %v", pcm)
	}
}

func TestSplitWAVPassesRawThrough(t *testing.T) {
	raw := []byte{1, 2, 3, 4}
	pcm, rate := splitWAV(raw)
	if rate != 16000 || len(pcm) != 4 {
		t.Errorf("pcm=%v rate=%d", pcm, rate)
	}
}
