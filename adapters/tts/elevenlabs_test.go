package tts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestNewElevenLabsRequiresAPIKey(t *testing.T) {
	logger := zaptest.NewLogger(t)

	os.Unsetenv("ELEVEN_LABS_API_KEY")
	config := NewElevenLabsConfigFromEnv()
	if _, err := NewElevenLabs(config, logger); err == nil {
		t.Error("Expected error when API key is not set")
	}

	os.Setenv("ELEVEN_LABS_API_KEY", "test-api-key")
	defer os.Unsetenv("ELEVEN_LABS_API_KEY")

	config = NewElevenLabsConfigFromEnv()
	tts, err := NewElevenLabs(config, logger)
	if err != nil {
		t.Fatalf("Failed to create adapter: %v", err)
	}
	if tts.apiKey != "test-api-key" {
		t.Errorf("Expected API key 'test-api-key', got '%s'", tts.apiKey)
	}
	if tts.voiceID != defaultVoiceID {
		t.Errorf("Expected default voice ID '%s', got '%s'", defaultVoiceID, tts.voiceID)
	}
	if tts.speed != 1.0 {
		t.Errorf("Expected default speed 1.0, got %f", tts.speed)
	}
}

func TestValidateElevenLabsConfigRanges(t *testing.T) {
	cases := []struct {
		name    string
		config  ElevenLabsConfig
		wantErr bool
	}{
		{"valid", ElevenLabsConfig{APIKey: "k", Stability: 0.5, Clarity: 0.8, Speed: 1.2}, false},
		{"stability out of range", ElevenLabsConfig{APIKey: "k", Stability: 1.5}, true},
		{"clarity out of range", ElevenLabsConfig{APIKey: "k", Clarity: -0.1}, true},
		{"speed out of range", ElevenLabsConfig{APIKey: "k", Speed: 3}, true},
		{"negative chunk size", ElevenLabsConfig{APIKey: "k", ChunkSize: -1}, true},
	}
	for _, tc := range cases {
		err := ValidateElevenLabsConfig(tc.config)
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
	}
}

func TestConvertTextToSpeechRejectsEmptyText(t *testing.T) {
	logger := zaptest.NewLogger(t)
	tts, err := NewElevenLabs(ElevenLabsConfig{APIKey: "k"}, logger)
	if err != nil {
		t.Fatalf("Failed to create adapter: %v", err)
	}

	if _, err := tts.ConvertTextToSpeech(context.Background(), "   "); err == nil {
		t.Error("Expected error for blank text")
	}
}

func TestConvertTextToSpeechStreamsChunks(t *testing.T) {
	logger := zaptest.NewLogger(t)

	payload := []byte("fake pcm audio payload")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("xi-api-key"); got != "test-key" {
			t.Errorf("xi-api-key = %q", got)
		}
		w.Write(payload)
	}))
	defer server.Close()

	tts, err := NewElevenLabs(ElevenLabsConfig{APIKey: "test-key", APIBaseURL: server.URL, ChunkSize: 8}, logger)
	if err != nil {
		t.Fatalf("Failed to create adapter: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	audioChan, err := tts.ConvertTextToSpeech(ctx, "hello")
	if err != nil {
		t.Fatalf("ConvertTextToSpeech failed: %v", err)
	}

	var received []byte
	for chunk := range audioChan {
		received = append(received, chunk...)
	}
	if string(received) != string(payload) {
		t.Errorf("received %q, want %q", received, payload)
	}
}

func TestSetSpeedIgnoresOutOfRange(t *testing.T) {
	logger := zaptest.NewLogger(t)
	tts, err := NewElevenLabs(ElevenLabsConfig{APIKey: "k"}, logger)
	if err != nil {
		t.Fatalf("Failed to create adapter: %v", err)
	}

	tts.SetSpeed(1.5)
	if tts.speed != 1.5 {
		t.Errorf("speed = %f, want 1.5", tts.speed)
	}
	tts.SetSpeed(5)
	if tts.speed != 1.5 {
		t.Errorf("speed = %f, out-of-range value should be ignored", tts.speed)
	}
}
