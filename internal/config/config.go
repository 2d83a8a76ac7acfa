package config

import (
	"os"
	"path/filepath"
)

// Config collects every environment-driven setting of the client process.
type Config struct {
	// BackendURL is the assistant backend serving both the chat
	// WebSocket and the REST surface.
	BackendURL string
	// BackendToken is an optional bearer token for the backend.
	BackendToken string
	// ListenAddr is the local control API's bind address.
	ListenAddr string
	// DataPath is the SQLite database file.
	DataPath string
	// LogPath is the rotating log file. Empty logs to stderr only.
	LogPath string
	// APISecret protects the local control API. Empty disables auth.
	APISecret string
	// ASRProvider selects the transcriber: "backend" or "google".
	ASRProvider string
	// ChatBackend selects the reply path: "websocket" or "gemini".
	ChatBackend string
	// ASRLanguage is the recognition language for the google transcriber.
	ASRLanguage string
	// CaptureCommand overrides the microphone capture binary.
	CaptureCommand string
	// PlaybackCommand overrides the audio playback binary.
	PlaybackCommand string
}

// Load reads the configuration from the environment, applying defaults.
func Load() Config {
	return Config{
		BackendURL:      getenv("BACKEND_URL", "http://127.0.0.1:8000"),
		BackendToken:    os.Getenv("BACKEND_TOKEN"),
		ListenAddr:      ":" + getenv("PORT", "8080"),
		DataPath:        getenv("DATA_PATH", filepath.Join(dataDir(), "mark2.db")),
		LogPath:         os.Getenv("LOG_PATH"),
		APISecret:       os.Getenv("MARK2_API_SECRET"),
		ASRProvider:     getenv("ASR_PROVIDER", "backend"),
		ChatBackend:     getenv("CHAT_BACKEND", "websocket"),
		ASRLanguage:     getenv("ASR_LANGUAGE", "en-US"),
		CaptureCommand:  os.Getenv("CAPTURE_COMMAND"),
		PlaybackCommand: os.Getenv("PLAYBACK_COMMAND"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func dataDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "mark2")
	}
	return "."
}
