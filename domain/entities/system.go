package entities

import "encoding/json"

// ProviderInfo describes one installed (or installable) model provider as
// reported by the backend.
type ProviderInfo struct {
	Installed bool     `json:"installed"`
	Version   *string  `json:"version"`
	Models    []string `json:"models"`
}

// MarketplaceModel is one downloadable model entry from the marketplace feed.
type MarketplaceModel struct {
	Name        string `json:"name"`
	Size        string `json:"size"`
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
}

// TelemetrySnapshot holds the last-known values of the four polled system
// resources. A nil field means the resource has never been fetched
// successfully.
type TelemetrySnapshot struct {
	Specs       json.RawMessage               `json:"specs"`
	Overview    json.RawMessage               `json:"overview"`
	Providers   map[string]ProviderInfo       `json:"providers"`
	Marketplace map[string][]MarketplaceModel `json:"marketplace_models"`
}

// AppSettings is the flat record of runtime knobs derived from the
// settings panels.
type AppSettings struct {
	Model           string  `json:"model"`
	Temperature     float64 `json:"temperature"`
	MaxTokens       int     `json:"max_tokens"`
	ContextWindow   int     `json:"context_window"`
	RAGEnabled      bool    `json:"rag_enabled"`
	ASREnabled      bool    `json:"asr_enabled"`
	TTSEnabled      bool    `json:"tts_enabled"`
	StreamResponses bool    `json:"stream_responses"`
	DeveloperMode   bool    `json:"developer_mode"`
}
