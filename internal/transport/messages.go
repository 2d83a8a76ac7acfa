package transport

import "encoding/json"

// Status is the connection status surfaced to clients of the channel. The
// channel itself only ever asserts StatusOnline; generating and loading are
// set by the conversation flow, error only by the model-load flow.
type Status string

const (
	StatusOnline     Status = "online"
	StatusGenerating Status = "generating"
	StatusError      Status = "error"
	StatusLoading    Status = "loading"
)

// Inbound message types from the backend.
const (
	TypeWakeWordDetected = "wake_word_detected"

	// SenderJarvis marks assistant replies on the wire.
	SenderJarvis = "Jarvis"
)

// ChatRequest is the outbound chat frame.
type ChatRequest struct {
	Text          string `json:"text"`
	SpeakResponse bool   `json:"speak_response"`
}

// Envelope is the inbound frame. The backend sends either an assistant
// reply (Sender set, optional base64 WAV audio) or a wake-word event
// (Type set).
type Envelope struct {
	Type   string `json:"type,omitempty"`
	Sender string `json:"sender,omitempty"`
	Text   string `json:"text"`
	Audio  string `json:"audio,omitempty"`
}

// IsWakeWord reports whether the envelope is a wake-word notification.
func (e Envelope) IsWakeWord() bool {
	return e.Type == TypeWakeWordDetected
}

// IsAssistantReply reports whether the envelope carries an assistant reply.
func (e Envelope) IsAssistantReply() bool {
	return e.Sender == SenderJarvis
}

// ParseEnvelope decodes an inbound JSON frame.
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(data, &env)
	return env, err
}
