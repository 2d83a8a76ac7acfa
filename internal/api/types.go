package api

// ErrorResponse is the JSON error body for all endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// TokenRequest asks for a control API token.
type TokenRequest struct {
	ClientID string `json:"client_id"`
	Secret   string `json:"secret"`
}

// TokenResponse carries an issued token.
type TokenResponse struct {
	Token string `json:"token"`
}

// SendMessageRequest submits one chat message. Attachments are display
// names only; file content stays on the caller's side.
type SendMessageRequest struct {
	Text          string   `json:"text"`
	SpeakResponse bool     `json:"speak_response"`
	Attachments   []string `json:"attachments,omitempty"`
}

// RenameRequest sets a conversation title.
type RenameRequest struct {
	Title string `json:"title"`
}

// MicRequest toggles the voice capture pipeline.
type MicRequest struct {
	Open bool `json:"open"`
}

// StatusResponse reports the live client state.
type StatusResponse struct {
	Status     string `json:"status"`
	Generating bool   `json:"generating"`
	MicOpen    bool   `json:"mic_open"`
}

// InstallRequest proxies a provider installation to the backend.
type InstallRequest struct {
	Provider string `json:"provider"`
	Password string `json:"password,omitempty"`
}

// DownloadRequest proxies a marketplace model download to the backend.
type DownloadRequest struct {
	Provider  string `json:"provider"`
	ModelName string `json:"model_name"`
	URL       string `json:"url,omitempty"`
}
